package services

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/diewo77/go-sales/internal/services"

var tracer = otel.Tracer(instrumentationName)

type instruments struct {
	mutations  metric.Int64Counter
	rejections metric.Int64Counter
}

func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)
	mutations, err := meter.Int64Counter("sales.detail.mutations",
		metric.WithDescription("Committed invoice detail mutations, by op"))
	if err != nil {
		mutations = noop.Int64Counter{}
	}
	rejections, err := meter.Int64Counter("sales.stock.rejections",
		metric.WithDescription("Detail mutations rejected for insufficient stock"))
	if err != nil {
		rejections = noop.Int64Counter{}
	}
	return instruments{mutations: mutations, rejections: rejections}
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
