package models

import "time"

// Sex is the client's sex as recorded on the identity document.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Valid reports whether s is one of the accepted values.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Client is a buyer identified by a unique identity document (CI).
// A client cannot be deleted while an invoice references it.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CI        string `gorm:"column:ci;size:20;uniqueIndex;not null" json:"ci"`
	FirstName string `gorm:"size:255;not null" json:"first_name"`
	LastName  string `gorm:"size:255;not null" json:"last_name"`
	Sex       Sex    `gorm:"size:1;not null" json:"sex"`
}

// FullName returns "FirstName LastName".
func (c *Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
