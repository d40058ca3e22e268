package domain

import (
	"strings"
	"time"
)

// Contact is a person in the address book.
type Contact struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Nickname  string    `json:"nickname,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Birthday  string    `json:"birthday,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the name used when talking about the contact.
func (c *Contact) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Nickname
	}
	return name
}

// ContactPatch holds the fields of an update; nil fields are left untouched.
type ContactPatch struct {
	FirstName *string
	LastName  *string
	Nickname  *string
	Email     *string
	Phone     *string
	Company   *string
	Birthday  *string
}

// Empty reports whether the patch changes nothing.
func (p ContactPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Nickname == nil &&
		p.Email == nil && p.Phone == nil && p.Company == nil && p.Birthday == nil
}

// Tag is a label that can be attached to contacts.
type Tag struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Contacts int    `json:"contacts"`
}

// Note is a free-form note about a contact.
type Note struct {
	ID        int64     `json:"id"`
	ContactID int64     `json:"contact_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Relationship links two contacts, e.g. "spouse" or "colleague".
type Relationship struct {
	ID               int64     `json:"id"`
	ContactID        int64     `json:"contact_id"`
	RelatedContactID int64     `json:"related_contact_id"`
	RelatedName      string    `json:"related_name,omitempty"`
	Type             string    `json:"relationship_type"`
	CreatedAt        time.Time `json:"created_at"`
}

// ContactDetails is a contact together with its tags, notes and relationships.
type ContactDetails struct {
	Contact       Contact        `json:"contact"`
	Tags          []string       `json:"tags"`
	Notes         []Note         `json:"notes"`
	Relationships []Relationship `json:"relationships"`
}
