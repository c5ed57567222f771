package campai

import (
	"strings"
	"time"
)

// MembershipStatus is the lifecycle state Campai tracks per membership.
type MembershipStatus string

const (
	StatusHasLeft     MembershipStatus = "hasLeft"
	StatusWillLeave   MembershipStatus = "willLeave"
	StatusIsActive    MembershipStatus = "isActive"
	StatusWillEnter   MembershipStatus = "willEnter"
	StatusUnspecified MembershipStatus = "unspecified"
)

// Organisation is a Campai organisation resource.
type Organisation struct {
	ID        string            `json:"_id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	MergeTags map[string]string `json:"mergeTags,omitempty"`
}

// Personal carries the person-related fields of a contact.
type Personal struct {
	IsPerson        bool   `json:"isPerson"`
	IsOrganisation  bool   `json:"isOrganisation"`
	PersonFirstName string `json:"personFirstName,omitempty"`
	PersonLastName  string `json:"personLastName,omitempty"`
}

// Communication carries the contact channels of a contact.
type Communication struct {
	Email string `json:"email,omitempty"`
}

// Membership carries the membership state of a contact. NumberSort is the
// sortable membership number; it is optional in the API.
type Membership struct {
	Status     MembershipStatus `json:"status,omitempty"`
	NumberSort *int64           `json:"numberSort,omitempty"`
}

// Contact is a Campai contact resource, serialized in the API's own field
// casing so fetched records can be cached and re-read verbatim.
type Contact struct {
	ID            string        `json:"_id"`
	Personal      Personal      `json:"personal"`
	Communication Communication `json:"communication"`
	Membership    Membership    `json:"membership"`
}

// Email returns the contact's e-mail address, or "" when absent. Blank
// values from the API are treated as absent.
func (c Contact) Email() string {
	return strings.TrimSpace(c.Communication.Email)
}

// IsNaturalPerson reports whether the contact represents an actual person
// rather than a company or other organisation-type contact.
func (c Contact) IsNaturalPerson() bool {
	return c.Personal.IsPerson && !c.Personal.IsOrganisation
}
