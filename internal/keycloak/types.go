package keycloak

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// User is the subset of a Keycloak user representation the connector works
// with. The raw representation is retained so updates can merge changed
// fields without discarding attributes this connector does not know about.
type User struct {
	ID            uuid.UUID
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Enabled       bool
	EmailVerified bool
	Attributes    map[string][]string

	raw map[string]any
}

// Group is a Keycloak group reference.
type Group struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type userRep struct {
	ID            string              `json:"id"`
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName"`
	LastName      string              `json:"lastName"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes"`
}

func parseUser(data json.RawMessage) (*User, error) {
	var rep userRep
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing user representation: %w", err)
	}
	id, err := uuid.Parse(rep.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing user id %q: %w", rep.ID, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing user representation: %w", err)
	}
	return &User{
		ID:            id,
		Username:      rep.Username,
		Email:         rep.Email,
		FirstName:     rep.FirstName,
		LastName:      rep.LastName,
		Enabled:       rep.Enabled,
		EmailVerified: rep.EmailVerified,
		Attributes:    rep.Attributes,
		raw:           raw,
	}, nil
}

// mergedRep returns the raw representation with the given fields laid over
// it. Keycloak's update endpoint replaces the whole representation, so the
// merge keeps fields the connector does not manage.
func (u *User) mergedRep(fields map[string]any) map[string]any {
	rep := make(map[string]any, len(u.raw)+len(fields))
	for k, v := range u.raw {
		rep[k] = v
	}
	for k, v := range fields {
		rep[k] = v
	}
	return rep
}
