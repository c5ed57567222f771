package membersync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/keycloak"
)

// fakeStore is an in-memory IdentityStore. It applies representation
// fields the way Keycloak would, so pipeline tests can assert convergence.
type fakeStore struct {
	users  map[uuid.UUID]*keycloak.User
	groups map[uuid.UUID][]keycloak.Group
	known  []keycloak.Group

	// calls records every mutating call in order.
	calls []string

	updateErr map[uuid.UUID]error
}

func newFakeStore(groups ...keycloak.Group) *fakeStore {
	return &fakeStore{
		users:     make(map[uuid.UUID]*keycloak.User),
		groups:    make(map[uuid.UUID][]keycloak.Group),
		known:     groups,
		updateErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) addUser(u keycloak.User, groups ...keycloak.Group) {
	f.users[u.ID] = &u
	f.groups[u.ID] = groups
}

func (f *fakeStore) UsersByAttribute(_ context.Context, name, value string) ([]*keycloak.User, error) {
	var out []*keycloak.User
	for _, u := range f.users {
		for _, v := range u.Attributes[name] {
			if v == value {
				copied := *u
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UsersByEmail(_ context.Context, email string) ([]*keycloak.User, error) {
	var out []*keycloak.User
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) UsersByUsername(_ context.Context, username string) ([]*keycloak.User, error) {
	var out []*keycloak.User
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) GroupsByName(_ context.Context, name string) ([]keycloak.Group, error) {
	var out []keycloak.Group
	for _, g := range f.known {
		if strings.Contains(g.Name, name) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) UserGroups(_ context.Context, userID uuid.UUID) ([]keycloak.Group, error) {
	return append([]keycloak.Group(nil), f.groups[userID]...), nil
}

func (f *fakeStore) CreateUser(_ context.Context, fields map[string]any) (uuid.UUID, error) {
	id := uuid.New()
	u := &keycloak.User{ID: id}
	applyFields(u, fields)
	f.users[id] = u
	f.calls = append(f.calls, "create "+u.Username)
	return id, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, user *keycloak.User, fields map[string]any) error {
	if err := f.updateErr[user.ID]; err != nil {
		return err
	}
	stored, ok := f.users[user.ID]
	if !ok {
		return fmt.Errorf("no such user %s", user.ID)
	}
	applyFields(stored, fields)
	f.calls = append(f.calls, "update "+stored.Username)
	return nil
}

func (f *fakeStore) AddUserToGroup(_ context.Context, userID, groupID uuid.UUID) error {
	for _, g := range f.known {
		if g.ID == groupID {
			f.groups[userID] = append(f.groups[userID], g)
			f.calls = append(f.calls, "group-add "+g.Name)
			return nil
		}
	}
	return fmt.Errorf("no such group %s", groupID)
}

func (f *fakeStore) RemoveUserFromGroup(_ context.Context, userID, groupID uuid.UUID) error {
	groups := f.groups[userID]
	for i, g := range groups {
		if g.ID == groupID {
			f.groups[userID] = append(groups[:i], groups[i+1:]...)
			f.calls = append(f.calls, "group-remove "+g.Name)
			return nil
		}
	}
	return fmt.Errorf("user %s is not in group %s", userID, groupID)
}

func applyFields(u *keycloak.User, fields map[string]any) {
	for name, value := range fields {
		switch name {
		case "username":
			u.Username = value.(string)
		case "email":
			if value == nil {
				u.Email = ""
			} else {
				u.Email = value.(string)
			}
		case "firstName":
			u.FirstName = value.(string)
		case "lastName":
			u.LastName = value.(string)
		case "enabled":
			u.Enabled = value.(bool)
		case "emailVerified":
			u.EmailVerified = value.(bool)
		case "attributes":
			u.Attributes = value.(map[string][]string)
		}
	}
}

// fakeSource serves a single organisation and a fixed contact list with
// limit/skip paging.
type fakeSource struct {
	orgs     []campai.Organisation
	contacts []campai.Contact
}

func (s *fakeSource) Organisations(_ context.Context, _ campai.Filter) ([]campai.Organisation, error) {
	return s.orgs, nil
}

func (s *fakeSource) Contacts(_ context.Context, _ string, _ campai.Filter, page campai.Page) ([]campai.Contact, error) {
	if page.Skip >= len(s.contacts) {
		return nil, nil
	}
	end := page.Skip + page.Limit
	if end > len(s.contacts) {
		end = len(s.contacts)
	}
	return s.contacts[page.Skip:end], nil
}
