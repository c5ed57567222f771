package membersync

import (
	"context"

	"github.com/google/uuid"

	"lesverein.de/campai-connector/internal/keycloak"
)

// IdentityStore is the subset of the Keycloak admin API the engine queries
// and mutates. *keycloak.Client implements it; tests substitute an
// in-memory fake.
type IdentityStore interface {
	UsersByAttribute(ctx context.Context, name, value string) ([]*keycloak.User, error)
	UsersByEmail(ctx context.Context, email string) ([]*keycloak.User, error)
	UsersByUsername(ctx context.Context, username string) ([]*keycloak.User, error)
	GroupsByName(ctx context.Context, name string) ([]keycloak.Group, error)
	UserGroups(ctx context.Context, userID uuid.UUID) ([]keycloak.Group, error)
	CreateUser(ctx context.Context, fields map[string]any) (uuid.UUID, error)
	UpdateUser(ctx context.Context, user *keycloak.User, fields map[string]any) error
	AddUserToGroup(ctx context.Context, userID, groupID uuid.UUID) error
	RemoveUserFromGroup(ctx context.Context, userID, groupID uuid.UUID) error
}
