package membersync

import (
	"context"
	"fmt"
	"strings"
)

// SkipError marks a per-record planning failure that must not abort the
// batch; the record is reported as skipped and the run continues.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

// Plan is the executable form of one SyncOperation: the account fields to
// create or merge, followed by the group mutations. Group mutations come
// last because they reference an account id that may only exist after the
// account mutation ran.
type Plan struct {
	Op SyncOperation

	// Fields holds the user representation fields to write. For a create
	// this is the full new representation; otherwise it is merged into
	// the existing one (a patch, not a replace). An explicit nil value
	// clears the field.
	Fields map[string]any

	AddDefaultGroup bool
	RemoveAllGroups bool
}

// Username returns the username the plan will write, if any.
func (p *Plan) Username() (string, bool) {
	v, ok := p.Fields["username"].(string)
	return v, ok
}

// BuildPlan resolves a SyncOperation into a Plan. taken probes the
// identity store for username collisions; it is only consulted on a
// create. The steps are ordered: later intents (suffix mutation) read the
// username derived by earlier ones.
func BuildPlan(ctx context.Context, op SyncOperation, taken func(context.Context, string) (bool, error)) (*Plan, error) {
	plan := &Plan{Op: op, Fields: make(map[string]any)}
	actions := op.Actions
	contact := op.Contact

	var username string

	if actions.Has(ActionCreate) {
		email := contact.Email()
		if email == "" {
			return nil, &SkipError{Reason: fmt.Sprintf(
				"user for %s %s (contact %s) cannot be created: e-mail is missing",
				contact.Personal.PersonFirstName, contact.Personal.PersonLastName, contact.ID)}
		}
		base := usernameBase(email)
		free, err := findFreeUsername(ctx, base, taken)
		if err != nil {
			return nil, fmt.Errorf("probing for a free username from %q: %w", base, err)
		}
		username = free
		plan.Fields["username"] = username
	}

	if op.User != nil {
		// seed from the stored username; the filter guards against values
		// written by earlier out-of-band tooling
		username = sanitizeUsername(op.User.Username)
		plan.Fields["username"] = username
	}

	if actions.Has(ActionActivate) {
		plan.Fields["enabled"] = true
	}
	if actions.Has(ActionDeactivate) {
		plan.Fields["enabled"] = false
	}

	if actions.Has(ActionUpdateEmail) {
		if email := contact.Email(); email != "" {
			plan.Fields["email"] = strings.ToLower(email)
		} else {
			plan.Fields["email"] = nil
		}
	}
	if actions.Has(ActionUpdateFirstName) {
		plan.Fields["firstName"] = contact.Personal.PersonFirstName
	}
	if actions.Has(ActionUpdateLastName) {
		plan.Fields["lastName"] = contact.Personal.PersonLastName
	}

	if actions.Has(ActionAddCampaiID) {
		attributes := map[string][]string{}
		if op.User != nil {
			for name, values := range op.User.Attributes {
				attributes[name] = values
			}
		}
		attributes[AttributeCampaiID] = []string{contact.ID}
		plan.Fields["attributes"] = attributes
	}

	// suffix mutations compose with the username derived above
	if actions.Has(ActionAddNoMemberSuffix) {
		plan.Fields["username"] = username + NoMemberSuffix
	}
	if actions.Has(ActionRemoveNoMemberSuffix) {
		plan.Fields["username"] = strings.TrimSuffix(username, NoMemberSuffix)
	}

	if actions.Has(ActionSetEmailVerified) {
		plan.Fields["emailVerified"] = true
	}

	plan.AddDefaultGroup = actions.Has(ActionAddDefaultGroup)
	plan.RemoveAllGroups = actions.Has(ActionRemoveAllGroups)

	return plan, nil
}
