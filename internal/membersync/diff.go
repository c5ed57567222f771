package membersync

import (
	"strings"

	"github.com/google/uuid"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/keycloak"
)

// SyncOperation pairs a contact with the account resolved for it (nil when
// none was found) and the change flags computed by Diff. Operations live
// for the duration of one run only.
type SyncOperation struct {
	Contact campai.Contact
	User    *keycloak.User
	Groups  []keycloak.Group // the user's current groups; nil when User is nil
	Actions Action
}

// desiredActive reports whether the contact's membership status calls for
// an enabled account.
func desiredActive(contact campai.Contact) bool {
	switch contact.Membership.Status {
	case campai.StatusIsActive, campai.StatusWillLeave:
		return true
	}
	return false
}

// Diff computes the change flags for one (contact, account) pair.
// user is nil when no account was resolved; userGroups are the account's
// current group memberships. ActionCreate and ActionDeactivate sit on
// disjoint branches of the account-presence test and can never be combined.
func Diff(contact campai.Contact, user *keycloak.User, userGroups []keycloak.Group, defaultGroupID uuid.UUID) Action {
	actions := NoAction
	active := desiredActive(contact)

	if user == nil {
		if !active {
			return NoAction
		}
		// a create is always a full-field create
		return ActionCreate | ActionActivate |
			ActionUpdateEmail | ActionUpdateFirstName | ActionUpdateLastName |
			ActionAddDefaultGroup | ActionAddCampaiID | ActionSetEmailVerified
	}

	if active {
		if !user.Enabled {
			actions |= ActionActivate
		}
		if !hasGroup(userGroups, defaultGroupID) {
			actions |= ActionAddDefaultGroup
		}
		if strings.HasSuffix(user.Username, NoMemberSuffix) {
			actions |= ActionRemoveNoMemberSuffix
		}
	} else {
		if user.Enabled {
			actions |= ActionDeactivate
		}
		if len(userGroups) > 0 {
			actions |= ActionRemoveAllGroups
		}
		if !strings.HasSuffix(user.Username, NoMemberSuffix) {
			actions |= ActionAddNoMemberSuffix
		}
	}

	// field comparisons apply whether or not the activation state flips

	// Keycloak normalizes e-mail addresses to lowercase, so the lowercased
	// form is canonical for both the comparison and any write.
	if user.Email != strings.ToLower(contact.Email()) {
		actions |= ActionUpdateEmail
	}
	if user.FirstName != contact.Personal.PersonFirstName {
		actions |= ActionUpdateFirstName
	}
	if user.LastName != contact.Personal.PersonLastName {
		actions |= ActionUpdateLastName
	}
	if !containsValue(user.Attributes[AttributeCampaiID], contact.ID) {
		actions |= ActionAddCampaiID
	}
	if !user.EmailVerified {
		actions |= ActionSetEmailVerified
	}

	return actions
}

func hasGroup(groups []keycloak.Group, id uuid.UUID) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func containsValue(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
