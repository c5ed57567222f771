package membersync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/keycloak"
)

var defaultGroup = keycloak.Group{
	ID:   uuid.MustParse("6be52a7e-6a90-4f34-ae0f-df5a0b5a7482"),
	Name: "Mitglied",
}

func contactFixture(status campai.MembershipStatus) campai.Contact {
	return campai.Contact{
		ID: "contact-1",
		Personal: campai.Personal{
			IsPerson:        true,
			PersonFirstName: "Jane",
			PersonLastName:  "Doe",
		},
		Communication: campai.Communication{Email: "jane.doe@example.com"},
		Membership:    campai.Membership{Status: status},
	}
}

func userFixture() *keycloak.User {
	return &keycloak.User{
		ID:            uuid.MustParse("0e2cc7ab-90c3-47cf-b255-ae8a0a9a15a4"),
		Username:      "jane.doe",
		Email:         "jane.doe@example.com",
		FirstName:     "Jane",
		LastName:      "Doe",
		Enabled:       true,
		EmailVerified: true,
		Attributes:    map[string][]string{AttributeCampaiID: {"contact-1"}},
	}
}

func TestDiffCreatesMissingActiveMember(t *testing.T) {
	actions := Diff(contactFixture(campai.StatusIsActive), nil, nil, defaultGroup.ID)

	want := ActionCreate | ActionActivate | ActionUpdateEmail | ActionUpdateFirstName |
		ActionUpdateLastName | ActionAddDefaultGroup | ActionAddCampaiID | ActionSetEmailVerified
	require.Equal(t, want, actions)
}

func TestDiffDropsMissingInactiveMember(t *testing.T) {
	for _, status := range []campai.MembershipStatus{
		campai.StatusHasLeft, campai.StatusWillEnter, campai.StatusUnspecified,
	} {
		t.Run(string(status), func(t *testing.T) {
			require.Equal(t, NoAction, Diff(contactFixture(status), nil, nil, defaultGroup.ID))
		})
	}
}

func TestDiffConvergedPairNeedsNothing(t *testing.T) {
	actions := Diff(contactFixture(campai.StatusIsActive), userFixture(),
		[]keycloak.Group{defaultGroup}, defaultGroup.ID)
	require.Equal(t, NoAction, actions)
}

func TestDiffDeactivatesFormerMember(t *testing.T) {
	actions := Diff(contactFixture(campai.StatusHasLeft), userFixture(),
		[]keycloak.Group{defaultGroup}, defaultGroup.ID)

	assert.True(t, actions.Has(ActionDeactivate))
	assert.True(t, actions.Has(ActionRemoveAllGroups))
	assert.True(t, actions.Has(ActionAddNoMemberSuffix))
	assert.False(t, actions.Has(ActionCreate))
	assert.False(t, actions.Has(ActionActivate))
}

func TestDiffReactivatesReturningMember(t *testing.T) {
	user := userFixture()
	user.Enabled = false
	user.Username = "jane.doe" + NoMemberSuffix

	actions := Diff(contactFixture(campai.StatusWillLeave), user, nil, defaultGroup.ID)

	assert.True(t, actions.Has(ActionActivate))
	assert.True(t, actions.Has(ActionAddDefaultGroup))
	assert.True(t, actions.Has(ActionRemoveNoMemberSuffix))
	assert.False(t, actions.Has(ActionDeactivate))
}

func TestDiffEmailComparisonIsCaseInsensitive(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	contact.Communication.Email = "Jane.Doe@Example.COM"

	actions := Diff(contact, userFixture(), []keycloak.Group{defaultGroup}, defaultGroup.ID)
	assert.False(t, actions.Has(ActionUpdateEmail), "case-only difference must not flag the e-mail")

	contact.Communication.Email = "jane.other@example.com"
	actions = Diff(contact, userFixture(), []keycloak.Group{defaultGroup}, defaultGroup.ID)
	assert.True(t, actions.Has(ActionUpdateEmail))
}

func TestDiffFlagsProfileDrift(t *testing.T) {
	user := userFixture()
	user.FirstName = "Janet"
	user.EmailVerified = false
	user.Attributes = nil

	actions := Diff(contactFixture(campai.StatusIsActive), user,
		[]keycloak.Group{defaultGroup}, defaultGroup.ID)

	assert.True(t, actions.Has(ActionUpdateFirstName))
	assert.True(t, actions.Has(ActionSetEmailVerified))
	assert.True(t, actions.Has(ActionAddCampaiID))
	assert.False(t, actions.Has(ActionUpdateLastName))
	assert.False(t, actions.Has(ActionUpdateEmail))
}

func TestDiffNeverCombinesCreateAndDeactivate(t *testing.T) {
	statuses := []campai.MembershipStatus{
		campai.StatusHasLeft, campai.StatusWillLeave, campai.StatusIsActive,
		campai.StatusWillEnter, campai.StatusUnspecified,
	}
	users := []*keycloak.User{nil, userFixture()}
	disabled := userFixture()
	disabled.Enabled = false
	users = append(users, disabled)

	for _, status := range statuses {
		for _, user := range users {
			actions := Diff(contactFixture(status), user, nil, defaultGroup.ID)
			assert.False(t, actions.Has(ActionCreate) && actions.Has(ActionDeactivate),
				"status %s produced both create and deactivate", status)
		}
	}
}

func TestDiffDeactivatesStampedUserWithoutEmail(t *testing.T) {
	contact := contactFixture(campai.StatusHasLeft)
	contact.Communication.Email = ""

	user := userFixture()
	actions := Diff(contact, user, nil, defaultGroup.ID)

	assert.True(t, actions.Has(ActionDeactivate))
	assert.True(t, actions.Has(ActionUpdateEmail), "stored e-mail differs from the absent source e-mail")
	assert.False(t, actions.Has(ActionCreate))
}
