package membersync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/keycloak"
)

func noneTaken(_ context.Context, _ string) (bool, error) { return false, nil }

func TestBuildPlanCreateDerivesUsernameAndFullProfile(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	contact.Communication.Email = "Jane.Doe@Example.com"
	op := SyncOperation{
		Contact: contact,
		Actions: Diff(contact, nil, nil, defaultGroup.ID),
	}

	plan, err := BuildPlan(context.Background(), op, noneTaken)
	require.NoError(t, err)

	assert.Equal(t, "jane.doe", plan.Fields["username"])
	assert.Equal(t, true, plan.Fields["enabled"])
	assert.Equal(t, "jane.doe@example.com", plan.Fields["email"], "e-mail is written lowercased")
	assert.Equal(t, "Jane", plan.Fields["firstName"])
	assert.Equal(t, "Doe", plan.Fields["lastName"])
	assert.Equal(t, true, plan.Fields["emailVerified"])
	assert.Equal(t, map[string][]string{AttributeCampaiID: {"contact-1"}}, plan.Fields["attributes"])
	assert.True(t, plan.AddDefaultGroup)
	assert.False(t, plan.RemoveAllGroups)
}

func TestBuildPlanCreateResolvesUsernameCollision(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	contact.Communication.Email = "jdoe@example.com"
	op := SyncOperation{Contact: contact, Actions: Diff(contact, nil, nil, defaultGroup.ID)}

	existing := map[string]bool{"jdoe": true}
	taken := func(_ context.Context, name string) (bool, error) { return existing[name], nil }

	plan, err := BuildPlan(context.Background(), op, taken)
	require.NoError(t, err)
	assert.Equal(t, "jdoe1", plan.Fields["username"])
}

func TestBuildPlanCreateWithoutEmailIsSkipped(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	contact.Communication.Email = ""
	op := SyncOperation{Contact: contact, Actions: ActionCreate}

	_, err := BuildPlan(context.Background(), op, noneTaken)
	var skip *SkipError
	require.ErrorAs(t, err, &skip)
}

func TestBuildPlanDeactivateAddsSuffixToExistingUsername(t *testing.T) {
	contact := contactFixture(campai.StatusHasLeft)
	user := userFixture()
	op := SyncOperation{
		Contact: contact,
		User:    user,
		Groups:  []keycloak.Group{defaultGroup},
		Actions: Diff(contact, user, []keycloak.Group{defaultGroup}, defaultGroup.ID),
	}

	plan, err := BuildPlan(context.Background(), op, noneTaken)
	require.NoError(t, err)

	assert.Equal(t, "jane.doe"+NoMemberSuffix, plan.Fields["username"])
	assert.Equal(t, false, plan.Fields["enabled"])
	assert.True(t, plan.RemoveAllGroups)
	assert.False(t, plan.AddDefaultGroup)
	assert.NotContains(t, plan.Fields, "email", "unflagged fields must not be patched")
	assert.NotContains(t, plan.Fields, "firstName")
}

func TestBuildPlanActivateRemovesSuffix(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	user := userFixture()
	user.Enabled = false
	user.Username = "jane.doe" + NoMemberSuffix
	op := SyncOperation{
		Contact: contact,
		User:    user,
		Actions: Diff(contact, user, nil, defaultGroup.ID),
	}

	plan, err := BuildPlan(context.Background(), op, noneTaken)
	require.NoError(t, err)

	assert.Equal(t, "jane.doe", plan.Fields["username"])
	assert.Equal(t, true, plan.Fields["enabled"])
	assert.True(t, plan.AddDefaultGroup)
}

func TestBuildPlanClearsEmailWhenSourceHasNone(t *testing.T) {
	contact := contactFixture(campai.StatusHasLeft)
	contact.Communication.Email = ""
	user := userFixture()
	op := SyncOperation{
		Contact: contact,
		User:    user,
		Actions: Diff(contact, user, nil, defaultGroup.ID),
	}

	plan, err := BuildPlan(context.Background(), op, noneTaken)
	require.NoError(t, err)

	v, present := plan.Fields["email"]
	require.True(t, present)
	assert.Nil(t, v)
}

func TestBuildPlanPreservesForeignAttributes(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	user := userFixture()
	user.Attributes = map[string][]string{"locale": {"de"}}
	op := SyncOperation{
		Contact: contact,
		User:    user,
		Groups:  []keycloak.Group{defaultGroup},
		Actions: Diff(contact, user, []keycloak.Group{defaultGroup}, defaultGroup.ID),
	}
	require.True(t, op.Actions.Has(ActionAddCampaiID))

	plan, err := BuildPlan(context.Background(), op, noneTaken)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"locale":          {"de"},
		AttributeCampaiID: {"contact-1"},
	}, plan.Fields["attributes"])
}

func TestBuildPlanProbeErrorPropagates(t *testing.T) {
	contact := contactFixture(campai.StatusIsActive)
	op := SyncOperation{Contact: contact, Actions: ActionCreate}

	probeErr := errors.New("store unavailable")
	_, err := BuildPlan(context.Background(), op, func(_ context.Context, _ string) (bool, error) {
		return false, probeErr
	})
	require.ErrorIs(t, err, probeErr)
}
