package membersync

import "strings"

// Action is a set of independent change flags computed for one
// (contact, account) pair. Flags are orthogonal and may be combined;
// ActionCreate and ActionDeactivate are produced on disjoint branches of
// the diff and are therefore never combined.
type Action uint16

const (
	ActionCreate Action = 1 << iota
	ActionActivate
	ActionDeactivate
	ActionUpdateEmail
	ActionUpdateFirstName
	ActionUpdateLastName
	ActionAddDefaultGroup
	ActionRemoveAllGroups
	ActionAddCampaiID
	ActionRemoveNoMemberSuffix
	ActionAddNoMemberSuffix
	ActionSetEmailVerified
)

// NoAction is the empty flag set; pairs that diff to NoAction are not
// queued for execution.
const NoAction Action = 0

// updateActions masks the flags that describe field-level updates, as
// opposed to the create/activate/deactivate state transitions.
const updateActions = ^(ActionCreate | ActionActivate | ActionDeactivate)

var actionNames = []struct {
	flag Action
	name string
}{
	{ActionCreate, "create"},
	{ActionActivate, "activate"},
	{ActionDeactivate, "deactivate"},
	{ActionUpdateEmail, "update-email"},
	{ActionUpdateFirstName, "update-first-name"},
	{ActionUpdateLastName, "update-last-name"},
	{ActionAddDefaultGroup, "add-default-group"},
	{ActionRemoveAllGroups, "remove-all-groups"},
	{ActionAddCampaiID, "add-campai-id"},
	{ActionRemoveNoMemberSuffix, "remove-nomember-suffix"},
	{ActionAddNoMemberSuffix, "add-nomember-suffix"},
	{ActionSetEmailVerified, "set-email-verified"},
}

// Has reports whether all flags in mask are set.
func (a Action) Has(mask Action) bool {
	return a&mask == mask
}

// Updates returns the field-level update flags of the set.
func (a Action) Updates() Action {
	return a & updateActions
}

func (a Action) String() string {
	if a == NoAction {
		return "none"
	}
	var names []string
	for _, an := range actionNames {
		if a.Has(an.flag) {
			names = append(names, an.name)
		}
	}
	return strings.Join(names, "|")
}
