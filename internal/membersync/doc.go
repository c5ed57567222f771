// Package membersync reconciles Campai membership records against user
// accounts in a Keycloak realm. One Run is a single batch pass: fetch and
// deduplicate the source records, resolve each to at most one account,
// diff the pair into a set of change flags, plan the mutations, and apply
// them. Re-running against the mutated realm converges to an empty plan.
package membersync

const (
	// AttributeCampaiID is the Keycloak user attribute that stamps the
	// Campai contact id onto an account for future lookups.
	AttributeCampaiID = "campai-id"

	// NoMemberSuffix marks the username of a deactivated former member.
	NoMemberSuffix = "_nomember"
)
