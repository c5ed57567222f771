package membersync

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/keycloak"
)

// SourceRegistry is the subset of the Campai API the run consumes.
// *campai.Client implements it.
type SourceRegistry interface {
	Organisations(ctx context.Context, filter campai.Filter) ([]campai.Organisation, error)
	Contacts(ctx context.Context, organisationID string, filter campai.Filter, page campai.Page) ([]campai.Contact, error)
}

// Options configure one reconciliation run.
type Options struct {
	// OrganisationName selects the Campai organisation to sync; it must
	// match exactly one organisation.
	OrganisationName string

	// DefaultGroupName names the Keycloak group active members belong to;
	// it must match exactly one group.
	DefaultGroupName string

	// AutoApply skips the interactive confirmation.
	AutoApply bool

	// CacheTo, when set, writes the deduplicated contact set to this path
	// after fetching. CacheFrom, when set, loads the contact set from this
	// path instead of fetching from Campai.
	CacheTo   string
	CacheFrom string

	// Confirm is consulted before applying when AutoApply is unset.
	Confirm func(ctx context.Context) (bool, error)
}

// Runner drives a full reconciliation run: fetch and deduplicate, resolve,
// diff, preview, confirm, execute.
type Runner struct {
	source SourceRegistry
	store  IdentityStore
	out    io.Writer
	log    *zap.Logger
}

// NewRunner returns a Runner reading from source and writing to store.
// Previews and outcome reports are written to out.
func NewRunner(source SourceRegistry, store IdentityStore, out io.Writer, log *zap.Logger) *Runner {
	return &Runner{source: source, store: store, out: out, log: log}
}

// Run performs one reconciliation pass. Precondition failures (ambiguous
// organisation or default group) abort before any mutation. Per-record
// failures are contained by the executor and land in the Report.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	organisations, err := r.source.Organisations(ctx, campai.Filter{"name": opts.OrganisationName})
	if err != nil {
		return nil, err
	}
	if len(organisations) != 1 {
		return nil, fmt.Errorf("expected to find one organisation named %q, found %d", opts.OrganisationName, len(organisations))
	}
	organisation := organisations[0]
	r.log.Info("found organisation", zap.String("name", organisation.Name), zap.String("id", organisation.ID))

	groups, err := r.store.GroupsByName(ctx, opts.DefaultGroupName)
	if err != nil {
		return nil, err
	}
	if len(groups) != 1 {
		return nil, fmt.Errorf("expected to find one Keycloak group named %q, found %d", opts.DefaultGroupName, len(groups))
	}
	defaultGroup := groups[0]
	r.log.Info("found default group", zap.String("name", defaultGroup.Name), zap.String("id", defaultGroup.ID.String()))

	var contacts []campai.Contact
	if opts.CacheFrom != "" {
		if contacts, err = ReadContactCache(opts.CacheFrom); err != nil {
			return nil, err
		}
		r.log.Info("loaded contacts from cache", zap.String("path", opts.CacheFrom), zap.Int("count", len(contacts)))
	} else {
		r.log.Info("fetching contacts from Campai")
		fetch := func(ctx context.Context, page campai.Page) ([]campai.Contact, error) {
			return r.source.Contacts(ctx, organisation.ID, nil, page)
		}
		if contacts, err = FetchContacts(ctx, fetch, campai.DefaultPageLimit, r.log); err != nil {
			return nil, err
		}
		if opts.CacheTo != "" {
			if err = WriteContactCache(opts.CacheTo, contacts); err != nil {
				return nil, err
			}
		}
	}
	r.log.Info("checking necessary sync operations", zap.Int("contacts", len(contacts)))

	var queue []SyncOperation
	for _, contact := range contacts {
		user, err := r.resolveUser(ctx, contact)
		if err != nil {
			return nil, err
		}
		var userGroups []keycloak.Group
		if user != nil {
			if userGroups, err = r.store.UserGroups(ctx, user.ID); err != nil {
				return nil, err
			}
		}
		actions := Diff(contact, user, userGroups, defaultGroup.ID)
		if actions == NoAction {
			continue
		}
		queue = append(queue, SyncOperation{Contact: contact, User: user, Groups: userGroups, Actions: actions})
	}

	r.preview(queue)

	if len(queue) == 0 {
		return &Report{}, nil
	}

	if !opts.AutoApply {
		if opts.Confirm == nil {
			return nil, fmt.Errorf("confirmation required but no prompt available; use auto-apply for unattended runs")
		}
		ok, err := opts.Confirm(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("aborted by operator")
		}
	}

	r.log.Info("starting sync", zap.Int("operations", len(queue)))
	report := NewExecutor(r.store, defaultGroup.ID, r.log).Execute(ctx, queue)
	report.Print(r.out)
	return report, nil
}

// resolveUser maps a contact to at most one Keycloak account. The stamped
// campai-id attribute is authoritative; the e-mail lookup is only a
// fallback for first-time linkage. Ambiguous lookups resolve to not-found
// with a warning; the engine never guesses.
func (r *Runner) resolveUser(ctx context.Context, contact campai.Contact) (*keycloak.User, error) {
	users, err := r.store.UsersByAttribute(ctx, AttributeCampaiID, contact.ID)
	if err != nil {
		return nil, err
	}
	if user := r.single(users, AttributeCampaiID+":"+contact.ID); user != nil {
		return user, nil
	}

	email := contact.Email()
	if email == "" {
		return nil, nil
	}
	if users, err = r.store.UsersByEmail(ctx, email); err != nil {
		return nil, err
	}
	return r.single(users, "email="+email), nil
}

func (r *Runner) single(users []*keycloak.User, query string) *keycloak.User {
	if len(users) == 1 {
		return users[0]
	}
	if len(users) > 1 {
		r.log.Warn("query returned more than one result while expecting to get at most one",
			zap.String("query", query), zap.Int("count", len(users)))
	}
	return nil
}

var (
	markCreate     = text.Colors{text.Bold, text.FgBlue}
	markActivate   = text.Colors{text.Bold, text.FgGreen}
	markDeactivate = text.Colors{text.Bold, text.FgRed}
	markUpdate     = text.Colors{text.Bold, text.FgYellow}
)

// preview prints a human-readable description of every planned operation
// before anything is applied.
func (r *Runner) preview(queue []SyncOperation) {
	for _, op := range queue {
		label := describeContact(op.Contact)
		if op.Actions.Has(ActionCreate) {
			fmt.Fprintf(r.out, "%s User for %s will be created\n", markCreate.Sprint("[*]"), label)
		}
		if op.Actions.Has(ActionActivate) {
			fmt.Fprintf(r.out, "%s User for %s will be activated\n", markActivate.Sprint("[*]"), label)
		}
		if op.Actions.Has(ActionDeactivate) {
			fmt.Fprintf(r.out, "%s User for %s will be deactivated\n", markDeactivate.Sprint("[-]"), label)
		}
		if updates := op.Actions.Updates(); updates != NoAction {
			fmt.Fprintf(r.out, "%s User for %s will be updated (%s)\n", markUpdate.Sprint("[~]"), label, updates)
		}
	}
	if len(queue) == 0 {
		fmt.Fprintf(r.out, "%s No users need to be updated, we're all good :)\n", markActivate.Sprint("[*]"))
	}
}

func describeContact(c campai.Contact) string {
	return fmt.Sprintf("%s %s (ID: %s, email: %s)",
		c.Personal.PersonFirstName, c.Personal.PersonLastName, c.ID, c.Email())
}
