package membersync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report collects the per-record outcomes of one execution pass.
type Report struct {
	Created     []string
	Updated     []string
	Deactivated []string
	Skipped     []string
	Failed      []string
}

// Executor applies queued sync operations against the identity store.
type Executor struct {
	store          IdentityStore
	defaultGroupID uuid.UUID
	log            *zap.Logger
}

// NewExecutor returns an Executor writing to store. defaultGroupID is the
// group newly active members are added to.
func NewExecutor(store IdentityStore, defaultGroupID uuid.UUID, log *zap.Logger) *Executor {
	return &Executor{store: store, defaultGroupID: defaultGroupID, log: log}
}

// Execute plans and applies each operation in input order. A failure in
// one operation is logged and recorded; it never aborts the batch. The
// executor does not retry.
func (e *Executor) Execute(ctx context.Context, queue []SyncOperation) *Report {
	report := &Report{}

	for _, op := range queue {
		if op.Actions == NoAction {
			continue
		}
		label := describeContact(op.Contact)

		plan, err := BuildPlan(ctx, op, e.usernameTaken)
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				e.log.Warn("skipping contact", zap.String("contact", op.Contact.ID), zap.String("reason", skip.Reason))
				report.Skipped = append(report.Skipped, label)
				continue
			}
			e.log.Error("planning failed", zap.String("contact", op.Contact.ID), zap.Error(err))
			report.Failed = append(report.Failed, label)
			continue
		}

		if err := e.apply(ctx, plan); err != nil {
			e.log.Error("sync failed", zap.String("contact", op.Contact.ID), zap.Error(err))
			report.Failed = append(report.Failed, label)
			continue
		}

		switch {
		case op.Actions.Has(ActionCreate):
			report.Created = append(report.Created, label)
		case op.Actions.Has(ActionDeactivate):
			report.Deactivated = append(report.Deactivated, label)
		default:
			report.Updated = append(report.Updated, label)
		}
	}

	return report
}

// apply runs one plan: the account mutation first, then the group
// mutations, which depend on the account id resolved either by the create
// or by the original lookup.
func (e *Executor) apply(ctx context.Context, plan *Plan) error {
	var userID uuid.UUID

	if plan.Op.Actions.Has(ActionCreate) {
		id, err := e.store.CreateUser(ctx, plan.Fields)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		userID = id
	} else {
		if err := e.store.UpdateUser(ctx, plan.Op.User, plan.Fields); err != nil {
			return fmt.Errorf("updating user: %w", err)
		}
		userID = plan.Op.User.ID
	}

	if plan.AddDefaultGroup {
		if err := e.store.AddUserToGroup(ctx, userID, e.defaultGroupID); err != nil {
			return fmt.Errorf("adding user to default group: %w", err)
		}
	}

	if plan.RemoveAllGroups {
		groups, err := e.store.UserGroups(ctx, userID)
		if err != nil {
			return fmt.Errorf("listing user groups: %w", err)
		}
		for _, group := range groups {
			if err := e.store.RemoveUserFromGroup(ctx, userID, group.ID); err != nil {
				return fmt.Errorf("removing user from group %q: %w", group.Name, err)
			}
		}
	}

	return nil
}

func (e *Executor) usernameTaken(ctx context.Context, username string) (bool, error) {
	users, err := e.store.UsersByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}
