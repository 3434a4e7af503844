// Package audit appends immutable records of sensitive reads and writes.
// The contract is write-only: audit consumption happens outside this core.
package audit

import (
	"context"
	"time"

	"grantvault/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// Append-only: there are no update or delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Recorder writes audit events best-effort. Record never returns an error;
// storage failures are logged locally and swallowed so the primary
// operation is never blocked.
type Recorder struct {
	repo  Repository
	clock func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, clock: time.Now}
}

// Record stamps and appends one event. Exactly one call is made per
// successful privileged operation; callers never retry.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil || r.repo == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = r.clock().UTC()

	if err := r.repo.Append(ctx, e); err != nil {
		logger.From(ctx).ErrorContext(ctx, "audit append failed",
			"err", err,
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"actor_id", e.ActorID,
		)
	}
}
