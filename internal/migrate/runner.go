// Package migrate backfills encrypted envelopes for bank-account rows that
// predate field encryption. The runner is idempotent: rows that already
// carry all three envelopes never qualify again.
package migrate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"grantvault/internal/audit"
	"grantvault/internal/bankvault"
	"grantvault/internal/fault"
	"grantvault/internal/masking"
	"grantvault/internal/vaultcrypto"
	"grantvault/pkg/logger"
)

const defaultBatchSize = 100

type Runner struct {
	repo   bankvault.Repository
	engine *vaultcrypto.Engine
	rec    *audit.Recorder

	// BatchSize bounds memory per round; batches run sequentially.
	BatchSize int

	clock func() time.Time
}

func NewRunner(repo bankvault.Repository, engine *vaultcrypto.Engine, rec *audit.Recorder) *Runner {
	return &Runner{repo: repo, engine: engine, rec: rec, BatchSize: defaultBatchSize, clock: time.Now}
}

type Options struct {
	// DryRun reports what would change without writing. It is the default
	// at the HTTP surface; real writes require an explicit opt-out.
	DryRun bool
}

type Summary struct {
	Total    int      `json:"total"`
	Migrated int      `json:"migrated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	DryRun   bool     `json:"dry_run"`
}

// Run pages through qualifying rows with a user-id cursor, fills in the
// missing envelopes plus the derived fields, and upserts each row. Per-row
// failures are collected and do not abort the batch.
func (r *Runner) Run(ctx context.Context, actorID string, opts Options) (Summary, error) {
	sum := Summary{DryRun: opts.DryRun}
	cursor := ""

	for {
		batch, err := r.repo.SelectMissingEnvelopes(ctx, cursor, r.BatchSize)
		if err != nil {
			return sum, fmt.Errorf("%w: select batch: %v", fault.ErrInternal, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, a := range batch {
			cursor = a.UserID
			sum.Total++

			migrated, err := r.migrateRow(ctx, a, opts.DryRun)
			if err != nil {
				sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", a.UserID, err))
				continue
			}
			if migrated {
				sum.Migrated++
			} else {
				sum.Skipped++
			}
		}

		if len(batch) < r.BatchSize {
			break
		}
	}

	if !opts.DryRun && sum.Migrated > 0 {
		r.rec.Record(ctx, audit.Event{
			ActorID:    actorID,
			Action:     audit.ActionMigrate,
			EntityType: audit.EntityMigration,
			EntityID:   "bank-encryption",
			Detail: map[string]string{
				"total":    strconv.Itoa(sum.Total),
				"migrated": strconv.Itoa(sum.Migrated),
				"skipped":  strconv.Itoa(sum.Skipped),
				"errors":   strconv.Itoa(len(sum.Errors)),
			},
		})
	}

	logger.From(ctx).InfoContext(ctx, "bank encryption backfill finished",
		"dry_run", opts.DryRun,
		"total", sum.Total,
		"migrated", sum.Migrated,
		"skipped", sum.Skipped,
		"errors", len(sum.Errors),
	)
	return sum, nil
}

func (r *Runner) migrateRow(ctx context.Context, a bankvault.Account, dryRun bool) (bool, error) {
	changed := false

	seal := func(f *bankvault.Field, mask func(string) string) error {
		if !f.Stored.NeedsMigration() {
			return nil
		}
		env, err := r.engine.EncryptString(f.Stored.Legacy)
		if err != nil {
			return err
		}
		f.Stored.Envelope = env
		f.Masked = mask(f.Stored.Legacy)
		changed = true
		return nil
	}

	if err := seal(&a.Agency, masking.Agency); err != nil {
		return false, err
	}
	if err := seal(&a.Number, masking.AccountNumber); err != nil {
		return false, err
	}
	if err := seal(&a.PixKey, masking.PixKey); err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	// Derived fields follow the same plaintext the envelopes captured.
	if a.Number.Stored.Legacy != "" {
		a.Last4 = masking.Last4(a.Number.Stored.Legacy)
	}
	a.BankCodeMasked = masking.BankCode(a.BankCode)

	if dryRun {
		return true, nil
	}

	a.UpdatedAt = r.clock().UTC()
	if err := r.repo.Upsert(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}
