package bankvault

import (
	"context"
	"sort"
	"sync"

	"grantvault/internal/fault"
)

// MemoryRepo is an in-memory Repository used in tests, including the
// migration runner's.
type MemoryRepo struct {
	mu       sync.Mutex
	accounts map[string]Account

	// Upserts counts writes, so dry-run tests can assert zero.
	Upserts int

	// FailUpsertFor makes Upsert fail for the given user ids.
	FailUpsertFor map[string]error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{accounts: make(map[string]Account)}
}

func (r *MemoryRepo) Get(_ context.Context, userID string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return Account{}, fault.ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailUpsertFor[a.UserID]; ok {
		return err
	}
	r.Upserts++
	r.accounts[a.UserID] = a
	return nil
}

func (r *MemoryRepo) SelectMissingEnvelopes(_ context.Context, afterUserID string, limit int) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Account
	for _, id := range ids {
		if id <= afterUserID {
			continue
		}
		a := r.accounts[id]
		if !a.NeedsMigration() {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Seed stores an account directly, bypassing the service.
func (r *MemoryRepo) Seed(a Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.UserID] = a
}
