package piivault

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"grantvault/internal/fault"
	"grantvault/internal/vaultcrypto"
)

type Repository interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, p Profile) error
}

// PostgresRepo stores profiles in pii_profiles, one row per user_id.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT user_id, tenant_id,
       national_id_enc, national_id_plain, national_id_masked,
       phone_enc, phone_plain, phone_masked,
       created_at, updated_at
FROM pii_profiles
WHERE user_id = $1
`
	// Rows that predate the encryption rollout hold NULL in the *_enc and
	// *_masked columns.
	var p Profile
	var (
		natEnc, natPlain, natMask       sql.NullString
		phoneEnc, phonePlain, phoneMask sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID, &p.TenantID,
		&natEnc, &natPlain, &natMask,
		&phoneEnc, &phonePlain, &phoneMask,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, fault.ErrNotFound
		}
		return Profile{}, err
	}
	p.NationalID = Field{Stored: vaultcrypto.StoredValue{Envelope: natEnc.String, Legacy: natPlain.String}, Masked: natMask.String}
	p.Phone = Field{Stored: vaultcrypto.StoredValue{Envelope: phoneEnc.String, Legacy: phonePlain.String}, Masked: phoneMask.String}
	return p, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, p Profile) error {
	const q = `
INSERT INTO pii_profiles (
  user_id, tenant_id,
  national_id_enc, national_id_plain, national_id_masked,
  phone_enc, phone_plain, phone_masked,
  created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (user_id) DO UPDATE SET
  tenant_id = EXCLUDED.tenant_id,
  national_id_enc = EXCLUDED.national_id_enc,
  national_id_plain = EXCLUDED.national_id_plain,
  national_id_masked = EXCLUDED.national_id_masked,
  phone_enc = EXCLUDED.phone_enc,
  phone_plain = EXCLUDED.phone_plain,
  phone_masked = EXCLUDED.phone_masked,
  updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		p.UserID, p.TenantID,
		p.NationalID.Stored.Envelope, p.NationalID.Stored.Legacy, p.NationalID.Masked,
		p.Phone.Stored.Envelope, p.Phone.Stored.Legacy, p.Phone.Masked,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// MemoryRepo is the in-memory Repository used in tests.
type MemoryRepo struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{profiles: make(map[string]Profile)}
}

func (r *MemoryRepo) Get(_ context.Context, userID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, fault.ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
	return nil
}

func (r *MemoryRepo) Seed(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
}
