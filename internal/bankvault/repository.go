package bankvault

import (
	"context"
	"database/sql"
	"errors"

	"grantvault/internal/fault"
	"grantvault/internal/vaultcrypto"
)

// Repository is the row-store contract for bank accounts: point lookup and
// full upsert keyed by the owning user, plus cursor paging over rows that
// still lack encrypted envelopes (for the migration runner).
type Repository interface {
	Get(ctx context.Context, userID string) (Account, error)
	Upsert(ctx context.Context, a Account) error
	SelectMissingEnvelopes(ctx context.Context, afterUserID string, limit int) ([]Account, error)
}

// PostgresRepo assumes a bank_accounts table with one row per user_id and
// the three *_enc/*_plain column pairs for agency, number and pix key.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const accountColumns = `
user_id, tenant_id, bank_code, account_type, pix_key_type,
agency_enc, agency_plain, agency_masked,
number_enc, number_plain, number_masked,
pix_key_enc, pix_key_plain, pix_key_masked,
bank_code_masked, last4,
validation_status, validated_by, validated_at, locked_for_edit,
created_at, updated_at`

// scanAccount tolerates NULLs in every column added after the original
// table: rows that predate the encryption rollout hold NULL, not '', in the
// *_enc, *_masked and validated_by columns.
func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	var (
		pixKeyType                         sql.NullString
		agencyEnc, agencyPlain, agencyMask sql.NullString
		numberEnc, numberPlain, numberMask sql.NullString
		pixEnc, pixPlain, pixMask          sql.NullString
		bankCodeMasked, last4, validatedBy sql.NullString
		validatedAt                        sql.NullTime
	)
	err := row.Scan(
		&a.UserID, &a.TenantID, &a.BankCode, &a.AccountType, &pixKeyType,
		&agencyEnc, &agencyPlain, &agencyMask,
		&numberEnc, &numberPlain, &numberMask,
		&pixEnc, &pixPlain, &pixMask,
		&bankCodeMasked, &last4,
		&a.ValidationStatus, &validatedBy, &validatedAt, &a.LockedForEdit,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}

	a.PixKeyType = pixKeyType.String
	a.Agency = Field{Stored: vaultcrypto.StoredValue{Envelope: agencyEnc.String, Legacy: agencyPlain.String}, Masked: agencyMask.String}
	a.Number = Field{Stored: vaultcrypto.StoredValue{Envelope: numberEnc.String, Legacy: numberPlain.String}, Masked: numberMask.String}
	a.PixKey = Field{Stored: vaultcrypto.StoredValue{Envelope: pixEnc.String, Legacy: pixPlain.String}, Masked: pixMask.String}
	a.BankCodeMasked = bankCodeMasked.String
	a.Last4 = last4.String
	a.ValidatedBy = validatedBy.String
	if validatedAt.Valid {
		t := validatedAt.Time
		a.ValidatedAt = &t
	}
	return a, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Account, error) {
	q := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE user_id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, fault.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, a Account) error {
	const q = `
INSERT INTO bank_accounts (
  user_id, tenant_id, bank_code, account_type, pix_key_type,
  agency_enc, agency_plain, agency_masked,
  number_enc, number_plain, number_masked,
  pix_key_enc, pix_key_plain, pix_key_masked,
  bank_code_masked, last4,
  validation_status, validated_by, validated_at, locked_for_edit,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22
)
ON CONFLICT (user_id) DO UPDATE SET
  tenant_id = EXCLUDED.tenant_id,
  bank_code = EXCLUDED.bank_code,
  account_type = EXCLUDED.account_type,
  pix_key_type = EXCLUDED.pix_key_type,
  agency_enc = EXCLUDED.agency_enc,
  agency_plain = EXCLUDED.agency_plain,
  agency_masked = EXCLUDED.agency_masked,
  number_enc = EXCLUDED.number_enc,
  number_plain = EXCLUDED.number_plain,
  number_masked = EXCLUDED.number_masked,
  pix_key_enc = EXCLUDED.pix_key_enc,
  pix_key_plain = EXCLUDED.pix_key_plain,
  pix_key_masked = EXCLUDED.pix_key_masked,
  bank_code_masked = EXCLUDED.bank_code_masked,
  last4 = EXCLUDED.last4,
  validation_status = EXCLUDED.validation_status,
  validated_by = EXCLUDED.validated_by,
  validated_at = EXCLUDED.validated_at,
  locked_for_edit = EXCLUDED.locked_for_edit,
  updated_at = EXCLUDED.updated_at
`
	var validatedAt sql.NullTime
	if a.ValidatedAt != nil {
		validatedAt = sql.NullTime{Time: *a.ValidatedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		a.UserID, a.TenantID, a.BankCode, a.AccountType, a.PixKeyType,
		a.Agency.Stored.Envelope, a.Agency.Stored.Legacy, a.Agency.Masked,
		a.Number.Stored.Envelope, a.Number.Stored.Legacy, a.Number.Masked,
		a.PixKey.Stored.Envelope, a.PixKey.Stored.Legacy, a.PixKey.Masked,
		a.BankCodeMasked, a.Last4,
		a.ValidationStatus, a.ValidatedBy, validatedAt, a.LockedForEdit,
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Pre-rollout rows hold NULL, not '', in the *_enc columns; the predicate
// must catch both.
var missingEnvelopesQuery = `
SELECT ` + accountColumns + `
FROM bank_accounts
WHERE user_id > $1
  AND (
    ((agency_enc IS NULL OR agency_enc = '') AND COALESCE(agency_plain, '') <> '') OR
    ((number_enc IS NULL OR number_enc = '') AND COALESCE(number_plain, '') <> '') OR
    ((pix_key_enc IS NULL OR pix_key_enc = '') AND COALESCE(pix_key_plain, '') <> '')
  )
ORDER BY user_id
LIMIT $2
`

func (r *PostgresRepo) SelectMissingEnvelopes(ctx context.Context, afterUserID string, limit int) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, missingEnvelopesQuery, afterUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
