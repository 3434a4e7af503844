package bankvault

import (
	"time"

	"grantvault/internal/vaultcrypto"
)

// Account is a user's bank account row. Exactly one account per user.
//
// Invariants:
// - The encrypted and masked forms of a field always derive from the same
//   plaintext; they are never edited independently.
// - Writes are full replaces: every write recomputes all derived fields.
// - Rows are never hard-deleted.
//
// Agency, account number and PIX key are the three envelope-encrypted
// fields. The bank code is a short public institution code: it is stored as
// written but only ever displayed masked to low-privilege viewers. The
// legacy plaintext columns inside StoredValue exist for rows that predate
// encryption and are cleared on every new write.
type Account struct {
	UserID   string `json:"user_id" db:"user_id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	BankCode    string `json:"bank_code" db:"bank_code"`
	AccountType string `json:"account_type" db:"account_type"`
	PixKeyType  string `json:"pix_key_type" db:"pix_key_type"`

	Agency Field `json:"agency"`
	Number Field `json:"number"`
	PixKey Field `json:"pix_key"`

	BankCodeMasked string `json:"bank_code_masked" db:"bank_code_masked"`

	// Last4 is derived from the account number on every write.
	Last4 string `json:"last4" db:"last4"`

	ValidationStatus Status     `json:"validation_status" db:"validation_status"`
	ValidatedBy      string     `json:"validated_by,omitempty" db:"validated_by"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty" db:"validated_at"`

	// LockedForEdit is settable only by a validator; while set, owner edits
	// are rejected.
	LockedForEdit bool `json:"locked_for_edit" db:"locked_for_edit"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Field bundles the stored forms of one sensitive value.
type Field struct {
	Stored vaultcrypto.StoredValue `json:"-"`
	Masked string                  `json:"masked"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
)

// NeedsMigration reports whether any of the three encrypted-envelope
// columns is still missing for a value present in plaintext.
func (a Account) NeedsMigration() bool {
	return a.Agency.Stored.NeedsMigration() ||
		a.Number.Stored.NeedsMigration() ||
		a.PixKey.Stored.NeedsMigration()
}
