package piivault

import (
	"time"

	"grantvault/internal/vaultcrypto"
)

// Profile holds a user's personal identification fields. One row per user.
//
// The national id is immutable once first set; the phone is mutable. Both
// follow the encrypted/masked/legacy-plaintext pattern of the bank vault.
type Profile struct {
	UserID   string `json:"user_id" db:"user_id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	NationalID Field `json:"national_id"`
	Phone      Field `json:"phone"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Field struct {
	Stored vaultcrypto.StoredValue `json:"-"`
	Masked string                  `json:"masked"`
}

// HasValue reports whether the field holds anything, in either stored form.
func (f Field) HasValue() bool {
	return f.Stored.Envelope != "" || f.Stored.Legacy != ""
}
