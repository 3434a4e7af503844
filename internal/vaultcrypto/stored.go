package vaultcrypto

import (
	"errors"

	"grantvault/internal/fault"
)

// StoredValue is the on-row representation of one sensitive field during the
// migration window: the encrypted envelope and, for rows that predate
// encryption, a legacy plaintext column. Reads go through Open so the
// fallback branch exists in exactly one place.
type StoredValue struct {
	Envelope string
	Legacy   string
}

// Open returns the plaintext. The envelope wins when present and valid;
// when it is absent or fails to authenticate, the legacy plaintext column is
// returned instead so reads keep working mid-migration. The second return
// reports whether the legacy fallback was taken, so callers can log it.
func (v StoredValue) Open(e *Engine) (string, bool, error) {
	if v.Envelope == "" {
		if v.Legacy != "" {
			return v.Legacy, true, nil
		}
		return "", false, nil
	}

	plain, err := e.DecryptString(v.Envelope)
	if err != nil {
		if v.Legacy != "" && (errors.Is(err, fault.ErrIntegrity) || errors.Is(err, fault.ErrValidation)) {
			return v.Legacy, true, nil
		}
		return "", false, err
	}
	return plain, false, nil
}

// NeedsMigration reports whether the row still lacks an envelope for a
// value that exists in plaintext.
func (v StoredValue) NeedsMigration() bool {
	return v.Envelope == "" && v.Legacy != ""
}
