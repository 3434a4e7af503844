package bankvault

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// legacyNullRow plays a row from before the encryption rollout: the *_enc,
// *_masked, pix_key_type and validated_by columns are all NULL and only the
// plaintext columns carry values. Destinations for NULL columns are left
// untouched, as a driver would.
type legacyNullRow struct{}

func (legacyNullRow) Scan(dest ...any) error {
	*(dest[0].(*string)) = "user-legacy"
	*(dest[1].(*string)) = "t1"
	*(dest[2].(*string)) = "001"
	*(dest[3].(*string)) = "corrente"
	*(dest[6].(*sql.NullString)) = sql.NullString{String: "4321", Valid: true}
	*(dest[9].(*sql.NullString)) = sql.NullString{String: "999988887", Valid: true}
	*(dest[16].(*Status)) = StatusPending
	*(dest[19].(*bool)) = false
	*(dest[20].(*time.Time)) = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	*(dest[21].(*time.Time)) = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return nil
}

func TestScanAccount_ToleratesNullLegacyColumns(t *testing.T) {
	a, err := scanAccount(legacyNullRow{})
	require.NoError(t, err)

	assert.Equal(t, "user-legacy", a.UserID)
	assert.Empty(t, a.PixKeyType)
	assert.Empty(t, a.Agency.Stored.Envelope)
	assert.Equal(t, "4321", a.Agency.Stored.Legacy)
	assert.Equal(t, "999988887", a.Number.Stored.Legacy)
	assert.Empty(t, a.ValidatedBy)
	assert.Nil(t, a.ValidatedAt)

	// These are exactly the rows the backfill must find.
	assert.True(t, a.Agency.Stored.NeedsMigration())
	assert.True(t, a.Number.Stored.NeedsMigration())
}

func TestSelectMissingEnvelopes_PredicateMatchesNullColumns(t *testing.T) {
	// The WHERE clause must treat a NULL *_enc column like an empty one, or
	// pre-rollout rows are invisible to the migration that targets them.
	for _, col := range []string{"agency_enc", "number_enc", "pix_key_enc"} {
		assert.Contains(t, missingEnvelopesQuery, col+" IS NULL OR "+col+" = ''")
	}
	for _, col := range []string{"agency_plain", "number_plain", "pix_key_plain"} {
		assert.Contains(t, missingEnvelopesQuery, "COALESCE("+col+", '') <> ''")
	}
	assert.True(t, strings.Contains(missingEnvelopesQuery, "ORDER BY user_id"))
}
