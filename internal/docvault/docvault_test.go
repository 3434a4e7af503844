package docvault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantvault/internal/access"
	"grantvault/internal/audit"
	"grantvault/internal/fault"
	"grantvault/internal/vaultcrypto"
)

type memoryDirectory map[string][]access.Membership

func (d memoryDirectory) Memberships(_ context.Context, userID string) ([]access.Membership, error) {
	return d[userID], nil
}

type fixture struct {
	docs     *MemoryRepo
	blobs    *MemoryBlobStore
	engine   *vaultcrypto.Engine
	auditLog *audit.MemoryRepo
	gateway  *Gateway
	verifier *Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := vaultcrypto.NewEngine([]byte("Vg7kLm2PqXs9RtWz4YbNc6DfHj8eAu3S"))
	require.NoError(t, err)

	dir := memoryDirectory{
		"root":      {{TenantID: "", Role: access.RoleSystemAdmin}},
		"manager1":  {{TenantID: "t1", Role: access.RoleManager}},
		"reviewer1": {{TenantID: "t1", Role: access.RoleReviewer}},
		"scholar1":  {{TenantID: "t1", Role: access.RoleScholar}},
	}
	resolver := access.NewResolver(dir)

	docs := NewMemoryRepo()
	blobs := NewMemoryBlobStore()
	auditLog := audit.NewMemoryRepo()
	rec := audit.NewRecorder(auditLog)

	return &fixture{
		docs:     docs,
		blobs:    blobs,
		engine:   engine,
		auditLog: auditLog,
		gateway:  NewGateway(docs, blobs, resolver, engine, rec),
		verifier: NewVerifier(docs, blobs, resolver, engine, rec),
	}
}

func hexSHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// seedEncrypted stores an encrypted document and returns the plaintext.
func (f *fixture) seedEncrypted(t *testing.T, id string) []byte {
	t.Helper()
	plain := []byte("%PDF-1.4 monthly activity report for " + id)
	blob, err := f.engine.EncryptBytes(plain)
	require.NoError(t, err)
	path := "reports/" + id + ".pdf" + EncryptedSuffix
	require.NoError(t, f.blobs.Put(context.Background(), path, blob))
	f.docs.Seed(Document{
		ID:          id,
		OwnerUserID: "scholar1",
		TenantID:    "t1",
		StoragePath: path,
		FileName:    id + ".pdf",
		ContentType: "application/pdf",
		SHA256:      hexSHA256(plain),
	})
	return plain
}

func (f *fixture) seedLegacy(t *testing.T, id string) []byte {
	t.Helper()
	plain := []byte("legacy stored report " + id)
	path := "reports/" + id + ".pdf"
	require.NoError(t, f.blobs.Put(context.Background(), path, plain))
	f.docs.Seed(Document{
		ID:          id,
		OwnerUserID: "scholar1",
		TenantID:    "t1",
		StoragePath: path,
		FileName:    id + ".pdf",
		ContentType: "application/pdf",
		SHA256:      hexSHA256(plain),
	})
	return plain
}

func TestGateway_StreamsDecryptedBytes(t *testing.T) {
	f := newFixture(t)
	plain := f.seedEncrypted(t, "doc1")

	res, err := f.gateway.Fetch(context.Background(), "scholar1", "doc1", ActionDownload)
	require.NoError(t, err)
	assert.Equal(t, plain, res.Bytes)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, strings.HasPrefix(res.Disposition, "attachment"))
	assert.Empty(t, res.RedirectURL)

	res, err = f.gateway.Fetch(context.Background(), "manager1", "doc1", ActionView)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Disposition, "inline"))
}

func TestGateway_LegacyDocumentRedirects(t *testing.T) {
	f := newFixture(t)
	f.seedLegacy(t, "old1")

	res, err := f.gateway.Fetch(context.Background(), "scholar1", "old1", ActionView)
	require.NoError(t, err)
	assert.Empty(t, res.Bytes)
	assert.NotEmpty(t, res.RedirectURL)
}

func TestGateway_EveryFetchIsAudited(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")
	f.seedLegacy(t, "old1")

	_, err := f.gateway.Fetch(context.Background(), "scholar1", "doc1", ActionView)
	require.NoError(t, err)
	_, err = f.gateway.Fetch(context.Background(), "scholar1", "old1", ActionView)
	require.NoError(t, err)

	evs := f.auditLog.Events()
	require.Len(t, evs, 2, "self fetches are audited too")
	assert.Equal(t, "stream", evs[0].Detail["branch"])
	assert.Equal(t, "signed-url", evs[1].Detail["branch"])
}

func TestGateway_Authorization(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")

	// Reviewer: documents have no masked form.
	_, err := f.gateway.Fetch(context.Background(), "reviewer1", "doc1", ActionView)
	assert.ErrorIs(t, err, fault.ErrForbidden)

	// System admin passes.
	_, err = f.gateway.Fetch(context.Background(), "root", "doc1", ActionView)
	assert.NoError(t, err)
}

func TestGateway_TamperedBlobIsFatal(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")

	blob, err := f.blobs.Get(context.Background(), "reports/doc1.pdf"+EncryptedSuffix)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0x01
	require.NoError(t, f.blobs.Put(context.Background(), "reports/doc1.pdf"+EncryptedSuffix, blob))

	_, err = f.gateway.Fetch(context.Background(), "scholar1", "doc1", ActionView)
	assert.ErrorIs(t, err, fault.ErrIntegrity)
}

func TestGateway_RejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")

	_, err := f.gateway.Fetch(context.Background(), "scholar1", "doc1", "delete")
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestVerifier_ValidAndTampered(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")

	rep, err := f.verifier.Verify(context.Background(), "manager1", "doc1")
	require.NoError(t, err)
	assert.Equal(t, StatusValid, rep.Status)
	assert.Equal(t, rep.ExpectedHash, rep.ComputedHash)

	// Re-encrypt different content at the same path: hash mismatch.
	other, err := f.engine.EncryptBytes([]byte("substituted content"))
	require.NoError(t, err)
	require.NoError(t, f.blobs.Put(context.Background(), "reports/doc1.pdf"+EncryptedSuffix, other))

	rep, err = f.verifier.Verify(context.Background(), "manager1", "doc1")
	require.NoError(t, err)
	assert.Equal(t, StatusTampered, rep.Status)
	assert.NotEqual(t, rep.ExpectedHash, rep.ComputedHash)
}

func TestVerifier_WorksForLegacyDocuments(t *testing.T) {
	f := newFixture(t)
	f.seedLegacy(t, "old1")

	rep, err := f.verifier.Verify(context.Background(), "root", "old1")
	require.NoError(t, err)
	assert.Equal(t, StatusValid, rep.Status)
}

func TestVerifier_PrivilegedOnly(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")

	// Even the owner cannot run integrity verification.
	_, err := f.verifier.Verify(context.Background(), "scholar1", "doc1")
	assert.ErrorIs(t, err, fault.ErrForbidden)
	_, err = f.verifier.Verify(context.Background(), "reviewer1", "doc1")
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

func TestVerifier_AuditsBothHashes(t *testing.T) {
	f := newFixture(t)
	f.seedEncrypted(t, "doc1")

	rep, err := f.verifier.Verify(context.Background(), "manager1", "doc1")
	require.NoError(t, err)

	evs := f.auditLog.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, audit.ActionVerify, evs[0].Action)
	assert.Equal(t, rep.ComputedHash, evs[0].Detail["computed_hash"])
	assert.Equal(t, rep.ExpectedHash, evs[0].Detail["expected_hash"])
}
