// Package docvault serves and verifies protected documents: the secure
// gateway decrypts on the fly behind the access/audit pipeline, and the
// verifier detects tampering against the hash recorded at generation time.
package docvault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"grantvault/internal/access"
	"grantvault/internal/audit"
	"grantvault/internal/fault"
	"grantvault/internal/vaultcrypto"
)

type VerifyStatus string

const (
	StatusValid    VerifyStatus = "VALID"
	StatusTampered VerifyStatus = "TAMPERED"
)

// Report is the outcome of one integrity check. Both hashes are disclosed;
// the caller is already privileged.
type Report struct {
	DocumentID   string       `json:"document_id"`
	Status       VerifyStatus `json:"status"`
	ComputedHash string       `json:"computed_hash"`
	ExpectedHash string       `json:"expected_hash"`
}

type Verifier struct {
	docs     Repository
	blobs    BlobStore
	resolver *access.Resolver
	engine   *vaultcrypto.Engine
	rec      *audit.Recorder
}

func NewVerifier(docs Repository, blobs BlobStore, resolver *access.Resolver, engine *vaultcrypto.Engine, rec *audit.Recorder) *Verifier {
	return &Verifier{docs: docs, blobs: blobs, resolver: resolver, engine: engine, rec: rec}
}

// Verify recomputes the document's content hash and compares it against the
// record captured at generation time. The hash always covers the decrypted
// bytes. A mismatch is reported, never auto-remediated; verification does
// not mutate anything. Decryption failure here is fatal, with no plaintext
// fallback.
func (v *Verifier) Verify(ctx context.Context, actorID, documentID string) (Report, error) {
	doc, err := v.docs.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return Report{}, fault.ErrNotFound
		}
		return Report{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	dec, err := v.resolver.Resolve(ctx, actorID, doc.OwnerUserID, doc.TenantID, access.ResourceDocument)
	if err != nil {
		return Report{}, err
	}
	// Oversight roles only; the owner cannot attest their own documents.
	if !dec.Privileged() {
		return Report{}, fault.ErrForbidden
	}

	blob, err := v.blobs.Get(ctx, doc.StoragePath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	plain := blob
	if doc.Encrypted() {
		plain, err = v.engine.DecryptBytes(blob)
		if err != nil {
			return Report{}, err
		}
	}

	sum := sha256.Sum256(plain)
	computed := hex.EncodeToString(sum[:])

	status := StatusValid
	if computed != doc.SHA256 {
		status = StatusTampered
	}

	v.rec.Record(ctx, audit.Event{
		ActorID:    actorID,
		ActorRole:  dec.Role,
		Action:     audit.ActionVerify,
		EntityType: audit.EntityDocument,
		EntityID:   doc.ID,
		TenantID:   doc.TenantID,
		Detail: map[string]string{
			"status":        string(status),
			"computed_hash": computed,
			"expected_hash": doc.SHA256,
		},
	})

	return Report{
		DocumentID:   doc.ID,
		Status:       status,
		ComputedHash: computed,
		ExpectedHash: doc.SHA256,
	}, nil
}
