package docvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grantvault/internal/access"
	"grantvault/internal/audit"
	"grantvault/internal/fault"
	"grantvault/internal/vaultcrypto"
)

type FetchAction string

const (
	ActionView     FetchAction = "view"
	ActionDownload FetchAction = "download"
)

// signedURLTTL bounds the legacy redirect window; unencrypted documents are
// served by a short-lived presigned URL rather than streamed here.
const signedURLTTL = 60 * time.Second

// FetchResult is either plaintext bytes to stream or a redirect URL, never
// both. Streamed responses must carry no-store caching semantics.
type FetchResult struct {
	Bytes       []byte
	ContentType string
	Disposition string

	RedirectURL string
}

type Gateway struct {
	docs     Repository
	blobs    BlobStore
	resolver *access.Resolver
	engine   *vaultcrypto.Engine
	rec      *audit.Recorder
}

func NewGateway(docs Repository, blobs BlobStore, resolver *access.Resolver, engine *vaultcrypto.Engine, rec *audit.Recorder) *Gateway {
	return &Gateway{docs: docs, blobs: blobs, resolver: resolver, engine: engine, rec: rec}
}

// Fetch serves a protected document to an authorized caller. Encrypted
// objects are decrypted in flight and streamed through this choke point;
// legacy unencrypted objects get a short-lived signed URL instead (a
// backward-compatibility branch, not the long-term design). Every fetch is
// audited regardless of branch.
func (g *Gateway) Fetch(ctx context.Context, actorID, documentID string, action FetchAction) (FetchResult, error) {
	if action != ActionView && action != ActionDownload {
		return FetchResult{}, fmt.Errorf("%w: action must be view or download", fault.ErrValidation)
	}

	doc, err := g.docs.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return FetchResult{}, fault.ErrNotFound
		}
		return FetchResult{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	dec, err := g.resolver.Resolve(ctx, actorID, doc.OwnerUserID, doc.TenantID, access.ResourceDocument)
	if err != nil {
		return FetchResult{}, err
	}
	if !dec.Allows(access.PrivilegeFull) {
		return FetchResult{}, fault.ErrForbidden
	}

	var res FetchResult
	branch := "signed-url"
	if doc.Encrypted() {
		branch = "stream"
		blob, err := g.blobs.Get(ctx, doc.StoragePath)
		if err != nil {
			return FetchResult{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
		}
		plain, err := g.engine.DecryptBytes(blob)
		if err != nil {
			// Fatal for documents: no legacy fallback exists for bytes.
			return FetchResult{}, err
		}
		res = FetchResult{
			Bytes:       plain,
			ContentType: doc.ContentType,
			Disposition: disposition(action, doc.FileName),
		}
	} else {
		url, err := g.blobs.SignedURL(ctx, doc.StoragePath, signedURLTTL)
		if err != nil {
			return FetchResult{}, err
		}
		res = FetchResult{RedirectURL: url}
	}

	g.rec.Record(ctx, audit.Event{
		ActorID:    actorID,
		ActorRole:  dec.Role,
		Action:     audit.ActionFetch,
		EntityType: audit.EntityDocument,
		EntityID:   doc.ID,
		TenantID:   doc.TenantID,
		Detail: map[string]string{
			"fetch_action": string(action),
			"branch":       branch,
			"tier":         string(dec.Tier),
		},
	})

	return res, nil
}

func disposition(action FetchAction, filename string) string {
	if action == ActionDownload {
		return fmt.Sprintf("attachment; filename=%q", filename)
	}
	return fmt.Sprintf("inline; filename=%q", filename)
}
