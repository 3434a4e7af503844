package docvault

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"grantvault/internal/fault"
)

// EncryptedSuffix marks encrypted objects in storage. The blob layout for
// such objects is a 12-byte IV followed by ciphertext+tag.
const EncryptedSuffix = ".enc"

// Document is a protected file belonging to one scholar within one tenant.
// SHA256 is the integrity record captured when the document was generated:
// written once, never mutated.
type Document struct {
	ID          string `json:"id" db:"id"`
	OwnerUserID string `json:"owner_user_id" db:"owner_user_id"`
	TenantID    string `json:"tenant_id" db:"tenant_id"`

	StoragePath string `json:"storage_path" db:"storage_path"`
	FileName    string `json:"file_name" db:"file_name"`
	ContentType string `json:"content_type" db:"content_type"`

	// SHA256 is the hex digest of the document's plaintext bytes.
	SHA256 string `json:"sha256" db:"sha256"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Encrypted reports whether the stored object needs decryption on read.
func (d Document) Encrypted() bool {
	return strings.HasSuffix(d.StoragePath, EncryptedSuffix)
}

type Repository interface {
	Get(ctx context.Context, id string) (Document, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Document, error) {
	const q = `
SELECT id, owner_user_id, tenant_id, storage_path, file_name, content_type, sha256, created_at
FROM documents
WHERE id = $1
`
	var d Document
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.OwnerUserID, &d.TenantID,
		&d.StoragePath, &d.FileName, &d.ContentType, &d.SHA256,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fault.ErrNotFound
		}
		return Document{}, err
	}
	return d, nil
}

// MemoryRepo is the in-memory Repository used in tests.
type MemoryRepo struct {
	mu   sync.Mutex
	docs map[string]Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return Document{}, fault.ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) Seed(d Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[d.ID] = d
}
