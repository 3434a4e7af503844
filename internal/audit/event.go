package audit

import "time"

// Event is an immutable, append-only audit record of one sensitive
// read/write.
//
// Invariants:
// - Events are never updated or deleted.
// - Timestamps are assigned by the recorder, never by the caller.
// - A failed audit write must not block or roll back the primary operation.
type Event struct {
	ID string `json:"id" db:"id"`

	// ActorID is the authenticated user performing the operation.
	ActorID string `json:"actor_id" db:"actor_id"`
	// ActorRole records the role that produced the access decision, when known.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	Action Action `json:"action" db:"action"`

	EntityType string `json:"entity_type" db:"entity_type"`
	EntityID   string `json:"entity_id" db:"entity_id"`

	// TenantID is empty for system-scoped actions (e.g. a migration run).
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	// Detail carries free-form context (never plaintext field values).
	Detail map[string]string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionRead     Action = "read"
	ActionValidate Action = "validate"
	ActionLock     Action = "lock"
	ActionFetch    Action = "fetch"
	ActionVerify   Action = "verify"
	ActionMigrate  Action = "migrate"
)

const (
	EntityBankAccount = "bank_account"
	EntityPIIProfile  = "pii_profile"
	EntityDocument    = "document"
	EntityMigration   = "migration"
)
