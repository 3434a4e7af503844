package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresRepo appends events to the audit_events table. The table is
// INSERT-only; retention and read access are handled outside this core.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO audit_events (
  id, actor_id, actor_role, action, entity_type, entity_id, tenant_id, detail, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err = r.db.ExecContext(ctx, q,
		e.ID,
		e.ActorID,
		e.ActorRole,
		e.Action,
		e.EntityType,
		e.EntityID,
		e.TenantID,
		detail,
		e.CreatedAt,
	)
	return err
}
