package access

import (
	"context"
	"database/sql"
)

// PostgresDirectory reads role memberships from the role_memberships table.
//
// Expected shape:
//
//	role_memberships(user_id, tenant_id NULL for system roles, role, active)
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Memberships(ctx context.Context, userID string) ([]Membership, error) {
	const q = `
SELECT COALESCE(tenant_id, ''), role
FROM role_memberships
WHERE user_id = $1 AND active
ORDER BY tenant_id
`
	rows, err := d.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.TenantID, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
