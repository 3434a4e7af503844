// Package access computes the privilege tier a caller holds over a target
// user's sensitive data. All authorization decisions in the vault go through
// Resolver; handlers never compare role strings themselves.
package access

import (
	"context"
	"fmt"

	"grantvault/internal/fault"
)

// Tier is the resolved relationship between caller and target.
type Tier string

const (
	TierSelf          Tier = "self"
	TierSystemAdmin   Tier = "system-admin"
	TierOrgPrivileged Tier = "org-privileged"
	TierDenied        Tier = "denied"
)

// Privilege is what a tier allows the caller to see.
type Privilege string

const (
	PrivilegeFull   Privilege = "full"
	PrivilegeMasked Privilege = "masked"
	PrivilegeNone   Privilege = "none"
)

// Resource distinguishes the two minimum bars: bank data degrades to a
// masked projection for low-privilege callers, PII and documents do not.
type Resource string

const (
	ResourceBank     Resource = "bank"
	ResourcePII      Resource = "pii"
	ResourceDocument Resource = "document"
)

// Decision is computed per request and never persisted.
type Decision struct {
	Tier      Tier
	Privilege Privilege

	// Role is the caller's role that produced the decision, for audit detail.
	Role string
}

// Membership is one row of the caller's role directory. A membership with
// an empty TenantID is a system-wide role.
type Membership struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Directory resolves a user's active role memberships. The production
// implementation reads Postgres; CachedDirectory puts Redis in front of it.
type Directory interface {
	Memberships(ctx context.Context, userID string) ([]Membership, error)
}

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve applies the tier rules in order:
//  1. caller == target is always self/full;
//  2. a system admin sees everything;
//  3. a privileged role in the target's tenant sees everything in it;
//  4. otherwise bank data degrades to masked, while PII requires at least a
//     shared tenant for masked and is denied outright without one.
func (r *Resolver) Resolve(ctx context.Context, callerID, targetUserID, tenantID string, res Resource) (Decision, error) {
	if callerID == "" {
		return Decision{Tier: TierDenied, Privilege: PrivilegeNone}, fault.ErrUnauthenticated
	}

	if targetUserID != "" && callerID == targetUserID {
		return Decision{Tier: TierSelf, Privilege: PrivilegeFull}, nil
	}

	memberships, err := r.dir.Memberships(ctx, callerID)
	if err != nil {
		return Decision{Tier: TierDenied, Privilege: PrivilegeNone}, fmt.Errorf("%w: membership lookup: %v", fault.ErrInternal, err)
	}

	for _, m := range memberships {
		if m.TenantID == "" && IsSystemAdmin(m.Role) {
			return Decision{Tier: TierSystemAdmin, Privilege: PrivilegeFull, Role: m.Role}, nil
		}
	}

	var sharedTenantRole string
	if tenantID != "" {
		for _, m := range memberships {
			if m.TenantID != tenantID {
				continue
			}
			if IsTenantPrivileged(m.Role) {
				return Decision{Tier: TierOrgPrivileged, Privilege: PrivilegeFull, Role: m.Role}, nil
			}
			sharedTenantRole = m.Role
		}
	}

	switch res {
	case ResourceBank:
		// Reviewers (and anyone else authenticated) get the masked
		// projection for workflow purposes; never plaintext.
		return Decision{Tier: TierDenied, Privilege: PrivilegeMasked, Role: sharedTenantRole}, nil
	case ResourcePII:
		if sharedTenantRole != "" {
			return Decision{Tier: TierDenied, Privilege: PrivilegeMasked, Role: sharedTenantRole}, nil
		}
		return Decision{Tier: TierDenied, Privilege: PrivilegeNone}, nil
	default:
		// Documents carry PII-grade content; no masked form exists for bytes.
		return Decision{Tier: TierDenied, Privilege: PrivilegeNone}, nil
	}
}

// MemberOf reports whether userID holds any membership in tenantID. Write
// paths use it to confirm a row may be created under the claimed tenant.
func (r *Resolver) MemberOf(ctx context.Context, userID, tenantID string) (bool, error) {
	if userID == "" || tenantID == "" {
		return false, nil
	}
	memberships, err := r.dir.Memberships(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: membership lookup: %v", fault.ErrInternal, err)
	}
	for _, m := range memberships {
		if m.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

// Allows reports whether the decision grants at least the given privilege.
func (d Decision) Allows(p Privilege) bool {
	switch p {
	case PrivilegeFull:
		return d.Privilege == PrivilegeFull
	case PrivilegeMasked:
		return d.Privilege == PrivilegeFull || d.Privilege == PrivilegeMasked
	default:
		return true
	}
}

// Privileged reports whether the tier is one of the oversight tiers that a
// restricted operation (integrity verification, validator attestation) needs.
func (d Decision) Privileged() bool {
	return d.Tier == TierSystemAdmin || d.Tier == TierOrgPrivileged
}
