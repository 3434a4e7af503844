package access

import (
	"context"
	"errors"
	"testing"

	"grantvault/internal/fault"
)

// memoryDirectory is a fixed membership table for tests.
type memoryDirectory map[string][]Membership

func (d memoryDirectory) Memberships(_ context.Context, userID string) ([]Membership, error) {
	return d[userID], nil
}

var testDir = memoryDirectory{
	"root":     {{TenantID: "", Role: RoleSystemAdmin}},
	"manager1": {{TenantID: "t1", Role: RoleManager}},
	"reviewer1": {
		{TenantID: "t1", Role: RoleReviewer},
	},
	"scholar1": {{TenantID: "t1", Role: RoleScholar}},
	"outsider": {{TenantID: "t9", Role: RoleReviewer}},
}

func resolve(t *testing.T, caller, target, tenant string, res Resource) Decision {
	t.Helper()
	d, err := NewResolver(testDir).Resolve(context.Background(), caller, target, tenant, res)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return d
}

func TestResolve_SelfIsAlwaysFull(t *testing.T) {
	for _, res := range []Resource{ResourceBank, ResourcePII, ResourceDocument} {
		d := resolve(t, "scholar1", "scholar1", "t1", res)
		if d.Tier != TierSelf || d.Privilege != PrivilegeFull {
			t.Fatalf("res %s: got %+v", res, d)
		}
	}
}

func TestResolve_SystemAdmin(t *testing.T) {
	d := resolve(t, "root", "scholar1", "t1", ResourcePII)
	if d.Tier != TierSystemAdmin || d.Privilege != PrivilegeFull {
		t.Fatalf("got %+v", d)
	}
}

func TestResolve_OrgPrivileged(t *testing.T) {
	d := resolve(t, "manager1", "scholar1", "t1", ResourceBank)
	if d.Tier != TierOrgPrivileged || d.Privilege != PrivilegeFull {
		t.Fatalf("got %+v", d)
	}
	// Same manager has no standing in another tenant's PII.
	d = resolve(t, "manager1", "x", "t2", ResourcePII)
	if d.Privilege != PrivilegeNone {
		t.Fatalf("got %+v", d)
	}
}

func TestResolve_ReviewerGetsMaskedBank(t *testing.T) {
	d := resolve(t, "reviewer1", "scholar1", "t1", ResourceBank)
	if d.Tier != TierDenied || d.Privilege != PrivilegeMasked {
		t.Fatalf("got %+v", d)
	}
}

func TestResolve_BankAndPIIHaveDifferentFloors(t *testing.T) {
	// No shared tenant, no system role: bank degrades to masked, PII denies.
	d := resolve(t, "outsider", "scholar1", "t1", ResourceBank)
	if d.Privilege != PrivilegeMasked {
		t.Fatalf("bank floor must be masked, got %+v", d)
	}
	d = resolve(t, "outsider", "scholar1", "t1", ResourcePII)
	if d.Privilege != PrivilegeNone {
		t.Fatalf("pii floor must be none, got %+v", d)
	}
	// A shared tenant lifts PII to masked only.
	d = resolve(t, "reviewer1", "scholar1", "t1", ResourcePII)
	if d.Privilege != PrivilegeMasked {
		t.Fatalf("got %+v", d)
	}
}

func TestResolve_DocumentsHaveNoMaskedForm(t *testing.T) {
	d := resolve(t, "reviewer1", "scholar1", "t1", ResourceDocument)
	if d.Privilege != PrivilegeNone {
		t.Fatalf("got %+v", d)
	}
}

func TestResolve_EmptyCallerIsUnauthenticated(t *testing.T) {
	_, err := NewResolver(testDir).Resolve(context.Background(), "", "u", "t1", ResourceBank)
	if !errors.Is(err, fault.ErrUnauthenticated) {
		t.Fatalf("got %v", err)
	}
}

func TestDecision_AllowsAndPrivileged(t *testing.T) {
	full := Decision{Tier: TierOrgPrivileged, Privilege: PrivilegeFull}
	masked := Decision{Tier: TierDenied, Privilege: PrivilegeMasked}

	if !full.Allows(PrivilegeMasked) || !full.Allows(PrivilegeFull) {
		t.Fatal("full must allow both")
	}
	if masked.Allows(PrivilegeFull) {
		t.Fatal("masked must not allow full")
	}
	if !full.Privileged() || masked.Privileged() {
		t.Fatal("privileged tiers are system-admin and org-privileged only")
	}
}
