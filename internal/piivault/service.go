// Package piivault is the secure field store for personal identification
// data. Same shape as bankvault, with a stricter access floor and an
// immutable national id.
package piivault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grantvault/internal/access"
	"grantvault/internal/audit"
	"grantvault/internal/fault"
	"grantvault/internal/masking"
	"grantvault/internal/vaultcrypto"
	"grantvault/pkg/logger"
)

type Service struct {
	repo     Repository
	resolver *access.Resolver
	engine   *vaultcrypto.Engine
	rec      *audit.Recorder
	clock    func() time.Time
}

func NewService(repo Repository, resolver *access.Resolver, engine *vaultcrypto.Engine, rec *audit.Recorder) *Service {
	return &Service{repo: repo, resolver: resolver, engine: engine, rec: rec, clock: time.Now}
}

// Input is a full-replace write. An empty NationalID on an update leaves
// the stored national id untouched; a non-empty one is accepted only when
// none exists yet.
type Input struct {
	TenantID   string `json:"tenant_id"`
	NationalID string `json:"national_id"`
	Phone      string `json:"phone"`
}

type View struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`

	Privilege access.Privilege `json:"privilege"`

	NationalID FieldView `json:"national_id"`
	Phone      FieldView `json:"phone"`
}

type FieldView struct {
	Masked string `json:"masked"`
	Plain  string `json:"plain,omitempty"`
}

func (s *Service) Put(ctx context.Context, actorID, targetUserID string, in Input) (View, error) {
	if targetUserID == "" || in.TenantID == "" {
		return View{}, fmt.Errorf("%w: target user id and tenant_id required", fault.ErrValidation)
	}

	existing, err := s.repo.Get(ctx, targetUserID)
	creating := false
	if err != nil {
		if !errors.Is(err, fault.ErrNotFound) {
			return View{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
		}
		creating = true
	}

	// Access is resolved against the tenant the row already belongs to,
	// never the tenant named in the request.
	tenantID := in.TenantID
	if !creating {
		tenantID = existing.TenantID
	}

	dec, err := s.resolver.Resolve(ctx, actorID, targetUserID, tenantID, access.ResourcePII)
	if err != nil {
		return View{}, err
	}
	if dec.Tier != access.TierSelf && !dec.Privileged() {
		return View{}, fault.ErrForbidden
	}
	if !creating && in.TenantID != existing.TenantID && dec.Tier != access.TierSystemAdmin {
		return View{}, fmt.Errorf("%w: tenant binding cannot change", fault.ErrForbidden)
	}
	if creating && dec.Tier == access.TierOrgPrivileged {
		member, err := s.resolver.MemberOf(ctx, targetUserID, in.TenantID)
		if err != nil {
			return View{}, err
		}
		if !member {
			return View{}, fmt.Errorf("%w: target user is not a member of the tenant", fault.ErrForbidden)
		}
	}

	// The national id is write-once. Any attempt to set it while one is
	// already stored is rejected, even with an identical value.
	if in.NationalID != "" && !creating && existing.NationalID.HasValue() {
		return View{}, fmt.Errorf("%w: national id is immutable once set", fault.ErrConflict)
	}

	now := s.clock().UTC()
	p := Profile{
		UserID:    targetUserID,
		TenantID:  in.TenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !creating {
		p.CreatedAt = existing.CreatedAt
	}

	if in.NationalID != "" {
		env, err := s.engine.EncryptString(in.NationalID)
		if err != nil {
			return View{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
		}
		p.NationalID = Field{
			Stored: vaultcrypto.StoredValue{Envelope: env},
			Masked: masking.NationalID(in.NationalID),
		}
	} else if !creating {
		p.NationalID = existing.NationalID
	}

	env, err := s.engine.EncryptString(in.Phone)
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}
	p.Phone = Field{
		Stored: vaultcrypto.StoredValue{Envelope: env},
		Masked: masking.Phone(in.Phone),
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return View{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	action := audit.ActionUpdate
	if creating {
		action = audit.ActionCreate
	}
	s.rec.Record(ctx, audit.Event{
		ActorID:    actorID,
		ActorRole:  dec.Role,
		Action:     action,
		EntityType: audit.EntityPIIProfile,
		EntityID:   targetUserID,
		TenantID:   in.TenantID,
		Detail:     map[string]string{"tier": string(dec.Tier)},
	})

	return s.view(p, dec), nil
}

func (s *Service) Get(ctx context.Context, actorID, targetUserID string) (View, error) {
	if targetUserID == "" {
		return View{}, fmt.Errorf("%w: target user id required", fault.ErrValidation)
	}

	p, err := s.repo.Get(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return View{}, fault.ErrNotFound
		}
		return View{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	dec, err := s.resolver.Resolve(ctx, actorID, targetUserID, p.TenantID, access.ResourcePII)
	if err != nil {
		return View{}, err
	}
	if !dec.Allows(access.PrivilegeMasked) {
		return View{}, fault.ErrForbidden
	}

	v := s.view(p, dec)
	if dec.Privilege == access.PrivilegeFull {
		if v.NationalID.Plain, err = s.open(ctx, p.UserID, "national_id", p.NationalID.Stored); err != nil {
			return View{}, err
		}
		if v.Phone.Plain, err = s.open(ctx, p.UserID, "phone", p.Phone.Stored); err != nil {
			return View{}, err
		}
	}

	if dec.Tier != access.TierSelf {
		s.rec.Record(ctx, audit.Event{
			ActorID:    actorID,
			ActorRole:  dec.Role,
			Action:     audit.ActionRead,
			EntityType: audit.EntityPIIProfile,
			EntityID:   targetUserID,
			TenantID:   p.TenantID,
			Detail:     map[string]string{"tier": string(dec.Tier), "privilege": string(dec.Privilege)},
		})
	}
	return v, nil
}

func (s *Service) open(ctx context.Context, userID, name string, sv vaultcrypto.StoredValue) (string, error) {
	plain, legacy, err := sv.Open(s.engine)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if legacy {
		logger.From(ctx).WarnContext(ctx, "legacy plaintext fallback on read",
			"entity", audit.EntityPIIProfile, "user_id", userID, "field", name)
	}
	return plain, nil
}

func (s *Service) view(p Profile, dec access.Decision) View {
	return View{
		UserID:     p.UserID,
		TenantID:   p.TenantID,
		Privilege:  dec.Privilege,
		NationalID: FieldView{Masked: p.NationalID.Masked},
		Phone:      FieldView{Masked: p.Phone.Masked},
	}
}
