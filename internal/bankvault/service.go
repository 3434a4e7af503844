// Package bankvault is the secure field store for bank accounts: it resolves
// access, encrypts, masks, persists and audits in that order.
package bankvault

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

// Input is a full-replace write; there are no partial patch semantics.
type Input struct {
	TenantID    string `json:"tenant_id"`
	BankCode    string `json:"bank_code"`
	Agency      string `json:"agency"`
	Number      string `json:"number"`
	AccountType string `json:"account_type"`
	PixKey      string `json:"pix_key"`
	PixKeyType  string `json:"pix_key_type"`
}

func (in Input) validate() error {
	if in.TenantID == "" || in.BankCode == "" || in.Agency == "" || in.Number == "" || in.AccountType == "" {
		return fmt.Errorf("%w: tenant_id, bank_code, agency, number and account_type are required", fault.ErrValidation)
	}
	if (in.PixKey == "") != (in.PixKeyType == "") {
		return fmt.Errorf("%w: pix_key and pix_key_type go together", fault.ErrValidation)
	}
	return nil
}

// View is what a read returns. Plain values are populated only for full
// privilege; masked projections are always present.
type View struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`

	Privilege access.Privilege `json:"privilege"`

	BankCode      FieldView `json:"bank_code"`
	Agency        FieldView `json:"agency"`
	AccountNumber FieldView `json:"number"`
	PixKey        FieldView `json:"pix_key"`

	AccountType string `json:"account_type"`
	PixKeyType  string `json:"pix_key_type"`
	Last4       string `json:"last4"`

	ValidationStatus Status `json:"validation_status"`
	LockedForEdit    bool   `json:"locked_for_edit"`
}

type FieldView struct {
	Masked string `json:"masked"`
	Plain  string `json:"plain,omitempty"`
}

// Put writes a bank account for targetUserID. The actor must be the owner,
// or a privileged role writing on the owner's behalf. Every sensitive field
// gets a fresh envelope even when its value did not change.
func (s *Service) Put(ctx context.Context, actorID, targetUserID string, in Input) (View, error) {
	if targetUserID == "" {
		return View{}, fmt.Errorf("%w: target user id required", fault.ErrValidation)
	}
	if err := in.validate(); err != nil {
		return View{}, err
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

	dec, err := s.resolver.Resolve(ctx, actorID, targetUserID, tenantID, access.ResourceBank)
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

	if !creating && existing.LockedForEdit && dec.Tier == access.TierSelf {
		return View{}, fmt.Errorf("%w: account is locked for edit", fault.ErrConflict)
	}

	now := s.clock().UTC()
	a := Account{
		UserID:      targetUserID,
		TenantID:    in.TenantID,
		BankCode:    in.BankCode,
		AccountType: in.AccountType,
		PixKeyType:  in.PixKeyType,

		BankCodeMasked: masking.BankCode(in.BankCode),
		Last4:          masking.Last4(in.Number),

		LockedForEdit: existing.LockedForEdit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !creating {
		a.CreatedAt = existing.CreatedAt
	}

	if a.Agency, err = s.sealField(in.Agency, masking.Agency(in.Agency)); err != nil {
		return View{}, err
	}
	if a.Number, err = s.sealField(in.Number, masking.AccountNumber(in.Number)); err != nil {
		return View{}, err
	}
	pixMasked := ""
	if in.PixKey != "" {
		pixMasked = masking.PixKey(in.PixKey)
	}
	if a.PixKey, err = s.sealField(in.PixKey, pixMasked); err != nil {
		return View{}, err
	}

	// Validator attestations do not survive owner edits.
	if dec.Tier == access.TierSelf {
		a.ValidationStatus = StatusPending
		a.ValidatedBy = ""
		a.ValidatedAt = nil
	} else {
		a.ValidationStatus = existing.ValidationStatus
		a.ValidatedBy = existing.ValidatedBy
		a.ValidatedAt = existing.ValidatedAt
		if creating {
			a.ValidationStatus = StatusPending
		}
	}

	if err := s.repo.Upsert(ctx, a); err != nil {
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
		EntityType: audit.EntityBankAccount,
		EntityID:   targetUserID,
		TenantID:   in.TenantID,
		Detail:     map[string]string{"tier": string(dec.Tier)},
	})

	return s.view(a, dec), nil
}

// Get returns the account in the projection the caller's tier permits.
// Self-reads are not audited; the log stays focused on oversight activity.
func (s *Service) Get(ctx context.Context, actorID, targetUserID string) (View, error) {
	if targetUserID == "" {
		return View{}, fmt.Errorf("%w: target user id required", fault.ErrValidation)
	}

	a, err := s.repo.Get(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return View{}, fault.ErrNotFound
		}
		return View{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	dec, err := s.resolver.Resolve(ctx, actorID, targetUserID, a.TenantID, access.ResourceBank)
	if err != nil {
		return View{}, err
	}
	if !dec.Allows(access.PrivilegeMasked) {
		return View{}, fault.ErrForbidden
	}

	v := s.view(a, dec)
	if dec.Privilege == access.PrivilegeFull {
		if err := s.reveal(ctx, a, &v); err != nil {
			return View{}, err
		}
	}

	if dec.Tier != access.TierSelf {
		s.rec.Record(ctx, audit.Event{
			ActorID:    actorID,
			ActorRole:  dec.Role,
			Action:     audit.ActionRead,
			EntityType: audit.EntityBankAccount,
			EntityID:   targetUserID,
			TenantID:   a.TenantID,
			Detail:     map[string]string{"tier": string(dec.Tier), "privilege": string(dec.Privilege)},
		})
	}
	return v, nil
}

// Validate records a validator attestation. The owner cannot attest their
// own account.
func (s *Service) Validate(ctx context.Context, actorID, targetUserID string) error {
	a, err := s.repo.Get(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return fault.ErrNotFound
		}
		return fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	dec, err := s.resolver.Resolve(ctx, actorID, targetUserID, a.TenantID, access.ResourceBank)
	if err != nil {
		return err
	}
	if !dec.Privileged() {
		return fault.ErrForbidden
	}

	now := s.clock().UTC()
	a.ValidationStatus = StatusValidated
	a.ValidatedBy = actorID
	a.ValidatedAt = &now
	a.UpdatedAt = now

	if err := s.repo.Upsert(ctx, a); err != nil {
		return fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	s.rec.Record(ctx, audit.Event{
		ActorID:    actorID,
		ActorRole:  dec.Role,
		Action:     audit.ActionValidate,
		EntityType: audit.EntityBankAccount,
		EntityID:   targetUserID,
		TenantID:   a.TenantID,
	})
	return nil
}

// SetLock toggles locked_for_edit. Validator-only.
func (s *Service) SetLock(ctx context.Context, actorID, targetUserID string, locked bool) error {
	a, err := s.repo.Get(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return fault.ErrNotFound
		}
		return fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	dec, err := s.resolver.Resolve(ctx, actorID, targetUserID, a.TenantID, access.ResourceBank)
	if err != nil {
		return err
	}
	if !dec.Privileged() {
		return fault.ErrForbidden
	}

	a.LockedForEdit = locked
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Upsert(ctx, a); err != nil {
		return fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	s.rec.Record(ctx, audit.Event{
		ActorID:    actorID,
		ActorRole:  dec.Role,
		Action:     audit.ActionLock,
		EntityType: audit.EntityBankAccount,
		EntityID:   targetUserID,
		TenantID:   a.TenantID,
		Detail:     map[string]string{"locked": fmt.Sprintf("%t", locked)},
	})
	return nil
}

func (s *Service) sealField(plain, masked string) (Field, error) {
	env, err := s.engine.EncryptString(plain)
	if err != nil {
		return Field{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}
	return Field{
		Stored: vaultcrypto.StoredValue{Envelope: env},
		Masked: masked,
	}, nil
}

func (s *Service) view(a Account, dec access.Decision) View {
	return View{
		UserID:    a.UserID,
		TenantID:  a.TenantID,
		Privilege: dec.Privilege,

		BankCode:      FieldView{Masked: a.BankCodeMasked},
		Agency:        FieldView{Masked: a.Agency.Masked},
		AccountNumber: FieldView{Masked: a.Number.Masked},
		PixKey:        FieldView{Masked: a.PixKey.Masked},

		AccountType:      a.AccountType,
		PixKeyType:       a.PixKeyType,
		Last4:            a.Last4,
		ValidationStatus: a.ValidationStatus,
		LockedForEdit:    a.LockedForEdit,
	}
}

func (s *Service) reveal(ctx context.Context, a Account, v *View) error {
	open := func(name string, sv vaultcrypto.StoredValue) (string, error) {
		plain, legacy, err := sv.Open(s.engine)
		if err != nil {
			// Open already classifies this (integrity or validation).
			return "", fmt.Errorf("%s: %w", name, err)
		}
		if legacy {
			logger.From(ctx).WarnContext(ctx, "legacy plaintext fallback on read",
				"entity", audit.EntityBankAccount, "user_id", a.UserID, "field", name)
		}
		return plain, nil
	}

	var err error
	v.BankCode.Plain = a.BankCode
	if v.Agency.Plain, err = open("agency", a.Agency.Stored); err != nil {
		return err
	}
	if v.AccountNumber.Plain, err = open("number", a.Number.Stored); err != nil {
		return err
	}
	if v.PixKey.Plain, err = open("pix_key", a.PixKey.Stored); err != nil {
		return err
	}
	return nil
}
