package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"grantvault/internal/access"
	"grantvault/internal/auth"
	"grantvault/internal/bankvault"
	"grantvault/internal/docvault"
	"grantvault/internal/fault"
	"grantvault/internal/migrate"
	"grantvault/internal/piivault"
	"grantvault/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Authorization lives in internal/access; this layer only translates errors
// to status codes.

type Handlers struct {
	Auth      *auth.Manager
	Directory access.Directory

	Bank     *bankvault.Service
	PII      *piivault.Service
	Gateway  *docvault.Gateway
	Verifier *docvault.Verifier
	Migrator *migrate.Runner
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fault.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, fault.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, fault.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, fault.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, fault.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		// ErrIntegrity and ErrInternal both surface as opaque 500s; the
		// detail goes to the request-scoped log only.
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func actorID(c *gin.Context) (string, bool) {
	id, err := auth.UserID(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return id, true
}

// --- Auth ---

type tokenRequest struct {
	UserID string `json:"user_id"`
}

// IssueToken issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real deployments must validate
// credentials against the identity provider first.
func (h Handlers) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken trades a valid refresh token for a new token pair. Access
// tokens are rejected here so a leaked short-lived token cannot be used to
// mint longer-lived ones.
func (h Handlers) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Bank account ---

func (h Handlers) GetBankAccount(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	view, err := h.Bank.Get(c.Request.Context(), actor, c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h Handlers) PutBankAccount(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var in bankvault.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	view, err := h.Bank.Put(c.Request.Context(), actor, c.Param("user_id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h Handlers) ValidateBankAccount(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.Bank.Validate(c.Request.Context(), actor, c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"validation_status": bankvault.StatusValidated})
}

type lockRequest struct {
	Locked *bool `json:"locked"`
}

func (h Handlers) LockBankAccount(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Locked == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "locked required"})
		return
	}
	if err := h.Bank.SetLock(c.Request.Context(), actor, c.Param("user_id"), *req.Locked); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked_for_edit": *req.Locked})
}

// --- PII profile ---

func (h Handlers) GetProfile(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	view, err := h.PII.Get(c.Request.Context(), actor, c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h Handlers) PutProfile(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var in piivault.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	view, err := h.PII.Put(c.Request.Context(), actor, c.Param("user_id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// --- Documents ---

// FetchDocument streams decrypted bytes (no-store) or redirects to a
// short-lived signed URL for legacy uploads.
func (h Handlers) FetchDocument(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	action := docvault.FetchAction(c.DefaultQuery("action", string(docvault.ActionView)))
	if action != docvault.ActionView && action != docvault.ActionDownload {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "action must be view or download"})
		return
	}

	res, err := h.Gateway.Fetch(c.Request.Context(), actor, c.Param("document_id"), action)
	if err != nil {
		respondError(c, err)
		return
	}

	if res.RedirectURL != "" {
		c.Redirect(http.StatusFound, res.RedirectURL)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.Header("Content-Disposition", res.Disposition)
	c.Data(http.StatusOK, res.ContentType, res.Bytes)
}

func (h Handlers) VerifyDocument(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	report, err := h.Verifier.Verify(c.Request.Context(), actor, c.Param("document_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- Admin: migration ---

type migrationRequest struct {
	DryRun *bool `json:"dry_run"`
}

// RunBankEncryptionMigration backfills missing envelopes on legacy bank
// rows. Dry-run is the default; callers must send dry_run=false to write.
func (h Handlers) RunBankEncryptionMigration(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.requireSystemAdmin(c, actor); err != nil {
		respondError(c, err)
		return
	}

	// An empty body means dry-run; only malformed JSON is rejected.
	var req migrationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	sum, err := h.Migrator.Run(c.Request.Context(), actor, migrate.Options{DryRun: dryRun})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) requireSystemAdmin(c *gin.Context, actor string) error {
	ms, err := h.Directory.Memberships(c.Request.Context(), actor)
	if err != nil {
		return fault.ErrInternal
	}
	for _, m := range ms {
		if access.IsSystemAdmin(m.Role) {
			return nil
		}
	}
	return fault.ErrForbidden
}

// --- Health ---

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
