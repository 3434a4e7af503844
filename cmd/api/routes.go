package main

import (
	"grantvault/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", httpapi.Healthz)

	// Token issuance is public; everything else requires a bearer token.
	r.POST("/v1/auth/token", h.IssueToken)
	r.POST("/v1/auth/refresh", h.RefreshToken)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		users := v1.Group("/users/:user_id")
		{
			users.GET("/bank-account", h.GetBankAccount)
			users.PUT("/bank-account", h.PutBankAccount)
			users.POST("/bank-account/validation", h.ValidateBankAccount)
			users.POST("/bank-account/lock", h.LockBankAccount)

			users.GET("/profile", h.GetProfile)
			users.PUT("/profile", h.PutProfile)
		}

		docs := v1.Group("/documents/:document_id")
		{
			docs.GET("", h.FetchDocument)
			docs.GET("/integrity", h.VerifyDocument)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/migrations/bank-encryption", h.RunBankEncryptionMigration)
		}
	}
}
