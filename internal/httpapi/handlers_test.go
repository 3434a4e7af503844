package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"grantvault/internal/auth"
	"grantvault/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "handlers-test-secret",
		JWTIssuer:       "grantvault",
		JWTAudience:     "grantvault-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	h := Handlers{Auth: mgr}
	r := gin.New()
	r.POST("/v1/auth/token", h.IssueToken)
	r.POST("/v1/auth/refresh", h.RefreshToken)
	return r, mgr
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRefreshToken_IssuesNewPair(t *testing.T) {
	r, mgr := newAuthRouter(t)

	w := postJSON(r, "/v1/auth/token", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var issued struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.RefreshToken)

	w = postJSON(r, "/v1/auth/refresh", `{"refresh_token":"`+issued.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var refreshed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEmpty(t, refreshed.RefreshToken)

	claims, err := mgr.Verify(refreshed.AccessToken, auth.TokenTypeAccess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	r, mgr := newAuthRouter(t)

	pair, err := mgr.IssuePair(time.Now(), "alice")
	require.NoError(t, err)

	w := postJSON(r, "/v1/auth/refresh", `{"refresh_token":"`+pair.AccessToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestRefreshToken_RejectsMissingBody(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := postJSON(r, "/v1/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshToken_RejectsGarbageToken(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := postJSON(r, "/v1/auth/refresh", `{"refresh_token":"not-a-jwt"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
