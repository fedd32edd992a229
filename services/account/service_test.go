package account

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/middleware"
	"surveyrewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-jwt-secret"
	cfg.Auth.JWTExpiry = time.Hour
	return cfg
}

func newTestRouter(t *testing.T) (*gin.Engine, *Service, *config.Config) {
	t.Helper()

	db := testutil.NewTestDB(t, &Account{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := testConfig()
	svc := NewService(ServiceParams{DB: db, Node: node, Config: cfg})

	router := gin.New()
	router.Use(middleware.Error())
	registerRoutes(router, cfg, svc)
	return router, svc, cfg
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, router *gin.Engine, email string) TokenResponse {
	t.Helper()

	w := postJSON(router, "/api/auth/register", RegisterRequest{
		Email:    email,
		Password: "hunter2hunter2",
		Name:     "Test User",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp := register(t, router, "alice@example.com")
	require.Zero(t, resp.User.Balance)
	require.Zero(t, resp.User.SurveysCompleted)

	w := postJSON(router, "/api/auth/login", LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/api/auth/login", LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router, _, _ := newTestRouter(t)

	register(t, router, "alice@example.com")

	w := postJSON(router, "/api/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
		Name:     "Other User",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postJSON(router, "/api/auth/register", RegisterRequest{Email: "not-an-email", Password: "hunter2hunter2", Name: "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/register", RegisterRequest{Email: "bob@example.com", Password: "short", Name: "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp := register(t, router, "alice@example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var acct Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acct))
	require.Equal(t, resp.User.ID, acct.ID)
	// the password hash must never serialize
	require.NotContains(t, w.Body.String(), "password")
}

func TestLeaderboardOrdering(t *testing.T) {
	router, svc, _ := newTestRouter(t)

	for i, earned := range []int64{100, 500, 300} {
		acct := register(t, router, fmt.Sprintf("user%d@example.com", i)).User
		require.NoError(t, svc.db.Model(&Account{}).Where("id = ?", acct.ID).
			Update("total_earned", earned).Error)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []LeaderboardEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	require.Equal(t, int64(500), entries[0].TotalEarned)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, int64(300), entries[1].TotalEarned)
	require.Equal(t, int64(100), entries[2].TotalEarned)
}
