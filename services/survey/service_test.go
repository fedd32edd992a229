package survey

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/middleware"
	"surveyrewards/pkg/taskname"
	"surveyrewards/services/account"
	"surveyrewards/services/ledger"
	"surveyrewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *Service
	ledger *ledger.Service
	token  string
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, &account.Account{}, &ledger.Transaction{}, &PendingSurvey{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-jwt-secret"
	cfg.Auth.JWTExpiry = time.Hour

	accounts := account.NewService(account.ServiceParams{DB: db, Node: node, Config: cfg})
	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{DB: db, Ledger: ledgerSvc, Accounts: accounts})

	router := gin.New()
	router.Use(middleware.Error())
	router.POST("/api/auth/register", accounts.Register)
	registerRoutes(router, cfg, svc)

	body, _ := json.Marshal(account.RegisterRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
		Name:     "Alice",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp account.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return &fixture{
		router: router,
		db:     db,
		svc:    svc,
		ledger: ledgerSvc,
		token:  resp.Token,
		userID: resp.User.ID,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) credit(t *testing.T, surveyID, externalID string, points int64) {
	t.Helper()
	_, err := f.ledger.Record(context.Background(), ledger.ProviderEvent{
		Provider:   ledger.ProviderCPXResearch,
		ExternalID: externalID,
		UserID:     f.userID,
		SurveyID:   surveyID,
		Points:     points,
		Outcome:    ledger.OutcomeCredit,
	})
	require.NoError(t, err)
}

func (f *fixture) pendingCount(t *testing.T) int64 {
	t.Helper()
	var acct account.Account
	require.NoError(t, f.db.First(&acct, "id = ?", f.userID).Error)
	return acct.PendingSurveys
}

func listSurveys(t *testing.T, f *fixture, path string) []Survey {
	t.Helper()

	w := f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var surveys []Survey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &surveys))
	return surveys
}

func TestListFiltersAndFlags(t *testing.T) {
	f := newFixture(t)

	surveys := listSurveys(t, f, "/api/surveys")
	require.Len(t, surveys, len(catalog))

	f.credit(t, "cpx_001", "t1", 175)
	w := f.do(t, http.MethodPost, "/api/surveys/start", StartRequest{SurveyID: "cpx_002"})
	require.Equal(t, http.StatusOK, w.Code)

	surveys = listSurveys(t, f, "/api/surveys")
	require.Len(t, surveys, len(catalog)-1)
	for _, s := range surveys {
		require.NotEqual(t, "cpx_001", s.ID)
		if s.ID == "cpx_002" {
			require.Equal(t, "in_progress", s.Status)
		} else {
			require.Equal(t, "available", s.Status)
		}
	}

	surveys = listSurveys(t, f, "/api/surveys?provider=inbrain")
	require.Len(t, surveys, 5)

	surveys = listSurveys(t, f, "/api/surveys?category=Travel")
	require.Len(t, surveys, 1)
	require.Equal(t, "cpx_002", surveys[0].ID)
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/surveys/start", StartRequest{SurveyID: "cpx_001"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), f.pendingCount(t))

	w = f.do(t, http.MethodPost, "/api/surveys/start", StartRequest{SurveyID: "cpx_001"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), f.pendingCount(t))
}

func TestStartUnknownSurvey(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/surveys/start", StartRequest{SurveyID: "nope_001"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartCompletedSurvey(t *testing.T) {
	f := newFixture(t)

	f.credit(t, "cpx_001", "t1", 175)

	w := f.do(t, http.MethodPost, "/api/surveys/start", StartRequest{SurveyID: "cpx_001"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryAndStats(t *testing.T) {
	f := newFixture(t)

	f.credit(t, "cpx_001", "t1", 175)
	f.credit(t, "inbrain_002", "t2", 200)

	w := f.do(t, http.MethodGet, "/api/surveys/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history []ledger.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 2)

	w = f.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Balance           int64                 `json:"balance"`
		TotalEarned       int64                 `json:"total_earned"`
		SurveysCompleted  int64                 `json:"surveys_completed"`
		PendingSurveys    int64                 `json:"pending_surveys"`
		RecentCompletions []*ledger.Transaction `json:"recent_completions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, int64(375), stats.Balance)
	require.Equal(t, int64(2), stats.SurveysCompleted)
	require.Len(t, stats.RecentCompletions, 2)
}

func TestHandleSettledTaskClearsPending(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/surveys/start", StartRequest{SurveyID: "cpx_001"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), f.pendingCount(t))

	payload, _ := json.Marshal(taskname.PostbackSettledPayload{UserID: f.userID, SurveyID: "cpx_001"})
	task := asynq.NewTask(taskname.TypePostbackSettled, payload)

	require.NoError(t, f.svc.HandleSettledTask(context.Background(), task))
	require.Equal(t, int64(0), f.pendingCount(t))

	// redelivery of the same settlement must not go negative
	require.NoError(t, f.svc.HandleSettledTask(context.Background(), task))
	require.Equal(t, int64(0), f.pendingCount(t))
}
