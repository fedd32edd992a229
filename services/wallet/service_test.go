package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/middleware"
	"surveyrewards/pkg/taskname"
	"surveyrewards/services/account"
	"surveyrewards/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type fakeSequence struct {
	mu   sync.Mutex
	next int
}

func (f *fakeSequence) NextWithdrawalCode(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("WD-%06d", f.next), nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil, nil
}

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *Service
	enq    *fakeEnqueuer
	token  string
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, &account.Account{}, &Withdrawal{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-jwt-secret"
	cfg.Auth.JWTExpiry = time.Hour
	cfg.Withdrawal.MinAmount = 500

	require.NoError(t, db.Create(&account.Account{
		ID:      "u1",
		Email:   "u1@example.com",
		Name:    "Test User",
		Balance: balance,
	}).Error)

	enq := &fakeEnqueuer{}
	svc := NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Config:   cfg,
		Sequence: &fakeSequence{},
		Enqueuer: enq,
	})

	router := gin.New()
	router.Use(middleware.Error())
	registerRoutes(router, cfg, svc)

	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)

	return &fixture{router: router, db: db, svc: svc, enq: enq, token: token}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	var acct account.Account
	require.NoError(t, f.db.First(&acct, "id = ?", "u1").Error)
	return acct.Balance
}

func TestWithdrawalDebitsBalance(t *testing.T) {
	f := newFixture(t, 1000)

	w := f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{
		Amount:         600,
		Method:         "paypal",
		AccountDetails: "alice@paypal.example",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp Withdrawal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, WithdrawalPending, resp.Status)
	require.Equal(t, "WD-000001", resp.Code)

	require.Equal(t, int64(400), f.balance(t))
	require.Len(t, f.enq.tasks, 1)
	require.Equal(t, taskname.TypeWithdrawalProcess, f.enq.tasks[0].Type())
}

func TestWithdrawalValidation(t *testing.T) {
	f := newFixture(t, 1000)

	w := f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 100, Method: "paypal"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 600, Method: "cheque"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, int64(1000), f.balance(t))
	require.Empty(t, f.enq.tasks)
}

func TestWithdrawalInsufficientBalance(t *testing.T) {
	f := newFixture(t, 400)

	w := f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 600, Method: "paypal"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, int64(400), f.balance(t))

	var count int64
	require.NoError(t, f.db.Model(&Withdrawal{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	f := newFixture(t, 1000)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 600, Method: "paypal"})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusBadRequest:
			rejected++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, rejected)
	require.Equal(t, int64(400), f.balance(t))
}

func TestSummaryAndList(t *testing.T) {
	f := newFixture(t, 2000)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 500, Method: "paypal"}).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 700, Method: "bank"}).Code)

	w := f.do(t, http.MethodGet, "/api/wallet", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		Balance            int64        `json:"balance"`
		PendingWithdrawals int64        `json:"pending_withdrawals"`
		RecentWithdrawals  []Withdrawal `json:"recent_withdrawals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Equal(t, int64(800), summary.Balance)
	require.Equal(t, int64(1200), summary.PendingWithdrawals)
	require.Len(t, summary.RecentWithdrawals, 2)

	w = f.do(t, http.MethodGet, "/api/withdrawals", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []Withdrawal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
}

func TestHandleProcessTaskCompletesOnce(t *testing.T) {
	f := newFixture(t, 1000)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/withdrawals", WithdrawRequest{Amount: 600, Method: "paypal"}).Code)

	var withdrawal Withdrawal
	require.NoError(t, f.db.First(&withdrawal).Error)

	payload, _ := json.Marshal(taskname.WithdrawalProcessPayload{WithdrawalID: withdrawal.ID})
	task := asynq.NewTask(taskname.TypeWithdrawalProcess, payload)

	require.NoError(t, f.svc.HandleProcessTask(context.Background(), task))
	require.NoError(t, f.db.First(&withdrawal, "id = ?", withdrawal.ID).Error)
	require.Equal(t, WithdrawalCompleted, withdrawal.Status)

	// redelivery is a no-op
	require.NoError(t, f.svc.HandleProcessTask(context.Background(), task))
}
