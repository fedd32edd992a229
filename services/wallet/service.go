package wallet

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/db/option"
	"surveyrewards/pkg/errutil"
	"surveyrewards/pkg/middleware"
	"surveyrewards/pkg/repository"
	"surveyrewards/pkg/sequence"
	"surveyrewards/pkg/task"
	"surveyrewards/pkg/taskname"
	"surveyrewards/services/account"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	cfg      *config.Config
	sequence sequence.Generator
	enqueuer task.Enqueuer

	accounts    repository.Repository[account.Account]
	withdrawals repository.Repository[Withdrawal]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Config   *config.Config
	Sequence sequence.Generator `optional:"true"`
	Enqueuer task.Enqueuer      `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		cfg:      p.Config,
		sequence: p.Sequence,
		enqueuer: p.Enqueuer,

		accounts:    repository.ProvideStore[account.Account](p.DB),
		withdrawals: repository.ProvideStore[Withdrawal](p.DB),
	}
}

func recentFirst(limit int) []option.QueryOption {
	return []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithLimit(limit),
	}
}

// Summary returns the wallet view: balance, lifetime earnings, the sum still
// locked in pending withdrawals, and the latest withdrawal rows.
func (s *Service) Summary(c *gin.Context) {
	userID := middleware.UserID(c)

	acct, err := s.accounts.FindOne(c.Request.Context(), &account.Account{ID: userID})
	if err != nil {
		c.Error(errutil.Internal("failed to query account", err))
		return
	}
	if acct == nil {
		c.Error(errutil.Unauthorized("user not found", nil))
		return
	}

	recent, err := s.withdrawals.Find(c.Request.Context(), &Withdrawal{UserID: userID}, recentFirst(10)...)
	if err != nil {
		c.Error(errutil.Internal("failed to query withdrawals", err))
		return
	}

	var pendingSum int64
	for _, w := range recent {
		if w.Status == WithdrawalPending {
			pendingSum += w.Amount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":             acct.Balance,
		"total_earned":        acct.TotalEarned,
		"pending_withdrawals": pendingSum,
		"recent_withdrawals":  recent,
	})
}

// RequestWithdrawal debits the balance and records the payout request. The
// debit is one conditional decrement guarded by the current balance; the
// balance is never read first, so concurrent requests cannot both spend the
// same points.
func (s *Service) RequestWithdrawal(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid withdrawal payload", err))
		return
	}

	if req.Amount < s.cfg.Withdrawal.MinAmount {
		c.Error(errutil.BadRequest("amount below the minimum withdrawal", nil))
		return
	}
	if !validMethod(req.Method) {
		c.Error(errutil.BadRequest("unsupported withdrawal method", nil))
		return
	}

	userID := middleware.UserID(c)

	code, err := s.nextCode(c)
	if err != nil {
		c.Error(errutil.Internal("failed to allocate withdrawal code", err))
		return
	}

	withdrawal := &Withdrawal{
		ID:             s.node.Generate().String(),
		Code:           code,
		UserID:         userID,
		Amount:         req.Amount,
		Method:         req.Method,
		AccountDetails: req.AccountDetails,
		Status:         WithdrawalPending,
	}

	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&account.Account{}).
			Where("id = ? AND balance >= ?", userID, req.Amount).
			Updates(map[string]any{
				"balance":    gorm.Expr("balance - ?", req.Amount),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		return tx.Create(withdrawal).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientBalance):
		c.Error(errutil.BadRequest("insufficient balance", nil))
		return
	default:
		zap.L().Error("failed to record withdrawal", zap.String("user_id", userID), zap.Error(err))
		c.Error(errutil.Internal("failed to record withdrawal", err))
		return
	}

	s.enqueueProcess(withdrawal)

	c.JSON(http.StatusOK, withdrawal)
}

// List returns the user's withdrawal history, newest first.
func (s *Service) List(c *gin.Context) {
	rows, err := s.withdrawals.Find(c.Request.Context(), &Withdrawal{UserID: middleware.UserID(c)}, recentFirst(50)...)
	if err != nil {
		c.Error(errutil.Internal("failed to query withdrawals", err))
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (s *Service) nextCode(c *gin.Context) (string, error) {
	if s.sequence == nil {
		return s.node.Generate().String(), nil
	}
	return s.sequence.NextWithdrawalCode(c.Request.Context())
}

func (s *Service) enqueueProcess(w *Withdrawal) {
	if s.enqueuer == nil {
		return
	}

	payload, _ := json.Marshal(taskname.WithdrawalProcessPayload{WithdrawalID: w.ID})
	if _, err := s.enqueuer.Enqueue(asynq.NewTask(taskname.TypeWithdrawalProcess, payload, asynq.Queue("low"))); err != nil {
		zap.L().Error("failed to enqueue withdrawal task", zap.String("withdrawal_id", w.ID), zap.Error(err))
	}
}
