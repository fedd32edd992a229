package survey

import (
	"net/http"
	"time"

	"surveyrewards/pkg/errutil"
	"surveyrewards/pkg/middleware"
	"surveyrewards/pkg/repository"
	"surveyrewards/services/account"
	"surveyrewards/services/ledger"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	accounts *account.Service

	pending repository.Repository[PendingSurvey]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Ledger   *ledger.Service
	Accounts *account.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		ledger:   p.Ledger,
		accounts: p.Accounts,

		pending: repository.ProvideStore[PendingSurvey](p.DB),
	}
}

// List returns catalog entries the user has not completed, with optional
// provider and category filters. Started surveys are flagged in_progress.
func (s *Service) List(c *gin.Context) {
	userID := middleware.UserID(c)

	completed, err := s.ledger.CompletedSurveyIDs(c.Request.Context(), userID)
	if err != nil {
		c.Error(errutil.Internal("failed to query completions", err))
		return
	}

	started, err := s.pending.Find(c.Request.Context(), &PendingSurvey{UserID: userID})
	if err != nil {
		c.Error(errutil.Internal("failed to query pending surveys", err))
		return
	}
	startedIDs := make(map[string]bool, len(started))
	for _, p := range started {
		startedIDs[p.SurveyID] = true
	}

	var (
		provider = c.Query("provider")
		category = c.Query("category")
	)

	surveys := make([]Survey, 0, len(catalog))
	for _, entry := range catalog {
		if completed[entry.ID] {
			continue
		}
		if provider != "" && entry.Provider != provider {
			continue
		}
		if category != "" && entry.Category != category {
			continue
		}

		entry.Status = "available"
		if startedIDs[entry.ID] {
			entry.Status = "in_progress"
		}
		surveys = append(surveys, entry)
	}

	c.JSON(http.StatusOK, surveys)
}

// Start marks a catalog survey in progress. Safe to repeat: the pending row
// insert is a conditional insert on (user_id, survey_id) and the counter bump
// only happens when the row was actually created.
func (s *Service) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid start payload", err))
		return
	}

	entry, ok := catalogLookup(req.SurveyID)
	if !ok {
		c.Error(errutil.NotFound("survey not found", nil))
		return
	}

	userID := middleware.UserID(c)

	completed, err := s.ledger.CompletedSurveyIDs(c.Request.Context(), userID)
	if err != nil {
		c.Error(errutil.Internal("failed to query completions", err))
		return
	}
	if completed[entry.ID] {
		c.Error(errutil.BadRequest("survey already completed", nil))
		return
	}

	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "survey_id"}},
			DoNothing: true,
		}).Create(&PendingSurvey{UserID: userID, SurveyID: entry.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&account.Account{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"pending_surveys": gorm.Expr("pending_surveys + 1"),
				"updated_at":      time.Now(),
			}).Error
	})
	if err != nil {
		zap.L().Error("failed to start survey", zap.String("survey_id", entry.ID), zap.Error(err))
		c.Error(errutil.Internal("failed to start survey", err))
		return
	}

	entry.Status = "in_progress"
	c.JSON(http.StatusOK, entry)
}

// History lists the user's credited completions, newest first.
func (s *Service) History(c *gin.Context) {
	rows, err := s.ledger.Completions(c.Request.Context(), middleware.UserID(c), 100)
	if err != nil {
		c.Error(errutil.Internal("failed to query history", err))
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Stats is the dashboard summary: account counters plus recent credits.
func (s *Service) Stats(c *gin.Context) {
	userID := middleware.UserID(c)

	acct, err := s.accounts.Get(c.Request.Context(), userID)
	if err != nil {
		c.Error(errutil.Internal("failed to query account", err))
		return
	}
	if acct == nil {
		c.Error(errutil.Unauthorized("user not found", nil))
		return
	}

	recent, err := s.ledger.Completions(c.Request.Context(), userID, 5)
	if err != nil {
		c.Error(errutil.Internal("failed to query recent completions", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":            acct.Balance,
		"total_earned":       acct.TotalEarned,
		"surveys_completed":  acct.SurveysCompleted,
		"pending_surveys":    acct.PendingSurveys,
		"recent_completions": recent,
	})
}
