package survey

import (
	"context"
	"encoding/json"
	"time"

	"surveyrewards/pkg/taskname"
	"surveyrewards/services/account"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var TaskModule = fx.Module("survey.task",
	fx.Provide(NewService),
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.TypePostbackSettled, svc.HandleSettledTask)
}

// HandleSettledTask clears the pending marker after a credit has been
// committed and acked. Best effort: the counters here are presentation
// state, not part of the ledger.
func (s *Service) HandleSettledTask(ctx context.Context, t *asynq.Task) error {
	var payload taskname.PostbackSettledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("malformed settlement payload", zap.Error(err))
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND survey_id = ?", payload.UserID, payload.SurveyID).
			Delete(&PendingSurvey{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&account.Account{}).
			Where("id = ?", payload.UserID).
			Updates(map[string]any{
				"pending_surveys": gorm.Expr("pending_surveys - 1"),
				"updated_at":      time.Now(),
			}).Error
	})
}
