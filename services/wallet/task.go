package wallet

import (
	"context"
	"encoding/json"
	"time"

	"surveyrewards/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var TaskModule = fx.Module("wallet.task",
	fx.Provide(NewService),
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.TypeWithdrawalProcess, svc.HandleProcessTask)
}

// HandleProcessTask settles a pending withdrawal. Status flips through a
// compare-and-update so a redelivered task cannot complete twice.
func (s *Service) HandleProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskname.WithdrawalProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("malformed withdrawal payload", zap.Error(err))
		return nil
	}

	res := s.db.WithContext(ctx).Model(&Withdrawal{}).
		Where("id = ? AND status = ?", payload.WithdrawalID, WithdrawalPending).
		Updates(map[string]any{
			"status":     WithdrawalCompleted,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		zap.L().Info("withdrawal already settled", zap.String("withdrawal_id", payload.WithdrawalID))
		return nil
	}

	zap.L().Info("withdrawal completed", zap.String("withdrawal_id", payload.WithdrawalID))
	return nil
}
