package postback

import (
	"encoding/json"
	"errors"
	"net/http"

	"surveyrewards/pkg/task"
	"surveyrewards/pkg/taskname"
	"surveyrewards/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	ledger   *ledger.Service
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	Ledger   *ledger.Service
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		ledger:   p.Ledger,
		enqueuer: p.Enqueuer,
	}
}

// Handle builds the gin handler for one partner adapter. Authentication and
// parsing happen before anything is written; after that the ledger decides,
// and the partner only ever sees that adapter's fixed accept or reject
// literal. A store failure is the one case answered outside the contract
// literals, with a retryable 500.
func (s *Service) Handle(adapter Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())

		zapLog := zap.L().With(
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("provider", string(adapter.Provider())),
			zap.String("remote_addr", c.ClientIP()),
		)

		ev, err := adapter.Parse(c)
		if err != nil {
			switch {
			case errors.Is(err, ErrAuthenticationFailed):
				zapLog.Warn("postback rejected: authentication failed")
			default:
				zapLog.Warn("postback rejected: malformed payload", zap.Error(err))
			}
			respond(c, adapter.AckRejected())
			return
		}

		_, err = s.ledger.Record(c.Request.Context(), *ev)
		switch {
		case err == nil:
			if ev.Outcome == ledger.OutcomeCredit {
				s.enqueueSettled(zapLog, ev)
			}
			respond(c, adapter.AckAccepted())
		case errors.Is(err, ledger.ErrDuplicateEvent), errors.Is(err, ledger.ErrAlreadyReversed):
			// Retries of an already-settled event get the success ack so the
			// partner stops redelivering.
			respond(c, adapter.AckAccepted())
		case errors.Is(err, ledger.ErrUserNotFound),
			errors.Is(err, ledger.ErrReversalTargetMissing),
			errors.Is(err, ledger.ErrInvalidEvent):
			respond(c, adapter.AckRejected())
		default:
			zapLog.Error("postback processing failed", zap.Error(err))
			c.String(http.StatusInternalServerError, "temporary failure")
		}
	}
}

func (s *Service) enqueueSettled(zapLog *zap.Logger, ev *ledger.ProviderEvent) {
	if s.enqueuer == nil || ev.SurveyID == "" {
		return
	}

	payload, _ := json.Marshal(taskname.PostbackSettledPayload{
		UserID:   ev.UserID,
		SurveyID: ev.SurveyID,
	})
	if _, err := s.enqueuer.Enqueue(asynq.NewTask(taskname.TypePostbackSettled, payload, asynq.Queue("low"))); err != nil {
		zapLog.Error("failed to enqueue settlement task", zap.Error(err))
	}
}
