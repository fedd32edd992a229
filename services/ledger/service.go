package ledger

import (
	"context"
	"errors"
	"time"

	"surveyrewards/pkg/db/option"
	"surveyrewards/pkg/repository"
	"surveyrewards/services/account"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	transactions repository.Repository[Transaction]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		transactions: repository.ProvideStore[Transaction](p.DB),
	}
}

// Record applies one normalized provider event to the ledger exactly once.
// Reservation (the conditional insert on the idempotency anchor) and the
// balance mutation run in one store transaction, so a failure between them
// cannot strand a reservation: the rollback releases it and the provider's
// retry is treated as pending again.
func (s *Service) Record(ctx context.Context, ev ProviderEvent) (*Transaction, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("provider", string(ev.Provider)),
		zap.String("external_id", ev.ExternalID),
		zap.String("user_id", ev.UserID),
		zap.String("outcome", string(ev.Outcome)),
	)

	if !ev.Provider.Valid() || ev.ExternalID == "" || ev.Points < 0 {
		return nil, ErrInvalidEvent
	}

	switch ev.Outcome {
	case OutcomeCredit:
		return s.credit(ctx, zapLog, ev)
	case OutcomeReverse:
		return s.reverse(ctx, zapLog, ev)
	case OutcomeReject:
		return s.reject(ctx, zapLog, ev)
	default:
		return nil, ErrInvalidEvent
	}
}

func (s *Service) credit(ctx context.Context, zapLog *zap.Logger, ev ProviderEvent) (*Transaction, error) {
	if ev.UserID == "" || ev.Points <= 0 {
		return nil, ErrInvalidEvent
	}

	txn := &Transaction{
		ID:         s.node.Generate().String(),
		Provider:   ev.Provider,
		ExternalID: ev.ExternalID,
		UserID:     ev.UserID,
		SurveyID:   ev.SurveyID,
		Kind:       KindCredit,
		Points:     ev.Points,
		Status:     StatusCompleted,
		RawPayload: ev.RawPayload,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reserve(tx, txn); err != nil {
			return err
		}
		return s.apply(tx, ev.UserID, ev.Points, KindCredit)
	})

	switch {
	case err == nil:
		zapLog.Info("credit applied", zap.Int64("points", ev.Points))
		return txn, nil
	case errors.Is(err, ErrDuplicateEvent):
		existing, findErr := s.transactions.FindOne(ctx, &Transaction{Provider: ev.Provider, ExternalID: ev.ExternalID})
		if findErr == nil && existing != nil {
			zapLog.Info("duplicate credit ignored", zap.String("status", string(existing.Status)))
			return existing, ErrDuplicateEvent
		}
		return nil, ErrDuplicateEvent
	case errors.Is(err, ErrUserNotFound):
		zapLog.Warn("credit for unknown user rejected")
		return nil, err
	default:
		zapLog.Error("failed to record credit", zap.Error(err))
		return nil, err
	}
}

func (s *Service) reverse(ctx context.Context, zapLog *zap.Logger, ev ProviderEvent) (*Transaction, error) {
	var reversed Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orig Transaction
		err := tx.Scopes(option.LockingUpdate).
			Where("provider = ? AND external_id = ?", ev.Provider, ev.ExternalID).
			First(&orig).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReversalTargetMissing
		}
		if err != nil {
			return err
		}

		if orig.Status == StatusReversed {
			return ErrAlreadyReversed
		}
		if orig.Kind != KindCredit || orig.Status != StatusCompleted {
			return ErrReversalTargetMissing
		}

		// Compare-and-update on status: exactly one of any concurrent
		// reversals for this external_id can win this flip.
		res := tx.Model(&Transaction{}).
			Where("id = ? AND status = ?", orig.ID, StatusCompleted).
			Updates(map[string]any{
				"status":     StatusReversed,
				"kind":       KindReversal,
				"points":     -orig.Points,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReversed
		}

		reversed = orig
		reversed.Status = StatusReversed
		reversed.Kind = KindReversal
		reversed.Points = -orig.Points

		// The amount reversed is the originally credited amount, never the
		// value the reversal payload claims.
		return s.apply(tx, orig.UserID, -orig.Points, KindReversal)
	})

	switch {
	case err == nil:
		zapLog.Info("credit reversed", zap.Int64("points", reversed.Points))
		return &reversed, nil
	case errors.Is(err, ErrAlreadyReversed):
		zapLog.Info("duplicate reversal ignored")
		return nil, err
	case errors.Is(err, ErrReversalTargetMissing):
		zapLog.Warn("reversal without matching credit", zap.Int64("claimed_points", ev.Points))
		return nil, err
	default:
		zapLog.Error("failed to record reversal", zap.Error(err))
		return nil, err
	}
}

// reject records the idempotency key for a rejected or disqualified outcome
// without touching any balance, so provider retries of the rejection are
// recognized as duplicates.
func (s *Service) reject(ctx context.Context, zapLog *zap.Logger, ev ProviderEvent) (*Transaction, error) {
	kind := ev.RejectKind
	if kind != KindRejected && kind != KindDisqualified {
		kind = KindRejected
	}

	txn := &Transaction{
		ID:         s.node.Generate().String(),
		Provider:   ev.Provider,
		ExternalID: ev.ExternalID,
		UserID:     ev.UserID,
		SurveyID:   ev.SurveyID,
		Kind:       kind,
		Points:     0,
		Status:     StatusRejected,
		RawPayload: ev.RawPayload,
	}

	err := s.reserve(s.db.WithContext(ctx), txn)
	switch {
	case err == nil:
		zapLog.Info("rejection recorded", zap.String("kind", string(kind)))
		return txn, nil
	case errors.Is(err, ErrDuplicateEvent):
		zapLog.Info("duplicate rejection ignored")
		return nil, err
	default:
		zapLog.Error("failed to record rejection", zap.Error(err))
		return nil, err
	}
}

// reserve is the idempotency guard: one atomic conditional insert on the
// (provider, external_id) unique index. Never an existence check followed by
// an insert; concurrent deliveries of the same event must not both observe
// "absent".
func (s *Service) reserve(tx *gorm.DB, txn *Transaction) error {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(txn)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

// apply issues the single atomic multi-field increment for one event. The
// delta is fixed by the event; the current balance is never read to compute
// it, so concurrent applies commute.
func (s *Service) apply(tx *gorm.DB, userID string, delta int64, kind Kind) error {
	updates := map[string]any{
		"balance":      gorm.Expr("balance + ?", delta),
		"total_earned": gorm.Expr("total_earned + ?", delta),
		"updated_at":   time.Now(),
	}
	switch kind {
	case KindCredit:
		updates["surveys_completed"] = gorm.Expr("surveys_completed + 1")
	case KindReversal:
		updates["surveys_completed"] = gorm.Expr("surveys_completed - 1")
	}

	res := tx.Model(&account.Account{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Completions lists a user's credit transactions, newest first.
func (s *Service) Completions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	return s.transactions.Find(ctx,
		&Transaction{UserID: userID, Kind: KindCredit},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithLimit(limit),
	)
}

// CompletedSurveyIDs returns the catalog survey ids the user has a completed
// credit for; used to filter the catalog listing.
func (s *Service) CompletedSurveyIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.transactions.Find(ctx, &Transaction{UserID: userID, Kind: KindCredit, Status: StatusCompleted})
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.SurveyID != "" {
			ids[row.SurveyID] = true
		}
	}
	return ids, nil
}
