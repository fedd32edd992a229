package ledger

import (
	"time"

	"gorm.io/datatypes"
)

// Provider is the closed set of survey partners that deliver postbacks.
type Provider string

const (
	ProviderCPXResearch Provider = "cpx_research"
	ProviderInbrain     Provider = "inbrain"
	ProviderBitlabs     Provider = "bitlabs"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderCPXResearch, ProviderInbrain, ProviderBitlabs:
		return true
	}
	return false
}

type Kind string

const (
	KindCredit       Kind = "credit"
	KindReversal     Kind = "reversal"
	KindRejected     Kind = "rejected"
	KindDisqualified Kind = "disqualified"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusReversed  Status = "reversed"
	StatusRejected  Status = "rejected"
)

// Outcome is the three-valued normalization every adapter reduces a provider
// notification to. Sign and direction of the balance effect are decided by
// the ledger, never by the adapter.
type Outcome string

const (
	OutcomeCredit  Outcome = "credit"
	OutcomeReverse Outcome = "reverse_credit"
	OutcomeReject  Outcome = "reject"
)

// ProviderEvent is the adapter's normalized, authenticated output. It is
// ephemeral; the durable record is the Transaction row.
type ProviderEvent struct {
	Provider   Provider
	ExternalID string
	UserID     string
	SurveyID   string
	Points     int64 // magnitude claimed by the provider, always >= 0
	Outcome    Outcome
	RejectKind Kind // rejected or disqualified, only when Outcome is reject
	RawPayload []byte
}

// Transaction is the durable record of one external reward event.
// (provider, external_id) is the sole idempotency anchor; the composite
// unique index is what makes concurrent duplicate deliveries collapse into
// one row. Points carries the signed amount actually applied to the balance.
type Transaction struct {
	ID         string         `gorm:"column:id;primaryKey" json:"transaction_id"`
	Provider   Provider       `gorm:"column:provider;type:varchar(32);not null;uniqueIndex:ux_transactions_provider_external,priority:1" json:"provider"`
	ExternalID string         `gorm:"column:external_id;type:varchar(191);not null;uniqueIndex:ux_transactions_provider_external,priority:2" json:"external_id"`
	UserID     string         `gorm:"column:user_id;index;not null" json:"user_id"`
	SurveyID   string         `gorm:"column:survey_id;index" json:"survey_id,omitempty"`
	Kind       Kind           `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	Points     int64          `gorm:"column:points;not null" json:"points"`
	Status     Status         `gorm:"column:status;type:varchar(16);not null" json:"status"`
	RawPayload datatypes.JSON `gorm:"column:raw_payload" json:"-"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at" json:"updated_at"`
}
