package taskname

// Task type names shared between enqueuing services and the worker binary.
const (
	TypePostbackSettled   = "postback:settled"
	TypeWithdrawalProcess = "withdrawal:process"
)

type PostbackSettledPayload struct {
	UserID   string `json:"user_id"`
	SurveyID string `json:"survey_id"`
}

type WithdrawalProcessPayload struct {
	WithdrawalID string `json:"withdrawal_id"`
}
