package postback

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"surveyrewards/pkg/security"
	"surveyrewards/services/ledger"

	"github.com/gin-gonic/gin"
)

// inBrain posts a JSON body and signals the outcome with a string status.
// Signature is sha256(userId + transactionId + secret); the reward amount is
// deliberately excluded from the digest by their contract.
type inbrainAdapter struct {
	secret string
}

type inbrainPayload struct {
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId"`
	Reward        int64  `json:"reward"`
	SurveyID      string `json:"surveyId"`
	Status        string `json:"status"`
	Signature     string `json:"signature"`
}

func NewInbrainAdapter(secret string) Adapter {
	return &inbrainAdapter{secret: secret}
}

func (a *inbrainAdapter) Provider() ledger.Provider { return ledger.ProviderInbrain }

func (a *inbrainAdapter) AckAccepted() Ack {
	return Ack{Status: http.StatusOK, ContentType: "application/json", Body: `{"result":"ok"}`}
}

func (a *inbrainAdapter) AckRejected() Ack {
	return Ack{Status: http.StatusBadRequest, ContentType: "application/json", Body: `{"result":"error"}`}
}

func (a *inbrainAdapter) Parse(c *gin.Context) (*ledger.ProviderEvent, error) {
	var payload inbrainPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, ErrMalformedPayload
	}

	if payload.UserID == "" || payload.TransactionID == "" || payload.Status == "" || payload.Signature == "" {
		return nil, ErrMalformedPayload
	}

	digest := sha256.Sum256([]byte(payload.UserID + payload.TransactionID + a.secret))
	if !security.CompareDigest(payload.Signature, hex.EncodeToString(digest[:])) {
		return nil, ErrAuthenticationFailed
	}

	if payload.Reward < 0 {
		return nil, ErrMalformedPayload
	}

	ev := &ledger.ProviderEvent{
		Provider:   ledger.ProviderInbrain,
		ExternalID: payload.TransactionID,
		UserID:     payload.UserID,
		SurveyID:   payload.SurveyID,
		Points:     payload.Reward,
	}

	switch payload.Status {
	case "completed":
		ev.Outcome = ledger.OutcomeCredit
	case "reversed":
		ev.Outcome = ledger.OutcomeReverse
	case "rejected":
		ev.Outcome = ledger.OutcomeReject
		ev.RejectKind = ledger.KindRejected
	default:
		return nil, ErrMalformedPayload
	}

	raw, _ := json.Marshal(payload)
	ev.RawPayload = raw

	return ev, nil
}
