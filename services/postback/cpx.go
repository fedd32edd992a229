package postback

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"surveyrewards/pkg/security"
	"surveyrewards/services/ledger"

	"github.com/gin-gonic/gin"
)

// CPX Research delivers GET postbacks with query parameters. The numeric
// status field carries the outcome: 1 credit, 2 reversal (fraud/chargeback),
// 3 disqualified. Signature is md5(user_id + trans_id + amount + secret)
// over the raw parameter strings.
type cpxAdapter struct {
	secret string
}

func NewCPXAdapter(secret string) Adapter {
	return &cpxAdapter{secret: secret}
}

func (a *cpxAdapter) Provider() ledger.Provider { return ledger.ProviderCPXResearch }

func (a *cpxAdapter) AckAccepted() Ack {
	return Ack{Status: http.StatusOK, ContentType: "text/plain", Body: "1"}
}

func (a *cpxAdapter) AckRejected() Ack {
	return Ack{Status: http.StatusBadRequest, ContentType: "text/plain", Body: "0"}
}

func (a *cpxAdapter) Parse(c *gin.Context) (*ledger.ProviderEvent, error) {
	q := c.Request.URL.Query()

	status := q.Get("status")
	userID := q.Get("user_id")
	transID := q.Get("trans_id")
	amount := q.Get("amount")
	signature := q.Get("hash")

	if status == "" || userID == "" || transID == "" || amount == "" || signature == "" {
		return nil, ErrMalformedPayload
	}

	digest := md5.Sum([]byte(userID + transID + amount + a.secret))
	if !security.CompareDigest(signature, hex.EncodeToString(digest[:])) {
		return nil, ErrAuthenticationFailed
	}

	points, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || points < 0 {
		return nil, ErrMalformedPayload
	}

	ev := &ledger.ProviderEvent{
		Provider:   ledger.ProviderCPXResearch,
		ExternalID: transID,
		UserID:     userID,
		SurveyID:   q.Get("survey_id"),
		Points:     points,
	}

	switch status {
	case "1":
		ev.Outcome = ledger.OutcomeCredit
	case "2":
		ev.Outcome = ledger.OutcomeReverse
	case "3":
		ev.Outcome = ledger.OutcomeReject
		ev.RejectKind = ledger.KindDisqualified
	default:
		return nil, ErrMalformedPayload
	}

	raw, _ := json.Marshal(map[string]string{
		"status":    status,
		"user_id":   userID,
		"trans_id":  transID,
		"amount":    amount,
		"survey_id": q.Get("survey_id"),
	})
	ev.RawPayload = raw

	return ev, nil
}
