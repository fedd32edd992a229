package postback

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"surveyrewards/pkg/security"
	"surveyrewards/services/ledger"

	"github.com/gin-gonic/gin"
)

// BitLabs splits credits and reclaims across two callback URLs, so the
// outcome is fixed per adapter instance rather than read from the request.
type bitlabsAdapter struct {
	secret  string
	outcome ledger.Outcome
}

func NewBitlabsRewardAdapter(secret string) Adapter {
	return &bitlabsAdapter{secret: secret, outcome: ledger.OutcomeCredit}
}

func NewBitlabsReclaimAdapter(secret string) Adapter {
	return &bitlabsAdapter{secret: secret, outcome: ledger.OutcomeReverse}
}

func (a *bitlabsAdapter) Provider() ledger.Provider { return ledger.ProviderBitlabs }

func (a *bitlabsAdapter) AckAccepted() Ack {
	return Ack{Status: http.StatusOK, ContentType: "text/plain", Body: "OK"}
}

func (a *bitlabsAdapter) AckRejected() Ack {
	return Ack{Status: http.StatusForbidden, ContentType: "text/plain", Body: "ERROR"}
}

func (a *bitlabsAdapter) Parse(c *gin.Context) (*ledger.ProviderEvent, error) {
	var (
		uid  = c.Query("uid")
		tx   = c.Query("tx")
		val  = c.Query("val")
		hash = c.Query("hash")
	)

	if uid == "" || tx == "" || val == "" || hash == "" {
		return nil, ErrMalformedPayload
	}

	digest := sha1.Sum([]byte(uid + tx + val + a.secret))
	if !security.CompareDigest(hash, hex.EncodeToString(digest[:])) {
		return nil, ErrAuthenticationFailed
	}

	points, err := strconv.ParseInt(val, 10, 64)
	if err != nil || points < 0 {
		return nil, ErrMalformedPayload
	}

	raw, _ := json.Marshal(map[string]string{
		"uid":  uid,
		"tx":   tx,
		"val":  val,
		"hash": hash,
	})

	return &ledger.ProviderEvent{
		Provider:   ledger.ProviderBitlabs,
		ExternalID: tx,
		UserID:     uid,
		SurveyID:   c.Query("survey_id"),
		Points:     points,
		Outcome:    a.outcome,
		RawPayload: raw,
	}, nil
}
