package postback

import (
	"errors"

	"surveyrewards/services/ledger"

	"github.com/gin-gonic/gin"
)

var (
	// ErrAuthenticationFailed: bad or missing signature. The adapter fails
	// closed; neither the idempotency guard nor the ledger is reached.
	ErrAuthenticationFailed = errors.New("postback signature verification failed")

	// ErrMalformedPayload: a required field is missing or unparseable.
	ErrMalformedPayload = errors.New("malformed postback payload")
)

// Ack is a partner's fixed acknowledgment literal. Body and status are
// dictated by each integration contract and must be preserved byte-for-byte.
type Ack struct {
	Status      int
	ContentType string
	Body        string
}

// Adapter turns one partner's wire format into a normalized ProviderEvent,
// or fails closed. Parsing is a pure transform over the request and the
// partner secret; adapters never touch the store.
type Adapter interface {
	Provider() ledger.Provider
	Parse(c *gin.Context) (*ledger.ProviderEvent, error)
	AckAccepted() Ack
	AckRejected() Ack
}

func respond(c *gin.Context, ack Ack) {
	c.Data(ack.Status, ack.ContentType, []byte(ack.Body))
}
