package gateway

import (
	"strings"

	"github.com/google/uuid"
)

// Sandbox is an OrderCreator that mints order ids locally. It backs
// RAZORPAY_DRIVER=sandbox for development; signatures are still checked
// against the configured secret, so clients sign with Sign.
type Sandbox struct{}

func (Sandbox) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"id":     "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		"status": "created",
	}
	for _, k := range []string{"amount", "currency", "receipt"} {
		body[k] = data[k]
	}
	return body, nil
}
