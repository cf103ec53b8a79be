// Package gateway talks to the Razorpay Orders API and checks the
// checkout signature the client returns after payment.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/tintd/salon-dispatch/internal/service"
)

// ErrUnavailable is returned when the gateway fails or does not answer in time.
var ErrUnavailable = errors.New("payment gateway unavailable")

// OrderCreator is the Orders resource of the Razorpay client.
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay implements service.Gateway.
type Razorpay struct {
	orders  OrderCreator
	secret  string
	timeout time.Duration
}

// NewRazorpay builds a gateway from API credentials.
func NewRazorpay(keyID, secret string, timeout time.Duration) *Razorpay {
	return NewWithOrders(razorpay.NewClient(keyID, secret).Order, secret, timeout)
}

// NewWithOrders builds a gateway around an arbitrary order creator.
func NewWithOrders(orders OrderCreator, secret string, timeout time.Duration) *Razorpay {
	return &Razorpay{orders: orders, secret: secret, timeout: timeout}
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder registers an order for amount minor units. The SDK call is
// not context aware, so it runs in its own goroutine and is abandoned on
// timeout.
func (g *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (service.OrderHandle, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	done := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(map[string]interface{}{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
		}, nil)
		done <- createResult{body, err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return service.OrderHandle{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return service.OrderHandle{}, fmt.Errorf("%w: %v", ErrUnavailable, res.err)
	}
	id, _ := res.body["id"].(string)
	if id == "" {
		return service.OrderHandle{}, fmt.Errorf("%w: order response without id", ErrUnavailable)
	}
	h := service.OrderHandle{OrderID: id, Receipt: receipt, Amount: amount, Currency: currency}
	if r, ok := res.body["receipt"].(string); ok && r != "" {
		h.Receipt = r
	}
	if c, ok := res.body["currency"].(string); ok && c != "" {
		h.Currency = c
	}
	return h, nil
}

// VerifySignature checks signature against HMAC-SHA256(secret, orderID|paymentID).
func (g *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return Verify(g.secret, orderID, paymentID, signature)
}

// Sign returns the hex signature the gateway issues for a payment.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature with Sign in constant time.
func Verify(secret, orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, orderID, paymentID)), []byte(signature))
}
