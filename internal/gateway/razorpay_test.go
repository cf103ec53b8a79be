package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeOrders struct {
	body  map[string]interface{}
	err   error
	delay time.Duration
	got   map[string]interface{}
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.body, f.err
}

func TestSignVerify(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	if len(sig) != 64 {
		t.Fatalf("signature length %d", len(sig))
	}
	if !Verify("secret", "order_1", "pay_1", sig) {
		t.Fatal("valid signature rejected")
	}
	cases := map[string][4]string{
		"wrong secret":  {"other", "order_1", "pay_1", sig},
		"wrong order":   {"secret", "order_2", "pay_1", sig},
		"wrong payment": {"secret", "order_1", "pay_2", sig},
		"empty sig":     {"secret", "order_1", "pay_1", ""},
		"tampered":      {"secret", "order_1", "pay_1", strings.Repeat("0", 64)},
	}
	for name, c := range cases {
		if Verify(c[0], c[1], c[2], c[3]) {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestCreateOrder(t *testing.T) {
	f := &fakeOrders{body: map[string]interface{}{"id": "order_abc", "receipt": "rcpt_1", "currency": "INR"}}
	g := NewWithOrders(f, "secret", time.Second)
	h, err := g.CreateOrder(context.Background(), 49900, "INR", "rcpt_1")
	if err != nil {
		t.Fatal(err)
	}
	if h.OrderID != "order_abc" || h.Amount != 49900 || h.Currency != "INR" || h.Receipt != "rcpt_1" {
		t.Fatalf("handle = %+v", h)
	}
	if f.got["amount"] != int64(49900) {
		t.Fatalf("amount sent = %v", f.got["amount"])
	}
}

func TestCreateOrderFailures(t *testing.T) {
	tests := []struct {
		name    string
		orders  *fakeOrders
		timeout time.Duration
	}{
		{"sdk error", &fakeOrders{err: errors.New("boom")}, time.Second},
		{"missing id", &fakeOrders{body: map[string]interface{}{"status": "created"}}, time.Second},
		{"timeout", &fakeOrders{body: map[string]interface{}{"id": "order_x"}, delay: 200 * time.Millisecond}, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithOrders(tt.orders, "secret", tt.timeout)
			_, err := g.CreateOrder(context.Background(), 100, "INR", "r")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("err = %v; want ErrUnavailable", err)
			}
		})
	}
}

func TestSandboxOrders(t *testing.T) {
	g := NewWithOrders(Sandbox{}, "secret", time.Second)
	a, err := g.CreateOrder(context.Background(), 100, "INR", "r1")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := g.CreateOrder(context.Background(), 100, "INR", "r2")
	if !strings.HasPrefix(a.OrderID, "order_") || a.OrderID == b.OrderID {
		t.Fatalf("ids %q %q", a.OrderID, b.OrderID)
	}
	if !g.VerifySignature(a.OrderID, "pay_1", Sign("secret", a.OrderID, "pay_1")) {
		t.Fatal("sandbox order signature rejected")
	}
}
