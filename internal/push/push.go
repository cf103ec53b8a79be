// Package push delivers best-effort device notifications to partners.
package push

import (
	"context"
	"errors"

	"github.com/labstack/gommon/log"
)

// ErrNoToken is returned when a message has no device address.
var ErrNoToken = errors.New("push: empty device token")

// Message is one notification for one device.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a message. Implementations make a single attempt.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender records pushes in the structured log instead of calling a
// provider. It is the sender used until a provider is configured.
type LogSender struct {
	Logger interface{ Infoj(log.JSON) }
}

func (s LogSender) Send(_ context.Context, m Message) error {
	if m.Token == "" {
		return ErrNoToken
	}
	s.Logger.Infoj(log.JSON{
		"event": "push.sent",
		"token": redact(m.Token),
		"title": m.Title,
		"body":  m.Body,
		"data":  m.Data,
	})
	return nil
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
