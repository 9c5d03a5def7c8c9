// Package chat forwards user messages to a generative-language API and
// relays the reply.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"authchat/internal/errutil"
)

// Client-facing messages.
const (
	MsgMessageRequired = "Message is required"
	FallbackReply      = "Sorry, I'm having trouble responding right now. Please try again later."
)

const defaultTimeout = 30 * time.Second

// ErrNotConfigured is returned by Unavailable.
var ErrNotConfigured = errors.New("chat API key is not configured")

// Generator produces a reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder receives the outcome of every upstream call.
type Recorder interface {
	RecordExternalCall(service string, err error)
}

// Proxy validates chat messages and forwards them to a Generator.
type Proxy struct {
	gen      Generator
	timeout  time.Duration
	logger   *zap.Logger
	recorder Recorder
}

// NewProxy returns a Proxy bounding each upstream call by timeout.
// logger and recorder may be nil.
func NewProxy(gen Generator, timeout time.Duration, logger *zap.Logger, recorder Recorder) *Proxy {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{gen: gen, timeout: timeout, logger: logger, recorder: recorder}
}

// Reply returns the upstream reply to message. Upstream failures are
// returned as EXTERNAL_SERVICE errors; callers answer them with FallbackReply.
func (p *Proxy) Reply(ctx context.Context, message string) (string, error) {
	if err := validation.Validate(strings.TrimSpace(message), validation.Required); err != nil {
		return "", errutil.Validation(MsgMessageRequired)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reply, err := p.gen.Generate(ctx, message)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty reply")
	}
	if p.recorder != nil {
		p.recorder.RecordExternalCall("chat", err)
	}
	if err != nil {
		return "", errutil.ExternalService("chat", err)
	}
	return reply, nil
}

// Unavailable is used when no API key is configured; every call fails over
// to the fallback reply.
type Unavailable struct{}

// Generate always returns ErrNotConfigured.
func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
