// Package notify sends operator and applicant emails through a single
// configured transport with a bounded retry policy.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msbfinance/loan-office/internal/config"
)

// Dispatcher retries a transport a fixed number of times with a fixed
// inter-attempt delay. Each attempt runs under its own timeout; a timed-out
// attempt counts against the bound. There is no dead-letter store: after
// the last attempt the failure is returned to the caller.
type Dispatcher struct {
	transport Transport
	attempts  int
	delay     time.Duration
	timeout   time.Duration
	log       *logrus.Logger
}

// NewDispatcher builds a dispatcher around the given transport.
func NewDispatcher(transport Transport, cfg *config.Config, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		attempts:  cfg.MailAttempts,
		delay:     cfg.MailRetryDelay,
		timeout:   cfg.MailAttemptTimeout,
		log:       log,
	}
}

// Send delivers one message, retrying transient failures up to the
// configured bound. Permanent failures short-circuit the loop.
func (d *Dispatcher) Send(ctx context.Context, to, subject, body string) error {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.transport.Deliver(attemptCtx, to, subject, body)
		cancel()
		if err == nil {
			d.log.WithFields(logrus.Fields{"to": to, "subject": subject, "attempt": attempt}).
				Info("email sent")
			return nil
		}
		lastErr = err
		d.log.WithFields(logrus.Fields{"to": to, "subject": subject, "attempt": attempt}).
			Warnf("email attempt failed: %v", err)

		if errors.Is(err, ErrPermanent) {
			break
		}
		if attempt < d.attempts {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				return fmt.Errorf("send aborted: %w", ctx.Err())
			}
		}
	}
	d.log.WithFields(logrus.Fields{"to": to, "subject": subject}).
		Errorf("email delivery failed: %v", lastErr)
	return fmt.Errorf("deliver to %s: %w", to, lastErr)
}

// BestEffort runs Send and reports only whether delivery succeeded. The
// error is logged inside Send; callers must not fail their primary
// operation on a false return.
func (d *Dispatcher) BestEffort(ctx context.Context, to, subject, body string) bool {
	return d.Send(ctx, to, subject, body) == nil
}
