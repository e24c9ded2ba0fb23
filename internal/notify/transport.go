package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/msbfinance/loan-office/internal/config"
)

// ErrPermanent marks a delivery failure that retrying cannot fix
// (rejected recipient, bad credentials). The dispatcher surfaces it
// without exhausting the retry bound.
var ErrPermanent = errors.New("permanent delivery failure")

// Transport delivers a single plain-text message. Implementations must be
// safe for concurrent use and must honour ctx cancellation.
type Transport interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// SMTPTransport sends mail directly over SMTP.
type SMTPTransport struct {
	addr   string
	host   string
	user   string
	pass   string
	sender string
}

// NewSMTPTransport builds an SMTP transport from configuration.
func NewSMTPTransport(cfg *config.Config) *SMTPTransport {
	return &SMTPTransport{
		addr:   fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		host:   cfg.SMTPHost,
		user:   cfg.SMTPUsername,
		pass:   cfg.SMTPPassword,
		sender: cfg.SenderEmail,
	}
}

// Deliver sends one message. A fresh email value per call keeps concurrent
// sends from sharing a message buffer.
func (t *SMTPTransport) Deliver(ctx context.Context, to, subject, body string) error {
	e := email.NewEmail()
	e.From = t.sender
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	done := make(chan error, 1)
	go func() {
		var auth smtp.Auth
		if t.user != "" {
			auth = smtp.PlainAuth("", t.user, t.pass, t.host)
		}
		done <- e.Send(t.addr, auth)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RelayTransport posts mail to an HTTP relay endpoint. The wire contract
// matches the hosted relay: JSON {to, subject, message} in, {success,
// message} out.
type RelayTransport struct {
	url    string
	client *http.Client
}

// NewRelayTransport builds a relay transport from configuration.
func NewRelayTransport(cfg *config.Config) *RelayTransport {
	return &RelayTransport{
		url:    cfg.RelayURL,
		client: &http.Client{},
	}
}

type relayRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Deliver posts the message to the relay. 4xx responses are permanent; 5xx
// and network errors are transient.
func (t *RelayTransport) Deliver(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(relayRequest{To: to, Subject: subject, Message: body})
	if err != nil {
		return fmt.Errorf("encode relay request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read relay response: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("relay rejected message (%d): %w", resp.StatusCode, ErrPermanent)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var result relayResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	if !result.Success {
		if result.Message == "" {
			result.Message = "relay reported failure"
		}
		return fmt.Errorf("%s", result.Message)
	}
	return nil
}
