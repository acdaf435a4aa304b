package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	twilio "github.com/kevinburke/twilio-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// TwilioConfig holds Twilio credentials. All three credential fields are
// required; BaseURL overrides the API root.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

// Configured reports whether every credential is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// TwilioSender sends SMS through the Twilio Messages API.
// Sends are never retried: a retried POST may deliver twice.
type TwilioSender struct {
	cfg     TwilioConfig
	client  *twilio.Client
	circuit *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
}

// NewTwilioSender creates a sender. An unconfigured sender is valid; it
// refuses every message without network I/O.
func NewTwilioSender(cfg TwilioConfig, httpClient *http.Client, logger logrus.FieldLogger) *TwilioSender {
	s := &TwilioSender{
		cfg: cfg,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "twilio",
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     1 * time.Minute,
			// A rejected number is the subscriber's problem, not an outage.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errRejected)
			},
		}),
		logger: logger.WithField("sender", "twilio"),
	}
	if !cfg.Configured() {
		return s
	}

	s.client = twilio.NewClient(cfg.AccountSID, cfg.AuthToken, withStatusCapture(httpClient))
	if cfg.BaseURL != "" {
		s.client.Base = cfg.BaseURL
	}
	return s
}

var (
	errRejected = errors.New("message rejected")
	errUpstream = errors.New("twilio unavailable")
)

// Send posts the message. See Sender.
func (s *TwilioSender) Send(ctx context.Context, to, body string) bool {
	if s.client == nil {
		s.logger.WithField("to", to).Warn("twilio not configured; skipping sms")
		return false
	}

	res, err := s.circuit.Execute(func() (interface{}, error) {
		return s.create(ctx, to, body)
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"to": to, "error": err}).Warn("failed to send sms")
		return false
	}

	s.logger.WithFields(logrus.Fields{"to": to, "sid": res.(string)}).Info("sms sent")
	return true
}

func (s *TwilioSender) create(ctx context.Context, to, body string) (string, error) {
	data := url.Values{}
	data.Set("From", s.cfg.FromNumber)
	data.Set("To", to)
	data.Set("Body", body)

	status := new(int)
	msg, err := s.client.Messages.Create(context.WithValue(ctx, statusKey{}, status), data)
	if err != nil {
		kind := errUpstream
		if *status >= 400 && *status < 500 && *status != http.StatusTooManyRequests {
			kind = errRejected
		}
		return "", fmt.Errorf("%w: status %d: %v", kind, *status, err)
	}
	return msg.Sid, nil
}

type statusKey struct{}

// statusTransport records the response status into the *int carried by the
// request context under statusKey.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(r)
	if p, ok := r.Context().Value(statusKey{}).(*int); ok && resp != nil {
		*p = resp.StatusCode
	}
	return resp, err
}

func withStatusCapture(c *http.Client) *http.Client {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	wrapped := *c
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped.Transport = statusTransport{next: next}
	return &wrapped
}
