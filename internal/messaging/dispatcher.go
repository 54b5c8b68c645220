package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/associahq/associa/internal/config"
)

// Dispatcher hands a reply to the outbound message transport. Delivery is
// attempted exactly once per inbound event; failures are the transport's
// problem, not a correctness concern of the engine.
type Dispatcher interface {
	Send(ctx context.Context, toCanonicalPhone, text string) error
}

// WhatsAppDispatcher posts outbound messages to a Twilio-style messaging
// API over form-encoded HTTP.
type WhatsAppDispatcher struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	http       *http.Client
	logger     *slog.Logger
}

func NewWhatsAppDispatcher(log *slog.Logger, cfg config.WhatsAppConfig) *WhatsAppDispatcher {
	if log == nil {
		log = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppDispatcher{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		http:       &http.Client{Timeout: timeout},
		logger:     log.With(slog.String("service", "whatsapp_dispatcher")),
	}
}

func (d *WhatsAppDispatcher) Send(ctx context.Context, toCanonicalPhone, text string) error {
	form := url.Values{}
	form.Set("From", "whatsapp:+"+strings.TrimPrefix(d.from, "+"))
	form.Set("To", "whatsapp:+"+toCanonicalPhone)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", d.baseURL, d.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build outbound request: %w", err)
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("deliver message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deliver message: transport returned status %d", resp.StatusCode)
	}
	return nil
}
