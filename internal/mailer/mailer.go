package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"langlearn-server/internal/logger"
)

const defaultBaseURL = "https://api.sendgrid.com"

type Message struct {
	To      string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// New returns a SendGrid mailer, or a log-only mailer when no API key is set.
func New(log *logger.Logger, cfg Config) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("SENDGRID_API_KEY not set; mail will only be logged")
		return &LogMailer{log: log.With("component", "LogMailer")}
	}
	return NewSendGrid(log, cfg)
}

type SendGrid struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

func NewSendGrid(log *logger.Logger, cfg Config) *SendGrid {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SendGrid{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With("component", "SendGrid"),
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("sendgrid: missing recipient")
	}
	body, err := json.Marshal(sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: s.cfg.FromEmail, Name: s.cfg.FromName},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/plain", Value: msg.Text}},
	})
	if err != nil {
		return fmt.Errorf("sendgrid: encode: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/v3/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sendgrid: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	s.log.Debug("mail sent", "subject", msg.Subject)
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log *logger.Logger
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("mail not delivered (no provider configured)", "subject", msg.Subject, "recipients", 1)
	return nil
}
