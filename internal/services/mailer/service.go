// -----------------------------------------------------------------------
// Mailer Service - SMTP delivery of report emails
// Settings come from KeyValue storage (smtp_ prefix) over the [smtp] config section
// -----------------------------------------------------------------------

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
)

// ErrNotConfigured is returned when host, credentials or sender are missing
var ErrNotConfigured = errors.New("SMTP is not configured")

// Config holds the effective SMTP settings
type Config struct {
	Host     string `json:"smtp_host"`
	Port     int    `json:"smtp_port"`
	Username string `json:"smtp_username"`
	Password string `json:"smtp_password"`
	From     string `json:"smtp_from"`
	FromName string `json:"smtp_from_name"`
	UseTLS   bool   `json:"smtp_use_tls"`
}

// Attachment represents an email attachment
type Attachment struct {
	Filename    string // Filename for the attachment
	ContentType string // MIME type, defaults to application/octet-stream
	Content     []byte
}

// Message is an outgoing email
type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

type sendFunc func(ctx context.Context, cfg *Config, to []string, msg []byte) error

// Service sends email using SMTP settings from KV storage or config
type Service struct {
	kvStorage interfaces.KeyValueStorage
	fallback  common.SMTPConfig
	timeout   time.Duration
	logger    arbor.ILogger
	send      sendFunc
	now       func() time.Time
}

// NewService creates a new mailer service
func NewService(kvStorage interfaces.KeyValueStorage, fallback common.SMTPConfig, logger arbor.ILogger) *Service {
	s := &Service{
		kvStorage: kvStorage,
		fallback:  fallback,
		timeout:   common.ParseDuration(fallback.Timeout, 30*time.Second),
		logger:    logger,
		now:       time.Now,
	}
	s.send = s.deliver
	return s
}

// GetConfig returns the config section overlaid with any smtp_* keys from KV storage
func (s *Service) GetConfig(ctx context.Context) (*Config, error) {
	config := &Config{
		Host:     s.fallback.Host,
		Port:     s.fallback.Port,
		Username: s.fallback.Username,
		Password: s.fallback.Password,
		From:     s.fallback.From,
		FromName: s.fallback.FromName,
		UseTLS:   s.fallback.UseTLS,
	}
	if config.Port == 0 {
		config.Port = 587
	}
	if config.FromName == "" {
		config.FromName = "Roomathon"
	}

	if s.kvStorage == nil {
		return config, nil
	}

	if host, err := s.kvStorage.Get(ctx, "smtp_host"); err == nil && host != "" {
		config.Host = host
	}
	if portStr, err := s.kvStorage.Get(ctx, "smtp_port"); err == nil && portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Port = port
		}
	}
	if username, err := s.kvStorage.Get(ctx, "smtp_username"); err == nil && username != "" {
		config.Username = username
	}
	if password, err := s.kvStorage.Get(ctx, "smtp_password"); err == nil && password != "" {
		config.Password = password
	}
	if from, err := s.kvStorage.Get(ctx, "smtp_from"); err == nil && from != "" {
		config.From = from
	}
	if fromName, err := s.kvStorage.Get(ctx, "smtp_from_name"); err == nil && fromName != "" {
		config.FromName = fromName
	}
	if tlsStr, err := s.kvStorage.Get(ctx, "smtp_use_tls"); err == nil && tlsStr != "" {
		config.UseTLS = strings.ToLower(tlsStr) == "true" || tlsStr == "1"
	}

	return config, nil
}

// SetConfig saves SMTP configuration to KeyValue storage
func (s *Service) SetConfig(ctx context.Context, config *Config) error {
	if s.kvStorage == nil {
		return fmt.Errorf("no key/value storage available")
	}

	values := []struct {
		key, value, description string
	}{
		{"smtp_host", config.Host, "SMTP server hostname"},
		{"smtp_port", strconv.Itoa(config.Port), "SMTP server port"},
		{"smtp_username", config.Username, "SMTP username"},
		{"smtp_password", config.Password, "SMTP password or app password"},
		{"smtp_from", config.From, "From email address"},
		{"smtp_from_name", config.FromName, "From display name"},
		{"smtp_use_tls", strconv.FormatBool(config.UseTLS), "Use TLS encryption"},
	}
	for _, v := range values {
		if err := s.kvStorage.Set(ctx, v.key, v.value, v.description); err != nil {
			return fmt.Errorf("failed to set %s: %w", v.key, err)
		}
	}

	s.logger.Info().
		Str("host", config.Host).
		Int("port", config.Port).
		Str("from", config.From).
		Msg("Mail configuration saved")

	return nil
}

// IsConfigured checks if SMTP is configured with minimum required settings
func (s *Service) IsConfigured(ctx context.Context) bool {
	config, err := s.GetConfig(ctx)
	if err != nil {
		return false
	}
	return config.validate() == nil
}

func (c *Config) validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: host missing", ErrNotConfigured)
	case c.Username == "" || c.Password == "":
		return fmt.Errorf("%w: credentials missing", ErrNotConfigured)
	case c.From == "":
		return fmt.Errorf("%w: from address missing", ErrNotConfigured)
	}
	return nil
}

// Send delivers msg to every recipient in a single SMTP transaction
func (s *Service) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	config, err := s.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to get mail config: %w", err)
	}
	if err := config.validate(); err != nil {
		return err
	}

	raw, err := BuildMessage(config, msg, s.now())
	if err != nil {
		return err
	}

	if err := s.send(ctx, config, msg.To, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info().
		Str("to", strings.Join(msg.To, ",")).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("Email sent")
	return nil
}

// BuildMessage renders msg as RFC 5322 bytes. Bodies go into a
// multipart/alternative part, attachments follow in multipart/mixed.
func BuildMessage(config *Config, msg *Message, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Name: config.FromName, Address: config.From}})

	to := make([]*mail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}
	if msg.TextBody != "" {
		if err := writeInline(iw, "text/plain", msg.TextBody); err != nil {
			return nil, err
		}
	}
	if msg.HTMLBody != "" {
		if err := writeInline(iw, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close inline part: %w", err)
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		var ah mail.AttachmentHeader
		ah.Set("Content-Type", contentType)
		ah.SetFilename(att.Filename)
		ah.Set("Content-Transfer-Encoding", "base64")

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", att.Filename, err)
		}
		if _, err := w.Write(att.Content); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", att.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment %s: %w", att.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInline(iw *mail.InlineWriter, contentType, body string) error {
	var th mail.InlineHeader
	th.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	th.Set("Content-Transfer-Encoding", "quoted-printable")

	w, err := iw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

// deliver connects with implicit TLS, falling back to STARTTLS, or plain SMTP when TLS is off
func (s *Service) deliver(ctx context.Context, config *Config, to []string, msg []byte) error {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)
	dialer := &net.Dialer{Timeout: s.timeout}

	if !config.UseTLS {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		return s.transmit(conn, config.Host, auth, config.From, to, msg, false)
	}

	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: config.Host}}
	conn, err := tlsDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.logger.Debug().Err(err).Str("addr", addr).Msg("Implicit TLS failed, trying STARTTLS")

		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		return s.transmit(conn, config.Host, auth, config.From, to, msg, true)
	}
	return s.transmit(conn, config.Host, auth, config.From, to, msg, false)
}

func (s *Service) transmit(conn net.Conn, host string, auth smtp.Auth, from string, to []string, msg []byte, startTLS bool) error {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if startTLS {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set mail recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
