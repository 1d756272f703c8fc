package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
)

type memoryKV map[string]string

func (m memoryKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (m memoryKV) Set(ctx context.Context, key, value, description string) error {
	m[key] = value
	return nil
}

func (m memoryKV) Delete(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

func (m memoryKV) GetAll(ctx context.Context) (map[string]string, error) {
	return m, nil
}

func configuredFallback() common.SMTPConfig {
	return common.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     465,
		Username: "mailer",
		Password: "secret",
		From:     "reports@example.com",
		FromName: "Roomathon",
		UseTLS:   true,
	}
}

func TestGetConfig_KVOverridesFallback(t *testing.T) {
	kv := memoryKV{"smtp_host": "mail.internal", "smtp_port": "2525", "smtp_use_tls": "false"}
	s := NewService(kv, configuredFallback(), arbor.NewLogger())

	cfg, err := s.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mail.internal", cfg.Host)
	assert.Equal(t, 2525, cfg.Port)
	assert.False(t, cfg.UseTLS)
	assert.Equal(t, "mailer", cfg.Username)
	assert.Equal(t, "reports@example.com", cfg.From)
}

func TestSetConfig_RoundTrip(t *testing.T) {
	kv := memoryKV{}
	s := NewService(kv, common.SMTPConfig{}, arbor.NewLogger())
	assert.False(t, s.IsConfigured(context.Background()))

	require.NoError(t, s.SetConfig(context.Background(), &Config{
		Host: "smtp.example.com", Port: 587, Username: "u", Password: "p",
		From: "a@example.com", FromName: "A", UseTLS: true,
	}))
	assert.Equal(t, "587", kv["smtp_port"])
	assert.Equal(t, "true", kv["smtp_use_tls"])
	assert.True(t, s.IsConfigured(context.Background()))
}

func TestBuildMessage(t *testing.T) {
	cfg := &Config{From: "reports@example.com", FromName: "Roomathon"}
	pdf := []byte("%PDF-1.4 fake")
	raw, err := BuildMessage(cfg, &Message{
		To:       []string{"ann@example.com", "bob@example.com"},
		Subject:  "Inspection Report for Ann",
		TextBody: "Hello Ann",
		HTMLBody: "<p>Hello Ann</p>",
		Attachments: []Attachment{
			{Filename: "inspection-report-X1.pdf", ContentType: "application/pdf", Content: pdf},
		},
	}, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Inspection Report for Ann", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "bob@example.com", to[1].Address)

	var texts []string
	var attachments []string
	var attached []byte
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			b, err := io.ReadAll(p.Body)
			require.NoError(t, err)
			texts = append(texts, string(b))
		case *mail.AttachmentHeader:
			name, err := h.Filename()
			require.NoError(t, err)
			attachments = append(attachments, name)
			attached, err = io.ReadAll(p.Body)
			require.NoError(t, err)
		}
	}

	assert.Equal(t, []string{"Hello Ann", "<p>Hello Ann</p>"}, texts)
	assert.Equal(t, []string{"inspection-report-X1.pdf"}, attachments)
	assert.Equal(t, pdf, attached)
}

func TestSend(t *testing.T) {
	s := NewService(memoryKV{}, configuredFallback(), arbor.NewLogger())

	var gotTo []string
	var gotMsg []byte
	s.send = func(ctx context.Context, cfg *Config, to []string, msg []byte) error {
		gotTo = to
		gotMsg = msg
		return nil
	}

	err := s.Send(context.Background(), &Message{
		To:       []string{"ann@example.com"},
		Subject:  "Hi",
		TextBody: "body",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: Hi"))
}

func TestSend_Errors(t *testing.T) {
	ctx := context.Background()

	unconfigured := NewService(memoryKV{}, common.SMTPConfig{}, arbor.NewLogger())
	err := unconfigured.Send(ctx, &Message{To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	s := NewService(memoryKV{}, configuredFallback(), arbor.NewLogger())
	assert.Error(t, s.Send(ctx, &Message{}))

	s.send = func(ctx context.Context, cfg *Config, to []string, msg []byte) error {
		return errors.New("connection refused")
	}
	err = s.Send(ctx, &Message{To: []string{"a@example.com"}, TextBody: "x"})
	assert.ErrorContains(t, err, "connection refused")
}
