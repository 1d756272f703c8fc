package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/services/mailer"
)

type mockMessageSender struct {
	mock.Mock
}

func (m *mockMessageSender) SendMessage(ctx context.Context, to, subject, content string) error {
	return m.Called(to, subject, content).Error(0)
}

type memorySettings struct {
	config *mailer.Config
}

func (s *memorySettings) GetConfig(ctx context.Context) (*mailer.Config, error) {
	c := *s.config
	return &c, nil
}

func (s *memorySettings) SetConfig(ctx context.Context, config *mailer.Config) error {
	c := *config
	s.config = &c
	return nil
}

func (s *memorySettings) IsConfigured(ctx context.Context) bool {
	return s.config.Host != "" && s.config.Password != ""
}

func TestSendEmailHandler(t *testing.T) {
	sender := &mockMessageSender{}
	sender.On("SendMessage", "ann@example.com", "Your report", "Report **ready**").Return(nil).Once()
	h := NewMailHandler(&memorySettings{config: &mailer.Config{}}, sender, arbor.NewLogger())

	rec := post(t, h.SendEmailHandler, "/api/mail/send",
		`{"email":" ann@example.com ","subject":"Your report","emailContent":"Report **ready**"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "email sent successfully", body["message"])
	assert.Equal(t, float64(200), body["status"])
	sender.AssertExpectations(t)
}

func TestSendEmailHandler_Validation(t *testing.T) {
	sender := &mockMessageSender{}
	h := NewMailHandler(&memorySettings{config: &mailer.Config{}}, sender, arbor.NewLogger())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing email", `{"subject":"s","emailContent":"c"}`, "Email is required"},
		{"bad email", `{"email":"nope","subject":"s","emailContent":"c"}`, "Email must be a valid email address"},
		{"missing subject", `{"email":"a@example.com","emailContent":"c"}`, "Subject is required"},
		{"missing content", `{"email":"a@example.com","subject":"s"}`, "EmailContent is required"},
		{"bad json", `{`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.SendEmailHandler, "/api/mail/send", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not configured", fmt.Errorf("send: %w", mailer.ErrNotConfigured), http.StatusServiceUnavailable},
		{"smtp failure", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockMessageSender{}
			sender.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(tt.err)
			h := NewMailHandler(&memorySettings{config: &mailer.Config{}}, sender, arbor.NewLogger())

			rec := post(t, h.SendEmailHandler, "/send-email", `{"email":"a@example.com","subject":"s","emailContent":"c"}`)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"status":%d`, tt.code))
		})
	}
}

func TestMailConfigHandlers(t *testing.T) {
	settings := &memorySettings{config: &mailer.Config{Host: "smtp.old.com", Port: 465, Username: "bot", Password: "secret", From: "bot@example.com"}}
	h := NewMailHandler(settings, &mockMessageSender{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.GetConfigHandler(rec, httptest.NewRequest(http.MethodGet, "/api/mail/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), maskedValue)
	assert.Contains(t, rec.Body.String(), `"configured":true`)

	// Masked password keeps the stored one, missing port falls back to 587
	rec = post(t, h.SetConfigHandler, "/api/mail/config",
		`{"smtp_host":"smtp.example.com","smtp_username":"bot","smtp_password":"********","smtp_from":"reports@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "smtp.example.com", settings.config.Host)
	assert.Equal(t, 587, settings.config.Port)
	assert.Equal(t, "secret", settings.config.Password)

	rec = post(t, h.SetConfigHandler, "/api/mail/config", `{"smtp_host":"smtp.example.com","smtp_username":"bot","smtp_from":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "From must be a valid email address")
}
