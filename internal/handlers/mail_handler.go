package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/services/mailer"
)

// MailSettings reads and stores SMTP settings
type MailSettings interface {
	GetConfig(ctx context.Context) (*mailer.Config, error)
	SetConfig(ctx context.Context, config *mailer.Config) error
	IsConfigured(ctx context.Context) bool
}

// MessageSender emails markdown content in the Roomathon layout
type MessageSender interface {
	SendMessage(ctx context.Context, to, subject, content string) error
}

// SendEmailRequest is the body of POST /api/mail/send
type SendEmailRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Subject      string `json:"subject" validate:"required,max=200"`
	EmailContent string `json:"emailContent" validate:"required"`
}

// MailConfigRequest is the body of POST /api/mail/config.
// An empty or masked password keeps the stored one.
type MailConfigRequest struct {
	Host     string `json:"smtp_host" validate:"required,hostname|ip"`
	Port     int    `json:"smtp_port" validate:"omitempty,min=1,max=65535"`
	Username string `json:"smtp_username" validate:"required"`
	Password string `json:"smtp_password"`
	From     string `json:"smtp_from" validate:"required,email"`
	FromName string `json:"smtp_from_name" validate:"max=100"`
	UseTLS   bool   `json:"smtp_use_tls"`
}

// MailHandler serves mail settings and ad-hoc messages
type MailHandler struct {
	settings MailSettings
	sender   MessageSender
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewMailHandler creates a new mail handler
func NewMailHandler(settings MailSettings, sender MessageSender, logger arbor.ILogger) *MailHandler {
	return &MailHandler{
		settings: settings,
		sender:   sender,
		validate: validator.New(),
		logger:   logger,
	}
}

// SendEmailHandler handles POST /api/mail/send (and the legacy /send-email).
// Responds with {"message", "status"} like the original endpoint.
func (h *MailHandler) SendEmailHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMailStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)

	if err := h.validate.Struct(&req); err != nil {
		writeMailStatus(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if err := h.sender.SendMessage(r.Context(), req.Email, req.Subject, req.EmailContent); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			writeMailStatus(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("to", req.Email).Msg("Failed to send email")
		writeMailStatus(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeMailStatus(w, http.StatusOK, "email sent successfully")
}

// GetConfigHandler handles GET /api/mail/config. The password is never returned.
func (h *MailHandler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	cfg, err := h.settings.GetConfig(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read mail settings")
		WriteError(w, http.StatusInternalServerError, "Failed to read mail settings")
		return
	}

	view := MailConfigRequest{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		From:     cfg.From,
		FromName: cfg.FromName,
		UseTLS:   cfg.UseTLS,
	}
	if cfg.Password != "" {
		view.Password = maskedValue
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"config":     view,
		"configured": h.settings.IsConfigured(r.Context()),
	})
}

// SetConfigHandler handles POST /api/mail/config
func (h *MailHandler) SetConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req MailConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Host = strings.TrimSpace(req.Host)
	req.From = strings.TrimSpace(req.From)

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	cfg := &mailer.Config{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		From:     req.From,
		FromName: req.FromName,
		UseTLS:   req.UseTLS,
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Password == "" || cfg.Password == maskedValue {
		if current, err := h.settings.GetConfig(r.Context()); err == nil {
			cfg.Password = current.Password
		}
	}

	if err := h.settings.SetConfig(r.Context(), cfg); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save mail settings")
		WriteError(w, http.StatusInternalServerError, "Failed to save mail settings")
		return
	}

	WriteSuccess(w, "Mail settings saved")
}

func writeMailStatus(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"message": message,
		"status":  status,
	})
}
