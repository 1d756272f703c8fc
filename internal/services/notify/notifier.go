// Package notify emails finished reports and keeps an outbox of failed sends.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/mailer"
	"github.com/ternarybob/roomathon/internal/services/publisher"
)

// Sender delivers a composed email
type Sender interface {
	Send(ctx context.Context, msg *mailer.Message) error
}

// Request describes one report email
type Request struct {
	InspectionID   string
	OwnerName      string
	OwnerEmail     string
	RequesterEmail string
	LocalPath      string
	ReportURL      string
}

// Notifier sends report emails. Failed sends are queued in the outbox.
type Notifier struct {
	sender Sender
	outbox interfaces.NotificationStorage
	md     goldmark.Markdown
	logger arbor.ILogger
	now    func() time.Time
}

// NewNotifier creates a notifier. outbox may be nil, in which case failures are only reported.
func NewNotifier(sender Sender, outbox interfaces.NotificationStorage, logger arbor.ILogger) *Notifier {
	return &Notifier{
		sender: sender,
		outbox: outbox,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		logger: logger,
		now:    time.Now,
	}
}

// Recipients returns the owner address plus the requester when it differs, ignoring case
func Recipients(ownerEmail, requesterEmail string) []string {
	var out []string
	owner := strings.TrimSpace(ownerEmail)
	requester := strings.TrimSpace(requesterEmail)
	if owner != "" {
		out = append(out, owner)
	}
	if requester != "" && !strings.EqualFold(requester, owner) {
		out = append(out, requester)
	}
	return out
}

// Subject is the report email subject line
func Subject(ownerName string) string {
	return "Inspection Report for " + displayName(ownerName)
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "Client"
	}
	return name
}

// Notify emails the report. It never returns an error; the outcome is in the result.
func (n *Notifier) Notify(ctx context.Context, req Request) models.NotificationResult {
	recipients := Recipients(req.OwnerEmail, req.RequesterEmail)
	result := models.NotificationResult{Recipients: recipients}

	if len(recipients) == 0 {
		result.Error = "no recipient address"
		n.logger.Warn().Str("inspection_id", req.InspectionID).Msg("Report email skipped: no recipient address")
		return result
	}

	err := n.deliver(ctx, req.InspectionID, req.OwnerName, recipients, req.LocalPath)
	if err == nil {
		result.Sent = true
		return result
	}

	result.Error = err.Error()
	n.logger.Error().
		Err(err).
		Str("inspection_id", req.InspectionID).
		Str("recipients", strings.Join(recipients, ",")).
		Msg("Failed to send report email")

	if n.outbox == nil {
		return result
	}

	pending := &models.PendingNotification{
		ID:           common.NewNotificationID(),
		InspectionID: req.InspectionID,
		Recipients:   recipients,
		OwnerName:    req.OwnerName,
		LocalPath:    req.LocalPath,
		ReportURL:    req.ReportURL,
		Attempts:     1,
		LastError:    err.Error(),
	}
	if qerr := n.outbox.SavePending(ctx, pending); qerr != nil {
		n.logger.Error().Err(qerr).Str("inspection_id", req.InspectionID).Msg("Failed to queue report email for retry")
		return result
	}

	result.Queued = true
	n.logger.Info().
		Str("inspection_id", req.InspectionID).
		Str("notification_id", pending.ID).
		Msg("Report email queued for retry")
	return result
}

// Resend retries a queued notification
func (n *Notifier) Resend(ctx context.Context, p *models.PendingNotification) error {
	return n.deliver(ctx, p.InspectionID, p.OwnerName, p.Recipients, p.LocalPath)
}

func (n *Notifier) deliver(ctx context.Context, inspectionID, ownerName string, recipients []string, localPath string) error {
	pdf, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read report %s: %w", localPath, err)
	}

	htmlBody, textBody, err := n.RenderBody(ownerName)
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, &mailer.Message{
		To:       recipients,
		Subject:  Subject(ownerName),
		HTMLBody: htmlBody,
		TextBody: textBody,
		Attachments: []mailer.Attachment{{
			Filename:    publisher.FileName(inspectionID),
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	})
}

// RenderBody returns the HTML and plain-text bodies of the report email
func (n *Notifier) RenderBody(ownerName string) (string, string, error) {
	text := fmt.Sprintf("Hello %s,\n\nHere is your inspection report. Please find attached the inspection report.\n\nThank you.",
		displayName(ownerName))

	htmlBody, err := n.RenderHTML(text)
	if err != nil {
		return "", "", err
	}
	return htmlBody, text, nil
}

// RenderHTML converts markdown content to HTML inside the Roomathon email layout
func (n *Notifier) RenderHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := n.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return fmt.Sprintf(emailTemplate, buf.String(), n.now().Year()), nil
}

// SendMessage emails free-form markdown content in the Roomathon layout.
// Unlike Notify, failures are returned and nothing is queued.
func (n *Notifier) SendMessage(ctx context.Context, to, subject, content string) error {
	htmlBody, err := n.RenderHTML(content)
	if err != nil {
		return err
	}

	if err := n.sender.Send(ctx, &mailer.Message{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: content,
	}); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

const emailTemplate = `<html>
<body style="font-family: Arial, sans-serif; background-color: #f6f6f6; padding: 20px;">
<div style="max-width: 600px; margin: auto; background: #fff; border-radius: 8px; padding: 30px;">
<h2 style="color: #333; margin-bottom: 20px;">Roomathon Notification</h2>
<div style="color: #444; font-size: 16px; line-height: 1.6;">
%s
</div>
<hr style="margin: 30px 0;">
<div style="font-size: 12px; color: #888;">&copy; %d Roomathon. All rights reserved.</div>
</div>
</body>
</html>`
