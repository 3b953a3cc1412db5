package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"sort"
	"time"

	"hr-center/internal/config"
)

// Service handles email operations. Every send is best effort; callers log failures.
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{
		config: cfg,
	}
}

const layout = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        %s
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email from HR Center. Please do not reply.</p>
    </div>
</body>
</html>
`

func button(url, label string) string {
	return fmt.Sprintf(`<div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">%s</a>
        </div>`, template.HTMLEscapeString(url), label)
}

func (s *Service) documentURL(assignmentID uint) string {
	return fmt.Sprintf("%s/documents/%d", s.config.PortalURL, assignmentID)
}

// SendAssignmentCreated tells a signer that a document waits for them
func (s *Service) SendAssignmentCreated(ctx context.Context, to, name, documentTitle string, assignmentID uint, dueDate *time.Time) error {
	subject := fmt.Sprintf("Document to sign: %s", documentTitle)

	due := ""
	if dueDate != nil {
		due = fmt.Sprintf("<p>Please sign by <strong>%s</strong>.</p>", dueDate.Format("January 2, 2006"))
	}

	content := fmt.Sprintf(`<h2 style="color: #2563eb;">Hello %s,</h2>
        <p>A new document is waiting for your signature: <strong>%s</strong>.</p>
        %s
        %s`,
		template.HTMLEscapeString(name),
		template.HTMLEscapeString(documentTitle),
		due,
		button(s.documentURL(assignmentID), "Review and sign"),
	)

	return s.sendEmail(ctx, to, subject, fmt.Sprintf(layout, subject, content))
}

// SendReminder nudges the signer whose turn it is
func (s *Service) SendReminder(ctx context.Context, to, name, documentTitle string, assignmentID uint) error {
	subject := fmt.Sprintf("Reminder: %s is waiting for your signature", documentTitle)

	content := fmt.Sprintf(`<h2 style="color: #2563eb;">Hello %s,</h2>
        <p>This is a reminder that <strong>%s</strong> still needs your signature.</p>
        %s`,
		template.HTMLEscapeString(name),
		template.HTMLEscapeString(documentTitle),
		button(s.documentURL(assignmentID), "Sign now"),
	)

	return s.sendEmail(ctx, to, subject, fmt.Sprintf(layout, subject, content))
}

// SendOverdue tells the signer whose turn it is that the due date has passed
func (s *Service) SendOverdue(ctx context.Context, to, name, documentTitle string, assignmentID uint, dueDate time.Time) error {
	subject := fmt.Sprintf("OVERDUE: %s - Action Required", documentTitle)

	content := fmt.Sprintf(`<h2 style="color: #dc2626;">Hello %s,</h2>
        <p><strong>%s</strong> is overdue and needs your signature.</p>
        <p style="color: #dc2626; font-weight: bold;">Was due: %s</p>
        %s
        <p>If you have questions, contact HR.</p>`,
		template.HTMLEscapeString(name),
		template.HTMLEscapeString(documentTitle),
		dueDate.Format("January 2, 2006"),
		button(s.documentURL(assignmentID), "Complete now"),
	)

	return s.sendEmail(ctx, to, subject, fmt.Sprintf(layout, subject, content))
}

// SendSigningConfirmation confirms a completed document with a download link
func (s *Service) SendSigningConfirmation(ctx context.Context, to, name, documentTitle, downloadURL string, signedAt time.Time) error {
	subject := fmt.Sprintf("Signed: %s", documentTitle)

	content := fmt.Sprintf(`<h2 style="color: #16a34a;">Thank you, %s!</h2>
        <p><strong>%s</strong> was signed on %s.</p>
        %s
        <p>The download link expires shortly. A copy is kept in your employee record.</p>`,
		template.HTMLEscapeString(name),
		template.HTMLEscapeString(documentTitle),
		signedAt.Format("January 2, 2006 at 15:04 MST"),
		button(downloadURL, "Download signed document"),
	)

	return s.sendEmail(ctx, to, subject, fmt.Sprintf(layout, subject, content))
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	if !s.config.Enabled {
		slog.Debug("Email disabled, skipping", "to", to, "subject", subject)
		return nil
	}

	headers := map[string]string{
		"From":         s.config.SMTPFrom,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var message bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&message, "%s: %s\r\n", k, headers[k])
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server", "address", addr)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Debug("Failed to close SMTP client", "error", err)
		}
	}()

	// Mailpit and similar dev servers run without auth
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := wc.Write(message.Bytes()); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	if err := client.Quit(); err != nil {
		slog.Debug("SMTP quit failed", "error", err)
	}

	slog.Info("Email sent successfully", "to", to, "subject", subject)
	return nil
}
