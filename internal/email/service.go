package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/exxpenses/exxpenses/internal/logging"
)

// Service sends account emails over SMTP.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

var verificationTmpl = template.Must(template.New("verify").Parse(`
<div>
    <p>Click the link below to confirm your account.</p>
    <a href="{{.Link}}">Verify your account</a>
    <p>This link expires after 24 hours.</p>
</div>
`))

var recoveryTmpl = template.Must(template.New("recovery").Parse(`
<div>
    <p>A password reset was requested for this email.</p>
    <p>If you didn't request it, you can ignore this message.</p>
    <a href="{{.Link}}">Create a new password</a>
    <p>This link expires after one hour.</p>
</div>
`))

// SendVerificationEmail sends an email verification link to the user.
// This method is designed to be called in a goroutine.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, tok string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/verify/%s", s.frontendURL, tok)
	body, err := render(verificationTmpl, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Verify your account", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendPasswordRecoveryEmail sends a password recovery link to the user.
// This method is designed to be called in a goroutine.
func (s *Service) SendPasswordRecoveryEmail(ctx context.Context, toEmail, tok string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/password-recover/%s", s.frontendURL, tok)
	body, err := render(recoveryTmpl, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Password reset request", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("recovery email sent", "email", toEmail)
	return nil
}

func render(tmpl *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}
