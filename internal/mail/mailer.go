package mail

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// Mailer sends transactional mail. Callers treat every send as best-effort:
// failures are logged, never propagated to the request that triggered them.
type Mailer interface {
	SendVerificationEmail(to, name, rawToken string) error
	SendPasswordResetEmail(to, name, rawToken string) error
	SendOrderConfirmation(to, name, orderID string, total float64) error
}

// SMTPConfig holds the mail account credentials and link base URL.
type SMTPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromName  string
	ClientURL string
}

type smtpMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer builds a Mailer backed by an SMTP account. When no host is
// configured it degrades to a no-op sender so development setups run without
// mail credentials.
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured, outbound mail disabled")
		return &noopMailer{logger: logger}
	}
	return &smtpMailer{cfg: cfg, logger: logger}
}

func (m *smtpMailer) send(to, subject, html string) error {
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.Username)
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(html)

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *smtpMailer) SendVerificationEmail(to, name, rawToken string) error {
	html, err := render(verificationTemplate, linkData{
		Name: name,
		URL:  fmt.Sprintf("%s/verify-email?token=%s", m.cfg.ClientURL, rawToken),
	})
	if err != nil {
		return err
	}
	return m.send(to, "Verify your email", html)
}

func (m *smtpMailer) SendPasswordResetEmail(to, name, rawToken string) error {
	html, err := render(resetTemplate, linkData{
		Name: name,
		URL:  fmt.Sprintf("%s/reset-password/%s", m.cfg.ClientURL, rawToken),
	})
	if err != nil {
		return err
	}
	return m.send(to, "Password reset", html)
}

func (m *smtpMailer) SendOrderConfirmation(to, name, orderID string, total float64) error {
	html, err := render(orderTemplate, orderData{Name: name, OrderID: orderID, Total: total})
	if err != nil {
		return err
	}
	return m.send(to, "Order confirmation", html)
}

type linkData struct {
	Name string
	URL  string
}

type orderData struct {
	Name    string
	OrderID string
	Total   float64
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

var verificationTemplate = template.Must(template.New("verify").Parse(`
<h2>Verify your email</h2>
<p>Hello {{.Name}},</p>
<p>Thanks for registering. Click the link below to verify your email:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>The link is valid for 24 hours. If you did not create this account, you can ignore this email.</p>
`))

var resetTemplate = template.Must(template.New("reset").Parse(`
<h2>Reset your password</h2>
<p>Hello {{.Name}},</p>
<p>We received a request to reset your password.</p>
<p>Click the link below to set a new password (valid for 1 hour):</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>If you did not request this, you can ignore this email.</p>
`))

var orderTemplate = template.Must(template.New("order").Parse(`
<h2>Thanks for your order</h2>
<p>Hello {{.Name}},</p>
<p>We received your order <strong>{{.OrderID}}</strong> for a total of {{printf "%.2f" .Total}}.</p>
<p>You can track its status from your account page.</p>
`))

type noopMailer struct {
	logger *zap.Logger
}

func (m *noopMailer) SendVerificationEmail(to, _, _ string) error {
	m.logger.Debug("mail disabled, skipping verification email", zap.String("to", to))
	return nil
}

func (m *noopMailer) SendPasswordResetEmail(to, _, _ string) error {
	m.logger.Debug("mail disabled, skipping password reset email", zap.String("to", to))
	return nil
}

func (m *noopMailer) SendOrderConfirmation(to, _, _ string, _ float64) error {
	m.logger.Debug("mail disabled, skipping order confirmation", zap.String("to", to))
	return nil
}
