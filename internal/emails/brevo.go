package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender sends transactional emails (issued certificate, new account
// password notice). Nil = no-op.
type Sender interface {
	SendCertificate(ctx context.Context, toEmail, fullname, filename, courseName string) error
	SendNewAccount(ctx context.Context, toEmail, username string) error
}

// BrevoClient sends emails via the Brevo API. Env: BREVO_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@localhost"
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Certification"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendCertificate notifies a user that a certificate was issued for them.
func (c *BrevoClient) SendCertificate(ctx context.Context, toEmail, fullname, filename, courseName string) error {
	if c.APIKey == "" {
		return nil
	}
	if fullname == "" {
		fullname = "there"
	}
	content := fmt.Sprintf(`
    <h1>Your certificate is ready</h1>
    <p>Hi %s,</p>
    <p>A certificate has been issued for you for <strong>%s</strong>.</p>
    <p>File: <strong>%s</strong></p>
    <p>You can download it from your certificates page at any time.</p>
`, EscapeHTML(fullname), EscapeHTML(courseName), EscapeHTML(filename))
	return c.send(ctx, toEmail, fmt.Sprintf("New certificate: %s", courseName), content)
}

// SendNewAccount tells a newly created user how to set their password.
func (c *BrevoClient) SendNewAccount(ctx context.Context, toEmail, username string) error {
	if c.APIKey == "" {
		return nil
	}
	content := fmt.Sprintf(`
    <h1>Your account has been created</h1>
    <p>An account was created for you with the username <strong>%s</strong>.</p>
    <p>Use the password recovery option on the login page to set your password
    before signing in for the first time.</p>
`, EscapeHTML(username))
	return c.send(ctx, toEmail, "Your new account", content)
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
