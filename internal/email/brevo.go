package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fddhub/platform/config"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (will be base64-encoded for Brevo)
	FileName string // e.g. "item23-receipt.pdf"
	MIMEType string // e.g. "application/pdf"
}

type Sender interface {
	SendLeadInvitationEmail(ctx context.Context, toEmail string, in LeadInvitation) error
	SendTeamInvitationEmail(ctx context.Context, toEmail string, in TeamInvitation) error
	SendSalesEligibleEmail(ctx context.Context, toEmail string, in SalesEligible) error
	SendLeadContactEmail(ctx context.Context, toEmail string, in LeadContact) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error
}

type NoopSender struct{}

func (NoopSender) SendLeadInvitationEmail(context.Context, string, LeadInvitation) error {
	return nil
}

func (NoopSender) SendTeamInvitationEmail(context.Context, string, TeamInvitation) error {
	return nil
}

func (NoopSender) SendSalesEligibleEmail(context.Context, string, SalesEligible) error {
	return nil
}

func (NoopSender) SendLeadContactEmail(context.Context, string, LeadContact) error {
	return nil
}

func (NoopSender) SendCustomEmail(context.Context, string, string, string, ...Attachment) error {
	return nil
}

// deliverFunc sends one rendered message.
type deliverFunc func(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error

// templated implements the templated Sender methods on top of a delivery function.
type templated struct {
	deliver deliverFunc
}

func (t templated) SendLeadInvitationEmail(ctx context.Context, toEmail string, in LeadInvitation) error {
	subject, content, err := renderLeadInvitation(in)
	if err != nil {
		return err
	}
	return t.deliver(ctx, toEmail, subject, content)
}

func (t templated) SendTeamInvitationEmail(ctx context.Context, toEmail string, in TeamInvitation) error {
	subject, content, err := renderTeamInvitation(in)
	if err != nil {
		return err
	}
	return t.deliver(ctx, toEmail, subject, content)
}

func (t templated) SendSalesEligibleEmail(ctx context.Context, toEmail string, in SalesEligible) error {
	subject, content, err := renderSalesEligible(in)
	if err != nil {
		return err
	}
	return t.deliver(ctx, toEmail, subject, content)
}

func (t templated) SendLeadContactEmail(ctx context.Context, toEmail string, in LeadContact) error {
	subject, content, err := renderLeadContact(in)
	if err != nil {
		return err
	}
	return t.deliver(ctx, toEmail, subject, content)
}

func (t templated) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	return t.deliver(ctx, toEmail, subject, htmlContent, attachments...)
}

type BrevoSender struct {
	templated
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

type brevoAttachment struct {
	Content string `json:"content"` // base64-encoded file content
	Name    string `json:"name"`
}

type brevoEmailRequest struct {
	Sender struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
	} `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

// NewSender picks the delivery channel configured by EMAIL_PROVIDER.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	case "brevo", "":
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromName(), cfg.GetEmailFromAddress()), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.GetEmailProvider())
	}
}

func NewBrevoSender(apiKey, fromName, fromEmail string) *BrevoSender {
	b := &BrevoSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	b.templated = templated{deliver: b.send}
	return b
}

func (b *BrevoSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	payload := brevoEmailRequest{
		Subject:     subject,
		HTMLContent: htmlContent,
	}
	payload.Sender.Name = b.fromName
	payload.Sender.Email = b.fromEmail
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: toEmail}}

	for _, att := range attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.FileName,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
