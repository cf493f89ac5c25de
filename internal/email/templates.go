package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// LeadInvitation is the content of the email a prospective buyer receives.
type LeadInvitation struct {
	LeadName      string
	FranchiseName string
	CompanyName   string
	Message       string
	InviteURL     string
	ExpiresOn     string
}

// TeamInvitation is the content of the email a new franchisor team member receives.
type TeamInvitation struct {
	FullName    string
	CompanyName string
	Role        string
	InvitedBy   string
	AcceptURL   string
}

// SalesEligible tells a franchisor that a lead's waiting period is over.
type SalesEligible struct {
	RecipientName string
	LeadName      string
	FranchiseName string
	LeadURL       string
}

// LeadContact is a personal message from a franchisor's team to a lead.
type LeadContact struct {
	LeadName    string
	CompanyName string
	SenderName  string
	SenderEmail string
	Subject     string
	Message     string
}

type leadInvitationEmailData struct {
	baseEmailData
	LeadInvitation
}

type teamInvitationEmailData struct {
	baseEmailData
	TeamInvitation
}

type salesEligibleEmailData struct {
	baseEmailData
	SalesEligible
}

func renderLeadInvitation(in LeadInvitation) (string, string, error) {
	subject := fmt.Sprintf(subjectLeadInvitationFmt, orDefault(in.CompanyName, in.FranchiseName), in.FranchiseName)
	content, err := renderEmailTemplate("lead_invitation.html", leadInvitationEmailData{
		baseEmailData: baseEmailData{
			Title:      "Your Franchise Disclosure Document is ready",
			Heading:    "Your FDD is ready to review",
			Subheading: in.FranchiseName,
			CTALabel:   "Review the FDD",
			CTAURL:     in.InviteURL,
		},
		LeadInvitation: in,
	})
	return subject, content, err
}

func renderTeamInvitation(in TeamInvitation) (string, string, error) {
	subject := fmt.Sprintf(subjectTeamInvitationFmt, in.CompanyName)
	content, err := renderEmailTemplate("team_invitation.html", teamInvitationEmailData{
		baseEmailData: baseEmailData{
			Title:    "You're invited",
			Heading:  "Join " + in.CompanyName,
			CTALabel: "Accept invitation",
			CTAURL:   in.AcceptURL,
		},
		TeamInvitation: in,
	})
	return subject, content, err
}

func renderSalesEligible(in SalesEligible) (string, string, error) {
	subject := fmt.Sprintf(subjectSalesEligibleFmt, in.LeadName)
	content, err := renderEmailTemplate("sales_eligible.html", salesEligibleEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead is sales eligible",
			Heading:  in.LeadName + " is sales eligible",
			CTALabel: "Open lead",
			CTAURL:   in.LeadURL,
		},
		SalesEligible: in,
	})
	return subject, content, err
}

type leadContactEmailData struct {
	baseEmailData
	LeadContact
	Paragraphs []string
}

func renderLeadContact(in LeadContact) (string, string, error) {
	content, err := renderEmailTemplate("lead_contact.html", leadContactEmailData{
		baseEmailData: baseEmailData{
			Title:      in.Subject,
			Heading:    in.Subject,
			Subheading: in.CompanyName,
		},
		LeadContact: in,
		Paragraphs:  paragraphs(in.Message),
	})
	return in.Subject, content, err
}

// paragraphs splits plain text on blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := make([]string, 0)
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
