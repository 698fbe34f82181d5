package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InvitationApprovedEmailData holds data for the invitation-approved email.
type InvitationApprovedEmailData struct {
	Email         string
	FirstName     string
	ActivationURL string
	ValidFrom     string
	ValidTo       string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvitationApproved(ctx context.Context, data *InvitationApprovedEmailData) error
}
