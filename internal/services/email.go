package services

import (
	"context"
	"fmt"
	"log"

	"campuspass/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendInvitationApproved sends the activation-link email using the
// "invitation_approved" template and the given data.
func (s *emailService) SendInvitationApproved(ctx context.Context, data *domain.InvitationApprovedEmailData) error {
	if data == nil {
		return fmt.Errorf("invitation approved data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("invitation_approved", data)
	if err != nil {
		return fmt.Errorf("failed to render invitation_approved template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send invitation approved email: %w", err)
	}
	log.Printf("[EMAIL] Invitation approved email sent to %s", data.Email)
	return nil
}
