// Package notifier delivers transactional email to attendees.  The
// core only depends on the Notifier interface; the SMTP implementation
// in this package is the production transport.
package notifier

import "context"

// TemplateKind selects the message template for a notification.  The
// set is closed; Send implementations reject unknown kinds.
type TemplateKind string

const (
    // TemplateFeedbackRequest asks a confirmed attendee of a finished
    // event to rate it.  Dispatched by the feedback scheduler.
    TemplateFeedbackRequest TemplateKind = "feedback_request"
    // TemplateRegistrationConfirmed confirms a successful registration.
    TemplateRegistrationConfirmed TemplateKind = "registration_confirmed"
    // TemplateRegistrationWaitlisted informs about a waitlist spot.
    TemplateRegistrationWaitlisted TemplateKind = "registration_waitlisted"
    // TemplateRegistrationPending informs that approval is pending.
    TemplateRegistrationPending TemplateKind = "registration_pending"
    // TemplateGuestInvitation is a plain invitation to an event.
    TemplateGuestInvitation TemplateKind = "guest_invitation"
    // TemplateEmailVerification carries the account activation link
    // sent right after registration.
    TemplateEmailVerification TemplateKind = "email_verification"
)

// Payload carries the variables interpolated into a template.  Unused
// fields are ignored by templates that do not need them.
type Payload struct {
    EventTitle     string
    RecipientName  string
    RegistrationID uint64
    Token          string // verification token, email_verification only
}

// Notifier sends one message to one recipient.  Implementations must be
// safe for concurrent use and safely callable repeatedly for the same
// message; delivery is at-least-once and no dedup token is passed.
type Notifier interface {
    Send(ctx context.Context, recipient string, kind TemplateKind, p Payload) error
}
