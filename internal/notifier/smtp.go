package notifier

import (
    "context"
    "fmt"
    "net/smtp"
    "strings"
)

// SMTPConfig holds the connection settings for the mail transport.
// FeedbackBaseURL is the frontend URL feedback links point at, e.g.
// "https://events.example.edu/feedback"; VerifyBaseURL is the endpoint
// account verification links resolve against.
type SMTPConfig struct {
    Host            string
    Port            string
    Username        string
    Password        string
    From            string
    FromName        string
    FeedbackBaseURL string
    VerifyBaseURL   string
}

// SMTPNotifier sends HTML mail over plain SMTP with STARTTLS as
// negotiated by net/smtp.  Each Send opens its own connection; the
// volumes involved (one message per attendee per event) do not justify
// connection pooling.
type SMTPNotifier struct {
    cfg SMTPConfig
}

// NewSMTPNotifier returns an SMTPNotifier using the given settings.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier { return &SMTPNotifier{cfg: cfg} }

// Send renders the template for kind and delivers it to recipient.
func (n *SMTPNotifier) Send(ctx context.Context, recipient string, kind TemplateKind, p Payload) error {
    if recipient == "" {
        return fmt.Errorf("empty recipient")
    }
    subject, body, err := render(kind, p, n.cfg)
    if err != nil {
        return err
    }
    if err := ctx.Err(); err != nil {
        return err
    }

    msg := buildMessage(n.cfg.From, n.cfg.FromName, recipient, subject, body)
    addr := n.cfg.Host + ":" + n.cfg.Port
    auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
    if err := smtp.SendMail(addr, auth, n.cfg.From, []string{recipient}, msg); err != nil {
        return fmt.Errorf("send %s to %s: %w", kind, recipient, err)
    }
    return nil
}

func render(kind TemplateKind, p Payload, cfg SMTPConfig) (subject, body string, err error) {
    name := p.RecipientName
    if name == "" {
        name = "there"
    }
    switch kind {
    case TemplateFeedbackRequest:
        link := fmt.Sprintf("%s/%d", strings.TrimRight(cfg.FeedbackBaseURL, "/"), p.RegistrationID)
        subject = fmt.Sprintf("Feedback Request: %s", p.EventTitle)
        body = fmt.Sprintf(`<h3>We'd love your feedback!</h3>
<p>You recently attended <strong>%s</strong>.</p>
<p>Please take a moment to share your thoughts:</p>
<p><a href="%s">Give Feedback</a></p>
<br>
<p>Best regards,</p>
<p>The Events Team</p>`, p.EventTitle, link)
    case TemplateRegistrationConfirmed:
        subject = fmt.Sprintf("Registration Confirmed: %s", p.EventTitle)
        body = fmt.Sprintf(`<h3>Event Registration Confirmed</h3>
<p>Hello %s,</p>
<p>You have successfully registered for the event: <strong>%s</strong>.</p>
<p>We look forward to seeing you there!</p>
<br>
<p>Best regards,</p>
<p>The Events Team</p>`, name, p.EventTitle)
    case TemplateRegistrationWaitlisted:
        subject = fmt.Sprintf("Waitlisted: %s", p.EventTitle)
        body = fmt.Sprintf(`<h3>You're on the waitlist</h3>
<p>Hello %s,</p>
<p><strong>%s</strong> is currently at capacity, so you have been placed on the waitlist.</p>
<p>We will let you know as soon as a spot opens up.</p>
<br>
<p>Best regards,</p>
<p>The Events Team</p>`, name, p.EventTitle)
    case TemplateRegistrationPending:
        subject = fmt.Sprintf("Registration Pending Approval: %s", p.EventTitle)
        body = fmt.Sprintf(`<h3>Registration received</h3>
<p>Hello %s,</p>
<p>Your registration for <strong>%s</strong> requires faculty approval.</p>
<p>You will be notified once it has been reviewed.</p>
<br>
<p>Best regards,</p>
<p>The Events Team</p>`, name, p.EventTitle)
    case TemplateGuestInvitation:
        subject = fmt.Sprintf("Invitation: %s", p.EventTitle)
        body = fmt.Sprintf(`<h3>You are invited!</h3>
<p>We are pleased to invite you to: <strong>%s</strong>.</p>
<p>Please consider this email as your formal invitation.</p>
<br>
<p>Best regards,</p>
<p>The Events Team</p>`, p.EventTitle)
    case TemplateEmailVerification:
        link := fmt.Sprintf("%s?token=%s", strings.TrimRight(cfg.VerifyBaseURL, "/"), p.Token)
        subject = "Verify your account"
        body = fmt.Sprintf(`<h3>Welcome!</h3>
<p>Hello %s,</p>
<p>Please click the link below to verify your account:</p>
<p><a href="%s">%s</a></p>
<br>
<p>Best regards,</p>
<p>The Events Team</p>`, name, link, link)
    default:
        return "", "", fmt.Errorf("unknown template kind %q", kind)
    }
    return subject, body, nil
}

func buildMessage(from, fromName, to, subject, htmlBody string) []byte {
    var b strings.Builder
    if fromName != "" {
        fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, from)
    } else {
        fmt.Fprintf(&b, "From: %s\r\n", from)
    }
    fmt.Fprintf(&b, "To: %s\r\n", to)
    fmt.Fprintf(&b, "Subject: %s\r\n", subject)
    b.WriteString("MIME-Version: 1.0\r\n")
    b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
    b.WriteString("\r\n")
    b.WriteString(htmlBody)
    return []byte(b.String())
}
