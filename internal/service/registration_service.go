// Package service implements business orchestration between HTTP
// handlers and the repository layer.  RegistrationService owns the
// admission flow: it loads fresh capacity counts, applies the admission
// policy, persists the outcome and fans out best-effort side effects
// (audit entry, confirmation email, broker event).
package service

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/cmis-dev/event-registration/internal/admission"
    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/queue"
    "github.com/cmis-dev/event-registration/internal/repository"
)

// EventStore is the slice of the event repository the service consumes.
type EventStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// RegistrationStore is the slice of the registration repository the
// service consumes.
type RegistrationStore interface {
    CountByStatus(ctx context.Context, eventID uint64, status model.RegistrationStatus) (uint32, error)
    FindPrimary(ctx context.Context, userID, eventID uint64) (*model.Registration, error)
    GetByID(ctx context.Context, id uint64) (*model.Registration, error)
    Create(ctx context.Context, reg *model.Registration) error
    DeleteByUserAndEvent(ctx context.Context, userID, eventID uint64) error
    ListByUser(ctx context.Context, userID uint64) ([]model.Registration, error)
    SubmitFeedback(ctx context.Context, registrationID uint64, rating int, comments string) error
}

// UserStore resolves registration owners to notification recipients.
type UserStore interface {
    GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Auditor appends best-effort audit entries.  Implementations must
// never fail the calling operation.
type Auditor interface {
    Record(ctx context.Context, actorID uint64, action string, details map[string]any)
}

// RegistrationService orchestrates registration admission, cancellation
// and feedback submission.
type RegistrationService struct {
    events   EventStore
    regs     RegistrationStore
    users    UserStore
    audit    Auditor
    notifier notifier.Notifier

    // publishFn is swappable in tests; defaults to the RabbitMQ publisher.
    publishFn func(ctx context.Context, event queue.RegistrationCreatedEvent) error
}

// NewRegistrationService constructs a RegistrationService.  notifier
// may be nil, in which case outbound mail is skipped.
func NewRegistrationService(events EventStore, regs RegistrationStore, users UserStore, audit Auditor, n notifier.Notifier) *RegistrationService {
    if events == nil || regs == nil || users == nil || audit == nil {
        panic("nil dependency passed to NewRegistrationService")
    }
    return &RegistrationService{
        events:    events,
        regs:      regs,
        users:     users,
        audit:     audit,
        notifier:  n,
        publishFn: publishRegistrationCreated,
    }
}

// Admit processes a registration request for user on event, optionally
// together with session choices.
//
// The operation is idempotent per (user, event): when a primary
// registration already exists it is returned unchanged and no new row
// is created.  Otherwise the admission policy decides the status from
// counts recomputed fresh on every call.  A refused request
// (admission.ErrRegistrationRefused) creates no record at all.
//
// Session registrations bypass capacity entirely and are created
// unconditionally confirmed alongside the primary request.
//
// Counts are read without a transaction around the subsequent insert;
// two concurrent requests may both observe room and overshoot the cap
// by one.  This matches the storage layer's guarantees and is accepted.
func (s *RegistrationService) Admit(ctx context.Context, userID, eventID uint64, sessionIDs []uint64) (*model.Registration, error) {
    event, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }

    existing, err := s.regs.FindPrimary(ctx, userID, eventID)
    if err != nil {
        return nil, fmt.Errorf("find primary registration: %w", err)
    }

    reg := existing
    if reg == nil {
        confirmed, err := s.regs.CountByStatus(ctx, eventID, model.StatusConfirmed)
        if err != nil {
            return nil, fmt.Errorf("count confirmed: %w", err)
        }
        waitlisted, err := s.regs.CountByStatus(ctx, eventID, model.StatusWaitlisted)
        if err != nil {
            return nil, fmt.Errorf("count waitlisted: %w", err)
        }

        status, err := admission.Decide(admission.PolicyFor(event), admission.Counts{
            Confirmed:  confirmed,
            Waitlisted: waitlisted,
        })
        if err != nil {
            return nil, err
        }

        reg = &model.Registration{UserID: userID, EventID: eventID, Status: status}
        if err := s.regs.Create(ctx, reg); err != nil {
            return nil, fmt.Errorf("create registration: %w", err)
        }

        s.audit.Record(ctx, userID, "EVENT_REGISTERED", map[string]any{
            "event_id":        eventID,
            "registration_id": reg.ID,
            "status":          string(reg.Status),
        })
        s.notifyAdmission(ctx, userID, event, reg)
        s.publish(ctx, event, reg, len(sessionIDs))
    }

    // Session choices ride along regardless of whether the primary row
    // already existed.  No session capacity is enforced.
    for _, sid := range sessionIDs {
        sessionID := sid
        sreg := &model.Registration{
            UserID:    userID,
            EventID:   eventID,
            SessionID: &sessionID,
            Status:    model.StatusConfirmed,
        }
        if err := s.regs.Create(ctx, sreg); err != nil {
            return nil, fmt.Errorf("create session registration: %w", err)
        }
    }

    return reg, nil
}

// Cancel removes the user's registrations for an event.
func (s *RegistrationService) Cancel(ctx context.Context, userID, eventID uint64) error {
    if err := s.regs.DeleteByUserAndEvent(ctx, userID, eventID); err != nil {
        return err
    }
    s.audit.Record(ctx, userID, "EVENT_UNREGISTERED", map[string]any{"event_id": eventID})
    return nil
}

// GetRegistration loads a single registration by ID.
func (s *RegistrationService) GetRegistration(ctx context.Context, id uint64) (*model.Registration, error) {
    return s.regs.GetByID(ctx, id)
}

// ListMine returns all registrations of a user.
func (s *RegistrationService) ListMine(ctx context.Context, userID uint64) ([]model.Registration, error) {
    return s.regs.ListByUser(ctx, userID)
}

// SubmitFeedback records a rating and comments on a registration.  The
// rating is write-once; repository.ErrFeedbackSubmitted is returned on
// resubmission.
func (s *RegistrationService) SubmitFeedback(ctx context.Context, registrationID uint64, rating int, comments string) error {
    if rating < 1 || rating > 5 {
        return fmt.Errorf("rating must be between 1 and 5")
    }
    reg, err := s.regs.GetByID(ctx, registrationID)
    if err != nil {
        return err
    }
    if reg.FeedbackRating != nil {
        return repository.ErrFeedbackSubmitted
    }
    return s.regs.SubmitFeedback(ctx, registrationID, rating, comments)
}

// notifyAdmission sends the status-appropriate confirmation mail to
// the registration's owner.  Failures are logged and swallowed.
func (s *RegistrationService) notifyAdmission(ctx context.Context, userID uint64, event *model.Event, reg *model.Registration) {
    if s.notifier == nil {
        return
    }
    user, err := s.users.GetByID(ctx, userID)
    if err != nil || user.Email == "" {
        return
    }
    kind := notifier.TemplateRegistrationConfirmed
    switch reg.Status {
    case model.StatusWaitlisted:
        kind = notifier.TemplateRegistrationWaitlisted
    case model.StatusPending:
        kind = notifier.TemplateRegistrationPending
    }
    if err := s.notifier.Send(ctx, user.Email, kind, notifier.Payload{
        EventTitle:     event.Title,
        RecipientName:  user.Name,
        RegistrationID: reg.ID,
    }); err != nil {
        log.Printf("registration: send %s to %s failed: %v", kind, user.Email, err)
    }
}

// publish emits the broker event for a new registration.  Best effort.
func (s *RegistrationService) publish(ctx context.Context, event *model.Event, reg *model.Registration, sessions int) {
    ev := queue.RegistrationCreatedEvent{
        MessageID:      uuid.New().String(),
        RegistrationID: reg.ID,
        UserID:         reg.UserID,
        EventID:        event.ID,
        EventTitle:     event.Title,
        Status:         string(reg.Status),
        SessionCount:   sessions,
        CreatedAt:      time.Now().UTC().Format(time.RFC3339),
    }
    if err := s.publishFn(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
        log.Printf("registration: publish broker event failed: %v", err)
    }
}
