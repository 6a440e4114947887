package model

import "time"

// RegistrationStatus enumerates the states a registration can be in.
// The set is closed: admission never produces values outside of it, and
// StatusRejected is only ever a computed outcome; a rejected request
// creates no row at all.
type RegistrationStatus string

const (
    StatusPending    RegistrationStatus = "pending"
    StatusConfirmed  RegistrationStatus = "confirmed"
    StatusWaitlisted RegistrationStatus = "waitlisted"
    StatusRejected   RegistrationStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s RegistrationStatus) Valid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusWaitlisted, StatusRejected:
        return true
    }
    return false
}

// Registration records a user's attendance claim on an event, stored in
// the `registrations` table.  A row with SessionID == nil is the
// "primary" event-level registration; at most one such row exists per
// (user, event) pair.  Rows with a non-nil SessionID are session-scoped
// and always carry StatusConfirmed.
//
// FeedbackRating and FeedbackComments are written at most once by the
// feedback submission endpoint; a second submission after a non-nil
// rating is rejected.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – registering user.
//  EventID          – target event.
//  SessionID        – session-scoped registration target (nullable).
//  Status           – admission outcome.
//  Attended         – marked by check-in (not part of admission).
//  FeedbackRating   – 1..5 rating (nullable until submitted).
//  FeedbackComments – free-form feedback text (nullable).
//  CreatedAt        – timestamp of creation.
type Registration struct {
    ID               uint64             // registrations.id
    UserID           uint64             // registrations.user_id
    EventID          uint64             // registrations.event_id
    SessionID        *uint64            // registrations.session_id (nullable)
    Status           RegistrationStatus // registrations.status
    Attended         bool               // registrations.attended
    FeedbackRating   *int               // registrations.feedback_rating (nullable)
    FeedbackComments *string            // registrations.feedback_comments (nullable)
    CreatedAt        time.Time          // registrations.created_at
}

// AuditLog is an append-only record of a state-changing action, stored
// in the `audit_logs` table.  Details holds a JSON document whose shape
// depends on the action.
type AuditLog struct {
    ID        uint64    // audit_logs.id
    UserID    *uint64   // audit_logs.user_id (nullable)
    Action    string    // audit_logs.action
    Details   string    // audit_logs.details (JSON)
    CreatedAt time.Time // audit_logs.created_at
}
