package model

import "time"

// Event represents a registrable event as stored in the `events` table.
// Capacity handling is driven by three columns: RegistrationCap limits
// confirmed registrations (nil means unlimited), WaitlistLimit caps the
// waitlist (nil means a default derived from the cap), and
// FacultyApprovalRequired forces new registrations into a pending state
// until resolved manually.
//
// FeedbackEmailSent is a one-way flag owned by the feedback scheduler:
// it transitions false to true exactly once per event lifetime and is
// never reset.
//
// Fields:
//  ID                      – primary key identifier.
//  Title                   – event title shown in notifications.
//  Description             – free-form description.
//  DateTime                – when the event starts.
//  EndDateTime             – when the event ends (nullable; used only by
//                            the feedback scheduler).
//  RegistrationCap         – max confirmed registrations (nullable).
//  WaitlistLimit           – max waitlisted registrations (nullable).
//  FacultyApprovalRequired – registrations need manual approval.
//  Visibility              – audience filter (public, ms_mis, sponsor_tier).
//  CreatedByID             – user who created the event (nullable).
//  FeedbackEmailSent       – feedback requests already dispatched.
//  CreatedAt               – timestamp of creation.
type Event struct {
    ID                      uint64     // events.id
    Title                   string     // events.title
    Description             string     // events.description
    DateTime                time.Time  // events.date_time
    EndDateTime             *time.Time // events.end_date_time (nullable)
    RegistrationCap         *uint32    // events.registration_cap (nullable)
    WaitlistLimit           *uint32    // events.waitlist_limit (nullable)
    FacultyApprovalRequired bool       // events.faculty_approval_required
    Visibility              string     // events.visibility
    CreatedByID             *uint64    // events.created_by_id (nullable)
    FeedbackEmailSent       bool       // events.feedback_email_sent
    CreatedAt               time.Time  // events.created_at
}

// EventSession is an optional sub-unit of an event (a talk, workshop
// slot, etc.) that attendees may register for individually.  Session
// registrations bypass the event-level capacity rules entirely.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – parent event.
//  Title     – session title.
//  StartTime – when the session starts.
//  EndTime   – when the session ends.
//  Capacity  – advisory capacity (nullable, not enforced).
//  Position  – ordering hint within the event.
type EventSession struct {
    ID        uint64    // event_sessions.id
    EventID   uint64    // event_sessions.event_id
    Title     string    // event_sessions.title
    StartTime time.Time // event_sessions.start_time
    EndTime   time.Time // event_sessions.end_time
    Capacity  *uint32   // event_sessions.capacity (nullable)
    Position  int       // event_sessions.position
}
