// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// RegistrationCreatedEvent is published whenever the admission engine
// creates a new primary registration.  It carries enough information
// for downstream consumers to log, notify, or feed analytics without
// querying the primary database.  MessageID is a per-publish UUID so
// consumers can detect broker redeliveries.
type RegistrationCreatedEvent struct {
    MessageID      string `json:"message_id"`
    RegistrationID uint64 `json:"registration_id"`
    UserID         uint64 `json:"user_id"`
    EventID        uint64 `json:"event_id"`
    EventTitle     string `json:"event_title"`
    Status         string `json:"status"`
    SessionCount   int    `json:"session_count"`
    CreatedAt      string `json:"created_at"`
}
