// Package repository implements data access over database/sql for the
// event registration schema.  This file defines sentinel error values
// shared across repositories so that higher layers can distinguish
// failure scenarios with errors.Is and map them to HTTP statuses.
package repository

import "errors"

// ErrEventNotFound is returned when a referenced event does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrRegistrationNotFound is returned when a registration lookup
// matches no row.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrEmailTaken is returned when creating a user with an email that is
// already registered.  Handlers should translate this into 409.
var ErrEmailTaken = errors.New("email already registered")

// ErrFeedbackSubmitted is returned when feedback is submitted for a
// registration that already carries a rating.  The rating is write-once;
// handlers should translate this into 400.
var ErrFeedbackSubmitted = errors.New("feedback already submitted")
