// Package admission implements the decision policy applied to incoming
// event registrations.  The decision is a pure function of the event's
// configuration and the current registration counts; it performs no I/O
// and creates no records.  Callers (the registration service) are
// responsible for loading fresh counts, handling the already-registered
// case, and persisting the outcome.
package admission

import (
    "errors"

    "github.com/cmis-dev/event-registration/internal/model"
)

// ErrRegistrationRefused is returned when both the event and its
// waitlist are at capacity.  No registration record may be created for
// a refused request.
var ErrRegistrationRefused = errors.New("event and waitlist are full")

// Policy is the subset of an event's configuration that drives the
// admission decision.
//
// A nil RegistrationCap means unlimited confirmed registrations.  A nil
// WaitlistLimit means the limit is derived from the cap (see
// EffectiveWaitlistLimit); an explicit zero means no waitlist at all.
type Policy struct {
    RegistrationCap         *uint32
    WaitlistLimit           *uint32
    FacultyApprovalRequired bool
}

// PolicyFor extracts the admission policy from an event record.
func PolicyFor(e *model.Event) Policy {
    return Policy{
        RegistrationCap:         e.RegistrationCap,
        WaitlistLimit:           e.WaitlistLimit,
        FacultyApprovalRequired: e.FacultyApprovalRequired,
    }
}

// Counts holds the registration tallies an admission decision is based
// on.  They must be recomputed fresh for every decision; no caching.
type Counts struct {
    Confirmed  uint32
    Waitlisted uint32
}

// EffectiveWaitlistLimit resolves the waitlist limit for a policy.  An
// explicitly configured limit wins, including zero.  Otherwise, when a
// registration cap is set, the limit defaults to 10% of the cap with a
// floor of two spots.  With neither configured there is no restriction
// and ok is false.
func EffectiveWaitlistLimit(p Policy) (limit uint32, ok bool) {
    if p.WaitlistLimit != nil {
        return *p.WaitlistLimit, true
    }
    if p.RegistrationCap != nil {
        limit = *p.RegistrationCap / 10
        if limit < 2 {
            limit = 2
        }
        return limit, true
    }
    return 0, false
}

// Decide computes the status for a brand-new primary registration.
//
// The request is confirmed while the event has room.  Once the cap is
// reached the request falls through to the waitlist, and when the
// waitlist is also full it is refused outright with
// ErrRegistrationRefused.  If the event requires faculty approval the
// provisional status collapses to pending, but a refusal is final;
// approval cannot rescue a full waitlist.
func Decide(p Policy, c Counts) (model.RegistrationStatus, error) {
    status := model.StatusConfirmed
    if p.RegistrationCap != nil && c.Confirmed >= *p.RegistrationCap {
        if limit, ok := EffectiveWaitlistLimit(p); ok && c.Waitlisted >= limit {
            return model.StatusRejected, ErrRegistrationRefused
        }
        status = model.StatusWaitlisted
    }
    if p.FacultyApprovalRequired {
        status = model.StatusPending
    }
    return status, nil
}
