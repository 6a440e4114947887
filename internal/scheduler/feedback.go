// Package scheduler runs the recurring background task that dispatches
// post-event feedback requests.  One scheduler instance runs per
// process; ticks never overlap because the loop runs them sequentially
// on a single goroutine.  Running multiple instances would double-send:
// there is no per-event claim.
package scheduler

import (
    "context"
    "log"
    "time"

    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/repository"
)

// EventStore is the slice of the event repository the scheduler needs:
// the eligibility query and the one-way dispatch flag.
type EventStore interface {
    ListFeedbackEligible(ctx context.Context, now time.Time) ([]model.Event, error)
    MarkFeedbackSent(ctx context.Context, eventID uint64) error
}

// RecipientStore lists the confirmed attendees of an event together
// with their contact addresses.
type RecipientStore interface {
    ListConfirmedRecipients(ctx context.Context, eventID uint64) ([]repository.FeedbackRecipient, error)
}

// FeedbackScheduler polls for events whose end time has passed and
// requests feedback from every confirmed attendee, exactly once per
// event.  Individual send failures are logged and do not prevent the
// event from being marked as dispatched; those attendees simply never
// receive the request.  There is no retry.
type FeedbackScheduler struct {
    events   EventStore
    regs     RecipientStore
    notifier notifier.Notifier
    interval time.Duration

    now  func() time.Time // injectable clock for tests
    quit chan struct{}
    done chan struct{}
}

// New constructs a FeedbackScheduler.  interval is the wall-clock poll
// period; the reference deployment uses five minutes.
func New(events EventStore, regs RecipientStore, n notifier.Notifier, interval time.Duration) *FeedbackScheduler {
    if events == nil || regs == nil || n == nil {
        panic("nil dependency passed to scheduler.New")
    }
    if interval <= 0 {
        interval = 5 * time.Minute
    }
    return &FeedbackScheduler{
        events:   events,
        regs:     regs,
        notifier: n,
        interval: interval,
        now:      time.Now,
        quit:     make(chan struct{}),
        done:     make(chan struct{}),
    }
}

// Start launches the poll loop on its own goroutine.  The first tick
// runs one full interval after Start, matching the reference behavior.
func (s *FeedbackScheduler) Start() {
    go s.run()
    log.Printf("feedback-scheduler: started (interval %s)", s.interval)
}

// Stop shuts the loop down and blocks until it has exited.  A tick in
// progress finishes its current event first, so the dispatch flag is
// never left unset after notifications went out.
func (s *FeedbackScheduler) Stop() {
    close(s.quit)
    <-s.done
    log.Printf("feedback-scheduler: stopped")
}

func (s *FeedbackScheduler) run() {
    defer close(s.done)
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-s.quit:
            return
        case <-ticker.C:
            s.tick(context.Background())
        }
    }
}

// tick processes one eligibility scan.  Failures are contained at the
// per-event level: an error while handling one event is logged and the
// loop moves on to the next, so a single bad row cannot starve the
// rest of the set.
func (s *FeedbackScheduler) tick(ctx context.Context) {
    now := s.now().UTC()
    events, err := s.events.ListFeedbackEligible(ctx, now)
    if err != nil {
        log.Printf("feedback-scheduler: eligibility query failed: %v", err)
        return
    }
    if len(events) == 0 {
        return
    }
    log.Printf("feedback-scheduler: %d event(s) due for feedback dispatch", len(events))

    for i := range events {
        s.dispatchEvent(ctx, &events[i])
    }
}

// dispatchEvent fans out feedback requests for one event and flips the
// dispatch flag.  The flag is set after all recipients were attempted,
// regardless of individual send outcomes.
func (s *FeedbackScheduler) dispatchEvent(ctx context.Context, event *model.Event) {
    recipients, err := s.regs.ListConfirmedRecipients(ctx, event.ID)
    if err != nil {
        // Leave the flag unset; the event is retried on the next tick.
        log.Printf("feedback-scheduler: list recipients for event %d failed: %v", event.ID, err)
        return
    }

    for _, r := range recipients {
        err := s.notifier.Send(ctx, r.Email, notifier.TemplateFeedbackRequest, notifier.Payload{
            EventTitle:     event.Title,
            RecipientName:  r.Name,
            RegistrationID: r.RegistrationID,
        })
        if err != nil {
            log.Printf("feedback-scheduler: send to %s for event %d failed: %v", r.Email, event.ID, err)
        }
    }

    if err := s.events.MarkFeedbackSent(ctx, event.ID); err != nil {
        // The event stays eligible and its recipients will be contacted
        // again next tick; delivery is at-least-once in this failure mode.
        log.Printf("feedback-scheduler: mark event %d sent failed: %v", event.ID, err)
        return
    }
    log.Printf("feedback-scheduler: event %d %q dispatched to %d recipient(s)", event.ID, event.Title, len(recipients))
}
