package scheduler

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/repository"
)

type fakeEventStore struct {
    mu      sync.Mutex
    events  []model.Event
    listErr error
    markErr error
}

func (f *fakeEventStore) ListFeedbackEligible(ctx context.Context, now time.Time) ([]model.Event, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.listErr != nil {
        return nil, f.listErr
    }
    var out []model.Event
    for _, e := range f.events {
        if e.EndDateTime != nil && e.EndDateTime.Before(now) && !e.FeedbackEmailSent {
            out = append(out, e)
        }
    }
    return out, nil
}

func (f *fakeEventStore) MarkFeedbackSent(ctx context.Context, eventID uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.markErr != nil {
        return f.markErr
    }
    for i := range f.events {
        if f.events[i].ID == eventID {
            f.events[i].FeedbackEmailSent = true
        }
    }
    return nil
}

func (f *fakeEventStore) sent(eventID uint64) bool {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, e := range f.events {
        if e.ID == eventID {
            return e.FeedbackEmailSent
        }
    }
    return false
}

type fakeRecipientStore struct {
    recipients map[uint64][]repository.FeedbackRecipient
    errs       map[uint64]error
}

func (f *fakeRecipientStore) ListConfirmedRecipients(ctx context.Context, eventID uint64) ([]repository.FeedbackRecipient, error) {
    if err := f.errs[eventID]; err != nil {
        return nil, err
    }
    return f.recipients[eventID], nil
}

type fakeNotifier struct {
    mu      sync.Mutex
    sends   []string // recipients in send order
    failFor map[string]error
}

func (f *fakeNotifier) Send(ctx context.Context, recipient string, kind notifier.TemplateKind, p notifier.Payload) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.sends = append(f.sends, recipient)
    if err := f.failFor[recipient]; err != nil {
        return err
    }
    return nil
}

func (f *fakeNotifier) sent() []string {
    f.mu.Lock()
    defer f.mu.Unlock()
    return append([]string(nil), f.sends...)
}

func pastEvent(id uint64, title string, endedAgo time.Duration) model.Event {
    end := time.Now().UTC().Add(-endedAgo)
    return model.Event{ID: id, Title: title, EndDateTime: &end}
}

func newTestScheduler(events *fakeEventStore, regs *fakeRecipientStore, n *fakeNotifier) *FeedbackScheduler {
    return New(events, regs, n, time.Minute)
}

func TestTickDispatchesAndMarksOnce(t *testing.T) {
    events := &fakeEventStore{events: []model.Event{pastEvent(1, "Career Fair", time.Minute)}}
    regs := &fakeRecipientStore{recipients: map[uint64][]repository.FeedbackRecipient{
        1: {
            {RegistrationID: 10, EventID: 1, Email: "ok@campus.edu", Name: "Ada"},
            {RegistrationID: 11, EventID: 1, Email: "broken@campus.edu", Name: "Bob"},
        },
    }}
    n := &fakeNotifier{failFor: map[string]error{"broken@campus.edu": errors.New("smtp 550")}}

    s := newTestScheduler(events, regs, n)
    s.tick(context.Background())

    // Both recipients attempted despite the failure, and the event is
    // marked even though one delivery failed.
    assert.ElementsMatch(t, []string{"ok@campus.edu", "broken@campus.edu"}, n.sent())
    assert.True(t, events.sent(1))

    // A second tick must not re-attempt either recipient.
    s.tick(context.Background())
    assert.Len(t, n.sent(), 2)
}

func TestTickIgnoresFutureAndUnscheduledEvents(t *testing.T) {
    future := time.Now().UTC().Add(time.Hour)
    events := &fakeEventStore{events: []model.Event{
        {ID: 1, Title: "Future", EndDateTime: &future},
        {ID: 2, Title: "No end time"},
    }}
    regs := &fakeRecipientStore{}
    n := &fakeNotifier{}

    s := newTestScheduler(events, regs, n)
    for i := 0; i < 3; i++ {
        s.tick(context.Background())
    }
    assert.Empty(t, n.sent())
    assert.False(t, events.sent(1))
    assert.False(t, events.sent(2))
}

func TestTickRecipientQueryFailureLeavesEventEligible(t *testing.T) {
    events := &fakeEventStore{events: []model.Event{pastEvent(1, "Hackathon", time.Minute)}}
    regs := &fakeRecipientStore{errs: map[uint64]error{1: errors.New("db gone")}}
    n := &fakeNotifier{}

    s := newTestScheduler(events, regs, n)
    s.tick(context.Background())

    require.False(t, events.sent(1))

    // Once the store recovers, the next tick picks the event up again.
    regs.errs = nil
    regs.recipients = map[uint64][]repository.FeedbackRecipient{
        1: {{RegistrationID: 7, EventID: 1, Email: "late@campus.edu"}},
    }
    s.tick(context.Background())
    assert.Equal(t, []string{"late@campus.edu"}, n.sent())
    assert.True(t, events.sent(1))
}

func TestTickEventFailureDoesNotBlockOthers(t *testing.T) {
    events := &fakeEventStore{events: []model.Event{
        pastEvent(1, "Broken", time.Minute),
        pastEvent(2, "Fine", time.Minute),
    }}
    regs := &fakeRecipientStore{
        errs: map[uint64]error{1: errors.New("db gone")},
        recipients: map[uint64][]repository.FeedbackRecipient{
            2: {{RegistrationID: 20, EventID: 2, Email: "fine@campus.edu"}},
        },
    }
    n := &fakeNotifier{}

    s := newTestScheduler(events, regs, n)
    s.tick(context.Background())

    assert.Equal(t, []string{"fine@campus.edu"}, n.sent())
    assert.False(t, events.sent(1))
    assert.True(t, events.sent(2))
}

func TestTickEligibilityQueryFailureIsContained(t *testing.T) {
    events := &fakeEventStore{listErr: errors.New("db gone")}
    s := newTestScheduler(events, &fakeRecipientStore{}, &fakeNotifier{})
    // Must not panic; the tick simply gives up until the next interval.
    s.tick(context.Background())
}

func TestStartStopLoop(t *testing.T) {
    events := &fakeEventStore{events: []model.Event{pastEvent(1, "Demo Day", time.Minute)}}
    regs := &fakeRecipientStore{recipients: map[uint64][]repository.FeedbackRecipient{
        1: {{RegistrationID: 5, EventID: 1, Email: "demo@campus.edu"}},
    }}
    n := &fakeNotifier{}

    s := New(events, regs, n, 10*time.Millisecond)
    s.Start()
    require.Eventually(t, func() bool { return events.sent(1) }, 2*time.Second, 5*time.Millisecond)
    s.Stop()

    sends := len(n.sent())
    assert.Equal(t, 1, sends)

    // The loop is down: no further sends after Stop returns.
    time.Sleep(30 * time.Millisecond)
    assert.Equal(t, sends, len(n.sent()))
}
