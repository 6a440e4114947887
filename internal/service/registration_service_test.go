package service

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/cmis-dev/event-registration/internal/admission"
    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/queue"
    "github.com/cmis-dev/event-registration/internal/repository"
)

type memEventStore struct {
    events map[uint64]*model.Event
}

func (m *memEventStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    e, ok := m.events[id]
    if !ok {
        return nil, repository.ErrEventNotFound
    }
    return e, nil
}

// memRegStore is an in-memory RegistrationStore keeping counts honest:
// every decision reads the live slice, never a cached counter.
type memRegStore struct {
    nextID uint64
    regs   []*model.Registration
}

func (m *memRegStore) CountByStatus(ctx context.Context, eventID uint64, status model.RegistrationStatus) (uint32, error) {
    var n uint32
    for _, r := range m.regs {
        if r.EventID == eventID && r.Status == status && r.SessionID == nil {
            n++
        }
    }
    return n, nil
}

func (m *memRegStore) FindPrimary(ctx context.Context, userID, eventID uint64) (*model.Registration, error) {
    for _, r := range m.regs {
        if r.UserID == userID && r.EventID == eventID && r.SessionID == nil {
            return r, nil
        }
    }
    return nil, nil
}

func (m *memRegStore) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
    for _, r := range m.regs {
        if r.ID == id {
            return r, nil
        }
    }
    return nil, repository.ErrRegistrationNotFound
}

func (m *memRegStore) Create(ctx context.Context, reg *model.Registration) error {
    m.nextID++
    reg.ID = m.nextID
    m.regs = append(m.regs, reg)
    return nil
}

func (m *memRegStore) DeleteByUserAndEvent(ctx context.Context, userID, eventID uint64) error {
    kept := m.regs[:0]
    deleted := 0
    for _, r := range m.regs {
        if r.UserID == userID && r.EventID == eventID {
            deleted++
            continue
        }
        kept = append(kept, r)
    }
    m.regs = kept
    if deleted == 0 {
        return repository.ErrRegistrationNotFound
    }
    return nil
}

func (m *memRegStore) ListByUser(ctx context.Context, userID uint64) ([]model.Registration, error) {
    var out []model.Registration
    for _, r := range m.regs {
        if r.UserID == userID {
            out = append(out, *r)
        }
    }
    return out, nil
}

func (m *memRegStore) SubmitFeedback(ctx context.Context, registrationID uint64, rating int, comments string) error {
    for _, r := range m.regs {
        if r.ID == registrationID {
            if r.FeedbackRating != nil {
                return repository.ErrFeedbackSubmitted
            }
            r.FeedbackRating = &rating
            r.FeedbackComments = &comments
            return nil
        }
    }
    return repository.ErrRegistrationNotFound
}

type memUserStore struct{}

func (memUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    return &model.User{ID: id, Name: "Test User", Email: "user@campus.edu"}, nil
}

type recordingAuditor struct {
    actions []string
}

func (a *recordingAuditor) Record(ctx context.Context, actorID uint64, action string, details map[string]any) {
    a.actions = append(a.actions, action)
}

type recordingNotifier struct {
    kinds []notifier.TemplateKind
}

func (n *recordingNotifier) Send(ctx context.Context, recipient string, kind notifier.TemplateKind, p notifier.Payload) error {
    n.kinds = append(n.kinds, kind)
    return nil
}

func u32(v uint32) *uint32 { return &v }

func newTestService(events map[uint64]*model.Event) (*RegistrationService, *memRegStore, *recordingAuditor, *recordingNotifier) {
    regs := &memRegStore{}
    audit := &recordingAuditor{}
    notif := &recordingNotifier{}
    svc := NewRegistrationService(&memEventStore{events: events}, regs, memUserStore{}, audit, notif)
    svc.publishFn = func(ctx context.Context, ev queue.RegistrationCreatedEvent) error { return nil }
    return svc, regs, audit, notif
}

func TestAdmitEventNotFound(t *testing.T) {
    svc, regs, _, _ := newTestService(map[uint64]*model.Event{})
    _, err := svc.Admit(context.Background(), 1, 42, nil)
    assert.ErrorIs(t, err, repository.ErrEventNotFound)
    assert.Empty(t, regs.regs)
}

func TestAdmitConfirmsWithRoom(t *testing.T) {
    svc, _, audit, notif := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Tech Talk", RegistrationCap: u32(10)},
    })
    reg, err := svc.Admit(context.Background(), 7, 1, nil)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, reg.Status)
    assert.Equal(t, []string{"EVENT_REGISTERED"}, audit.actions)
    assert.Equal(t, []notifier.TemplateKind{notifier.TemplateRegistrationConfirmed}, notif.kinds)
}

func TestAdmitIsIdempotentPerUserEvent(t *testing.T) {
    svc, regs, audit, _ := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Tech Talk"},
    })
    first, err := svc.Admit(context.Background(), 7, 1, nil)
    require.NoError(t, err)
    second, err := svc.Admit(context.Background(), 7, 1, nil)
    require.NoError(t, err)

    assert.Equal(t, first.ID, second.ID)
    assert.Equal(t, first.Status, second.Status)
    assert.Len(t, regs.regs, 1)
    // Only the first call audits a create.
    assert.Len(t, audit.actions, 1)
}

func TestAdmitCapOverflowWaitlistsThenRefuses(t *testing.T) {
    svc, _, _, notif := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Popular", RegistrationCap: u32(10)},
    })
    ctx := context.Background()
    for user := uint64(1); user <= 10; user++ {
        reg, err := svc.Admit(ctx, user, 1, nil)
        require.NoError(t, err)
        require.Equal(t, model.StatusConfirmed, reg.Status)
    }
    // Default waitlist limit is max(2, floor(10*0.10)) = 2.
    for user := uint64(11); user <= 12; user++ {
        reg, err := svc.Admit(ctx, user, 1, nil)
        require.NoError(t, err)
        require.Equal(t, model.StatusWaitlisted, reg.Status)
    }
    _, err := svc.Admit(ctx, 13, 1, nil)
    assert.ErrorIs(t, err, admission.ErrRegistrationRefused)

    assert.Equal(t, notifier.TemplateRegistrationWaitlisted, notif.kinds[10])
}

func TestAdmitRefusalCreatesNoRecord(t *testing.T) {
    svc, regs, audit, _ := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Tiny", RegistrationCap: u32(2), WaitlistLimit: u32(0)},
    })
    ctx := context.Background()
    _, err := svc.Admit(ctx, 1, 1, nil)
    require.NoError(t, err)
    _, err = svc.Admit(ctx, 2, 1, nil)
    require.NoError(t, err)

    _, err = svc.Admit(ctx, 3, 1, nil)
    require.ErrorIs(t, err, admission.ErrRegistrationRefused)
    assert.Len(t, regs.regs, 2)
    assert.Len(t, audit.actions, 2)
}

func TestAdmitApprovalGateYieldsPending(t *testing.T) {
    svc, _, _, notif := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Gated", RegistrationCap: u32(10), FacultyApprovalRequired: true},
    })
    reg, err := svc.Admit(context.Background(), 1, 1, nil)
    require.NoError(t, err)
    assert.Equal(t, model.StatusPending, reg.Status)
    assert.Equal(t, []notifier.TemplateKind{notifier.TemplateRegistrationPending}, notif.kinds)
}

func TestAdmitSessionRegistrationsBypassCapacity(t *testing.T) {
    svc, regs, _, _ := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Conference", RegistrationCap: u32(0)}, // no room at all
    })
    // Event is full from the start, so the primary lands on the waitlist,
    // but the session rows are still created as confirmed.
    reg, err := svc.Admit(context.Background(), 1, 1, []uint64{100, 101})
    require.NoError(t, err)
    assert.Equal(t, model.StatusWaitlisted, reg.Status)

    var sessions int
    for _, r := range regs.regs {
        if r.SessionID != nil {
            sessions++
            assert.Equal(t, model.StatusConfirmed, r.Status)
        }
    }
    assert.Equal(t, 2, sessions)
}

func TestCancelRemovesRegistrations(t *testing.T) {
    svc, regs, audit, _ := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Tech Talk"},
    })
    ctx := context.Background()
    _, err := svc.Admit(ctx, 7, 1, []uint64{5})
    require.NoError(t, err)

    require.NoError(t, svc.Cancel(ctx, 7, 1))
    assert.Empty(t, regs.regs)
    assert.Contains(t, audit.actions, "EVENT_UNREGISTERED")

    assert.ErrorIs(t, svc.Cancel(ctx, 7, 1), repository.ErrRegistrationNotFound)
}

func TestSubmitFeedbackWriteOnce(t *testing.T) {
    svc, _, _, _ := newTestService(map[uint64]*model.Event{
        1: {ID: 1, Title: "Tech Talk"},
    })
    ctx := context.Background()
    reg, err := svc.Admit(ctx, 7, 1, nil)
    require.NoError(t, err)

    require.NoError(t, svc.SubmitFeedback(ctx, reg.ID, 5, "great"))
    assert.ErrorIs(t, svc.SubmitFeedback(ctx, reg.ID, 1, "changed my mind"), repository.ErrFeedbackSubmitted)
}

func TestSubmitFeedbackValidatesRating(t *testing.T) {
    svc, _, _, _ := newTestService(map[uint64]*model.Event{})
    assert.Error(t, svc.SubmitFeedback(context.Background(), 1, 0, ""))
    assert.Error(t, svc.SubmitFeedback(context.Background(), 1, 6, ""))
}
