package admission

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/cmis-dev/event-registration/internal/model"
)

func u32(v uint32) *uint32 { return &v }

func TestDecideUnlimitedEvent(t *testing.T) {
    p := Policy{}
    st, err := Decide(p, Counts{Confirmed: 10_000})
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, st)
}

func TestDecideConfirmsBelowCap(t *testing.T) {
    p := Policy{RegistrationCap: u32(10)}
    st, err := Decide(p, Counts{Confirmed: 9})
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, st)
}

func TestDecideWaitlistsAtCap(t *testing.T) {
    // Cap 10 derives a waitlist limit of max(2, 1) = 2: requests 11 and
    // 12 are waitlisted, request 13 is refused.
    p := Policy{RegistrationCap: u32(10)}

    st, err := Decide(p, Counts{Confirmed: 10, Waitlisted: 0})
    require.NoError(t, err)
    assert.Equal(t, model.StatusWaitlisted, st)

    st, err = Decide(p, Counts{Confirmed: 10, Waitlisted: 1})
    require.NoError(t, err)
    assert.Equal(t, model.StatusWaitlisted, st)

    _, err = Decide(p, Counts{Confirmed: 10, Waitlisted: 2})
    assert.ErrorIs(t, err, ErrRegistrationRefused)
}

func TestDecideDefaultWaitlistTenPercent(t *testing.T) {
    // Cap 100 derives a waitlist limit of 10.
    p := Policy{RegistrationCap: u32(100)}

    st, err := Decide(p, Counts{Confirmed: 100, Waitlisted: 9})
    require.NoError(t, err)
    assert.Equal(t, model.StatusWaitlisted, st)

    _, err = Decide(p, Counts{Confirmed: 100, Waitlisted: 10})
    assert.ErrorIs(t, err, ErrRegistrationRefused)
}

func TestDecideExplicitZeroWaitlist(t *testing.T) {
    // An explicit zero limit refuses as soon as the cap is reached;
    // it must not fall back to the derived default.
    p := Policy{RegistrationCap: u32(2), WaitlistLimit: u32(0)}

    st, err := Decide(p, Counts{Confirmed: 1})
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, st)

    _, err = Decide(p, Counts{Confirmed: 2})
    assert.ErrorIs(t, err, ErrRegistrationRefused)
}

func TestDecideExplicitWaitlistOverridesDefault(t *testing.T) {
    p := Policy{RegistrationCap: u32(100), WaitlistLimit: u32(1)}

    st, err := Decide(p, Counts{Confirmed: 100, Waitlisted: 0})
    require.NoError(t, err)
    assert.Equal(t, model.StatusWaitlisted, st)

    _, err = Decide(p, Counts{Confirmed: 100, Waitlisted: 1})
    assert.ErrorIs(t, err, ErrRegistrationRefused)
}

func TestDecideApprovalOverridesConfirmed(t *testing.T) {
    p := Policy{RegistrationCap: u32(10), FacultyApprovalRequired: true}
    st, err := Decide(p, Counts{Confirmed: 0})
    require.NoError(t, err)
    assert.Equal(t, model.StatusPending, st)
}

func TestDecideApprovalOverridesWaitlisted(t *testing.T) {
    p := Policy{RegistrationCap: u32(10), FacultyApprovalRequired: true}
    st, err := Decide(p, Counts{Confirmed: 10, Waitlisted: 0})
    require.NoError(t, err)
    assert.Equal(t, model.StatusPending, st)
}

func TestDecideApprovalCannotRescueRefusal(t *testing.T) {
    p := Policy{RegistrationCap: u32(10), WaitlistLimit: u32(0), FacultyApprovalRequired: true}
    _, err := Decide(p, Counts{Confirmed: 10})
    assert.ErrorIs(t, err, ErrRegistrationRefused)
}

func TestEffectiveWaitlistLimit(t *testing.T) {
    tests := []struct {
        name   string
        policy Policy
        limit  uint32
        ok     bool
    }{
        {"explicit wins", Policy{RegistrationCap: u32(100), WaitlistLimit: u32(5)}, 5, true},
        {"explicit zero wins", Policy{RegistrationCap: u32(100), WaitlistLimit: u32(0)}, 0, true},
        {"derived ten percent", Policy{RegistrationCap: u32(50)}, 5, true},
        {"derived floor of two", Policy{RegistrationCap: u32(10)}, 2, true},
        {"derived floor small cap", Policy{RegistrationCap: u32(3)}, 2, true},
        {"no cap no limit", Policy{}, 0, false},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            limit, ok := EffectiveWaitlistLimit(tt.policy)
            assert.Equal(t, tt.ok, ok)
            if ok {
                assert.Equal(t, tt.limit, limit)
            }
        })
    }
}
