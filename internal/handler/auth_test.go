package handler

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/repository"
)

type fakeUserStore struct {
    nextID uint64
    users  []*model.User
}

func (f *fakeUserStore) Create(ctx context.Context, u *model.User) error {
    for _, existing := range f.users {
        if existing.Email == u.Email {
            return repository.ErrEmailTaken
        }
    }
    f.nextID++
    u.ID = f.nextID
    f.users = append(f.users, u)
    return nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    for _, u := range f.users {
        if u.Email == email {
            return u, nil
        }
    }
    return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    for _, u := range f.users {
        if u.ID == id {
            return u, nil
        }
    }
    return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) ActivateByToken(ctx context.Context, token string) (*model.User, error) {
    for _, u := range f.users {
        if u.VerificationToken != nil && *u.VerificationToken == token {
            u.IsActive = true
            u.VerificationToken = nil
            return u, nil
        }
    }
    return nil, repository.ErrUserNotFound
}

type noopAuditor struct{}

func (noopAuditor) Record(ctx context.Context, actorID uint64, action string, details map[string]any) {
}

func newTestAuthHandler() (*AuthHandler, *fakeUserStore) {
    users := &fakeUserStore{}
    // MinCost keeps the hashing in these tests fast.
    return NewAuthHandler(users, noopAuditor{}, nil, "test-secret", 15, bcrypt.MinCost), users
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := echo.New().NewContext(req, rec)
    require.NoError(t, h(c))
    return rec
}

func TestRegisterVerifyLogin(t *testing.T) {
    h, users := newTestAuthHandler()
    const creds = `{"name":"Ada","email":"ada@campus.edu","password":"hunter2hunter2"}`

    rec := doRequest(t, h.Register, http.MethodPost, "/v1/auth/register", creds)
    require.Equal(t, http.StatusCreated, rec.Code)

    // Until the mail link is followed the account cannot log in.
    rec = doRequest(t, h.Login, http.MethodPost, "/v1/auth/login", creds)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    user, err := users.GetByEmail(context.Background(), "ada@campus.edu")
    require.NoError(t, err)
    require.NotNil(t, user.VerificationToken)

    rec = doRequest(t, h.Verify, http.MethodGet,
        fmt.Sprintf("/v1/auth/verify?token=%s", *user.VerificationToken), "")
    require.Equal(t, http.StatusOK, rec.Code)

    // A freshly registered and verified user logs straight in.
    rec = doRequest(t, h.Login, http.MethodPost, "/v1/auth/login", creds)
    require.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        AccessToken string `json:"access_token"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.NotEmpty(t, resp.AccessToken)
}

func TestVerifyUnknownToken(t *testing.T) {
    h, _ := newTestAuthHandler()
    rec := doRequest(t, h.Verify, http.MethodGet, "/v1/auth/verify?token=nope", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyTokenIsSingleUse(t *testing.T) {
    h, users := newTestAuthHandler()
    doRequest(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"name":"Bob","email":"bob@campus.edu","password":"hunter2hunter2"}`)

    user, err := users.GetByEmail(context.Background(), "bob@campus.edu")
    require.NoError(t, err)
    token := *user.VerificationToken

    rec := doRequest(t, h.Verify, http.MethodGet, "/v1/auth/verify?token="+token, "")
    require.Equal(t, http.StatusOK, rec.Code)
    rec = doRequest(t, h.Verify, http.MethodGet, "/v1/auth/verify?token="+token, "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
    h, _ := newTestAuthHandler()
    rec := doRequest(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"name":"Eve","email":"eve@campus.edu","password":"hunter2hunter2","role":"admin"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
