package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/repository"
    "github.com/cmis-dev/event-registration/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints
// consume.
type UserStore interface {
    Create(ctx context.Context, u *model.User) error
    GetByEmail(ctx context.Context, email string) (*model.User, error)
    GetByID(ctx context.Context, id uint64) (*model.User, error)
    ActivateByToken(ctx context.Context, token string) (*model.User, error)
}

// Auditor appends best-effort audit entries.
type Auditor interface {
    Record(ctx context.Context, actorID uint64, action string, details map[string]any)
}

// AuthHandler implements account registration, email verification and
// login.  Tokens are short-lived HS256 JWTs; there is no refresh flow,
// clients simply re-authenticate when a token expires.
type AuthHandler struct {
    Users      UserStore
    Audit      Auditor
    Notifier   notifier.Notifier // may be nil when mail is disabled
    JWTSecret  string
    AccessTTL  int // minutes
    BcryptCost int
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users UserStore, audit Auditor, n notifier.Notifier, jwtSecret string, accessTTLMin, bcryptCost int) *AuthHandler {
    if users == nil || audit == nil {
        panic("nil dependency passed to NewAuthHandler")
    }
    return &AuthHandler{Users: users, Audit: audit, Notifier: n, JWTSecret: jwtSecret, AccessTTL: accessTTLMin, BcryptCost: bcryptCost}
}

type userResponse struct {
    ID     uint64     `json:"id"`
    Name   string     `json:"name"`
    Email  string     `json:"email"`
    Role   model.Role `json:"role"`
    Major  *string    `json:"major,omitempty"`
    Active bool       `json:"is_active"`
}

func toUserResponse(u *model.User) userResponse {
    return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Major: u.Major, Active: u.IsActive}
}

// Register handles POST /v1/auth/register.  Admin accounts cannot be
// self-provisioned.  New accounts start inactive with a verification
// token and receive a mail carrying the activation link; Verify
// resolves it.
func (h *AuthHandler) Register(c echo.Context) error {
    var body struct {
        Name     string  `json:"name"`
        Email    string  `json:"email"`
        Password string  `json:"password"`
        Role     string  `json:"role"`
        Major    *string `json:"major"`
        GradYear *int    `json:"graduation_year"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Email = strings.ToLower(strings.TrimSpace(body.Email))
    if body.Email == "" || len(body.Password) < 8 || body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and a password of at least 8 characters are required"})
    }
    role := model.Role(body.Role)
    if body.Role == "" {
        role = model.RoleStudent
    }
    if !role.Valid() || role == model.RoleAdmin {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
    }

    hash, err := utils.HashPassword(body.Password, h.BcryptCost)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hash password"})
    }
    token := uuid.New().String()
    user := &model.User{
        Name:              body.Name,
        Email:             body.Email,
        PasswordHash:      hash,
        Role:              role,
        Major:             body.Major,
        GraduationYear:    body.GradYear,
        IsActive:          false,
        VerificationToken: &token,
    }
    if err := h.Users.Create(c.Request().Context(), user); err != nil {
        if errors.Is(err, repository.ErrEmailTaken) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Audit.Record(c.Request().Context(), user.ID, "USER_REGISTERED", map[string]any{
        "email": user.Email,
        "role":  string(user.Role),
    })

    if h.Notifier != nil {
        err := h.Notifier.Send(c.Request().Context(), user.Email, notifier.TemplateEmailVerification, notifier.Payload{
            RecipientName: user.Name,
            Token:         token,
        })
        if err != nil {
            // The account still exists; the operator can resend or
            // activate manually from the logged token.
            log.Printf("auth: verification mail to %s failed (token %s): %v", user.Email, token, err)
        }
    } else {
        log.Printf("auth: mail disabled, verification token for %s: %s", user.Email, token)
    }
    return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Verify handles GET /v1/auth/verify.  The token from the verification
// mail activates the account and is cleared so the link is single-use.
func (h *AuthHandler) Verify(c echo.Context) error {
    token := c.QueryParam("token")
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
    }
    user, err := h.Users.ActivateByToken(c.Request().Context(), token)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification token"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Audit.Record(c.Request().Context(), user.ID, "USER_EMAIL_VERIFIED", map[string]any{
        "email": user.Email,
        "role":  string(user.Role),
    })
    return c.JSON(http.StatusOK, echo.Map{"message": "account verified, you can now log in"})
}

// Login handles POST /v1/auth/login and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var body struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Email = strings.ToLower(strings.TrimSpace(body.Email))

    user, err := h.Users.GetByEmail(c.Request().Context(), body.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !utils.VerifyPassword(user.PasswordHash, body.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !user.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account not verified, check your email for the verification link"})
    }

    tok, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.Role, h.AccessTTL)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign token"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
        "user":         toUserResponse(user),
    })
}

// Me handles GET /v1/me and returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    user, err := h.Users.GetByID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, toUserResponse(user))
}
