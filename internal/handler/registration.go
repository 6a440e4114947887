package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/cmis-dev/event-registration/internal/admission"
    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/repository"
    "github.com/cmis-dev/event-registration/internal/service"
)

// RegistrationHandler exposes the registration flow over HTTP.  All the
// admission logic lives in the service layer; the handler only maps
// requests and errors.
type RegistrationHandler struct {
    Svc *service.RegistrationService
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
    if svc == nil {
        panic("nil service passed to NewRegistrationHandler")
    }
    return &RegistrationHandler{Svc: svc}
}

type registrationResponse struct {
    ID               uint64  `json:"id"`
    UserID           uint64  `json:"user_id"`
    EventID          uint64  `json:"event_id"`
    SessionID        *uint64 `json:"session_id,omitempty"`
    Status           string  `json:"status"`
    Attended         bool    `json:"attended"`
    FeedbackRating   *int    `json:"feedback_rating,omitempty"`
    FeedbackComments *string `json:"feedback_comments,omitempty"`
    CreatedAt        string  `json:"created_at"`
}

func toRegistrationResponse(r *model.Registration) registrationResponse {
    return registrationResponse{
        ID:               r.ID,
        UserID:           r.UserID,
        EventID:          r.EventID,
        SessionID:        r.SessionID,
        Status:           string(r.Status),
        Attended:         r.Attended,
        FeedbackRating:   r.FeedbackRating,
        FeedbackComments: r.FeedbackComments,
        CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339),
    }
}

func toRegistrationResponses(regs []model.Registration) []registrationResponse {
    out := make([]registrationResponse, 0, len(regs))
    for i := range regs {
        out = append(out, toRegistrationResponse(&regs[i]))
    }
    return out
}

// Register handles POST /v1/events/:id/register.  The body is optional
// and may carry session choices.
func (h *RegistrationHandler) Register(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        SessionIDs []uint64 `json:"session_ids"`
    }
    // A missing or empty body means an event-only registration.
    _ = c.Bind(&body)

    reg, err := h.Svc.Admit(c.Request().Context(), userID, eventID, body.SessionIDs)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, admission.ErrRegistrationRefused):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "event and waitlist are full"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusCreated, toRegistrationResponse(reg))
}

// Unregister handles DELETE /v1/events/:id/register.
func (h *RegistrationHandler) Unregister(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if err := h.Svc.Cancel(c.Request().Context(), userID, eventID); err != nil {
        if errors.Is(err, repository.ErrRegistrationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /v1/registrations/me.
func (h *RegistrationHandler) Mine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    regs, err := h.Svc.ListMine(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, toRegistrationResponses(regs))
}

// SubmitFeedback handles POST /v1/registrations/:id/feedback.  The
// rating is write-once; resubmission is rejected.
func (h *RegistrationHandler) SubmitFeedback(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    regID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
    }
    var body struct {
        Rating   int    `json:"rating"`
        Comments string `json:"comments"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    // Only the owner may submit feedback on a registration.
    reg, err := h.Svc.GetRegistration(c.Request().Context(), regID)
    if err != nil {
        if errors.Is(err, repository.ErrRegistrationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if reg.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your registration"})
    }

    if err := h.Svc.SubmitFeedback(c.Request().Context(), regID, body.Rating, body.Comments); err != nil {
        switch {
        case errors.Is(err, repository.ErrFeedbackSubmitted):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "feedback already submitted"})
        case errors.Is(err, repository.ErrRegistrationNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
        default:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"submitted": true})
}
