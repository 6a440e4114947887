package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/cmis-dev/event-registration/internal/model"
    "github.com/cmis-dev/event-registration/internal/notifier"
    "github.com/cmis-dev/event-registration/internal/repository"
)

// EventHandler implements event management for faculty and admins plus
// the public listing endpoints.
type EventHandler struct {
    Events   *repository.EventRepo
    Regs     *repository.RegistrationRepo
    Audit    *repository.AuditRepo
    Notifier notifier.Notifier // may be nil when mail is disabled
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *repository.EventRepo, regs *repository.RegistrationRepo, audit *repository.AuditRepo, n notifier.Notifier) *EventHandler {
    if events == nil || regs == nil || audit == nil {
        panic("nil repository passed to NewEventHandler")
    }
    return &EventHandler{Events: events, Regs: regs, Audit: audit, Notifier: n}
}

type eventRequest struct {
    Title                   string  `json:"title"`
    Description             string  `json:"description"`
    DateTime                string  `json:"date_time"`
    EndDateTime             *string `json:"end_date_time"`
    RegistrationCap         *uint32 `json:"registration_cap"`
    WaitlistLimit           *uint32 `json:"waitlist_limit"`
    FacultyApprovalRequired bool    `json:"faculty_approval_required"`
    Visibility              string  `json:"visibility"`
}

type eventResponse struct {
    ID                      uint64  `json:"id"`
    Title                   string  `json:"title"`
    Description             string  `json:"description"`
    DateTime                string  `json:"date_time"`
    EndDateTime             *string `json:"end_date_time,omitempty"`
    RegistrationCap         *uint32 `json:"registration_cap,omitempty"`
    WaitlistLimit           *uint32 `json:"waitlist_limit,omitempty"`
    FacultyApprovalRequired bool    `json:"faculty_approval_required"`
    Visibility              string  `json:"visibility"`
    FeedbackEmailSent       bool    `json:"feedback_email_sent"`
    RegistrationsCount      int     `json:"registrations_count"`
    AverageRating           float64 `json:"average_rating"`
    FeedbackCount           int     `json:"feedback_count"`
}

func toEventResponse(e *model.Event, stats repository.EventStats) eventResponse {
    resp := eventResponse{
        ID:                      e.ID,
        Title:                   e.Title,
        Description:             e.Description,
        DateTime:                e.DateTime.UTC().Format(time.RFC3339),
        RegistrationCap:         e.RegistrationCap,
        WaitlistLimit:           e.WaitlistLimit,
        FacultyApprovalRequired: e.FacultyApprovalRequired,
        Visibility:              e.Visibility,
        FeedbackEmailSent:       e.FeedbackEmailSent,
        RegistrationsCount:      stats.Registrations,
        AverageRating:           stats.AverageRating,
        FeedbackCount:           stats.FeedbackCount,
    }
    if e.EndDateTime != nil {
        s := e.EndDateTime.UTC().Format(time.RFC3339)
        resp.EndDateTime = &s
    }
    return resp
}

func (h *EventHandler) bindEvent(c echo.Context, e *model.Event) error {
    var body eventRequest
    if err := c.Bind(&body); err != nil {
        return errors.New("invalid request body")
    }
    if body.Title == "" {
        return errors.New("title is required")
    }
    start, err := time.Parse(time.RFC3339, body.DateTime)
    if err != nil {
        return errors.New("date_time must be RFC3339")
    }
    e.Title = body.Title
    e.Description = body.Description
    e.DateTime = start.UTC()
    e.EndDateTime = nil
    if body.EndDateTime != nil {
        end, err := time.Parse(time.RFC3339, *body.EndDateTime)
        if err != nil {
            return errors.New("end_date_time must be RFC3339")
        }
        if !end.After(start) {
            return errors.New("end_date_time must be after date_time")
        }
        u := end.UTC()
        e.EndDateTime = &u
    }
    e.RegistrationCap = body.RegistrationCap
    e.WaitlistLimit = body.WaitlistLimit
    e.FacultyApprovalRequired = body.FacultyApprovalRequired
    e.Visibility = body.Visibility
    if e.Visibility == "" {
        e.Visibility = "public"
    }
    return nil
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var e model.Event
    if err := h.bindEvent(c, &e); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    e.CreatedByID = &userID
    ctx := c.Request().Context()
    if err := h.Events.Create(ctx, &e); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Audit.Record(ctx, userID, "EVENT_CREATED", map[string]any{"event_id": e.ID, "title": e.Title})
    return c.JSON(http.StatusCreated, toEventResponse(&e, repository.EventStats{}))
}

// List handles GET /v1/events with optional visibility, limit and
// offset query parameters.
func (h *EventHandler) List(c echo.Context) error {
    limit := 100
    offset := 0
    if v := c.QueryParam("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
            limit = n
        }
    }
    if v := c.QueryParam("offset"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n >= 0 {
            offset = n
        }
    }
    ctx := c.Request().Context()
    events, err := h.Events.List(ctx, c.QueryParam("visibility"), limit, offset)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]eventResponse, 0, len(events))
    for i := range events {
        stats, err := h.Events.Stats(ctx, events[i].ID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        out = append(out, toEventResponse(&events[i], stats))
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/events/:id and includes sessions and aggregates.
func (h *EventHandler) Get(c echo.Context) error {
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()
    e, err := h.Events.GetByID(ctx, eventID)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    stats, err := h.Events.Stats(ctx, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    sessions, err := h.Events.ListSessions(ctx, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    type sessionResponse struct {
        ID        uint64  `json:"id"`
        Title     string  `json:"title"`
        StartTime string  `json:"start_time"`
        EndTime   string  `json:"end_time"`
        Capacity  *uint32 `json:"capacity,omitempty"`
        Position  int     `json:"position"`
    }
    srs := make([]sessionResponse, 0, len(sessions))
    for _, s := range sessions {
        srs = append(srs, sessionResponse{
            ID:        s.ID,
            Title:     s.Title,
            StartTime: s.StartTime.UTC().Format(time.RFC3339),
            EndTime:   s.EndTime.UTC().Format(time.RFC3339),
            Capacity:  s.Capacity,
            Position:  s.Position,
        })
    }
    resp := toEventResponse(e, stats)
    return c.JSON(http.StatusOK, echo.Map{"event": resp, "sessions": srs})
}

// Update handles PUT /v1/events/:id.
func (h *EventHandler) Update(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var e model.Event
    if err := h.bindEvent(c, &e); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    e.ID = eventID
    ctx := c.Request().Context()
    if err := h.Events.Update(ctx, &e); err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Audit.Record(ctx, userID, "EVENT_UPDATED", map[string]any{"event_id": eventID, "title": e.Title})
    return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// Delete handles DELETE /v1/events/:id.  Registrations and sessions go
// with the event.
func (h *EventHandler) Delete(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()
    if err := h.Events.Delete(ctx, eventID); err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Audit.Record(ctx, userID, "EVENT_DELETED", map[string]any{"event_id": eventID})
    return c.NoContent(http.StatusNoContent)
}

// CreateSession handles POST /v1/events/:id/sessions.
func (h *EventHandler) CreateSession(c echo.Context) error {
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        Title     string  `json:"title"`
        StartTime string  `json:"start_time"`
        EndTime   string  `json:"end_time"`
        Capacity  *uint32 `json:"capacity"`
        Position  int     `json:"position"`
    }
    if err := c.Bind(&body); err != nil || body.Title == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    start, err1 := time.Parse(time.RFC3339, body.StartTime)
    end, err2 := time.Parse(time.RFC3339, body.EndTime)
    if err1 != nil || err2 != nil || !end.After(start) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time must be RFC3339 with end after start"})
    }
    ctx := c.Request().Context()
    if _, err := h.Events.GetByID(ctx, eventID); err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    s := model.EventSession{
        EventID:   eventID,
        Title:     body.Title,
        StartTime: start.UTC(),
        EndTime:   end.UTC(),
        Capacity:  body.Capacity,
        Position:  body.Position,
    }
    if err := h.Events.CreateSession(ctx, &s); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": s.ID})
}

// Registrations handles GET /v1/events/:id/registrations for faculty.
func (h *EventHandler) Registrations(c echo.Context) error {
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    regs, err := h.Regs.ListPrimaryByEvent(c.Request().Context(), eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, toRegistrationResponses(regs))
}

// Invite handles POST /v1/events/:id/invite.  Invitations go out on a
// background goroutine; the response only acknowledges the request.
func (h *EventHandler) Invite(c echo.Context) error {
    eventID, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        Emails []string `json:"emails"`
    }
    if err := c.Bind(&body); err != nil || len(body.Emails) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "emails is required"})
    }
    ctx := c.Request().Context()
    e, err := h.Events.GetByID(ctx, eventID)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if h.Notifier == nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "mail is not configured"})
    }
    title := e.Title
    emails := append([]string(nil), body.Emails...)
    go func() {
        for _, addr := range emails {
            if err := h.Notifier.Send(context.Background(), addr, notifier.TemplateGuestInvitation, notifier.Payload{EventTitle: title}); err != nil {
                log.Printf("invite: send to %s failed: %v", addr, err)
            }
        }
    }()
    return c.JSON(http.StatusOK, echo.Map{"invited": len(emails)})
}

func parseID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}
