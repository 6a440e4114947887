package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/cmis-dev/event-registration/internal/model"
)

// EventRepo provides data access to the events and event_sessions
// tables.  All timestamp fields are assumed to be stored in UTC.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, date_time, end_date_time,
    registration_cap, waitlist_limit, faculty_approval_required,
    visibility, created_by_id, feedback_email_sent, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
    var (
        e       model.Event
        endAt   sql.NullTime
        cap     sql.NullInt64
        wlLimit sql.NullInt64
        creator sql.NullInt64
    )
    err := row.Scan(
        &e.ID, &e.Title, &e.Description, &e.DateTime, &endAt,
        &cap, &wlLimit, &e.FacultyApprovalRequired,
        &e.Visibility, &creator, &e.FeedbackEmailSent, &e.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    if endAt.Valid {
        t := endAt.Time
        e.EndDateTime = &t
    }
    if cap.Valid {
        v := uint32(cap.Int64)
        e.RegistrationCap = &v
    }
    if wlLimit.Valid {
        v := uint32(wlLimit.Int64)
        e.WaitlistLimit = &v
    }
    if creator.Valid {
        v := uint64(creator.Int64)
        e.CreatedByID = &v
    }
    return &e, nil
}

// Create inserts a new event and populates the generated ID and
// creation timestamp on the provided record.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
    const q = `INSERT INTO events
        (title, description, date_time, end_date_time, registration_cap,
         waitlist_limit, faculty_approval_required, visibility, created_by_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        e.Title, e.Description, e.DateTime, nullTime(e.EndDateTime),
        nullU32(e.RegistrationCap), nullU32(e.WaitlistLimit),
        e.FacultyApprovalRequired, e.Visibility, nullU64(e.CreatedByID),
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    return r.db.QueryRowContext(ctx,
        `SELECT created_at FROM events WHERE id = ?`, e.ID,
    ).Scan(&e.CreatedAt)
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
    e, err := scanEvent(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrEventNotFound
    }
    return e, err
}

// EventStats carries the registration aggregates attached to event
// listings.  Counts cover primary registrations only; the feedback
// aggregates cover submitted ratings.
type EventStats struct {
    Registrations int
    AverageRating float64
    FeedbackCount int
}

// Stats computes registration and feedback aggregates for one event
// with explicit COUNT/AVG queries.  No cached counters exist anywhere;
// callers always observe fresh values.
func (r *EventRepo) Stats(ctx context.Context, eventID uint64) (EventStats, error) {
    const q = `SELECT COUNT(id), COALESCE(AVG(feedback_rating), 0), COUNT(feedback_rating)
        FROM registrations WHERE event_id = ? AND session_id IS NULL`
    var s EventStats
    err := r.db.QueryRowContext(ctx, q, eventID).
        Scan(&s.Registrations, &s.AverageRating, &s.FeedbackCount)
    return s, err
}

// List returns events ordered by start time descending.  When
// visibility is non-empty the listing is filtered to that audience.
func (r *EventRepo) List(ctx context.Context, visibility string, limit, offset int) ([]model.Event, error) {
    q := `SELECT ` + eventColumns + ` FROM events`
    args := []any{}
    if visibility != "" {
        q += ` WHERE visibility = ?`
        args = append(args, visibility)
    }
    q += ` ORDER BY date_time DESC LIMIT ? OFFSET ?`
    args = append(args, limit, offset)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var events []model.Event
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, *e)
    }
    return events, rows.Err()
}

// Update applies the mutable fields of e to its row and returns
// ErrEventNotFound when no row matches.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
    const q = `UPDATE events SET title = ?, description = ?, date_time = ?,
        end_date_time = ?, registration_cap = ?, waitlist_limit = ?,
        faculty_approval_required = ?, visibility = ?
        WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q,
        e.Title, e.Description, e.DateTime, nullTime(e.EndDateTime),
        nullU32(e.RegistrationCap), nullU32(e.WaitlistLimit),
        e.FacultyApprovalRequired, e.Visibility, e.ID,
    )
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is also zero for a no-op update; confirm existence.
        var id uint64
        if err := r.db.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, e.ID).Scan(&id); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrEventNotFound
            }
            return err
        }
    }
    return nil
}

// Delete removes an event together with its registrations and sessions.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM event_sessions WHERE event_id = ?`, id); err != nil {
        return err
    }
    res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrEventNotFound
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ListFeedbackEligible returns events whose end time has passed and
// whose feedback dispatch flag is still unset.  This is the eligibility
// set for one scheduler tick.
func (r *EventRepo) ListFeedbackEligible(ctx context.Context, now time.Time) ([]model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events
        WHERE end_date_time IS NOT NULL
          AND end_date_time < ?
          AND feedback_email_sent = FALSE`
    rows, err := r.db.QueryContext(ctx, q, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var events []model.Event
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, *e)
    }
    return events, rows.Err()
}

// MarkFeedbackSent flips the one-way feedback_email_sent flag.  The
// flag is never reset; only the feedback scheduler calls this.
func (r *EventRepo) MarkFeedbackSent(ctx context.Context, eventID uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE events SET feedback_email_sent = TRUE WHERE id = ?`, eventID)
    return err
}

// CreateSession inserts a session under an event and populates the
// generated ID on the provided record.
func (r *EventRepo) CreateSession(ctx context.Context, s *model.EventSession) error {
    const q = `INSERT INTO event_sessions (event_id, title, start_time, end_time, capacity, position)
        VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        s.EventID, s.Title, s.StartTime, s.EndTime, nullU32(s.Capacity), s.Position)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// ListSessions returns the sessions of an event ordered by position.
func (r *EventRepo) ListSessions(ctx context.Context, eventID uint64) ([]model.EventSession, error) {
    const q = `SELECT id, event_id, title, start_time, end_time, capacity, position
        FROM event_sessions WHERE event_id = ? ORDER BY position ASC, start_time ASC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var sessions []model.EventSession
    for rows.Next() {
        var (
            s   model.EventSession
            cap sql.NullInt64
        )
        if err := rows.Scan(&s.ID, &s.EventID, &s.Title, &s.StartTime, &s.EndTime, &cap, &s.Position); err != nil {
            return nil, err
        }
        if cap.Valid {
            v := uint32(cap.Int64)
            s.Capacity = &v
        }
        sessions = append(sessions, s)
    }
    return sessions, rows.Err()
}

func nullTime(t *time.Time) any {
    if t == nil {
        return nil
    }
    return t.UTC()
}

func nullU32(v *uint32) any {
    if v == nil {
        return nil
    }
    return *v
}

func nullU64(v *uint64) any {
    if v == nil {
        return nil
    }
    return *v
}
