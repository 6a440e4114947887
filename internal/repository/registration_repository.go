package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/cmis-dev/event-registration/internal/model"
)

// RegistrationRepo provides data access to the registrations table.  A
// registration with session_id NULL is the primary event-level row; a
// unique index on (user_id, event_id) over those rows backs the
// at-most-one invariant enforced here.
type RegistrationRepo struct {
    db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, user_id, event_id, session_id, status,
    attended, feedback_rating, feedback_comments, created_at`

func scanRegistration(row interface{ Scan(...any) error }) (*model.Registration, error) {
    var (
        reg      model.Registration
        session  sql.NullInt64
        rating   sql.NullInt64
        comments sql.NullString
    )
    err := row.Scan(
        &reg.ID, &reg.UserID, &reg.EventID, &session, &reg.Status,
        &reg.Attended, &rating, &comments, &reg.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    if session.Valid {
        v := uint64(session.Int64)
        reg.SessionID = &v
    }
    if rating.Valid {
        v := int(rating.Int64)
        reg.FeedbackRating = &v
    }
    if comments.Valid {
        c := comments.String
        reg.FeedbackComments = &c
    }
    return &reg, nil
}

// CountByStatus counts primary registrations of an event in the given
// status.  Session-scoped rows are excluded: they never consume
// event-level capacity.
func (r *RegistrationRepo) CountByStatus(ctx context.Context, eventID uint64, status model.RegistrationStatus) (uint32, error) {
    const q = `SELECT COUNT(*) FROM registrations
        WHERE event_id = ? AND status = ? AND session_id IS NULL`
    var n uint32
    err := r.db.QueryRowContext(ctx, q, eventID, string(status)).Scan(&n)
    return n, err
}

// FindPrimary returns the primary registration of a user for an event,
// or nil when none exists.
func (r *RegistrationRepo) FindPrimary(ctx context.Context, userID, eventID uint64) (*model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations
        WHERE user_id = ? AND event_id = ? AND session_id IS NULL`
    reg, err := scanRegistration(r.db.QueryRowContext(ctx, q, userID, eventID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    return reg, err
}

// GetByID returns a registration by primary key or ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`
    reg, err := scanRegistration(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrRegistrationNotFound
    }
    return reg, err
}

// Create inserts a registration row and populates the generated ID and
// creation timestamp on the provided record.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
    const q = `INSERT INTO registrations (user_id, event_id, session_id, status)
        VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        reg.UserID, reg.EventID, nullU64(reg.SessionID), string(reg.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    reg.ID = uint64(id)
    return r.db.QueryRowContext(ctx,
        `SELECT created_at FROM registrations WHERE id = ?`, reg.ID,
    ).Scan(&reg.CreatedAt)
}

// DeleteByUserAndEvent removes all of a user's registrations for an
// event (primary and session-scoped).  Used by cancellation.
func (r *RegistrationRepo) DeleteByUserAndEvent(ctx context.Context, userID, eventID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM registrations WHERE user_id = ? AND event_id = ?`, userID, eventID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrRegistrationNotFound
    }
    return nil
}

// ListByUser returns all registrations of a user, newest first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations
        WHERE user_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var regs []model.Registration
    for rows.Next() {
        reg, err := scanRegistration(rows)
        if err != nil {
            return nil, err
        }
        regs = append(regs, *reg)
    }
    return regs, rows.Err()
}

// ListPrimaryByEvent returns the primary registrations of an event.
func (r *RegistrationRepo) ListPrimaryByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
    const q = `SELECT ` + registrationColumns + ` FROM registrations
        WHERE event_id = ? AND session_id IS NULL ORDER BY created_at ASC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var regs []model.Registration
    for rows.Next() {
        reg, err := scanRegistration(rows)
        if err != nil {
            return nil, err
        }
        regs = append(regs, *reg)
    }
    return regs, rows.Err()
}

// FeedbackRecipient pairs a confirmed registration with the contact
// details needed to request feedback from its owner.
type FeedbackRecipient struct {
    RegistrationID uint64
    EventID        uint64
    Email          string
    Name           string
}

// ListConfirmedRecipients returns, for one event, the confirmed primary
// registrations joined with their owner's contact email.  Rows whose
// user has an empty email are filtered out.
func (r *RegistrationRepo) ListConfirmedRecipients(ctx context.Context, eventID uint64) ([]FeedbackRecipient, error) {
    const q = `SELECT r.id, r.event_id, u.email, u.name
        FROM registrations r
        JOIN users u ON u.id = r.user_id
        WHERE r.event_id = ? AND r.status = ? AND r.session_id IS NULL AND u.email <> ''`
    rows, err := r.db.QueryContext(ctx, q, eventID, string(model.StatusConfirmed))
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []FeedbackRecipient
    for rows.Next() {
        var fr FeedbackRecipient
        if err := rows.Scan(&fr.RegistrationID, &fr.EventID, &fr.Email, &fr.Name); err != nil {
            return nil, err
        }
        out = append(out, fr)
    }
    return out, rows.Err()
}

// SubmitFeedback writes the rating and comments of a registration.  The
// rating is write-once: the update is conditional on feedback_rating
// still being NULL, and a second attempt returns ErrFeedbackSubmitted.
func (r *RegistrationRepo) SubmitFeedback(ctx context.Context, registrationID uint64, rating int, comments string) error {
    const q = `UPDATE registrations
        SET feedback_rating = ?, feedback_comments = ?
        WHERE id = ? AND feedback_rating IS NULL`
    res, err := r.db.ExecContext(ctx, q, rating, comments, registrationID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Either the row is missing or feedback already exists.
        if _, err := r.GetByID(ctx, registrationID); err != nil {
            return err
        }
        return ErrFeedbackSubmitted
    }
    return nil
}
