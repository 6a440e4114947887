package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/cmis-dev/event-registration/internal/model"
)

// UserRepo provides data access to the users table.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, password_hash, role, major,
    graduation_year, is_active, verification_token, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
    var (
        u       model.User
        major   sql.NullString
        gradYr  sql.NullInt64
        vtoken  sql.NullString
    )
    err := row.Scan(
        &u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &major,
        &gradYr, &u.IsActive, &vtoken, &u.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    if major.Valid {
        m := major.String
        u.Major = &m
    }
    if gradYr.Valid {
        y := int(gradYr.Int64)
        u.GraduationYear = &y
    }
    if vtoken.Valid {
        t := vtoken.String
        u.VerificationToken = &t
    }
    return &u, nil
}

// Create inserts a new user and populates the generated ID on the
// provided record.  Duplicate emails map to ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    const q = `INSERT INTO users (name, email, password_hash, role, major, graduation_year, is_active, verification_token)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        u.Name, u.Email, u.PasswordHash, string(u.Role),
        nullStr(u.Major), nullInt(u.GraduationYear), u.IsActive, nullStr(u.VerificationToken))
    if err != nil {
        // 1062 is MySQL's duplicate entry error; the email column
        // carries the only unique constraint on this table.
        if strings.Contains(err.Error(), "1062") {
            return ErrEmailTaken
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    u.ID = uint64(id)
    return nil
}

// GetByEmail returns a user by email or ErrUserNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    u, err := scanUser(r.db.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrUserNotFound
    }
    return u, err
}

// GetByID returns a user by primary key or ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    u, err := scanUser(r.db.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrUserNotFound
    }
    return u, err
}

// ActivateByToken resolves a verification token: the matching account
// becomes active and the token is cleared so the link is single-use.
// An unknown token returns ErrUserNotFound.
func (r *UserRepo) ActivateByToken(ctx context.Context, token string) (*model.User, error) {
    u, err := scanUser(r.db.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE verification_token = ?`, token))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrUserNotFound
    }
    if err != nil {
        return nil, err
    }
    _, err = r.db.ExecContext(ctx,
        `UPDATE users SET is_active = TRUE, verification_token = NULL WHERE id = ?`, u.ID)
    if err != nil {
        return nil, err
    }
    u.IsActive = true
    u.VerificationToken = nil
    return u, nil
}

func nullStr(s *string) any {
    if s == nil {
        return nil
    }
    return *s
}

func nullInt(v *int) any {
    if v == nil {
        return nil
    }
    return *v
}
