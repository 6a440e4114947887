package model

import "time"

// Role enumerates the access levels recognised by the platform.  Roles
// are stored as strings in the users table but handled as a closed set
// in code so that middleware checks stay exhaustive.
type Role string

const (
    RoleStudent   Role = "student"
    RoleFaculty   Role = "faculty"
    RoleRecruiter Role = "recruiter"
    RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleStudent, RoleFaculty, RoleRecruiter, RoleAdmin:
        return true
    }
    return false
}

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted because these structs are used by
// the repository layer; handlers define separate response types.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Name              – display name.
//  Email             – unique email address, also the notification recipient.
//  PasswordHash      – bcrypt hashed password.
//  Role              – access level (student, faculty, recruiter, admin).
//  Major             – student major (nullable).
//  GraduationYear    – expected graduation year (nullable).
//  IsActive          – whether the account is active.
//  VerificationToken – pending email verification token (nullable).
//  CreatedAt         – timestamp of creation.
type User struct {
    ID                uint64    // users.id
    Name              string    // users.name
    Email             string    // users.email
    PasswordHash      string    // users.password_hash
    Role              Role      // users.role
    Major             *string   // users.major (nullable)
    GraduationYear    *int      // users.graduation_year (nullable)
    IsActive          bool      // users.is_active
    VerificationToken *string   // users.verification_token (nullable)
    CreatedAt         time.Time // users.created_at
}
