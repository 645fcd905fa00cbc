package model

import "time"

// Valid user roles as stored in the users.role column.
const (
	RoleAdmin           = "admin"
	RoleUser            = "user"
	RoleFacilityManager = "facility_manager"
	RoleModerator       = "moderator"
	RoleAuditor         = "auditor"
	RoleService         = "service"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. Handlers define separate response types with the
// appropriate JSON tags; this struct is used by the repository
// layer.
//
// Fields:
//  ID                  – primary key identifier of the user.
//  Username            – unique login name.
//  Email               – unique email address.
//  PasswordHash        – bcrypt hashed password.
//  FullName            – display name.
//  Role                – one of the Role* constants.
//  IsActive            – whether the account is active.
//  LastLogin           – timestamp of the last successful login (nullable).
//  FailedLoginAttempts – consecutive failed authentications since the last success.
//  LockedUntil         – end of the current lock window (nullable). A new
//                        window always replaces the previous one; two
//                        concurrently valid windows never exist.
//  CreatedAt           – timestamp of creation.
//  UpdatedAt           – timestamp of last update.
type User struct {
	ID                  uint64     // users.id
	Username            string     // users.username
	Email               string     // users.email
	PasswordHash        string     // users.password_hash
	FullName            string     // users.full_name
	Role                string     // users.role
	IsActive            bool       // users.is_active
	LastLogin           *time.Time // users.last_login (nullable)
	FailedLoginAttempts int        // users.failed_login_attempts
	LockedUntil         *time.Time // users.locked_until (nullable)
	CreatedAt           time.Time  // users.created_at
	UpdatedAt           time.Time  // users.updated_at
}

// IsLocked reports whether the account is inside an active lock window.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and carries expiry and revocation
// metadata. The plain token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
