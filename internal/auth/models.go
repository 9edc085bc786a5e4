package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned on signup (read, review, comment)
	RoleUser UserRole = "user"
	// RoleModerator may edit or remove any review or comment
	RoleModerator UserRole = "moderator"
	// RoleAdmin has full control, including catalog and user management
	RoleAdmin UserRole = "admin"
)

// User is the user model. ConfirmationHash holds the bcrypt hash of the last
// issued confirmation code; the plaintext code is never persisted.
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"-"`
	Username         string     `bun:"username,notnull,unique" json:"username"`
	Email            string     `bun:"email,notnull,unique" json:"email"`
	Role             UserRole   `bun:"user_role,notnull" json:"role"`
	FirstName        string     `bun:"first_name" json:"first_name,omitempty"`
	LastName         string     `bun:"last_name" json:"last_name,omitempty"`
	Bio              string     `bun:"bio" json:"bio,omitempty"`
	ConfirmationHash string     `bun:"confirmation_hash,nullzero" json:"-"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
	DeletedAt        *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Username returns the user's username.
func (u UserIdentity) Username() string {
	if u.user == nil {
		return ""
	}
	return u.user.Username
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// Role returns the user's role as a string.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	return string(u.user.Role)
}
