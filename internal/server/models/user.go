package models

import "time"

// Role is the privilege level of a registry user.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

type User struct {
	ID            string
	Handle        string
	Role          Role
	DeactivatedAt *time.Time
	DeletedAt     *time.Time
	CreatedAt     time.Time
}

// Active reports whether the user may act: neither deleted nor deactivated.
func (u *User) Active() bool {
	return u != nil && u.DeletedAt == nil && u.DeactivatedAt == nil
}

// IsModerator is true for moderators and admins.
func (u *User) IsModerator() bool {
	return u != nil && (u.Role == RoleModerator || u.Role == RoleAdmin)
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
