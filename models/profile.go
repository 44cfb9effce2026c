package models

import "time"

// ProfileRole соответствует ENUM ролей в БД.
type ProfileRole string

const (
	RoleGuest   ProfileRole = "user_guest"
	RoleFriend  ProfileRole = "user_friend"
	RoleMember  ProfileRole = "user_member"
	RoleManager ProfileRole = "user_manager"
	RoleAdmin   ProfileRole = "user_admin"
)

// Valid reports whether the role is one of the known ENUM values.
func (r ProfileRole) Valid() bool {
	switch r {
	case RoleGuest, RoleFriend, RoleMember, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Profile — участник, зарегистрированный в CTFNote.
type Profile struct {
	ID           int         `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Role         ProfileRole `json:"role" db:"role"`
	DiscordID    *string     `json:"discord_id,omitempty" db:"discord_id"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// Linked reports whether the profile is linked to a Discord account.
func (p Profile) Linked() bool {
	return p.DiscordID != nil && *p.DiscordID != ""
}

// RegistrationToken — одноразовая ссылка регистрации с предустановленной ролью.
type RegistrationToken struct {
	Token     string      `json:"token" db:"token"`
	Role      ProfileRole `json:"role" db:"role"`
	ExpiresAt time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
