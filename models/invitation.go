package models

import "time"

// Invitation даёт профилю доступ к соревнованию вне обычного членства.
type Invitation struct {
	CtfID     int       `json:"ctf_id" db:"ctf_id"`
	ProfileID int       `json:"profile_id" db:"profile_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
