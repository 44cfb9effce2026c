package models

import "time"

// CTF представляет отслеживаемое соревнование.
type CTF struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	Weight      float64   `json:"weight" db:"weight"`
	CtfURL      *string   `json:"ctf_url,omitempty" db:"ctf_url"`
	CtftimeURL  *string   `json:"ctftime_url,omitempty" db:"ctftime_url"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	LogoKey     *string   `json:"-" db:"logo_key"`
	LogoURL     *string   `json:"logo_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Tasks   []Task     `json:"tasks,omitempty" db:"-"`
	Secrets *CTFSecret `json:"secrets,omitempty" db:"-"`
}

// Running reports whether the CTF is inside its time window.
func (c CTF) Running(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

// CTFSecret хранит учетные данные площадки соревнования.
type CTFSecret struct {
	CtfID          int    `json:"ctf_id" db:"ctf_id"`
	Username       string `json:"username" db:"username"`
	Password       string `json:"password" db:"password"`
	ScoreboardName string `json:"scoreboard_name" db:"scoreboard_name"`
	ExtraInfo      string `json:"extra_info" db:"extra_info"`
}
