package models

// SpaceMapping хранит явную связь CTF ↔ объекты Discord.
// Fallback по имени остаётся в syncer, но основной путь — эта таблица.
type SpaceMapping struct {
	CtfID      int    `json:"ctf_id" db:"ctf_id"`
	CategoryID string `json:"category_id" db:"category_id"`
	ForumID    string `json:"forum_id" db:"forum_id"`
	TalkID     string `json:"talk_id" db:"talk_id"`
	RoleID     string `json:"role_id" db:"role_id"`
}

// ThreadMapping хранит связь Task ↔ тред форума.
type ThreadMapping struct {
	TaskID   int    `json:"task_id" db:"task_id"`
	ThreadID string `json:"thread_id" db:"thread_id"`
}
