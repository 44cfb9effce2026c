package events

import "github.com/cybermouflons/CTFNote/models"

// Типизированные полезные нагрузки событий. Сервисы заполняют их перед
// диспетчеризацией; обработчики приводят Mutation.Input к нужному типу.

type TaskCreateInput struct {
	CtfID int
	Title string
}

type TaskUpdateInput struct {
	TaskID int
	Patch  models.TaskPatch
	// Prev — состояние задачи до применения патча.
	Prev *models.Task
}

type TaskDeleteInput struct {
	// Task — запись на момент удаления: after-фаза срабатывает, когда
	// строки уже нет.
	Task *models.Task
}

type TaskTagsAddInput struct {
	TaskID int
	Tags   []string
}

type WorkingInput struct {
	TaskID    int
	ProfileID int
}

type CTFUpdateInput struct {
	CtfID    int
	NewTitle *string
}

type CTFDeleteInput struct {
	CtfID int
	// Title фиксируется до удаления: after-фазе строка уже недоступна.
	Title string
}

type InvitationInput struct {
	CtfID     int
	ProfileID int
}

type ProfileRoleUpdateInput struct {
	ProfileID int
}

type DiscordIDResetInput struct {
	ProfileID int
}

type RegisterInput struct {
	Username string
}
