// Package events реализует диспетчер событий мутаций: типизированный
// enum событий, фазы before/after и таблицу обработчиков с приоритетами.
package events

// Event — типизированное имя мутации. Только этот фиксированный набор
// участвует в синхронизации; всё остальное диспетчер не знает вовсе.
type Event int

const (
	TaskCreate Event = iota
	TaskUpdate
	TaskDelete
	TaskTagsAdd
	StartWorking
	StopWorking
	CancelWorking
	CTFUpdate
	CTFDelete
	InvitationCreate
	InvitationDelete
	ProfileRoleUpdate
	DiscordIDReset
	RegisterWithToken
)

func (e Event) String() string {
	switch e {
	case TaskCreate:
		return "taskCreate"
	case TaskUpdate:
		return "taskUpdate"
	case TaskDelete:
		return "taskDelete"
	case TaskTagsAdd:
		return "taskTagsAdd"
	case StartWorking:
		return "startWorking"
	case StopWorking:
		return "stopWorking"
	case CancelWorking:
		return "cancelWorking"
	case CTFUpdate:
		return "ctfUpdate"
	case CTFDelete:
		return "ctfDelete"
	case InvitationCreate:
		return "invitationCreate"
	case InvitationDelete:
		return "invitationDelete"
	case ProfileRoleUpdate:
		return "profileRoleUpdate"
	case DiscordIDReset:
		return "discordIdReset"
	case RegisterWithToken:
		return "registerWithToken"
	}
	return "unknown"
}

// Phase определяет момент вызова относительно коммита мутации.
type Phase int

const (
	// Before выполняется до записи мутации; обработчик может изменить
	// вход или наложить вето ошибкой.
	Before Phase = iota
	// After выполняется после коммита; ошибки логируются и отбрасываются.
	After
)

func (p Phase) String() string {
	if p == Before {
		return "before"
	}
	return "after"
}
