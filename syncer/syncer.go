// Package syncer — движок синхронизации базы CTFNote с Discord-гильдией:
// резолвер объектов, машина статусных меток, синхронизатор ролей и
// компоновщик уведомлений.
package syncer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cybermouflons/CTFNote/chat"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
	"github.com/cybermouflons/CTFNote/utils"
)

var (
	ErrSpaceNotFound  = errors.New("ctf has no chat space")
	ErrThreadNotFound = errors.New("task has no thread")
	ErrDisabled       = errors.New("chat synchronization disabled")
)

// Имена дочерних каналов пространства соревнования.
const (
	forumChannelName = "challenges"
	talkChannelName  = "challenges-talk"
)

type Config struct {
	// VoiceChannels — сколько голосовых комнат создавать на CTF.
	VoiceChannels int
	// PadBaseURL — база ссылок на задачи в CTFNote (пусто — без ссылок).
	PadBaseURL string
}

// Syncer держит все зависимости движка. Nil-клиент означает выключенную
// подсистему: каждая операция становится тихим no-op.
type Syncer struct {
	client   chat.Client
	ctfs     repositories.CTFRepository
	tasks    repositories.TaskRepository
	profiles repositories.ProfileRepository
	mappings repositories.MappingRepository
	cfg      Config
	logger   *slog.Logger
	notifier *Notifier
}

func New(
	client chat.Client,
	ctfRepo repositories.CTFRepository,
	taskRepo repositories.TaskRepository,
	profileRepo repositories.ProfileRepository,
	mappingRepo repositories.MappingRepository,
	cfg Config,
	logger *slog.Logger,
) *Syncer {
	s := &Syncer{
		client:   client,
		ctfs:     ctfRepo,
		tasks:    taskRepo,
		profiles: profileRepo,
		mappings: mappingRepo,
		cfg:      cfg,
		logger:   logger,
	}
	s.notifier = newNotifier(s)
	return s
}

// Enabled сообщает, подключена ли чат-платформа.
func (s *Syncer) Enabled() bool {
	return s != nil && s.client != nil
}

// Notifier возвращает компоновщик уведомлений движка.
func (s *Syncer) Notifier() *Notifier {
	return s.notifier
}

// TaskLink строит ссылку на задачу в CTFNote.
func (s *Syncer) TaskLink(ctf *models.CTF, task *models.Task) string {
	if s.cfg.PadBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/#/ctf/%d-%s/task/%d",
		s.cfg.PadBaseURL, ctf.ID, utils.SafeSlugify(ctf.Title), task.ID)
}
