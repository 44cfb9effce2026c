// Package hooks подписывает обработчики синхронизации Discord на
// события мутаций. Только перечисленный здесь набор событий участвует
// в синхронизации; остальные мутации диспетчеру неизвестны.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/feed"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
	"github.com/cybermouflons/CTFNote/syncer"
)

const defaultPriority = 500

// Параметры ожидания видимости чужого коммита (registerWithToken).
const (
	visibilityInterval = 250 * time.Millisecond
	visibilityTimeout  = 5 * time.Second
)

// FeedPublisher рассылает сообщения фида активности по комнатам CTF.
type FeedPublisher interface {
	Publish(ctfID int, message feed.Message)
}

// Hooks связывает движок синхронизации с диспетчером событий.
type Hooks struct {
	sync     *syncer.Syncer
	ctfs     repositories.CTFRepository
	tasks    repositories.TaskRepository
	profiles repositories.ProfileRepository
	mappings repositories.MappingRepository
	hub      FeedPublisher
	logger   *slog.Logger
}

func New(
	sync *syncer.Syncer,
	ctfRepo repositories.CTFRepository,
	taskRepo repositories.TaskRepository,
	profileRepo repositories.ProfileRepository,
	mappingRepo repositories.MappingRepository,
	hub FeedPublisher,
	logger *slog.Logger,
) *Hooks {
	return &Hooks{
		sync:     sync,
		ctfs:     ctfRepo,
		tasks:    taskRepo,
		profiles: profileRepo,
		mappings: mappingRepo,
		hub:      hub,
		logger:   logger,
	}
}

// Register подписывает все обработчики. Порядок подписки фиксирует
// разрешение ничьих приоритетов.
func (h *Hooks) Register(d *events.Dispatcher) {
	d.Subscribe(events.CTFUpdate, events.Before, defaultPriority, h.beforeCTFUpdate)
	d.Subscribe(events.CTFDelete, events.Before, defaultPriority, h.beforeCTFDelete)
	d.Subscribe(events.DiscordIDReset, events.Before, defaultPriority, h.beforeDiscordIDReset)

	d.Subscribe(events.CTFDelete, events.After, defaultPriority, h.afterCTFDelete)
	d.Subscribe(events.TaskCreate, events.After, defaultPriority, h.afterTaskCreate)
	d.Subscribe(events.TaskUpdate, events.After, defaultPriority, h.afterTaskUpdate)
	d.Subscribe(events.TaskDelete, events.After, defaultPriority, h.afterTaskDelete)
	d.Subscribe(events.TaskTagsAdd, events.After, defaultPriority, h.afterTaskTagsAdd)
	d.Subscribe(events.StartWorking, events.After, defaultPriority, h.afterStartWorking)
	d.Subscribe(events.StopWorking, events.After, defaultPriority, h.afterStopWorking)
	d.Subscribe(events.CancelWorking, events.After, defaultPriority, h.afterCancelWorking)
	d.Subscribe(events.InvitationCreate, events.After, defaultPriority, h.afterInvitationCreate)
	d.Subscribe(events.InvitationDelete, events.After, defaultPriority, h.afterInvitationDelete)
	d.Subscribe(events.ProfileRoleUpdate, events.After, defaultPriority, h.afterProfileRoleUpdate)
	d.Subscribe(events.RegisterWithToken, events.After, defaultPriority, h.afterRegisterWithToken)
}

// spaceFor разрешает пространство CTF; ErrSpaceNotFound означает
// "синхронизация для этого соревнования выключена" и гасится.
func (h *Hooks) spaceFor(ctx context.Context, ctf *models.CTF) (*syncer.Space, bool) {
	space, err := h.sync.SpaceForCTF(ctx, ctf)
	if err != nil {
		if !errors.Is(err, syncer.ErrSpaceNotFound) && !errors.Is(err, syncer.ErrDisabled) {
			h.logger.Error("failed to resolve ctf space",
				slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
		}
		return nil, false
	}
	return space, true
}

func (h *Hooks) publish(event string, ctfID int, payload interface{}) {
	if h.hub != nil {
		h.hub.Publish(ctfID, feed.Message{Type: event, Payload: payload})
	}
}

// --- before-фаза ---

// beforeCTFUpdate переименовывает пространство, пока старый заголовок
// ещё разрешим. Обработчик побочный, вето не накладывает.
func (h *Hooks) beforeCTFUpdate(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.CTFUpdateInput)
	if !ok || input.NewTitle == nil {
		return nil
	}
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, input.CtfID)
	if err != nil {
		return nil
	}
	if *input.NewTitle == ctf.Title {
		return nil
	}
	if err := h.sync.RenameSpace(ctx, ctf, *input.NewTitle); err != nil {
		h.logger.Error("failed to rename ctf space",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	return nil
}

// beforeCTFDelete удаляет пространство, пока строки соревнования ещё
// читаются: дочерние каналы, роль, категория — в этом порядке.
func (h *Hooks) beforeCTFDelete(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.CTFDeleteInput)
	if !ok {
		return nil
	}
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, input.CtfID)
	if err != nil {
		return nil
	}
	if err := h.sync.DeleteSpace(ctx, ctf); err != nil && !errors.Is(err, syncer.ErrSpaceNotFound) {
		h.logger.Error("failed to delete ctf space",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	return nil
}

// beforeDiscordIDReset снимает все роли, пока привязка ещё разрешима.
func (h *Hooks) beforeDiscordIDReset(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.DiscordIDResetInput)
	if !ok {
		return nil
	}
	profile, err := h.profiles.GetByID(ctx, m.Tx, input.ProfileID)
	if err != nil {
		return nil
	}
	if err := h.sync.RevokeAllRoles(ctx, profile); err != nil {
		h.logger.Error("failed to revoke roles on discord id reset",
			slog.Int("profile_id", profile.ID), slog.Any("error", err))
	}
	return nil
}

// --- after-фаза ---

// afterCTFDelete объявляет удаление в фид только после того, как строка
// действительно стёрта: вето или сбой before-фазы удаления не было.
func (h *Hooks) afterCTFDelete(_ context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.CTFDeleteInput)
	if !ok {
		return nil
	}
	h.publish("ctfDeleted", input.CtfID, input.Title)
	return nil
}

func (h *Hooks) afterTaskCreate(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.TaskCreateInput)
	if !ok {
		return nil
	}
	task, err := h.tasks.GetByCtfAndTitle(ctx, m.Tx, input.CtfID, input.Title)
	if err != nil {
		return fmt.Errorf("failed to resolve committed task: %w", err)
	}
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, task.CtfID)
	if err != nil {
		return nil
	}
	space, ok := h.spaceFor(ctx, ctf)
	if !ok {
		return nil
	}

	if _, err := h.sync.CreateThreadForTask(ctx, ctf, space, task); err != nil {
		return err
	}
	if err := h.sync.Notifier().AnnounceTaskCreated(ctx, space, task); err != nil {
		h.logger.Error("failed to announce task creation",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}
	h.publish("taskCreated", ctf.ID, task.Title)
	return nil
}

func (h *Hooks) afterTaskUpdate(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.TaskUpdateInput)
	if !ok || input.Prev == nil {
		return nil
	}
	task := input.Prev
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, task.CtfID)
	if err != nil {
		return nil
	}
	space, ok := h.spaceFor(ctx, ctf)
	if !ok {
		return nil
	}

	if input.Patch.Flag != nil {
		if *input.Patch.Flag != "" {
			if err := h.sync.MoveTaskState(ctx, space, task, syncer.StateSolved); err != nil {
				h.logger.Error("failed to move task to solved",
					slog.Int("task_id", task.ID), slog.Any("error", err))
			}
			h.announceSolved(ctx, space, task, m.ActorID)
		} else {
			// Флаг отозван: solved -> in-progress.
			if err := h.sync.MoveTaskState(ctx, space, task, syncer.StateInProgress); err != nil {
				h.logger.Error("failed to move task back to in-progress",
					slog.Int("task_id", task.ID), slog.Any("error", err))
			}
		}
	}

	if input.Patch.Title != nil && *input.Patch.Title != task.Title {
		if err := h.sync.RenameThread(ctx, space, task, *input.Patch.Title); err != nil {
			h.logger.Error("failed to rename task thread",
				slog.Int("task_id", task.ID), slog.Any("error", err))
		}
	}

	if input.Patch.Description != nil && *input.Patch.Description != task.Description {
		if err := h.sync.Notifier().AnnounceDescriptionChanged(ctx, space, task, *input.Patch.Description); err != nil {
			h.logger.Error("failed to announce description change",
				slog.Int("task_id", task.ID), slog.Any("error", err))
		}
	}

	h.publish("taskUpdated", ctf.ID, task.Title)
	return nil
}

func (h *Hooks) announceSolved(ctx context.Context, space *syncer.Space, task *models.Task, actorID int) {
	var solvers []*models.Profile
	if actorID != 0 {
		if profile, err := h.profiles.GetByID(ctx, nil, actorID); err == nil {
			solvers = append(solvers, profile)
		}
	}
	if err := h.sync.Notifier().AnnounceSolved(ctx, space, task, solvers); err != nil {
		h.logger.Error("failed to announce solve",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}
}

// afterTaskDelete помечает тред удалённым переименованием; сам тред
// сохраняется как архив обсуждения.
func (h *Hooks) afterTaskDelete(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.TaskDeleteInput)
	if !ok || input.Task == nil {
		return nil
	}
	task := input.Task
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, task.CtfID)
	if err != nil {
		return nil
	}
	space, ok := h.spaceFor(ctx, ctf)
	if !ok {
		return nil
	}
	if err := h.sync.RenameThread(ctx, space, task, "deleted-"+task.Title); err != nil {
		if errors.Is(err, syncer.ErrThreadNotFound) {
			return nil
		}
		return err
	}
	if err := h.mappings.DeleteThread(ctx, task.ID); err != nil {
		h.logger.Warn("failed to delete thread mapping",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}
	h.publish("taskDeleted", ctf.ID, task.Title)
	return nil
}

func (h *Hooks) afterTaskTagsAdd(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.TaskTagsAddInput)
	if !ok {
		return nil
	}
	task, err := h.tasks.GetByID(ctx, m.Tx, input.TaskID)
	if err != nil {
		return nil
	}
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, task.CtfID)
	if err != nil {
		return nil
	}
	space, ok := h.spaceFor(ctx, ctf)
	if !ok {
		return nil
	}
	return h.sync.ApplyTaskTags(ctx, space, task)
}

func (h *Hooks) workingContext(ctx context.Context, m *events.Mutation) (*syncer.Space, *models.Task, *models.Profile, bool) {
	input, ok := m.Input.(*events.WorkingInput)
	if !ok {
		return nil, nil, nil, false
	}
	task, err := syncer.TaskByID(input.TaskID).Resolve(ctx, m.Tx, h.tasks)
	if err != nil {
		return nil, nil, nil, false
	}
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, task.CtfID)
	if err != nil {
		return nil, nil, nil, false
	}
	space, ok := h.spaceFor(ctx, ctf)
	if !ok {
		return nil, nil, nil, false
	}
	profile, err := h.profiles.GetByID(ctx, nil, input.ProfileID)
	if err != nil {
		profile = nil
	}
	return space, task, profile, true
}

func (h *Hooks) afterStartWorking(ctx context.Context, m *events.Mutation) error {
	space, task, profile, ok := h.workingContext(ctx, m)
	if !ok {
		return nil
	}
	if err := h.sync.MoveTaskState(ctx, space, task, syncer.StateInProgress); err != nil {
		h.logger.Error("failed to move task to in-progress",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}
	return h.sync.Notifier().AnnounceStartedWorking(ctx, space, task, profile)
}

func (h *Hooks) afterStopWorking(ctx context.Context, m *events.Mutation) error {
	space, task, profile, ok := h.workingContext(ctx, m)
	if !ok {
		return nil
	}
	return h.sync.Notifier().AnnounceStoppedWorking(ctx, space, task, profile, false)
}

func (h *Hooks) afterCancelWorking(ctx context.Context, m *events.Mutation) error {
	space, task, profile, ok := h.workingContext(ctx, m)
	if !ok {
		return nil
	}
	return h.sync.Notifier().AnnounceStoppedWorking(ctx, space, task, profile, true)
}

func (h *Hooks) invitationContext(ctx context.Context, m *events.Mutation) (*models.Profile, *models.CTF, bool) {
	input, ok := m.Input.(*events.InvitationInput)
	if !ok {
		return nil, nil, false
	}
	profile, err := h.profiles.GetByID(ctx, m.Tx, input.ProfileID)
	if err != nil {
		return nil, nil, false
	}
	ctf, err := h.ctfs.GetByID(ctx, m.Tx, input.CtfID)
	if err != nil {
		return nil, nil, false
	}
	return profile, ctf, true
}

func (h *Hooks) afterInvitationCreate(ctx context.Context, m *events.Mutation) error {
	profile, ctf, ok := h.invitationContext(ctx, m)
	if !ok {
		return nil
	}
	return h.sync.GrantRole(ctx, profile, ctf)
}

func (h *Hooks) afterInvitationDelete(ctx context.Context, m *events.Mutation) error {
	profile, ctf, ok := h.invitationContext(ctx, m)
	if !ok {
		return nil
	}
	return h.sync.RevokeRole(ctx, profile, ctf)
}

func (h *Hooks) afterProfileRoleUpdate(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.ProfileRoleUpdateInput)
	if !ok {
		return nil
	}
	profile, err := h.profiles.GetByID(ctx, m.Tx, input.ProfileID)
	if err != nil {
		return nil
	}
	return h.sync.ResyncRoles(ctx, m.Tx, profile)
}

// afterRegisterWithToken выдаёт роли новому участнику. Коммит
// регистрации не контролируется обработчиком, поэтому профиль
// добывается ограниченным поллингом вместо безусловной задержки.
func (h *Hooks) afterRegisterWithToken(ctx context.Context, m *events.Mutation) error {
	input, ok := m.Input.(*events.RegisterInput)
	if !ok {
		return nil
	}

	profile, err := syncer.AwaitVisible(ctx, visibilityInterval, visibilityTimeout,
		func(ctx context.Context) (*models.Profile, bool, error) {
			p, err := h.profiles.GetByUsername(ctx, nil, input.Username)
			if err != nil {
				if errors.Is(err, repositories.ErrProfileNotFound) {
					return nil, false, nil
				}
				return nil, false, err
			}
			return p, true, nil
		})
	if err != nil {
		return fmt.Errorf("registered profile %q never became visible: %w", input.Username, err)
	}

	accessible, err := h.profiles.ListAccessibleCTFs(ctx, nil, profile.ID)
	if err != nil {
		return err
	}
	for _, ctf := range accessible {
		if err := h.sync.GrantRole(ctx, profile, ctf); err != nil {
			h.logger.Error("failed to grant ctf role to new profile",
				slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
		}
	}
	return nil
}
