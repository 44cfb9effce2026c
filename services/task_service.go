package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/importers"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
)

type TaskService struct {
	db         *sql.DB
	tasks      repositories.TaskRepository
	ctfs       repositories.CTFRepository
	tags       repositories.TagRepository
	dispatcher *events.Dispatcher
	padBaseURL string
	logger     *slog.Logger
}

func NewTaskService(
	db *sql.DB,
	taskRepo repositories.TaskRepository,
	ctfRepo repositories.CTFRepository,
	tagRepo repositories.TagRepository,
	dispatcher *events.Dispatcher,
	padBaseURL string,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		db:         db,
		tasks:      taskRepo,
		ctfs:       ctfRepo,
		tags:       tagRepo,
		dispatcher: dispatcher,
		padBaseURL: padBaseURL,
		logger:     logger,
	}
}

// newPadURL выделяет задаче свежий коллаборативный документ.
func (s *TaskService) newPadURL() string {
	if s.padBaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(s.padBaseURL, "/") + "/pad/" + uuid.NewString()
}

// CreateTask создаёт задачу вместе с тегами в одной транзакции и
// диспетчеризует событие taskCreate.
func (s *TaskService) CreateTask(ctx context.Context, task *models.Task, actorID int) error {
	if task.Title == "" {
		return ErrTaskTitleRequired
	}
	if _, err := s.ctfs.GetByID(ctx, nil, task.CtfID); err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return ErrCTFNotFound
		}
		return err
	}
	if task.PadURL == "" {
		task.PadURL = s.newPadURL()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	mutation := &events.Mutation{
		Event:   events.TaskCreate,
		Input:   &events.TaskCreateInput{CtfID: task.CtfID, Title: task.Title},
		Tx:      tx,
		ActorID: actorID,
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}

	if err := s.tasks.Create(ctx, tx, task); err != nil {
		if errors.Is(err, repositories.ErrTaskTitleConflict) {
			return ErrTaskTitleConflict
		}
		return err
	}
	if err := s.assignTags(ctx, tx, task.ID, task.Tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task creation: %w", err)
	}

	mutation.Tx = nil
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

func (s *TaskService) assignTags(ctx context.Context, exec repositories.SQLExecutor, taskID int, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := s.tags.Ensure(ctx, exec, name)
		if err != nil {
			return fmt.Errorf("failed to ensure tag %q: %w", name, err)
		}
		if err := s.tags.AssignToTask(ctx, exec, taskID, tag.ID); err != nil {
			return fmt.Errorf("failed to assign tag %q: %w", name, err)
		}
	}
	return nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id int) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListTasksByCTF(ctx context.Context, ctfID int) ([]*models.Task, error) {
	return s.tasks.ListByCTF(ctx, ctfID)
}

// UpdateTask применяет частичный патч и диспетчеризует taskUpdate с
// предыдущим состоянием задачи.
func (s *TaskService) UpdateTask(ctx context.Context, id int, patch models.TaskPatch, actorID int) (*models.Task, error) {
	prev, err := s.tasks.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	mutation := &events.Mutation{
		Event:   events.TaskUpdate,
		Input:   &events.TaskUpdateInput{TaskID: id, Patch: patch, Prev: prev},
		ActorID: actorID,
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return nil, err
	}

	updated := *prev
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Flag != nil {
		updated.Flag = *patch.Flag
	}
	if patch.Files != nil {
		updated.Files = *patch.Files
	}
	if updated.Title == "" {
		return nil, ErrTaskTitleRequired
	}

	if err := s.tasks.Update(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrTaskTitleConflict) {
			return nil, ErrTaskTitleConflict
		}
		return nil, err
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return &updated, nil
}

// SubmitFlag записывает флаг, если он ещё не записан, и прогоняет
// мутацию через тот же путь, что и обычное обновление.
func (s *TaskService) SubmitFlag(ctx context.Context, id int, flag string, actorID int) error {
	prev, err := s.tasks.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	mutation := &events.Mutation{
		Event:   events.TaskUpdate,
		Input:   &events.TaskUpdateInput{TaskID: id, Patch: models.TaskPatch{Flag: &flag}, Prev: prev},
		ActorID: actorID,
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}

	if err := s.tasks.SetFlag(ctx, id, flag); err != nil {
		if errors.Is(err, repositories.ErrTaskAlreadySolved) {
			return ErrTaskAlreadySolved
		}
		return err
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id int, actorID int) error {
	task, err := s.tasks.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	mutation := &events.Mutation{
		Event:   events.TaskDelete,
		Input:   &events.TaskDeleteInput{Task: task},
		ActorID: actorID,
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

// AddTags довешивает задаче свободные теги. Уже назначенные имена
// проходят без ошибки.
func (s *TaskService) AddTags(ctx context.Context, taskID int, names []string, actorID int) error {
	if _, err := s.tasks.GetByID(ctx, nil, taskID); err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	mutation := &events.Mutation{
		Event:   events.TaskTagsAdd,
		Input:   &events.TaskTagsAddInput{TaskID: taskID, Tags: names},
		Tx:      tx,
		ActorID: actorID,
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}
	if err := s.assignTags(ctx, tx, taskID, names); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tag assignment: %w", err)
	}

	mutation.Tx = nil
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

// StartWorking отмечает участника работающим над задачей. Повторная
// отметка — no-op без события.
func (s *TaskService) StartWorking(ctx context.Context, taskID, profileID int) error {
	changed, err := s.tasks.StartWorking(ctx, taskID, profileID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	mutation := &events.Mutation{
		Event:   events.StartWorking,
		Input:   &events.WorkingInput{TaskID: taskID, ProfileID: profileID},
		ActorID: profileID,
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

// StopWorking снимает отметку. cancelled различает "закончил" и
// "бросил" в анонсах.
func (s *TaskService) StopWorking(ctx context.Context, taskID, profileID int, cancelled bool) error {
	changed, err := s.tasks.StopWorking(ctx, taskID, profileID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	event := events.StopWorking
	if cancelled {
		event = events.CancelWorking
	}
	mutation := &events.Mutation{
		Event:   event,
		Input:   &events.WorkingInput{TaskID: taskID, ProfileID: profileID},
		ActorID: profileID,
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

// ImportTasks разбирает выгрузку внешнего скордборда и создаёт
// отсутствующие задачи. Уже существующие (по названию) пропускаются.
func (s *TaskService) ImportTasks(ctx context.Context, ctfID int, format, raw string, actorID int) (int, error) {
	var parser importers.Parser
	if format != "" {
		p, ok := importers.ByName(format)
		if !ok {
			return 0, ErrUnknownImportFormat
		}
		parser = p
	} else {
		p, ok := importers.Guess(raw)
		if !ok {
			return 0, ErrImportNotRecognized
		}
		parser = p
	}

	created := 0
	for _, parsed := range parser.Parse(raw) {
		if _, err := s.tasks.GetByCtfAndTitle(ctx, nil, ctfID, parsed.Title); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrTaskNotFound) {
			return created, err
		}

		task := &models.Task{
			CtfID:       ctfID,
			Title:       parsed.Title,
			Description: parsed.Description,
			Tags:        parsed.Tags,
		}
		if err := s.CreateTask(ctx, task, actorID); err != nil {
			s.logger.Error("failed to import task",
				slog.String("title", parsed.Title), slog.Any("error", err))
			continue
		}
		created++
	}
	return created, nil
}

func (s *TaskService) ListWorkers(ctx context.Context, taskID int) ([]int, error) {
	return s.tasks.ListWorkers(ctx, taskID)
}
