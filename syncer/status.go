package syncer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cybermouflons/CTFNote/chat"
	"github.com/cybermouflons/CTFNote/models"
)

// TaskState — состояние жизненного цикла задачи, кодируемое взаимно
// исключающими статусными метками треда.
type TaskState int

const (
	StateNew TaskState = iota
	StateInProgress
	StateSolved
)

// TagName возвращает зарезервированное имя метки состояния.
func (st TaskState) TagName() string {
	switch st {
	case StateInProgress:
		return "in-progress"
	case StateSolved:
		return "solved"
	default:
		return "new"
	}
}

func isStatusTagName(name string) bool {
	switch name {
	case StateNew.TagName(), StateInProgress.TagName(), StateSolved.TagName():
		return true
	}
	return false
}

// MoveTaskState переводит тред задачи в целевое состояние: читается
// полный набор навешенных меток, из него удаляются все статусные,
// добавляется целевая (с созданием определения при отсутствии), и набор
// записывается обратно целиком. Discord поддерживает только замену
// всего набора, поэтому read-modify-write обязателен — иначе затёрлись
// бы свободные метки.
func (s *Syncer) MoveTaskState(ctx context.Context, space *Space, task *models.Task, state TaskState) error {
	if !s.Enabled() {
		return nil
	}

	thread, err := s.ThreadForTask(ctx, space, task)
	if err != nil {
		return err
	}

	forumTags, err := s.client.ForumTags(ctx, space.Forum.ID)
	if err != nil {
		return err
	}

	statusIDs := make(map[string]bool, 3)
	targetID := ""
	for _, tag := range forumTags {
		if isStatusTagName(tag.Name) {
			statusIDs[tag.ID] = true
		}
		if tag.Name == state.TagName() {
			targetID = tag.ID
		}
	}

	if targetID == "" {
		// Кто-то удалил определение статусной метки с форума.
		forumTags = append(forumTags, chat.Tag{Name: state.TagName()})
		if err := s.client.SetForumTags(ctx, space.Forum.ID, forumTags); err != nil {
			return err
		}
		forumTags, err = s.client.ForumTags(ctx, space.Forum.ID)
		if err != nil {
			return err
		}
		for _, tag := range forumTags {
			if tag.Name == state.TagName() {
				targetID = tag.ID
			}
			if isStatusTagName(tag.Name) {
				statusIDs[tag.ID] = true
			}
		}
	}

	applied, err := s.client.AppliedTags(ctx, thread.ID)
	if err != nil {
		return err
	}

	next := make([]string, 0, len(applied)+1)
	for _, tagID := range applied {
		if !statusIDs[tagID] {
			next = append(next, tagID)
		}
	}
	next = append(next, targetID)

	return s.client.SetAppliedTags(ctx, thread.ID, next)
}

// ApplyTaskTags синхронизирует свободные метки задачи с тредом:
// для каждой метки задачи гарантируется определение на форуме и её
// присутствие на треде. Метки, снятые с задачи, с треда не снимаются —
// кураторские ярлыки не теряются.
func (s *Syncer) ApplyTaskTags(ctx context.Context, space *Space, task *models.Task) error {
	if !s.Enabled() || len(task.Tags) == 0 {
		return nil
	}

	thread, err := s.ThreadForTask(ctx, space, task)
	if err != nil {
		return err
	}

	forumTags, err := s.client.ForumTags(ctx, space.Forum.ID)
	if err != nil {
		return err
	}

	byName := make(map[string]chat.Tag, len(forumTags))
	for _, tag := range forumTags {
		byName[tag.Name] = tag
	}

	missing := false
	for _, name := range task.Tags {
		if _, ok := byName[name]; !ok {
			forumTags = append(forumTags, chat.Tag{Name: name})
			missing = true
		}
	}
	if missing {
		if err := s.client.SetForumTags(ctx, space.Forum.ID, forumTags); err != nil {
			// Форум упёрся в лимит определений меток: не фатально,
			// навешиваем то, что удалось определить.
			if errors.Is(err, chat.ErrTagLimitReached) {
				s.logger.Warn("forum tag limit reached, skipping new tag definitions",
					slog.Int("task_id", task.ID))
			} else {
				return err
			}
		}
		forumTags, err = s.client.ForumTags(ctx, space.Forum.ID)
		if err != nil {
			return err
		}
		byName = make(map[string]chat.Tag, len(forumTags))
		for _, tag := range forumTags {
			byName[tag.Name] = tag
		}
	}

	applied, err := s.client.AppliedTags(ctx, thread.ID)
	if err != nil {
		return err
	}
	appliedSet := make(map[string]bool, len(applied))
	for _, tagID := range applied {
		appliedSet[tagID] = true
	}

	next := append([]string(nil), applied...)
	for _, name := range task.Tags {
		tag, ok := byName[name]
		if !ok || appliedSet[tag.ID] {
			continue
		}
		next = append(next, tag.ID)
		appliedSet[tag.ID] = true
	}

	if len(next) == len(applied) {
		return nil
	}
	return s.client.SetAppliedTags(ctx, thread.ID, next)
}
