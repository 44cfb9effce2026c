package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/cybermouflons/CTFNote/chat"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
	"golang.org/x/sync/errgroup"
)

// Space — разрешённое Discord-пространство одного соревнования.
type Space struct {
	Category chat.Channel
	Forum    chat.Channel
	Talk     chat.Channel
	Role     chat.Role
}

// Имена категорий при коллизии получают префикс "(n) "; заголовок в базе
// при этом не меняется.
var collisionPrefix = regexp.MustCompile(`^\(\d+\) `)

func matchesSpaceName(channelName, title string) bool {
	if channelName == title {
		return true
	}
	return collisionPrefix.MatchString(channelName) &&
		collisionPrefix.ReplaceAllString(channelName, "") == title
}

// SpaceForCTF разрешает пространство соревнования: сначала по явной
// таблице соответствий, затем — fallback-скан по имени. Успешный скан
// записывается обратно в таблицу. Возвращает ErrSpaceNotFound, если
// пространство отсутствует (фича выключена для этого CTF).
func (s *Syncer) SpaceForCTF(ctx context.Context, ctf *models.CTF) (*Space, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	channels, err := s.client.Channels(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.client.Roles(ctx)
	if err != nil {
		return nil, err
	}

	if space, ok := s.spaceFromMapping(ctx, ctf, channels, roles); ok {
		return space, nil
	}

	space, err := s.spaceFromNameScan(ctx, ctf, channels, roles)
	if err != nil {
		return nil, err
	}

	// Компенсируем отсутствующую строку таблицы для пространств,
	// созданных до её появления.
	if err := s.mappings.UpsertSpace(ctx, &models.SpaceMapping{
		CtfID:      ctf.ID,
		CategoryID: space.Category.ID,
		ForumID:    space.Forum.ID,
		TalkID:     space.Talk.ID,
		RoleID:     space.Role.ID,
	}); err != nil {
		s.logger.Warn("failed to backfill space mapping",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	return space, nil
}

func (s *Syncer) spaceFromMapping(ctx context.Context, ctf *models.CTF, channels []chat.Channel, roles []chat.Role) (*Space, bool) {
	mapping, err := s.mappings.GetSpace(ctx, ctf.ID)
	if err != nil {
		if !errors.Is(err, repositories.ErrMappingNotFound) {
			s.logger.Warn("failed to read space mapping",
				slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
		}
		return nil, false
	}

	byID := make(map[string]chat.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}
	category, okCat := byID[mapping.CategoryID]
	forum, okForum := byID[mapping.ForumID]
	talk, okTalk := byID[mapping.TalkID]

	var role chat.Role
	okRole := false
	for _, r := range roles {
		if r.ID == mapping.RoleID {
			role, okRole = r, true
			break
		}
	}

	if !okCat || !okForum || !okTalk || !okRole {
		// Объекты удалили руками; строка больше не достоверна.
		s.logger.Warn("space mapping is stale, falling back to name scan",
			slog.Int("ctf_id", ctf.ID))
		return nil, false
	}
	return &Space{Category: category, Forum: forum, Talk: talk, Role: role}, true
}

func (s *Syncer) spaceFromNameScan(_ context.Context, ctf *models.CTF, channels []chat.Channel, roles []chat.Role) (*Space, error) {
	var categories []chat.Channel
	for _, ch := range channels {
		if ch.Kind == chat.KindCategory && matchesSpaceName(ch.Name, ctf.Title) {
			categories = append(categories, ch)
		}
	}
	if len(categories) == 0 {
		return nil, ErrSpaceNotFound
	}
	if len(categories) > 1 {
		// Детерминированный выбор при неоднозначном состоянии.
		sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
		s.logger.Warn("multiple categories match ctf title, picking first",
			slog.String("title", ctf.Title), slog.Int("matches", len(categories)))
	}
	category := categories[0]

	space := &Space{Category: category}
	for _, ch := range channels {
		if ch.ParentID != category.ID {
			continue
		}
		switch {
		case ch.Kind == chat.KindForum && ch.Name == forumChannelName:
			space.Forum = ch
		case ch.Kind == chat.KindText && ch.Name == talkChannelName:
			space.Talk = ch
		}
	}
	if space.Forum.ID == "" || space.Talk.ID == "" {
		return nil, ErrSpaceNotFound
	}

	foundRole := false
	for _, role := range roles {
		if role.Name == ctf.Title {
			space.Role = role
			foundRole = true
			break
		}
	}
	if !foundRole {
		return nil, ErrSpaceNotFound
	}
	return space, nil
}

// availableSpaceName подбирает имя категории, добавляя "(n) " пока имя
// занято. Конкурируют только категории: одноимённый текстовый или
// голосовой канал коллизией не считается.
func availableSpaceName(channels []chat.Channel, title string) string {
	taken := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if ch.Kind == chat.KindCategory {
			taken[ch.Name] = true
		}
	}
	name := title
	for i := 1; taken[name]; i++ {
		name = fmt.Sprintf("(%d) %s", i, title)
	}
	return name
}

// CreateSpaceForCTF создаёт роль, категорию с правами, форум со
// статусными метками, talk-канал, голосовые комнаты и выдаёт роль всем
// уже допущенным участникам. Возвращает созданное пространство.
func (s *Syncer) CreateSpaceForCTF(ctx context.Context, ctf *models.CTF) (*Space, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	role, err := s.client.CreateRole(ctx, ctf.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	channels, err := s.client.Channels(ctx)
	if err != nil {
		return nil, err
	}

	overwrites := []chat.PermissionOverwrite{
		{RoleID: "", Deny: chat.PermViewChannel}, // @everyone не видит
		{
			RoleID: role.ID,
			Allow:  chat.PermViewChannel | chat.PermSendMessagesInThreads,
			Deny:   chat.PermCreatePublicThreads | chat.PermCreatePrivateThreads | chat.PermManageThreads,
		},
	}
	category, err := s.client.CreateCategory(ctx, availableSpaceName(channels, ctf.Title), overwrites)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	forum, err := s.client.CreateForum(ctx, forumChannelName, category.ID, []chat.Tag{
		{Name: StateNew.TagName(), Emoji: "🆕"},
		{Name: StateInProgress.TagName(), Emoji: "⌛"},
		{Name: StateSolved.TagName(), Emoji: "✅"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create forum: %w", err)
	}

	talk, err := s.client.CreateText(ctx, talkChannelName, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create talk channel: %w", err)
	}

	// Голосовые комнаты и выдача ролей — best effort: сбой одной не
	// откатывает пространство.
	var group errgroup.Group
	for i := 0; i < s.cfg.VoiceChannels; i++ {
		name := fmt.Sprintf("voice-%d", i)
		group.Go(func() error {
			if _, err := s.client.CreateVoice(ctx, name, category.ID); err != nil {
				s.logger.Error("failed to create voice channel",
					slog.String("name", name), slog.Any("error", err))
			}
			return nil
		})
	}

	discordIDs, err := s.profiles.CanPlayDiscordIDs(ctx, ctf.ID)
	if err != nil {
		s.logger.Error("failed to list players for role grant",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	for _, discordID := range discordIDs {
		discordID := discordID
		group.Go(func() error {
			if err := s.client.AddMemberRole(ctx, discordID, role.ID); err != nil {
				s.logger.Error("failed to grant ctf role",
					slog.String("discord_id", discordID), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = group.Wait()

	space := &Space{Category: *category, Forum: *forum, Talk: *talk, Role: *role}
	if err := s.mappings.UpsertSpace(ctx, &models.SpaceMapping{
		CtfID:      ctf.ID,
		CategoryID: category.ID,
		ForumID:    forum.ID,
		TalkID:     talk.ID,
		RoleID:     role.ID,
	}); err != nil {
		s.logger.Warn("failed to persist space mapping",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	return space, nil
}

// ThreadForTask разрешает тред задачи. Никогда не создаёт: вызывающая
// сторона решает, создавать ли отсутствующий тред.
func (s *Syncer) ThreadForTask(ctx context.Context, space *Space, task *models.Task) (*chat.Channel, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	channels, err := s.client.Channels(ctx)
	if err != nil {
		return nil, err
	}

	if mapping, err := s.mappings.GetThread(ctx, task.ID); err == nil {
		for _, ch := range channels {
			if ch.ID == mapping.ThreadID {
				return &ch, nil
			}
		}
		s.logger.Warn("thread mapping is stale, falling back to name scan",
			slog.Int("task_id", task.ID))
	} else if !errors.Is(err, repositories.ErrMappingNotFound) {
		s.logger.Warn("failed to read thread mapping",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}

	var matches []chat.Channel
	for _, ch := range channels {
		if ch.Kind == chat.KindThread && ch.ParentID == space.Forum.ID && ch.Name == task.Title {
			matches = append(matches, ch)
		}
	}
	if len(matches) == 0 {
		return nil, ErrThreadNotFound
	}
	if len(matches) > 1 {
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
		s.logger.Warn("multiple threads match task title, picking first",
			slog.String("title", task.Title), slog.Int("matches", len(matches)))
	}
	thread := matches[0]

	if err := s.mappings.UpsertThread(ctx, &models.ThreadMapping{TaskID: task.ID, ThreadID: thread.ID}); err != nil {
		s.logger.Warn("failed to backfill thread mapping",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}
	return &thread, nil
}

// CreateThreadForTask создаёт тред форума со стартовым закреплённым
// сообщением (заголовок, описание, ссылка, файлы) и начальной статусной
// меткой, затем досинхронизирует свободные метки задачи.
func (s *Syncer) CreateThreadForTask(ctx context.Context, ctf *models.CTF, space *Space, task *models.Task) (*chat.Channel, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	initial := StateNew
	if task.Solved() {
		initial = StateSolved
	}

	forumTags, err := s.client.ForumTags(ctx, space.Forum.ID)
	if err != nil {
		return nil, err
	}
	var initialTags []string
	for _, tag := range forumTags {
		if tag.Name == initial.TagName() {
			initialTags = append(initialTags, tag.ID)
			break
		}
	}

	description := task.Description
	if description == "" {
		description = "No description available"
	}
	files := task.Files
	if files == "" {
		files = "No files/instances available"
	}
	starter := &chat.Embed{
		Title:       fmt.Sprintf("%s (CTFNote link)", task.Title),
		Description: description,
		URL:         s.TaskLink(ctf, task),
		Fields:      map[string]string{"Files/instances": files},
	}

	thread, err := s.client.CreateThread(ctx, space.Forum.ID, task.Title, initialTags, starter)
	if err != nil {
		return nil, fmt.Errorf("failed to create task thread: %w", err)
	}

	if err := s.mappings.UpsertThread(ctx, &models.ThreadMapping{TaskID: task.ID, ThreadID: thread.ID}); err != nil {
		s.logger.Warn("failed to persist thread mapping",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}

	if err := s.ApplyTaskTags(ctx, space, task); err != nil {
		s.logger.Error("failed to apply task tags on creation",
			slog.Int("task_id", task.ID), slog.Any("error", err))
	}
	return thread, nil
}

// RenameThread переименовывает тред задачи (смена заголовка или пометка
// deleted-<title> при удалении задачи).
func (s *Syncer) RenameThread(ctx context.Context, space *Space, task *models.Task, name string) error {
	if !s.Enabled() {
		return nil
	}
	thread, err := s.ThreadForTask(ctx, space, task)
	if err != nil {
		return err
	}
	return s.client.RenameChannel(ctx, thread.ID, name)
}

// RenameSpace переименовывает категорию (с сохранением "(n) " префикса)
// и роль соревнования при смене заголовка.
func (s *Syncer) RenameSpace(ctx context.Context, ctf *models.CTF, newTitle string) error {
	if !s.Enabled() {
		return nil
	}
	space, err := s.SpaceForCTF(ctx, ctf)
	if err != nil {
		return err
	}

	newName := newTitle
	if prefix := collisionPrefix.FindString(space.Category.Name); prefix != "" {
		newName = prefix + newTitle
	}
	if err := s.client.RenameChannel(ctx, space.Category.ID, newName); err != nil {
		return err
	}
	return s.client.RenameRole(ctx, space.Role.ID, newTitle)
}

// DeleteSpace удаляет пространство соревнования в явном порядке:
// сначала дочерние каналы (треды уходят вместе с форумом), затем роль,
// затем категорию, затем строку соответствия.
func (s *Syncer) DeleteSpace(ctx context.Context, ctf *models.CTF) error {
	if !s.Enabled() {
		return nil
	}
	space, err := s.SpaceForCTF(ctx, ctf)
	if err != nil {
		return err
	}

	channels, err := s.client.Channels(ctx)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		if ch.ParentID != space.Category.ID || ch.Kind == chat.KindThread {
			continue
		}
		if err := s.client.DeleteChannel(ctx, ch.ID); err != nil {
			s.logger.Error("failed to delete ctf channel",
				slog.String("channel", ch.Name), slog.Any("error", err))
		}
	}

	if err := s.client.DeleteRole(ctx, space.Role.ID); err != nil {
		s.logger.Error("failed to delete ctf role",
			slog.String("role", space.Role.Name), slog.Any("error", err))
	}

	if err := s.client.DeleteChannel(ctx, space.Category.ID); err != nil {
		return err
	}
	if err := s.mappings.DeleteSpace(ctx, ctf.ID); err != nil {
		s.logger.Warn("failed to delete space mapping",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	return nil
}
