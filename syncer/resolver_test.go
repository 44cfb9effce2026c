package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybermouflons/CTFNote/chat"
	"github.com/cybermouflons/CTFNote/models"
)

func TestCreateSpaceForCTF(t *testing.T) {
	env := newTestEnv(Config{VoiceChannels: 2})
	ctf := &models.CTF{ID: 1, Title: "FooCTF 2026"}
	env.profiles.canPlay[1] = []string{"d-alice", "d-bob"}

	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	assert.Equal(t, "FooCTF 2026", space.Category.Name)
	assert.Equal(t, chat.KindCategory, space.Category.Kind)
	assert.Equal(t, "challenges", space.Forum.Name)
	assert.Equal(t, space.Category.ID, space.Forum.ParentID)
	assert.Equal(t, "challenges-talk", space.Talk.Name)
	assert.Equal(t, "FooCTF 2026", space.Role.Name)

	tags, err := env.client.ForumTags(context.Background(), space.Forum.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"new", "in-progress", "solved"}, names)

	channels, err := env.client.Channels(context.Background())
	require.NoError(t, err)
	voices := 0
	for _, ch := range channels {
		if ch.Kind == chat.KindVoice && ch.ParentID == space.Category.ID {
			voices++
		}
	}
	assert.Equal(t, 2, voices)

	assert.Contains(t, env.client.MemberRoles("d-alice"), space.Role.ID)
	assert.Contains(t, env.client.MemberRoles("d-bob"), space.Role.ID)

	mapping, ok := env.mappings.spaces[1]
	require.True(t, ok, "space mapping must be persisted")
	assert.Equal(t, space.Category.ID, mapping.CategoryID)
	assert.Equal(t, space.Forum.ID, mapping.ForumID)
	assert.Equal(t, space.Talk.ID, mapping.TalkID)
	assert.Equal(t, space.Role.ID, mapping.RoleID)
}

func TestCreateSpaceForCTF_TitleCollision(t *testing.T) {
	env := newTestEnv(Config{})
	env.client.SeedChannel("DEF CON Quals", "", chat.KindCategory)

	space, err := env.sync.CreateSpaceForCTF(context.Background(), &models.CTF{ID: 2, Title: "DEF CON Quals"})
	require.NoError(t, err)
	assert.Equal(t, "(1) DEF CON Quals", space.Category.Name)

	// Второй дубль получает следующий номер.
	space2, err := env.sync.CreateSpaceForCTF(context.Background(), &models.CTF{ID: 3, Title: "DEF CON Quals"})
	require.NoError(t, err)
	assert.Equal(t, "(2) DEF CON Quals", space2.Category.Name)
}

func TestCreateSpaceForCTF_NonCategoryNameIsNotCollision(t *testing.T) {
	env := newTestEnv(Config{})
	env.client.SeedChannel("DEF CON Quals", "", chat.KindText)
	env.client.SeedChannel("DEF CON Quals", "", chat.KindVoice)

	space, err := env.sync.CreateSpaceForCTF(context.Background(), &models.CTF{ID: 2, Title: "DEF CON Quals"})
	require.NoError(t, err)
	assert.Equal(t, "DEF CON Quals", space.Category.Name)
}

func TestCreateSpaceForCTF_Disabled(t *testing.T) {
	env := newTestEnv(Config{})
	env.sync.client = nil

	_, err := env.sync.CreateSpaceForCTF(context.Background(), &models.CTF{ID: 1, Title: "X"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func seedScannableSpace(env *testEnv, title string) (chat.Channel, chat.Channel, chat.Channel, chat.Role) {
	category := env.client.SeedChannel(title, "", chat.KindCategory)
	forum := env.client.SeedChannel("challenges", category.ID, chat.KindForum)
	talk := env.client.SeedChannel("challenges-talk", category.ID, chat.KindText)
	role := env.client.SeedRole(title)
	return category, forum, talk, role
}

func TestSpaceForCTF_NameScanBackfillsMapping(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 7, Title: "HITCON"}
	category, forum, talk, role := seedScannableSpace(env, "HITCON")

	space, err := env.sync.SpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)
	assert.Equal(t, category.ID, space.Category.ID)
	assert.Equal(t, forum.ID, space.Forum.ID)
	assert.Equal(t, talk.ID, space.Talk.ID)
	assert.Equal(t, role.ID, space.Role.ID)

	mapping, ok := env.mappings.spaces[7]
	require.True(t, ok, "resolved space must be written back to the mapping table")
	assert.Equal(t, category.ID, mapping.CategoryID)
}

func TestSpaceForCTF_PrefersMappingOverScan(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 7, Title: "HITCON"}

	// Два пространства с подходящим именем; таблица указывает на второе.
	seedScannableSpace(env, "HITCON")
	category, forum, talk, role := seedScannableSpace(env, "(1) HITCON")
	require.NoError(t, env.mappings.UpsertSpace(context.Background(), &models.SpaceMapping{
		CtfID:      7,
		CategoryID: category.ID,
		ForumID:    forum.ID,
		TalkID:     talk.ID,
		RoleID:     role.ID,
	}))

	space, err := env.sync.SpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)
	assert.Equal(t, category.ID, space.Category.ID)
}

func TestSpaceForCTF_StaleMappingFallsBack(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 7, Title: "HITCON"}

	require.NoError(t, env.mappings.UpsertSpace(context.Background(), &models.SpaceMapping{
		CtfID:      7,
		CategoryID: "gone-1",
		ForumID:    "gone-2",
		TalkID:     "gone-3",
		RoleID:     "gone-4",
	}))
	category, _, _, _ := seedScannableSpace(env, "HITCON")

	space, err := env.sync.SpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)
	assert.Equal(t, category.ID, space.Category.ID)

	// Устаревшая строка перезаписана результатом скана.
	mapping := env.mappings.spaces[7]
	assert.Equal(t, category.ID, mapping.CategoryID)
}

func TestSpaceForCTF_AmbiguousPicksLowestID(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 7, Title: "HITCON"}

	first, _, _, _ := seedScannableSpace(env, "HITCON")
	seedScannableSpace(env, "(1) HITCON")

	space, err := env.sync.SpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)
	assert.Equal(t, first.ID, space.Category.ID)
}

func TestSpaceForCTF_NotFound(t *testing.T) {
	env := newTestEnv(Config{})
	_, err := env.sync.SpaceForCTF(context.Background(), &models.CTF{ID: 9, Title: "Nope"})
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}

func TestRenameSpace_PreservesCollisionPrefix(t *testing.T) {
	env := newTestEnv(Config{})
	env.client.SeedChannel("OldName", "", chat.KindCategory)
	ctf := &models.CTF{ID: 4, Title: "OldName"}

	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)
	require.Equal(t, "(1) OldName", space.Category.Name)

	require.NoError(t, env.sync.RenameSpace(context.Background(), ctf, "NewName"))

	category, ok := env.client.ChannelByID(space.Category.ID)
	require.True(t, ok)
	assert.Equal(t, "(1) NewName", category.Name)

	roles, err := env.client.Roles(context.Background())
	require.NoError(t, err)
	found := false
	for _, role := range roles {
		if role.ID == space.Role.ID {
			assert.Equal(t, "NewName", role.Name)
			found = true
		}
	}
	assert.True(t, found)
}

func TestDeleteSpace(t *testing.T) {
	env := newTestEnv(Config{VoiceChannels: 1})
	ctf := &models.CTF{ID: 5, Title: "DeleteMe"}

	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	require.NoError(t, env.sync.DeleteSpace(context.Background(), ctf))

	_, ok := env.client.ChannelByID(space.Category.ID)
	assert.False(t, ok, "category must be deleted")
	_, ok = env.client.ChannelByID(space.Forum.ID)
	assert.False(t, ok, "forum must be deleted")
	_, ok = env.client.ChannelByID(space.Talk.ID)
	assert.False(t, ok, "talk channel must be deleted")

	roles, err := env.client.Roles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, roles, "ctf role must be deleted")

	_, hasMapping := env.mappings.spaces[5]
	assert.False(t, hasMapping, "mapping row must be deleted")
}

func TestCreateThreadForTask(t *testing.T) {
	env := newTestEnv(Config{PadBaseURL: "https://notes.example.com"})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	env.ctfs.Create(context.Background(), ctf)

	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 10, CtfID: 1, Title: "pwn1", Tags: []string{"pwn", "easy"}}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	assert.Equal(t, "pwn1", thread.Name)
	assert.Equal(t, space.Forum.ID, thread.ParentID)
	assert.True(t, env.client.Pinned(thread.ID), "starter message must be pinned")

	mapping, ok := env.mappings.threads[10]
	require.True(t, ok)
	assert.Equal(t, thread.ID, mapping.ThreadID)

	// Начальный статус new + свободные метки задачи.
	assertAppliedTagNames(t, env, space, thread.ID, []string{"new", "pwn", "easy"})
}

func TestCreateThreadForTask_SolvedStartsSolved(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 11, CtfID: 1, Title: "done", Flag: "flag{x}"}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	assertAppliedTagNames(t, env, space, thread.ID, []string{"solved"})
}

func TestThreadForTask_NeverCreates(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	_, err = env.sync.ThreadForTask(context.Background(), space, &models.Task{ID: 99, Title: "ghost"})
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestRenameThread_DeletedMarker(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 12, CtfID: 1, Title: "web2"}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	require.NoError(t, env.sync.RenameThread(context.Background(), space, task, "deleted-web2"))

	renamed, ok := env.client.ChannelByID(thread.ID)
	require.True(t, ok, "thread survives deletion as an archive")
	assert.Equal(t, "deleted-web2", renamed.Name)
}

// assertAppliedTagNames сверяет имена навешенных меток треда.
func assertAppliedTagNames(t *testing.T, env *testEnv, space *Space, threadID string, want []string) {
	t.Helper()

	forumTags, err := env.client.ForumTags(context.Background(), space.Forum.ID)
	require.NoError(t, err)
	byID := make(map[string]string, len(forumTags))
	for _, tag := range forumTags {
		byID[tag.ID] = tag.Name
	}

	applied, err := env.client.AppliedTags(context.Background(), threadID)
	require.NoError(t, err)
	names := make([]string, 0, len(applied))
	for _, id := range applied {
		names = append(names, byID[id])
	}
	assert.ElementsMatch(t, want, names)
}
