package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybermouflons/CTFNote/models"
)

func TestMoveTaskState_Exclusivity(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 1, CtfID: 1, Title: "pwn1", Tags: []string{"pwn", "easy"}}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)
	assertAppliedTagNames(t, env, space, thread.ID, []string{"new", "pwn", "easy"})

	// new -> solved: статусная метка сменилась, свободные уцелели.
	require.NoError(t, env.sync.MoveTaskState(context.Background(), space, task, StateSolved))
	assertAppliedTagNames(t, env, space, thread.ID, []string{"solved", "pwn", "easy"})

	// solved -> in-progress (флаг отозван).
	require.NoError(t, env.sync.MoveTaskState(context.Background(), space, task, StateInProgress))
	assertAppliedTagNames(t, env, space, thread.ID, []string{"in-progress", "pwn", "easy"})

	// Повторный перевод в то же состояние идемпотентен.
	require.NoError(t, env.sync.MoveTaskState(context.Background(), space, task, StateInProgress))
	assertAppliedTagNames(t, env, space, thread.ID, []string{"in-progress", "pwn", "easy"})
}

func TestMoveTaskState_RecreatesDeletedStatusTag(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 2, CtfID: 1, Title: "rev1"}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	// Кто-то удалил определение "solved" с форума.
	forumTags, err := env.client.ForumTags(context.Background(), space.Forum.ID)
	require.NoError(t, err)
	kept := forumTags[:0]
	for _, tag := range forumTags {
		if tag.Name != StateSolved.TagName() {
			kept = append(kept, tag)
		}
	}
	require.NoError(t, env.client.SetForumTags(context.Background(), space.Forum.ID, kept))

	require.NoError(t, env.sync.MoveTaskState(context.Background(), space, task, StateSolved))
	assertAppliedTagNames(t, env, space, thread.ID, []string{"solved"})
}

func TestApplyTaskTags_UnionNeverRemoves(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 3, CtfID: 1, Title: "web1", Tags: []string{"web"}}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	// Задача потеряла метку "web", приобрела "crypto": снятые с задачи
	// метки остаются на треде.
	task.Tags = []string{"crypto"}
	require.NoError(t, env.sync.ApplyTaskTags(context.Background(), space, task))
	assertAppliedTagNames(t, env, space, thread.ID, []string{"new", "web", "crypto"})
}

func TestApplyTaskTags_Idempotent(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 4, CtfID: 1, Title: "misc1", Tags: []string{"misc"}}
	_, err = env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	before := len(env.client.Calls)
	require.NoError(t, env.sync.ApplyTaskTags(context.Background(), space, task))
	// Набор не изменился: мутирующих вызовов не было.
	assert.Equal(t, before, len(env.client.Calls))
}

func TestApplyTaskTags_TagLimitNotFatal(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	task := &models.Task{ID: 5, CtfID: 1, Title: "pwn2"}
	thread, err := env.sync.CreateThreadForTask(context.Background(), ctf, space, task)
	require.NoError(t, err)

	// Форум уже упёрся в лимит определений: три статусных и лимит три.
	env.client.MaxForumTags = 3

	task.Tags = []string{"overflow"}
	require.NoError(t, env.sync.ApplyTaskTags(context.Background(), space, task),
		"tag limit must be logged, not returned")
	assertAppliedTagNames(t, env, space, thread.ID, []string{"new"})
}

func TestMoveTaskState_Disabled(t *testing.T) {
	env := newTestEnv(Config{})
	env.sync.client = nil
	assert.NoError(t, env.sync.MoveTaskState(context.Background(), &Space{}, &models.Task{}, StateSolved))
}
