package syncer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybermouflons/CTFNote/models"
)

func TestGrantRole(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	profile := &models.Profile{ID: 1, Username: "alice", DiscordID: strPtr("d-alice")}
	require.NoError(t, env.sync.GrantRole(context.Background(), profile, ctf))
	assert.Contains(t, env.client.MemberRoles("d-alice"), space.Role.ID)
}

func TestGrantRole_UnlinkedProfileSkipped(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	_, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	profile := &models.Profile{ID: 1, Username: "alice"}
	require.NoError(t, env.sync.GrantRole(context.Background(), profile, ctf))

	for _, call := range env.client.Calls {
		assert.False(t, strings.HasPrefix(call, "AddMemberRole"), "no role calls for unlinked profile")
	}
}

func TestGrantRole_NoSpaceIsNoop(t *testing.T) {
	env := newTestEnv(Config{})
	profile := &models.Profile{ID: 1, Username: "alice", DiscordID: strPtr("d-alice")}
	assert.NoError(t, env.sync.GrantRole(context.Background(), profile, &models.CTF{ID: 9, Title: "Ghost"}))
}

func TestRevokeRole(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	profile := &models.Profile{ID: 1, Username: "alice", DiscordID: strPtr("d-alice")}
	require.NoError(t, env.sync.GrantRole(context.Background(), profile, ctf))
	require.NoError(t, env.sync.RevokeRole(context.Background(), profile, ctf))
	assert.NotContains(t, env.client.MemberRoles("d-alice"), space.Role.ID)
}

func TestResyncRoles_Converges(t *testing.T) {
	env := newTestEnv(Config{})
	oldCTF := &models.CTF{ID: 1, Title: "OldCTF"}
	newCTF := &models.CTF{ID: 2, Title: "NewCTF"}
	env.ctfs.Create(context.Background(), oldCTF)
	env.ctfs.Create(context.Background(), newCTF)

	oldSpace, err := env.sync.CreateSpaceForCTF(context.Background(), oldCTF)
	require.NoError(t, err)
	newSpace, err := env.sync.CreateSpaceForCTF(context.Background(), newCTF)
	require.NoError(t, err)

	profile := &models.Profile{ID: 1, Username: "alice", DiscordID: strPtr("d-alice")}
	env.client.SeedMember("d-alice", "Alice", oldSpace.Role.ID)
	// Доступ перенесён: теперь только NewCTF.
	env.profiles.accessible[1] = []*models.CTF{newCTF}

	require.NoError(t, env.sync.ResyncRoles(context.Background(), nil, profile))

	roles := env.client.MemberRoles("d-alice")
	assert.NotContains(t, roles, oldSpace.Role.ID, "stale role must be revoked")
	assert.Contains(t, roles, newSpace.Role.ID)
}

func TestResyncRoles_RevokeBeforeGrant(t *testing.T) {
	env := newTestEnv(Config{})
	ctf := &models.CTF{ID: 1, Title: "FooCTF"}
	env.ctfs.Create(context.Background(), ctf)
	space, err := env.sync.CreateSpaceForCTF(context.Background(), ctf)
	require.NoError(t, err)

	profile := &models.Profile{ID: 1, Username: "alice", DiscordID: strPtr("d-alice")}
	env.client.SeedMember("d-alice", "Alice", space.Role.ID)
	env.profiles.accessible[1] = []*models.CTF{ctf}

	env.client.Calls = nil
	require.NoError(t, env.sync.ResyncRoles(context.Background(), nil, profile))

	removeIdx, addIdx := -1, -1
	for i, call := range env.client.Calls {
		if strings.HasPrefix(call, "RemoveMemberRole") && removeIdx == -1 {
			removeIdx = i
		}
		if strings.HasPrefix(call, "AddMemberRole") && addIdx == -1 {
			addIdx = i
		}
	}
	require.NotEqual(t, -1, removeIdx)
	require.NotEqual(t, -1, addIdx)
	assert.Less(t, removeIdx, addIdx, "revoke must happen before grant")

	// Доступ сохранился: роль снова на месте.
	assert.Contains(t, env.client.MemberRoles("d-alice"), space.Role.ID)
}

func TestRevokeAllRoles(t *testing.T) {
	env := newTestEnv(Config{})
	a := &models.CTF{ID: 1, Title: "A"}
	b := &models.CTF{ID: 2, Title: "B"}
	env.ctfs.Create(context.Background(), a)
	env.ctfs.Create(context.Background(), b)

	spaceA, err := env.sync.CreateSpaceForCTF(context.Background(), a)
	require.NoError(t, err)
	spaceB, err := env.sync.CreateSpaceForCTF(context.Background(), b)
	require.NoError(t, err)

	profile := &models.Profile{ID: 1, Username: "alice", DiscordID: strPtr("d-alice")}
	env.client.SeedMember("d-alice", "Alice", spaceA.Role.ID, spaceB.Role.ID)

	require.NoError(t, env.sync.RevokeAllRoles(context.Background(), profile))
	assert.Empty(t, env.client.MemberRoles("d-alice"))
}
