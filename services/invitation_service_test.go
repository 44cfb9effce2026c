package services

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
)

type fakeInvitationRepo struct {
	createErr error
	deleteErr error
	created   []*models.Invitation
}

func (f *fakeInvitationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, invitation *models.Invitation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, invitation)
	return nil
}

func (f *fakeInvitationRepo) Delete(ctx context.Context, ctfID, profileID int) error {
	return f.deleteErr
}

func (f *fakeInvitationRepo) ListByCTF(ctx context.Context, ctfID int) ([]*models.Invitation, error) {
	return nil, nil
}

func (f *fakeInvitationRepo) ListProfileIDsByCTF(ctx context.Context, ctfID int) ([]int, error) {
	return nil, nil
}

type fakeProfileRepo struct {
	profiles   map[int]*models.Profile
	accessible map[int][]*models.CTF
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *models.Profile) error { return nil }

func (f *fakeProfileRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByUsername(ctx context.Context, exec repositories.SQLExecutor, username string) (*models.Profile, error) {
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByDiscordID(ctx context.Context, discordID string) (*models.Profile, error) {
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) UpdateRole(ctx context.Context, id int, role models.ProfileRole) error {
	return nil
}

func (f *fakeProfileRepo) SetDiscordID(ctx context.Context, id int, discordID *string) error {
	return nil
}

func (f *fakeProfileRepo) CanPlayDiscordIDs(ctx context.Context, ctfID int) ([]string, error) {
	return nil, nil
}

func (f *fakeProfileRepo) ListAccessibleCTFs(ctx context.Context, exec repositories.SQLExecutor, profileID int) ([]*models.CTF, error) {
	return f.accessible[profileID], nil
}

func (f *fakeProfileRepo) CreateRegistrationToken(ctx context.Context, token *models.RegistrationToken) error {
	return nil
}

func (f *fakeProfileRepo) ConsumeRegistrationToken(ctx context.Context, token string, now time.Time) (*models.RegistrationToken, error) {
	return nil, repositories.ErrRegistrationTokenInvalid
}

func newInvitationTestService(invRepo *fakeInvitationRepo, accessible ...*models.CTF) (*InvitationService, *atomic.Int32, *events.Dispatcher) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := events.NewDispatcher(logger)

	var dispatched atomic.Int32
	count := func(ctx context.Context, m *events.Mutation) error {
		dispatched.Add(1)
		return nil
	}
	dispatcher.Subscribe(events.InvitationCreate, events.After, 500, count)
	dispatcher.Subscribe(events.InvitationDelete, events.After, 500, count)

	profiles := &fakeProfileRepo{
		profiles:   map[int]*models.Profile{7: {ID: 7, Username: "alice"}},
		accessible: map[int][]*models.CTF{7: accessible},
	}
	return NewInvitationService(invRepo, profiles, dispatcher), &dispatched, dispatcher
}

func TestInvite_DispatchesEvent(t *testing.T) {
	repo := &fakeInvitationRepo{}
	svc, dispatched, dispatcher := newInvitationTestService(repo)

	require.NoError(t, svc.Invite(context.Background(), 1, 7, 7))
	dispatcher.Wait()

	require.Len(t, repo.created, 1)
	assert.Equal(t, int32(1), dispatched.Load())
}

func TestInvite_ConflictIsNoop(t *testing.T) {
	repo := &fakeInvitationRepo{createErr: repositories.ErrInvitationConflict}
	svc, dispatched, dispatcher := newInvitationTestService(repo)

	require.NoError(t, svc.Invite(context.Background(), 1, 7, 7))
	dispatcher.Wait()

	assert.Equal(t, int32(0), dispatched.Load())
}

func TestInvite_ImpliedAccessIsNoop(t *testing.T) {
	repo := &fakeInvitationRepo{}
	svc, dispatched, dispatcher := newInvitationTestService(repo, &models.CTF{ID: 1, Title: "DemoCTF"})

	require.NoError(t, svc.Invite(context.Background(), 1, 7, 7))
	dispatcher.Wait()

	assert.Empty(t, repo.created)
	assert.Equal(t, int32(0), dispatched.Load())
}

func TestInvite_UnknownProfile(t *testing.T) {
	repo := &fakeInvitationRepo{}
	svc, dispatched, dispatcher := newInvitationTestService(repo)

	err := svc.Invite(context.Background(), 1, 99, 7)
	dispatcher.Wait()

	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Equal(t, int32(0), dispatched.Load())
}

func TestInvite_UnknownCTF(t *testing.T) {
	repo := &fakeInvitationRepo{createErr: repositories.ErrInvitationInvalid}
	svc, _, _ := newInvitationTestService(repo)

	err := svc.Invite(context.Background(), 42, 7, 7)
	assert.ErrorIs(t, err, ErrCTFNotFound)
}

func TestUninvite_NotFound(t *testing.T) {
	repo := &fakeInvitationRepo{deleteErr: repositories.ErrInvitationNotFound}
	svc, dispatched, dispatcher := newInvitationTestService(repo)

	err := svc.Uninvite(context.Background(), 1, 7, 7)
	dispatcher.Wait()

	assert.ErrorIs(t, err, ErrInvitationNotFound)
	assert.Equal(t, int32(0), dispatched.Load())
}
