package hooks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/feed"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
	"github.com/cybermouflons/CTFNote/syncer"
)

type recordedMessage struct {
	CtfID   int
	Message feed.Message
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (f *fakePublisher) Publish(ctfID int, message feed.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, recordedMessage{CtfID: ctfID, Message: message})
}

func (f *fakePublisher) Messages() []recordedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedMessage(nil), f.messages...)
}

type fakeCTFRepo struct {
	ctfs map[int]*models.CTF
}

func (f *fakeCTFRepo) Create(ctx context.Context, ctf *models.CTF) error { return nil }

func (f *fakeCTFRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.CTF, error) {
	if ctf, ok := f.ctfs[id]; ok {
		return ctf, nil
	}
	return nil, repositories.ErrCTFNotFound
}

func (f *fakeCTFRepo) GetByTitle(ctx context.Context, exec repositories.SQLExecutor, title string) (*models.CTF, error) {
	return nil, repositories.ErrCTFNotFound
}

func (f *fakeCTFRepo) ListAll(ctx context.Context) ([]*models.CTF, error) { return nil, nil }

func (f *fakeCTFRepo) ListIncoming(ctx context.Context, now time.Time) ([]*models.CTF, error) {
	return nil, nil
}

func (f *fakeCTFRepo) Update(ctx context.Context, ctf *models.CTF) error { return nil }

func (f *fakeCTFRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error { return nil }

func (f *fakeCTFRepo) Delete(ctx context.Context, id int) error { return nil }

func (f *fakeCTFRepo) GetSecrets(ctx context.Context, ctfID int) (*models.CTFSecret, error) {
	return nil, repositories.ErrSecretsNotFound
}

func (f *fakeCTFRepo) UpsertSecrets(ctx context.Context, secret *models.CTFSecret) error { return nil }

// Удаление объявляется в фид только после фактического стирания строки:
// before-фаза молчит, сообщение уходит из after-фазы.
func TestCTFDelete_FeedAnnouncedAfterCommit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctfs := &fakeCTFRepo{ctfs: map[int]*models.CTF{1: {ID: 1, Title: "DemoCTF"}}}
	publisher := &fakePublisher{}
	sync := syncer.New(nil, ctfs, nil, nil, nil, syncer.Config{}, logger)

	dispatcher := events.NewDispatcher(logger)
	New(sync, ctfs, nil, nil, nil, publisher, logger).Register(dispatcher)

	mutation := &events.Mutation{
		Event: events.CTFDelete,
		Input: &events.CTFDeleteInput{CtfID: 1, Title: "DemoCTF"},
	}

	require.NoError(t, dispatcher.DispatchBefore(context.Background(), mutation))
	assert.Empty(t, publisher.Messages(), "before-фаза не должна объявлять удаление")

	dispatcher.DispatchAfter(context.Background(), mutation)
	dispatcher.Wait()

	messages := publisher.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, 1, messages[0].CtfID)
	assert.Equal(t, "ctfDeleted", messages[0].Message.Type)
	assert.Equal(t, "DemoCTF", messages[0].Message.Payload)
}
