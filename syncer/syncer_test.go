package syncer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cybermouflons/CTFNote/chat"
	"github.com/cybermouflons/CTFNote/chat/chattest"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
)

// In-memory репозитории для тестов движка: реальные требуют *sql.DB.

type fakeMappingRepo struct {
	spaces  map[int]*models.SpaceMapping
	threads map[int]*models.ThreadMapping
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{
		spaces:  make(map[int]*models.SpaceMapping),
		threads: make(map[int]*models.ThreadMapping),
	}
}

func (f *fakeMappingRepo) UpsertSpace(_ context.Context, m *models.SpaceMapping) error {
	copied := *m
	f.spaces[m.CtfID] = &copied
	return nil
}

func (f *fakeMappingRepo) GetSpace(_ context.Context, ctfID int) (*models.SpaceMapping, error) {
	if m, ok := f.spaces[ctfID]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, repositories.ErrMappingNotFound
}

func (f *fakeMappingRepo) DeleteSpace(_ context.Context, ctfID int) error {
	delete(f.spaces, ctfID)
	return nil
}

func (f *fakeMappingRepo) UpsertThread(_ context.Context, m *models.ThreadMapping) error {
	copied := *m
	f.threads[m.TaskID] = &copied
	return nil
}

func (f *fakeMappingRepo) GetThread(_ context.Context, taskID int) (*models.ThreadMapping, error) {
	if m, ok := f.threads[taskID]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, repositories.ErrMappingNotFound
}

func (f *fakeMappingRepo) DeleteThread(_ context.Context, taskID int) error {
	delete(f.threads, taskID)
	return nil
}

type fakeCTFRepo struct {
	ctfs map[int]*models.CTF
}

func newFakeCTFRepo(ctfs ...*models.CTF) *fakeCTFRepo {
	f := &fakeCTFRepo{ctfs: make(map[int]*models.CTF)}
	for _, ctf := range ctfs {
		f.ctfs[ctf.ID] = ctf
	}
	return f
}

func (f *fakeCTFRepo) Create(_ context.Context, ctf *models.CTF) error {
	f.ctfs[ctf.ID] = ctf
	return nil
}

func (f *fakeCTFRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.CTF, error) {
	if ctf, ok := f.ctfs[id]; ok {
		return ctf, nil
	}
	return nil, repositories.ErrCTFNotFound
}

func (f *fakeCTFRepo) GetByTitle(_ context.Context, _ repositories.SQLExecutor, title string) (*models.CTF, error) {
	for _, ctf := range f.ctfs {
		if ctf.Title == title {
			return ctf, nil
		}
	}
	return nil, repositories.ErrCTFNotFound
}

func (f *fakeCTFRepo) ListAll(_ context.Context) ([]*models.CTF, error) {
	out := make([]*models.CTF, 0, len(f.ctfs))
	for _, ctf := range f.ctfs {
		out = append(out, ctf)
	}
	return out, nil
}

func (f *fakeCTFRepo) ListIncoming(_ context.Context, _ time.Time) ([]*models.CTF, error) {
	return nil, nil
}

func (f *fakeCTFRepo) Update(_ context.Context, ctf *models.CTF) error {
	f.ctfs[ctf.ID] = ctf
	return nil
}

func (f *fakeCTFRepo) UpdateLogoKey(_ context.Context, _ int, _ *string) error { return nil }
func (f *fakeCTFRepo) Delete(_ context.Context, id int) error {
	delete(f.ctfs, id)
	return nil
}

func (f *fakeCTFRepo) GetSecrets(_ context.Context, _ int) (*models.CTFSecret, error) {
	return nil, repositories.ErrSecretsNotFound
}

func (f *fakeCTFRepo) UpsertSecrets(_ context.Context, _ *models.CTFSecret) error { return nil }

type fakeTaskRepo struct {
	tasks map[int]*models.Task
}

func newFakeTaskRepo(tasks ...*models.Task) *fakeTaskRepo {
	f := &fakeTaskRepo{tasks: make(map[int]*models.Task)}
	for _, task := range tasks {
		f.tasks[task.ID] = task
	}
	return f
}

func (f *fakeTaskRepo) Create(_ context.Context, _ repositories.SQLExecutor, task *models.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Task, error) {
	if task, ok := f.tasks[id]; ok {
		return task, nil
	}
	return nil, repositories.ErrTaskNotFound
}

func (f *fakeTaskRepo) GetByCtfAndTitle(_ context.Context, _ repositories.SQLExecutor, ctfID int, title string) (*models.Task, error) {
	for _, task := range f.tasks {
		if task.CtfID == ctfID && task.Title == title {
			return task, nil
		}
	}
	return nil, repositories.ErrTaskNotFound
}

func (f *fakeTaskRepo) ListByCTF(_ context.Context, ctfID int) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range f.tasks {
		if task.CtfID == ctfID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task *models.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) SetFlag(_ context.Context, id int, flag string) error {
	task, ok := f.tasks[id]
	if !ok {
		return repositories.ErrTaskNotFound
	}
	if task.Flag != "" {
		return repositories.ErrTaskAlreadySolved
	}
	task.Flag = flag
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id int) error {
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) StartWorking(_ context.Context, _, _ int) (bool, error) { return true, nil }
func (f *fakeTaskRepo) StopWorking(_ context.Context, _, _ int) (bool, error)  { return true, nil }
func (f *fakeTaskRepo) ListWorkers(_ context.Context, _ int) ([]int, error)    { return nil, nil }

type fakeProfileRepo struct {
	profiles   map[int]*models.Profile
	canPlay    map[int][]string      // ctfID -> discord IDs
	accessible map[int][]*models.CTF // profileID -> CTFs
}

func newFakeProfileRepo(profiles ...*models.Profile) *fakeProfileRepo {
	f := &fakeProfileRepo{
		profiles:   make(map[int]*models.Profile),
		canPlay:    make(map[int][]string),
		accessible: make(map[int][]*models.CTF),
	}
	for _, profile := range profiles {
		f.profiles[profile.ID] = profile
	}
	return f
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *models.Profile) error {
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Profile, error) {
	if profile, ok := f.profiles[id]; ok {
		return profile, nil
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByUsername(_ context.Context, _ repositories.SQLExecutor, username string) (*models.Profile, error) {
	for _, profile := range f.profiles {
		if profile.Username == username {
			return profile, nil
		}
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByDiscordID(_ context.Context, discordID string) (*models.Profile, error) {
	for _, profile := range f.profiles {
		if profile.DiscordID != nil && *profile.DiscordID == discordID {
			return profile, nil
		}
	}
	return nil, repositories.ErrProfileNotFound
}

func (f *fakeProfileRepo) UpdateRole(_ context.Context, _ int, _ models.ProfileRole) error { return nil }
func (f *fakeProfileRepo) SetDiscordID(_ context.Context, _ int, _ *string) error          { return nil }

func (f *fakeProfileRepo) CanPlayDiscordIDs(_ context.Context, ctfID int) ([]string, error) {
	return f.canPlay[ctfID], nil
}

func (f *fakeProfileRepo) ListAccessibleCTFs(_ context.Context, _ repositories.SQLExecutor, profileID int) ([]*models.CTF, error) {
	return f.accessible[profileID], nil
}

func (f *fakeProfileRepo) CreateRegistrationToken(_ context.Context, _ *models.RegistrationToken) error {
	return nil
}

func (f *fakeProfileRepo) ConsumeRegistrationToken(_ context.Context, _ string, _ time.Time) (*models.RegistrationToken, error) {
	return nil, repositories.ErrRegistrationTokenInvalid
}

// testEnv собирает движок с fake-клиентом и in-memory репозиториями.
type testEnv struct {
	sync     *Syncer
	client   *chattest.FakeClient
	ctfs     *fakeCTFRepo
	tasks    *fakeTaskRepo
	profiles *fakeProfileRepo
	mappings *fakeMappingRepo
}

func newTestEnv(cfg Config, ctfs ...*models.CTF) *testEnv {
	env := &testEnv{
		client:   chattest.NewFakeClient(),
		ctfs:     newFakeCTFRepo(ctfs...),
		tasks:    newFakeTaskRepo(),
		profiles: newFakeProfileRepo(),
		mappings: newFakeMappingRepo(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.sync = New(env.client, env.ctfs, env.tasks, env.profiles, env.mappings, cfg, logger)
	return env
}

func strPtr(s string) *string { return &s }

var _ chat.Client = (*chattest.FakeClient)(nil)
