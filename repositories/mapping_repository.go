package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cybermouflons/CTFNote/models"
)

var ErrMappingNotFound = errors.New("chat mapping not found")

// MappingRepository хранит явную связь сущностей с объектами Discord,
// чтобы резолвер не зависел от совпадения имён (поиск по имени остаётся
// как fallback для пространств, созданных до появления таблицы).
type MappingRepository interface {
	UpsertSpace(ctx context.Context, mapping *models.SpaceMapping) error
	GetSpace(ctx context.Context, ctfID int) (*models.SpaceMapping, error)
	DeleteSpace(ctx context.Context, ctfID int) error

	UpsertThread(ctx context.Context, mapping *models.ThreadMapping) error
	GetThread(ctx context.Context, taskID int) (*models.ThreadMapping, error)
	DeleteThread(ctx context.Context, taskID int) error
}

type postgresMappingRepository struct {
	db *sql.DB
}

func NewPostgresMappingRepository(db *sql.DB) MappingRepository {
	return &postgresMappingRepository{db: db}
}

func (r *postgresMappingRepository) UpsertSpace(ctx context.Context, m *models.SpaceMapping) error {
	query := `
		INSERT INTO discord_space (ctf_id, category_id, forum_id, talk_id, role_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ctf_id) DO UPDATE
		SET category_id = EXCLUDED.category_id, forum_id = EXCLUDED.forum_id,
		    talk_id = EXCLUDED.talk_id, role_id = EXCLUDED.role_id`

	_, err := r.db.ExecContext(ctx, query, m.CtfID, m.CategoryID, m.ForumID, m.TalkID, m.RoleID)
	return err
}

func (r *postgresMappingRepository) GetSpace(ctx context.Context, ctfID int) (*models.SpaceMapping, error) {
	query := `SELECT ctf_id, category_id, forum_id, talk_id, role_id FROM discord_space WHERE ctf_id = $1`

	m := &models.SpaceMapping{}
	err := r.db.QueryRowContext(ctx, query, ctfID).Scan(
		&m.CtfID, &m.CategoryID, &m.ForumID, &m.TalkID, &m.RoleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMappingRepository) DeleteSpace(ctx context.Context, ctfID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM discord_space WHERE ctf_id = $1`, ctfID)
	return err
}

func (r *postgresMappingRepository) UpsertThread(ctx context.Context, m *models.ThreadMapping) error {
	query := `
		INSERT INTO discord_thread (task_id, thread_id)
		VALUES ($1, $2)
		ON CONFLICT (task_id) DO UPDATE SET thread_id = EXCLUDED.thread_id`

	_, err := r.db.ExecContext(ctx, query, m.TaskID, m.ThreadID)
	return err
}

func (r *postgresMappingRepository) GetThread(ctx context.Context, taskID int) (*models.ThreadMapping, error) {
	m := &models.ThreadMapping{}
	err := r.db.QueryRowContext(ctx,
		`SELECT task_id, thread_id FROM discord_thread WHERE task_id = $1`, taskID).
		Scan(&m.TaskID, &m.ThreadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMappingRepository) DeleteThread(ctx context.Context, taskID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM discord_thread WHERE task_id = $1`, taskID)
	return err
}
