package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cybermouflons/CTFNote/models"
)

var ErrTagNotFound = errors.New("tag not found")

type TagRepository interface {
	// Ensure возвращает тег по имени, создавая его при отсутствии.
	Ensure(ctx context.Context, exec SQLExecutor, name string) (*models.Tag, error)
	AssignToTask(ctx context.Context, exec SQLExecutor, taskID, tagID int) error
	UnassignFromTask(ctx context.Context, taskID, tagID int) error
	GetByName(ctx context.Context, name string) (*models.Tag, error)
}

type postgresTagRepository struct {
	db *sql.DB
}

func NewPostgresTagRepository(db *sql.DB) TagRepository {
	return &postgresTagRepository{db: db}
}

func (r *postgresTagRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTagRepository) Ensure(ctx context.Context, exec SQLExecutor, name string) (*models.Tag, error) {
	// Гонка двух Ensure на одно имя разрешается ON CONFLICT + повторным SELECT.
	query := `
		WITH inserted AS (
			INSERT INTO tag (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING
			RETURNING id, name
		)
		SELECT id, name FROM inserted
		UNION ALL
		SELECT id, name FROM tag WHERE name = $1
		LIMIT 1`

	tag := &models.Tag{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, name).Scan(&tag.ID, &tag.Name)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *postgresTagRepository) AssignToTask(ctx context.Context, exec SQLExecutor, taskID, tagID int) error {
	query := `
		INSERT INTO assigned_tags (task_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT (task_id, tag_id) DO NOTHING`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, taskID, tagID)
	return err
}

func (r *postgresTagRepository) UnassignFromTask(ctx context.Context, taskID, tagID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM assigned_tags WHERE task_id = $1 AND tag_id = $2`, taskID, tagID)
	return err
}

func (r *postgresTagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	tag := &models.Tag{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM tag WHERE name = $1`, name).
		Scan(&tag.ID, &tag.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return tag, nil
}
