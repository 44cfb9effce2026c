package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cybermouflons/CTFNote/models"
	"github.com/lib/pq"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskTitleConflict = errors.New("task title already exists in this ctf")
	ErrTaskInvalidCTF    = errors.New("task references unknown ctf")
	ErrTaskAlreadySolved = errors.New("task already has a flag")
)

// TaskRepository определяет интерфейс для работы с задачами.
// Методы чтения принимают SQLExecutor: after-хуки передают транзакцию
// мутации, чтобы видеть только что закоммиченные строки.
type TaskRepository interface {
	Create(ctx context.Context, exec SQLExecutor, task *models.Task) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Task, error)
	GetByCtfAndTitle(ctx context.Context, exec SQLExecutor, ctfID int, title string) (*models.Task, error)
	ListByCTF(ctx context.Context, ctfID int) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SetFlag(ctx context.Context, id int, flag string) error
	Delete(ctx context.Context, id int) error

	StartWorking(ctx context.Context, taskID, profileID int) (bool, error)
	StopWorking(ctx context.Context, taskID, profileID int) (bool, error)
	ListWorkers(ctx context.Context, taskID int) ([]int, error)
}

type postgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTaskRepository(db *sql.DB) TaskRepository {
	return &postgresTaskRepository{db: db}
}

func (r *postgresTaskRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const taskColumns = `id, ctf_id, title, description, flag, files, pad_url, created_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID,
		&task.CtfID,
		&task.Title,
		&task.Description,
		&task.Flag,
		&task.Files,
		&task.PadURL,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *postgresTaskRepository) Create(ctx context.Context, exec SQLExecutor, task *models.Task) error {
	query := `
		INSERT INTO task (ctf_id, title, description, flag, files, pad_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		task.CtfID,
		task.Title,
		task.Description,
		task.Flag,
		task.Files,
		task.PadURL,
	).Scan(&task.ID, &task.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrTaskTitleConflict
			case "23503":
				return ErrTaskInvalidCTF
			}
		}
		return err
	}
	return nil
}

func (r *postgresTaskRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE id = $1`
	task, err := scanTask(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	task.Tags, err = r.listTags(ctx, r.getExecutor(exec), task.ID)
	return task, err
}

func (r *postgresTaskRepository) GetByCtfAndTitle(ctx context.Context, exec SQLExecutor, ctfID int, title string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE ctf_id = $1 AND title = $2`
	task, err := scanTask(r.getExecutor(exec).QueryRowContext(ctx, query, ctfID, title))
	if err != nil {
		return nil, err
	}
	task.Tags, err = r.listTags(ctx, r.getExecutor(exec), task.ID)
	return task, err
}

func (r *postgresTaskRepository) ListByCTF(ctx context.Context, ctfID int) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE ctf_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ctfID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, task := range tasks {
		task.Tags, err = r.listTags(ctx, r.db, task.ID)
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *postgresTaskRepository) listTags(ctx context.Context, exec SQLExecutor, taskID int) ([]string, error) {
	query := `
		SELECT t.name FROM tag t
		JOIN assigned_tags at ON at.tag_id = t.id
		WHERE at.task_id = $1
		ORDER BY t.name`

	rows, err := exec.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func (r *postgresTaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE task
		SET title = $1, description = $2, flag = $3, files = $4, pad_url = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Flag,
		task.Files,
		task.PadURL,
		task.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTaskTitleConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrTaskNotFound)
}

// SetFlag записывает флаг, только если он ещё не установлен.
func (r *postgresTaskRepository) SetFlag(ctx context.Context, id int, flag string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE task SET flag = $1 WHERE id = $2 AND flag = ''`, flag, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTaskAlreadySolved)
}

func (r *postgresTaskRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTaskNotFound)
}

// StartWorking возвращает false, если отметка уже существует.
func (r *postgresTaskRepository) StartWorking(ctx context.Context, taskID, profileID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO work_on_task (task_id, profile_id, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (task_id, profile_id) DO UPDATE SET active = TRUE
		WHERE work_on_task.active = FALSE OR work_on_task.active IS NULL`,
		taskID, profileID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *postgresTaskRepository) StopWorking(ctx context.Context, taskID, profileID int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE work_on_task SET active = FALSE WHERE task_id = $1 AND profile_id = $2 AND active = TRUE`,
		taskID, profileID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *postgresTaskRepository) ListWorkers(ctx context.Context, taskID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT profile_id FROM work_on_task WHERE task_id = $1 AND active = TRUE`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
