package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cybermouflons/CTFNote/models"
	"github.com/lib/pq"
)

var (
	ErrCTFNotFound      = errors.New("ctf not found")
	ErrCTFTitleConflict = errors.New("ctf title already exists")
	ErrSecretsNotFound  = errors.New("ctf secrets not found")
)

// CTFRepository определяет интерфейс для работы с соревнованиями.
type CTFRepository interface {
	Create(ctx context.Context, ctf *models.CTF) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.CTF, error)
	GetByTitle(ctx context.Context, exec SQLExecutor, title string) (*models.CTF, error)
	ListAll(ctx context.Context) ([]*models.CTF, error)
	ListIncoming(ctx context.Context, now time.Time) ([]*models.CTF, error)
	Update(ctx context.Context, ctf *models.CTF) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	Delete(ctx context.Context, id int) error

	GetSecrets(ctx context.Context, ctfID int) (*models.CTFSecret, error)
	UpsertSecrets(ctx context.Context, secret *models.CTFSecret) error
}

type postgresCTFRepository struct {
	db *sql.DB
}

func NewPostgresCTFRepository(db *sql.DB) CTFRepository {
	return &postgresCTFRepository{db: db}
}

func (r *postgresCTFRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const ctfColumns = `id, title, description, weight, ctf_url, ctftime_url, start_time, end_time, created_at, logo_key`

func scanCTF(row interface{ Scan(...interface{}) error }) (*models.CTF, error) {
	ctf := &models.CTF{}
	err := row.Scan(
		&ctf.ID,
		&ctf.Title,
		&ctf.Description,
		&ctf.Weight,
		&ctf.CtfURL,
		&ctf.CtftimeURL,
		&ctf.StartTime,
		&ctf.EndTime,
		&ctf.CreatedAt,
		&ctf.LogoKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCTFNotFound
		}
		return nil, err
	}
	return ctf, nil
}

func (r *postgresCTFRepository) Create(ctx context.Context, ctf *models.CTF) error {
	query := `
		INSERT INTO ctf (title, description, weight, ctf_url, ctftime_url, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		ctf.Title,
		ctf.Description,
		ctf.Weight,
		ctf.CtfURL,
		ctf.CtftimeURL,
		ctf.StartTime,
		ctf.EndTime,
	).Scan(&ctf.ID, &ctf.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCTFTitleConflict
		}
		return err
	}
	return nil
}

func (r *postgresCTFRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.CTF, error) {
	query := `SELECT ` + ctfColumns + ` FROM ctf WHERE id = $1`
	return scanCTF(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresCTFRepository) GetByTitle(ctx context.Context, exec SQLExecutor, title string) (*models.CTF, error) {
	query := `SELECT ` + ctfColumns + ` FROM ctf WHERE title = $1`
	return scanCTF(r.getExecutor(exec).QueryRowContext(ctx, query, title))
}

func (r *postgresCTFRepository) ListAll(ctx context.Context) ([]*models.CTF, error) {
	query := `SELECT ` + ctfColumns + ` FROM ctf ORDER BY start_time DESC`
	return r.list(ctx, query)
}

func (r *postgresCTFRepository) ListIncoming(ctx context.Context, now time.Time) ([]*models.CTF, error) {
	query := `SELECT ` + ctfColumns + ` FROM ctf WHERE end_time >= $1 ORDER BY start_time ASC`
	return r.list(ctx, query, now)
}

func (r *postgresCTFRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.CTF, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ctfs := make([]*models.CTF, 0)
	for rows.Next() {
		ctf, scanErr := scanCTF(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		ctfs = append(ctfs, ctf)
	}
	return ctfs, rows.Err()
}

func (r *postgresCTFRepository) Update(ctx context.Context, ctf *models.CTF) error {
	query := `
		UPDATE ctf
		SET title = $1, description = $2, weight = $3, ctf_url = $4, ctftime_url = $5,
		    start_time = $6, end_time = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		ctf.Title,
		ctf.Description,
		ctf.Weight,
		ctf.CtfURL,
		ctf.CtftimeURL,
		ctf.StartTime,
		ctf.EndTime,
		ctf.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCTFTitleConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrCTFNotFound)
}

func (r *postgresCTFRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE ctf SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCTFNotFound)
}

func (r *postgresCTFRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ctf WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCTFNotFound)
}

func (r *postgresCTFRepository) GetSecrets(ctx context.Context, ctfID int) (*models.CTFSecret, error) {
	query := `SELECT ctf_id, username, password, scoreboard_name, extra_info FROM ctf_secrets WHERE ctf_id = $1`

	secret := &models.CTFSecret{}
	err := r.db.QueryRowContext(ctx, query, ctfID).Scan(
		&secret.CtfID,
		&secret.Username,
		&secret.Password,
		&secret.ScoreboardName,
		&secret.ExtraInfo,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSecretsNotFound
		}
		return nil, err
	}
	return secret, nil
}

func (r *postgresCTFRepository) UpsertSecrets(ctx context.Context, secret *models.CTFSecret) error {
	query := `
		INSERT INTO ctf_secrets (ctf_id, username, password, scoreboard_name, extra_info)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ctf_id) DO UPDATE
		SET username = EXCLUDED.username, password = EXCLUDED.password,
		    scoreboard_name = EXCLUDED.scoreboard_name, extra_info = EXCLUDED.extra_info`

	_, err := r.db.ExecContext(ctx, query,
		secret.CtfID,
		secret.Username,
		secret.Password,
		secret.ScoreboardName,
		secret.ExtraInfo,
	)
	return err
}
