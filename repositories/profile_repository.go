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
	ErrProfileNotFound          = errors.New("profile not found")
	ErrProfileUsernameConflict  = errors.New("username already in use")
	ErrRegistrationTokenInvalid = errors.New("registration token invalid or expired")
)

// ProfileRepository определяет интерфейс для работы с участниками.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Profile, error)
	GetByUsername(ctx context.Context, exec SQLExecutor, username string) (*models.Profile, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.Profile, error)
	UpdateRole(ctx context.Context, id int, role models.ProfileRole) error
	SetDiscordID(ctx context.Context, id int, discordID *string) error

	// CanPlayDiscordIDs — Discord ID всех участников, которым доступно
	// соревнование (обычное членство либо приглашение).
	CanPlayDiscordIDs(ctx context.Context, ctfID int) ([]string, error)
	// ListAccessibleCTFs — предикат доступа: каждое соревнование,
	// к которому профиль сейчас допущен.
	ListAccessibleCTFs(ctx context.Context, exec SQLExecutor, profileID int) ([]*models.CTF, error)

	CreateRegistrationToken(ctx context.Context, token *models.RegistrationToken) error
	ConsumeRegistrationToken(ctx context.Context, token string, now time.Time) (*models.RegistrationToken, error)
}

type postgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(db *sql.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

func (r *postgresProfileRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const profileColumns = `id, username, password_hash, role, discord_id, created_at`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.Profile, error) {
	profile := &models.Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.Username,
		&profile.PasswordHash,
		&profile.Role,
		&profile.DiscordID,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (r *postgresProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profile (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		profile.Username,
		profile.PasswordHash,
		profile.Role,
	).Scan(&profile.ID, &profile.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrProfileUsernameConflict
		}
		return err
	}
	return nil
}

func (r *postgresProfileRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE id = $1`
	return scanProfile(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresProfileRepository) GetByUsername(ctx context.Context, exec SQLExecutor, username string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE username = $1`
	return scanProfile(r.getExecutor(exec).QueryRowContext(ctx, query, username))
}

func (r *postgresProfileRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE discord_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, discordID))
}

func (r *postgresProfileRepository) UpdateRole(ctx context.Context, id int, role models.ProfileRole) error {
	result, err := r.db.ExecContext(ctx, `UPDATE profile SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func (r *postgresProfileRepository) SetDiscordID(ctx context.Context, id int, discordID *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE profile SET discord_id = $1 WHERE id = $2`, discordID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func (r *postgresProfileRepository) CanPlayDiscordIDs(ctx context.Context, ctfID int) ([]string, error) {
	// Обычное членство (member и выше) плюс явные приглашения.
	query := `
		SELECT DISTINCT p.discord_id
		FROM profile p
		LEFT JOIN invitation i ON i.profile_id = p.id AND i.ctf_id = $1
		WHERE p.discord_id IS NOT NULL
		  AND (p.role IN ('user_member', 'user_manager', 'user_admin') OR i.ctf_id IS NOT NULL)`

	rows, err := r.db.QueryContext(ctx, query, ctfID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresProfileRepository) ListAccessibleCTFs(ctx context.Context, exec SQLExecutor, profileID int) ([]*models.CTF, error) {
	query := `
		SELECT ` + ctfColumns + ` FROM ctf c
		WHERE EXISTS (
			SELECT 1 FROM profile p
			WHERE p.id = $1 AND p.role IN ('user_member', 'user_manager', 'user_admin')
		)
		OR EXISTS (
			SELECT 1 FROM invitation i
			WHERE i.profile_id = $1 AND i.ctf_id = c.id
		)
		ORDER BY c.start_time DESC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, profileID)
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

func (r *postgresProfileRepository) CreateRegistrationToken(ctx context.Context, token *models.RegistrationToken) error {
	query := `
		INSERT INTO registration_token (token, role, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		token.Token,
		token.Role,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
}

// ConsumeRegistrationToken атомарно удаляет действующий токен и возвращает его.
func (r *postgresProfileRepository) ConsumeRegistrationToken(ctx context.Context, token string, now time.Time) (*models.RegistrationToken, error) {
	query := `
		DELETE FROM registration_token
		WHERE token = $1 AND expires_at > $2
		RETURNING token, role, expires_at, created_at`

	rt := &models.RegistrationToken{}
	err := r.db.QueryRowContext(ctx, query, token, now).Scan(
		&rt.Token,
		&rt.Role,
		&rt.ExpiresAt,
		&rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationTokenInvalid
		}
		return nil, err
	}
	return rt, nil
}
