package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cybermouflons/CTFNote/models"
	"github.com/lib/pq"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationConflict = errors.New("invitation already exists")
	ErrInvitationInvalid  = errors.New("invitation references unknown ctf or profile")
)

type InvitationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, invitation *models.Invitation) error
	Delete(ctx context.Context, ctfID, profileID int) error
	ListByCTF(ctx context.Context, ctfID int) ([]*models.Invitation, error)
	ListProfileIDsByCTF(ctx context.Context, ctfID int) ([]int, error)
}

type postgresInvitationRepository struct {
	db *sql.DB
}

func NewPostgresInvitationRepository(db *sql.DB) InvitationRepository {
	return &postgresInvitationRepository{db: db}
}

func (r *postgresInvitationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresInvitationRepository) Create(ctx context.Context, exec SQLExecutor, invitation *models.Invitation) error {
	query := `
		INSERT INTO invitation (ctf_id, profile_id)
		VALUES ($1, $2)
		RETURNING created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		invitation.CtfID,
		invitation.ProfileID,
	).Scan(&invitation.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrInvitationConflict
			case "23503":
				return ErrInvitationInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresInvitationRepository) Delete(ctx context.Context, ctfID, profileID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invitation WHERE ctf_id = $1 AND profile_id = $2`, ctfID, profileID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInvitationNotFound)
}

func (r *postgresInvitationRepository) ListByCTF(ctx context.Context, ctfID int) ([]*models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ctf_id, profile_id, created_at FROM invitation WHERE ctf_id = $1`, ctfID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := make([]*models.Invitation, 0)
	for rows.Next() {
		inv := &models.Invitation{}
		if err := rows.Scan(&inv.CtfID, &inv.ProfileID, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *postgresInvitationRepository) ListProfileIDsByCTF(ctx context.Context, ctfID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT profile_id FROM invitation WHERE ctf_id = $1`, ctfID)
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
