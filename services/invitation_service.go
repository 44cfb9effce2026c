package services

import (
	"context"
	"errors"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
)

type InvitationService struct {
	invitations repositories.InvitationRepository
	profiles    repositories.ProfileRepository
	dispatcher  *events.Dispatcher
}

func NewInvitationService(
	invitationRepo repositories.InvitationRepository,
	profileRepo repositories.ProfileRepository,
	dispatcher *events.Dispatcher,
) *InvitationService {
	return &InvitationService{
		invitations: invitationRepo,
		profiles:    profileRepo,
		dispatcher:  dispatcher,
	}
}

// Invite приглашает профиль в соревнование. Повторное приглашение не
// ошибка: запись уже есть, событие не диспетчеризуется.
func (s *InvitationService) Invite(ctx context.Context, ctfID, profileID int, actorID int) error {
	if _, err := s.profiles.GetByID(ctx, nil, profileID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	// Доступ, уже вытекающий из обычного членства, не дублируется
	// приглашением: иначе Uninvite снял бы роль, положенную участнику
	// и без приглашения.
	accessible, err := s.profiles.ListAccessibleCTFs(ctx, nil, profileID)
	if err != nil {
		return err
	}
	for _, ctf := range accessible {
		if ctf.ID == ctfID {
			return nil
		}
	}

	invitation := &models.Invitation{CtfID: ctfID, ProfileID: profileID}
	if err := s.invitations.Create(ctx, nil, invitation); err != nil {
		if errors.Is(err, repositories.ErrInvitationConflict) {
			return nil
		}
		if errors.Is(err, repositories.ErrInvitationInvalid) {
			return ErrCTFNotFound
		}
		return err
	}

	s.dispatcher.DispatchAfter(ctx, &events.Mutation{
		Event:   events.InvitationCreate,
		Input:   &events.InvitationInput{CtfID: ctfID, ProfileID: profileID},
		ActorID: actorID,
	})
	return nil
}

func (s *InvitationService) Uninvite(ctx context.Context, ctfID, profileID int, actorID int) error {
	if err := s.invitations.Delete(ctx, ctfID, profileID); err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return ErrInvitationNotFound
		}
		return err
	}

	s.dispatcher.DispatchAfter(ctx, &events.Mutation{
		Event:   events.InvitationDelete,
		Input:   &events.InvitationInput{CtfID: ctfID, ProfileID: profileID},
		ActorID: actorID,
	})
	return nil
}

func (s *InvitationService) ListByCTF(ctx context.Context, ctfID int) ([]*models.Invitation, error) {
	return s.invitations.ListByCTF(ctx, ctfID)
}
