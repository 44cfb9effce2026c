package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
	"github.com/cybermouflons/CTFNote/utils"
)

const minPasswordLength = 8

type ProfileService struct {
	profiles   repositories.ProfileRepository
	dispatcher *events.Dispatcher
}

func NewProfileService(profileRepo repositories.ProfileRepository, dispatcher *events.Dispatcher) *ProfileService {
	return &ProfileService{profiles: profileRepo, dispatcher: dispatcher}
}

func (s *ProfileService) Login(ctx context.Context, username, password string) (*models.Profile, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	profile, err := s.profiles.GetByUsername(ctx, nil, username)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, profile.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

// RegisterWithToken регистрирует участника по одноразовому токену с
// предустановленной ролью. Токен сжигается атомарно.
func (s *ProfileService) RegisterWithToken(ctx context.Context, token, username, password string) (*models.Profile, error) {
	if username == "" {
		return nil, ErrValidationFailed
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	consumed, err := s.profiles.ConsumeRegistrationToken(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationTokenInvalid) {
			return nil, ErrRegistrationTokenUsed
		}
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	profile := &models.Profile{
		Username:     username,
		PasswordHash: hash,
		Role:         consumed.Role,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repositories.ErrProfileUsernameConflict) {
			return nil, ErrUsernameConflict
		}
		return nil, err
	}

	s.dispatcher.DispatchAfter(ctx, &events.Mutation{
		Event:   events.RegisterWithToken,
		Input:   &events.RegisterInput{Username: username},
		ActorID: profile.ID,
	})
	return profile, nil
}

func (s *ProfileService) CreateRegistrationToken(ctx context.Context, role models.ProfileRole, ttl time.Duration) (*models.RegistrationToken, error) {
	if !role.Valid() {
		return nil, ErrInvalidProfileRole
	}
	token := &models.RegistrationToken{
		Token:     uuid.NewString(),
		Role:      role,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.profiles.CreateRegistrationToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *ProfileService) GetProfileByID(ctx context.Context, id int) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// UpdateRole меняет роль профиля; роли в чате пересводятся в after-фазе.
func (s *ProfileService) UpdateRole(ctx context.Context, profileID int, role models.ProfileRole, actorID int) error {
	if !role.Valid() {
		return ErrInvalidProfileRole
	}
	if err := s.profiles.UpdateRole(ctx, profileID, role); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	s.dispatcher.DispatchAfter(ctx, &events.Mutation{
		Event:   events.ProfileRoleUpdate,
		Input:   &events.ProfileRoleUpdateInput{ProfileID: profileID},
		ActorID: actorID,
	})
	return nil
}

// LinkDiscord привязывает аккаунт чата; доступные роли выдаются тем же
// путём, что и при смене роли.
func (s *ProfileService) LinkDiscord(ctx context.Context, profileID int, discordID string) error {
	if discordID == "" {
		return ErrValidationFailed
	}
	if err := s.profiles.SetDiscordID(ctx, profileID, &discordID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	s.dispatcher.DispatchAfter(ctx, &events.Mutation{
		Event: events.ProfileRoleUpdate,
		Input: &events.ProfileRoleUpdateInput{ProfileID: profileID},
	})
	return nil
}

// ResetDiscordID отвязывает аккаунт чата. Роли снимаются в before-фазе,
// пока привязка ещё читается из БД.
func (s *ProfileService) ResetDiscordID(ctx context.Context, profileID int) error {
	mutation := &events.Mutation{
		Event: events.DiscordIDReset,
		Input: &events.DiscordIDResetInput{ProfileID: profileID},
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}
	if err := s.profiles.SetDiscordID(ctx, profileID, nil); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return err
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

func (s *ProfileService) ListAccessibleCTFs(ctx context.Context, profileID int) ([]*models.CTF, error) {
	return s.profiles.ListAccessibleCTFs(ctx, nil, profileID)
}
