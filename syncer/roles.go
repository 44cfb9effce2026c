package syncer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
)

// GrantRole выдаёт участнику роль соревнования. Непривязанные к Discord
// профили пропускаются молча.
func (s *Syncer) GrantRole(ctx context.Context, profile *models.Profile, ctf *models.CTF) error {
	if !s.Enabled() || !profile.Linked() {
		return nil
	}
	space, err := s.SpaceForCTF(ctx, ctf)
	if err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return nil
		}
		return err
	}
	return s.client.AddMemberRole(ctx, *profile.DiscordID, space.Role.ID)
}

// RevokeRole снимает с участника роль соревнования.
func (s *Syncer) RevokeRole(ctx context.Context, profile *models.Profile, ctf *models.CTF) error {
	if !s.Enabled() || !profile.Linked() {
		return nil
	}
	space, err := s.SpaceForCTF(ctx, ctf)
	if err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return nil
		}
		return err
	}
	return s.client.RemoveMemberRole(ctx, *profile.DiscordID, space.Role.ID)
}

// ResyncRoles пересчитывает членство участника с нуля: сперва revoke по
// всем соревнованиям с активным пространством, затем grant по предикату
// доступа. Порядок revoke-до-grant обязателен: при одновременном
// переносе доступа между соревнованиями частичное выполнение не должно
// оставить устаревшую роль.
func (s *Syncer) ResyncRoles(ctx context.Context, exec repositories.SQLExecutor, profile *models.Profile) error {
	if !s.Enabled() || !profile.Linked() {
		return nil
	}

	active, err := s.activeSpaceCTFs(ctx)
	if err != nil {
		return err
	}
	for _, ctf := range active {
		if err := s.RevokeRole(ctx, profile, ctf); err != nil {
			s.logger.Error("failed to revoke ctf role during resync",
				slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
		}
	}

	accessible, err := s.profiles.ListAccessibleCTFs(ctx, exec, profile.ID)
	if err != nil {
		return err
	}
	for _, ctf := range accessible {
		if err := s.GrantRole(ctx, profile, ctf); err != nil {
			s.logger.Error("failed to grant ctf role during resync",
				slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
		}
	}
	return nil
}

// RevokeAllRoles снимает роли всех соревнований (сброс привязки Discord).
func (s *Syncer) RevokeAllRoles(ctx context.Context, profile *models.Profile) error {
	if !s.Enabled() || !profile.Linked() {
		return nil
	}
	active, err := s.activeSpaceCTFs(ctx)
	if err != nil {
		return err
	}
	for _, ctf := range active {
		if err := s.RevokeRole(ctx, profile, ctf); err != nil {
			s.logger.Error("failed to revoke ctf role",
				slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
		}
	}
	return nil
}

// activeSpaceCTFs — соревнования, у которых в гильдии есть пространство.
func (s *Syncer) activeSpaceCTFs(ctx context.Context) ([]*models.CTF, error) {
	all, err := s.ctfs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*models.CTF, 0, len(all))
	for _, ctf := range all {
		if _, err := s.SpaceForCTF(ctx, ctf); err == nil {
			active = append(active, ctf)
		}
	}
	return active, nil
}
