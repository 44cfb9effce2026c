package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
	"github.com/cybermouflons/CTFNote/storage"
	"github.com/cybermouflons/CTFNote/syncer"
)

type CTFService struct {
	ctfs       repositories.CTFRepository
	sync       *syncer.Syncer
	dispatcher *events.Dispatcher
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewCTFService(
	ctfRepo repositories.CTFRepository,
	sync *syncer.Syncer,
	dispatcher *events.Dispatcher,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *CTFService {
	return &CTFService{
		ctfs:       ctfRepo,
		sync:       sync,
		dispatcher: dispatcher,
		uploader:   uploader,
		logger:     logger,
	}
}

func validateCTF(ctf *models.CTF) error {
	if ctf.Title == "" {
		return ErrCTFTitleRequired
	}
	if !ctf.EndTime.After(ctf.StartTime) {
		return ErrCTFInvalidDateRange
	}
	return nil
}

// CreateCTF создаёт соревнование и сразу разворачивает его пространство
// в чате. Создание пространства не фатально: при сбое соревнование
// остаётся, а пространство будет дорезолвлено при первом обращении.
func (s *CTFService) CreateCTF(ctx context.Context, ctf *models.CTF) error {
	if err := validateCTF(ctf); err != nil {
		return err
	}
	if err := s.ctfs.Create(ctx, ctf); err != nil {
		if errors.Is(err, repositories.ErrCTFTitleConflict) {
			return ErrCTFTitleConflict
		}
		return fmt.Errorf("failed to create ctf: %w", err)
	}

	if _, err := s.sync.CreateSpaceForCTF(ctx, ctf); err != nil && !errors.Is(err, syncer.ErrDisabled) {
		s.logger.Error("failed to create chat space for new ctf",
			slog.Int("ctf_id", ctf.ID), slog.Any("error", err))
	}
	return nil
}

func (s *CTFService) GetCTFByID(ctx context.Context, id int) (*models.CTF, error) {
	ctf, err := s.ctfs.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return nil, ErrCTFNotFound
		}
		return nil, err
	}
	s.fillLogoURL(ctf)
	return ctf, nil
}

func (s *CTFService) ListCTFs(ctx context.Context) ([]*models.CTF, error) {
	ctfs, err := s.ctfs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, ctf := range ctfs {
		s.fillLogoURL(ctf)
	}
	return ctfs, nil
}

func (s *CTFService) ListIncomingCTFs(ctx context.Context) ([]*models.CTF, error) {
	ctfs, err := s.ctfs.ListIncoming(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	for _, ctf := range ctfs {
		s.fillLogoURL(ctf)
	}
	return ctfs, nil
}

// UpdateCTF применяет изменения к соревнованию. Переименование
// пространства происходит в before-фазе, пока старый заголовок ещё
// разрешим по имени.
func (s *CTFService) UpdateCTF(ctx context.Context, id int, updated *models.CTF) error {
	if err := validateCTF(updated); err != nil {
		return err
	}
	current, err := s.ctfs.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return ErrCTFNotFound
		}
		return err
	}

	input := &events.CTFUpdateInput{CtfID: id}
	if updated.Title != current.Title {
		input.NewTitle = &updated.Title
	}
	mutation := &events.Mutation{Event: events.CTFUpdate, Input: input}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}

	updated.ID = id
	updated.LogoKey = current.LogoKey
	if err := s.ctfs.Update(ctx, updated); err != nil {
		if errors.Is(err, repositories.ErrCTFTitleConflict) {
			return ErrCTFTitleConflict
		}
		return err
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

// DeleteCTF удаляет соревнование. Пространство сносится в before-фазе,
// пока соревнование ещё читается из БД.
func (s *CTFService) DeleteCTF(ctx context.Context, id int) error {
	ctf, err := s.ctfs.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return ErrCTFNotFound
		}
		return err
	}

	mutation := &events.Mutation{
		Event: events.CTFDelete,
		Input: &events.CTFDeleteInput{CtfID: id, Title: ctf.Title},
	}
	if err := s.dispatcher.DispatchBefore(ctx, mutation); err != nil {
		return err
	}
	if err := s.ctfs.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return ErrCTFNotFound
		}
		return err
	}
	s.dispatcher.DispatchAfter(ctx, mutation)
	return nil
}

// UploadLogo загружает логотип соревнования в объектное хранилище и
// привязывает ключ к записи. Старый логотип удаляется best effort.
func (s *CTFService) UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (string, error) {
	if s.uploader == nil {
		return "", ErrForbiddenOperation
	}
	ctf, err := s.ctfs.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return "", ErrCTFNotFound
		}
		return "", err
	}

	key := fmt.Sprintf("logos/ctf-%d/%s", id, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload ctf logo: %w", err)
	}
	if err := s.ctfs.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return "", err
	}

	if ctf.LogoKey != nil && *ctf.LogoKey != "" {
		if err := s.uploader.Delete(ctx, *ctf.LogoKey); err != nil {
			s.logger.Warn("failed to delete previous ctf logo",
				slog.Int("ctf_id", id), slog.Any("error", err))
		}
	}
	return result.Location, nil
}

func (s *CTFService) fillLogoURL(ctf *models.CTF) {
	if s.uploader == nil || ctf.LogoKey == nil || *ctf.LogoKey == "" {
		return
	}
	url := s.uploader.GetPublicURL(*ctf.LogoKey)
	ctf.LogoURL = &url
}

func (s *CTFService) GetSecrets(ctx context.Context, ctfID int) (*models.CTFSecret, error) {
	secret, err := s.ctfs.GetSecrets(ctx, ctfID)
	if err != nil {
		if errors.Is(err, repositories.ErrSecretsNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return secret, nil
}

func (s *CTFService) UpsertSecrets(ctx context.Context, secret *models.CTFSecret) error {
	if _, err := s.ctfs.GetByID(ctx, nil, secret.CtfID); err != nil {
		if errors.Is(err, repositories.ErrCTFNotFound) {
			return ErrCTFNotFound
		}
		return err
	}
	return s.ctfs.UpsertSecrets(ctx, secret)
}
