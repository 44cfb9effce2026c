package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrCTFTitleRequired      = errors.New("ctf title is required")
	ErrCTFInvalidDateRange   = errors.New("ctf end time must be after start time")
	ErrTaskTitleRequired     = errors.New("task title is required")
	ErrTaskAlreadySolved     = errors.New("task already has a flag")
	ErrUnknownImportFormat   = errors.New("unknown task import format")
	ErrImportNotRecognized   = errors.New("could not recognize task import payload")
	ErrInvalidProfileRole    = errors.New("invalid profile role")
	ErrRegistrationTokenUsed = errors.New("registration token is invalid or expired")

	// Ошибки конфликтов
	ErrCTFTitleConflict     = errors.New("ctf title already exists")
	ErrTaskTitleConflict    = errors.New("task title already exists in this ctf")
	ErrUsernameConflict     = errors.New("username is already in use")
	ErrInvitationConflict   = errors.New("profile is already invited to this ctf")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrCTFNotFound        = errors.New("ctf not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvitationNotFound = errors.New("invitation not found")
)
