package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурсы
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")

	// Бизнес-правила входа в турнир. Порядок проверок фиксирован:
	// существование -> статус -> вместимость -> повторный вход -> слот -> баланс.
	ErrTournamentClosed    = errors.New("tournament is closed for registration")
	ErrTournamentFull      = errors.New("tournament registration is full")
	ErrAlreadyJoined       = errors.New("user is already registered for this tournament")
	ErrSlotTaken           = errors.New("slot is already taken")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Расчёт призов
	ErrTournamentCompleted = errors.New("tournament is already completed")
	ErrPerKillDisabled     = errors.New("per-kill mode is not enabled for this tournament")
	ErrPerKillRequired     = errors.New("tournament uses per-kill settlement, not winner-take-all")
	ErrKillsMissing        = errors.New("kill count missing for one or more participants")
	ErrKillsNegative       = errors.New("kill count cannot be negative")
	ErrKillsUnknownEntry   = errors.New("kill count supplied for unknown participant")

	// Валидация
	ErrValidationFailed          = errors.New("validation failed")
	ErrTitleRequired             = errors.New("tournament title is required")
	ErrGameNameRequired          = errors.New("game name is required")
	ErrMatchTimeRequired         = errors.New("match time is required")
	ErrNegativeAmount            = errors.New("amount must be positive")
	ErrNegativeFee               = errors.New("entry fee cannot be negative")
	ErrNegativePrize             = errors.New("prize amount cannot be negative")
	ErrInvalidCommission         = errors.New("commission rate must be between 0 and 100")
	ErrInvalidStatusTransition   = errors.New("invalid tournament status transition")
	ErrRoomCredentialsRequired   = errors.New("room id and password are required")
	ErrDisplayNameRequired       = errors.New("display name is required")

	// Аутентификация и доступ
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthUsernameTaken      = errors.New("username is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
)
