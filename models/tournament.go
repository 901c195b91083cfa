package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
)

// TournamentMode определяет размер команды в комнате.
type TournamentMode string

const (
	ModeSolo  TournamentMode = "solo"
	ModeDuo   TournamentMode = "duo"
	ModeSquad TournamentMode = "squad"
)

// TeamSize возвращает количество слотов в одной команде для данного режима.
// Неизвестный режим даёт 0, чтобы валидация падала явно.
func (m TournamentMode) TeamSize() int {
	switch m {
	case ModeSolo:
		return 1
	case ModeDuo:
		return 2
	case ModeSquad:
		return 4
	default:
		return 0
	}
}

// Tournament представляет одну запланированную комнату (матч).
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Title           string           `json:"title" db:"title"`
	GameName        string           `json:"game_name" db:"game_name"`
	Mode            TournamentMode   `json:"mode" db:"mode"`
	MatchTime       time.Time        `json:"match_time" db:"match_time"`
	EntryFee        float64          `json:"entry_fee" db:"entry_fee"`
	PrizePool       float64          `json:"prize_pool" db:"prize_pool"`
	CommissionRate  float64          `json:"commission_rate" db:"commission_rate"`
	PerKillEnabled  bool             `json:"per_kill_enabled" db:"per_kill_enabled"`
	PerKillPrize    float64          `json:"per_kill_prize" db:"per_kill_prize"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	Status          TournamentStatus `json:"status" db:"status"`
	RoomID          *string          `json:"room_id,omitempty" db:"room_id"`
	RoomPassword    *string          `json:"room_password,omitempty" db:"room_password"`
	CreatedBy       int              `json:"created_by" db:"created_by"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	BannerKey       *string          `json:"-" db:"banner_key"`
	BannerURL       *string          `json:"banner_url,omitempty" db:"-"`

	// Производные поля, не мапятся напрямую.
	// CurrentParticipants всегда считается по таблице participants.
	CurrentParticipants int           `json:"current_participants" db:"-"`
	Participants        []Participant `json:"participants,omitempty" db:"-"`
}

// IsFull отражает занятость по производному счётчику, ставится сервисом.
func (t *Tournament) IsFull() bool {
	return t.CurrentParticipants >= t.MaxParticipants
}
