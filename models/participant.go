package models

import "time"

// ParticipantStatus — статус регистрации. Winner/Completed выставляются
// только расчётом призов, до этого участник всегда joined.
type ParticipantStatus string

const (
	ParticipantJoined    ParticipantStatus = "joined"
	ParticipantWinner    ParticipantStatus = "winner"
	ParticipantCompleted ParticipantStatus = "completed"
)

type Participant struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	UserID       int               `json:"user_id" db:"user_id"`
	DisplayName  string            `json:"display_name" db:"display_name"`
	SlotIndex    int               `json:"slot_index" db:"slot_index"`
	Status       ParticipantStatus `json:"status" db:"status"`
	Kills        int               `json:"kills" db:"kills"`
	SeenByUser   bool              `json:"seen_by_user" db:"seen_by_user"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// TeamIndex выводится из номера слота: слоты 1..max нумеруются подряд,
// команда для слота i — ceil(i / teamSize).
func (p *Participant) TeamIndex(teamSize int) int {
	if teamSize <= 0 || p.SlotIndex <= 0 {
		return 0
	}
	return (p.SlotIndex + teamSize - 1) / teamSize
}
