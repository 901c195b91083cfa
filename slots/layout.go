// arena-system/slots/layout.go
package slots

import (
	"errors"
	"fmt"
	"sort"

	"github.com/clashpoint/arena-system/models"
)

var (
	ErrInvalidMode        = errors.New("unknown tournament mode")
	ErrInvalidCapacity    = errors.New("max participants must be positive")
	ErrCapacityNotDivisible = errors.New("max participants must be divisible by team size")
	ErrSlotOutOfRange     = errors.New("slot index is out of range")
)

// Slot — одна адресуемая позиция в комнате. Нумерация слотов 1..max,
// команда для слота i — ceil(i / teamSize), позиция внутри команды —
// i - (team-1)*teamSize. На эту нумерацию опираются отображение и выплаты.
type Slot struct {
	Index          int  `json:"index"`
	TeamIndex      int  `json:"team_index"`
	PositionInTeam int  `json:"position_in_team"`
	UserID         *int `json:"user_id,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
}

// BuildLayout строит детерминированную раскладку слотов для конфигурации
// (режим, вместимость). Ошибки конфигурации ловятся здесь — при создании
// турнира, никогда при входе игрока.
func BuildLayout(mode models.TournamentMode, maxParticipants int) ([]Slot, error) {
	teamSize := mode.TeamSize()
	if teamSize == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if maxParticipants <= 0 {
		return nil, ErrInvalidCapacity
	}
	if maxParticipants%teamSize != 0 {
		return nil, fmt.Errorf("%w: %d %% %d != 0", ErrCapacityNotDivisible, maxParticipants, teamSize)
	}

	layout := make([]Slot, 0, maxParticipants)
	for i := 1; i <= maxParticipants; i++ {
		teamIndex := (i + teamSize - 1) / teamSize
		layout = append(layout, Slot{
			Index:          i,
			TeamIndex:      teamIndex,
			PositionInTeam: i - (teamIndex-1)*teamSize,
		})
	}
	return layout, nil
}

// Validate проверяет конфигурацию без построения раскладки.
func Validate(mode models.TournamentMode, maxParticipants int) error {
	_, err := BuildLayout(mode, maxParticipants)
	return err
}

// Occupy раскладывает участников по слотам раскладки. Участник с номером
// слота вне диапазона игнорируется: такие записи не могут существовать при
// действующих ограничениях БД.
func Occupy(layout []Slot, participants []*models.Participant) []Slot {
	occupied := make([]Slot, len(layout))
	copy(occupied, layout)
	for _, p := range participants {
		if p == nil || p.SlotIndex < 1 || p.SlotIndex > len(occupied) {
			continue
		}
		userID := p.UserID
		occupied[p.SlotIndex-1].UserID = &userID
		occupied[p.SlotIndex-1].DisplayName = p.DisplayName
	}
	return occupied
}

// FreeSlots возвращает отсортированные индексы свободных слотов.
// Слот свободен тогда и только тогда, когда ни один участник на него не ссылается.
func FreeSlots(layout []Slot, participants []*models.Participant) []int {
	taken := make(map[int]bool, len(participants))
	for _, p := range participants {
		if p != nil {
			taken[p.SlotIndex] = true
		}
	}
	free := make([]int, 0, len(layout))
	for _, s := range layout {
		if !taken[s.Index] {
			free = append(free, s.Index)
		}
	}
	sort.Ints(free)
	return free
}

// InRange проверяет, что запрошенный слот существует в данной конфигурации.
func InRange(slotIndex, maxParticipants int) error {
	if slotIndex < 1 || slotIndex > maxParticipants {
		return fmt.Errorf("%w: %d (1..%d)", ErrSlotOutOfRange, slotIndex, maxParticipants)
	}
	return nil
}
