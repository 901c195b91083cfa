package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clashpoint/arena-system/models"
)

func TestBuildLayoutSolo(t *testing.T) {
	layout, err := BuildLayout(models.ModeSolo, 3)
	require.NoError(t, err)
	require.Len(t, layout, 3)

	for i, slot := range layout {
		assert.Equal(t, i+1, slot.Index)
		assert.Equal(t, i+1, slot.TeamIndex)
		assert.Equal(t, 1, slot.PositionInTeam)
		assert.Nil(t, slot.UserID)
	}
}

func TestBuildLayoutDuo(t *testing.T) {
	layout, err := BuildLayout(models.ModeDuo, 10)
	require.NoError(t, err)
	require.Len(t, layout, 10)

	// Слот 1 и 2 — команда 1, слот 9 и 10 — команда 5.
	assert.Equal(t, 1, layout[0].TeamIndex)
	assert.Equal(t, 1, layout[0].PositionInTeam)
	assert.Equal(t, 1, layout[1].TeamIndex)
	assert.Equal(t, 2, layout[1].PositionInTeam)
	assert.Equal(t, 5, layout[8].TeamIndex)
	assert.Equal(t, 1, layout[8].PositionInTeam)
	assert.Equal(t, 5, layout[9].TeamIndex)
	assert.Equal(t, 2, layout[9].PositionInTeam)
}

func TestBuildLayoutSquad(t *testing.T) {
	layout, err := BuildLayout(models.ModeSquad, 12)
	require.NoError(t, err)
	require.Len(t, layout, 12)

	assert.Equal(t, 2, layout[4].TeamIndex)
	assert.Equal(t, 1, layout[4].PositionInTeam)
	assert.Equal(t, 3, layout[11].TeamIndex)
	assert.Equal(t, 4, layout[11].PositionInTeam)
}

func TestBuildLayoutRejectsIndivisibleCapacity(t *testing.T) {
	_, err := BuildLayout(models.ModeSquad, 10)
	assert.ErrorIs(t, err, ErrCapacityNotDivisible)

	_, err = BuildLayout(models.ModeDuo, 7)
	assert.ErrorIs(t, err, ErrCapacityNotDivisible)
}

func TestBuildLayoutRejectsBadConfig(t *testing.T) {
	_, err := BuildLayout(models.TournamentMode("trio"), 6)
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = BuildLayout(models.ModeSolo, 0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = BuildLayout(models.ModeSolo, -5)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestOccupyAndFreeSlots(t *testing.T) {
	layout, err := BuildLayout(models.ModeDuo, 6)
	require.NoError(t, err)

	participants := []*models.Participant{
		{UserID: 10, DisplayName: "SniperWolf", SlotIndex: 2},
		{UserID: 11, DisplayName: "Ghost", SlotIndex: 5},
	}

	occupied := Occupy(layout, participants)
	require.Len(t, occupied, 6)

	require.NotNil(t, occupied[1].UserID)
	assert.Equal(t, 10, *occupied[1].UserID)
	assert.Equal(t, "SniperWolf", occupied[1].DisplayName)
	require.NotNil(t, occupied[4].UserID)
	assert.Equal(t, 11, *occupied[4].UserID)

	// Исходная раскладка не затрагивается.
	assert.Nil(t, layout[1].UserID)

	free := FreeSlots(layout, participants)
	assert.Equal(t, []int{1, 3, 4, 6}, free)
}

func TestFreeSlotsEmptyTournament(t *testing.T) {
	layout, err := BuildLayout(models.ModeSolo, 4)
	require.NoError(t, err)

	free := FreeSlots(layout, nil)
	assert.Equal(t, []int{1, 2, 3, 4}, free)
}

func TestInRange(t *testing.T) {
	assert.NoError(t, InRange(1, 10))
	assert.NoError(t, InRange(10, 10))
	assert.ErrorIs(t, InRange(0, 10), ErrSlotOutOfRange)
	assert.ErrorIs(t, InRange(11, 10), ErrSlotOutOfRange)
}
