package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/clashpoint/arena-system/live"
	"github.com/clashpoint/arena-system/models"
)

type EntryServiceTestSuite struct {
	suite.Suite
	ctx context.Context

	txRunner        *fakeTxRunner
	userRepo        *fakeUserRepo
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	transactionRepo *fakeTransactionRepo
	service         EntryService

	tournament *models.Tournament
	player     *models.User
}

func (s *EntryServiceTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.tournament = &models.Tournament{
		ID:              1,
		Title:           "Friday Night Scrims",
		GameName:        "BGMI",
		Mode:            models.ModeSquad,
		MatchTime:       time.Now().Add(2 * time.Hour),
		EntryFee:        50,
		PrizePool:       1000,
		MaxParticipants: 8,
		Status:          models.StatusUpcoming,
	}
	s.player = &models.User{
		ID:            10,
		Username:      "sniperwolf",
		Role:          models.RolePlayer,
		WalletBalance: 200,
	}

	s.txRunner = &fakeTxRunner{}
	s.userRepo = newFakeUserRepo(s.player)
	s.tournamentRepo = newFakeTournamentRepo(s.tournament)
	s.participantRepo = newFakeParticipantRepo()
	s.transactionRepo = &fakeTransactionRepo{}

	s.service = NewEntryService(
		s.txRunner,
		s.tournamentRepo,
		s.participantRepo,
		s.userRepo,
		s.transactionRepo,
		live.NopBroadcaster{},
	)
}

func (s *EntryServiceTestSuite) join(userID, slotIndex int, displayName string) (*models.Participant, error) {
	return s.service.JoinTournament(s.ctx, JoinTournamentInput{
		UserID:       userID,
		TournamentID: s.tournament.ID,
		SlotIndex:    slotIndex,
		DisplayName:  displayName,
	})
}

func (s *EntryServiceTestSuite) TestJoinSuccess() {
	participant, err := s.join(10, 3, "SniperWolf")
	s.Require().NoError(err)
	s.Require().NotNil(participant)

	s.Equal(3, participant.SlotIndex)
	s.Equal(models.ParticipantJoined, participant.Status)
	s.False(participant.SeenByUser)

	// Взнос списан, дебет записан в журнал.
	s.InDelta(150, s.userRepo.balance(10), 0.001)
	entries := s.transactionRepo.byUser(10)
	s.Require().Len(entries, 1)
	s.Equal(models.TransactionDebit, entries[0].Type)
	s.InDelta(50, entries[0].Amount, 0.001)
	s.NotEmpty(entries[0].Reference)
}

func (s *EntryServiceTestSuite) TestJoinFreeTournamentSkipsWalletWrites() {
	s.tournament.EntryFee = 0

	_, err := s.join(10, 1, "SniperWolf")
	s.Require().NoError(err)

	s.InDelta(200, s.userRepo.balance(10), 0.001)
	s.Empty(s.transactionRepo.byUser(10))
}

func (s *EntryServiceTestSuite) TestJoinRequiresDisplayName() {
	_, err := s.join(10, 1, "")
	s.ErrorIs(err, ErrDisplayNameRequired)
	s.Zero(s.txRunner.calls)
}

func (s *EntryServiceTestSuite) TestJoinTournamentNotFound() {
	_, err := s.service.JoinTournament(s.ctx, JoinTournamentInput{
		UserID:       10,
		TournamentID: 999,
		SlotIndex:    1,
		DisplayName:  "SniperWolf",
	})
	s.ErrorIs(err, ErrTournamentNotFound)
}

func (s *EntryServiceTestSuite) TestJoinClosedTournament() {
	s.tournament.Status = models.StatusLive

	_, err := s.join(10, 1, "SniperWolf")
	s.ErrorIs(err, ErrTournamentClosed)
	s.assertNoWrites()
}

func (s *EntryServiceTestSuite) TestJoinFullTournament() {
	s.tournament.MaxParticipants = 2
	for i := 0; i < 2; i++ {
		s.userRepo.Create(s.ctx, &models.User{ID: 20 + i, WalletBalance: 500})
		_, err := s.join(20+i, i+1, "Player")
		s.Require().NoError(err)
	}

	_, err := s.join(10, 2, "SniperWolf")
	s.ErrorIs(err, ErrTournamentFull)
}

func (s *EntryServiceTestSuite) TestJoinTwiceRejected() {
	_, err := s.join(10, 1, "SniperWolf")
	s.Require().NoError(err)

	_, err = s.join(10, 2, "SniperWolf")
	s.ErrorIs(err, ErrAlreadyJoined)
	s.InDelta(150, s.userRepo.balance(10), 0.001)
}

func (s *EntryServiceTestSuite) TestJoinSlotOutOfRange() {
	_, err := s.join(10, 9, "SniperWolf")
	s.ErrorIs(err, ErrValidationFailed)

	_, err = s.join(10, 0, "SniperWolf")
	s.ErrorIs(err, ErrValidationFailed)
}

func (s *EntryServiceTestSuite) TestJoinSlotTaken() {
	s.userRepo.Create(s.ctx, &models.User{ID: 20, WalletBalance: 500})
	_, err := s.join(20, 4, "Ghost")
	s.Require().NoError(err)

	_, err = s.join(10, 4, "SniperWolf")
	s.ErrorIs(err, ErrSlotTaken)
	s.InDelta(200, s.userRepo.balance(10), 0.001)
}

func (s *EntryServiceTestSuite) TestJoinInsufficientBalance() {
	s.player.WalletBalance = 49.99

	_, err := s.join(10, 1, "SniperWolf")
	s.ErrorIs(err, ErrInsufficientBalance)
	s.assertNoWrites()
}

func (s *EntryServiceTestSuite) assertNoWrites() {
	count, err := s.participantRepo.CountByTournament(s.ctx, nil, s.tournament.ID)
	s.Require().NoError(err)
	s.Zero(count)
	s.Empty(s.transactionRepo.entries)
}

func TestEntryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EntryServiceTestSuite))
}
