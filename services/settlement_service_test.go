package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/clashpoint/arena-system/live"
	"github.com/clashpoint/arena-system/models"
)

type SettlementServiceTestSuite struct {
	suite.Suite
	ctx context.Context

	txRunner        *fakeTxRunner
	userRepo        *fakeUserRepo
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	transactionRepo *fakeTransactionRepo
	service         SettlementService

	tournament *models.Tournament
}

func (s *SettlementServiceTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.tournament = &models.Tournament{
		ID:              1,
		Title:           "Sunday Showdown",
		GameName:        "Free Fire",
		Mode:            models.ModeSolo,
		PrizePool:       1000,
		MaxParticipants: 4,
		Status:          models.StatusLive,
	}

	s.txRunner = &fakeTxRunner{}
	s.userRepo = newFakeUserRepo(
		&models.User{ID: 10, WalletBalance: 0},
		&models.User{ID: 11, WalletBalance: 100},
		&models.User{ID: 12, WalletBalance: 50},
	)
	s.tournamentRepo = newFakeTournamentRepo(s.tournament)
	s.participantRepo = newFakeParticipantRepo(
		&models.Participant{ID: 1, TournamentID: 1, UserID: 10, DisplayName: "SniperWolf", SlotIndex: 1, Status: models.ParticipantJoined},
		&models.Participant{ID: 2, TournamentID: 1, UserID: 11, DisplayName: "Ghost", SlotIndex: 2, Status: models.ParticipantJoined},
		&models.Participant{ID: 3, TournamentID: 1, UserID: 12, DisplayName: "Blaze", SlotIndex: 3, Status: models.ParticipantJoined},
	)
	s.transactionRepo = &fakeTransactionRepo{}

	s.service = NewSettlementService(
		s.txRunner,
		s.tournamentRepo,
		s.participantRepo,
		s.userRepo,
		s.transactionRepo,
		live.NopBroadcaster{},
	)
}

func (s *SettlementServiceTestSuite) TestSettleWinnerPaysFullPrizePool() {
	err := s.service.SettleWinner(s.ctx, 1, 11)
	s.Require().NoError(err)

	s.InDelta(1100, s.userRepo.balance(11), 0.001)
	entries := s.transactionRepo.byUser(11)
	s.Require().Len(entries, 1)
	s.Equal(models.TransactionCredit, entries[0].Type)
	s.InDelta(1000, entries[0].Amount, 0.001)

	// Остальные без выплат.
	s.Empty(s.transactionRepo.byUser(10))
	s.Empty(s.transactionRepo.byUser(12))

	s.Equal(models.ParticipantWinner, s.participantRepo.byID(2).Status)
	s.Equal(models.ParticipantCompleted, s.participantRepo.byID(1).Status)
	s.Equal(models.ParticipantCompleted, s.participantRepo.byID(3).Status)
	s.False(s.participantRepo.byID(2).SeenByUser)
	s.Equal(models.StatusCompleted, s.tournament.Status)
}

func (s *SettlementServiceTestSuite) TestSettleWinnerZeroPrizePoolSkipsPayout() {
	s.tournament.PrizePool = 0

	err := s.service.SettleWinner(s.ctx, 1, 10)
	s.Require().NoError(err)

	s.Empty(s.transactionRepo.entries)
	s.Equal(models.ParticipantWinner, s.participantRepo.byID(1).Status)
	s.Equal(models.StatusCompleted, s.tournament.Status)
}

func (s *SettlementServiceTestSuite) TestSettleWinnerUnknownUser() {
	err := s.service.SettleWinner(s.ctx, 1, 999)
	s.ErrorIs(err, ErrParticipantNotFound)
	s.Empty(s.transactionRepo.entries)
	s.Equal(models.StatusLive, s.tournament.Status)
}

func (s *SettlementServiceTestSuite) TestSettleWinnerRejectsPerKillTournament() {
	s.tournament.PerKillEnabled = true

	err := s.service.SettleWinner(s.ctx, 1, 10)
	s.ErrorIs(err, ErrPerKillDisabled)
}

func (s *SettlementServiceTestSuite) TestSettleTwiceRejected() {
	s.Require().NoError(s.service.SettleWinner(s.ctx, 1, 10))

	err := s.service.SettleWinner(s.ctx, 1, 11)
	s.ErrorIs(err, ErrTournamentCompleted)

	// Повторный расчёт не трогает ни журнал, ни результаты.
	s.Require().Len(s.transactionRepo.entries, 1)
	s.Equal(models.ParticipantWinner, s.participantRepo.byID(1).Status)
}

func (s *SettlementServiceTestSuite) enablePerKill(prize float64) {
	s.tournament.PerKillEnabled = true
	s.tournament.PerKillPrize = prize
	s.tournament.PrizePool = 0
}

func (s *SettlementServiceTestSuite) TestSettlePerKillPaysPerKill() {
	s.enablePerKill(50)

	err := s.service.SettlePerKill(s.ctx, 1, map[int]int{1: 3, 2: 5, 3: 5})
	s.Require().NoError(err)

	s.InDelta(150, s.userRepo.balance(10), 0.001)
	s.InDelta(350, s.userRepo.balance(11), 0.001)
	s.InDelta(300, s.userRepo.balance(12), 0.001)

	// Ничья на максимуме — оба лидера победители.
	s.Equal(models.ParticipantCompleted, s.participantRepo.byID(1).Status)
	s.Equal(models.ParticipantWinner, s.participantRepo.byID(2).Status)
	s.Equal(models.ParticipantWinner, s.participantRepo.byID(3).Status)

	s.Equal(3, s.participantRepo.byID(1).Kills)
	s.Equal(5, s.participantRepo.byID(2).Kills)
	s.Equal(models.StatusCompleted, s.tournament.Status)
}

func (s *SettlementServiceTestSuite) TestSettlePerKillAllZeroKills() {
	s.enablePerKill(50)

	err := s.service.SettlePerKill(s.ctx, 1, map[int]int{1: 0, 2: 0, 3: 0})
	s.Require().NoError(err)

	// Ничья на нуле — победителя нет, выплат нет.
	s.Empty(s.transactionRepo.entries)
	for id := 1; id <= 3; id++ {
		s.Equal(models.ParticipantCompleted, s.participantRepo.byID(id).Status)
	}
	s.Equal(models.StatusCompleted, s.tournament.Status)
}

func (s *SettlementServiceTestSuite) TestSettlePerKillRequiresPerKillMode() {
	err := s.service.SettlePerKill(s.ctx, 1, map[int]int{1: 1, 2: 2, 3: 3})
	s.ErrorIs(err, ErrPerKillRequired)
}

func (s *SettlementServiceTestSuite) TestSettlePerKillMissingParticipant() {
	s.enablePerKill(50)

	err := s.service.SettlePerKill(s.ctx, 1, map[int]int{1: 3, 2: 5})
	s.ErrorIs(err, ErrKillsMissing)

	// Валидация падает до любых записей.
	s.Empty(s.transactionRepo.entries)
	s.Equal(models.StatusLive, s.tournament.Status)
	s.Equal(models.ParticipantJoined, s.participantRepo.byID(1).Status)
}

func (s *SettlementServiceTestSuite) TestSettlePerKillUnknownParticipant() {
	s.enablePerKill(50)

	err := s.service.SettlePerKill(s.ctx, 1, map[int]int{1: 3, 2: 5, 3: 5, 99: 1})
	s.ErrorIs(err, ErrKillsUnknownEntry)
	s.Empty(s.transactionRepo.entries)
}

func (s *SettlementServiceTestSuite) TestSettlePerKillNegativeKills() {
	s.enablePerKill(50)

	err := s.service.SettlePerKill(s.ctx, 1, map[int]int{1: 3, 2: -1, 3: 5})
	s.ErrorIs(err, ErrKillsNegative)
	s.Empty(s.transactionRepo.entries)
}

func TestSettlementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SettlementServiceTestSuite))
}
