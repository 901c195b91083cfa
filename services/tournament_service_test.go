package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/clashpoint/arena-system/live"
	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/storage"
)

type fakeUploader struct {
	uploaded []string
	deleted  []string
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.uploaded = append(u.uploaded, key)
	return &storage.UploadResult{Key: key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type TournamentServiceTestSuite struct {
	suite.Suite
	ctx context.Context

	txRunner        *fakeTxRunner
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	uploader        *fakeUploader
	service         TournamentService
}

func (s *TournamentServiceTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.txRunner = &fakeTxRunner{}
	s.tournamentRepo = newFakeTournamentRepo()
	s.participantRepo = newFakeParticipantRepo()
	s.uploader = &fakeUploader{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewTournamentService(
		s.txRunner,
		s.tournamentRepo,
		s.participantRepo,
		s.uploader,
		live.NopBroadcaster{},
		logger,
	)
}

func (s *TournamentServiceTestSuite) validInput() CreateTournamentInput {
	return CreateTournamentInput{
		Title:           "Friday Night Scrims",
		GameName:        "BGMI",
		Mode:            models.ModeDuo,
		MatchTime:       time.Now().Add(3 * time.Hour),
		EntryFee:        25,
		PrizePool:       500,
		CommissionRate:  10,
		MaxParticipants: 10,
	}
}

func (s *TournamentServiceTestSuite) TestCreate() {
	tournament, err := s.service.Create(s.ctx, 1, s.validInput())
	s.Require().NoError(err)

	s.Equal(models.StatusUpcoming, tournament.Status)
	s.Equal(1, tournament.CreatedBy)
	s.Equal(10, tournament.MaxParticipants)
}

func (s *TournamentServiceTestSuite) TestCreateValidation() {
	cases := []struct {
		name    string
		mutate  func(*CreateTournamentInput)
		wantErr error
	}{
		{"missing title", func(in *CreateTournamentInput) { in.Title = "" }, ErrTitleRequired},
		{"missing game", func(in *CreateTournamentInput) { in.GameName = "" }, ErrGameNameRequired},
		{"missing match time", func(in *CreateTournamentInput) { in.MatchTime = time.Time{} }, ErrMatchTimeRequired},
		{"negative fee", func(in *CreateTournamentInput) { in.EntryFee = -1 }, ErrNegativeFee},
		{"negative prize", func(in *CreateTournamentInput) { in.PrizePool = -1 }, ErrNegativePrize},
		{"negative per-kill prize", func(in *CreateTournamentInput) { in.PerKillPrize = -1 }, ErrNegativePrize},
		{"commission above 100", func(in *CreateTournamentInput) { in.CommissionRate = 101 }, ErrInvalidCommission},
		{"capacity not divisible", func(in *CreateTournamentInput) { in.MaxParticipants = 7 }, ErrValidationFailed},
		{"unknown mode", func(in *CreateTournamentInput) { in.Mode = "trio" }, ErrValidationFailed},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			input := s.validInput()
			tc.mutate(&input)
			_, err := s.service.Create(s.ctx, 1, input)
			s.ErrorIs(err, tc.wantErr)
		})
	}
}

func (s *TournamentServiceTestSuite) seedTournament(status models.TournamentStatus) *models.Tournament {
	roomID := "ROOM-42"
	roomPassword := "hunter2"
	t := &models.Tournament{
		ID:              1,
		Title:           "Sunday Showdown",
		GameName:        "Free Fire",
		Mode:            models.ModeSolo,
		MaxParticipants: 4,
		Status:          status,
		RoomID:          &roomID,
		RoomPassword:    &roomPassword,
	}
	s.tournamentRepo.tournaments[t.ID] = t
	return t
}

func (s *TournamentServiceTestSuite) TestGetHidesRoomCredentialsFromOutsiders() {
	s.seedTournament(models.StatusLive)

	tournament, err := s.service.Get(s.ctx, 1, 99, models.RolePlayer)
	s.Require().NoError(err)
	s.Nil(tournament.RoomID)
	s.Nil(tournament.RoomPassword)
}

func (s *TournamentServiceTestSuite) TestGetShowsRoomCredentialsToParticipant() {
	s.seedTournament(models.StatusLive)
	s.participantRepo.Create(s.ctx, nil, &models.Participant{
		TournamentID: 1, UserID: 10, DisplayName: "SniperWolf", SlotIndex: 1,
	})

	tournament, err := s.service.Get(s.ctx, 1, 10, models.RolePlayer)
	s.Require().NoError(err)
	s.Require().NotNil(tournament.RoomID)
	s.Equal("ROOM-42", *tournament.RoomID)
	s.Equal(1, tournament.CurrentParticipants)
}

func (s *TournamentServiceTestSuite) TestGetShowsRoomCredentialsToAdmin() {
	s.seedTournament(models.StatusLive)

	tournament, err := s.service.Get(s.ctx, 1, 99, models.RoleAdmin)
	s.Require().NoError(err)
	s.NotNil(tournament.RoomID)
}

func (s *TournamentServiceTestSuite) TestGetSlotBoard() {
	s.seedTournament(models.StatusUpcoming)
	s.participantRepo.Create(s.ctx, nil, &models.Participant{
		TournamentID: 1, UserID: 10, DisplayName: "SniperWolf", SlotIndex: 2,
	})

	board, err := s.service.GetSlotBoard(s.ctx, 1)
	s.Require().NoError(err)

	s.Equal(1, board.TeamSize)
	s.Require().Len(board.Slots, 4)
	s.Require().NotNil(board.Slots[1].UserID)
	s.Equal(10, *board.Slots[1].UserID)
	s.Equal([]int{1, 3, 4}, board.FreeSlots)
}

func (s *TournamentServiceTestSuite) TestPublishRoom() {
	t := s.seedTournament(models.StatusUpcoming)
	t.RoomID = nil
	t.RoomPassword = nil

	updated, err := s.service.PublishRoom(s.ctx, 1, UpdateRoomInput{RoomID: "ROOM-7", RoomPassword: "pass"})
	s.Require().NoError(err)

	s.Equal(models.StatusLive, updated.Status)
	s.Require().NotNil(updated.RoomID)
	s.Equal("ROOM-7", *updated.RoomID)
	s.Equal(models.StatusLive, t.Status)
}

func (s *TournamentServiceTestSuite) TestPublishRoomRequiresCredentials() {
	s.seedTournament(models.StatusUpcoming)

	_, err := s.service.PublishRoom(s.ctx, 1, UpdateRoomInput{RoomID: "", RoomPassword: "pass"})
	s.ErrorIs(err, ErrRoomCredentialsRequired)
}

func (s *TournamentServiceTestSuite) TestPublishRoomRejectsCompletedTournament() {
	s.seedTournament(models.StatusCompleted)

	_, err := s.service.PublishRoom(s.ctx, 1, UpdateRoomInput{RoomID: "ROOM-7", RoomPassword: "pass"})
	s.ErrorIs(err, ErrInvalidStatusTransition)
}

func (s *TournamentServiceTestSuite) TestAutoOpenDueTournaments() {
	t := s.seedTournament(models.StatusUpcoming)
	t.MatchTime = time.Now().Add(-time.Minute)

	err := s.service.AutoOpenDueTournaments(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.StatusLive, t.Status)
}

func TestTournamentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TournamentServiceTestSuite))
}
