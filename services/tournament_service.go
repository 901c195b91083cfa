package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/clashpoint/arena-system/live"
	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/repositories"
	"github.com/clashpoint/arena-system/slots"
	"github.com/clashpoint/arena-system/storage"
	"github.com/google/uuid"
)

type CreateTournamentInput struct {
	Title           string                `json:"title"`
	GameName        string                `json:"game_name"`
	Mode            models.TournamentMode `json:"mode"`
	MatchTime       time.Time             `json:"match_time"`
	EntryFee        float64               `json:"entry_fee"`
	PrizePool       float64               `json:"prize_pool"`
	CommissionRate  float64               `json:"commission_rate"`
	PerKillEnabled  bool                  `json:"per_kill_enabled"`
	PerKillPrize    float64               `json:"per_kill_prize"`
	MaxParticipants int                   `json:"max_participants"`
}

type UpdateRoomInput struct {
	RoomID       string `json:"room_id"`
	RoomPassword string `json:"room_password"`
}

// SlotBoard — раскладка слотов турнира для UI выбора места.
type SlotBoard struct {
	TeamSize  int         `json:"team_size"`
	Slots     []slots.Slot `json:"slots"`
	FreeSlots []int       `json:"free_slots"`
}

type TournamentService interface {
	Create(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	// Get возвращает турнир с производной занятостью; реквизиты комнаты
	// видны только админу и вошедшим игрокам после публикации.
	Get(ctx context.Context, id int, viewerID int, viewerRole models.UserRole) (*models.Tournament, error)
	GetSlotBoard(ctx context.Context, id int) (*SlotBoard, error)
	// PublishRoom сохраняет реквизиты комнаты и переводит турнир в live.
	PublishRoom(ctx context.Context, id int, input UpdateRoomInput) (*models.Tournament, error)
	UploadBanner(ctx context.Context, tournamentID int, contentType string, file io.Reader) (*models.Tournament, error)
	// AutoOpenDueTournaments переводит upcoming-турниры в live по наступлению
	// времени матча. Запускается планировщиком.
	AutoOpenDueTournaments(ctx context.Context) error
}

type tournamentService struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	uploader        storage.FileUploader
	hub             live.Broadcaster
	logger          *slog.Logger
}

func NewTournamentService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	uploader storage.FileUploader,
	hub live.Broadcaster,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		txRunner:        txRunner,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.GameName == "" {
		return nil, ErrGameNameRequired
	}
	if input.MatchTime.IsZero() {
		return nil, ErrMatchTimeRequired
	}
	if input.EntryFee < 0 {
		return nil, ErrNegativeFee
	}
	if input.PrizePool < 0 || input.PerKillPrize < 0 {
		return nil, ErrNegativePrize
	}
	if input.CommissionRate < 0 || input.CommissionRate > 100 {
		return nil, ErrInvalidCommission
	}
	// Ошибки конфигурации слотов ловятся здесь, при создании, и никогда
	// при входе игрока.
	if err := slots.Validate(input.Mode, input.MaxParticipants); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	tournament := &models.Tournament{
		Title:           input.Title,
		GameName:        input.GameName,
		Mode:            input.Mode,
		MatchTime:       input.MatchTime,
		EntryFee:        input.EntryFee,
		PrizePool:       input.PrizePool,
		CommissionRate:  input.CommissionRate,
		PerKillEnabled:  input.PerKillEnabled,
		PerKillPrize:    input.PerKillPrize,
		MaxParticipants: input.MaxParticipants,
		Status:          models.StatusUpcoming,
		CreatedBy:       creatorID,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("mode", string(tournament.Mode)),
		slog.Int("max_participants", tournament.MaxParticipants),
	)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		count, err := s.participantRepo.CountByTournament(ctx, nil, tournaments[i].ID)
		if err != nil {
			return nil, err
		}
		tournaments[i].CurrentParticipants = count
		populateTournamentBannerURL(&tournaments[i], s.uploader)
		hideRoomCredentials(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) Get(ctx context.Context, id int, viewerID int, viewerRole models.UserRole) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	tournament.Participants = participantsToValues(participants)
	tournament.CurrentParticipants = len(participants)
	populateTournamentBannerURL(tournament, s.uploader)

	if viewerRole != models.RoleAdmin && !containsUser(participants, viewerID) {
		hideRoomCredentials(tournament)
	}
	return tournament, nil
}

func containsUser(participants []*models.Participant, userID int) bool {
	for _, p := range participants {
		if p != nil && p.UserID == userID {
			return true
		}
	}
	return false
}

func (s *tournamentService) GetSlotBoard(ctx context.Context, id int) (*SlotBoard, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	layout, err := slots.BuildLayout(tournament.Mode, tournament.MaxParticipants)
	if err != nil {
		// Конфигурация валидировалась при создании, сюда попадать не должно.
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	return &SlotBoard{
		TeamSize:  tournament.Mode.TeamSize(),
		Slots:     slots.Occupy(layout, participants),
		FreeSlots: slots.FreeSlots(layout, participants),
	}, nil
}

func (s *tournamentService) PublishRoom(ctx context.Context, id int, input UpdateRoomInput) (*models.Tournament, error) {
	if input.RoomID == "" || input.RoomPassword == "" {
		return nil, ErrRoomCredentialsRequired
	}

	var tournament *models.Tournament
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if !isValidStatusTransition(t.Status, models.StatusLive) {
			return ErrInvalidStatusTransition
		}
		if err := s.tournamentRepo.UpdateRoom(ctx, exec, id, input.RoomID, input.RoomPassword); err != nil {
			return err
		}
		if t.Status != models.StatusLive {
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusLive); err != nil {
				return err
			}
		}
		t.RoomID = &input.RoomID
		t.RoomPassword = &input.RoomPassword
		t.Status = models.StatusLive
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Сами реквизиты в общий канал не рассылаются: подписчики получают
	// сигнал и перечитывают деталь турнира под своей авторизацией.
	s.hub.BroadcastToRoom(live.TournamentRoomID(id), live.Message{
		Type:   live.EventRoomPublished,
		RoomID: live.TournamentRoomID(id),
		Payload: map[string]interface{}{
			"tournament_id": id,
			"status":        models.StatusLive,
		},
	})
	return tournament, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, tournamentID int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("tournaments/%d/banner_%s%s", tournamentID, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload tournament banner: %w", err)
	}

	oldKey := tournament.BannerKey
	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, &key); err != nil {
		// Запись в БД не удалась — подчищаем свежезалитый объект.
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned banner",
				slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, err
	}
	if oldKey != nil && *oldKey != "" {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous banner",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	tournament.BannerKey = &key
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) AutoOpenDueTournaments(ctx context.Context) error {
	return s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		due, err := s.tournamentRepo.ListDueForOpening(ctx, exec)
		if err != nil {
			return err
		}
		for _, t := range due {
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusLive); err != nil {
				return err
			}
			s.logger.InfoContext(ctx, "tournament auto-opened",
				slog.Int("tournament_id", t.ID),
				slog.Time("match_time", t.MatchTime),
			)
			s.hub.BroadcastToRoom(live.TournamentRoomID(t.ID), live.Message{
				Type:   live.EventStatusChanged,
				RoomID: live.TournamentRoomID(t.ID),
				Payload: map[string]interface{}{
					"tournament_id": t.ID,
					"status":        models.StatusLive,
				},
			})
		}
		return nil
	})
}
