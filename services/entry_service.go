package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clashpoint/arena-system/live"
	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/repositories"
	"github.com/clashpoint/arena-system/slots"
	"github.com/google/uuid"
)

// EntryService — атомарная операция входа в турнир. Единственное место,
// где деньги списываются с игрока.
type EntryService interface {
	JoinTournament(ctx context.Context, input JoinTournamentInput) (*models.Participant, error)
}

type JoinTournamentInput struct {
	UserID       int    `json:"-"`
	TournamentID int    `json:"-"`
	SlotIndex    int    `json:"slot_index"`
	DisplayName  string `json:"display_name"`
}

type entryService struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	transactionRepo repositories.TransactionRepository
	hub             live.Broadcaster
}

func NewEntryService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	transactionRepo repositories.TransactionRepository,
	hub live.Broadcaster,
) EntryService {
	return &entryService{
		txRunner:        txRunner,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		hub:             hub,
	}
}

// JoinTournament выполняет все проверки и записи одной транзакцией.
// Проверки идут в фиксированном порядке под блокировкой строки турнира,
// любая нарушенная возвращает типизированную ошибку без частичных записей.
func (s *entryService) JoinTournament(ctx context.Context, input JoinTournamentInput) (*models.Participant, error) {
	if input.DisplayName == "" {
		return nil, ErrDisplayNameRequired
	}

	var participant *models.Participant

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// 1. Турнир существует. FOR UPDATE сериализует конкурирующие входы.
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, input.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		// 2. Регистрация открыта только до начала матча.
		if tournament.Status != models.StatusUpcoming {
			return ErrTournamentClosed
		}

		// 3. Вместимость. Счётчик всегда производный от таблицы слотов.
		occupied, err := s.participantRepo.CountByTournament(ctx, exec, input.TournamentID)
		if err != nil {
			return err
		}
		if occupied >= tournament.MaxParticipants {
			return ErrTournamentFull
		}

		// 4. Повторный вход запрещён.
		_, err = s.participantRepo.FindByUserAndTournament(ctx, exec, input.UserID, input.TournamentID)
		if err == nil {
			return ErrAlreadyJoined
		}
		if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}

		// 5. Выбранный слот существует и всё ещё свободен. Проверка выбора
		// в UI ничего не гарантирует — решает только состояние на коммите.
		if err := slots.InRange(input.SlotIndex, tournament.MaxParticipants); err != nil {
			return fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		taken, err := s.participantRepo.SlotTaken(ctx, exec, input.TournamentID, input.SlotIndex)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		// 6. Хватает ли средств.
		user, err := s.userRepo.GetByIDForUpdate(ctx, exec, input.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.WalletBalance < tournament.EntryFee {
			return ErrInsufficientBalance
		}

		// Все предусловия выполнены — записи.
		if tournament.EntryFee > 0 {
			if err := s.userRepo.AdjustBalance(ctx, exec, input.UserID, -tournament.EntryFee); err != nil {
				if errors.Is(err, repositories.ErrInsufficientFunds) {
					return ErrInsufficientBalance
				}
				return err
			}
			entry := &models.Transaction{
				UserID:      input.UserID,
				Amount:      tournament.EntryFee,
				Type:        models.TransactionDebit,
				Description: fmt.Sprintf("Entry fee for tournament %q (#%d)", tournament.Title, tournament.ID),
				Reference:   uuid.NewString(),
			}
			if err := s.transactionRepo.Create(ctx, exec, entry); err != nil {
				return err
			}
		}

		participant = &models.Participant{
			TournamentID: input.TournamentID,
			UserID:       input.UserID,
			DisplayName:  input.DisplayName,
			SlotIndex:    input.SlotIndex,
			Status:       models.ParticipantJoined,
			SeenByUser:   false,
		}
		if err := s.participantRepo.Create(ctx, exec, participant); err != nil {
			// Уникальные ограничения БД — последний рубеж против гонок.
			switch {
			case errors.Is(err, repositories.ErrParticipantSlotConflict):
				return ErrSlotTaken
			case errors.Is(err, repositories.ErrParticipantConflict):
				return ErrAlreadyJoined
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(live.TournamentRoomID(input.TournamentID), live.Message{
		Type:   live.EventSlotClaimed,
		RoomID: live.TournamentRoomID(input.TournamentID),
		Payload: map[string]interface{}{
			"tournament_id": input.TournamentID,
			"slot_index":    participant.SlotIndex,
			"display_name":  participant.DisplayName,
		},
	})

	return participant, nil
}
