package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clashpoint/arena-system/live"
	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/repositories"
	"github.com/google/uuid"
)

// SettlementService — атомарное закрытие турнира с выплатой призов.
// Вызывается админом ровно один раз на турнир; повторный расчёт блокируется
// статусом completed под блокировкой строки турнира.
type SettlementService interface {
	SettleWinner(ctx context.Context, tournamentID, winnerUserID int) error
	SettlePerKill(ctx context.Context, tournamentID int, killsByParticipant map[int]int) error
}

type settlementService struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	transactionRepo repositories.TransactionRepository
	hub             live.Broadcaster
}

func NewSettlementService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	transactionRepo repositories.TransactionRepository,
	hub live.Broadcaster,
) SettlementService {
	return &settlementService{
		txRunner:        txRunner,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		hub:             hub,
	}
}

// SettleWinner — режим winner-take-all: победитель забирает весь призовой фонд.
func (s *settlementService) SettleWinner(ctx context.Context, tournamentID, winnerUserID int) error {
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, participants, err := s.lockForSettlement(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if tournament.PerKillEnabled {
			return ErrPerKillDisabled
		}

		var winner *models.Participant
		for _, p := range participants {
			if p.UserID == winnerUserID {
				winner = p
				break
			}
		}
		if winner == nil {
			return ErrParticipantNotFound
		}

		if tournament.PrizePool > 0 {
			if err := s.payOut(ctx, exec, winner.UserID, tournament.PrizePool,
				fmt.Sprintf("Prize for winning tournament %q (#%d)", tournament.Title, tournament.ID)); err != nil {
				return err
			}
		}

		for _, p := range participants {
			status := models.ParticipantCompleted
			if p.ID == winner.ID {
				status = models.ParticipantWinner
			}
			if err := s.participantRepo.SetResult(ctx, exec, p.ID, status, p.Kills); err != nil {
				return err
			}
		}

		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusCompleted)
	})
	if err != nil {
		return err
	}

	s.broadcastSettled(tournamentID)
	return nil
}

// SettlePerKill — выплата пропорционально киллам; все лидеры по киллам
// (при maxKills > 0) помечаются победителями, ничья при нуле — без победителя.
func (s *settlementService) SettlePerKill(ctx context.Context, tournamentID int, killsByParticipant map[int]int) error {
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, participants, err := s.lockForSettlement(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !tournament.PerKillEnabled {
			return ErrPerKillRequired
		}

		outcomes, err := computePerKillResults(participants, killsByParticipant, tournament.PerKillPrize)
		if err != nil {
			return err
		}

		for _, outcome := range outcomes {
			if outcome.Payout > 0 {
				if err := s.payOut(ctx, exec, outcome.Participant.UserID, outcome.Payout,
					fmt.Sprintf("Per-kill prize (%d kills) in tournament %q (#%d)",
						outcome.Kills, tournament.Title, tournament.ID)); err != nil {
					return err
				}
			}
			if err := s.participantRepo.SetResult(ctx, exec, outcome.Participant.ID, outcome.Status, outcome.Kills); err != nil {
				return err
			}
		}

		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusCompleted)
	})
	if err != nil {
		return err
	}

	s.broadcastSettled(tournamentID)
	return nil
}

// lockForSettlement берёт блокировку турнира, отсекает повторный расчёт и
// возвращает текущий состав участников.
func (s *settlementService) lockForSettlement(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Tournament, []*models.Participant, error) {
	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, ErrTournamentNotFound
		}
		return nil, nil, err
	}
	if tournament.Status == models.StatusCompleted {
		return nil, nil, ErrTournamentCompleted
	}

	participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	return tournament, participants, nil
}

func (s *settlementService) payOut(ctx context.Context, exec repositories.SQLExecutor, userID int, amount float64, description string) error {
	if err := s.userRepo.AdjustBalance(ctx, exec, userID, amount); err != nil {
		return err
	}
	return s.transactionRepo.Create(ctx, exec, &models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TransactionCredit,
		Description: description,
		Reference:   uuid.NewString(),
	})
}

func (s *settlementService) broadcastSettled(tournamentID int) {
	s.hub.BroadcastToRoom(live.TournamentRoomID(tournamentID), live.Message{
		Type:   live.EventTournamentSettled,
		RoomID: live.TournamentRoomID(tournamentID),
		Payload: map[string]interface{}{
			"tournament_id": tournamentID,
			"status":        models.StatusCompleted,
		},
	})
}

type perKillOutcome struct {
	Participant *models.Participant
	Kills       int
	Payout      float64
	Status      models.ParticipantStatus
}

// computePerKillResults — чистая математика расчёта. Валидация падает до
// любых записей: карта киллов должна покрывать всех участников, ровно их,
// и не содержать отрицательных значений.
func computePerKillResults(participants []*models.Participant, kills map[int]int, perKillPrize float64) ([]perKillOutcome, error) {
	known := make(map[int]bool, len(participants))
	for _, p := range participants {
		known[p.ID] = true
		if _, ok := kills[p.ID]; !ok {
			return nil, fmt.Errorf("%w: participant %d", ErrKillsMissing, p.ID)
		}
	}
	for participantID, count := range kills {
		if !known[participantID] {
			return nil, fmt.Errorf("%w: participant %d", ErrKillsUnknownEntry, participantID)
		}
		if count < 0 {
			return nil, fmt.Errorf("%w: participant %d has %d", ErrKillsNegative, participantID, count)
		}
	}

	maxKills := 0
	for _, count := range kills {
		if count > maxKills {
			maxKills = count
		}
	}

	outcomes := make([]perKillOutcome, 0, len(participants))
	for _, p := range participants {
		count := kills[p.ID]
		status := models.ParticipantCompleted
		// Ничья на максимуме — все победители; ничья на нуле победителя не даёт.
		if maxKills > 0 && count == maxKills {
			status = models.ParticipantWinner
		}
		outcomes = append(outcomes, perKillOutcome{
			Participant: p,
			Kills:       count,
			Payout:      float64(count) * perKillPrize,
			Status:      status,
		})
	}
	return outcomes, nil
}
