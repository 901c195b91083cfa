package services

import (
	"context"
	"errors"

	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/repositories"
)

// ParticipantService — операции игрока над собственными регистрациями.
type ParticipantService interface {
	ListByUser(ctx context.Context, userID int) ([]*models.Participant, error)
	// AcknowledgeResult отмечает завершённый результат как просмотренный.
	// Единственное поле, которое игрок может менять у своей регистрации.
	AcknowledgeResult(ctx context.Context, userID, participantID int) error
}

type participantService struct {
	participantRepo repositories.ParticipantRepository
}

func NewParticipantService(participantRepo repositories.ParticipantRepository) ParticipantService {
	return &participantService{participantRepo: participantRepo}
}

func (s *participantService) ListByUser(ctx context.Context, userID int) ([]*models.Participant, error) {
	return s.participantRepo.ListByUser(ctx, userID)
}

func (s *participantService) AcknowledgeResult(ctx context.Context, userID, participantID int) error {
	err := s.participantRepo.MarkResultSeen(ctx, userID, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	return nil
}
