package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// reconcileConcurrency ограничивает параллельность сверки кошельков.
const reconcileConcurrency = 8

// WalletDrift — расхождение баланса с журналом, найденное сверкой.
type WalletDrift struct {
	UserID        int     `json:"user_id"`
	WalletBalance float64 `json:"wallet_balance"`
	LedgerBalance float64 `json:"ledger_balance"`
	Difference    float64 `json:"difference"`
}

// WalletService — операции с кошельком вне турниров: просмотр, симуляция
// пополнения/вывода и периодическая сверка с журналом.
type WalletService interface {
	GetBalance(ctx context.Context, userID int) (*models.User, error)
	History(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error)
	Deposit(ctx context.Context, userID int, amount float64) (*models.Transaction, error)
	Withdraw(ctx context.Context, userID int, amount float64) (*models.Transaction, error)
	// ReconcileWallets сверяет баланс каждого пользователя с суммой его
	// журнала. Ничего не чинит — только сообщает о дрейфе.
	ReconcileWallets(ctx context.Context) ([]WalletDrift, error)
}

type walletService struct {
	txRunner        repositories.TxRunner
	userRepo        repositories.UserRepository
	transactionRepo repositories.TransactionRepository
	logger          *slog.Logger
}

func NewWalletService(
	txRunner repositories.TxRunner,
	userRepo repositories.UserRepository,
	transactionRepo repositories.TransactionRepository,
	logger *slog.Logger,
) WalletService {
	return &walletService{
		txRunner:        txRunner,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

func (s *walletService) GetBalance(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *walletService) History(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.transactionRepo.ListByUser(ctx, userID, limit, offset)
}

// Deposit — симулированное пополнение: платёжного шлюза нет, средства
// просто зачисляются, но всегда в паре с записью журнала.
func (s *walletService) Deposit(ctx context.Context, userID int, amount float64) (*models.Transaction, error) {
	return s.apply(ctx, userID, amount, models.TransactionCredit, "Wallet deposit")
}

// Withdraw — симулированный вывод, защищён проверкой баланса.
func (s *walletService) Withdraw(ctx context.Context, userID int, amount float64) (*models.Transaction, error) {
	return s.apply(ctx, userID, amount, models.TransactionDebit, "Wallet withdrawal")
}

func (s *walletService) apply(ctx context.Context, userID int, amount float64, txType models.TransactionType, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrNegativeAmount
	}

	var entry *models.Transaction
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		user, err := s.userRepo.GetByIDForUpdate(ctx, exec, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		delta := amount
		if txType == models.TransactionDebit {
			if user.WalletBalance < amount {
				return ErrInsufficientBalance
			}
			delta = -amount
		}

		if err := s.userRepo.AdjustBalance(ctx, exec, userID, delta); err != nil {
			if errors.Is(err, repositories.ErrInsufficientFunds) {
				return ErrInsufficientBalance
			}
			return err
		}

		entry = &models.Transaction{
			UserID:      userID,
			Amount:      amount,
			Type:        txType,
			Description: description,
			Reference:   uuid.NewString(),
		}
		return s.transactionRepo.Create(ctx, exec, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *walletService) ReconcileWallets(ctx context.Context) ([]WalletDrift, error) {
	ids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for reconciliation: %w", err)
	}

	var (
		mu     sync.Mutex
		drifts []WalletDrift
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, userID := range ids {
		userID := userID
		g.Go(func() error {
			user, err := s.userRepo.GetByID(gctx, nil, userID)
			if err != nil {
				return err
			}
			ledger, err := s.transactionRepo.SumByUser(gctx, userID)
			if err != nil {
				return err
			}
			// Терпим копеечный шум флоатов, ловим настоящий дрейф.
			if math.Abs(user.WalletBalance-ledger) > 0.005 {
				mu.Lock()
				drifts = append(drifts, WalletDrift{
					UserID:        userID,
					WalletBalance: user.WalletBalance,
					LedgerBalance: ledger,
					Difference:    user.WalletBalance - ledger,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("wallet reconciliation failed: %w", err)
	}

	if len(drifts) > 0 {
		s.logger.WarnContext(ctx, "wallet reconciliation found drift", slog.Int("count", len(drifts)))
	}
	return drifts, nil
}
