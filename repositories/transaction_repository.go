package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clashpoint/arena-system/models"
	"github.com/lib/pq"
)

var ErrTransactionUserInvalid = errors.New("transaction user conflict or invalid")

// TransactionRepository — append-only журнал кошелька. Записи никогда не
// обновляются и не удаляются.
type TransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Transaction) error
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error)
	// SumByUser возвращает credit - debit по журналу пользователя,
	// используется сверкой кошельков.
	SumByUser(ctx context.Context, userID int) (float64, error)
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

func (r *postgresTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Transaction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO transactions (user_id, amount, type, description, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.UserID,
		t.Amount,
		t.Type,
		t.Description,
		t.Reference,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "transactions_user_id_fkey" {
				return ErrTransactionUserInvalid
			}
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, reference, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

func (r *postgresTransactionRepository) SumByUser(ctx context.Context, userID int) (float64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE user_id = $1`

	var sum float64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %d: %w", userID, err)
	}
	return sum, nil
}
