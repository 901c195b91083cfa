package models

import "time"

// TransactionType — направление движения средств по кошельку.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction — неизменяемая запись одной мутации кошелька (append-only).
// Баланс пользователя всегда должен сходиться с суммой credit - debit.
type Transaction struct {
	ID          int             `json:"id" db:"id"`
	UserID      int             `json:"user_id" db:"user_id"`
	Amount      float64         `json:"amount" db:"amount"`
	Type        TransactionType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	Reference   string          `json:"reference" db:"reference"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
