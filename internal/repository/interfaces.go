package repository

import (
	"context"

	"github.com/dom/foodorder-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByToken(ctx context.Context, token string) (*domain.Transaction, error)
	// Commit applies the gateway result to the transaction with the given token.
	// It returns domain.ErrTransactionNotFound when no row matches.
	Commit(ctx context.Context, token string, commit domain.TransactionCommit) error
}

type Repositories struct {
	User        UserRepository
	Transaction TransactionRepository
}
