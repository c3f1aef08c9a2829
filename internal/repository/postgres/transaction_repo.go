package postgres

import (
	"context"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *transactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) GetByToken(ctx context.Context, token string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.db.WithContext(ctx).First(&tx, "token = ?", token).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) Commit(ctx context.Context, token string, commit domain.TransactionCommit) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"status":               commit.Status,
			"response_code":        commit.ResponseCode,
			"response_description": commit.ResponseDescription,
			"commit_response":      commit.CommitResponse,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}
