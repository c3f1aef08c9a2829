package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusAuthorized TransactionStatus = "AUTHORIZED"
	TransactionStatusAborted    TransactionStatus = "ABORTED"
)

// Transaction is a WebPay payment. It is created when the payment is initiated
// and updated when the gateway confirms it.
type Transaction struct {
	ID                  uuid.UUID         `json:"-" gorm:"type:uuid;primaryKey"`
	BuyOrder            string            `json:"buy_order" gorm:"index;not null"`
	SessionID           string            `json:"session_id" gorm:"not null"`
	Amount              int64             `json:"amount" gorm:"not null"`
	Token               string            `json:"token" gorm:"uniqueIndex;not null"`
	Status              TransactionStatus `json:"status" gorm:"index;not null"`
	ResponseCode        *int              `json:"response_code,omitempty"`
	ResponseDescription string            `json:"response_description,omitempty"`
	WebPayResponse      datatypes.JSON    `json:"webpay_response,omitempty"`
	CommitResponse      datatypes.JSON    `json:"commit_response,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (t *Transaction) Authorized() bool {
	return t.Status == TransactionStatusAuthorized
}

// TransactionCommit carries the fields written when a transaction is committed.
type TransactionCommit struct {
	Status              TransactionStatus
	ResponseCode        *int
	ResponseDescription string
	CommitResponse      datatypes.JSON
}
