package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
)

type MessageType string

const (
	// Server to Client
	MessageTypeTransactionStatus  MessageType = "TRANSACTION_STATUS"
	MessageTypeTransactionUpdated MessageType = "TRANSACTION_UPDATED"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func NewTransactionMessage(msgType MessageType, tx *domain.Transaction) (*Message, error) {
	return NewMessage(msgType, tx)
}
