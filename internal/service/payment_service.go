package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/repository"
	"github.com/dom/foodorder-backend/internal/webpay"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPaymentGateway = errors.New("webpay error")

// TransactionNotifier is told about every committed transaction.
type TransactionNotifier interface {
	TransactionUpdated(tx *domain.Transaction)
}

type PaymentService struct {
	client      webpay.Client
	txRepo      repository.TransactionRepository
	notifier    TransactionNotifier
	returnURL   string
	frontendURL string
	now         func() time.Time
}

func NewPaymentService(client webpay.Client, txRepo repository.TransactionRepository, notifier TransactionNotifier, returnURL, frontendURL string) *PaymentService {
	return &PaymentService{
		client:      client,
		txRepo:      txRepo,
		notifier:    notifier,
		returnURL:   returnURL,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

type CreatePaymentInput struct {
	Amount    int64
	BuyOrder  string
	SessionID string
}

type CreatePaymentResult struct {
	Token       string
	PaymentURL  string
	Transaction *domain.Transaction
}

type CommitResult struct {
	Token  string
	Status string
}

func (r *CommitResult) Authorized() bool {
	return r.Status == string(domain.TransactionStatusAuthorized)
}

// Create opens a WebPay transaction and records it as pending.
func (s *PaymentService) Create(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	ts := s.now().Unix()
	buyOrder := input.BuyOrder
	if buyOrder == "" {
		buyOrder = fmt.Sprintf("ORDER%d", ts)
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("SESS%d", ts)
	}

	resp, err := s.client.CreateTransaction(ctx, webpay.CreateTransactionRequest{
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    input.Amount,
		ReturnURL: s.returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}

	tx := &domain.Transaction{
		ID:             uuid.New(),
		BuyOrder:       buyOrder,
		SessionID:      sessionID,
		Amount:         input.Amount,
		Token:          resp.Token,
		Status:         domain.TransactionStatusPending,
		WebPayResponse: datatypes.JSON(resp.Raw),
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("store transaction: %w", err)
	}

	return &CreatePaymentResult{
		Token:       resp.Token,
		PaymentURL:  resp.URL,
		Transaction: tx,
	}, nil
}

// Commit confirms the transaction with the gateway and stores the result.
// A token with no stored transaction is not an error; the gateway answer is
// still returned.
func (s *PaymentService) Commit(ctx context.Context, token string) (*CommitResult, error) {
	if token == "" {
		return nil, domain.ErrMissingPaymentToken
	}

	resp, err := s.client.CommitTransaction(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}

	err = s.txRepo.Commit(ctx, token, domain.TransactionCommit{
		Status:              domain.TransactionStatus(resp.Status),
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CommitResponse:      datatypes.JSON(resp.Raw),
	})
	if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if err == nil {
		s.notify(ctx, token)
	} else {
		log.Printf("WARN [payment.Commit] token=%s: no stored transaction", token)
	}

	return &CommitResult{Token: token, Status: resp.Status}, nil
}

// Abort records a payment the customer cancelled on the gateway form.
func (s *PaymentService) Abort(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingPaymentToken
	}

	err := s.txRepo.Commit(ctx, token, domain.TransactionCommit{
		Status: domain.TransactionStatusAborted,
	})
	if errors.Is(err, domain.ErrTransactionNotFound) {
		log.Printf("WARN [payment.Abort] token=%s: no stored transaction", token)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.notify(ctx, token)
	return nil
}

func (s *PaymentService) GetTransaction(ctx context.Context, token string) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ResultURL is the frontend page the customer lands on after a commit.
func (s *PaymentService) ResultURL(token string, authorized bool) string {
	status := "failure"
	if authorized {
		status = "success"
	}

	q := url.Values{}
	q.Set("status", status)
	q.Set("token", token)
	return s.frontendURL + "/payment-result?" + q.Encode()
}

func (s *PaymentService) notify(ctx context.Context, token string) {
	if s.notifier == nil {
		return
	}

	tx, err := s.txRepo.GetByToken(ctx, token)
	if err != nil {
		log.Printf("ERROR [payment.notify] token=%s: %v", token, err)
		return
	}
	s.notifier.TransactionUpdated(tx)
}
