package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/repository/postgres"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/dom/foodorder-backend/internal/testutil"
	"github.com/dom/foodorder-backend/internal/webpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWebPay struct {
	mu        sync.Mutex
	creates   []webpay.CreateTransactionRequest
	commits   []string
	createErr error
	commitErr error
	status    string
}

func (s *stubWebPay) CreateTransaction(ctx context.Context, req webpay.CreateTransactionRequest) (*webpay.CreateTransactionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, req)
	if s.createErr != nil {
		return nil, s.createErr
	}
	raw, _ := json.Marshal(map[string]string{"token": "tok-" + req.BuyOrder, "url": "https://webpay.test/init"})
	return &webpay.CreateTransactionResponse{
		Token: "tok-" + req.BuyOrder,
		URL:   "https://webpay.test/init",
		Raw:   raw,
	}, nil
}

func (s *stubWebPay) CommitTransaction(ctx context.Context, token string) (*webpay.CommitTransactionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, token)
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	code := 0
	raw, _ := json.Marshal(map[string]interface{}{"status": s.status, "response_code": code})
	return &webpay.CommitTransactionResponse{
		Status:              s.status,
		ResponseCode:        &code,
		ResponseDescription: "approved",
		Raw:                 raw,
	}, nil
}

func (s *stubWebPay) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creates) + len(s.commits)
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []*domain.Transaction
}

func (n *recordingNotifier) TransactionUpdated(tx *domain.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, tx)
}

func newPaymentService(t *testing.T) (*service.PaymentService, *stubWebPay, *recordingNotifier) {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	repos := postgres.NewRepositories(db)
	client := &stubWebPay{status: "AUTHORIZED"}
	notifier := &recordingNotifier{}

	svc := service.NewPaymentService(client, repos.Transaction, notifier,
		"http://localhost:8000/api/webpay/commit", "http://frontend.test/")
	return svc, client, notifier
}

func TestPaymentService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores pending transaction", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)

		result, err := svc.Create(ctx, service.CreatePaymentInput{
			Amount:    15000,
			BuyOrder:  "ORDER-1",
			SessionID: "SESS-1",
		})
		require.NoError(t, err)

		assert.Equal(t, "tok-ORDER-1", result.Token)
		assert.Equal(t, "https://webpay.test/init", result.PaymentURL)

		require.Len(t, client.creates, 1)
		assert.Equal(t, "http://localhost:8000/api/webpay/commit", client.creates[0].ReturnURL)
		assert.Equal(t, int64(15000), client.creates[0].Amount)

		stored, err := svc.GetTransaction(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPending, stored.Status)
		assert.Equal(t, "ORDER-1", stored.BuyOrder)
		assert.Equal(t, "SESS-1", stored.SessionID)
		assert.JSONEq(t, `{"token":"tok-ORDER-1","url":"https://webpay.test/init"}`, string(stored.WebPayResponse))
	})

	t.Run("defaults order and session", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)

		_, err := svc.Create(ctx, service.CreatePaymentInput{Amount: 1000})
		require.NoError(t, err)

		require.Len(t, client.creates, 1)
		assert.Regexp(t, `^ORDER\d+$`, client.creates[0].BuyOrder)
		assert.Regexp(t, `^SESS\d+$`, client.creates[0].SessionID)
	})

	t.Run("non-positive amount makes no call", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)

		for _, amount := range []int64{0, -1, -15000} {
			_, err := svc.Create(ctx, service.CreatePaymentInput{Amount: amount})
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		}
		assert.Equal(t, 0, client.calls())
	})

	t.Run("gateway error", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)
		client.createErr = &webpay.GatewayError{StatusCode: http.StatusUnauthorized, Body: "bad key"}

		_, err := svc.Create(ctx, service.CreatePaymentInput{Amount: 1000})
		require.ErrorIs(t, err, service.ErrPaymentGateway)
		assert.Equal(t, "webpay error: 401 bad key", err.Error())

		var gwErr *webpay.GatewayError
		assert.True(t, errors.As(err, &gwErr))
	})
}

func TestPaymentService_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized", func(t *testing.T) {
		svc, _, notifier := newPaymentService(t)
		created, err := svc.Create(ctx, service.CreatePaymentInput{Amount: 5000, BuyOrder: "A"})
		require.NoError(t, err)
		before, err := svc.GetTransaction(ctx, created.Token)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		result, err := svc.Commit(ctx, created.Token)
		require.NoError(t, err)
		assert.True(t, result.Authorized())

		stored, err := svc.GetTransaction(ctx, created.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusAuthorized, stored.Status)
		require.NotNil(t, stored.ResponseCode)
		assert.Equal(t, 0, *stored.ResponseCode)
		assert.Equal(t, "approved", stored.ResponseDescription)
		assert.NotEmpty(t, stored.CommitResponse)
		assert.True(t, stored.UpdatedAt.After(before.UpdatedAt))

		require.Len(t, notifier.updates, 1)
		assert.Equal(t, domain.TransactionStatusAuthorized, notifier.updates[0].Status)
	})

	t.Run("failed status", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)
		client.status = "FAILED"
		created, err := svc.Create(ctx, service.CreatePaymentInput{Amount: 5000, BuyOrder: "B"})
		require.NoError(t, err)

		result, err := svc.Commit(ctx, created.Token)
		require.NoError(t, err)
		assert.False(t, result.Authorized())
	})

	t.Run("unknown token is not an error", func(t *testing.T) {
		svc, client, notifier := newPaymentService(t)

		result, err := svc.Commit(ctx, "never-created")
		require.NoError(t, err)
		assert.Equal(t, "never-created", result.Token)
		assert.Equal(t, []string{"never-created"}, client.commits)
		assert.Empty(t, notifier.updates)

		_, err = svc.GetTransaction(ctx, "never-created")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("missing token", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)

		_, err := svc.Commit(ctx, "")
		assert.ErrorIs(t, err, domain.ErrMissingPaymentToken)
		assert.Equal(t, 0, client.calls())
	})

	t.Run("gateway error", func(t *testing.T) {
		svc, client, _ := newPaymentService(t)
		client.commitErr = &webpay.GatewayError{StatusCode: http.StatusUnprocessableEntity, Body: "expired"}

		_, err := svc.Commit(ctx, "tok")
		assert.ErrorIs(t, err, service.ErrPaymentGateway)
	})
}

func TestPaymentService_Abort(t *testing.T) {
	ctx := context.Background()
	svc, client, notifier := newPaymentService(t)

	created, err := svc.Create(ctx, service.CreatePaymentInput{Amount: 5000, BuyOrder: "C"})
	require.NoError(t, err)

	require.NoError(t, svc.Abort(ctx, created.Token))

	stored, err := svc.GetTransaction(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusAborted, stored.Status)
	assert.Empty(t, client.commits, "abort makes no gateway call")
	require.Len(t, notifier.updates, 1)

	assert.NoError(t, svc.Abort(ctx, "unknown"))
	assert.ErrorIs(t, svc.Abort(ctx, ""), domain.ErrMissingPaymentToken)
}

func TestPaymentService_ResultURL(t *testing.T) {
	svc, _, _ := newPaymentService(t)

	assert.Equal(t, "http://frontend.test/payment-result?status=success&token=abc", svc.ResultURL("abc", true))
	assert.Equal(t, "http://frontend.test/payment-result?status=failure&token=a+b", svc.ResultURL("a b", false))
}
