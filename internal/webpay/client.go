package webpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dom/foodorder-backend/internal/config"
)

const transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

// Client talks to the Transbank WebPay Plus REST API.
type Client interface {
	// CreateTransaction opens a payment and returns the token and form URL
	// the customer is sent to.
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreateTransactionResponse, error)

	// CommitTransaction confirms a transaction after the customer returns and
	// reports its final status.
	CommitTransaction(ctx context.Context, token string) (*CommitTransactionResponse, error)
}

type CreateTransactionRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type CreateTransactionResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`

	// Raw is the response body as received.
	Raw json.RawMessage `json:"-"`
}

type CardDetail struct {
	CardNumber string `json:"card_number"`
}

type CommitTransactionResponse struct {
	VCI                 string     `json:"vci"`
	Amount              int64      `json:"amount"`
	Status              string     `json:"status"`
	BuyOrder            string     `json:"buy_order"`
	SessionID           string     `json:"session_id"`
	CardDetail          CardDetail `json:"card_detail"`
	AccountingDate      string     `json:"accounting_date"`
	TransactionDate     string     `json:"transaction_date"`
	AuthorizationCode   string     `json:"authorization_code"`
	PaymentTypeCode     string     `json:"payment_type_code"`
	ResponseCode        *int       `json:"response_code"`
	ResponseDescription string     `json:"response_description"`
	InstallmentsNumber  int        `json:"installments_number"`

	Raw json.RawMessage `json:"-"`
}

// GatewayError is returned when WebPay answers with a non-200 status.
// Its message is the status code followed by the response body.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Body)
}

type clientImpl struct {
	httpClient   *http.Client
	baseURL      string
	commerceCode string
	apiKey       string
}

func NewClient(cfg config.WebPay) Client {
	return &clientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      cfg.APIBaseURL(),
		commerceCode: cfg.CommerceCode,
		apiKey:       cfg.APIKey,
	}
}

func (c *clientImpl) CreateTransaction(ctx context.Context, payload CreateTransactionRequest) (*CreateTransactionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL+transactionsPath, body)
	if err != nil {
		return nil, err
	}

	var result CreateTransactionResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode webpay response: %w", err)
	}
	result.Raw = raw

	return &result, nil
}

func (c *clientImpl) CommitTransaction(ctx context.Context, token string) (*CommitTransactionResponse, error) {
	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, transactionsPath, url.PathEscape(token))

	raw, err := c.do(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result CommitTransactionResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode webpay response: %w", err)
	}
	result.Raw = raw

	return &result, nil
}

func (c *clientImpl) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webpay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
