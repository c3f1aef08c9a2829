package handlers_test

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createPaymentBody struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"payment_url"`
	Token      string `json:"token"`
}

func createPayment(t *testing.T, ts *testutil.TestServer, amount int64, buyOrder string) string {
	t.Helper()

	resp := postJSON(t, ts, "/api/create-payment", map[string]interface{}{
		"amount":    amount,
		"buy_order": buyOrder,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body createPaymentBody
	testutil.AssertJSONResponse(t, resp, &body)
	return body.Token
}

func postCommit(t *testing.T, ts *testutil.TestServer, form url.Values) *http.Response {
	t.Helper()

	resp, err := ts.Client().Post(ts.URL("/api/webpay/commit"), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	return resp
}

func TestPaymentHandler_Create(t *testing.T) {
	ts := testutil.NewTestServer(t)

	t.Run("success", func(t *testing.T) {
		resp := postJSON(t, ts, "/api/create-payment", map[string]interface{}{
			"amount":     25990,
			"buy_order":  "ORDER-42",
			"session_id": "SESS-42",
		})
		defer resp.Body.Close()

		var body createPaymentBody
		require.Equal(t, http.StatusOK, resp.StatusCode)
		testutil.AssertJSONResponse(t, resp, &body)
		assert.True(t, body.Success)
		assert.Equal(t, "https://webpay.test/webpayserver/initTransaction", body.PaymentURL)
		require.NotEmpty(t, body.Token)

		stored, err := ts.Repos.Transaction.GetByToken(t.Context(), body.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPending, stored.Status)
		assert.Equal(t, int64(25990), stored.Amount)
		assert.Equal(t, "SESS-42", stored.SessionID)
	})

	t.Run("non-positive amount makes no outbound call", func(t *testing.T) {
		before := ts.WebPay.Requests()

		for _, amount := range []int64{0, -500} {
			resp := postJSON(t, ts, "/api/create-payment", map[string]interface{}{"amount": amount})
			testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "invalid amount")
			resp.Body.Close()
		}

		assert.Equal(t, before, ts.WebPay.Requests())
	})

	t.Run("gateway error", func(t *testing.T) {
		ts.WebPay.SetCreateStatus(http.StatusUnauthorized)
		defer ts.WebPay.SetCreateStatus(http.StatusOK)

		resp := postJSON(t, ts, "/api/create-payment", map[string]interface{}{"amount": 1000})
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadGateway,
			`webpay error: 401 {"error_message":"gateway unavailable"}`)
	})
}

func TestPaymentHandler_Commit(t *testing.T) {
	ts := testutil.NewTestServer(t)

	t.Run("authorized", func(t *testing.T) {
		token := createPayment(t, ts, 5000, "ORDER-OK")

		resp := postCommit(t, ts, url.Values{"token_ws": {token}})
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		page, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(page), "frontend.test")
		assert.Contains(t, string(page), "payment-result?status=success")
		assert.Contains(t, string(page), token)

		stored, err := ts.Repos.Transaction.GetByToken(t.Context(), token)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusAuthorized, stored.Status)
		require.NotNil(t, stored.ResponseCode)
		assert.Equal(t, 0, *stored.ResponseCode)
		assert.NotEmpty(t, stored.CommitResponse)
	})

	t.Run("rejected", func(t *testing.T) {
		ts.WebPay.SetCommitResult("FAILED")
		defer ts.WebPay.SetCommitResult("AUTHORIZED")

		token := createPayment(t, ts, 5000, "ORDER-FAIL")

		resp := postCommit(t, ts, url.Values{"token_ws": {token}})
		defer resp.Body.Close()

		page, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(page), "status=failure")

		stored, err := ts.Repos.Transaction.GetByToken(t.Context(), token)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatus("FAILED"), stored.Status)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := postCommit(t, ts, url.Values{})
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "token not provided")
	})

	t.Run("gateway error", func(t *testing.T) {
		ts.WebPay.SetCommitStatus(http.StatusUnprocessableEntity)
		defer ts.WebPay.SetCommitStatus(http.StatusOK)

		resp := postCommit(t, ts, url.Values{"token_ws": {"tok-anything"}})
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadGateway, "error querying transaction status")
	})

	t.Run("cancelled on gateway form", func(t *testing.T) {
		token := createPayment(t, ts, 5000, "ORDER-ABORT")
		before := ts.WebPay.Requests()

		resp := postCommit(t, ts, url.Values{"TBK_TOKEN": {token}, "TBK_ORDEN_COMPRA": {"ORDER-ABORT"}})
		defer resp.Body.Close()

		page, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(page), "status=failure")
		assert.Equal(t, before, ts.WebPay.Requests())

		stored, err := ts.Repos.Transaction.GetByToken(t.Context(), token)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusAborted, stored.Status)
	})
}

func TestPaymentHandler_Get(t *testing.T) {
	ts := testutil.NewTestServer(t)

	t.Run("stored transaction", func(t *testing.T) {
		tx := testutil.NewTransactionBuilder().WithAmount(7000).Build(t, ts.DB.DB)

		resp, err := http.Get(ts.URL("/api/transactions/" + tx.Token))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]interface{}
		require.Equal(t, http.StatusOK, resp.StatusCode)
		testutil.AssertJSONResponse(t, resp, &body)
		assert.Equal(t, tx.Token, body["token"])
		assert.Equal(t, float64(7000), body["amount"])
		assert.Equal(t, "pending", body["status"])
		assert.NotContains(t, body, "id")
	})

	t.Run("commit of unknown token then query", func(t *testing.T) {
		resp := postCommit(t, ts, url.Values{"token_ws": {"tok-never-created"}})
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err := http.Get(ts.URL("/api/transactions/tok-never-created"))
		require.NoError(t, err)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "transaction not found")
	})
}
