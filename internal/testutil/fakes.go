package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dom/foodorder-backend/internal/config"
)

const webPayTransactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

// FakeWebPay is an httptest stand-in for the Transbank REST API.
type FakeWebPay struct {
	server *httptest.Server

	mu           sync.Mutex
	requests     int
	created      int
	createStatus int
	commitStatus int
	commitResult string
}

func NewFakeWebPay(t *testing.T) *FakeWebPay {
	t.Helper()

	f := &FakeWebPay{
		createStatus: http.StatusOK,
		commitStatus: http.StatusOK,
		commitResult: "AUTHORIZED",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakeWebPay) URL() string {
	return f.server.URL
}

// Requests reports how many calls reached the fake.
func (f *FakeWebPay) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *FakeWebPay) SetCreateStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createStatus = status
}

func (f *FakeWebPay) SetCommitStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitStatus = status
}

// SetCommitResult sets the transaction status the fake reports on commit.
func (f *FakeWebPay) SetCommitResult(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitResult = status
}

func (f *FakeWebPay) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	switch {
	case r.Method == http.MethodPost && r.URL.Path == webPayTransactionsPath:
		if f.createStatus != http.StatusOK {
			w.WriteHeader(f.createStatus)
			w.Write([]byte(`{"error_message":"gateway unavailable"}`))
			return
		}

		var req struct {
			BuyOrder string `json:"buy_order"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		f.created++
		writeFakeJSON(w, map[string]string{
			"token": fmt.Sprintf("tok-%d-%s", f.created, req.BuyOrder),
			"url":   "https://webpay.test/webpayserver/initTransaction",
		})

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, webPayTransactionsPath+"/"):
		if f.commitStatus != http.StatusOK {
			w.WriteHeader(f.commitStatus)
			w.Write([]byte(`{"error_message":"invalid token"}`))
			return
		}

		code := 0
		if f.commitResult != "AUTHORIZED" {
			code = -1
		}
		writeFakeJSON(w, map[string]interface{}{
			"vci":                  "TSY",
			"amount":               1000,
			"status":               f.commitResult,
			"buy_order":            "ORDER1",
			"session_id":           "SESS1",
			"card_detail":          map[string]string{"card_number": "6623"},
			"accounting_date":      "0522",
			"transaction_date":     "2024-05-22T15:40:00.000Z",
			"authorization_code":   "1213",
			"payment_type_code":    "VN",
			"response_code":        code,
			"response_description": "test",
			"installments_number":  0,
		})

	default:
		http.NotFound(w, r)
	}
}

// GoogleUser is the profile the fake userinfo endpoint returns.
type GoogleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FakeGoogle serves the OAuth token and userinfo endpoints.
type FakeGoogle struct {
	server *httptest.Server

	mu             sync.Mutex
	user           GoogleUser
	userInfoStatus int
}

// RejectedCode is an authorization code the fake token endpoint refuses.
const RejectedCode = "rejected-code"

func NewFakeGoogle(t *testing.T) *FakeGoogle {
	t.Helper()

	f := &FakeGoogle{
		user: GoogleUser{
			ID:    "google-123",
			Email: "google.user@example.com",
			Name:  "Google User",
		},
		userInfoStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", f.token)
	mux.HandleFunc("/userinfo", f.userInfo)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// Config returns OAuth settings pointing at the fake.
func (f *FakeGoogle) Config() config.Google {
	return config.Google{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8000/auth/google/callback",
		AuthURL:      f.server.URL + "/auth",
		TokenURL:     f.server.URL + "/token",
		UserInfoURL:  f.server.URL + "/userinfo",
	}
}

func (f *FakeGoogle) SetUser(user GoogleUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = user
}

func (f *FakeGoogle) SetUserInfoStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userInfoStatus = status
}

func (f *FakeGoogle) token(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	if r.Form.Get("code") == RejectedCode {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
		return
	}

	writeFakeJSON(w, map[string]interface{}{
		"access_token": "google-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (f *FakeGoogle) userInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer google-access-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.userInfoStatus != http.StatusOK {
		w.WriteHeader(f.userInfoStatus)
		return
	}
	writeFakeJSON(w, f.user)
}

// FakeOpenFoodFacts serves product lookups from an in-memory map of raw bodies.
type FakeOpenFoodFacts struct {
	server *httptest.Server

	mu       sync.Mutex
	products map[string]string
}

func NewFakeOpenFoodFacts(t *testing.T) *FakeOpenFoodFacts {
	t.Helper()

	f := &FakeOpenFoodFacts{products: make(map[string]string)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakeOpenFoodFacts) Config() config.OpenFoodFacts {
	return config.OpenFoodFacts{
		BaseURL:   f.server.URL,
		ImagesURL: "https://images.test/images/products",
	}
}

// AddProduct registers the raw "product" object returned for barcode.
func (f *FakeOpenFoodFacts) AddProduct(barcode, productJSON string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[barcode] = productJSON
}

func (f *FakeOpenFoodFacts) handle(w http.ResponseWriter, r *http.Request) {
	barcode, ok := strings.CutPrefix(r.URL.Path, "/api/v0/product/")
	if !ok || !strings.HasSuffix(barcode, ".json") {
		http.NotFound(w, r)
		return
	}
	barcode = strings.TrimSuffix(barcode, ".json")

	f.mu.Lock()
	product, found := f.products[barcode]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !found {
		fmt.Fprintf(w, `{"code":%q,"status":0,"status_verbose":"product not found"}`, barcode)
		return
	}
	fmt.Fprintf(w, `{"code":%q,"status":1,"product":%s}`, barcode, product)
}

func writeFakeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
