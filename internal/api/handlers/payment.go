package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/dom/foodorder-backend/internal/api/respond"
	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting...</title></head>
<body>
<p>Processing payment, please wait...</p>
<script>window.location.href = {{.}};</script>
</body>
</html>
`))

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type CreatePaymentRequest struct {
	Amount    int64  `json:"amount"`
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
}

type CreatePaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"payment_url"`
	Token      string `json:"token"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.paymentService.Create(r.Context(), service.CreatePaymentInput{
		Amount:    req.Amount,
		BuyOrder:  req.BuyOrder,
		SessionID: req.SessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			respond.Error(w, http.StatusBadRequest, "invalid amount")
		case errors.Is(err, service.ErrPaymentGateway):
			log.Printf("ERROR [payment.Create]: %v", err)
			respond.Error(w, http.StatusBadGateway, err.Error())
		default:
			log.Printf("ERROR [payment.Create]: %v", err)
			respond.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respond.JSON(w, http.StatusOK, CreatePaymentResponse{
		Success:    true,
		PaymentURL: result.PaymentURL,
		Token:      result.Token,
	})
}

// Commit is WebPay's return URL. The customer's browser posts token_ws here
// after paying, or TBK_TOKEN when the payment form was cancelled.
func (h *PaymentHandler) Commit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid form")
		return
	}

	token := r.PostForm.Get("token_ws")
	if token == "" {
		if aborted := r.PostForm.Get("TBK_TOKEN"); aborted != "" {
			h.abort(w, r, aborted)
			return
		}
		respond.Error(w, http.StatusBadRequest, "token not provided")
		return
	}

	result, err := h.paymentService.Commit(r.Context(), token)
	if err != nil {
		log.Printf("ERROR [payment.Commit] token=%s: %v", token, err)
		if errors.Is(err, service.ErrPaymentGateway) {
			respond.Error(w, http.StatusBadGateway, "error querying transaction status")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeRedirectPage(w, h.paymentService.ResultURL(token, result.Authorized()))
}

func (h *PaymentHandler) abort(w http.ResponseWriter, r *http.Request, token string) {
	if err := h.paymentService.Abort(r.Context(), token); err != nil {
		log.Printf("ERROR [payment.Abort] token=%s: %v", token, err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeRedirectPage(w, h.paymentService.ResultURL(token, false))
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	tx, err := h.paymentService.GetTransaction(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			respond.Error(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Printf("ERROR [payment.Get] token=%s: %v", token, err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond.JSON(w, http.StatusOK, tx)
}

func writeRedirectPage(w http.ResponseWriter, target string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := redirectPage.Execute(w, target); err != nil {
		log.Printf("ERROR [payment.redirect] render: %v", err)
	}
}
