package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/dom/foodorder-backend/internal/api/respond"
	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/dom/foodorder-backend/internal/websocket"
	"github.com/go-chi/chi/v5"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub            *websocket.Hub
	paymentService *service.PaymentService
	upgrader       ws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, paymentService *service.PaymentService, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:            hub,
		paymentService: paymentService,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || allowed[origin]
			},
		},
	}
}

// TransactionStatus streams status changes for one transaction token. The
// client is subscribed before the current status is read, so a commit landing
// during the handshake is still delivered.
func (h *WebSocketHandler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if _, err := h.paymentService.GetTransaction(r.Context(), token); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			respond.Error(w, http.StatusNotFound, "transaction not found")
			return
		}
		log.Printf("ERROR [ws.TransactionStatus] token=%s: %v", token, err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, token)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	tx, err := h.paymentService.GetTransaction(r.Context(), token)
	if err != nil {
		log.Printf("ERROR [ws.TransactionStatus] token=%s: %v", token, err)
		h.hub.Unregister(client)
		return
	}

	msg, err := websocket.NewTransactionMessage(websocket.MessageTypeTransactionStatus, tx)
	if err != nil {
		log.Printf("ERROR [ws.TransactionStatus] marshal: %v", err)
		h.hub.Unregister(client)
		return
	}
	h.hub.SendTo(client, msg)
}
