package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/dom/foodorder-backend/internal/domain"
)

type broadcastRequest struct {
	token string
	data  []byte
}

type directRequest struct {
	client *Client
	data   []byte
}

// Hub fans transaction updates out to the clients subscribed to each token.
// All subscription state is owned by the Run goroutine.
type Hub struct {
	subscribers map[string]map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	broadcast   chan *broadcastRequest
	direct      chan directRequest
	counts      chan countRequest
	stop        chan struct{}
	done        chan struct{} // closed when Run() exits
	stopped     bool
	mu          sync.Mutex
}

type countRequest struct {
	token string
	reply chan int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *broadcastRequest, 64),
		direct:      make(chan directRequest),
		counts:      make(chan countRequest),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done) // Signal that Run() has exited

	for {
		select {
		case <-h.stop:
			for _, clients := range h.subscribers {
				for client := range clients {
					client.Close()
				}
			}
			h.subscribers = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			clients, ok := h.subscribers[client.token]
			if !ok {
				clients = make(map[*Client]bool)
				h.subscribers[client.token] = clients
			}
			clients[client] = true

		case client := <-h.unregister:
			h.remove(client)

		case req := <-h.broadcast:
			for client := range h.subscribers[req.token] {
				select {
				case client.send <- req.data:
				default:
					// slow subscriber
					h.remove(client)
				}
			}

		case req := <-h.direct:
			if h.subscribers[req.client.token][req.client] {
				select {
				case req.client.send <- req.data:
				default:
					h.remove(req.client)
				}
			}

		case req := <-h.counts:
			req.reply <- len(h.subscribers[req.token])
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.subscribers[client.token]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.subscribers, client.token)
	}
}

// Stop gracefully shuts down the hub and closes every subscriber.
// It blocks until Run has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done // Wait for Run() to finish
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendTo queues msg for one registered client. Clients that are no longer
// registered are skipped.
func (h *Hub) SendTo(client *Client, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Hub: failed to marshal message for token %s: %v", client.token, err)
		return
	}

	select {
	case h.direct <- directRequest{client: client, data: data}:
	case <-h.done:
	}
}

// SubscriberCount reports how many clients are watching token.
func (h *Hub) SubscriberCount(token string) int {
	reply := make(chan int, 1)
	select {
	case h.counts <- countRequest{token: token, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// TransactionUpdated implements service.TransactionNotifier.
func (h *Hub) TransactionUpdated(tx *domain.Transaction) {
	msg, err := NewTransactionMessage(MessageTypeTransactionUpdated, tx)
	if err != nil {
		log.Printf("Hub: failed to build update for token %s: %v", tx.Token, err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Hub: failed to marshal update for token %s: %v", tx.Token, err)
		return
	}

	select {
	case h.broadcast <- &broadcastRequest{token: tx.Token, data: data}:
	case <-h.done:
	}
}
