package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/papertrade/funds/internal/domain"
)

type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan WsMessage
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	AccountID string
	Conn      *websocket.Conn
}

type WsMessage struct {
	Type         string              `json:"type"`
	AccountID    string              `json:"account_id"`
	BalanceCents int64               `json:"balance_cents"`
	Entry        *domain.LedgerEntry `json:"entry,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan WsMessage, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.AccountID] == nil {
				h.Clients[client.AccountID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.AccountID][client.Conn] = true
			h.Logger.Info().
				Str("account_id", client.AccountID).
				Int("connection_count", len(h.Clients[client.AccountID])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.AccountID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.AccountID)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("account_id", client.AccountID).
					Int("connection_count", len(clients)).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			clients, ok := h.Clients[message.AccountID]
			if !ok {
				continue
			}
			for conn := range clients {
				if err := conn.WriteJSON(message); err != nil {
					h.Logger.Err(err).
						Str("account_id", message.AccountID).
						Str("type", message.Type).
						Msg("Failed to send WebSocket message")
					conn.Close()
					delete(clients, conn)
				}
			}
			if len(clients) == 0 {
				delete(h.Clients, message.AccountID)
			}
		}
	}
}

// BroadcastMutation pushes a committed balance change to every connection
// the owning account has open.
func (h *WsHub) BroadcastMutation(accountID string, mutation domain.Mutation) {
	entry := mutation.Entry
	h.Broadcast <- WsMessage{
		Type:         "ledger_entry",
		AccountID:    accountID,
		BalanceCents: mutation.BalanceCents,
		Entry:        &entry,
	}
}
