// internal/events/notifier.go
package events

import (
	"context"
	"encoding/json"
	"sync"

	"escrow-service/internal/domain"

	"github.com/gorilla/websocket"
)

// Notifier fans escrow events out to websocket subscribers, keyed by
// service id. A write error closes and drops the connection.
type Notifier struct {
	mu      sync.Mutex
	clients map[uint64]map[*websocket.Conn]bool
}

func NewNotifier() *Notifier {
	return &Notifier{
		clients: make(map[uint64]map[*websocket.Conn]bool),
	}
}

func (n *Notifier) RegisterConnection(serviceID uint64, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[serviceID] == nil {
		n.clients[serviceID] = make(map[*websocket.Conn]bool)
	}
	n.clients[serviceID][conn] = true
}

func (n *Notifier) UnregisterConnection(serviceID uint64, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if conns, ok := n.clients[serviceID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(n.clients, serviceID)
		}
	}
}

func (n *Notifier) Publish(_ context.Context, evt domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	for conn := range n.clients[evt.ServiceID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(n.clients[evt.ServiceID], conn)
		}
	}
	return nil
}
