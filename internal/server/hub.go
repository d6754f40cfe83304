// Package server tracks WebSocket connections, runs their pumps and closes
// them on shutdown via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "chat_websocket_clients",
	Help: "Open WebSocket connections.",
})

func init() {
	prometheus.MustRegister(wsClients)
}

// Hub manages all WebSocket client connections. Clients are registered and
// unregistered through channels served by Run; replies are queued on each
// client's send channel.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub ready to be started with Run.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// deliver queues a reply for client. A client whose buffer is full is
// dropped.
func (h *Hub) deliver(client *Client, payload []byte) bool {
	if h.safeSend(client, payload) {
		return true
	}
	h.removeFailedClients([]*Client{client})
	return false
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run serves registrations until Shutdown is called. It should be called in
// its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Debug("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			wsClients.Set(float64(clientCount))
			log.WithFields(log.Fields{"addr": client.addr, "clients": clientCount}).Info("Client registered")

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				close(client.send)
				wsClients.Set(float64(clientCount))
				log.WithFields(log.Fields{"addr": client.addr, "clients": clientCount}).Info("Client unregistered")
			} else {
				h.mutex.Unlock()
			}
		}
	}
}

var hub = NewHub()

// removeFailedClients removes clients that failed to receive replies and
// closes their channels.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			log.WithField("addr", client.addr).Warn("Client removed due to full send buffer")
		}
	}
	wsClients.Set(float64(len(h.clients)))
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients closes every active client connection.
func (h *Hub) shutdownClients() {
	log.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Errorf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Infof("Closed %d client connections", len(clients))
}

// Shutdown stops Run and waits up to timeout for every client goroutine.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info("Initiating hub shutdown...")

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
