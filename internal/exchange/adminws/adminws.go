// Package adminws is a read-only admin/observability WebSocket feed
// broadcasting top-of-book snapshots to a dashboard. It is a supplemental
// feature (see SPEC_FULL.md), grounded on the teacher's internal/websocket
// hub pattern and on gurre-prime-fix-md-go's own feed-side display idiom.
package adminws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// bboUpdate is the JSON payload pushed to connected dashboards.
type bboUpdate struct {
	TickerID uint32 `json:"ticker_id"`
	Bid      uint64 `json:"bid"`
	Ask      uint64 `json:"ask"`
}

// Hub tracks connected admin WebSocket clients and periodically broadcasts
// the current BBO for every configured book.
type Hub struct {
	logger *logging.Logger
	books  map[types.TickerID]*matching.Book

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub constructs a Hub polling books for their current BBO.
func NewHub(logger *logging.Logger, books map[types.TickerID]*matching.Book) *Hub {
	return &Hub{logger: logger, books: books, clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection for broadcast; it is read-only from the client's
// perspective — incoming frames are drained and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.drainAndEvict(conn)
}

func (h *Hub) drainAndEvict(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
			return
		}
	}
}

// Run broadcasts every interval until stop is closed.
func (h *Hub) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.broadcast()
		case <-stop:
			return
		}
	}
}

func (h *Hub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}
	for tickerID, book := range h.books {
		bid, ask := book.BBO()
		payload, err := json.Marshal(bboUpdate{TickerID: uint32(tickerID), Bid: uint64(bid), Ask: uint64(ask)})
		if err != nil {
			continue
		}
		for conn := range h.clients {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("websocket write failed", zap.Error(err))
			}
		}
	}
}
