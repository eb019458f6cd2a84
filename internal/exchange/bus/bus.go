// Package bus is the exchange's out-of-band admin control bus: start/stop/
// ticker-add commands delivered over NATS, rate-limited independently of
// the hot order path. It is not one of the four data-plane threads in
// spec.md §5 — a dropped or slow admin command never affects matching.
package bus

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abdoElHodaky/tradSys/internal/logging"
)

// Command is one admin control-bus message.
type Command struct {
	Action   string `json:"action"` // "archive", "start", "stop", "add_ticker"
	TickerID uint32 `json:"ticker_id,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
}

// Handler processes a decoded admin Command.
type Handler func(Command)

// Bus subscribes to the admin control subject and rate-limits inbound
// commands, per the DOMAIN STACK bindings for github.com/nats-io/nats.go
// and golang.org/x/time (rate) — kept off the matching core per
// Non-goals ("rate-limiting" excludes a trading feature, not this
// admin-plane safety valve).
type Bus struct {
	logger  *logging.Logger
	conn    *nats.Conn
	limiter *rate.Limiter
	sub     *nats.Subscription
}

// Connect dials url and returns a Bus rate-limited to ratePerSec commands
// per second (burst of one).
func Connect(logger *logging.Logger, url string, ratePerSec int) (*Bus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Bus{
		logger:  logger,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}, nil
}

const adminSubject = "tradsys.admin.commands"

// Subscribe registers handle for every admin command that passes the
// rate limiter; commands arriving over the limit are logged and dropped.
func (b *Bus) Subscribe(handle Handler) error {
	sub, err := b.conn.Subscribe(adminSubject, func(msg *nats.Msg) {
		if !b.limiter.Allow() {
			b.logger.Warn("admin command rate-limited, dropping")
			return
		}
		var cmd Command
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			b.logger.Warn("malformed admin command", zap.Error(err))
			return
		}
		handle(cmd)
	})
	if err != nil {
		return err
	}
	b.sub = sub
	return nil
}

// Close unsubscribes and closes the underlying NATS connection.
func (b *Bus) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.conn.Close()
	return nil
}
