package strategy

import (
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// Dispatcher fans book-update events out to a bounded goroutine pool so
// per-ticker feature recomputation never spawns an unbounded number of
// goroutines, per the DOMAIN STACK binding for github.com/panjf2000/ants/v2.
type Dispatcher struct {
	logger  *logging.Logger
	handler Handler
	pool    *ants.Pool
}

// NewDispatcher constructs a Dispatcher with a fixed-size worker pool.
func NewDispatcher(logger *logging.Logger, handler Handler, poolSize int) (*Dispatcher, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{logger: logger, handler: handler, pool: pool}, nil
}

// DispatchBookUpdate submits update to the pool for asynchronous handling.
// A full pool blocks the caller (ants' default behavior) rather than
// drop the event, since strategy feature state must stay consistent with
// the book.
func (d *Dispatcher) DispatchBookUpdate(update types.MarketUpdate) {
	err := d.pool.Submit(func() {
		d.handler.OnBookUpdate(update)
	})
	if err != nil {
		d.logger.Error("dispatch book update failed", zap.Error(err))
	}
}

// DispatchFill submits a fill event for asynchronous handling.
func (d *Dispatcher) DispatchFill(response types.ClientResponse) {
	err := d.pool.Submit(func() {
		d.handler.OnFill(response)
	})
	if err != nil {
		d.logger.Error("dispatch fill failed", zap.Error(err))
	}
}

// Close releases the worker pool.
func (d *Dispatcher) Close() { d.pool.Release() }
