// Package strategy supplies the trade engine's strategy plug-in surface.
// spec.md §1 keeps strategy algorithms out of scope as algorithms; this
// package is the interface they plug into, grounded on
// original_source/trading/strategy/{MarketMaker,LiquidityTaker}.cc which
// show the consumer's local market-data queue feeding a handler that
// issues orders back through a gateway.
package strategy

import (
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// Handler receives book-update and fill events from the trade engine. It
// is the only extension point this module defines for strategy logic —
// implementations are the trading participant's concern, not the core's.
type Handler interface {
	OnBookUpdate(update types.MarketUpdate)
	OnFill(response types.ClientResponse)
}

// NoopStrategy implements Handler by doing nothing. cmd/participant does not
// use it; it dispatches to a handler that feeds position.Keeper.
type NoopStrategy struct{}

func (NoopStrategy) OnBookUpdate(types.MarketUpdate)   {}
func (NoopStrategy) OnFill(types.ClientResponse)       {}

var _ Handler = NoopStrategy{}
