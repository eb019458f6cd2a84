// Package position is a minimal position/BBO tracker, grounded on
// original_source/trading/strategy/PositionKeeper.hpp. It is deliberately
// thin — no PnL or risk logic, which spec.md excludes as a Non-goal — but
// present because the trade engine needs somewhere to route fills and
// book-top updates.
package position

import (
	"sync"

	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// Keeper tracks, per ticker, net signed position and the last-known best
// bid/ask observed on the market-data stream.
type Keeper struct {
	mu sync.Mutex

	net map[types.TickerID]int64
	bid map[types.TickerID]types.Price
	ask map[types.TickerID]types.Price
}

// New constructs an empty Keeper.
func New() *Keeper {
	return &Keeper{
		net: make(map[types.TickerID]int64),
		bid: make(map[types.TickerID]types.Price),
		ask: make(map[types.TickerID]types.Price),
	}
}

// OnFill adjusts net position for tickerID: buys add qty, sells subtract.
func (k *Keeper) OnFill(tickerID types.TickerID, side types.Side, qty types.Qty) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delta := int64(qty)
	if side == types.Sell {
		delta = -delta
	}
	k.net[tickerID] += delta
}

// Net returns the current net position for tickerID.
func (k *Keeper) Net(tickerID types.TickerID) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.net[tickerID]
}

// OnBookUpdate records the best bid/ask implied by a resting ADD/MODIFY at
// the best price; callers are expected to pass only top-of-book updates
// (the consumer's local reconstruction, not every level).
func (k *Keeper) OnBookUpdate(tickerID types.TickerID, side types.Side, price types.Price) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if side == types.Buy {
		k.bid[tickerID] = price
	} else {
		k.ask[tickerID] = price
	}
}

// BBO returns the last-known best bid/ask for tickerID.
func (k *Keeper) BBO(tickerID types.TickerID) (bid, ask types.Price) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.bid[tickerID], k.ask[tickerID]
}
