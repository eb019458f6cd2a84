// Package matching implements the price-time priority limit order book and
// the single-threaded matching engine that drives it, grounded on the
// teacher's heap-based OrderBook (internal/core/matching/order_book.go in
// the original tree) but reshaped around fixed-capacity arena indices per
// Design Note "cyclic intrusive lists" instead of a container/heap.
package matching

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	terr "github.com/abdoElHodaky/tradSys/pkg/errors"
	"github.com/abdoElHodaky/tradSys/pkg/pool"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// bboSnapshot is the small immutable value the dispatch goroutine publishes
// after every mutation, so readers on other goroutines (internal/exchange/
// adminws) never touch bidsHead/asksHead/the level pool directly — those
// fields are plain, unsynchronized state owned by the single dispatch
// goroutine per spec.md §4.4, and a concurrent read of them while the
// dispatch goroutine mutates is a data race under the Go memory model
// regardless of which method performs the read.
type bboSnapshot struct {
	bid, ask types.Price
}

// order is a single resting (or in-flight) limit order. prev/next are
// indices into the book's order arena forming a circular list at one price
// level (invariant 1 of spec.md §3).
type order struct {
	tickerID      types.TickerID
	clientID      types.ClientID
	clientOrderID types.OrderID
	marketOrderID types.OrderID
	side          types.Side
	price         types.Price
	qty           types.Qty
	priority      types.Priority
	prev, next    uint32
}

// level is a single price level: a circular list of orders plus the
// level's position in the side's circular, priority-sorted list of levels.
type level struct {
	side       types.Side
	price      types.Price
	firstOrder uint32
	prevLevel  uint32
	nextLevel  uint32
}

// UpdateSink is the callback signature the Book uses to emit market-data
// events.
type UpdateSink func(u types.MarketUpdate)

// ResponseSink is the callback signature the Book uses to emit responses.
type ResponseSink func(r types.ClientResponse)

// Book is a single instrument's limit order book plus matcher.
type Book struct {
	tickerID types.TickerID
	logger   *logging.Logger

	orders *pool.Pool[order]
	levels *pool.Pool[level]

	// priceIndex direct-indexes by price % types.MaxPriceLevels, per Design
	// Note / Open Question: the source assumes no collision can occur for
	// the configured price range and takes no defensive action; this
	// module preserves that contract rather than guessing at a fallback.
	priceIndex [types.MaxPriceLevels]uint32

	// clientOrderIndex maps (clientID, clientOrderID) to an order arena
	// index for cancel lookup (invariant 4).
	clientOrderIndex [types.MaxClients][types.MaxOrderIDs]uint32

	bidsHead uint32
	asksHead uint32

	// bbo is the published BBO snapshot; the dispatch goroutine is the sole
	// writer (via publishBBO), any goroutine may read it via BBO.
	bbo atomic.Pointer[bboSnapshot]

	nextMarketOrderID types.OrderID

	onUpdate   UpdateSink
	onResponse ResponseSink
}

// NewBook constructs an empty book for tickerID, with arenas sized to
// types.MaxOrderIDs orders and types.MaxPriceLevels price levels.
func NewBook(tickerID types.TickerID, logger *logging.Logger, onUpdate UpdateSink, onResponse ResponseSink) *Book {
	b := &Book{
		tickerID:          tickerID,
		logger:            logger,
		orders:            pool.New[order](types.MaxOrderIDs),
		levels:            pool.New[level](types.MaxPriceLevels),
		bidsHead:          pool.NoIndex,
		asksHead:          pool.NoIndex,
		nextMarketOrderID: 1,
		onUpdate:          onUpdate,
		onResponse:        onResponse,
	}
	for i := range b.priceIndex {
		b.priceIndex[i] = pool.NoIndex
	}
	for c := range b.clientOrderIndex {
		for o := range b.clientOrderIndex[c] {
			b.clientOrderIndex[c][o] = pool.NoIndex
		}
	}
	b.bbo.Store(&bboSnapshot{bid: types.PriceInvalid, ask: types.PriceInvalid})
	return b
}

// publishBBO recomputes bid/ask from bidsHead/asksHead and publishes the
// result atomically. Called once at the end of every public mutating entry
// point (Add, Cancel) — match/insert/remove are always reached through one
// of those two, so this covers every state change.
func (b *Book) publishBBO() {
	snap := &bboSnapshot{bid: types.PriceInvalid, ask: types.PriceInvalid}
	if b.bidsHead != pool.NoIndex {
		snap.bid = b.levels.At(b.bidsHead).price
	}
	if b.asksHead != pool.NoIndex {
		snap.ask = b.levels.At(b.asksHead).price
	}
	b.bbo.Store(snap)
}

func priceSlot(p types.Price) uint64 {
	return uint64(p) % types.MaxPriceLevels
}

func (b *Book) headFor(side types.Side) uint32 {
	if side == types.Buy {
		return b.bidsHead
	}
	return b.asksHead
}

func (b *Book) setHead(side types.Side, idx uint32) {
	if side == types.Buy {
		b.bidsHead = idx
	} else {
		b.asksHead = idx
	}
}

// better reports whether price a has priority over price b on the given
// side: higher for bids, lower for asks (invariant 2).
func better(side types.Side, a, b types.Price) bool {
	if side == types.Buy {
		return a > b
	}
	return a < b
}

// Add accepts a new limit order: emits ACCEPTED, matches against the
// opposite side, then rests any residual quantity. Mirrors
// OrderBook::add in the source and spec.md §4.3's public contract.
func (b *Book) Add(clientID types.ClientID, clientOrderID types.OrderID, side types.Side, price types.Price, qty types.Qty) {
	marketOrderID := b.nextMarketOrderID
	b.nextMarketOrderID++

	b.onResponse(types.ClientResponse{
		Type:          types.RespAccepted,
		ClientID:      clientID,
		TickerID:      b.tickerID,
		ClientOrderID: clientOrderID,
		MarketOrderID: marketOrderID,
		Side:          side,
		Price:         price,
		ExecQty:       0,
		LeavesQty:     qty,
	})

	leaves := b.match(clientID, clientOrderID, marketOrderID, side, price, qty)

	if leaves > 0 {
		b.insert(clientID, clientOrderID, marketOrderID, side, price, leaves)
	}
	b.publishBBO()
}

// match walks the opposite side from best price, filling the incoming
// order until it is exhausted or no longer price-competitive. Implements
// the partial-fill policy and list surgery of spec.md §4.3.
func (b *Book) match(clientID types.ClientID, clientOrderID, marketOrderID types.OrderID, side types.Side, price types.Price, qty types.Qty) types.Qty {
	oppositeSide := types.Sell
	if side == types.Sell {
		oppositeSide = types.Buy
	}
	leaves := qty

	for leaves > 0 {
		headIdx := b.headFor(oppositeSide)
		if headIdx == pool.NoIndex {
			break
		}
		restingLevel := b.levels.At(headIdx)

		// Open Question resolved: incoming BUY stops at strict `price <
		// ask.price` (so equality crosses); mirrored for SELL.
		if side == types.Buy {
			if restingLevel.price > price {
				break
			}
		} else {
			if restingLevel.price < price {
				break
			}
		}

		restIdx := restingLevel.firstOrder
		restOrder := b.orders.At(restIdx)

		fill := restOrder.qty
		if leaves < fill {
			fill = leaves
		}

		restOrder.qty -= fill
		leaves -= fill

		b.onResponse(types.ClientResponse{
			Type:          types.RespFilled,
			ClientID:      clientID,
			TickerID:      b.tickerID,
			ClientOrderID: clientOrderID,
			MarketOrderID: marketOrderID,
			Side:          side,
			Price:         restingLevel.price,
			ExecQty:       fill,
			LeavesQty:     leaves,
		})
		b.onResponse(types.ClientResponse{
			Type:          types.RespFilled,
			ClientID:      restOrder.clientID,
			TickerID:      b.tickerID,
			ClientOrderID: restOrder.clientOrderID,
			MarketOrderID: restOrder.marketOrderID,
			Side:          oppositeSide,
			Price:         restingLevel.price,
			ExecQty:       fill,
			LeavesQty:     restOrder.qty,
		})

		if restOrder.qty == 0 {
			b.onUpdate(types.MarketUpdate{
				Type:     types.MDCancel,
				OrderID:  restOrder.marketOrderID,
				TickerID: b.tickerID,
				Side:     oppositeSide,
				Price:    restingLevel.price,
			})
			b.removeOrderFromLevel(oppositeSide, headIdx, restIdx)
		} else {
			b.onUpdate(types.MarketUpdate{
				Type:     types.MDModify,
				OrderID:  restOrder.marketOrderID,
				TickerID: b.tickerID,
				Side:     oppositeSide,
				Price:    restingLevel.price,
				Qty:      restOrder.qty,
				Priority: restOrder.priority,
			})
		}
	}

	return leaves
}

// insert places a new resting order at its price level, creating the level
// if necessary, and emits the ADD market update.
func (b *Book) insert(clientID types.ClientID, clientOrderID types.OrderID, marketOrderID types.OrderID, side types.Side, price types.Price, qty types.Qty) {
	levelIdx, isNewLevel := b.findOrCreateLevel(side, price)
	lvl := b.levels.At(levelIdx)

	priority := types.Priority(1)
	if !isNewLevel {
		tailIdx := b.orders.At(lvl.firstOrder).prev
		priority = b.orders.At(tailIdx).priority + 1
	}

	orderIdx, o, ok := b.orders.Allocate()
	if !ok {
		b.logger.Error("order arena exhausted", zap.Uint32("ticker_id", uint32(b.tickerID)))
		panic(terr.New(terr.ErrOrderBookFull, "order arena exhausted"))
	}
	*o = order{
		tickerID:      b.tickerID,
		clientID:      clientID,
		clientOrderID: clientOrderID,
		marketOrderID: marketOrderID,
		side:          side,
		price:         price,
		qty:           qty,
		priority:      priority,
	}

	if isNewLevel {
		o.prev, o.next = orderIdx, orderIdx
		lvl.firstOrder = orderIdx
	} else {
		headIdx := lvl.firstOrder
		head := b.orders.At(headIdx)
		tailIdx := head.prev
		tail := b.orders.At(tailIdx)

		o.prev = tailIdx
		o.next = headIdx
		tail.next = orderIdx
		head.prev = orderIdx
	}

	b.clientOrderIndex[clientID][clientOrderID] = orderIdx

	b.onUpdate(types.MarketUpdate{
		Type:     types.MDAdd,
		OrderID:  marketOrderID,
		TickerID: b.tickerID,
		Side:     side,
		Price:    price,
		Qty:      qty,
		Priority: priority,
	})
}

// findOrCreateLevel returns the arena index of the price level for
// (side, price), creating and splicing it into the side's sorted circular
// list if it does not already exist.
func (b *Book) findOrCreateLevel(side types.Side, price types.Price) (idx uint32, isNew bool) {
	slot := priceSlot(price)
	existing := b.priceIndex[slot]
	if existing != pool.NoIndex {
		lvl := b.levels.At(existing)
		if lvl.price == price && lvl.side == side {
			return existing, false
		}
		// Collision: Design Note / Open Question — the price-range
		// contract is the caller's responsibility; this module does not
		// guess at a sparse-map fallback.
	}

	newIdx, newLvl, ok := b.levels.Allocate()
	if !ok {
		b.logger.Error("price level arena exhausted", zap.Uint32("ticker_id", uint32(b.tickerID)))
		panic(terr.New(terr.ErrOrderBookFull, "price level arena exhausted"))
	}
	*newLvl = level{side: side, price: price, firstOrder: pool.NoIndex}
	b.priceIndex[slot] = newIdx

	head := b.headFor(side)
	if head == pool.NoIndex {
		newLvl.prevLevel, newLvl.nextLevel = newIdx, newIdx
		b.setHead(side, newIdx)
		return newIdx, true
	}

	// Walk from the current best looking for the first level whose
	// priority is worse than the new price, and splice before it.
	cursor := head
	for {
		cur := b.levels.At(cursor)
		if better(side, price, cur.price) {
			break
		}
		cursor = cur.nextLevel
		if cursor == head {
			break
		}
	}

	target := b.levels.At(cursor)
	prevIdx := target.prevLevel
	prev := b.levels.At(prevIdx)

	newLvl.prevLevel = prevIdx
	newLvl.nextLevel = cursor
	prev.nextLevel = newIdx
	target.prevLevel = newIdx

	if better(side, price, b.levels.At(head).price) {
		b.setHead(side, newIdx)
	}

	return newIdx, true
}

// removeOrderFromLevel unlinks an order from its level's circular list,
// removing the level entirely if it was the only order there.
func (b *Book) removeOrderFromLevel(side types.Side, levelIdx, orderIdx uint32) {
	lvl := b.levels.At(levelIdx)
	o := b.orders.At(orderIdx)

	if o.prev == orderIdx {
		// Only order at this level: drop the whole level.
		b.removeLevel(side, levelIdx)
	} else {
		prev := b.orders.At(o.prev)
		next := b.orders.At(o.next)
		prev.next = o.next
		next.prev = o.prev
		if lvl.firstOrder == orderIdx {
			lvl.firstOrder = o.next
		}
	}

	idx := b.clientOrderIndex[o.clientID][o.clientOrderID]
	if idx == orderIdx {
		b.clientOrderIndex[o.clientID][o.clientOrderID] = pool.NoIndex
	}
	b.orders.Deallocate(orderIdx)
}

// removeLevel unlinks a price level from its side's circular list and
// returns it to the pool.
func (b *Book) removeLevel(side types.Side, levelIdx uint32) {
	lvl := b.levels.At(levelIdx)
	slot := priceSlot(lvl.price)

	if lvl.nextLevel == levelIdx {
		b.setHead(side, pool.NoIndex)
	} else {
		prev := b.levels.At(lvl.prevLevel)
		next := b.levels.At(lvl.nextLevel)
		prev.nextLevel = lvl.nextLevel
		next.prevLevel = lvl.prevLevel
		if b.headFor(side) == levelIdx {
			b.setHead(side, lvl.nextLevel)
		}
	}

	if b.priceIndex[slot] == levelIdx {
		b.priceIndex[slot] = pool.NoIndex
	}
	b.levels.Deallocate(levelIdx)
}

// Cancel removes a resting order placed by (clientID, clientOrderID). It
// never matches. Unknown pairs produce CANCEL_REJECTED and no market
// update, per spec.md §4.3's failure semantics.
func (b *Book) Cancel(clientID types.ClientID, clientOrderID types.OrderID, tickerID types.TickerID) {
	orderIdx := pool.NoIndex
	if int(clientID) < types.MaxClients && int(clientOrderID) < types.MaxOrderIDs {
		orderIdx = b.clientOrderIndex[clientID][clientOrderID]
	}
	if orderIdx == pool.NoIndex || !b.orders.InUse(orderIdx) {
		b.onResponse(types.ClientResponse{
			Type:          types.RespCancelRejected,
			ClientID:      clientID,
			TickerID:      tickerID,
			ClientOrderID: clientOrderID,
		})
		return
	}

	o := b.orders.At(orderIdx)
	side := o.side
	price := o.price
	marketOrderID := o.marketOrderID

	slot := priceSlot(price)
	levelIdx := b.priceIndex[slot]

	b.removeOrderFromLevel(side, levelIdx, orderIdx)

	b.onResponse(types.ClientResponse{
		Type:          types.RespCancelled,
		ClientID:      clientID,
		TickerID:      tickerID,
		ClientOrderID: clientOrderID,
		MarketOrderID: marketOrderID,
		Side:          side,
		Price:         price,
	})
	b.onUpdate(types.MarketUpdate{
		Type:     types.MDCancel,
		OrderID:  marketOrderID,
		TickerID: tickerID,
		Side:     side,
		Price:    price,
	})
	b.publishBBO()
}

// BBO returns the most recently published best bid and ask prices, or
// types.PriceInvalid when a side is empty. Safe to call from any goroutine:
// it reads the atomic snapshot published by publishBBO, never bidsHead/
// asksHead/the level pool directly.
func (b *Book) BBO() (bid, ask types.Price) {
	snap := b.bbo.Load()
	return snap.bid, snap.ask
}
