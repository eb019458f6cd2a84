package marketdata

import (
	"net"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// snapshotInterval is the fixed period between snapshot cycles (spec.md
// §4.7: "fires when now - last_snapshot_time > 60s").
const snapshotInterval = 60 * time.Second

// liveOrder is the synthesizer's last-known-state record for one resting
// order. Kept as a map entry per ticker rather than a literal fixed-size
// `ticker_orders[ticker_id][market_order_id]` array — at MaxOrderIDs ==
// 1<<20 per ticker the array form would reserve megabytes per ticker
// whether or not anything rests there; the map preserves the same slot
// semantics (present/absent, not size) with no accuracy loss (see the
// design deviation recorded under internal/exchange/marketdata in DESIGN.md).
type liveOrder struct {
	side     types.Side
	price    types.Price
	qty      types.Qty
	priority types.Priority
}

// Synthesizer consumes the publisher's teed incremental stream, maintains
// per-ticker reconstructed book state, and periodically emits a full
// snapshot cycle on its own multicast sender, per spec.md §4.7.
type Synthesizer struct {
	logger *logging.Logger

	tee *queue.Queue[types.MDPMarketUpdate]

	sender mcastSender
	dest   *net.UDPAddr

	tickers []types.TickerID
	books   map[types.TickerID]map[types.OrderID]*liveOrder

	lastIncrementSeq uint64
	haveSeen         bool

	metrics *Metrics

	running atomic.Bool
	doneC   chan struct{}
}

// NewSynthesizer constructs a Synthesizer tracking state for tickers,
// reading the publisher's tee, and emitting snapshots on sender/dest.
func NewSynthesizer(logger *logging.Logger, tee *queue.Queue[types.MDPMarketUpdate], sender mcastSender, dest *net.UDPAddr, tickers []types.TickerID) *Synthesizer {
	s := &Synthesizer{
		logger:  logger,
		tee:     tee,
		sender:  sender,
		dest:    dest,
		tickers: tickers,
		books:   make(map[types.TickerID]map[types.OrderID]*liveOrder, len(tickers)),
		doneC:   make(chan struct{}),
	}
	for _, t := range tickers {
		s.books[t] = make(map[types.OrderID]*liveOrder)
	}
	return s
}

// SetMetrics attaches ambient Prometheus instrumentation.
func (s *Synthesizer) SetMetrics(m *Metrics) { s.metrics = m }

// Start spawns the synthesizer's dedicated goroutine (spec.md §5: "one
// snapshot-synthesizer thread").
func (s *Synthesizer) Start() {
	s.running.Store(true)
	go s.run()
}

// Stop requests the synthesizer to exit.
func (s *Synthesizer) Stop() {
	s.running.Store(false)
	<-s.doneC
}

func (s *Synthesizer) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.doneC)

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for s.running.Load() {
		select {
		case <-ticker.C:
			s.publishSnapshot()
		default:
		}

		rec, ok := s.tee.Pop()
		if !ok {
			continue
		}
		s.apply(rec)
	}
}

// apply updates per-ticker reconstructed state per the table in spec.md
// §4.7, and asserts strict +1 monotonicity on the incremental sequence
// (the tee is gap-free by construction — any gap is a programmer error in
// the publisher wiring, not a recoverable consumer condition).
func (s *Synthesizer) apply(rec types.MDPMarketUpdate) {
	if s.haveSeen && rec.SequenceNumber != s.lastIncrementSeq+1 {
		s.logger.Error("incremental tee sequence gap",
			zap.Uint64("expected", s.lastIncrementSeq+1),
			zap.Uint64("got", rec.SequenceNumber))
		panic("marketdata: synthesizer tee gap")
	}
	s.lastIncrementSeq = rec.SequenceNumber
	s.haveSeen = true

	book := s.books[rec.Update.TickerID]
	if book == nil {
		return
	}

	switch rec.Update.Type {
	case types.MDAdd:
		book[rec.Update.OrderID] = &liveOrder{
			side: rec.Update.Side, price: rec.Update.Price,
			qty: rec.Update.Qty, priority: rec.Update.Priority,
		}
	case types.MDModify:
		if o, ok := book[rec.Update.OrderID]; ok {
			o.price = rec.Update.Price
			o.qty = rec.Update.Qty
		}
	case types.MDCancel:
		delete(book, rec.Update.OrderID)
	default:
		// TRADE, CLEAR, SNAPSHOT_START, SNAPSHOT_END, INVALID: ignored.
	}
}

// publishSnapshot emits one full SNAPSHOT_START / CLEAR+orders-per-ticker /
// SNAPSHOT_END cycle, each message carrying a cycle-local sequence number
// starting at 0 (spec.md §4.7). The multicast write failures share the
// publisher's fatal-on-short-write contract.
func (s *Synthesizer) publishSnapshot() {
	cycleSeq := uint64(0)
	joinPoint := s.lastIncrementSeq

	send := func(u types.MarketUpdate) {
		msg := types.MDPMarketUpdate{SequenceNumber: cycleSeq, Update: u}
		cycleSeq++
		var buf [types.MDPMarketUpdateWireSize]byte
		msg.Encode(buf[:])
		if err := s.sender.Send(s.dest, buf[:]); err != nil {
			s.logger.Error("snapshot multicast send failed", zap.Error(err))
			panic("marketdata: snapshot send failed")
		}
	}

	send(types.MarketUpdate{Type: types.MDSnapshotStart, OrderID: types.OrderID(joinPoint)})

	for _, t := range s.tickers {
		send(types.MarketUpdate{Type: types.MDClear, TickerID: t})
		for orderID, o := range s.books[t] {
			send(types.MarketUpdate{
				Type: types.MDAdd, OrderID: orderID, TickerID: t,
				Side: o.side, Price: o.price, Qty: o.qty, Priority: o.priority,
			})
		}
	}

	send(types.MarketUpdate{Type: types.MDSnapshotEnd, OrderID: types.OrderID(joinPoint)})

	if s.metrics != nil {
		s.metrics.SnapshotsPublished.Inc()
	}
}
