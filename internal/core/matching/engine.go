package matching

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// State is the matching engine's run state machine, per spec.md §4.4.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// Engine owns one Book per ticker, drains the inbound request queue in
// FIFO order, and dispatches to Book.Add/Book.Cancel. It is single-threaded
// by construction: all dispatch happens on the one goroutine Start spawns.
type Engine struct {
	logger *logging.Logger

	books [types.MaxTickers]*Book

	requests *queue.Queue[types.ClientRequest]
	responses *queue.Queue[types.OMClientResponse]
	updates   *queue.Queue[types.MDPMarketUpdate]

	clientOutboundSeq [types.MaxClients]uint64
	mdSeq             uint64

	state atomic.Int32
	doneC chan struct{}

	metrics *Metrics
}

// SetMetrics attaches Prometheus instrumentation; optional, and meant to be
// called once at process wiring time (see cmd/exchange).
func (e *Engine) SetMetrics(m *Metrics) { e.metrics = m }

// NewEngine constructs an Engine with fixed-capacity request/response/
// market-update queues and one empty book per configured ticker.
func NewEngine(logger *logging.Logger, tickers []types.TickerID) *Engine {
	e := &Engine{
		logger:    logger,
		requests:  queue.New[types.ClientRequest](types.ClientRequestQueueDepth),
		responses: queue.New[types.OMClientResponse](types.ClientRequestQueueDepth),
		updates:   queue.New[types.MDPMarketUpdate](types.MarketUpdateQueueDepth),
		doneC:     make(chan struct{}),
	}
	e.mdSeq = 1
	for _, t := range tickers {
		t := t
		e.books[t] = NewBook(t, logger, e.sendMarketUpdateFor(t), e.sendResponse)
	}
	e.state.Store(int32(StateIdle))
	return e
}

// Requests returns the inbound request queue; the FIFO sequencer is the
// sole writer.
func (e *Engine) Requests() *queue.Queue[types.ClientRequest] { return e.requests }

// Responses returns the outbound client-response queue; the order server
// is the sole reader.
func (e *Engine) Responses() *queue.Queue[types.OMClientResponse] { return e.responses }

// Updates returns the outbound market-update queue; the market-data
// publisher is the sole reader.
func (e *Engine) Updates() *queue.Queue[types.MDPMarketUpdate] { return e.updates }

// State returns the engine's current run state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Books returns the configured ticker-to-book map — used by ambient
// observability (e.g. internal/exchange/adminws) to call Book.BBO from
// outside the single dispatch goroutine. BBO itself is safe to call
// concurrently with the dispatch goroutine's mutations because it reads an
// atomically published snapshot (see Book.publishBBO), not the book's
// plain bidsHead/asksHead fields.
func (e *Engine) Books() map[types.TickerID]*Book {
	out := make(map[types.TickerID]*Book, len(e.books))
	for i, b := range e.books {
		if b != nil {
			out[types.TickerID(i)] = b
		}
	}
	return out
}

func (e *Engine) sendResponse(r types.ClientResponse) {
	seq := e.clientOutboundSeq[r.ClientID] + 1
	e.clientOutboundSeq[r.ClientID] = seq
	e.responses.Push(types.OMClientResponse{SequenceNumber: seq, Response: r})
}

// sendMarketUpdateFor returns a closure bound to tickerID so each Book can
// emit updates without knowing about sequencing; the engine stamps and
// increments the single global incremental sequence (spec.md §3: "global
// across tickers").
func (e *Engine) sendMarketUpdateFor(tickerID types.TickerID) UpdateSink {
	return func(u types.MarketUpdate) {
		u.TickerID = tickerID
		seq := e.mdSeq
		e.mdSeq++
		e.updates.Push(types.MDPMarketUpdate{SequenceNumber: seq, Update: u})
	}
}

// Start spawns the dispatch goroutine. It is idempotent only in the sense
// that calling it twice spawns two goroutines racing on the same queues,
// which is a programmer error — callers start exactly one Engine.
func (e *Engine) Start() {
	e.state.Store(int32(StateRunning))
	go e.run()
}

// Stop requests the dispatch goroutine to exit after the request it is
// currently processing, per spec.md §4.4's cooperative shutdown.
func (e *Engine) Stop() {
	e.state.Store(int32(StateStopping))
	<-e.doneC
}

func (e *Engine) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(e.doneC)

	for e.State() != StateStopping {
		req, ok := e.requests.Pop()
		if !ok {
			continue
		}
		e.dispatch(req)
	}
}

func (e *Engine) dispatch(req types.ClientRequest) {
	book := e.books[req.TickerID]
	if book == nil {
		// Caller contract violation per §4.3's failure semantics: an add
		// with an invalid ticker is fatal, not recoverable.
		e.logger.Error("request for unconfigured ticker", zap.Uint32("ticker_id", uint32(req.TickerID)))
		panic("matching: request for unconfigured ticker")
	}

	start := time.Now()
	switch req.Type {
	case types.ReqNew:
		book.Add(req.ClientID, req.OrderID, req.Side, req.Price, req.Qty)
		if e.metrics != nil {
			e.metrics.OrdersTotal.WithLabelValues(req.Side.String()).Inc()
		}
	case types.ReqCancel:
		book.Cancel(req.ClientID, req.OrderID, req.TickerID)
	default:
		e.logger.Warn("unknown request type", zap.Uint8("type", uint8(req.Type)))
	}
	if e.metrics != nil {
		e.metrics.MatchLatency.Observe(time.Since(start).Seconds())
	}
}
