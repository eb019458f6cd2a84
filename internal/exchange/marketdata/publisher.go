// Package marketdata implements the exchange side of the market-data
// pipeline: the incremental publisher and the snapshot synthesizer,
// grounded on spec.md §4.6/§4.7 and, for their goroutine/thread shape, on
// the teacher's internal/hft/app one-loop-per-concern idiom.
package marketdata

import (
	"net"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// mcastSender is satisfied by *transport.McastSender in production and by a
// fake in tests, so the publish loop can be exercised without a real
// multicast-capable network.
type mcastSender interface {
	Send(dest *net.UDPAddr, buf []byte) error
}

// Publisher owns the incremental multicast sender. It drains the matching
// engine's market-update queue and, for each record, sends it on the wire
// and tees an identical copy to the snapshot synthesizer's SPSC queue.
// Per spec.md §4.6 the sequence number is already stamped serially by the
// matching engine (the single writer into this queue), so the publisher
// itself does no sequencing — only transport and tee.
type Publisher struct {
	logger *logging.Logger

	updates *queue.Queue[types.MDPMarketUpdate]
	tee     *queue.Queue[types.MDPMarketUpdate]

	sender mcastSender
	dest   *net.UDPAddr

	metrics *Metrics

	running atomic.Bool
	doneC   chan struct{}
}

// NewPublisher constructs a Publisher reading from updates, writing wire
// datagrams to sender/dest, and teeing every record into tee (read by a
// Synthesizer).
func NewPublisher(logger *logging.Logger, updates, tee *queue.Queue[types.MDPMarketUpdate], sender mcastSender, dest *net.UDPAddr) *Publisher {
	return &Publisher{
		logger:  logger,
		updates: updates,
		tee:     tee,
		sender:  sender,
		dest:    dest,
		doneC:   make(chan struct{}),
	}
}

// SetMetrics attaches ambient Prometheus instrumentation.
func (p *Publisher) SetMetrics(m *Metrics) { p.metrics = m }

// Start spawns the publisher's dedicated goroutine (spec.md §5: "one
// market-data publisher thread").
func (p *Publisher) Start() {
	p.running.Store(true)
	go p.run()
}

// Stop requests the publisher to exit after its current record.
func (p *Publisher) Stop() {
	p.running.Store(false)
	<-p.doneC
}

func (p *Publisher) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(p.doneC)

	var buf [types.MDPMarketUpdateWireSize]byte
	for p.running.Load() {
		rec, ok := p.updates.Pop()
		if !ok {
			continue
		}

		rec.Encode(buf[:])
		if err := p.sender.Send(p.dest, buf[:]); err != nil {
			// A short/failed send on a bounded-size datagram is a fatal
			// configuration error per §4.6.
			p.logger.Error("incremental multicast send failed", zap.Error(err))
			panic("marketdata: incremental send failed")
		}
		if p.metrics != nil {
			p.metrics.IncrementalsSent.Inc()
		}

		p.tee.Push(rec)
	}
}
