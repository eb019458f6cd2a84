// Package marketdata implements the trading-participant side of the
// market-data pipeline: the incremental consumer and its gap-recovery
// state machine, grounded on spec.md §4.8.
package marketdata

import (
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// State is the consumer's gap-recovery state machine (spec.md §4.8).
type State int32

const (
	StateNormal State = iota
	StateRecovering
)

// mcastReader is satisfied by *transport.McastReceiver in production and a
// fake in tests.
type mcastReader interface {
	Read(buf []byte) (int, error)
	Close() error
}

// SnapshotJoiner opens a fresh connection to the snapshot multicast group;
// called only while entering RECOVERING (spec.md §5: "the consumer joins
// the incremental group at startup and joins the snapshot group only
// while recovering").
type SnapshotJoiner func() (mcastReader, error)

// Consumer listens on the incremental multicast group, forwards in-sync
// updates to the trade engine's input queue, and on any sequence gap
// drives the recovery state machine described in spec.md §4.8.
type Consumer struct {
	logger *logging.Logger

	// sessionID tags every recovery-cycle log line so operators can
	// correlate entries across a single consumer's lifetime when many
	// participant processes share one log sink.
	sessionID uuid.UUID

	incoming     mcastReader
	joinSnapshot SnapshotJoiner
	snapshotConn mcastReader

out *queue.Queue[types.MDPMarketUpdate]

	// frames is the single channel both readLoop goroutines funnel raw
	// frames into; only the process goroutine reads and decodes it, so the recovery
	// state below has exactly one writer despite two socket readers.
	frames chan taggedFrame

	state             State
	nextExpectedSeq   uint64
	snapshotQueued    map[uint64]types.MDPMarketUpdate
	incrementalQueued map[uint64]types.MDPMarketUpdate

	metrics *Metrics

	running atomic.Bool
	doneC   chan struct{}
}

type frameSource int

const (
	sourceIncremental frameSource = iota
	sourceSnapshot
)

type taggedFrame struct {
	source frameSource
	data   []byte
}

// NewConsumer constructs a Consumer reading the incremental group via
// incoming, able to join the snapshot group on demand via joinSnapshot,
// and forwarding recovered/in-sync updates into out.
func NewConsumer(logger *logging.Logger, incoming mcastReader, joinSnapshot SnapshotJoiner, out *queue.Queue[types.MDPMarketUpdate]) *Consumer {
	return &Consumer{
		logger:            logger,
		sessionID:         uuid.New(),
		incoming:          incoming,
		joinSnapshot:      joinSnapshot,
		out:               out,
		state:             StateNormal,
		nextExpectedSeq:   1,
		snapshotQueued:    make(map[uint64]types.MDPMarketUpdate),
		incrementalQueued: make(map[uint64]types.MDPMarketUpdate),
		frames:            make(chan taggedFrame, 256),
		doneC:             make(chan struct{}),
	}
}

// SetMetrics attaches ambient Prometheus instrumentation.
func (c *Consumer) SetMetrics(m *Metrics) { c.metrics = m }

// State returns the consumer's current recovery state.
func (c *Consumer) State() State { return c.state }

// Start spawns the consumer's goroutines: one reading the incremental
// socket, and one processing decoded frames and driving recovery (spec.md
// §5: "one market-data-consumer thread per participant" — split here into
// readers and a single processor so a blocking UDP Read never stalls, and
// so the recovery state machine below has exactly one writer even while a
// second reader goroutine joins the snapshot group mid-recovery).
func (c *Consumer) Start() {
	c.running.Store(true)
	go c.readLoop(c.incoming, sourceIncremental)
	go c.process()
}

// Stop requests the consumer to exit. Since Read blocks, Stop closes the
// socket(s) to unblock it, matching the teacher's shutdown-by-close idiom
// used throughout internal/hft/app.
func (c *Consumer) Stop() {
	c.running.Store(false)
	_ = c.incoming.Close()
	if c.snapshotConn != nil {
		_ = c.snapshotConn.Close()
	}
	close(c.doneC)
}

func (c *Consumer) readLoop(conn mcastReader, source frameSource) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	buf := make([]byte, types.MDPMarketUpdateWireSize)
	for c.running.Load() {
		n, err := conn.Read(buf)
		if err != nil {
			// The socket is closed either on shutdown (Stop) or when a
			// successful recovery leaves the snapshot group; either way
			// this reader's job is done.
			if c.running.Load() {
				c.logger.Warn("multicast read error, reader exiting", zap.Error(err))
			}
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case c.frames <- taggedFrame{source: source, data: cp}:
		case <-c.doneC:
			return
		}
	}
}

// process is the sole goroutine mutating recovery state; it owns the
// decode step too so a malformed-datagram log always names the source
// socket correctly.
func (c *Consumer) process() {
	for {
		select {
		case f := <-c.frames:
			msg, ok := types.DecodeMDPMarketUpdate(f.data)
			if !ok {
				// Malformed/short datagram: logged and skipped at the
				// frame boundary per §4.8's consumer failure semantics.
				c.logger.Warn("malformed datagram", zap.Int("source", int(f.source)), zap.Int("len", len(f.data)))
				continue
			}
			if f.source == sourceIncremental {
				c.onIncremental(msg)
			} else {
				c.onSnapshot(msg)
			}
		case <-c.doneC:
			return
		}
	}
}

// onIncremental implements the in-sync / gap-detect branch of §4.8.
func (c *Consumer) onIncremental(msg types.MDPMarketUpdate) {
	if c.state == StateNormal && msg.SequenceNumber == c.nextExpectedSeq {
		c.out.Push(msg)
		c.nextExpectedSeq++
		return
	}
	c.enterRecoveryIfNeeded()
	c.incrementalQueued[msg.SequenceNumber] = msg
	c.attemptRecovery()
}

// onSnapshot queues a snapshot-group message while recovering. A duplicate
// key signals the publisher began a new cycle mid-recovery and restarts
// the snapshot buffer.
func (c *Consumer) onSnapshot(msg types.MDPMarketUpdate) {
	if c.state != StateRecovering {
		return
	}
	if _, dup := c.snapshotQueued[msg.SequenceNumber]; dup {
		c.snapshotQueued = make(map[uint64]types.MDPMarketUpdate)
	}
	c.snapshotQueued[msg.SequenceNumber] = msg
	c.attemptRecovery()
}

func (c *Consumer) enterRecoveryIfNeeded() {
	if c.state == StateRecovering {
		return
	}
	c.state = StateRecovering
	c.snapshotQueued = make(map[uint64]types.MDPMarketUpdate)
	c.incrementalQueued = make(map[uint64]types.MDPMarketUpdate)

	conn, err := c.joinSnapshot()
	if err != nil {
		c.logger.Error("failed to join snapshot group", zap.String("session", c.sessionID.String()), zap.Error(err))
		panic("marketdata: cannot join snapshot group during recovery")
	}
	c.snapshotConn = conn
	c.logger.Warn("entering recovery", zap.String("session", c.sessionID.String()))
	if c.metrics != nil {
		c.metrics.RecoveriesEntered.Inc()
	}
	go c.readLoop(conn, sourceSnapshot)
}

// attemptRecovery runs the 5-step join algorithm from spec.md §4.8 after
// every enqueue. It is a no-op (returns without effect) until all five
// steps succeed.
func (c *Consumer) attemptRecovery() {
	if c.state != StateRecovering {
		return
	}

	snapKeys := sortedKeys(c.snapshotQueued)
	if len(snapKeys) == 0 {
		return
	}

	// Step 1: lowest-keyed snapshot message must be SNAPSHOT_START.
	if c.snapshotQueued[snapKeys[0]].Update.Type != types.MDSnapshotStart {
		return
	}

	// Step 2: keys must be contiguous starting from 0 (the cycle-local
	// sequence space snapshot.go resets every cycle).
	for i, k := range snapKeys {
		if k != uint64(i) {
			return
		}
	}

	// Step 3: highest key must be SNAPSHOT_END.
	last := snapKeys[len(snapKeys)-1]
	if c.snapshotQueued[last].Update.Type != types.MDSnapshotEnd {
		return
	}

	// Step 4: join-point is SNAPSHOT_END's repurposed order_id field; walk
	// incremental_queued discarding keys <= J, requiring strict
	// contiguity from J+1.
	joinPoint := uint64(c.snapshotQueued[last].Update.OrderID)

	incKeys := sortedKeys(c.incrementalQueued)
	var replay []types.MDPMarketUpdate
	expected := joinPoint + 1
	for _, k := range incKeys {
		if k <= joinPoint {
			continue
		}
		if k != expected {
			return // gap: abort, wait for more
		}
		replay = append(replay, c.incrementalQueued[k])
		expected++
	}

	// Step 5: success — replay snapshot payload (non-boundary messages)
	// then the collected incrementals, in that order.
	for _, k := range snapKeys {
		msg := c.snapshotQueued[k]
		if msg.Update.Type == types.MDSnapshotStart || msg.Update.Type == types.MDSnapshotEnd {
			continue
		}
		c.out.Push(msg)
	}
	for _, msg := range replay {
		c.out.Push(msg)
	}

	c.nextExpectedSeq = expected
	c.state = StateNormal
	c.snapshotQueued = make(map[uint64]types.MDPMarketUpdate)
	c.incrementalQueued = make(map[uint64]types.MDPMarketUpdate)
	if c.snapshotConn != nil {
		_ = c.snapshotConn.Close()
		c.snapshotConn = nil
	}
	c.logger.Info("recovery complete", zap.String("session", c.sessionID.String()), zap.Uint64("resumed_at", expected))
	if c.metrics != nil {
		c.metrics.RecoveriesCompleted.Inc()
	}
}

func sortedKeys(m map[uint64]types.MDPMarketUpdate) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
