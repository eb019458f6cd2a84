package matching

import (
	"sort"
	"sync"
	"time"

	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// pendingRequest pairs a decoded request with the kernel-observed receive
// time of the TCP datagram it arrived in.
type pendingRequest struct {
	rxTime  time.Time
	request types.ClientRequest
}

// FIFOSequencer batches one poll-loop iteration's worth of decoded client
// requests and publishes them into the engine's request queue ordered by
// receipt time, so that arrival order is deterministic across clients even
// though the order server may drain their sockets in any order within a
// batch. Grounded on spec.md §4.5.
//
// internal/exchange/orderserver runs one goroutine per client connection,
// each calling Add then SequenceAndPublish on this one shared sequencer
// (see DESIGN.md's Go-idiomatic per-connection-batch note); mu serializes
// every mutation of pending so that append/sort/clear, and the resulting
// Requests().Push calls into the engine's single-writer SPSC queue, never
// run concurrently from two client goroutines.
type FIFOSequencer struct {
	engine *Engine

	mu      sync.Mutex
	pending []pendingRequest
}

// NewFIFOSequencer constructs a sequencer feeding engine's request queue.
func NewFIFOSequencer(engine *Engine) *FIFOSequencer {
	return &FIFOSequencer{
		engine:  engine,
		pending: make([]pendingRequest, 0, types.MaxPendingRequests),
	}
}

// Add stages a decoded request for the current batch. Exceeding
// MaxPendingRequests is a fatal configuration error per §4.5 ("Batch size
// is bounded; overflow is fatal").
func (s *FIFOSequencer) Add(rxTime time.Time, request types.ClientRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= types.MaxPendingRequests {
		panic("sequencer: pending request batch overflow")
	}
	s.pending = append(s.pending, pendingRequest{rxTime: rxTime, request: request})
}

// SequenceAndPublish stable-sorts the staged batch by rxTime ascending and
// appends it, in that order, to the matching engine's request queue. The
// batch is cleared for reuse afterward.
func (s *FIFOSequencer) SequenceAndPublish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].rxTime.Before(s.pending[j].rxTime)
	})
	for _, p := range s.pending {
		s.engine.Requests().Push(p.request)
	}
	s.pending = s.pending[:0]
}
