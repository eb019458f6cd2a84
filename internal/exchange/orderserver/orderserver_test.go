package orderserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func newTestServer() *Server {
	e := matching.NewEngine(logging.New("orderserver-test", "error", 16), []types.TickerID{0})
	seq := matching.NewFIFOSequencer(e)
	return NewServer(logging.New("orderserver-test", "error", 16), "", seq, e.Responses())
}

// TestCheckInboundSequenceAcceptsStartingAtOne mirrors the outbound
// per-client sequence's starting value (spec.md §3): the first request from
// a client must carry sequence number 1.
func TestCheckInboundSequenceAcceptsStartingAtOne(t *testing.T) {
	s := newTestServer()
	require.True(t, s.checkInboundSequence(1, 1))
	require.True(t, s.checkInboundSequence(1, 2))
	require.True(t, s.checkInboundSequence(1, 3))
}

// TestCheckInboundSequenceRejectsGap verifies a strict +1 check per
// spec.md §3/§5: a skipped sequence number is rejected, and the expected
// counter does not advance past the gap.
func TestCheckInboundSequenceRejectsGap(t *testing.T) {
	s := newTestServer()
	require.True(t, s.checkInboundSequence(1, 1))
	require.False(t, s.checkInboundSequence(1, 3)) // gap: 2 never arrived
	require.True(t, s.checkInboundSequence(1, 2))  // still expects 2
	require.True(t, s.checkInboundSequence(1, 3))
}

// TestCheckInboundSequenceIsPerClient verifies each client has its own
// independent expected-sequence counter.
func TestCheckInboundSequenceIsPerClient(t *testing.T) {
	s := newTestServer()
	require.True(t, s.checkInboundSequence(1, 1))
	require.True(t, s.checkInboundSequence(2, 1))
	require.True(t, s.checkInboundSequence(1, 2))
	require.True(t, s.checkInboundSequence(2, 2))
}

// TestCheckInboundSequenceRejectsZero rejects an unsequenced/zero-valued
// first request; the convention starts at 1, not 0.
func TestCheckInboundSequenceRejectsZero(t *testing.T) {
	s := newTestServer()
	require.False(t, s.checkInboundSequence(1, 0))
}
