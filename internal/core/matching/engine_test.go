package matching_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func TestEngineStartDispatchStop(t *testing.T) {
	e := matching.NewEngine(logging.New("engine-test", "error", 16), []types.TickerID{0})
	require.Equal(t, matching.StateIdle, e.State())

	e.Start()
	require.Eventually(t, func() bool { return e.State() == matching.StateRunning }, time.Second, time.Millisecond)

	e.Requests().Push(types.ClientRequest{
		Type: types.ReqNew, ClientID: 1, TickerID: 0,
		OrderID: 1, Side: types.Buy, Price: 100, Qty: 10,
	})

	var resp types.OMClientResponse
	require.Eventually(t, func() bool {
		r, ok := e.Responses().Pop()
		if ok {
			resp = r
			return true
		}
		return false
	}, time.Second, time.Millisecond)
	require.Equal(t, types.RespAccepted, resp.Response.Type)
	require.EqualValues(t, 1, resp.SequenceNumber)

	e.Stop()
	require.Equal(t, matching.StateStopping, e.State())
}

func TestEngineMarketUpdateSequenceIsGlobalAndMonotonic(t *testing.T) {
	e := matching.NewEngine(logging.New("engine-test", "error", 16), []types.TickerID{0, 1})
	e.Start()
	defer e.Stop()

	e.Requests().Push(types.ClientRequest{Type: types.ReqNew, ClientID: 1, TickerID: 0, OrderID: 1, Side: types.Buy, Price: 100, Qty: 5})
	e.Requests().Push(types.ClientRequest{Type: types.ReqNew, ClientID: 2, TickerID: 1, OrderID: 1, Side: types.Sell, Price: 50, Qty: 5})

	var seqs []uint64
	require.Eventually(t, func() bool {
		for {
			u, ok := e.Updates().Pop()
			if !ok {
				break
			}
			seqs = append(seqs, u.SequenceNumber)
		}
		return len(seqs) >= 2
	}, time.Second, time.Millisecond)

	for i := 1; i < len(seqs); i++ {
		require.Greater(t, seqs[i], seqs[i-1])
	}
}
