package marketdata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func newTestSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	tee := queue.New[types.MDPMarketUpdate](16)
	return NewSynthesizer(logging.New("snapshot-test", "error", 16), tee, nil, nil, []types.TickerID{0, 1})
}

func TestSynthesizerAddModifyCancel(t *testing.T) {
	s := newTestSynthesizer(t)

	s.apply(types.MDPMarketUpdate{SequenceNumber: 1, Update: types.MarketUpdate{
		Type: types.MDAdd, OrderID: 7, TickerID: 0, Side: types.Buy, Price: 100, Qty: 5, Priority: 1,
	}})
	require.Contains(t, s.books[0], types.OrderID(7))
	require.EqualValues(t, 5, s.books[0][7].qty)

	s.apply(types.MDPMarketUpdate{SequenceNumber: 2, Update: types.MarketUpdate{
		Type: types.MDModify, OrderID: 7, TickerID: 0, Price: 100, Qty: 3, Priority: 1,
	}})
	require.EqualValues(t, 3, s.books[0][7].qty)

	s.apply(types.MDPMarketUpdate{SequenceNumber: 3, Update: types.MarketUpdate{
		Type: types.MDCancel, OrderID: 7, TickerID: 0,
	}})
	require.NotContains(t, s.books[0], types.OrderID(7))
}

func TestSynthesizerIgnoresTradeClearAndBoundaryTypes(t *testing.T) {
	s := newTestSynthesizer(t)

	for i, typ := range []types.MarketUpdateType{types.MDTrade, types.MDClear, types.MDSnapshotStart, types.MDSnapshotEnd, types.MDInvalid} {
		s.apply(types.MDPMarketUpdate{SequenceNumber: uint64(i + 1), Update: types.MarketUpdate{Type: typ, TickerID: 0}})
	}
	require.Empty(t, s.books[0])
}

func TestSynthesizerPanicsOnSequenceGap(t *testing.T) {
	s := newTestSynthesizer(t)
	s.apply(types.MDPMarketUpdate{SequenceNumber: 1, Update: types.MarketUpdate{Type: types.MDAdd, OrderID: 1, TickerID: 0}})

	require.Panics(t, func() {
		s.apply(types.MDPMarketUpdate{SequenceNumber: 3, Update: types.MarketUpdate{Type: types.MDAdd, OrderID: 2, TickerID: 0}})
	})
}

func TestSynthesizerTracksMultipleTickersIndependently(t *testing.T) {
	s := newTestSynthesizer(t)

	s.apply(types.MDPMarketUpdate{SequenceNumber: 1, Update: types.MarketUpdate{Type: types.MDAdd, OrderID: 1, TickerID: 0, Qty: 1}})
	s.apply(types.MDPMarketUpdate{SequenceNumber: 2, Update: types.MarketUpdate{Type: types.MDAdd, OrderID: 1, TickerID: 1, Qty: 2}})

	require.Len(t, s.books[0], 1)
	require.Len(t, s.books[1], 1)
	require.EqualValues(t, 1, s.books[0][1].qty)
	require.EqualValues(t, 2, s.books[1][1].qty)
}
