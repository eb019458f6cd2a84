package marketdata

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) Send(dest *net.UDPAddr, buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.sent = append(f.sent, cp)
	return nil
}

func TestPublisherSendsAndTeesEveryRecord(t *testing.T) {
	updates := queue.New[types.MDPMarketUpdate](16)
	tee := queue.New[types.MDPMarketUpdate](16)
	sender := &fakeSender{}

	p := NewPublisher(logging.New("publisher-test", "error", 16), updates, tee, sender, &net.UDPAddr{})
	p.Start()
	defer p.Stop()

	updates.Push(types.MDPMarketUpdate{SequenceNumber: 1, Update: types.MarketUpdate{Type: types.MDAdd, OrderID: 1, TickerID: 0, Price: 100, Qty: 5}})
	updates.Push(types.MDPMarketUpdate{SequenceNumber: 2, Update: types.MarketUpdate{Type: types.MDCancel, OrderID: 1, TickerID: 0}})

	require.Eventually(t, func() bool {
		teed, ok := tee.Pop()
		if !ok {
			return false
		}
		require.EqualValues(t, 1, teed.SequenceNumber)
		return true
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return len(sender.sent) >= 2 }, time.Second, time.Millisecond)

	decoded, ok := types.DecodeMDPMarketUpdate(sender.sent[0])
	require.True(t, ok)
	require.Equal(t, types.MDAdd, decoded.Update.Type)
	require.EqualValues(t, 100, decoded.Update.Price)
}
