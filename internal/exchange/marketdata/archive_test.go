package marketdata

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func TestWriteArchiveRoundTrips(t *testing.T) {
	s := newTestSynthesizer(t)

	s.apply(types.MDPMarketUpdate{SequenceNumber: 0, Update: types.MarketUpdate{
		Type: types.MDAdd, TickerID: 0, OrderID: 7, Side: types.Buy, Price: 100, Qty: 5,
	}})

	var buf bytes.Buffer
	require.NoError(t, s.WriteArchive(&buf))
	require.NotZero(t, buf.Len())

	dec, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer dec.Close()

	payload, err := io.ReadAll(dec)
	require.NoError(t, err)

	var dump map[uint32][]archiveOrder
	require.NoError(t, json.Unmarshal(payload, &dump))
	require.Len(t, dump[0], 1)
	require.EqualValues(t, 7, dump[0][0].OrderID)
}

func TestWriteArchiveEmptyBooks(t *testing.T) {
	s := newTestSynthesizer(t)

	var buf bytes.Buffer
	require.NoError(t, s.WriteArchive(&buf))
	require.NotZero(t, buf.Len())
}
