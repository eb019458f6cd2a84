package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandJSONRoundTrip(t *testing.T) {
	cmd := Command{Action: "add_ticker", TickerID: 3, Symbol: "TICKER-3"}

	raw, err := json.Marshal(cmd)
	require.NoError(t, err)

	var got Command
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, cmd, got)
}

func TestCommandOmitsEmptyOptionalFields(t *testing.T) {
	raw, err := json.Marshal(Command{Action: "archive"})
	require.NoError(t, err)
	require.JSONEq(t, `{"action":"archive"}`, string(raw))
}

func TestConnectFailsOnUnreachableURL(t *testing.T) {
	_, err := Connect(nil, "nats://127.0.0.1:0", 10)
	require.Error(t, err)
}
