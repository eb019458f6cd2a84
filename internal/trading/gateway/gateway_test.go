package gateway

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func newTestPair(t *testing.T) (*Gateway, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverConnC := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		require.NoError(t, err)
		serverConnC <- c
	}()

	out := queue.New[types.ClientRequest](16)
	in := queue.New[types.OMClientResponse](16)
	g, err := Dial(logging.New("gateway-test", "error", 16), ln.Addr().String(), 7, out, in)
	require.NoError(t, err)

	serverConn := <-serverConnC
	t.Cleanup(func() { serverConn.Close() })
	return g, serverConn
}

func TestGatewayStampsOutboundSequenceStartingAtOne(t *testing.T) {
	g, serverConn := newTestPair(t)
	g.Start()
	defer g.Stop()

	g.outgoing.Push(types.ClientRequest{Type: types.ReqNew, TickerID: 0, OrderID: 1, Side: types.Buy, Price: 100, Qty: 5})

	buf := make([]byte, types.OMClientRequestWireSize)
	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := readFull(serverConn, buf)
	require.NoError(t, err)

	req, ok := types.DecodeOMClientRequest(buf)
	require.True(t, ok)
	require.EqualValues(t, 1, req.SequenceNumber)
	require.EqualValues(t, 7, req.Request.ClientID)
}

func TestGatewayAcceptsInSequenceResponse(t *testing.T) {
	g, serverConn := newTestPair(t)
	g.Start()
	defer g.Stop()

	var buf [types.OMClientResponseWireSize]byte
	resp := types.OMClientResponse{SequenceNumber: 1, Response: types.ClientResponse{Type: types.RespAccepted, ClientID: 7}}
	resp.Encode(buf[:])
	_, err := serverConn.Write(buf[:])
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := g.incoming.Pop()
		return ok
	}, time.Second, time.Millisecond)
}

func TestGatewayDropsResponseWithWrongClientID(t *testing.T) {
	g, serverConn := newTestPair(t)
	g.Start()
	defer g.Stop()

	var buf [types.OMClientResponseWireSize]byte
	resp := types.OMClientResponse{SequenceNumber: 1, Response: types.ClientResponse{Type: types.RespAccepted, ClientID: 99}}
	resp.Encode(buf[:])
	_, err := serverConn.Write(buf[:])
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, ok := g.incoming.Pop()
	require.False(t, ok)
}

func TestGatewayDropsResponseWithSequenceGap(t *testing.T) {
	g, serverConn := newTestPair(t)
	g.Start()
	defer g.Stop()

	var buf [types.OMClientResponseWireSize]byte
	resp := types.OMClientResponse{SequenceNumber: 5, Response: types.ClientResponse{Type: types.RespAccepted, ClientID: 7}}
	resp.Encode(buf[:])
	_, err := serverConn.Write(buf[:])
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, ok := g.incoming.Pop()
	require.False(t, ok)
}
