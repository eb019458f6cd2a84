// Package gateway is the trading-participant side of the order-send path:
// it dials the exchange's order server, stamps each outgoing request with
// a per-client outbound sequence number, and validates the inbound
// response sequence strictly, grounded on
// original_source/trading/order_gateway/Gateway.{hpp,cc}. It is a
// supplemental component (SPEC_FULL.md) — spec.md itself treats the order
// manager only as an interface the matching core dispatches through.
package gateway

import (
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// Gateway owns one TCP connection to the order server for a single client,
// sending outgoing requests and validating incoming responses. Mirrors the
// original's next_outgoing_sequence_number/next_expected_sequence_number
// pair, both starting at 1.
type Gateway struct {
	logger   *logging.Logger
	clientID types.ClientID

	conn net.Conn

	outgoing *queue.Queue[types.ClientRequest]
	incoming *queue.Queue[types.OMClientResponse]

	nextOutgoingSeq uint64
	nextExpectedSeq uint64

	running atomic.Bool
	doneC   chan struct{}
}

// Dial connects to the order server at addr on behalf of clientID.
// outgoing is drained by the gateway's send loop; validated responses are
// pushed to incoming for the strategy dispatcher to read.
func Dial(logger *logging.Logger, addr string, clientID types.ClientID, outgoing *queue.Queue[types.ClientRequest], incoming *queue.Queue[types.OMClientResponse]) (*Gateway, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		logger:          logger,
		clientID:        clientID,
		conn:            conn,
		outgoing:        outgoing,
		incoming:        incoming,
		nextOutgoingSeq: 1,
		nextExpectedSeq: 1,
		doneC:           make(chan struct{}),
	}, nil
}

// Start spawns the send and receive loops.
func (g *Gateway) Start() {
	g.running.Store(true)
	go g.sendLoop()
	go g.recvLoop()
}

// Stop closes the connection, unblocking both loops.
func (g *Gateway) Stop() {
	g.running.Store(false)
	_ = g.conn.Close()
	close(g.doneC)
}

// sendLoop drains outgoing, stamping each request with this client's next
// outbound sequence number before writing it to the wire.
func (g *Gateway) sendLoop() {
	var buf [types.OMClientRequestWireSize]byte
	for g.running.Load() {
		req, ok := g.outgoing.Pop()
		if !ok {
			continue
		}
		req.ClientID = g.clientID

		msg := types.OMClientRequest{SequenceNumber: g.nextOutgoingSeq, Request: req}
		g.nextOutgoingSeq++

		msg.Encode(buf[:])
		if _, err := g.conn.Write(buf[:]); err != nil {
			g.logger.Error("order gateway send failed", zap.Error(err))
			return
		}
	}
}

// recvLoop reads framed responses and validates the inbound sequence
// number and client id, mirroring recvCallback's two checks in the
// original: a response for another client id, or one that is not exactly
// next_expected_sequence_number, is logged and discarded rather than
// forwarded to the strategy layer.
func (g *Gateway) recvLoop() {
	buf := make([]byte, types.OMClientResponseWireSize)
	for g.running.Load() {
		if _, err := readFull(g.conn, buf); err != nil {
			if g.running.Load() {
				g.logger.Warn("order gateway read error", zap.Error(err))
			}
			return
		}
		resp, ok := types.DecodeOMClientResponse(buf)
		if !ok {
			g.logger.Warn("malformed response frame")
			continue
		}
		if resp.Response.ClientID != g.clientID {
			g.logger.Warn("response for unexpected client id",
				zap.Uint32("expected", uint32(g.clientID)),
				zap.Uint32("got", uint32(resp.Response.ClientID)))
			continue
		}
		if resp.SequenceNumber != g.nextExpectedSeq {
			g.logger.Warn("response sequence mismatch",
				zap.Uint64("expected", g.nextExpectedSeq),
				zap.Uint64("got", resp.SequenceNumber))
			continue
		}
		g.nextExpectedSeq++
		g.incoming.Push(resp)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
