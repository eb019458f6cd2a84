// Package orderserver is the TCP order gateway: it accepts participant
// connections, decodes OMClientRequest frames, stamps each with a
// k-sortable correlation id for tracing, feeds the matching engine's FIFO
// sequencer, and relays the engine's outbound responses back to the
// originating client. It is ambient glue (spec.md §1 lists "order
// manager" as out of scope beyond its interface) built per the AMBIENT
// STACK section.
package orderserver

import (
	"net"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

// Server accepts client TCP connections on one listener, feeds decoded
// requests to a FIFOSequencer, and drains the matching engine's response
// queue back out to the right connection by ClientID.
type Server struct {
	logger     *logging.Logger
	listenAddr string
	sequencer  *matching.FIFOSequencer
	responses  *queue.Queue[types.OMClientResponse]

	breaker *gobreaker.CircuitBreaker

	connsMu sync.RWMutex
	conns   map[types.ClientID]net.Conn

	// expectedMu guards expectedSeq, the per-client inbound sequence
	// tracker required by spec.md §3/§5: "the per-client inbound sequence
	// number is a strict +1 check, drops abort processing for that client
	// batch." Outbound per-client sequencing starts at 1 (engine.go's
	// sendResponse); inbound mirrors that convention.
	expectedMu  sync.Mutex
	expectedSeq map[types.ClientID]uint64

	listener net.Listener
	running  bool
	doneC    chan struct{}
}

// NewServer constructs a Server bound to listenAddr, publishing decoded
// requests through sequencer and relaying responses drains from the
// matching engine's response queue. A circuit breaker wraps each
// connection's send path so one wedged client socket cannot stall the
// response relay loop — ambient transport resilience per the DOMAIN
// STACK binding for github.com/sony/gobreaker, not a matching-core
// feature (Non-goals exclude circuit breakers for the matching core
// itself, not the gateway).
func NewServer(logger *logging.Logger, listenAddr string, sequencer *matching.FIFOSequencer, responses *queue.Queue[types.OMClientResponse]) *Server {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "orderserver-send",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Server{
		logger:      logger,
		listenAddr:  listenAddr,
		sequencer:   sequencer,
		responses:   responses,
		breaker:     breaker,
		conns:       make(map[types.ClientID]net.Conn),
		expectedSeq: make(map[types.ClientID]uint64),
		doneC:       make(chan struct{}),
	}
}

// Start opens the listener and spawns the accept and response-relay loops.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.listener = l
	s.running = true
	go s.acceptLoop()
	go s.relayLoop()
	return nil
}

// Stop closes the listener, unblocking the accept and relay loops.
func (s *Server) Stop() error {
	s.running = false
	close(s.doneC)
	return s.listener.Close()
}

func (s *Server) acceptLoop() {
	for s.running {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running {
				s.logger.Warn("accept error", zap.Error(err))
			}
			return
		}
		go s.handleConn(conn)
	}
}

// handleConn decodes one client's request stream and publishes each
// request to the FIFO sequencer as a single-request batch tagged with a
// ksuid correlation id, then immediately sequences and publishes — a real
// order server would batch per poll iteration across many sockets; this
// per-connection goroutine model is the Go-idiomatic analogue (see
// DESIGN.md).
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, types.OMClientRequestWireSize)
	for {
		if _, err := readFull(conn, buf); err != nil {
			return
		}
		req, ok := types.DecodeOMClientRequest(buf)
		if !ok {
			s.logger.Warn("malformed client request frame")
			continue
		}

		correlationID := ksuid.New()
		s.logger.Debug("inbound client request", zap.String("correlation_id", correlationID.String()))

		if !s.checkInboundSequence(req.Request.ClientID, req.SequenceNumber) {
			s.logger.Warn("inbound sequence gap, dropping request",
				zap.Uint32("client_id", uint32(req.Request.ClientID)),
				zap.Uint64("sequence_number", req.SequenceNumber),
				zap.String("correlation_id", correlationID.String()))
			continue
		}

		s.connsMu.Lock()
		s.conns[req.Request.ClientID] = conn
		s.connsMu.Unlock()

		s.sequencer.Add(time.Now(), req.Request)
		s.sequencer.SequenceAndPublish()
	}
}

// checkInboundSequence enforces the strict +1 per-client inbound sequence
// check required by spec.md §3/§5. The first request from a client is
// expected to carry sequence number 1, mirroring the outbound per-client
// sequence's starting value (engine.go's sendResponse).
func (s *Server) checkInboundSequence(clientID types.ClientID, seq uint64) bool {
	s.expectedMu.Lock()
	defer s.expectedMu.Unlock()

	want, ok := s.expectedSeq[clientID]
	if !ok {
		want = 1
	}
	if seq != want {
		return false
	}
	s.expectedSeq[clientID] = want + 1
	return true
}

// relayLoop drains the matching engine's response queue and writes each
// response to the owning client's connection, guarded by the circuit
// breaker so a wedged socket degrades to fast-failing writes instead of
// blocking the whole relay.
func (s *Server) relayLoop() {
	var buf [types.OMClientResponseWireSize]byte
	for s.running {
		resp, ok := s.responses.Pop()
		if !ok {
			continue
		}

		s.connsMu.RLock()
		conn, known := s.conns[resp.Response.ClientID]
		s.connsMu.RUnlock()
		if !known {
			continue
		}

		resp.Encode(buf[:])
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return conn.Write(buf[:])
		})
		if err != nil {
			s.logger.Warn("response send failed", zap.Error(err), zap.Uint32("client_id", uint32(resp.Response.ClientID)))
		}
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
