// Package transport wraps the multicast UDP sockets used by the
// market-data publisher, snapshot synthesizer, and consumer. This is the
// one stdlib-only boundary in the module (see DESIGN.md): no library in
// the retrieval pack speaks UDP multicast.
package transport

import (
	"net"
)

// McastSender is a non-blocking multicast UDP writer.
type McastSender struct {
	conn *net.UDPConn
}

// DialMcast opens a sender socket for the multicast group at addr
// (host:port), bound via the named interface (empty uses the default).
func DialMcast(addr string, iface string) (*McastSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	var ifi *net.Interface
	if iface != "" {
		ifi, err = net.InterfaceByName(iface)
		if err != nil {
			return nil, err
		}
	}
	conn, err := net.ListenMulticastUDP("udp", ifi, udpAddr)
	if err != nil {
		return nil, err
	}
	return &McastSender{conn: conn}, nil
}

// Send writes one datagram. A short write is a fatal configuration error
// per spec.md §4.6 (datagram size is bounded by construction), so the
// caller is expected to size buf correctly; Send only reports transport
// failures.
func (s *McastSender) Send(addr *net.UDPAddr, buf []byte) error {
	_, err := s.conn.WriteToUDP(buf, addr)
	return err
}

// Close releases the underlying socket.
func (s *McastSender) Close() error { return s.conn.Close() }

// McastReceiver is a multicast UDP reader that can join/leave its group on
// demand, per the consumer's snapshot-group join-while-recovering
// behaviour (spec.md §4.8, §5).
type McastReceiver struct {
	conn *net.UDPConn
}

// ListenMcast joins the multicast group at addr and returns a receiver.
func ListenMcast(addr string, iface string) (*McastReceiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	var ifi *net.Interface
	if iface != "" {
		ifi, err = net.InterfaceByName(iface)
		if err != nil {
			return nil, err
		}
	}
	conn, err := net.ListenMulticastUDP("udp", ifi, udpAddr)
	if err != nil {
		return nil, err
	}
	return &McastReceiver{conn: conn}, nil
}

// Read blocks for the next datagram and returns the bytes read.
func (r *McastReceiver) Read(buf []byte) (int, error) {
	return r.conn.Read(buf)
}

// Close releases the underlying socket, leaving the multicast group.
func (r *McastReceiver) Close() error { return r.conn.Close() }
