package types

import "encoding/binary"

// MDPMarketUpdateWireSize is the byte length of an encoded MDPMarketUpdate:
// 8 (sequence) + 1 (type) + 8 (order id) + 4 (ticker) + 1 (side) + 8 (price)
// + 4 (qty) + 8 (priority).
const MDPMarketUpdateWireSize = 8 + 1 + 8 + 4 + 1 + 8 + 4 + 8

// Encode writes the little-endian wire form of m into dst, which must be at
// least MDPMarketUpdateWireSize bytes. The exchange and participant
// processes need not share host byte order, unlike the original this module
// is grounded on (Design Note "packed wire structs").
func (m MDPMarketUpdate) Encode(dst []byte) {
	_ = dst[MDPMarketUpdateWireSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], m.SequenceNumber)
	dst[8] = byte(m.Update.Type)
	binary.LittleEndian.PutUint64(dst[9:17], uint64(m.Update.OrderID))
	binary.LittleEndian.PutUint32(dst[17:21], uint32(m.Update.TickerID))
	dst[21] = byte(m.Update.Side)
	binary.LittleEndian.PutUint64(dst[22:30], uint64(m.Update.Price))
	binary.LittleEndian.PutUint32(dst[30:34], uint32(m.Update.Qty))
	binary.LittleEndian.PutUint64(dst[34:42], uint64(m.Update.Priority))
}

// DecodeMDPMarketUpdate parses a wire-encoded MDPMarketUpdate. It returns
// false if src is shorter than MDPMarketUpdateWireSize (a short/malformed
// datagram, which callers must log and skip per §4.8's consumer failure
// semantics rather than treat as fatal).
func DecodeMDPMarketUpdate(src []byte) (MDPMarketUpdate, bool) {
	var m MDPMarketUpdate
	if len(src) < MDPMarketUpdateWireSize {
		return m, false
	}
	m.SequenceNumber = binary.LittleEndian.Uint64(src[0:8])
	m.Update.Type = MarketUpdateType(src[8])
	m.Update.OrderID = OrderID(binary.LittleEndian.Uint64(src[9:17]))
	m.Update.TickerID = TickerID(binary.LittleEndian.Uint32(src[17:21]))
	m.Update.Side = Side(src[21])
	m.Update.Price = Price(binary.LittleEndian.Uint64(src[22:30]))
	m.Update.Qty = Qty(binary.LittleEndian.Uint32(src[30:34]))
	m.Update.Priority = Priority(binary.LittleEndian.Uint64(src[34:42]))
	return m, true
}

// OMClientRequestWireSize is the byte length of an encoded OMClientRequest.
const OMClientRequestWireSize = 8 + 1 + 4 + 4 + 8 + 1 + 8 + 4

// Encode writes the little-endian wire form of r into dst.
func (r OMClientRequest) Encode(dst []byte) {
	_ = dst[OMClientRequestWireSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.SequenceNumber)
	dst[8] = byte(r.Request.Type)
	binary.LittleEndian.PutUint32(dst[9:13], uint32(r.Request.ClientID))
	binary.LittleEndian.PutUint32(dst[13:17], uint32(r.Request.TickerID))
	binary.LittleEndian.PutUint64(dst[17:25], uint64(r.Request.OrderID))
	dst[25] = byte(r.Request.Side)
	binary.LittleEndian.PutUint64(dst[26:34], uint64(r.Request.Price))
	binary.LittleEndian.PutUint32(dst[34:38], uint32(r.Request.Qty))
}

// DecodeOMClientRequest parses a wire-encoded OMClientRequest.
func DecodeOMClientRequest(src []byte) (OMClientRequest, bool) {
	var r OMClientRequest
	if len(src) < OMClientRequestWireSize {
		return r, false
	}
	r.SequenceNumber = binary.LittleEndian.Uint64(src[0:8])
	r.Request.Type = ClientRequestType(src[8])
	r.Request.ClientID = ClientID(binary.LittleEndian.Uint32(src[9:13]))
	r.Request.TickerID = TickerID(binary.LittleEndian.Uint32(src[13:17]))
	r.Request.OrderID = OrderID(binary.LittleEndian.Uint64(src[17:25]))
	r.Request.Side = Side(src[25])
	r.Request.Price = Price(binary.LittleEndian.Uint64(src[26:34]))
	r.Request.Qty = Qty(binary.LittleEndian.Uint32(src[34:38]))
	return r, true
}

// OMClientResponseWireSize is the byte length of an encoded OMClientResponse.
const OMClientResponseWireSize = 8 + 1 + 4 + 4 + 8 + 8 + 1 + 8 + 4 + 4

// Encode writes the little-endian wire form of r into dst.
func (r OMClientResponse) Encode(dst []byte) {
	_ = dst[OMClientResponseWireSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.SequenceNumber)
	dst[8] = byte(r.Response.Type)
	binary.LittleEndian.PutUint32(dst[9:13], uint32(r.Response.ClientID))
	binary.LittleEndian.PutUint32(dst[13:17], uint32(r.Response.TickerID))
	binary.LittleEndian.PutUint64(dst[17:25], uint64(r.Response.ClientOrderID))
	binary.LittleEndian.PutUint64(dst[25:33], uint64(r.Response.MarketOrderID))
	dst[33] = byte(r.Response.Side)
	binary.LittleEndian.PutUint64(dst[34:42], uint64(r.Response.Price))
	binary.LittleEndian.PutUint32(dst[42:46], uint32(r.Response.ExecQty))
	binary.LittleEndian.PutUint32(dst[46:50], uint32(r.Response.LeavesQty))
}

// DecodeOMClientResponse parses a wire-encoded OMClientResponse.
func DecodeOMClientResponse(src []byte) (OMClientResponse, bool) {
	var r OMClientResponse
	if len(src) < OMClientResponseWireSize {
		return r, false
	}
	r.SequenceNumber = binary.LittleEndian.Uint64(src[0:8])
	r.Response.Type = ClientResponseType(src[8])
	r.Response.ClientID = ClientID(binary.LittleEndian.Uint32(src[9:13]))
	r.Response.TickerID = TickerID(binary.LittleEndian.Uint32(src[13:17]))
	r.Response.ClientOrderID = OrderID(binary.LittleEndian.Uint64(src[17:25]))
	r.Response.MarketOrderID = OrderID(binary.LittleEndian.Uint64(src[25:33]))
	r.Response.Side = Side(src[33])
	r.Response.Price = Price(binary.LittleEndian.Uint64(src[34:42]))
	r.Response.ExecQty = Qty(binary.LittleEndian.Uint32(src[42:46]))
	r.Response.LeavesQty = Qty(binary.LittleEndian.Uint32(src[46:50]))
	return r, true
}
