package marketdata

import (
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"
)

// archiveOrder is the JSON-serializable form of a liveOrder, used only for
// the on-disk snapshot archive below — never the wire protocol, which
// stays the fixed packed struct from §6 throughout.
type archiveOrder struct {
	OrderID  uint64 `json:"order_id"`
	Side     int8   `json:"side"`
	Price    uint64 `json:"price"`
	Qty      uint32 `json:"qty"`
	Priority uint64 `json:"priority"`
}

// WriteArchive zstd-compresses a point-in-time JSON dump of every
// reconstructed book to w. This is an operational convenience (an
// operator inspecting exchange state offline) layered on top of the
// synthesizer's in-memory state — it never touches the incremental or
// snapshot multicast wire format, which must stay message-per-datagram
// for the consumer's recovery algorithm (spec.md §4.8) to key on.
// Grounded on the DOMAIN STACK binding for github.com/klauspost/compress.
func (s *Synthesizer) WriteArchive(w io.Writer) error {
	dump := make(map[uint32][]archiveOrder, len(s.books))
	for tickerID, book := range s.books {
		orders := make([]archiveOrder, 0, len(book))
		for orderID, o := range book {
			orders = append(orders, archiveOrder{
				OrderID: uint64(orderID), Side: int8(o.side),
				Price: uint64(o.price), Qty: uint32(o.qty), Priority: uint64(o.priority),
			})
		}
		dump[uint32(tickerID)] = orders
	}

	payload, err := json.Marshal(dump)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(payload); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
