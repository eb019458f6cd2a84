package types

// Compile-time capacity limits for the exchange data plane. These are sized
// so that exhaustion never happens in normal operation; hitting one of them
// is treated as a fatal configuration error rather than something the data
// plane recovers from at runtime.
const (
	MaxTickers     = 8
	MaxClients     = 256
	MaxOrderIDs    = 1 << 20 // 1,048,576 order ids per ticker
	MaxPriceLevels = 1 << 10 // 1,024 price levels per ticker

	MaxPendingRequests = 1 << 10 // per FIFO sequencer batch

	LogQueueDepth           = 8 << 20
	MarketUpdateQueueDepth  = 1 << 20
	ClientRequestQueueDepth = 256 << 10
)
