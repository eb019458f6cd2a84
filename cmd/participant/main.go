// Command participant runs a trading-participant process: market-data
// consumer with gap recovery, strategy dispatch, and position keeping,
// wired together with go.uber.org/fx.
package main

import (
	"context"

	"go.uber.org/fx"

	"github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/exchange/transport"
	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/internal/trading/gateway"
	"github.com/abdoElHodaky/tradSys/internal/trading/marketdata"
	"github.com/abdoElHodaky/tradSys/internal/trading/position"
	"github.com/abdoElHodaky/tradSys/internal/trading/strategy"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func main() {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideOutQueue,
			provideConsumer,
			providePositionKeeper,
			provideDispatcher,
			provideOutgoingOrderQueue,
			provideFillQueue,
			provideGateway,
		),
		fx.Invoke(runProcess),
	)
	app.Run()
}

func provideConfig() (*config.Config, error) {
	return config.Load("")
}

func provideLogger(cfg *config.Config) *logging.Logger {
	return logging.New("participant", cfg.Monitoring.LogLevel, types.LogQueueDepth)
}

func provideOutQueue() *queue.Queue[types.MDPMarketUpdate] {
	return queue.New[types.MDPMarketUpdate](types.MarketUpdateQueueDepth)
}

func provideConsumer(cfg *config.Config, l *logging.Logger, out *queue.Queue[types.MDPMarketUpdate]) (*marketdata.Consumer, error) {
	incoming, err := transport.ListenMcast(cfg.MarketData.Incremental.Addr, cfg.MarketData.Incremental.Iface)
	if err != nil {
		return nil, err
	}
	joinSnapshot := func() (interface {
		Read([]byte) (int, error)
		Close() error
	}, error) {
		return transport.ListenMcast(cfg.MarketData.Snapshot.Addr, cfg.MarketData.Snapshot.Iface)
	}
	c := marketdata.NewConsumer(l, incoming, joinSnapshot, out)
	c.SetMetrics(marketdata.NewMetrics())
	return c, nil
}

func providePositionKeeper() *position.Keeper {
	return position.New()
}

// keeperHandler adapts *position.Keeper to strategy.Handler, translating
// the trade engine's wire-shaped events into the keeper's per-ticker
// calls. Every ADD/MODIFY update, at any price level, is passed to the
// keeper, so its BBO view holds the price of the most recent ADD/MODIFY per
// side, not necessarily the top of book (no order-book bookkeeping is
// maintained here beyond what position.Keeper already tracks).
type keeperHandler struct {
	keeper *position.Keeper
}

func (h keeperHandler) OnBookUpdate(u types.MarketUpdate) {
	switch u.Type {
	case types.MDAdd, types.MDModify:
		h.keeper.OnBookUpdate(u.TickerID, u.Side, u.Price)
	}
}

func (h keeperHandler) OnFill(r types.ClientResponse) {
	if r.Type != types.RespFilled {
		return
	}
	h.keeper.OnFill(r.TickerID, r.Side, r.ExecQty)
}

var _ strategy.Handler = keeperHandler{}

func provideDispatcher(l *logging.Logger, keeper *position.Keeper) (*strategy.Dispatcher, error) {
	return strategy.NewDispatcher(l, keeperHandler{keeper: keeper}, 8)
}

// provideOutgoingOrderQueue is the order gateway's send side: a strategy
// (or an operator tool) pushes ClientRequests here and the gateway stamps
// and ships them.
func provideOutgoingOrderQueue() *queue.Queue[types.ClientRequest] {
	return queue.New[types.ClientRequest](types.ClientRequestQueueDepth)
}

// provideFillQueue is the order gateway's validated-response stream,
// drained by runProcess into the strategy dispatcher's fill path.
func provideFillQueue() *queue.Queue[types.OMClientResponse] {
	return queue.New[types.OMClientResponse](types.ClientRequestQueueDepth)
}

func provideGateway(cfg *config.Config, l *logging.Logger, outgoing *queue.Queue[types.ClientRequest], incoming *queue.Queue[types.OMClientResponse]) (*gateway.Gateway, error) {
	return gateway.Dial(l, cfg.OrderServer.ListenAddr, types.ClientID(cfg.Participant.ClientID), outgoing, incoming)
}

func runProcess(
	lc fx.Lifecycle,
	logger *logging.Logger,
	consumer *marketdata.Consumer,
	out *queue.Queue[types.MDPMarketUpdate],
	dispatcher *strategy.Dispatcher,
	gw *gateway.Gateway,
	fills *queue.Queue[types.OMClientResponse],
) {
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			consumer.Start()
			gw.Start()
			go drainToStrategy(out, dispatcher, stop)
			go drainFillsToStrategy(fills, dispatcher, stop)
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			gw.Stop()
			consumer.Stop()
			dispatcher.Close()
			logger.Sync()
			return nil
		},
	})
}

func drainToStrategy(out *queue.Queue[types.MDPMarketUpdate], dispatcher *strategy.Dispatcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		msg, ok := out.Pop()
		if !ok {
			continue
		}
		dispatcher.DispatchBookUpdate(msg.Update)
	}
}

func drainFillsToStrategy(fills *queue.Queue[types.OMClientResponse], dispatcher *strategy.Dispatcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		resp, ok := fills.Pop()
		if !ok {
			continue
		}
		dispatcher.DispatchFill(resp.Response)
	}
}
