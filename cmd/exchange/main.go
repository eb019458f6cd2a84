// Command exchange runs the matching-venue process: matching engine,
// order server, market-data publisher and snapshot synthesizer, wired
// together with go.uber.org/fx per the teacher's cmd/marketdata idiom.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/exchange/adminws"
	"github.com/abdoElHodaky/tradSys/internal/exchange/bus"
	"github.com/abdoElHodaky/tradSys/internal/exchange/marketdata"
	"github.com/abdoElHodaky/tradSys/internal/exchange/orderserver"
	"github.com/abdoElHodaky/tradSys/internal/exchange/transport"
	"github.com/abdoElHodaky/tradSys/internal/logging"
	"github.com/abdoElHodaky/tradSys/pkg/queue"
	"github.com/abdoElHodaky/tradSys/pkg/types"
)

func main() {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideEngine,
			provideSequencer,
			provideSnapshotTee,
			providePublisher,
			provideSynthesizer,
			provideOrderServer,
			provideAdminHub,
			provideBus,
		),
		fx.Invoke(runProcess),
	)
	app.Run()
}

func provideConfig() (*config.Config, error) {
	return config.Load("")
}

func provideLogger(cfg *config.Config) *logging.Logger {
	return logging.New("exchange", cfg.Monitoring.LogLevel, types.LogQueueDepth)
}

func provideEngine(cfg *config.Config, l *logging.Logger) *matching.Engine {
	tickers := make([]types.TickerID, 0, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		tickers = append(tickers, types.TickerID(t.ID))
	}
	e := matching.NewEngine(l, tickers)
	e.SetMetrics(matching.NewMetrics())
	return e
}

func provideSequencer(e *matching.Engine) *matching.FIFOSequencer {
	return matching.NewFIFOSequencer(e)
}

func provideSnapshotTee() *queue.Queue[types.MDPMarketUpdate] {
	return queue.New[types.MDPMarketUpdate](types.MarketUpdateQueueDepth)
}

func providePublisher(cfg *config.Config, l *logging.Logger, e *matching.Engine, tee *queue.Queue[types.MDPMarketUpdate]) (*marketdata.Publisher, error) {
	sender, err := transport.DialMcast(cfg.MarketData.Incremental.Addr, cfg.MarketData.Incremental.Iface)
	if err != nil {
		return nil, err
	}
	dest, err := net.ResolveUDPAddr("udp", cfg.MarketData.Incremental.Addr)
	if err != nil {
		return nil, err
	}
	p := marketdata.NewPublisher(l, e.Updates(), tee, sender, dest)
	p.SetMetrics(marketdata.NewMetrics())
	return p, nil
}

func provideSynthesizer(cfg *config.Config, l *logging.Logger, tee *queue.Queue[types.MDPMarketUpdate]) (*marketdata.Synthesizer, error) {
	sender, err := transport.DialMcast(cfg.MarketData.Snapshot.Addr, cfg.MarketData.Snapshot.Iface)
	if err != nil {
		return nil, err
	}
	dest, err := net.ResolveUDPAddr("udp", cfg.MarketData.Snapshot.Addr)
	if err != nil {
		return nil, err
	}
	tickers := make([]types.TickerID, 0, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		tickers = append(tickers, types.TickerID(t.ID))
	}
	s := marketdata.NewSynthesizer(l, tee, sender, dest, tickers)
	s.SetMetrics(marketdata.NewMetrics())
	return s, nil
}

func provideOrderServer(cfg *config.Config, l *logging.Logger, e *matching.Engine, seq *matching.FIFOSequencer) *orderserver.Server {
	return orderserver.NewServer(l, cfg.OrderServer.ListenAddr, seq, e.Responses())
}

func provideAdminHub(l *logging.Logger, e *matching.Engine) *adminws.Hub {
	return adminws.NewHub(l, e.Books())
}

func provideBus(cfg *config.Config, l *logging.Logger) (*bus.Bus, error) {
	return bus.Connect(l, cfg.Admin.NATSUrl, cfg.Admin.RateLimitRPS)
}

// adminCommandHandler wires bus.Command values to the one admin action the
// exchange exposes so far: on-demand book archival. "start"/"stop" are
// reserved for a future order-server pause/resume command per DESIGN.md.
func adminCommandHandler(logger *logging.Logger, cfg *config.Config, synthesizer *marketdata.Synthesizer) bus.Handler {
	return func(cmd bus.Command) {
		switch cmd.Action {
		case "archive":
			f, err := os.Create(cfg.Admin.ArchivePath)
			if err != nil {
				logger.Error("admin archive: failed to open archive file", zap.Error(err))
				return
			}
			defer f.Close()
			if err := synthesizer.WriteArchive(f); err != nil {
				logger.Error("admin archive: write failed", zap.Error(err))
			}
		default:
			logger.Warn("admin command: unrecognized action", zap.String("action", cmd.Action))
		}
	}
}

func runProcess(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *logging.Logger,
	engine *matching.Engine,
	publisher *marketdata.Publisher,
	synthesizer *marketdata.Synthesizer,
	server *orderserver.Server,
	hub *adminws.Hub,
	adminBus *bus.Bus,
) {
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			engine.Start()
			publisher.Start()
			synthesizer.Start()
			if err := server.Start(); err != nil {
				return err
			}
			if err := adminBus.Subscribe(adminCommandHandler(logger, cfg, synthesizer)); err != nil {
				logger.Warn("admin bus subscribe failed, admin commands disabled", zap.Error(err))
			}
			go hub.Run(2*time.Second, stop)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.Handle("/admin/ws", hub)
			go http.ListenAndServe(cfg.Monitoring.PrometheusAddr, mux)
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			_ = adminBus.Close()
			_ = server.Stop()
			synthesizer.Stop()
			publisher.Stop()
			engine.Stop()
			logger.Sync()
			return nil
		},
	})
}
