package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// TickerConfig names one traded instrument and its arena ticker id.
type TickerConfig struct {
	ID     uint32 `mapstructure:"id"`
	Symbol string `mapstructure:"symbol"`
}

// McastConfig is one multicast group's bind address and outbound interface.
type McastConfig struct {
	Addr  string `mapstructure:"addr"`
	Iface string `mapstructure:"iface"`
}

// Config is the process configuration shared by the exchange and
// participant entrypoints; which sections apply depends on the process
// (cmd/exchange reads OrderServer, MarketData, Tickers, Admin and
// Monitoring; cmd/participant reads OrderServer.ListenAddr as its dial
// address, plus Participant, MarketData and Monitoring), matching the teacher's single-struct-many-sections
// style in the original config.go.
type Config struct {
	Environment string `mapstructure:"environment"`

	OrderServer struct {
		ListenAddr string `mapstructure:"listen_addr"`
	} `mapstructure:"order_server"`

	// Participant configures cmd/participant's order gateway: which
	// client id it identifies as, and the exchange order-server address
	// it dials (OrderServer.ListenAddr on the exchange side).
	Participant struct {
		ClientID uint32 `mapstructure:"client_id"`
	} `mapstructure:"participant"`

	MarketData struct {
		Incremental McastConfig `mapstructure:"incremental"`
		Snapshot    McastConfig `mapstructure:"snapshot"`
	} `mapstructure:"market_data"`

	Tickers []TickerConfig `mapstructure:"tickers"`

	Admin struct {
		WebSocketAddr string `mapstructure:"websocket_addr"`
		NATSUrl       string `mapstructure:"nats_url"`
		RateLimitRPS  int    `mapstructure:"rate_limit_rps"`
		ArchivePath   string `mapstructure:"archive_path"`
	} `mapstructure:"admin"`

	Monitoring struct {
		PrometheusAddr string `mapstructure:"prometheus_addr"`
		LogLevel       string `mapstructure:"log_level"`
	} `mapstructure:"monitoring"`
}

var (
	config *Config
	once   sync.Once
)

// Load reads configuration from configPath (a directory, searched for
// config.yaml) with environment-variable overrides prefixed TRADSYS_,
// same viper wiring as the teacher's internal/config/config.go.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		config = &Config{}
		setDefaults(config)

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/tradsys")
		}
		v.AutomaticEnv()
		v.SetEnvPrefix("TRADSYS")

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, notFound := readErr.(viper.ConfigFileNotFoundError); !notFound {
				err = fmt.Errorf("failed to read config file: %w", readErr)
				return
			}
		}
		if unmarshalErr := v.Unmarshal(config); unmarshalErr != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
			return
		}
	})
	return config, err
}

// Get returns the process-wide configuration, loading defaults if Load was
// never called.
func Get() *Config {
	if config == nil {
		if _, err := Load(""); err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	}
	return config
}

func setDefaults(c *Config) {
	c.Environment = "development"
	c.OrderServer.ListenAddr = "0.0.0.0:9001"
	c.Participant.ClientID = 1
	c.MarketData.Incremental = McastConfig{Addr: "239.1.1.1:9002"}
	c.MarketData.Snapshot = McastConfig{Addr: "239.1.1.2:9003"}
	c.Tickers = []TickerConfig{{ID: 0, Symbol: "TICKER-0"}}
	c.Admin.WebSocketAddr = "0.0.0.0:9004"
	c.Admin.NATSUrl = "nats://127.0.0.1:4222"
	c.Admin.RateLimitRPS = 10
	c.Admin.ArchivePath = "tradsys-snapshot.zst"
	c.Monitoring.PrometheusAddr = "0.0.0.0:9090"
	c.Monitoring.LogLevel = "info"
}
