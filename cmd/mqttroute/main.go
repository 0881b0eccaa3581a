package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/mqttroute/internal/config"
	"github.com/rmacdonaldsmith/mqttroute/internal/discovery"
	"github.com/rmacdonaldsmith/mqttroute/internal/health"
	"github.com/rmacdonaldsmith/mqttroute/internal/logging"
	"github.com/rmacdonaldsmith/mqttroute/internal/router"
	"github.com/rmacdonaldsmith/mqttroute/internal/transport"
)

const (
	appName    = "mqttroute"
	appVersion = "0.1.0"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (defaults are used when empty)")
		brokers     = flag.String("brokers", "", "Comma-separated broker addresses, overrides mqtt.brokers")
		clientID    = flag.String("client-id", "", "MQTT client ID, overrides mqtt.client_id")
		healthAddr  = flag.String("health-addr", "", "Health endpoint address, overrides health.listen_address")
		showVersion = flag.Bool("version", false, "Show version information")
		printConfig = flag.Bool("print-config", false, "Print the default configuration and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}
	if *printConfig {
		fmt.Print(config.ExampleConfig)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath, overrides{
		brokers:    *brokers,
		clientID:   *clientID,
		healthAddr: *healthAddr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Msgf("🚀 Starting %s v%s", appName, appVersion)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("❌ Daemon failed")
		os.Exit(1)
	}
	logger.Info().Msg("👋 Goodbye!")
}

// overrides holds command line values that replace config file values
// when non-empty.
type overrides struct {
	brokers    string
	clientID   string
	healthAddr string
}

// loadConfig reads the config file (or the defaults), applies overrides and
// validates the result.
func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.brokers != "" {
		cfg.MQTT.Brokers = splitList(o.brokers)
	}
	if o.clientID != "" {
		cfg.MQTT.ClientID = o.clientID
	}
	if o.healthAddr != "" {
		cfg.Health.ListenAddress = o.healthAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// run wires the daemon together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	found, err := discovery.NewStaticDiscovery(cfg.MQTT.Brokers).FindBrokers(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve brokers: %w", err)
	}
	urls := discovery.URLs(found)

	tr, err := transport.NewPahoTransport(cfg.Transport(urls), logger)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	mgr, err := router.NewManager(cfg.RouterConfig(logger), tr)
	if err != nil {
		_ = tr.Close()
		return fmt.Errorf("failed to create router: %w", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing router")
		}
	}()
	tr.SetSink(mgr)
	transport.RouteLibraryLogs(mgr, strings.EqualFold(cfg.Log.Level, "debug"))

	mgr.OnLog(func(text string) {
		logger.Debug().Str("component", "diagnostics").Msg(text)
	})
	mgr.OnConnected(func() {
		logger.Info().Strs("brokers", urls).Msg("✅ Connected to broker")
	})
	mgr.OnDisconnected(func() {
		logger.Warn().Msg("⚠️  Lost broker connection, reconnecting")
	})

	if cfg.HealthEnabled() {
		hs, err := health.NewServer(cfg.HealthConfig(), logger)
		if err != nil {
			return fmt.Errorf("failed to create health server: %w", err)
		}
		hs.Track(mgr)
		if err := hs.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		defer hs.Close()
		logger.Info().Str("address", hs.GetListeningAddress()).Msg("💡 Health endpoint listening")
	}

	for _, sub := range cfg.Subscriptions {
		filter := sub.Filter
		_, err := mgr.Subscribe(filter, func(payload string) error {
			logger.Info().Str("filter", filter).Str("payload", payload).Msg("Message")
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %q: %w", filter, err)
		}
	}

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start router: %w", err)
	}

	go func() {
		if err := tr.Connect(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("❌ Initial connection failed")
		}
	}()

	logger.Info().
		Str("client_id", cfg.MQTT.ClientID).
		Int("subscriptions", len(cfg.Subscriptions)).
		Msg("✅ Router started")

	<-ctx.Done()
	logger.Info().Msg("🛑 Shutting down")

	stats := mgr.Stats()
	logger.Info().
		Uint64("delivered", stats.Delivered).
		Uint64("callback_failures", stats.CallbackFailures).
		Uint64("inbound_dropped", stats.InboundDropped).
		Int("pending_actions", stats.PendingActions).
		Msg("Final stats")
	return nil
}
