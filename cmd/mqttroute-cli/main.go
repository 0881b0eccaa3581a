package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/mqttroute/internal/discovery"
	"github.com/rmacdonaldsmith/mqttroute/internal/logging"
	"github.com/rmacdonaldsmith/mqttroute/internal/router"
	"github.com/rmacdonaldsmith/mqttroute/internal/transport"
	routerpkg "github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

var (
	// Global flags
	brokers  []string
	clientID string
	username string
	password string
	caFile   string
	qos      int
	timeout  time.Duration
	verbose  bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mqttroute-cli",
		Short: "MQTT subscription router command line interface",
		Long: `mqttroute-cli publishes and subscribes through the mqttroute router,
dry-runs topic filter matching, and queries a running daemon's health endpoint.`,
		SilenceUsage: true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringSliceVar(&brokers, "broker", []string{"localhost:1883"}, "Broker address (repeatable)")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", defaultClientID(), "MQTT client ID")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "MQTT username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "MQTT password")
	rootCmd.PersistentFlags().StringVar(&caFile, "ca-file", "", "PEM bundle for ssl:// brokers")
	rootCmd.PersistentFlags().IntVar(&qos, "qos", 0, "QoS for publish and subscribe (0, 1, 2)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log router diagnostics to stderr")

	// Add subcommands
	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newSubscribeCommand())
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newHealthCommand())

	return rootCmd
}

func defaultClientID() string {
	return fmt.Sprintf("mqttroute-cli-%d", os.Getpid())
}

// session is a connected router built from the global flags.
type session struct {
	router    *router.Manager
	transport *transport.PahoTransport
}

// newSession builds the router and transport and starts connecting. Calls
// made before the connection is up are deferred by the router.
func newSession(ctx context.Context, stderr io.Writer) (*session, error) {
	if qos < 0 || qos > int(routerpkg.ExactlyOnce) {
		return nil, fmt.Errorf("%w: %d", routerpkg.ErrInvalidQoS, qos)
	}

	logger := zerolog.Nop()
	if verbose {
		var err error
		logger, err = logging.New(logging.Config{Level: "debug"}, stderr)
		if err != nil {
			return nil, err
		}
	}

	found, err := discovery.NewStaticDiscovery(brokers).FindBrokers(ctx)
	if err != nil {
		return nil, err
	}

	tc := transport.NewConfig(clientID, discovery.URLs(found)...).
		WithCredentials(username, password).
		WithCAFile(caFile)
	tr, err := transport.NewPahoTransport(tc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	mgr, err := router.NewManager(newRouterConfig(tc, logger), tr)
	if err != nil {
		_ = tr.Close()
		return nil, fmt.Errorf("failed to create router: %w", err)
	}
	tr.SetSink(mgr)
	if verbose {
		transport.RouteLibraryLogs(mgr, false)
		mgr.OnLog(func(text string) { fmt.Fprintf(stderr, "· %s\n", text) })
	}

	if err := mgr.Start(ctx); err != nil {
		_ = mgr.Close()
		return nil, err
	}

	go func() {
		_ = tr.Connect(ctx)
	}()

	return &session{router: mgr, transport: tr}, nil
}

// newRouterConfig builds the router config for tc. Clean sessions lose their
// broker subscriptions on reconnect, so they are re-sent.
func newRouterConfig(tc *transport.Config, logger zerolog.Logger) *router.Config {
	return router.NewConfig().
		WithDefaultQoS(routerpkg.QoS(qos)).
		WithResubscribeOnReconnect(tc.CleanSession).
		WithLogger(logger)
}

// waitFlushed blocks until the router is connected with nothing deferred.
func (s *session) waitFlushed(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.router.IsConnected() && len(s.router.Pending()) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("not connected to %v: %w", brokers, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *session) Close() error {
	return s.router.Close()
}
