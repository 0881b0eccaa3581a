package main

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
)

func newSubscribeCommand() *cobra.Command {
	var (
		filters []string
		count   int
	)

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Print messages matching topic filters",
		Long: `Subscribe to one or more topic filters and print every message delivered.
Filters support MQTT wildcards: "+" matches one level and "#" matches any
number of trailing levels. Runs until interrupted or --count messages arrive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubscribe(cmd, filters, count)
		},
	}

	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Topic filter (repeatable, required)")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many messages (0 = unlimited)")
	if err := cmd.MarkFlagRequired("filter"); err != nil {
		panic(fmt.Sprintf("Failed to mark filter as required: %v", err))
	}

	return cmd
}

func runSubscribe(cmd *cobra.Command, filters []string, count int) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	done := make(chan struct{})
	var (
		mu       sync.Mutex
		received int
	)

	s.router.OnConnected(func() { fmt.Fprintf(cmd.ErrOrStderr(), "✅ Connected\n") })
	s.router.OnDisconnected(func() { fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Disconnected, waiting to reconnect...\n") })

	for _, filter := range filters {
		filter := filter
		_, err := s.router.Subscribe(filter, func(payload string) error {
			mu.Lock()
			defer mu.Unlock()

			if count > 0 && received >= count {
				return nil
			}
			received++
			fmt.Fprintf(out, "[%s] %s\n", filter, payload)
			if count > 0 && received == count {
				close(done)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %q: %w", filter, err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Subscribed to %d filter(s), waiting for messages...\n", len(filters))

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}
