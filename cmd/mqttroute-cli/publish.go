package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	var (
		topic   string
		payload string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a message to a topic",
		Long: `Publish a message to a topic. The message is queued until the broker
connection is up and is sent once connected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, topic, payload)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to publish to (required)")
	cmd.Flags().StringVar(&payload, "payload", "", "Message payload")
	if err := cmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("Failed to mark topic as required: %v", err))
	}

	return cmd
}

func runPublish(cmd *cobra.Command, topic, payload string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := newSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Publishing to topic '%s'...\n", topic)

	if err := s.router.Publish(topic, []byte(payload)); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	if err := s.waitFlushed(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Message published (%d bytes, QoS %d)\n", len(payload), qos)
	return nil
}
