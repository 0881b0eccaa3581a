package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/rmacdonaldsmith/mqttroute/internal/health"
)

func newHealthCommand() *cobra.Command {
	var (
		addr    string
		service string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		Long:  "Query a running mqttroute daemon's gRPC health endpoint. Exits non-zero unless SERVING.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, addr, service)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8081", "Health endpoint address")
	cmd.Flags().StringVar(&service, "service", health.DefaultService, "Service name to check")

	return cmd
}

func runHealth(cmd *cobra.Command, addr, service string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create gRPC client: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	body, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, string(body))

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("❌ %s is %s", service, resp.GetStatus())
	}
	fmt.Fprintf(out, "✅ %s is healthy!\n", service)
	return nil
}
