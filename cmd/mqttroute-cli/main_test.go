package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/mqttroute/internal/health"
	"github.com/rmacdonaldsmith/mqttroute/internal/transport"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	rootCmd := newRootCommand()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestMainCommandHelp(t *testing.T) {
	output, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "mqttroute-cli")
	assert.Contains(t, output, "publish")
	assert.Contains(t, output, "subscribe")
	assert.Contains(t, output, "match")
	assert.Contains(t, output, "health")
}

func TestGlobalFlags(t *testing.T) {
	rootCmd := newRootCommand()
	err := rootCmd.ParseFlags([]string{
		"--broker", "ssl://a:8883",
		"--broker", "b:1883",
		"--client-id", "test-client",
		"--qos", "1",
		"--timeout", "5s",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ssl://a:8883", "b:1883"}, brokers)
	assert.Equal(t, "test-client", clientID)
	assert.Equal(t, 1, qos)
	assert.Equal(t, "5s", timeout.String())
}

func TestMatchCommand(t *testing.T) {
	output, err := execute(t, "match",
		"--filter", "sensors/+/temp",
		"--filter", "sensors/#",
		"--filter", "sensors/kitchen/temp",
		"--topic", "sensors/kitchen/temp",
		"--topic", "other/topic",
	)
	require.NoError(t, err)

	expected := "sensors/kitchen/temp:\n" +
		"  1. sensors/kitchen/temp\n" +
		"  2. sensors/+/temp\n" +
		"  3. sensors/#\n" +
		"other/topic: no match\n"
	assert.Equal(t, expected, output)
}

func TestMatchCommand_InvalidFilter(t *testing.T) {
	_, err := execute(t, "match", "--filter", "a/#/b", "--topic", "a")
	assert.Error(t, err)
}

func TestMatchCommand_RequiresFlags(t *testing.T) {
	_, err := execute(t, "match", "--topic", "a")
	assert.Error(t, err)
}

func TestPublishCommand_RequiresTopic(t *testing.T) {
	_, err := execute(t, "publish", "--payload", "x")
	assert.Error(t, err)
}

func TestPublishCommand_RejectsInvalidQoS(t *testing.T) {
	_, err := execute(t, "publish", "--topic", "a", "--qos", "3")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "QoS")
}

func TestHealthCommand(t *testing.T) {
	hs, err := health.NewServer(&health.Config{ListenAddress: "127.0.0.1:0"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, hs.Start(context.Background()))
	defer hs.Close()

	addr := hs.GetListeningAddress()

	_, err = execute(t, "health", "--addr", addr, "--timeout", "5s")
	assert.Error(t, err, "not connected means NOT_SERVING")

	hs.SetServing(true)
	output, err := execute(t, "health", "--addr", addr, "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, output, "SERVING")
	assert.Contains(t, output, "is healthy")
}

func TestNewRouterConfig_ResubscribesForCleanSessions(t *testing.T) {
	tc := transport.NewConfig("cli", "tcp://localhost:1883")
	require.True(t, tc.CleanSession)
	assert.True(t, newRouterConfig(tc, zerolog.Nop()).ResubscribeOnReconnect)

	tc.CleanSession = false
	assert.False(t, newRouterConfig(tc, zerolog.Nop()).ResubscribeOnReconnect)
}
