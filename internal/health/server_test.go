package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// fakeSource lets tests fire connection edges.
type fakeSource struct {
	mu           sync.Mutex
	connected    bool
	onConnect    []func()
	onDisconnect []func()
}

func (f *fakeSource) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSource) OnConnected(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConnect = append(f.onConnect, fn)
}

func (f *fakeSource) OnDisconnected(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = append(f.onDisconnect, fn)
}

func (f *fakeSource) fire(connected bool) {
	f.mu.Lock()
	f.connected = connected
	fns := f.onDisconnect
	if connected {
		fns = f.onConnect
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func startServer(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()

	server, err := NewServer(&Config{ListenAddress: "localhost:0"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	require.NoError(t, server.Start(context.Background()))
	require.NotEmpty(t, server.GetListeningAddress())

	conn, err := grpc.NewClient(server.GetListeningAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return server, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func TestConfig_Validate(t *testing.T) {
	c := &Config{}
	assert.Error(t, c.Validate())

	c.ListenAddress = "localhost:0"
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	assert.Equal(t, DefaultService, c.Service)
}

func TestServer_TracksConnectionState(t *testing.T) {
	server, client := startServer(t)

	st, err := check(t, client, DefaultService)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	st, err = check(t, client, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st, "overall status is up while serving")

	source := &fakeSource{}
	server.Track(source)

	source.fire(true)
	st, err = check(t, client, DefaultService)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	source.fire(false)
	st, err = check(t, client, DefaultService)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}

func TestServer_TrackUsesCurrentState(t *testing.T) {
	server, client := startServer(t)

	server.Track(&fakeSource{connected: true})

	st, err := check(t, client, DefaultService)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
}

func TestServer_UnknownService(t *testing.T) {
	_, client := startServer(t)

	_, err := check(t, client, "something-else")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_Lifecycle(t *testing.T) {
	_, err := NewServer(nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewServer(&Config{}, zerolog.Nop())
	assert.Error(t, err)

	server, err := NewServer(&Config{ListenAddress: "localhost:0"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, server.GetListeningAddress())

	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, server.Start(context.Background()), "Start is idempotent")

	require.NoError(t, server.Close())
	require.NoError(t, server.Close(), "Close is idempotent")
	assert.Error(t, server.Start(context.Background()))
}

func TestServer_CloseWithoutStart(t *testing.T) {
	server, err := NewServer(&Config{ListenAddress: "localhost:0"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, server.Close())
}
