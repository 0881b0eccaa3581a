package discovery

import (
	"context"
	"errors"
	"testing"
)

// TestDiscoveryInterface_FindBrokers tests the discovery interface contract
func TestDiscoveryInterface_FindBrokers(t *testing.T) {
	// Test that we can create a discovery service
	addresses := []string{"broker1:1883", "ssl://broker2"}
	discovery := NewStaticDiscovery(addresses)

	if discovery == nil {
		t.Fatal("Expected discovery service to be created, got nil")
	}

	// Test FindBrokers method
	ctx := context.Background()
	brokers, err := discovery.FindBrokers(ctx)

	if err != nil {
		t.Errorf("Expected no error from FindBrokers, got %v", err)
	}

	if len(brokers) != 2 {
		t.Fatalf("Expected 2 brokers, got %d", len(brokers))
	}

	// Verify first broker
	if brokers[0].ID() != "broker1:1883" {
		t.Errorf("Expected first broker ID 'broker1:1883', got '%s'", brokers[0].ID())
	}
	if brokers[0].URL() != "tcp://broker1:1883" {
		t.Errorf("Expected first broker URL 'tcp://broker1:1883', got '%s'", brokers[0].URL())
	}

	// Verify second broker
	if brokers[1].ID() != "broker2:8883" {
		t.Errorf("Expected second broker ID 'broker2:8883', got '%s'", brokers[1].ID())
	}
	if brokers[1].URL() != "ssl://broker2:8883" {
		t.Errorf("Expected second broker URL 'ssl://broker2:8883', got '%s'", brokers[1].URL())
	}
}

// TestDiscoveryInterface_EmptyAddresses tests discovery with no addresses
func TestDiscoveryInterface_EmptyAddresses(t *testing.T) {
	discovery := NewStaticDiscovery([]string{})

	brokers, err := discovery.FindBrokers(context.Background())

	if err != nil {
		t.Errorf("Expected no error from FindBrokers with no addresses, got %v", err)
	}

	if len(brokers) != 0 {
		t.Errorf("Expected 0 brokers with no addresses, got %d", len(brokers))
	}
}

// TestDiscoveryInterface_Deduplicates tests that equivalent addresses collapse
func TestDiscoveryInterface_Deduplicates(t *testing.T) {
	discovery := NewStaticDiscovery([]string{"localhost", "tcp://localhost:1883", "localhost:1883", "localhost:1884"})

	brokers, err := discovery.FindBrokers(context.Background())
	if err != nil {
		t.Fatalf("FindBrokers failed: %v", err)
	}

	urls := URLs(brokers)
	if len(urls) != 2 || urls[0] != "tcp://localhost:1883" || urls[1] != "tcp://localhost:1884" {
		t.Errorf("Unexpected broker URLs: %v", urls)
	}
}

// TestDiscoveryInterface_InvalidAddress tests that a bad address fails the lookup
func TestDiscoveryInterface_InvalidAddress(t *testing.T) {
	discovery := NewStaticDiscovery([]string{"localhost", "gopher://nope"})

	_, err := discovery.FindBrokers(context.Background())
	if !errors.Is(err, ErrInvalidBroker) {
		t.Errorf("Expected ErrInvalidBroker, got %v", err)
	}
}

// TestDiscoveryInterface_CancelledContext tests that a cancelled context is honoured
func TestDiscoveryInterface_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticDiscovery([]string{"localhost"}).FindBrokers(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNormalizeBrokerURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost", "tcp://localhost:1883"},
		{"  10.0.0.1:1999 ", "tcp://10.0.0.1:1999"},
		{"mqtt://broker", "mqtt://broker:1883"},
		{"tls://broker", "tls://broker:8883"},
		{"mqtts://broker:9000", "mqtts://broker:9000"},
		{"ws://broker/mqtt", "ws://broker:80/mqtt"},
		{"wss://broker/mqtt", "wss://broker:443/mqtt"},
		{"[::1]", "tcp://[::1]:1883"},
	}

	for _, tt := range tests {
		got, err := NormalizeBrokerURL(tt.in)
		if err != nil {
			t.Errorf("NormalizeBrokerURL(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeBrokerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "tcp://", "ftp://host"} {
		if _, err := NormalizeBrokerURL(bad); !errors.Is(err, ErrInvalidBroker) {
			t.Errorf("NormalizeBrokerURL(%q): expected ErrInvalidBroker, got %v", bad, err)
		}
	}
}

// TestDiscoveryInterface_InterfaceCompliance tests that StaticDiscovery implements Discovery
func TestDiscoveryInterface_InterfaceCompliance(t *testing.T) {
	var _ Discovery = (*StaticDiscovery)(nil)
}
