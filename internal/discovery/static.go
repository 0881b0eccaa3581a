package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Default MQTT ports per scheme
const (
	DefaultPort    = "1883"
	DefaultTLSPort = "8883"
	DefaultWSPort  = "80"
	DefaultWSSPort = "443"
)

// ErrInvalidBroker is returned for a broker address that cannot be normalized
var ErrInvalidBroker = errors.New("invalid broker address")

// StaticDiscovery implements Discovery using a static list of broker addresses
type StaticDiscovery struct {
	addresses []string
}

// staticBroker implements Broker for static addresses
type staticBroker struct {
	id  string
	url string
}

func (b *staticBroker) ID() string  { return b.id }
func (b *staticBroker) URL() string { return b.url }

// NewStaticDiscovery creates a new static discovery service with the given
// broker addresses. Addresses may be bare "host", "host:port" or full URLs.
func NewStaticDiscovery(addresses []string) *StaticDiscovery {
	return &StaticDiscovery{
		addresses: addresses,
	}
}

// FindBrokers returns brokers from the static address list, normalized and
// with duplicates removed. Order is preserved.
func (s *StaticDiscovery) FindBrokers(ctx context.Context) ([]Broker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(s.addresses))
	brokers := make([]Broker, 0, len(s.addresses))
	for _, address := range s.addresses {
		normalized, err := NormalizeBrokerURL(address)
		if err != nil {
			return nil, err
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		u, _ := url.Parse(normalized)
		brokers = append(brokers, &staticBroker{
			id:  u.Host, // host:port identifies the broker
			url: normalized,
		})
	}
	return brokers, nil
}

// URLs is a convenience returning only the broker URLs
func URLs(brokers []Broker) []string {
	urls := make([]string, len(brokers))
	for i, b := range brokers {
		urls[i] = b.URL()
	}
	return urls
}

// NormalizeBrokerURL adds the default scheme (tcp) and the scheme's default
// port when missing. Supported schemes: tcp, mqtt, ssl, tls, mqtts, ws, wss.
func NormalizeBrokerURL(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidBroker)
	}
	if !strings.Contains(address, "://") {
		address = "tcp://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBroker, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidBroker, address)
	}

	var port string
	switch u.Scheme {
	case "tcp", "mqtt":
		port = DefaultPort
	case "ssl", "tls", "mqtts":
		port = DefaultTLSPort
	case "ws":
		port = DefaultWSPort
	case "wss":
		port = DefaultWSSPort
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBroker, u.Scheme)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	return u.String(), nil
}
