package router

import (
	"errors"
	"testing"

	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

// TestConfig_NewConfig tests creating new configuration with defaults
func TestConfig_NewConfig(t *testing.T) {
	config := NewConfig()

	if config.DefaultQoS != router.AtMostOnce {
		t.Errorf("Expected DefaultQoS 0, got %d", config.DefaultQoS)
	}
	if config.MaxDeferred != 0 {
		t.Errorf("Expected MaxDeferred 0 (unbounded), got %d", config.MaxDeferred)
	}
	if config.InboundQueueSize != DefaultInboundQueueSize {
		t.Errorf("Expected InboundQueueSize %d, got %d", DefaultInboundQueueSize, config.InboundQueueSize)
	}
	if config.DiagnosticQueueSize != DefaultDiagnosticQueueSize {
		t.Errorf("Expected DiagnosticQueueSize %d, got %d", DefaultDiagnosticQueueSize, config.DiagnosticQueueSize)
	}
	if config.ResubscribeOnReconnect {
		t.Error("Expected ResubscribeOnReconnect to default to false")
	}
	if config.Logger == nil {
		t.Error("Expected a default logger")
	}
}

// TestConfig_Validate tests configuration validation
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError bool
		errorType error
	}{
		{
			name:      "valid config",
			config:    NewConfig(),
			wantError: false,
		},
		{
			name:      "QoS 2",
			config:    NewConfig().WithDefaultQoS(router.ExactlyOnce),
			wantError: false,
		},
		{
			name:      "invalid QoS",
			config:    NewConfig().WithDefaultQoS(3),
			wantError: true,
			errorType: router.ErrInvalidQoS,
		},
		{
			name:      "negative max deferred",
			config:    NewConfig().WithMaxDeferred(-1),
			wantError: true,
			errorType: ErrInvalidMaxDeferred,
		},
		{
			name:      "negative inbound queue",
			config:    NewConfig().WithInboundQueueSize(-5),
			wantError: true,
			errorType: ErrInvalidQueueSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError {
				if err == nil {
					t.Errorf("Expected error for %s, got nil", tt.name)
				}
				if tt.errorType != nil && !errors.Is(err, tt.errorType) {
					t.Errorf("Expected error %v, got %v", tt.errorType, err)
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error for %s, got %v", tt.name, err)
				}
			}
		})
	}
}

// TestConfig_SetDefaultsKeepsExplicitValues tests that SetDefaults only fills zero values
func TestConfig_SetDefaultsKeepsExplicitValues(t *testing.T) {
	config := &Config{InboundQueueSize: 5, DiagnosticQueueSize: 7}
	config.SetDefaults()

	if config.InboundQueueSize != 5 {
		t.Errorf("Expected InboundQueueSize 5, got %d", config.InboundQueueSize)
	}
	if config.DiagnosticQueueSize != 7 {
		t.Errorf("Expected DiagnosticQueueSize 7, got %d", config.DiagnosticQueueSize)
	}
}
