// Package system exposes the deployment mode of the firewall to screens
// that render differently under auth_request and reverse_proxy setups.
package system

import (
	"context"
	"sync"

	"github.com/flmelody/defender-console-go/pkg/client"
	"github.com/flmelody/defender-console-go/pkg/interfaces"
	"github.com/flmelody/defender-console-go/pkg/types"
)

// SettingsEndpoint serves the system settings.
const SettingsEndpoint = "/system/settings"

// Store caches the system mode after the first successful fetch. A fetch
// failure silently falls back to auth_request and is not retried until the
// next call; the mode is presentation advice, not a correctness input.
type Store struct {
	mu      sync.Mutex
	mode    types.SystemMode
	fetched bool

	client *client.Client
	logger interfaces.Logger
}

// NewStore creates a system-mode store over the request pipeline.
func NewStore(c *client.Client, logger interfaces.Logger) *Store {
	return &Store{
		mode:   types.ModeAuthRequest,
		client: c,
		logger: logger,
	}
}

// Mode returns the deployment mode, fetching it on first use.
func (s *Store) Mode(ctx context.Context) types.SystemMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetched {
		return s.mode
	}

	var settings types.SystemSettings
	if err := s.client.Get(ctx, SettingsEndpoint, &settings); err != nil {
		s.logger.Debug("system settings unavailable, assuming auth_request", map[string]interface{}{
			"error": err.Error(),
		})
		return s.mode
	}

	if settings.Mode != "" {
		s.mode = settings.Mode
	}
	s.fetched = true
	return s.mode
}

// Fetched reports whether a successful settings fetch has happened.
func (s *Store) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched
}

// IsReverseProxy reports whether the firewall runs as a full reverse
// proxy.
func (s *Store) IsReverseProxy(ctx context.Context) bool {
	return s.Mode(ctx) == types.ModeReverseProxy
}
