// Package deviceid produces a stable per-device identifier, independent of
// any rotating auth token. The identifier is generated once, persisted in a
// small file under the user config directory, and reused for every future
// session from that device.
package deviceid

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Provider loads or creates the device identifier.
//
// If the backing file cannot be read or written the provider degrades to an
// ephemeral identifier held only in memory: a device without durable storage
// cannot be tracked across restarts and shows up as a new device each run.
type Provider struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	cached string
}

func NewProvider(path string, logger *zap.Logger) *Provider {
	return &Provider{path: path, logger: logger}
}

// DefaultPath places the identifier under the OS user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "resonate", "device_id")
}

// DeviceID returns the durable identifier, generating and persisting it on
// first use. It never fails.
func (p *Provider) DeviceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached
	}

	if raw, err := os.ReadFile(p.path); err == nil {
		id := strings.TrimSpace(string(raw))
		if _, parseErr := ulid.Parse(id); parseErr == nil {
			p.cached = id
			return id
		}
		p.logger.Warn("device id file corrupt, regenerating", zap.String("path", p.path))
	}

	id := ulid.Make().String()
	p.cached = id

	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		p.logger.Warn("device id not persisted, using ephemeral identity", zap.Error(err))
		return id
	}
	if err := os.WriteFile(p.path, []byte(id+"\n"), 0o600); err != nil {
		p.logger.Warn("device id not persisted, using ephemeral identity", zap.Error(err))
	}

	return id
}
