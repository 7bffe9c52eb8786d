package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"resonate-service/internal/domain/session"
)

// MemoryRegistry is a process-local Registry used in tests and single-node
// development runs. Same capacity semantics as RedisRegistry.
type MemoryRegistry struct {
	mu       sync.Mutex
	accounts map[string]map[string]session.Entry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{accounts: make(map[string]map[string]session.Entry)}
}

func (m *MemoryRegistry) Register(_ context.Context, accountID, sessionID, deviceInfo string, slots int, force bool) (*RegisterResult, error) {
	if slots < 1 {
		slots = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.accounts[accountID]
	if entries == nil {
		entries = make(map[string]session.Entry)
		m.accounts[accountID] = entries
	}

	now := time.Now().UTC()
	if existing, ok := entries[sessionID]; ok {
		existing.DeviceInfo = deviceInfo
		existing.UpdatedAt = now
		entries[sessionID] = existing
		return &RegisterResult{Admitted: true}, nil
	}

	if len(entries) >= slots {
		if !force {
			return &RegisterResult{Admitted: false, ActiveDevices: deviceList(entries)}, nil
		}
		// Evict the oldest occupant to make room.
		var oldest string
		var oldestAt time.Time
		for sid, e := range entries {
			if oldest == "" || e.CreatedAt.Before(oldestAt) {
				oldest, oldestAt = sid, e.CreatedAt
			}
		}
		delete(entries, oldest)
	}

	entries[sessionID] = session.Entry{
		SessionID:   sessionID,
		AccountID:   accountID,
		DeviceInfo:  deviceInfo,
		CreatedAt:   now,
		CreatedAtMS: now.UnixMilli(),
		UpdatedAt:   now,
	}
	return &RegisterResult{Admitted: true}, nil
}

func (m *MemoryRegistry) QueryActive(_ context.Context, accountID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[accountID][sessionID]
	return ok, nil
}

func (m *MemoryRegistry) Disconnect(_ context.Context, accountID, targetSessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts[accountID], targetSessionID)
	return nil
}

func (m *MemoryRegistry) Delete(_ context.Context, accountID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts[accountID], sessionID)
	return nil
}

func (m *MemoryRegistry) ActiveDevices(_ context.Context, accountID string) ([]session.ActiveDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deviceList(m.accounts[accountID]), nil
}

func deviceList(entries map[string]session.Entry) []session.ActiveDevice {
	devices := make([]session.ActiveDevice, 0, len(entries))
	for _, e := range entries {
		devices = append(devices, session.ActiveDevice{
			SessionID:   e.SessionID,
			DeviceInfo:  e.DeviceInfo,
			ConnectedAt: e.CreatedAt,
		})
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ConnectedAt.Before(devices[j].ConnectedAt)
	})
	return devices
}
