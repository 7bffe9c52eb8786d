// Package registry abstracts the shared store of currently-active device
// sessions per account. The coordinator only depends on this interface; the
// concrete transport (Redis server-side, HTTP from an embedded player) is
// irrelevant to admission logic.
package registry

import (
	"context"

	"resonate-service/internal/domain/session"
)

// RegisterResult is the outcome of a registration attempt. When Admitted is
// false the account was at capacity and ActiveDevices lists the occupants so
// the UI can offer a disconnect flow.
type RegisterResult struct {
	Admitted      bool
	ActiveDevices []session.ActiveDevice
}

type Registry interface {
	// Register claims a device slot. slots bounds capacity; force evicts
	// the oldest entry when the account is full (the retry path after the
	// user explicitly disconnects another device).
	Register(ctx context.Context, accountID, sessionID, deviceInfo string, slots int, force bool) (*RegisterResult, error)

	// QueryActive reports whether (accountID, sessionID) still holds a slot.
	QueryActive(ctx context.Context, accountID, sessionID string) (bool, error)

	// Disconnect removes another device's entry at the user's request.
	Disconnect(ctx context.Context, accountID, targetSessionID string) error

	// Delete removes this device's own entry during sign-out.
	Delete(ctx context.Context, accountID, sessionID string) error

	// ActiveDevices lists the account's current registry entries.
	ActiveDevices(ctx context.Context, accountID string) ([]session.ActiveDevice, error)
}
