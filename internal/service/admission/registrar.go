package admission

import (
	"context"
	"time"

	"resonate-service/internal/domain/session"
	"resonate-service/internal/pkg/dedup"
	xerrors "resonate-service/internal/pkg/errors"
	"resonate-service/internal/registry"

	"go.uber.org/zap"
)

var errDeviceStillLimited = xerrors.ErrDeviceLimit

// RegisterSession tells the registry this device is active now and reports
// whether it was admitted. force bypasses the minimum call interval (used
// right after the user disconnects another device) and evicts the oldest
// occupant when the account is still full.
//
// Registration failure is non-fatal: a device already admitted keeps working
// until a validation cycle proves otherwise.
func (c *Coordinator) RegisterSession(ctx context.Context, force bool) (bool, error) {
	if c.evicting.Load() {
		return false, nil
	}

	info, err := c.subs.Check(ctx, c.accountID, false)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotSubscribed) {
			return false, err
		}
		// Billing state genuinely unknown. Admission control needs the
		// slot count to be present, not fresh, so without any snapshot
		// at all registration cannot proceed.
		return false, xerrors.Wrap(err, "cannot determine device slots")
	}
	if !info.Active(time.Now()) {
		return false, xerrors.ErrNotSubscribed
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	res, outcome, err := c.registerCalls.Do(ctx, force, func(ctx context.Context) (*registry.RegisterResult, error) {
		return c.reg.Register(ctx, c.accountID, c.deviceID, c.deviceInfo, info.DeviceSlots, force)
	})
	if outcome == dedup.Skipped {
		// Rate-limited: reuse last known admission state.
		return c.Admitted(), nil
	}
	if err != nil {
		c.logger.Warn("session registration failed, keeping current state",
			zap.String("account_id", c.accountID), zap.Error(err))
		return c.Admitted(), err
	}
	if outcome == dedup.Joined {
		// The executing caller applies the state transition once.
		return res.Admitted, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A teardown completed while the call was in flight; its result no
	// longer belongs to this session.
	if gen != c.generation {
		return false, nil
	}

	if res.Admitted {
		c.state = session.StateAdmitted
		c.admitted = true
		c.registered = true
		c.activeDevices = nil
		c.limitDialogOpen = false
		c.kickStreak = 0
		return true, nil
	}

	c.state = session.StateCapacityExceeded
	c.admitted = false
	c.activeDevices = res.ActiveDevices
	c.limitDialogOpen = true

	c.logger.Info("device limit reached",
		zap.String("account_id", c.accountID),
		zap.String("session_id", c.deviceID),
		zap.Int("active_devices", len(res.ActiveDevices)))

	if !c.limitNoticeSent {
		c.limitNoticeSent = true
		c.notifier.Notify(c.accountID, session.Notice{
			Kind:    session.NoticeDeviceLimit,
			Message: "Your account is already playing on the maximum number of devices.",
			Sticky:  false,
		})
	}

	return false, nil
}
