package admission

import (
	"context"

	"resonate-service/internal/domain/session"

	"go.uber.org/zap"
)

// ForceSignOut tears the local session down after confirmed eviction.
// Idempotent: concurrent callers perform the teardown once. Only this
// device's registry entry is deleted, never the rest of the account's.
func (c *Coordinator) ForceSignOut(ctx context.Context, reason string) {
	if !c.evicting.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	c.state = session.StateEvicting
	c.generation++ // stale in-flight register/validate results are discarded
	c.mu.Unlock()

	c.logger.Info("forcing sign-out",
		zap.String("account_id", c.accountID),
		zap.String("session_id", c.deviceID),
		zap.String("reason", reason))

	c.notifier.Notify(c.accountID, session.Notice{
		Kind:    session.NoticeEvicted,
		Message: "You were signed out because another device started playing on this account.",
		Sticky:  true,
	})

	if err := c.reg.Delete(ctx, c.accountID, c.deviceID); err != nil {
		c.logger.Warn("failed to delete own registry entry during sign-out",
			zap.String("account_id", c.accountID), zap.Error(err))
	}

	c.subs.Invalidate()

	c.mu.Lock()
	c.admitted = false
	c.registered = false
	c.activeDevices = nil
	c.limitDialogOpen = false
	c.kickStreak = 0
	c.lastResult = nil
	c.state = session.StateUnregistered
	c.mu.Unlock()

	c.Close()

	if c.onSignOut != nil {
		c.onSignOut(reason)
	}
}
