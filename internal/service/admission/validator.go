package admission

import (
	"context"
	"time"

	"resonate-service/internal/domain/session"
	"resonate-service/internal/pkg/dedup"

	"go.uber.org/zap"
)

// Validate asks the registry whether this device's registration is still
// present and applies the hysteresis policy before concluding eviction.
//
// A single kicked result never signs the device out: only KickThreshold
// consecutive kicked results do. A valid result resets the streak; an error
// result neither advances nor resets it, so network trouble can never
// masquerade as eviction.
func (c *Coordinator) Validate(ctx context.Context) session.ResultKind {
	// A sign-out already in progress must not trigger recursive teardown.
	if c.evicting.Load() {
		return session.ResultValid
	}

	c.mu.Lock()
	// Skip while in capacity-exceeded mode: this device holds no registry
	// row, so an absent entry is expected and proves nothing. Also skip
	// before the first successful registration, otherwise validation races
	// the registry row into a false kicked.
	if !c.admitted || !c.registered {
		c.mu.Unlock()
		return session.ResultValid
	}

	if c.lastResult != nil && c.cfg.ValidationCacheTTL > 0 &&
		time.Since(c.lastResult.CheckedAt) < c.cfg.ValidationCacheTTL {
		kind := c.lastResult.Kind
		c.mu.Unlock()
		return kind
	}

	gen := c.generation
	last := c.lastResult
	c.mu.Unlock()

	kind, outcome, _ := c.validateCalls.Do(ctx, false, func(ctx context.Context) (session.ResultKind, error) {
		present, err := c.reg.QueryActive(ctx, c.accountID, c.deviceID)
		if err != nil {
			c.logger.Warn("session validation failed",
				zap.String("account_id", c.accountID), zap.Error(err))
			return session.ResultError, nil
		}
		if present {
			return session.ResultValid, nil
		}
		return session.ResultKicked, nil
	})
	switch outcome {
	case dedup.Skipped:
		if last != nil {
			return last.Kind
		}
		return session.ResultValid
	case dedup.Joined:
		// One registry query is one observation. The caller that executed
		// the query advances the streak; joiners only report the result,
		// otherwise a timer tick and a foreground re-check sharing one
		// query would each count the same kicked.
		return kind
	}

	evict := false
	c.mu.Lock()
	if gen != c.generation || c.evicting.Load() {
		c.mu.Unlock()
		return session.ResultValid
	}

	c.lastResult = &session.ValidationResult{Kind: kind, CheckedAt: time.Now()}

	switch kind {
	case session.ResultValid:
		c.kickStreak = 0
	case session.ResultKicked:
		c.kickStreak++
		c.logger.Info("session missing from registry",
			zap.String("account_id", c.accountID),
			zap.Int("consecutive", c.kickStreak),
			zap.Int("threshold", c.cfg.KickThreshold))
		if c.kickStreak >= c.cfg.KickThreshold {
			evict = true
		}
	case session.ResultError:
		// Leave the streak untouched.
	}
	c.mu.Unlock()

	if evict {
		c.ForceSignOut(ctx, "another device took over this session")
	}

	return kind
}
