// Package admission implements the session admission and validation
// coordinator: it claims a device slot for this device, periodically
// re-validates the claim against the shared registry, and drives sign-out
// exactly once when displacement is confirmed.
package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"resonate-service/internal/domain/session"
	"resonate-service/internal/domain/subscription"
	"resonate-service/internal/pkg/dedup"
	"resonate-service/internal/registry"

	"go.uber.org/zap"
)

// Subscriptions gates whether admission logic runs at all and supplies the
// device-slot count. Implemented by billing.Service.
type Subscriptions interface {
	Check(ctx context.Context, accountID string, force bool) (*subscription.Info, error)
	Invalidate()
}

// Notifier delivers user-facing notices (capacity reached, evicted).
type Notifier interface {
	Notify(accountID string, n session.Notice)
}

// Config carries the admission tuning knobs. Zero intervals disable the
// corresponding suppression, which tests rely on.
type Config struct {
	KickThreshold       int
	RegisterMinInterval time.Duration
	ValidateMinInterval time.Duration
	ValidationCacheTTL  time.Duration
	PollInterval        time.Duration
	ForegroundDelay     time.Duration
}

// Coordinator is constructed once per signed-in account context and torn
// down at sign-out. There is no package-level state.
type Coordinator struct {
	accountID  string
	deviceID   string
	deviceInfo string

	reg       registry.Registry
	subs      Subscriptions
	notifier  Notifier
	logger    *zap.Logger
	cfg       Config
	onSignOut func(reason string)

	registerCalls *dedup.Deduper[*registry.RegisterResult]
	validateCalls *dedup.Deduper[session.ResultKind]

	mu               sync.Mutex
	state            session.State
	registered       bool // first successful registration happened
	admitted         bool
	activeDevices    []session.ActiveDevice
	limitDialogOpen  bool
	limitNoticeSent  bool // capacity notice shown once per runtime session
	kickStreak       int
	lastResult       *session.ValidationResult
	generation       int // bumped on teardown so stale in-flight results are discarded

	evicting atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

func NewCoordinator(
	accountID, deviceID, deviceInfo string,
	reg registry.Registry,
	subs Subscriptions,
	notifier Notifier,
	cfg Config,
	logger *zap.Logger,
	onSignOut func(reason string),
) *Coordinator {
	if cfg.KickThreshold < 1 {
		cfg.KickThreshold = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 4 * time.Minute
	}

	return &Coordinator{
		accountID:     accountID,
		deviceID:      deviceID,
		deviceInfo:    deviceInfo,
		reg:           reg,
		subs:          subs,
		notifier:      notifier,
		logger:        logger,
		cfg:           cfg,
		onSignOut:     onSignOut,
		registerCalls: dedup.New[*registry.RegisterResult](cfg.RegisterMinInterval),
		validateCalls: dedup.New[session.ResultKind](cfg.ValidateMinInterval),
		state:         session.StateUnregistered,
		stop:          make(chan struct{}),
	}
}

// Run registers the device and then re-validates on a conservative interval
// until the context is cancelled or the coordinator is closed.
func (c *Coordinator) Run(ctx context.Context) {
	if _, err := c.RegisterSession(ctx, false); err != nil {
		c.logger.Warn("initial session registration failed",
			zap.String("account_id", c.accountID), zap.Error(err))
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.Validate(ctx)
		}
	}
}

// OnVisible schedules a re-validation after the application returns to the
// foreground. The delay exists so a tab switch does not cut into audio that
// is still playing from the background period; the dedup interval absorbs a
// ticker firing close to the same moment.
func (c *Coordinator) OnVisible() {
	time.AfterFunc(c.cfg.ForegroundDelay, func() {
		select {
		case <-c.stop:
			return
		default:
		}
		c.Validate(context.Background())
	})
}

// Close stops the run loop without tearing the session down (normal app
// shutdown, as opposed to eviction).
func (c *Coordinator) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Admitted reports the local admission belief.
func (c *Coordinator) Admitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.admitted
}

// Snapshot exposes coordinator state to the UI layer.
func (c *Coordinator) Snapshot() session.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := session.Snapshot{
		State:           c.state,
		LimitDialogOpen: c.limitDialogOpen,
	}
	snap.ActiveDevices = append(snap.ActiveDevices, c.activeDevices...)
	if c.lastResult != nil {
		res := *c.lastResult
		snap.LastValidation = &res
	}
	return snap
}

// DismissLimitDialog closes the capacity-reached dialog without resolving it.
func (c *Coordinator) DismissLimitDialog() {
	c.mu.Lock()
	c.limitDialogOpen = false
	c.mu.Unlock()
}

// DisconnectDevice removes another device's registry entry at the user's
// request, then immediately retries registration with force so the freed
// slot is claimed before anyone else races in.
func (c *Coordinator) DisconnectDevice(ctx context.Context, targetSessionID string) error {
	if err := c.reg.Disconnect(ctx, c.accountID, targetSessionID); err != nil {
		return err
	}

	admitted, err := c.RegisterSession(ctx, true)
	if err != nil {
		return err
	}
	if !admitted {
		return errDeviceStillLimited
	}
	return nil
}
