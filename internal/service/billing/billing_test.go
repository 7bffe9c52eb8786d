package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resonate-service/internal/domain/subscription"
	xerrors "resonate-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeSource struct {
	mu             sync.Mutex
	checkCalls     int
	persistedCalls int
	snapshots      int

	checkErr     error
	persistedErr error
	slots        int
}

func (f *fakeSource) info(accountID string) *subscription.Info {
	return &subscription.Info{
		AccountID:   accountID,
		Subscribed:  true,
		PlanType:    "business",
		PeriodEnd:   time.Now().Add(24 * time.Hour),
		DeviceSlots: f.slots,
		CheckedAt:   time.Now(),
	}
}

func (f *fakeSource) CheckBilling(ctx context.Context, accountID string) (*subscription.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.info(accountID), nil
}

func (f *fakeSource) ReadPersisted(ctx context.Context, accountID string) (*subscription.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistedCalls++
	if f.persistedErr != nil {
		return nil, f.persistedErr
	}
	return f.info(accountID), nil
}

func (f *fakeSource) SaveSnapshot(ctx context.Context, info *subscription.Info) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	return nil
}

func TestCheckServesFromCacheWithinTTL(t *testing.T) {
	src := &fakeSource{slots: 3}
	svc := NewService(src, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		info, err := svc.Check(context.Background(), "acct-1", false)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if info.DeviceSlots != 3 {
			t.Fatalf("device slots = %d, want 3", info.DeviceSlots)
		}
	}

	if src.checkCalls != 1 {
		t.Fatalf("billing called %d times within TTL, want 1", src.checkCalls)
	}
}

func TestCheckRefetchesAfterTTL(t *testing.T) {
	src := &fakeSource{slots: 3}
	svc := NewService(src, time.Nanosecond, zap.NewNop())

	svc.Check(context.Background(), "acct-1", false)
	time.Sleep(time.Millisecond)
	svc.Check(context.Background(), "acct-1", false)

	if src.checkCalls != 2 {
		t.Fatalf("billing called %d times across TTL expiry, want 2", src.checkCalls)
	}
}

func TestForceBypassesCache(t *testing.T) {
	src := &fakeSource{slots: 3}
	svc := NewService(src, time.Hour, zap.NewNop())

	svc.Check(context.Background(), "acct-1", false)
	svc.Check(context.Background(), "acct-1", true)

	if src.checkCalls != 2 {
		t.Fatalf("billing called %d times, want 2", src.checkCalls)
	}
}

func TestCacheIsAccountScoped(t *testing.T) {
	src := &fakeSource{slots: 3}
	svc := NewService(src, time.Hour, zap.NewNop())

	svc.Check(context.Background(), "acct-1", false)
	info, err := svc.Check(context.Background(), "acct-2", false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if info.AccountID != "acct-2" {
		t.Fatalf("served %s's state for acct-2", info.AccountID)
	}
	if src.checkCalls != 2 {
		t.Fatalf("billing called %d times for two accounts, want 2", src.checkCalls)
	}
}

func TestFallbackToPersistedSnapshot(t *testing.T) {
	src := &fakeSource{slots: 2, checkErr: errors.New("billing down")}
	svc := NewService(src, time.Hour, zap.NewNop())

	info, err := svc.Check(context.Background(), "acct-1", false)
	if err != nil {
		t.Fatalf("fallback should have served a snapshot: %v", err)
	}
	if info.DeviceSlots != 2 {
		t.Fatalf("device slots = %d, want 2", info.DeviceSlots)
	}
	if src.persistedCalls != 1 {
		t.Fatalf("persisted reads = %d, want 1", src.persistedCalls)
	}

	// The degraded result is cached like any other.
	svc.Check(context.Background(), "acct-1", false)
	if src.checkCalls != 1 {
		t.Fatalf("billing retried despite fresh cache: %d calls", src.checkCalls)
	}
}

func TestNotSubscribedIsNotRetriedAgainstSnapshot(t *testing.T) {
	src := &fakeSource{checkErr: xerrors.ErrNotSubscribed}
	svc := NewService(src, time.Hour, zap.NewNop())

	if _, err := svc.Check(context.Background(), "acct-1", false); !xerrors.Is(err, xerrors.ErrNotSubscribed) {
		t.Fatalf("err = %v, want ErrNotSubscribed", err)
	}
	if src.persistedCalls != 0 {
		t.Fatal("a definitive not-subscribed answer must not fall back")
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	src := &fakeSource{slots: 3}
	svc := NewService(src, time.Hour, zap.NewNop())

	svc.Check(context.Background(), "acct-1", false)
	svc.Invalidate()
	svc.Check(context.Background(), "acct-1", false)

	if src.checkCalls != 2 {
		t.Fatalf("billing called %d times across Invalidate, want 2", src.checkCalls)
	}
}
