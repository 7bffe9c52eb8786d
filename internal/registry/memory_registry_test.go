package registry

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRegistryCapacity(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	res, err := reg.Register(ctx, "acct-1", "device-a", "desktop", 2, false)
	if err != nil || !res.Admitted {
		t.Fatalf("first device: admitted=%v err=%v", res.Admitted, err)
	}
	res, err = reg.Register(ctx, "acct-1", "device-b", "phone", 2, false)
	if err != nil || !res.Admitted {
		t.Fatalf("second device: admitted=%v err=%v", res.Admitted, err)
	}

	// Third device is refused and sees both occupants.
	res, err = reg.Register(ctx, "acct-1", "device-c", "tablet", 2, false)
	if err != nil {
		t.Fatalf("third device: %v", err)
	}
	if res.Admitted {
		t.Fatal("third device must be refused at slots=2")
	}
	if len(res.ActiveDevices) != 2 {
		t.Fatalf("occupant list has %d entries, want 2", len(res.ActiveDevices))
	}
}

func TestMemoryRegistryReregisterRefreshes(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	reg.Register(ctx, "acct-1", "device-a", "desktop", 1, false)

	// Re-registering the same device never counts against capacity.
	res, err := reg.Register(ctx, "acct-1", "device-a", "desktop v2", 1, false)
	if err != nil || !res.Admitted {
		t.Fatalf("re-register: admitted=%v err=%v", res.Admitted, err)
	}

	devices, _ := reg.ActiveDevices(ctx, "acct-1")
	if len(devices) != 1 {
		t.Fatalf("device count = %d, want 1", len(devices))
	}
	if devices[0].DeviceInfo != "desktop v2" {
		t.Fatalf("device info = %q, want refreshed value", devices[0].DeviceInfo)
	}
}

func TestMemoryRegistryForceEvictsOldest(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	reg.Register(ctx, "acct-1", "device-old", "old", 1, false)
	time.Sleep(2 * time.Millisecond) // ensure distinct created_at ordering

	res, err := reg.Register(ctx, "acct-1", "device-new", "new", 1, true)
	if err != nil || !res.Admitted {
		t.Fatalf("forced register: admitted=%v err=%v", res.Admitted, err)
	}

	if present, _ := reg.QueryActive(ctx, "acct-1", "device-old"); present {
		t.Fatal("oldest device should have been evicted")
	}
	if present, _ := reg.QueryActive(ctx, "acct-1", "device-new"); !present {
		t.Fatal("new device should hold the slot")
	}
}

func TestMemoryRegistryDisconnectAndDelete(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	reg.Register(ctx, "acct-1", "device-a", "desktop", 2, false)
	reg.Register(ctx, "acct-1", "device-b", "phone", 2, false)

	if err := reg.Disconnect(ctx, "acct-1", "device-a"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if present, _ := reg.QueryActive(ctx, "acct-1", "device-a"); present {
		t.Fatal("disconnected device still present")
	}
	if present, _ := reg.QueryActive(ctx, "acct-1", "device-b"); !present {
		t.Fatal("other device must be untouched")
	}
}
