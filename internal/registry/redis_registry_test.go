package registry

import (
	"encoding/json"
	"testing"
	"time"
)

// The force-evict script picks the oldest occupant by comparing
// created_at_ms numerically. RFC3339 strings are not a safe ordering key:
// with mixed fractional-second precision the later time can sort first.
func TestEntryOrderingKeyIsChronological(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	earlier := base
	later := base.Add(500 * time.Millisecond)

	a := newEntry("acct-1", "device-a", "desktop", earlier)
	b := newEntry("acct-1", "device-b", "phone", later)

	if !(a.CreatedAtMS < b.CreatedAtMS) {
		t.Fatalf("created_at_ms %d !< %d for an earlier entry", a.CreatedAtMS, b.CreatedAtMS)
	}

	// The defect shape: lexicographically the later timestamp sorts first.
	if earlier.Format(time.RFC3339Nano) < later.Format(time.RFC3339Nano) {
		t.Fatalf("strings %q < %q: this pair does not exercise the misordering",
			earlier.Format(time.RFC3339Nano), later.Format(time.RFC3339Nano))
	}
}

func TestEntryCarriesNumericOrderingKey(t *testing.T) {
	now := time.Now().UTC()
	raw, err := json.Marshal(newEntry("acct-1", "device-a", "desktop", now))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ms, ok := decoded["created_at_ms"].(float64)
	if !ok {
		t.Fatalf("created_at_ms missing or non-numeric: %v", decoded["created_at_ms"])
	}
	if int64(ms) != now.UnixMilli() {
		t.Fatalf("created_at_ms = %d, want %d", int64(ms), now.UnixMilli())
	}
}
