package session

import "time"

// State is the coordinator's admission state machine.
type State string

const (
	StateUnregistered     State = "unregistered"
	StateAdmitted         State = "admitted"
	StateCapacityExceeded State = "capacity_exceeded"
	StateEvicting         State = "evicting"
)

// Entry is one row of the device-session registry: a device currently
// holding a slot under an account's device limit. CreatedAtMS is a
// millisecond-epoch copy of CreatedAt; registry code that orders entries
// without a time parser (the Redis script) compares it numerically, since
// RFC3339 strings with mixed fractional-second precision do not sort
// chronologically.
type Entry struct {
	SessionID   string    `json:"session_id"`
	AccountID   string    `json:"account_id"`
	DeviceInfo  string    `json:"device_info"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedAtMS int64     `json:"created_at_ms"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActiveDevice is the UI-facing view of a registry entry, surfaced when the
// account is at capacity so the user can pick a device to disconnect.
type ActiveDevice struct {
	SessionID   string    `json:"session_id"`
	DeviceInfo  string    `json:"device_info"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ResultKind classifies one validation pass against the registry.
type ResultKind string

const (
	ResultValid  ResultKind = "valid"
	ResultKicked ResultKind = "kicked"
	ResultError  ResultKind = "error"
)

// ValidationResult is a validation outcome plus the time it was computed,
// cached briefly to absorb bursty triggers.
type ValidationResult struct {
	Kind      ResultKind `json:"kind"`
	CheckedAt time.Time  `json:"checked_at"`
}

// Notice is pushed to the UI layer over the notifier hub. Sticky notices
// must be acknowledged by the user rather than auto-dismissed.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Sticky  bool   `json:"sticky"`
}

const (
	NoticeDeviceLimit = "device_limit"
	NoticeEvicted     = "evicted"
)

// Snapshot is the coordinator state exposed to the UI layer.
type Snapshot struct {
	State           State              `json:"state"`
	ActiveDevices   []ActiveDevice     `json:"active_devices,omitempty"`
	LimitDialogOpen bool               `json:"limit_dialog_open"`
	LastValidation  *ValidationResult  `json:"last_validation,omitempty"`
}
