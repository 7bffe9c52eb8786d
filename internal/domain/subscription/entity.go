package subscription

import "time"

// Info is the account's billing state as seen by the client: whether a paid
// plan (or trial) is active and how many concurrent device slots it grants.
type Info struct {
	AccountID   string    `json:"account_id"`
	Subscribed  bool      `json:"subscribed"`
	PlanType    string    `json:"plan_type"`
	PeriodEnd   time.Time `json:"period_end"`
	IsTrial     bool      `json:"is_trial"`
	TrialEnd    time.Time `json:"trial_end,omitempty"`
	DeviceSlots int       `json:"device_slots"`
	Features    []string  `json:"features,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Active reports whether any entitlement (paid or trial) is currently live.
func (i *Info) Active(now time.Time) bool {
	if i == nil {
		return false
	}
	if i.Subscribed && now.Before(i.PeriodEnd) {
		return true
	}
	if i.IsTrial && now.Before(i.TrialEnd) {
		return true
	}
	return false
}
