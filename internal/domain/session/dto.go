package session

type RegisterRequest struct {
	DeviceInfo string `json:"device_info" binding:"required"`
	Force      bool   `json:"force"`
}

type RegisterResponse struct {
	Admitted      bool           `json:"admitted"`
	ActiveDevices []ActiveDevice `json:"active_devices,omitempty"`
}

type QueryActiveResponse struct {
	Present bool `json:"present"`
}
