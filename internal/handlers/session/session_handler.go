package session

import (
	"net/http"

	sessiondomain "resonate-service/internal/domain/session"
	"resonate-service/internal/domain/subscription"
	"resonate-service/internal/middleware"
	xerrors "resonate-service/internal/pkg/errors"
	"resonate-service/internal/pkg/response"
	"resonate-service/internal/registry"
	"resonate-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	registry registry.Registry
	subsRepo *postgres.SubscriptionRepository
	logger   *zap.Logger
}

func NewSessionHandler(reg registry.Registry, subsRepo *postgres.SubscriptionRepository, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{registry: reg, subsRepo: subsRepo, logger: logger}
}

// Register claims a device slot for the calling device. Capacity refusal is
// 409 with the occupying devices, a recoverable business state rather than
// an error.
func (h *SessionHandler) Register(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)
	deviceID, ok := middleware.GetDeviceID(c)
	if !ok || deviceID == "" {
		response.Error(c, http.StatusBadRequest, "token carries no device identity", nil)
		return
	}

	var req sessiondomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid registration payload", err)
		return
	}

	info, err := h.resolveSubscription(c, accountID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotSubscribed) {
			response.Error(c, http.StatusPaymentRequired, "no active subscription", err)
			return
		}
		response.Error(c, http.StatusServiceUnavailable, "billing state unavailable", err)
		return
	}

	res, err := h.registry.Register(c.Request.Context(), accountID, deviceID, req.DeviceInfo, info.DeviceSlots, req.Force)
	if err != nil {
		h.logger.Error("registry register failed",
			zap.String("account_id", accountID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "registration failed", err)
		return
	}

	resp := sessiondomain.RegisterResponse{
		Admitted:      res.Admitted,
		ActiveDevices: res.ActiveDevices,
	}
	if !res.Admitted {
		response.Error(c, http.StatusConflict, "device limit reached", nil, resp)
		return
	}
	response.Success(c, http.StatusOK, "device admitted", resp)
}

// QueryActive reports whether a session still holds a slot. Defaults to the
// caller's own device when session_id is not given.
func (h *SessionHandler) QueryActive(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID, _ = middleware.GetDeviceID(c)
	}

	present, err := h.registry.QueryActive(c.Request.Context(), accountID, sessionID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "session query failed", err)
		return
	}

	response.Success(c, http.StatusOK, "session state", sessiondomain.QueryActiveResponse{Present: present})
}

// Devices lists the account's active registry entries.
func (h *SessionHandler) Devices(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	devices, err := h.registry.ActiveDevices(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list devices", err)
		return
	}

	response.Success(c, http.StatusOK, "active devices", devices)
}

// Disconnect removes one device's entry, either the caller's own sign-out or
// a user-requested disconnect of another device.
func (h *SessionHandler) Disconnect(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	targetID := c.Param("session_id")
	if targetID == "" {
		response.ValidationError(c, "missing session id", nil)
		return
	}

	if err := h.registry.Disconnect(c.Request.Context(), accountID, targetID); err != nil {
		response.Error(c, http.StatusInternalServerError, "disconnect failed", err)
		return
	}

	h.logger.Info("device disconnected",
		zap.String("account_id", accountID),
		zap.String("session_id", targetID))

	response.Success(c, http.StatusOK, "device disconnected", nil)
}

// resolveSubscription runs the billing fallback chain: live check first,
// persisted snapshot as degraded truth when the live read fails.
func (h *SessionHandler) resolveSubscription(c *gin.Context, accountID string) (*subscription.Info, error) {
	ctx := c.Request.Context()

	info, err := h.subsRepo.CheckBilling(ctx, accountID)
	if err == nil {
		if saveErr := h.subsRepo.SaveSnapshot(ctx, info); saveErr != nil {
			h.logger.Warn("failed to persist subscription snapshot", zap.Error(saveErr))
		}
		return info, nil
	}
	if xerrors.Is(err, xerrors.ErrNotSubscribed) {
		return nil, err
	}

	h.logger.Warn("billing check failed, reading persisted snapshot",
		zap.String("account_id", accountID), zap.Error(err))
	return h.subsRepo.ReadPersisted(ctx, accountID)
}
