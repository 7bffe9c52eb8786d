package billing

import (
	"net/http"
	"time"

	"resonate-service/internal/middleware"
	xerrors "resonate-service/internal/pkg/errors"
	"resonate-service/internal/pkg/response"
	"resonate-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BillingHandler struct {
	subsRepo *postgres.SubscriptionRepository
	logger   *zap.Logger
}

func NewBillingHandler(subsRepo *postgres.SubscriptionRepository, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{subsRepo: subsRepo, logger: logger}
}

// GetSubscription returns the account's subscription state, falling back to
// the persisted snapshot when the live billing read fails.
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)
	ctx := c.Request.Context()

	info, err := h.subsRepo.CheckBilling(ctx, accountID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotSubscribed) {
			response.Error(c, http.StatusPaymentRequired, "no active subscription", err)
			return
		}

		h.logger.Warn("billing check failed, reading persisted snapshot",
			zap.String("account_id", accountID), zap.Error(err))

		info, err = h.subsRepo.ReadPersisted(ctx, accountID)
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "billing state unavailable", err)
			return
		}
		response.Success(c, http.StatusOK, "subscription state (snapshot)", info)
		return
	}

	info.CheckedAt = time.Now()
	if err := h.subsRepo.SaveSnapshot(ctx, info); err != nil {
		h.logger.Warn("failed to persist subscription snapshot", zap.Error(err))
	}

	response.Success(c, http.StatusOK, "subscription state", info)
}
