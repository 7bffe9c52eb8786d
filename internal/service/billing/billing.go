// internal/service/billing/billing.go
package billing

import (
	"context"
	"sync"
	"time"

	"resonate-service/internal/domain/subscription"
	xerrors "resonate-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Source is where subscription state comes from. CheckBilling is the live
// billing read; ReadPersisted is the degraded fallback consulted when the
// live read fails; SaveSnapshot records a successful check for future
// fallback reads.
type Source interface {
	CheckBilling(ctx context.Context, accountID string) (*subscription.Info, error)
	ReadPersisted(ctx context.Context, accountID string) (*subscription.Info, error)
	SaveSnapshot(ctx context.Context, info *subscription.Info) error
}

// Service maintains a TTL-bounded, account-scoped view of billing state so
// admission gating and the UI never block on a live billing read.
type Service struct {
	source Source
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	accountID string
	cached    *subscription.Info
	fetchedAt time.Time
}

func NewService(source Source, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{source: source, ttl: ttl, logger: logger}
}

// Check returns the account's subscription state, served from cache while
// fresh. force bypasses the cache. A cached entry for a different account is
// never served.
func (s *Service) Check(ctx context.Context, accountID string, force bool) (*subscription.Info, error) {
	s.mu.Lock()
	if !force && s.cached != nil && s.accountID == accountID && time.Since(s.fetchedAt) < s.ttl {
		info := s.cached
		s.mu.Unlock()
		return info, nil
	}
	s.mu.Unlock()

	info, err := s.source.CheckBilling(ctx, accountID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotSubscribed) {
			return nil, err
		}

		s.logger.Warn("billing check failed, falling back to persisted snapshot",
			zap.String("account_id", accountID), zap.Error(err))

		info, err = s.source.ReadPersisted(ctx, accountID)
		if err != nil {
			return nil, xerrors.Wrap(err, "billing unavailable and no persisted snapshot")
		}
		s.store(accountID, info)
		return info, nil
	}

	if err := s.source.SaveSnapshot(ctx, info); err != nil {
		s.logger.Warn("failed to persist subscription snapshot", zap.Error(err))
	}
	s.store(accountID, info)
	return info, nil
}

// Invalidate discards the cache, e.g. on sign-out.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.accountID = ""
	s.cached = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Service) store(accountID string, info *subscription.Info) {
	s.mu.Lock()
	s.accountID = accountID
	s.cached = info
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}
