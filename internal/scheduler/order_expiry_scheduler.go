package scheduler

import (
	"time"

	"github.com/mduc/storefront-backend/internal/app/service"
	"github.com/mduc/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// OrderExpiryScheduler periodically cancels orders that were checked
// out but never paid within the configured TTL.
type OrderExpiryScheduler struct {
	cron         *cron.Cron
	orderService service.OrderService
	pendingTTL   time.Duration
}

func NewOrderExpiryScheduler(orderService service.OrderService, pendingTTL time.Duration) *OrderExpiryScheduler {
	return &OrderExpiryScheduler{
		cron:         cron.New(),
		orderService: orderService,
		pendingTTL:   pendingTTL,
	}
}

func (s *OrderExpiryScheduler) Start() error {
	// Every 15 minutes; the cutoff itself comes from the TTL.
	_, err := s.cron.AddFunc("*/15 * * * *", func() {
		cancelled, err := s.orderService.CancelStalePending(s.pendingTTL)
		if err != nil {
			logger.Error("Failed to cancel stale pending orders", err, nil)
			return
		}
		if cancelled > 0 {
			logger.Info("Stale pending orders cancelled", map[string]interface{}{
				"count": cancelled,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to register order expiry job", err, nil)
		return err
	}

	s.cron.Start()
	logger.Info("Order expiry scheduler started", map[string]interface{}{
		"pending_ttl": s.pendingTTL.String(),
	})
	return nil
}

func (s *OrderExpiryScheduler) Stop() {
	s.cron.Stop()
	logger.Info("Order expiry scheduler stopped", nil)
}
