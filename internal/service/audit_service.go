package service

import (
	"context"

	"gold_mining/internal/domain"
	"gold_mining/internal/logger"
)

// AuditStore persists audit entries. The postgres AuditRepository is one.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// AuditService handles audit logging. Without a store entries only go to
// the log.
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, address, action, category string, details map[string]interface{}) {
	if s == nil {
		return
	}
	if s.repo == nil {
		logger.Info("audit", "address", address, "action", action, "category", category, "details", details)
		return
	}

	log := &domain.AuditLog{
		Address:  address,
		Action:   action,
		Category: category,
		Details:  details,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "address", address)
	}
}

// LogCheat records a potential cheat signal. These are always logged at
// warn level and counted, whether or not a store is configured.
func (s *AuditService) LogCheat(ctx context.Context, address, action string, details map[string]interface{}) {
	CheatFlags.WithLabelValues(action).Inc()
	logger.Warn("anticheat flag", "address", address, "action", action, "details", details)
	s.Log(ctx, address, action, domain.AuditCategoryAntiCheat, details)
}

// LogPurchase logs a land or equipment purchase
func (s *AuditService) LogPurchase(ctx context.Context, address, action string, details map[string]interface{}) {
	s.Log(ctx, address, action, domain.AuditCategoryPurchase, details)
}

// LogPayout logs a sell and its payout outcome
func (s *AuditService) LogPayout(ctx context.Context, address, action string, amountGold, payoutSOL float64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["amount_gold"] = amountGold
	details["payout_sol"] = payoutSOL

	s.Log(ctx, address, action, domain.AuditCategoryPayout, details)
}
