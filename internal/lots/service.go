package lots

import (
	"context"
	"log/slog"
)

// RepositoryPort defines data access required by the auto-completion rule.
type RepositoryPort interface {
	Get(ctx context.Context, lotID, tenantID int64) (Lot, error)
	BagCounts(ctx context.Context, lotID int64) (total int, weighed int, err error)
	MarkCompleted(ctx context.Context, lotID, tenantID int64) error
}

// Service enforces the lot auto-completion rule. It is invoked after any bag
// weight write or lot price write.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// AutoComplete transitions a lot to completed once every bag carries a
// positive weight and the lot has a price. The transition is one-way; a lot
// never reverts. Failures are logged and swallowed so a CRUD write is never
// blocked by the rule.
func (s *Service) AutoComplete(ctx context.Context, lotID, tenantID int64) {
	lot, err := s.repo.Get(ctx, lotID, tenantID)
	if err != nil {
		s.warn("load lot", lotID, err)
		return
	}
	if lot.Status == LotStatusCompleted || !lot.Priced() {
		return
	}
	total, weighed, err := s.repo.BagCounts(ctx, lotID)
	if err != nil {
		s.warn("count bags", lotID, err)
		return
	}
	if total == 0 || weighed != total {
		return
	}
	if err := s.repo.MarkCompleted(ctx, lotID, tenantID); err != nil {
		s.warn("mark completed", lotID, err)
		return
	}
	if s.logger != nil {
		s.logger.Info("lot completed", slog.Int64("lot_id", lotID), slog.Int("bags", total))
	}
}

func (s *Service) warn(op string, lotID int64, err error) {
	if s.logger != nil {
		s.logger.Warn("lot auto-completion skipped", slog.String("op", op), slog.Int64("lot_id", lotID), slog.Any("error", err))
	}
}
