package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"go.uber.org/zap"
)

// NumberBackfill is the storage a renumber run needs.
type NumberBackfill interface {
	FindWithoutNumber(ctx context.Context) ([]entity.PurchaseRequest, error)
	UpdateNumber(ctx context.Context, id, number string) error
}

// Renumber assigns PR-NNNNNN numbers, oldest first, to records that were
// stored without one. It returns how many records were updated.
func Renumber(ctx context.Context, store NumberBackfill, seq Sequence, logger *zap.Logger) (int, error) {
	pending, err := store.FindWithoutNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("find unnumbered requests: %w", err)
	}

	updated := 0
	for _, pr := range pending {
		n, err := seq.NextValue(ctx, entity.RequestCounterName)
		if err != nil {
			return updated, fmt.Errorf("next request number: %w", err)
		}
		number := entity.FormatRequestNumber(n)
		if err := store.UpdateNumber(ctx, pr.ID, number); err != nil {
			return updated, fmt.Errorf("renumber %s: %w", pr.ID, err)
		}
		logger.Info("Request renumbered",
			zap.String("request_id", pr.ID),
			zap.String("old", pr.RequestNumber),
			zap.String("new", number))
		updated++
	}
	return updated, nil
}
