package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/db/models"
	"medequip-backend/utils"
)

// StatusRefresher recomputes Due/Overdue/Lapsed for open PM records as months pass.
type StatusRefresher struct {
	store    PMStore
	pageSize int
	now      func() time.Time
}

func NewStatusRefresher(store PMStore, pageSize int, now func() time.Time) *StatusRefresher {
	if pageSize <= 0 {
		pageSize = 500
	}
	if now == nil {
		now = utils.Today
	}
	return &StatusRefresher{store: store, pageSize: pageSize, now: now}
}

// Refresh walks every non-completed PM and returns how many changed status.
func (r *StatusRefresher) Refresh(ctx context.Context) (int, error) {
	now := r.now()
	changed := 0
	after := uuid.Nil
	for {
		page, err := r.store.FindOpenAfter(ctx, after, r.pageSize)
		if err != nil {
			return changed, err
		}
		if len(page) == 0 {
			break
		}

		moves := make(map[models.PMStatus][]uuid.UUID)
		for _, pm := range page {
			if next := ClassifyStatus(pm.PmDueDate, now); next != pm.PmStatus {
				moves[next] = append(moves[next], pm.ID)
			}
		}
		for status, ids := range moves {
			if err := r.store.SetStatus(ctx, ids, status); err != nil {
				return changed, err
			}
			changed += len(ids)
		}

		after = page[len(page)-1].ID
		if len(page) < r.pageSize {
			break
		}
	}
	config.Logger.Info("PM statuses refreshed", zap.Int("changed", changed))
	return changed, nil
}
