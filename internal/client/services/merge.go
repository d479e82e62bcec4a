package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/logging"
)

// MergeEngine applies remote records to the local store with
// last-writer-wins on UpdatedAt. A remote record must be strictly newer to
// win, so re-merging the same data is a no-op.
type MergeEngine struct {
	mu     sync.Mutex
	store  EntryStore
	logger logging.Logger
}

func NewMergeEngine(store EntryStore, logger logging.Logger) *MergeEngine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &MergeEngine{store: store, logger: logger}
}

// MergeRemoteEntries merges in order and reports the records it mutated.
// On a store error the records merged so far stay merged and are reported.
func (m *MergeEngine) MergeRemoteEntries(ctx context.Context, incoming []models.DecryptedEntry) (models.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res models.MergeResult
	for _, in := range incoming {
		changed, err := m.mergeOne(ctx, in)
		if err != nil {
			return res, err
		}
		if !changed {
			continue
		}
		res.Count++
		if in.IsDeleted {
			res.Deleted = append(res.Deleted, in.ID)
		} else {
			res.Changed = append(res.Changed, in.ID)
		}
	}
	return res, nil
}

func (m *MergeEngine) mergeOne(ctx context.Context, in models.DecryptedEntry) (bool, error) {
	local, err := m.store.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("merge %s: %w", in.ID, err)
	}

	if local == nil {
		if in.IsDeleted {
			return false, nil
		}
		if err := m.store.Upsert(ctx, in.Entry); err != nil {
			return false, fmt.Errorf("merge %s: insert: %w", in.ID, err)
		}
		m.logger.Debug(ctx, "merged remote entry", "entry", in.ID, "action", "insert")
		return true, nil
	}

	if in.UpdatedAt <= local.UpdatedAt {
		return false, nil
	}

	if in.IsDeleted {
		if err := m.store.Delete(ctx, in.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return false, fmt.Errorf("merge %s: delete: %w", in.ID, err)
		}
		m.logger.Debug(ctx, "merged remote entry", "entry", in.ID, "action", "delete")
		return true, nil
	}

	if err := m.store.Upsert(ctx, in.Entry); err != nil {
		return false, fmt.Errorf("merge %s: update: %w", in.ID, err)
	}
	m.logger.Debug(ctx, "merged remote entry", "entry", in.ID, "action", "update")
	return true, nil
}
