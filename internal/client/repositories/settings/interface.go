// Package settings is the local key/value settings store. The sync
// configuration is persisted here under the sync.* keys.
package settings

import (
	"context"

	"github.com/dmitrijs2005/workledger/internal/client/models"
)

type Repository interface {
	// Get returns ok=false when key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}

// SyncStore persists the sync configuration and the local changes still
// waiting to be pushed: edited ids and tombstones.
type SyncStore interface {
	LoadSyncConfig(ctx context.Context) (models.SyncConfig, error)
	SaveSyncConfig(ctx context.Context, cfg models.SyncConfig) error
	ClearSyncConfig(ctx context.Context) error
	LoadPendingDeletes(ctx context.Context) ([]string, error)
	SavePendingDeletes(ctx context.Context, ids []string) error
	LoadPendingDirty(ctx context.Context) ([]string, error)
	SavePendingDirty(ctx context.Context, ids []string) error
}
