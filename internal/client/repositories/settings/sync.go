package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/dbx"
)

const (
	KeySyncID         = "sync.id"
	KeySyncMode       = "sync.mode"
	KeyServerURL      = "sync.serverUrl"
	KeyLastSyncAt     = "sync.lastSyncAt"
	KeyLastSyncSeq    = "sync.lastSyncSeq"
	KeySalt           = "sync.salt"
	KeyPendingDeletes = "sync.pendingDeletes"
	KeyPendingDirty   = "sync.pendingDirty"
)

var syncKeys = []string{
	KeySyncID, KeySyncMode, KeyServerURL, KeyLastSyncAt, KeyLastSyncSeq, KeySalt, KeyPendingDeletes, KeyPendingDirty,
}

// Store implements SyncStore on the settings table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Settings exposes the raw key/value repository.
func (s *Store) Settings() *SQLiteRepository {
	return NewSQLiteRepository(s.db)
}

func (s *Store) LoadSyncConfig(ctx context.Context) (models.SyncConfig, error) {
	all, err := NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		return models.SyncConfig{}, err
	}

	cfg := models.SyncConfig{
		SyncID:    all[KeySyncID],
		Mode:      models.SyncMode(all[KeySyncMode]),
		ServerURL: all[KeyServerURL],
		Salt:      all[KeySalt],
	}
	if cfg.Mode == "" {
		cfg.Mode = models.SyncModeOff
	}
	if cfg.LastSyncAt, err = parseInt(all, KeyLastSyncAt); err != nil {
		return models.SyncConfig{}, err
	}
	if cfg.LastSyncSeq, err = parseInt(all, KeyLastSyncSeq); err != nil {
		return models.SyncConfig{}, err
	}
	return cfg, nil
}

// SaveSyncConfig writes every field in one transaction. Empty strings and
// zero cursors delete their keys.
func (s *Store) SaveSyncConfig(ctx context.Context, cfg models.SyncConfig) error {
	values := map[string]string{
		KeySyncID:      cfg.SyncID,
		KeySyncMode:    string(cfg.Mode),
		KeyServerURL:   cfg.ServerURL,
		KeySalt:        cfg.Salt,
		KeyLastSyncAt:  formatInt(cfg.LastSyncAt),
		KeyLastSyncSeq: formatInt(cfg.LastSyncSeq),
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		for key, value := range values {
			var err error
			if value == "" {
				err = repo.Delete(ctx, key)
			} else {
				err = repo.Set(ctx, key, value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearSyncConfig removes every sync key, including the pending changes.
func (s *Store) ClearSyncConfig(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		for _, key := range syncKeys {
			if err := repo.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadPendingDeletes(ctx context.Context) ([]string, error) {
	return s.loadIDs(ctx, KeyPendingDeletes)
}

func (s *Store) SavePendingDeletes(ctx context.Context, ids []string) error {
	return s.saveIDs(ctx, KeyPendingDeletes, ids)
}

func (s *Store) LoadPendingDirty(ctx context.Context) ([]string, error) {
	return s.loadIDs(ctx, KeyPendingDirty)
}

func (s *Store) SavePendingDirty(ctx context.Context, ids []string) error {
	return s.saveIDs(ctx, KeyPendingDirty, ids)
}

func (s *Store) loadIDs(ctx context.Context, key string) ([]string, error) {
	raw, ok, err := NewSQLiteRepository(s.db).Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return ids, nil
}

// saveIDs stores ids as a JSON array; an empty list deletes the key.
func (s *Store) saveIDs(ctx context.Context, key string, ids []string) error {
	repo := NewSQLiteRepository(s.db)
	if len(ids) == 0 {
		return repo.Delete(ctx, key)
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return repo.Set(ctx, key, string(b))
}

func parseInt(all map[string]string, key string) (int64, error) {
	raw, ok := all[key]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return v, nil
}

func formatInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
