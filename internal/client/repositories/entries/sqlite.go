package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/dbx"
	"github.com/vmihailenco/msgpack/v5"
)

// SQLiteRepository implements Repository on the local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, day_key, created_at, updated_at, blocks, tags, is_archived, is_pinned, signifier`

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM entries ORDER BY day_key, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.Entry) error {
	blocks := e.Blocks
	if blocks == nil {
		blocks = []models.Block{}
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	blocksBlob, err := msgpack.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("failed to encode blocks: %w", err)
	}
	tagsBlob, err := msgpack.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (`+selectColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				day_key = excluded.day_key,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				blocks = excluded.blocks,
				tags = excluded.tags,
				is_archived = excluded.is_archived,
				is_pinned = excluded.is_pinned,
				signifier = excluded.signifier`,
			e.ID, e.DayKey, e.CreatedAt, e.UpdatedAt, blocksBlob, tagsBlob,
			e.IsArchived, e.IsPinned, string(e.Signifier))
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
		}

		if err := updateSearchIndex(ctx, tx, e); err != nil {
			return err
		}
		return updateBacklinks(ctx, tx, e)
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM search_index WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete search index of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM backlinks WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete backlinks of %s: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete entry %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return common.ErrorNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"

	return r.selectIDs(ctx, `
		SELECT entry_id FROM search_index
		WHERE lower(plain_text) LIKE ? ESCAPE '\' OR lower(tags) LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, entry_id`, pattern, pattern)
}

func (r *SQLiteRepository) Backlinks(ctx context.Context, id string) ([]string, error) {
	return r.selectIDs(ctx,
		`SELECT source_id FROM backlinks WHERE target_id = ? ORDER BY source_id`, id)
}

func (r *SQLiteRepository) selectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func updateSearchIndex(ctx context.Context, tx dbx.DBTX, e models.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO search_index (entry_id, day_key, plain_text, tags, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			day_key = excluded.day_key,
			plain_text = excluded.plain_text,
			tags = excluded.tags,
			updated_at = excluded.updated_at`,
		e.ID, e.DayKey, models.PlainText(e.Blocks), strings.Join(e.Tags, " "), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update search index of %s: %w", e.ID, err)
	}
	return nil
}

func updateBacklinks(ctx context.Context, tx dbx.DBTX, e models.Entry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM backlinks WHERE source_id = ?`, e.ID); err != nil {
		return fmt.Errorf("failed to reset backlinks of %s: %w", e.ID, err)
	}
	for _, target := range models.LinkedEntryIDs(e.Blocks) {
		if target == e.ID {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backlinks (source_id, target_id) VALUES (?, ?)`, e.ID, target); err != nil {
			return fmt.Errorf("failed to insert backlink %s -> %s: %w", e.ID, target, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var (
		e          models.Entry
		blocksBlob []byte
		tagsBlob   []byte
		signifier  string
	)
	if err := s.Scan(&e.ID, &e.DayKey, &e.CreatedAt, &e.UpdatedAt, &blocksBlob, &tagsBlob,
		&e.IsArchived, &e.IsPinned, &signifier); err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(blocksBlob, &e.Blocks); err != nil {
		return nil, fmt.Errorf("failed to decode blocks of %s: %w", e.ID, err)
	}
	if err := msgpack.Unmarshal(tagsBlob, &e.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of %s: %w", e.ID, err)
	}
	e.Signifier = models.Signifier(signifier)
	return &e, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
