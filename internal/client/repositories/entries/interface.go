package entries

import (
	"context"

	"github.com/dmitrijs2005/workledger/internal/client/models"
)

// Repository is the read/write contract of the local entry store.
type Repository interface {
	// GetAll returns every entry ordered by day and creation time.
	GetAll(ctx context.Context) ([]models.Entry, error)

	// GetByID returns common.ErrorNotFound when the entry does not exist.
	GetByID(ctx context.Context, id string) (*models.Entry, error)

	// Upsert inserts or replaces the entry and refreshes its indexes.
	Upsert(ctx context.Context, e models.Entry) error

	// Delete removes the entry and its indexes. It returns
	// common.ErrorNotFound when nothing was deleted.
	Delete(ctx context.Context, id string) error

	// Search returns ids of entries whose text or tags contain query.
	Search(ctx context.Context, query string) ([]string, error)

	// Backlinks returns ids of entries that link to id.
	Backlinks(ctx context.Context, id string) ([]string, error)
}
