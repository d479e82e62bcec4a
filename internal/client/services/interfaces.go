package services

import (
	"context"

	"github.com/dmitrijs2005/workledger/internal/client/models"
)

// EntryStore is the part of the local entry store the sync engine uses.
type EntryStore interface {
	GetAll(ctx context.Context) ([]models.Entry, error)
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	Upsert(ctx context.Context, e models.Entry) error
	Delete(ctx context.Context, id string) error
}

// Exporter stores an encrypted snapshot of the notebook somewhere outside
// the relay and returns where it went.
type Exporter interface {
	Export(ctx context.Context, token string, entries []models.SyncEntry) (string, error)
}

// Importer fetches an exported snapshot for token. An empty location
// selects the latest one.
type Importer interface {
	Fetch(ctx context.Context, token, location string) ([]models.SyncEntry, error)
}
