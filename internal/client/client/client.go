package client

import (
	"context"

	"github.com/dmitrijs2005/workledger/internal/client/models"
)

// Endpoint addresses one relay account.
type Endpoint struct {
	URL   string
	Token string
}

// PullPage is one page of the relay's change feed.
type PullPage struct {
	Entries   []models.SyncEntry `json:"entries"`
	HasMore   bool               `json:"hasMore"`
	ServerSeq int64              `json:"serverSeq"`
}

// Relay is the client side of the relay protocol.
type Relay interface {
	Health(ctx context.Context, ep Endpoint) error
	// Connect registers the token with the proposed salt and returns the
	// salt the relay holds for it, which wins over the proposal.
	Connect(ctx context.Context, ep Endpoint, salt string) (string, error)
	Push(ctx context.Context, ep Endpoint, entries []models.SyncEntry) (int64, error)
	Pull(ctx context.Context, ep Endpoint, since int64, limit int) (*PullPage, error)
	DeleteAccount(ctx context.Context, ep Endpoint) error
}
