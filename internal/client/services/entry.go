package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/client/repositories/entries"
	"github.com/dmitrijs2005/workledger/internal/events"
	"github.com/dmitrijs2005/workledger/internal/timex"
	"github.com/google/uuid"
)

const dayKeyLayout = "2006-01-02"

// EntryService is the local notebook API used by the CLI. Every mutation
// is announced on the bus with local origin.
type EntryService interface {
	Create(ctx context.Context, text string, tags []string) (*models.Entry, error)
	Update(ctx context.Context, e models.Entry) (*models.Entry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Entry, error)
	List(ctx context.Context) ([]models.Entry, error)
	Search(ctx context.Context, query string) ([]models.Entry, error)
	Backlinks(ctx context.Context, id string) ([]string, error)
}

type entryService struct {
	repo  entries.Repository
	bus   *events.Bus
	clock timex.Clock
}

func NewEntryService(repo entries.Repository, bus *events.Bus, clock timex.Clock) EntryService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &entryService{repo: repo, bus: bus, clock: clock}
}

func (s *entryService) Create(ctx context.Context, text string, tags []string) (*models.Entry, error) {
	now := s.clock()
	e := models.Entry{
		ID:        uuid.NewString(),
		DayKey:    time.UnixMilli(now).Format(dayKeyLayout),
		CreatedAt: now,
		UpdatedAt: now,
		Blocks:    []models.Block{},
		Tags:      tags,
	}
	if text != "" {
		e.Blocks = append(e.Blocks, models.TextBlock(text))
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}

	if err := s.repo.Upsert(ctx, e); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	s.publish(ctx, events.EntryChanged, e.ID)
	return &e, nil
}

// Update stores e with a fresh UpdatedAt. The timestamp never moves
// backwards even if the wall clock does.
func (s *entryService) Update(ctx context.Context, e models.Entry) (*models.Entry, error) {
	if !e.Signifier.Valid() {
		return nil, fmt.Errorf("unknown signifier %q", e.Signifier)
	}
	current, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving entry: %w", err)
	}

	now := s.clock()
	if now <= current.UpdatedAt {
		now = current.UpdatedAt + 1
	}
	e.UpdatedAt = now
	e.CreatedAt = current.CreatedAt

	if err := s.repo.Upsert(ctx, e); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	s.publish(ctx, events.EntryChanged, e.ID)
	return &e, nil
}

func (s *entryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting entry: %w", err)
	}
	s.publish(ctx, events.EntryDeleted, id)
	return nil
}

func (s *entryService) Get(ctx context.Context, id string) (*models.Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving entry: %w", err)
	}
	return e, nil
}

func (s *entryService) List(ctx context.Context) ([]models.Entry, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return all, nil
}

func (s *entryService) Search(ctx context.Context, query string) ([]models.Entry, error) {
	ids, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search error: %w", err)
	}
	out := make([]models.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error retrieving entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *entryService) Backlinks(ctx context.Context, id string) ([]string, error) {
	return s.repo.Backlinks(ctx, id)
}

func (s *entryService) publish(ctx context.Context, t events.Type, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.Event{Type: t, EntryID: id, Origin: events.OriginLocal})
}
