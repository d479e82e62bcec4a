package services

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/dmitrijs2005/workledger/internal/client/client"
	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/cryptox"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory EntryStore.
type memStore struct {
	mu      sync.Mutex
	entries map[string]models.Entry
	failOn  string
	writes  int
}

func newMemStore(es ...models.Entry) *memStore {
	s := &memStore{entries: map[string]models.Entry{}}
	for _, e := range es {
		s.entries[e.ID] = e
	}
	return s
}

func (s *memStore) GetAll(context.Context) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &e, nil
}

func (s *memStore) Upsert(_ context.Context, e models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == s.failOn {
		return errors.New("disk full")
	}
	s.writes++
	s.entries[e.ID] = e
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return common.ErrorNotFound
	}
	s.writes++
	delete(s.entries, id)
	return nil
}

func (s *memStore) get(id string) (models.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// memRelay is an in-memory relay: an append-only log per token.
type memRelay struct {
	mu       sync.Mutex
	salts    map[string]string
	logs     map[string][]models.SyncEntry
	seq      int64
	tokens   []string
	urls     []string
	pushes   [][]models.SyncEntry
	pullFrom []int64

	connectErr error
	pushErr    error
	pullErr    error
	deleteErr  error
	// pushGate, when set, blocks Push until it is closed.
	pushGate chan struct{}
	// pushStarted is signalled when a gated Push begins.
	pushStarted chan struct{}
	// pages, when set, replaces the log for Pull.
	pages []*client.PullPage
}

func newMemRelay() *memRelay {
	return &memRelay{salts: map[string]string{}, logs: map[string][]models.SyncEntry{}}
}

func (r *memRelay) Health(context.Context, client.Endpoint) error { return nil }

func (r *memRelay) Connect(_ context.Context, ep client.Endpoint, salt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, ep.URL)
	if r.connectErr != nil {
		return "", r.connectErr
	}
	key := ep.URL + "|" + ep.Token
	if existing, ok := r.salts[key]; ok {
		return existing, nil
	}
	r.salts[key] = salt
	return salt, nil
}

func (r *memRelay) Push(_ context.Context, ep client.Endpoint, entries []models.SyncEntry) (int64, error) {
	r.mu.Lock()
	gate, started := r.pushGate, r.pushStarted
	r.mu.Unlock()
	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, ep.Token)
	r.pushes = append(r.pushes, entries)
	if r.pushErr != nil {
		return 0, r.pushErr
	}
	key := ep.URL + "|" + ep.Token
	for _, e := range entries {
		r.seq++
		e.ServerSeq = r.seq
		r.logs[key] = append(r.logs[key], e)
	}
	return r.seq, nil
}

func (r *memRelay) Pull(_ context.Context, ep client.Endpoint, since int64, limit int) (*client.PullPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pullFrom = append(r.pullFrom, since)
	if r.pullErr != nil {
		return nil, r.pullErr
	}
	if r.pages != nil {
		if len(r.pages) == 0 {
			return &client.PullPage{}, nil
		}
		p := r.pages[0]
		r.pages = r.pages[1:]
		return p, nil
	}

	var out []models.SyncEntry
	for _, e := range r.logs[ep.URL+"|"+ep.Token] {
		if e.ServerSeq > since {
			out = append(out, e)
		}
	}
	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return &client.PullPage{Entries: out, HasMore: hasMore, ServerSeq: r.seq}, nil
}

func (r *memRelay) DeleteAccount(_ context.Context, ep client.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	key := ep.URL + "|" + ep.Token
	delete(r.logs, key)
	delete(r.salts, key)
	return nil
}

func (r *memRelay) pushCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *memRelay) lastPush() []models.SyncEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pushes) == 0 {
		return nil
	}
	return r.pushes[len(r.pushes)-1]
}

// memSyncStore is an in-memory settings.SyncStore.
type memSyncStore struct {
	mu      sync.Mutex
	cfg     models.SyncConfig
	pending []string
	dirty   []string
	saves   int
	// deleteGate, when set, blocks the next SavePendingDeletes until it is
	// closed; deleteSaving is signalled when that call begins.
	deleteGate   chan struct{}
	deleteSaving chan struct{}
}

func (m *memSyncStore) LoadSyncConfig(context.Context) (models.SyncConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.cfg
	if cfg.Mode == "" {
		cfg.Mode = models.SyncModeOff
	}
	return cfg, nil
}

func (m *memSyncStore) SaveSyncConfig(_ context.Context, cfg models.SyncConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.cfg = cfg
	return nil
}

func (m *memSyncStore) ClearSyncConfig(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = models.SyncConfig{}
	m.pending = nil
	m.dirty = nil
	return nil
}

func (m *memSyncStore) LoadPendingDeletes(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pending...), nil
}

func (m *memSyncStore) SavePendingDeletes(_ context.Context, ids []string) error {
	m.mu.Lock()
	gate, saving := m.deleteGate, m.deleteSaving
	m.deleteGate, m.deleteSaving = nil, nil
	m.mu.Unlock()
	if gate != nil {
		saving <- struct{}{}
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append([]string(nil), ids...)
	return nil
}

func (m *memSyncStore) LoadPendingDirty(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dirty...), nil
}

func (m *memSyncStore) SavePendingDirty(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = append([]string(nil), ids...)
	return nil
}

func (m *memSyncStore) config() models.SyncConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func testKey(t *testing.T, b byte) *cryptox.Key {
	t.Helper()
	k, err := cryptox.NewKey(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return k
}

func entry(id string, updatedAt int64) models.Entry {
	return models.Entry{
		ID:        id,
		DayKey:    "2024-05-01",
		CreatedAt: 100,
		UpdatedAt: updatedAt,
		Blocks:    []models.Block{models.TextBlock("text of " + id)},
		Tags:      []string{},
	}
}

// fixedClock returns a clock that reports now and can be moved.
type fixedClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fixedClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(v int64) {
	c.mu.Lock()
	c.now = v
	c.mu.Unlock()
}
