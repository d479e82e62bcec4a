package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/workledger/internal/client/client"
	"github.com/dmitrijs2005/workledger/internal/client/codec"
	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/client/repositories/settings"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/cryptox"
	"github.com/dmitrijs2005/workledger/internal/events"
	"github.com/dmitrijs2005/workledger/internal/logging"
	"github.com/dmitrijs2005/workledger/internal/timex"
)

type SessionOptions struct {
	Relay    client.Relay
	Settings settings.SyncStore
	Entries  EntryStore
	// Bus receives status changes and merged entry events. Optional.
	Bus    *events.Bus
	Logger logging.Logger
	Clock  timex.Clock
	// Rand feeds identities, salts and nonces. Defaults to crypto/rand.
	Rand             io.Reader
	DefaultServerURL string
	PageSize         int
	Workers          int
}

// Session is the sync state machine:
//
//	disconnected -> connecting -> connected <-> syncing
//	connected -> disconnected (disconnect, account deletion, mode off)
//
// Only one sync cycle runs at a time; a SyncNow issued while another is
// in flight returns immediately without doing anything. Configuration
// changes wait for the running cycle to finish.
//
// Lock order: syncMu, persistMu, mu.
type Session struct {
	syncMu    sync.Mutex
	persistMu sync.Mutex // held across snapshotting and saving the pending changes

	relay      client.Relay
	settings   settings.SyncStore
	entries    EntryStore
	bus        *events.Bus
	logger     logging.Logger
	rand       io.Reader
	defaultURL string
	clock      timex.Clock
	codec      *codec.Codec
	syncer     SyncService

	mu             sync.Mutex
	cfg            models.SyncConfig
	key            *cryptox.Key
	state          models.State
	phase          models.Phase
	gen            uint64
	dirty          map[string]uint64
	deleted        map[string]uint64
	forceAll       bool
	lastErr        string
	lastMerged     int
	integrityWarns int
}

func NewSession(o SessionOptions) *Session {
	logger := o.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("component", "sync")
	clock := o.Clock
	if clock == nil {
		clock = timex.SystemClock
	}

	cdc := codec.New(logger, o.Rand)
	syncer := NewSyncService(SyncServiceOptions{
		Relay:    o.Relay,
		Store:    o.Entries,
		Codec:    cdc,
		Merger:   NewMergeEngine(o.Entries, logger),
		Clock:    clock,
		PageSize: o.PageSize,
		Workers:  o.Workers,
		Logger:   logger,
	})
	return &Session{
		relay:      o.Relay,
		settings:   o.Settings,
		entries:    o.Entries,
		bus:        o.Bus,
		logger:     logger,
		rand:       o.Rand,
		defaultURL: o.DefaultServerURL,
		clock:      clock,
		codec:      cdc,
		syncer:     syncer,
		cfg:        models.SyncConfig{Mode: models.SyncModeOff},
		state:      models.StateDisconnected,
		phase:      models.PhaseIdle,
		dirty:      map[string]uint64{},
		deleted:    map[string]uint64{},
	}
}

// GenerateSyncID returns a fresh identity without connecting.
func (s *Session) GenerateSyncID() (string, error) {
	return cryptox.GenerateIdentity(s.rand)
}

// Resume restores the persisted configuration. When sync was connected the
// key is re-derived offline and the session goes straight to connected.
func (s *Session) Resume(ctx context.Context) error {
	cfg, err := s.settings.LoadSyncConfig(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	pending, err := s.settings.LoadPendingDeletes(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	edited, err := s.settings.LoadPendingDirty(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	var key *cryptox.Key
	if cfg.Enabled() && cfg.Mode == models.SyncModeConnected && cfg.Salt != "" {
		key, err = cryptox.DeriveIdentityKey(cfg.SyncID, cfg.Salt)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	}

	s.mu.Lock()
	s.cfg = cfg
	for _, id := range edited {
		s.gen++
		s.dirty[id] = s.gen
	}
	for _, id := range pending {
		delete(s.dirty, id)
		s.gen++
		s.deleted[id] = s.gen
	}
	if key != nil {
		s.replaceKeyLocked(key)
		s.state = models.StateConnected
	}
	s.mu.Unlock()

	s.notify(ctx)
	return nil
}

// Connect joins the identity's relay account, learns its salt, derives the
// key and schedules a full push. A malformed id fails before any network call.
func (s *Session) Connect(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if err := cryptox.ValidateIdentity(identity); err != nil {
		return err
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	prev := s.cfg
	prevState := s.state
	s.state = models.StateConnecting
	s.lastErr = ""
	s.mu.Unlock()
	s.notify(ctx)

	proposed := prev.Salt
	if prev.SyncID != identity || proposed == "" {
		var err error
		if proposed, err = cryptox.NewSalt(s.rand); err != nil {
			return s.failConnect(ctx, prevState, err)
		}
	}

	ep := client.Endpoint{URL: s.serverURL(prev), Token: cryptox.ComputeAuthToken(identity)}
	salt, err := s.relay.Connect(ctx, ep, proposed)
	if err != nil {
		return s.failConnect(ctx, prevState, err)
	}

	key, err := cryptox.DeriveIdentityKey(identity, salt)
	if err != nil {
		return s.failConnect(ctx, prevState, err)
	}

	cfg := prev
	cfg.SyncID = identity
	cfg.Mode = models.SyncModeConnected
	if prev.SyncID != identity || prev.Salt != salt {
		cfg.LastSyncAt = 0
		cfg.LastSyncSeq = 0
	}
	cfg.Salt = salt

	if err := s.settings.SaveSyncConfig(ctx, cfg); err != nil {
		key.Wipe()
		return s.failConnect(ctx, prevState, err)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.replaceKeyLocked(key)
	s.state = models.StateConnected
	s.forceAll = true
	s.mu.Unlock()

	s.logger.Info(ctx, "sync connected", "server", ep.URL)
	s.notify(ctx)
	return nil
}

func (s *Session) failConnect(ctx context.Context, prevState models.State, err error) error {
	s.mu.Lock()
	if prevState == models.StateConnected && s.key != nil {
		s.state = models.StateConnected
	} else {
		s.state = models.StateDisconnected
	}
	s.lastErr = err.Error()
	s.mu.Unlock()

	s.logger.Error(ctx, "sync connect failed", "err", err)
	s.notify(ctx)
	return fmt.Errorf("connect: %w", err)
}

// Disconnect forgets the identity on this device: the key is wiped and the
// persisted configuration and pending changes are removed.
func (s *Session) Disconnect(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.persistMu.Lock()
	if err := s.settings.ClearSyncConfig(ctx); err != nil {
		s.persistMu.Unlock()
		return fmt.Errorf("disconnect: %w", err)
	}
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.persistMu.Unlock()

	s.logger.Info(ctx, "sync disconnected")
	s.notify(ctx)
	return nil
}

// DeleteAccount removes every record of the identity from the relay, then
// disconnects. Nothing local changes when the relay call fails.
func (s *Session) DeleteAccount(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if !cfg.Enabled() {
		return ErrNotConfigured
	}

	if err := s.relay.DeleteAccount(ctx, s.endpoint(cfg)); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.notify(ctx)
		return fmt.Errorf("delete account: %w", err)
	}

	s.persistMu.Lock()
	if err := s.settings.ClearSyncConfig(ctx); err != nil {
		s.persistMu.Unlock()
		return fmt.Errorf("delete account: %w", err)
	}
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.persistMu.Unlock()

	s.logger.Info(ctx, "sync account deleted")
	s.notify(ctx)
	return nil
}

// SetMode switches sync on or off without forgetting the identity.
func (s *Session) SetMode(ctx context.Context, mode models.SyncMode) error {
	if mode != models.SyncModeOff && mode != models.SyncModeConnected {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	var key *cryptox.Key
	if mode == models.SyncModeConnected {
		if !cfg.Enabled() || cfg.Salt == "" {
			return ErrNotConfigured
		}
		var err error
		if key, err = cryptox.DeriveIdentityKey(cfg.SyncID, cfg.Salt); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
	}

	cfg.Mode = mode
	if err := s.settings.SaveSyncConfig(ctx, cfg); err != nil {
		key.Wipe()
		return fmt.Errorf("set mode: %w", err)
	}

	s.mu.Lock()
	s.cfg = cfg
	if key != nil {
		s.replaceKeyLocked(key)
		s.state = models.StateConnected
	} else {
		s.replaceKeyLocked(nil)
		s.state = models.StateDisconnected
	}
	s.mu.Unlock()

	s.notify(ctx)
	return nil
}

// SetServerURL overrides the relay address; "" or "default" restores the
// default. A relay change resets the pull cursor and schedules a full
// push. An active session re-registers with the new relay first and keeps
// the old address when that fails.
func (s *Session) SetServerURL(ctx context.Context, raw string) error {
	serverURL, err := normalizeServerURL(raw)
	if err != nil {
		return err
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	cfg := s.cfg
	active := s.state == models.StateConnected && s.key != nil
	s.mu.Unlock()

	if cfg.ServerURL == serverURL {
		return nil
	}
	cfg.ServerURL = serverURL

	var key *cryptox.Key
	if cfg.Enabled() {
		cfg.LastSyncAt = 0
		cfg.LastSyncSeq = 0
	}
	if active {
		salt, err := s.relay.Connect(ctx, s.endpoint(cfg), cfg.Salt)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err.Error()
			s.mu.Unlock()
			s.notify(ctx)
			return fmt.Errorf("set server url: %w", err)
		}
		if salt != cfg.Salt {
			if key, err = cryptox.DeriveIdentityKey(cfg.SyncID, salt); err != nil {
				return fmt.Errorf("set server url: %w", err)
			}
			cfg.Salt = salt
		}
	}

	if err := s.settings.SaveSyncConfig(ctx, cfg); err != nil {
		key.Wipe()
		return fmt.Errorf("set server url: %w", err)
	}

	s.mu.Lock()
	s.cfg = cfg
	if key != nil {
		s.replaceKeyLocked(key)
	}
	if cfg.Enabled() {
		s.forceAll = true
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "sync server changed", "server", s.serverURL(cfg))
	s.notify(ctx)
	return nil
}

// SyncNow runs one push+pull cycle. It returns (nil, nil) when another
// cycle is already running. On failure the cursors stay where they were;
// records merged before the failure stay merged.
func (s *Session) SyncNow(ctx context.Context) (*models.SyncResult, error) {
	if !s.syncMu.TryLock() {
		s.logger.Debug(ctx, "sync already in progress")
		return nil, nil
	}
	defer s.syncMu.Unlock()

	s.mu.Lock()
	if s.state != models.StateConnected || s.key == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	cfg := s.cfg
	key := s.key
	force := s.forceAll
	dirtySnap := copyGen(s.dirty)
	deletedSnap := copyGen(s.deleted)
	s.state = models.StateSyncing
	s.phase = models.PhasePushing
	s.mu.Unlock()
	s.notify(ctx)

	ep := s.endpoint(cfg)
	result := &models.SyncResult{}
	// Anything edited after this instant is newer than LastSyncAt.
	startedAt := s.clock()

	push, err := s.syncer.Push(ctx, PushParams{
		Key:        key,
		Endpoint:   ep,
		Config:     cfg,
		DirtyIDs:   sortedKeys(dirtySnap),
		DeletedIDs: sortedKeys(deletedSnap),
		ForceAll:   force,
	})
	if err != nil {
		return nil, s.finishSync(ctx, fmt.Errorf("push: %w", err))
	}
	result.Push = push

	s.mu.Lock()
	s.forceAll = false
	if push != nil {
		cfg.LastSyncAt = startedAt
		s.cfg.LastSyncAt = startedAt
		dropSnapshot(s.dirty, dirtySnap)
		dropSnapshot(s.deleted, deletedSnap)
	}
	s.mu.Unlock()

	if push != nil {
		if err := s.settings.SaveSyncConfig(ctx, cfg); err != nil {
			return result, s.finishSync(ctx, err)
		}
		if err := s.savePending(ctx); err != nil {
			return result, s.finishSync(ctx, err)
		}
	}

	pull, err := s.syncer.Pull(ctx, PullParams{
		Key:           key,
		Endpoint:      ep,
		Config:        cfg,
		OnPhaseChange: func(ph models.Phase) { s.setPhase(ctx, ph) },
	})
	result.Pull = pull
	s.publishMerged(ctx, pull)
	if err != nil {
		return result, s.finishSync(ctx, fmt.Errorf("pull: %w", err))
	}

	cfg.LastSyncSeq = pull.ServerSeq
	cfg.LastSyncAt = startedAt
	if err := s.settings.SaveSyncConfig(ctx, cfg); err != nil {
		return result, s.finishSync(ctx, err)
	}

	s.mu.Lock()
	s.cfg.LastSyncSeq = cfg.LastSyncSeq
	s.cfg.LastSyncAt = cfg.LastSyncAt
	s.lastMerged = pull.TotalMerged
	s.integrityWarns += pull.IntegrityWarnings
	s.lastErr = ""
	s.state = models.StateConnected
	s.phase = models.PhaseIdle
	s.mu.Unlock()

	s.notify(ctx)
	return result, nil
}

func (s *Session) finishSync(ctx context.Context, err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.state = models.StateConnected
	s.phase = models.PhaseIdle
	s.mu.Unlock()

	s.logger.Error(ctx, "sync cycle failed", "err", err)
	s.notify(ctx)
	return err
}

func (s *Session) setPhase(ctx context.Context, ph models.Phase) {
	s.mu.Lock()
	changed := s.phase != ph
	s.phase = ph
	s.mu.Unlock()
	if changed {
		s.notify(ctx)
	}
}

// MarkDirty records a local edit for the next push. Pending edits are
// persisted so that they are pushed even after a restart.
func (s *Session) MarkDirty(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.cfg.Enabled() {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.dirty[id] = s.gen
	s.mu.Unlock()

	return s.savePending(ctx)
}

// MarkDeleted records a local deletion. Pending deletions are persisted so
// that the tombstone survives a restart.
func (s *Session) MarkDeleted(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.cfg.Enabled() {
		s.mu.Unlock()
		return nil
	}
	delete(s.dirty, id)
	s.gen++
	s.deleted[id] = s.gen
	s.mu.Unlock()

	return s.savePending(ctx)
}

// savePending writes the current pending edits and deletions. The snapshot
// is taken under persistMu so a later save never carries an older list.
func (s *Session) savePending(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if !s.cfg.Enabled() {
		s.mu.Unlock()
		return nil
	}
	dirty := sortedKeys(s.dirty)
	deleted := sortedKeys(s.deleted)
	s.mu.Unlock()

	if err := s.settings.SavePendingDirty(ctx, dirty); err != nil {
		return fmt.Errorf("save pending edits: %w", err)
	}
	if err := s.settings.SavePendingDeletes(ctx, deleted); err != nil {
		return fmt.Errorf("save pending deletes: %w", err)
	}
	return nil
}

// Watch feeds locally originated entry events into the dirty tracking.
// The returned function unsubscribes.
func (s *Session) Watch(bus *events.Bus) func() {
	id := bus.Subscribe(func(ctx context.Context, e events.Event) {
		if e.Origin != events.OriginLocal {
			return
		}
		switch e.Type {
		case events.EntryChanged:
			if err := s.MarkDirty(ctx, e.EntryID); err != nil {
				s.logger.Error(ctx, "failed to record edit", "entry", e.EntryID, "err", err)
			}
		case events.EntryDeleted:
			if err := s.MarkDeleted(ctx, e.EntryID); err != nil {
				s.logger.Error(ctx, "failed to record deletion", "entry", e.EntryID, "err", err)
			}
		}
	}, events.EntryChanged, events.EntryDeleted)

	return func() { bus.Unsubscribe(id) }
}

// Ping checks that the relay answers for the configured identity.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if !cfg.Enabled() {
		return ErrNotConfigured
	}
	return s.relay.Health(ctx, s.endpoint(cfg))
}

// Status returns a snapshot for display.
func (s *Session) Status() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SyncStatus{
		State:          s.state,
		Phase:          s.phase,
		Mode:           s.cfg.Mode,
		SyncID:         s.cfg.SyncID,
		ServerURL:      s.serverURL(s.cfg),
		LastSyncAt:     s.cfg.LastSyncAt,
		LastSyncSeq:    s.cfg.LastSyncSeq,
		LastMerged:     s.lastMerged,
		LastError:      s.lastErr,
		IntegrityWarns: s.integrityWarns,
		PendingDirty:   len(s.dirty),
		PendingDeletes: len(s.deleted),
	}
}

// Export encrypts every local entry under the session key and hands the
// batch to exp. It needs a connected session.
func (s *Session) Export(ctx context.Context, exp Exporter) (string, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	key := s.key
	cfg := s.cfg
	s.mu.Unlock()
	if key == nil {
		return "", ErrNotConnected
	}

	all, err := s.entries.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	batch := make([]models.SyncEntry, 0, len(all))
	for _, e := range all {
		se, err := s.codec.EncryptEntry(key, e)
		if err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
		batch = append(batch, se)
	}

	location, err := exp.Export(ctx, cryptox.ComputeAuthToken(cfg.SyncID), batch)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	s.logger.Info(ctx, "notebook exported", "entries", len(batch), "location", location)
	return location, nil
}

// Import restores entries from an exported snapshot. Records that fail to
// decrypt or validate are counted as invalid; records that exist locally and
// are not archived are kept. Imported records are queued for the next push.
// An empty location means the latest snapshot.
func (s *Session) Import(ctx context.Context, imp Importer, location string) (models.ImportResult, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	key := s.key
	cfg := s.cfg
	s.mu.Unlock()
	if key == nil {
		return models.ImportResult{}, ErrNotConnected
	}

	batch, err := imp.Fetch(ctx, cryptox.ComputeAuthToken(cfg.SyncID), location)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("import: %w", err)
	}

	var res models.ImportResult
	for _, se := range batch {
		if se.IsDeleted || se.ID == "" {
			res.Invalid++
			continue
		}
		de, err := s.codec.DecryptEntry(ctx, key, se)
		if err != nil {
			res.Invalid++
			s.logger.Warn(ctx, "skipping undecryptable backup entry", "entry", se.ID, "err", err)
			continue
		}
		if de.DayKey == "" || !de.Signifier.Valid() {
			res.Invalid++
			continue
		}

		existing, err := s.entries.GetByID(ctx, de.ID)
		switch {
		case err == nil && !existing.IsArchived:
			res.Skipped++
			continue
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return res, fmt.Errorf("import %s: %w", de.ID, err)
		}

		if err := s.entries.Upsert(ctx, de.Entry); err != nil {
			return res, fmt.Errorf("import %s: %w", de.ID, err)
		}
		res.Imported++
		res.Changed = append(res.Changed, de.ID)
	}

	s.mu.Lock()
	for _, id := range res.Changed {
		s.gen++
		s.dirty[id] = s.gen
	}
	s.mu.Unlock()
	if err := s.savePending(ctx); err != nil {
		return res, fmt.Errorf("import: %w", err)
	}
	s.publishMerged(ctx, models.PullResult{Changed: res.Changed})

	s.logger.Info(ctx, "notebook imported", "imported", res.Imported, "skipped", res.Skipped, "invalid", res.Invalid)
	s.notify(ctx)
	return res, nil
}

// Close wipes the in-memory key.
func (s *Session) Close() {
	s.mu.Lock()
	s.replaceKeyLocked(nil)
	s.mu.Unlock()
}

func (s *Session) publishMerged(ctx context.Context, pull models.PullResult) {
	if s.bus == nil {
		return
	}
	for _, id := range pull.Changed {
		s.bus.Publish(ctx, events.Event{Type: events.EntryChanged, EntryID: id, Origin: events.OriginSync})
	}
	for _, id := range pull.Deleted {
		s.bus.Publish(ctx, events.Event{Type: events.EntryDeleted, EntryID: id, Origin: events.OriginSync})
	}
}

func (s *Session) notify(ctx context.Context) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.Event{Type: events.SyncStatusChanged, Data: s.Status()})
}

func (s *Session) endpoint(cfg models.SyncConfig) client.Endpoint {
	return client.Endpoint{URL: s.serverURL(cfg), Token: cryptox.ComputeAuthToken(cfg.SyncID)}
}

func (s *Session) serverURL(cfg models.SyncConfig) string {
	if cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return s.defaultURL
}

func (s *Session) replaceKeyLocked(key *cryptox.Key) {
	if s.key != nil && s.key != key {
		s.key.Wipe()
	}
	s.key = key
}

func (s *Session) teardownLocked() {
	s.replaceKeyLocked(nil)
	s.cfg = models.SyncConfig{Mode: models.SyncModeOff}
	s.state = models.StateDisconnected
	s.phase = models.PhaseIdle
	s.dirty = map[string]uint64{}
	s.deleted = map[string]uint64{}
	s.forceAll = false
	s.lastErr = ""
	s.lastMerged = 0
	s.integrityWarns = 0
}

func normalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidServerURL, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func copyGen(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// dropSnapshot removes ids that were not marked again after the snapshot.
func dropSnapshot(live, snap map[string]uint64) {
	for id, gen := range snap {
		if live[id] == gen {
			delete(live, id)
		}
	}
}

func sortedKeys(m map[string]uint64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
