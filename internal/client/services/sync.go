package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/workledger/internal/client/client"
	"github.com/dmitrijs2005/workledger/internal/client/codec"
	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/cryptox"
	"github.com/dmitrijs2005/workledger/internal/logging"
	"github.com/dmitrijs2005/workledger/internal/timex"
	"golang.org/x/sync/errgroup"
)

const defaultDecryptWorkers = 4

// PushParams selects what a push sends. DirtyIDs and DeletedIDs are the
// tracked local changes; ForceAll sends every local record.
type PushParams struct {
	Key        *cryptox.Key
	Endpoint   client.Endpoint
	Config     models.SyncConfig
	DirtyIDs   []string
	DeletedIDs []string
	ForceAll   bool
}

// PullParams starts a pull from Config.LastSyncSeq.
type PullParams struct {
	Key           *cryptox.Key
	Endpoint      client.Endpoint
	Config        models.SyncConfig
	OnPhaseChange func(models.Phase)
}

// SyncService implements the two halves of the relay protocol.
type SyncService interface {
	// Push returns nil without any network call when there is nothing to send.
	Push(ctx context.Context, p PushParams) (*models.PushResult, error)
	// Pull returns the partial result together with the error when a
	// page request or a merge fails.
	Pull(ctx context.Context, p PullParams) (models.PullResult, error)
}

type SyncServiceOptions struct {
	Relay    client.Relay
	Store    EntryStore
	Codec    *codec.Codec
	Merger   *MergeEngine
	Clock    timex.Clock
	PageSize int
	Workers  int
	Logger   logging.Logger
}

type syncService struct {
	relay    client.Relay
	store    EntryStore
	codec    *codec.Codec
	merger   *MergeEngine
	clock    timex.Clock
	pageSize int
	workers  int
	logger   logging.Logger
}

func NewSyncService(o SyncServiceOptions) SyncService {
	s := &syncService{
		relay:    o.Relay,
		store:    o.Store,
		codec:    o.Codec,
		merger:   o.Merger,
		clock:    o.Clock,
		pageSize: o.PageSize,
		workers:  o.Workers,
		logger:   o.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.clock == nil {
		s.clock = timex.SystemClock
	}
	if s.pageSize <= 0 {
		s.pageSize = common.DefaultPageSize
	}
	if s.workers <= 0 {
		s.workers = defaultDecryptWorkers
	}
	if s.codec == nil {
		s.codec = codec.New(s.logger, nil)
	}
	if s.merger == nil {
		s.merger = NewMergeEngine(s.store, s.logger)
	}
	return s
}

func (s *syncService) Push(ctx context.Context, p PushParams) (*models.PushResult, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: failed to read local entries: %w", err)
	}

	candidates := selectForPush(all, p)
	now := s.clock()

	batch := make([]models.SyncEntry, 0, len(candidates)+len(p.DeletedIDs))
	for _, e := range candidates {
		se, err := s.codec.EncryptEntry(p.Key, e)
		if err != nil {
			return nil, fmt.Errorf("push: %w", err)
		}
		batch = append(batch, se)
	}
	for _, id := range p.DeletedIDs {
		batch = append(batch, models.NewTombstone(id, now))
	}

	if len(batch) == 0 {
		return nil, nil
	}

	seq, err := s.relay.Push(ctx, p.Endpoint, batch)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "pushed entries", "count", len(batch), "tombstones", len(p.DeletedIDs), "serverSeq", seq)
	return &models.PushResult{
		ServerSeq:  seq,
		SyncedAt:   s.clock(),
		Pushed:     len(batch),
		DirtyIDs:   p.DirtyIDs,
		DeletedIDs: p.DeletedIDs,
	}, nil
}

// selectForPush: everything when forced, else the tracked dirty ids, else
// whatever changed after the last sync.
func selectForPush(all []models.Entry, p PushParams) []models.Entry {
	if p.ForceAll {
		return all
	}

	var out []models.Entry
	if len(p.DirtyIDs) > 0 {
		dirty := make(map[string]struct{}, len(p.DirtyIDs))
		for _, id := range p.DirtyIDs {
			dirty[id] = struct{}{}
		}
		for _, e := range all {
			if _, ok := dirty[e.ID]; ok {
				out = append(out, e)
			}
		}
		return out
	}

	for _, e := range all {
		if e.UpdatedAt > p.Config.LastSyncAt {
			out = append(out, e)
		}
	}
	return out
}

type decryptOutcome struct {
	entry models.DecryptedEntry
	err   error
}

// Pull pages through the relay feed from Config.LastSyncSeq while the relay
// reports more. Two cursors move through the feed: the scan cursor passes
// every page so that records behind an undecryptable one still arrive, and
// the returned cursor covers only the contiguous run of decrypted records,
// so a failed record is fetched again on the next pull.
func (s *syncService) Pull(ctx context.Context, p PullParams) (models.PullResult, error) {
	phase := func(ph models.Phase) {
		if p.OnPhaseChange != nil {
			p.OnPhaseChange(ph)
		}
	}

	res := models.PullResult{ServerSeq: p.Config.LastSyncSeq}
	committed := p.Config.LastSyncSeq
	scan := committed
	blocked := false

	for {
		phase(models.PhasePulling)
		page, err := s.relay.Pull(ctx, p.Endpoint, scan, s.pageSize)
		if err != nil {
			return res, err
		}

		next := scan
		if len(page.Entries) > 0 {
			phase(models.PhaseMerging)
			outcomes := s.decryptPage(ctx, p.Key, page.Entries)

			batch := make([]models.DecryptedEntry, 0, len(outcomes))
			for i, o := range outcomes {
				se := page.Entries[i]
				if se.ServerSeq > next {
					next = se.ServerSeq
				}
				if o.err != nil {
					res.Failed++
					blocked = true
					s.logger.Warn(ctx, "skipping undecryptable entry", "entry", se.ID, "serverSeq", se.ServerSeq, "err", o.err)
					continue
				}
				if o.entry.IntegrityMismatch {
					res.IntegrityWarnings++
				}
				batch = append(batch, o.entry)
				if !blocked && se.ServerSeq > committed {
					committed = se.ServerSeq
				}
			}

			merged, err := s.merger.MergeRemoteEntries(ctx, batch)
			res.TotalMerged += merged.Count
			res.Changed = append(res.Changed, merged.Changed...)
			res.Deleted = append(res.Deleted, merged.Deleted...)
			if err != nil {
				return res, err
			}
		}

		progressed := next > scan
		scan = next

		if len(page.Entries) == 0 || !page.HasMore {
			if !blocked && page.ServerSeq > committed {
				committed = page.ServerSeq
			}
			break
		}
		if !progressed {
			s.logger.Warn(ctx, "pull page did not advance the cursor", "since", scan)
			break
		}
	}

	if blocked {
		s.logger.Warn(ctx, "pull cursor held behind undecryptable entries", "cursor", committed, "scanned", scan, "failed", res.Failed)
	}
	res.ServerSeq = committed
	res.SyncedAt = s.clock()
	s.logger.Info(ctx, "pull finished", "merged", res.TotalMerged, "failed", res.Failed, "cursor", committed)
	return res, nil
}

// decryptPage decrypts a page concurrently and returns outcomes in page order.
func (s *syncService) decryptPage(ctx context.Context, key *cryptox.Key, page []models.SyncEntry) []decryptOutcome {
	out := make([]decryptOutcome, len(page))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, se := range page {
		g.Go(func() error {
			de, err := s.codec.DecryptEntry(ctx, key, se)
			out[i] = decryptOutcome{entry: de, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
