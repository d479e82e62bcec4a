package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/client/services"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu sync.Mutex

	status     models.SyncStatus
	connectID  string
	connectErr error
	syncCalls  int
	syncRes    *models.SyncResult
	syncErr    error
	synced     chan struct{}
	mode       models.SyncMode
	serverURL  string
	deleted    bool
	disconnect bool
	exported   services.Exporter
	pingErr    error
	imported   services.Importer
	importLoc  string
	importRes  models.ImportResult
	importErr  error
}

func (f *fakeSession) Ping(context.Context) error { return f.pingErr }

func (f *fakeSession) GenerateSyncID() (string, error) { return "wl-00112233445566778899", nil }

func (f *fakeSession) Connect(_ context.Context, id string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connectID = id
	return nil
}

func (f *fakeSession) Disconnect(context.Context) error { f.disconnect = true; return nil }

func (f *fakeSession) DeleteAccount(context.Context) error { f.deleted = true; return nil }

func (f *fakeSession) SetMode(_ context.Context, m models.SyncMode) error {
	if m != models.SyncModeOff && m != models.SyncModeConnected {
		return services.ErrInvalidMode
	}
	f.mode = m
	return nil
}

func (f *fakeSession) SetServerURL(_ context.Context, raw string) error {
	f.serverURL = raw
	f.status.ServerURL = raw
	return nil
}

func (f *fakeSession) SyncNow(context.Context) (*models.SyncResult, error) {
	f.mu.Lock()
	f.syncCalls++
	res, err, ch := f.syncRes, f.syncErr, f.synced
	f.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return res, err
}

func (f *fakeSession) Status() models.SyncStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSession) Export(_ context.Context, exp services.Exporter) (string, error) {
	f.exported = exp
	return "s3://b/k.json", nil
}

func (f *fakeSession) Import(_ context.Context, imp services.Importer, location string) (models.ImportResult, error) {
	f.imported, f.importLoc = imp, location
	return f.importRes, f.importErr
}

type fakeEntries struct {
	entries   map[string]models.Entry
	created   []string
	tags      [][]string
	updated   []models.Entry
	deleted   []string
	query     string
	backlinks []string
}

func newFakeEntries(es ...models.Entry) *fakeEntries {
	f := &fakeEntries{entries: map[string]models.Entry{}}
	for _, e := range es {
		f.entries[e.ID] = e
	}
	return f
}

func (f *fakeEntries) Create(_ context.Context, text string, tags []string) (*models.Entry, error) {
	f.created = append(f.created, text)
	f.tags = append(f.tags, tags)
	return &models.Entry{ID: "new-id"}, nil
}

func (f *fakeEntries) Update(_ context.Context, e models.Entry) (*models.Entry, error) {
	f.updated = append(f.updated, e)
	return &e, nil
}

func (f *fakeEntries) Delete(_ context.Context, id string) error {
	if _, ok := f.entries[id]; !ok {
		return common.ErrorNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeEntries) Get(_ context.Context, id string) (*models.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &e, nil
}

func (f *fakeEntries) List(context.Context) ([]models.Entry, error) {
	out := make([]models.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEntries) Search(_ context.Context, q string) ([]models.Entry, error) {
	f.query = q
	return f.List(context.Background())
}

func (f *fakeEntries) Backlinks(context.Context, string) ([]string, error) {
	return f.backlinks, nil
}

type nopBackups struct{}

func (nopBackups) Export(context.Context, string, []models.SyncEntry) (string, error) {
	return "", nil
}

func (nopBackups) Fetch(context.Context, string, string) ([]models.SyncEntry, error) {
	return nil, nil
}

func newTestApp(s *fakeSession, es *fakeEntries, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		session: s,
		entries: es,
		logger:  logging.Nop(),
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     &out,
	}, &out
}

func sampleEntry() models.Entry {
	return models.Entry{
		ID:        "e1",
		DayKey:    "2024-05-01",
		UpdatedAt: 1714561200000,
		Blocks:    []models.Block{models.TextBlock("Quarterly planning\nsecond line")},
		Tags:      []string{"okr"},
		IsPinned:  true,
	}
}

func TestNewID(t *testing.T) {
	a, out := newTestApp(&fakeSession{}, newFakeEntries(), "")

	require.NoError(t, a.NewID(context.Background()))
	assert.Contains(t, out.String(), "New sync id: wl-00112233445566778899")
}

func TestConnect_WithArgumentSyncsOnce(t *testing.T) {
	s := &fakeSession{syncRes: &models.SyncResult{Push: &models.PushResult{Pushed: 3}}}
	a, out := newTestApp(s, newFakeEntries(), "")

	require.NoError(t, a.Connect(context.Background(), []string{"wl-0123456789abcdef0123"}))
	assert.Equal(t, "wl-0123456789abcdef0123", s.connectID)
	assert.Equal(t, 1, s.syncCalls)
	assert.Contains(t, out.String(), "Synced: pushed 3, merged 0")
}

func TestConnect_PromptsForHiddenID(t *testing.T) {
	orig := getSecret
	t.Cleanup(func() { getSecret = orig })
	getSecret = func(*bufio.Reader, string, io.Writer) (string, error) { return "wl-ffffffffffffffffffff", nil }

	s := &fakeSession{syncRes: &models.SyncResult{}}
	a, _ := newTestApp(s, newFakeEntries(), "")

	require.NoError(t, a.Connect(context.Background(), nil))
	assert.Equal(t, "wl-ffffffffffffffffffff", s.connectID)
}

func TestConnect_Errors(t *testing.T) {
	s := &fakeSession{connectErr: common.ErrInvalidIdentity}
	a, _ := newTestApp(s, newFakeEntries(), "")

	require.ErrorIs(t, a.Connect(context.Background(), []string{"bad"}), common.ErrInvalidIdentity)
	assert.Equal(t, 0, s.syncCalls)

	err := a.Connect(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}

func TestDeleteAccount_RequiresConfirmation(t *testing.T) {
	s := &fakeSession{}
	a, out := newTestApp(s, newFakeEntries(), "yes\n")
	require.NoError(t, a.DeleteAccount(context.Background()))
	assert.False(t, s.deleted)
	assert.Contains(t, out.String(), "Cancelled.")

	a, _ = newTestApp(s, newFakeEntries(), "DELETE\n")
	require.NoError(t, a.DeleteAccount(context.Background()))
	assert.True(t, s.deleted)
}

func TestDisconnect(t *testing.T) {
	s := &fakeSession{}
	a, _ := newTestApp(s, newFakeEntries(), "")
	require.NoError(t, a.Disconnect(context.Background()))
	assert.True(t, s.disconnect)
}

func TestSync_AlreadyRunning(t *testing.T) {
	a, out := newTestApp(&fakeSession{}, newFakeEntries(), "")

	require.NoError(t, a.Sync(context.Background()))
	assert.Contains(t, out.String(), "already running")
}

func TestSync_Error(t *testing.T) {
	a, _ := newTestApp(&fakeSession{syncErr: services.ErrNotConnected}, newFakeEntries(), "")
	require.ErrorIs(t, a.Sync(context.Background()), services.ErrNotConnected)
}

func TestMode(t *testing.T) {
	s := &fakeSession{}
	a, _ := newTestApp(s, newFakeEntries(), "")

	require.Error(t, a.Mode(context.Background(), nil))
	require.ErrorIs(t, a.Mode(context.Background(), []string{"sometimes"}), services.ErrInvalidMode)
	require.NoError(t, a.Mode(context.Background(), []string{"off"}))
	assert.Equal(t, models.SyncModeOff, s.mode)
}

func TestServer(t *testing.T) {
	s := &fakeSession{}
	a, out := newTestApp(s, newFakeEntries(), "")

	require.NoError(t, a.Server(context.Background(), []string{"https://relay.example"}))
	assert.Equal(t, "https://relay.example", s.serverURL)
	assert.Contains(t, out.String(), "Relay: https://relay.example")
}

func TestAdd(t *testing.T) {
	es := newFakeEntries()
	a, out := newTestApp(&fakeSession{}, es, "line one\nline two\n\nwork, #ideas\n")

	require.NoError(t, a.Add(context.Background()))
	assert.Equal(t, []string{"line one\nline two"}, es.created)
	assert.Equal(t, [][]string{{"work", "ideas"}}, es.tags)
	assert.Contains(t, out.String(), "Added new-id")
}

func TestEdit(t *testing.T) {
	es := newFakeEntries(sampleEntry())
	a, _ := newTestApp(&fakeSession{}, es, "rewritten\n\n")

	require.NoError(t, a.Edit(context.Background(), []string{"e1"}))
	require.Len(t, es.updated, 1)
	assert.Equal(t, "rewritten", models.PlainText(es.updated[0].Blocks))
	assert.Equal(t, []string{"okr"}, es.updated[0].Tags)

	require.ErrorIs(t, a.Edit(context.Background(), []string{"missing"}), common.ErrorNotFound)
}

func TestList(t *testing.T) {
	a, out := newTestApp(&fakeSession{}, newFakeEntries(), "")
	require.NoError(t, a.List(context.Background()))
	assert.Equal(t, "No entries.\n", out.String())

	a, out = newTestApp(&fakeSession{}, newFakeEntries(sampleEntry()), "")
	require.NoError(t, a.List(context.Background()))
	assert.Equal(t, "e1  2024-05-01 *  Quarterly planning\n", out.String())
}

func TestShow(t *testing.T) {
	es := newFakeEntries(sampleEntry())
	es.backlinks = []string{"e2", "e3"}
	a, out := newTestApp(&fakeSession{}, es, "")

	require.NoError(t, a.Show(context.Background(), []string{"e1"}))
	assert.Contains(t, out.String(), "Quarterly planning\nsecond line")
	assert.Contains(t, out.String(), "Tags:     okr")
	assert.Contains(t, out.String(), "Linked from: e2, e3")

	require.Error(t, a.Show(context.Background(), nil))
}

func TestRemove(t *testing.T) {
	es := newFakeEntries(sampleEntry())
	a, _ := newTestApp(&fakeSession{}, es, "")

	require.NoError(t, a.Remove(context.Background(), []string{"e1"}))
	assert.Equal(t, []string{"e1"}, es.deleted)
	require.ErrorIs(t, a.Remove(context.Background(), []string{"zz"}), common.ErrorNotFound)
}

func TestFind(t *testing.T) {
	es := newFakeEntries(sampleEntry())
	a, out := newTestApp(&fakeSession{}, es, "")

	require.NoError(t, a.Find(context.Background(), []string{"quarterly", "plan"}))
	assert.Equal(t, "quarterly plan", es.query)
	assert.Contains(t, out.String(), "e1")
}

func TestBackup(t *testing.T) {
	s := &fakeSession{}
	a, out := newTestApp(s, newFakeEntries(), "")
	require.ErrorIs(t, a.Backup(context.Background()), errBackupDisabled)

	a.backups = nopBackups{}
	require.NoError(t, a.Backup(context.Background()))
	assert.NotNil(t, s.exported)
	assert.Contains(t, out.String(), "s3://b/k.json")
}

func TestRestore(t *testing.T) {
	s := &fakeSession{importRes: models.ImportResult{Imported: 3, Skipped: 1, Invalid: 2}}
	a, out := newTestApp(s, newFakeEntries(), "")
	ctx := context.Background()
	require.ErrorIs(t, a.Restore(ctx, nil), errBackupDisabled)

	a.backups = nopBackups{}
	require.NoError(t, a.Restore(ctx, nil))
	assert.NotNil(t, s.imported)
	assert.Equal(t, "", s.importLoc)
	assert.Contains(t, out.String(), "Restored 3, kept 1 existing, 2 invalid")

	require.NoError(t, a.Restore(ctx, []string{"s3://b/k.json"}))
	assert.Equal(t, "s3://b/k.json", s.importLoc)

	require.Error(t, a.Restore(ctx, []string{"a", "b"}))

	s.importErr = services.ErrNotConnected
	require.ErrorIs(t, a.Restore(ctx, nil), services.ErrNotConnected)
}

func TestStatus(t *testing.T) {
	s := &fakeSession{status: models.SyncStatus{
		State:          models.StateConnected,
		Phase:          models.PhaseIdle,
		Mode:           models.SyncModeConnected,
		SyncID:         "wl-0123456789abcdef0123",
		ServerURL:      "http://relay",
		LastError:      "boom",
		PendingDirty:   2,
		IntegrityWarns: 1,
	}}
	a, out := newTestApp(s, newFakeEntries(), "")

	require.NoError(t, a.Status(context.Background()))
	got := out.String()
	assert.Contains(t, got, "State:        connected\n")
	assert.Contains(t, got, "wl-••••0123")
	assert.NotContains(t, got, "0123456789abcdef0123")
	assert.Contains(t, got, "Last sync:    never")
	assert.Contains(t, got, "Pending:      2 changed, 0 deleted")
	assert.Contains(t, got, "Integrity:    1 warning(s)")
	assert.Contains(t, got, "Last error:   boom")
	assert.Contains(t, got, "Relay reachable: yes")

	s.pingErr = common.ErrNetwork
	out.Reset()
	require.NoError(t, a.Status(context.Background()))
	assert.Contains(t, out.String(), "Relay reachable: no")

	s.status = models.SyncStatus{State: models.StateDisconnected, Mode: models.SyncModeOff}
	out.Reset()
	require.NoError(t, a.Status(context.Background()))
	assert.NotContains(t, out.String(), "Relay reachable")
}

func TestGetStatus(t *testing.T) {
	s := &fakeSession{status: models.SyncStatus{State: models.StateDisconnected}}
	a, _ := newTestApp(s, newFakeEntries(), "")
	assert.Equal(t, "(local)", a.getStatus())

	s.status = models.SyncStatus{State: models.StateSyncing, SyncID: "wl-x"}
	assert.Equal(t, "(syncing)", a.getStatus())
}

func TestFormatSyncResult(t *testing.T) {
	got := formatSyncResult(&models.SyncResult{Pull: models.PullResult{TotalMerged: 4, Failed: 1, IntegrityWarnings: 2}})
	assert.Equal(t, "Synced: pushed 0, merged 4, 1 could not be decrypted, 2 integrity warning(s)", got)
}

func TestStartSyncLoop_SyncsWhileConnected(t *testing.T) {
	s := &fakeSession{
		status:  models.SyncStatus{State: models.StateConnected},
		syncRes: &models.SyncResult{},
		synced:  make(chan struct{}, 1),
	}
	a, _ := newTestApp(s, newFakeEntries(), "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartSyncLoop(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-s.synced:
	case <-time.After(2 * time.Second):
		t.Fatal("background sync did not run")
	}
	cancel()
	<-done
}

func TestStartSyncLoop_Disabled(t *testing.T) {
	a, _ := newTestApp(&fakeSession{}, newFakeEntries(), "")
	a.StartSyncLoop(context.Background(), 0)
}

func TestStartSyncLoop_SkipsWhenDisconnected(t *testing.T) {
	s := &fakeSession{syncErr: errors.New("should not be called")}
	a, _ := newTestApp(s, newFakeEntries(), "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	a.StartSyncLoop(ctx, 5*time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, 0, s.syncCalls)
}
