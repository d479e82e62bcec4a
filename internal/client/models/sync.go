package models

// SyncMode is the user's sync switch.
type SyncMode string

const (
	SyncModeOff       SyncMode = "off"
	SyncModeConnected SyncMode = "connected"
)

// SyncConfig is the persisted sync configuration. An empty SyncID means
// sync has never been set up (or was torn down). The encryption key is
// not part of it; it is re-derived from SyncID and Salt.
type SyncConfig struct {
	SyncID      string
	Mode        SyncMode
	ServerURL   string
	LastSyncAt  int64
	LastSyncSeq int64
	Salt        string
}

// Enabled reports whether an identity is configured.
func (c SyncConfig) Enabled() bool { return c.SyncID != "" }

// State is the session state machine position.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateSyncing      State = "syncing"
)

// Phase is the step of an in-flight sync cycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePushing Phase = "pushing"
	PhasePulling Phase = "pulling"
	PhaseMerging Phase = "merging"
)

// SyncStatus is the snapshot the UI renders.
type SyncStatus struct {
	State          State
	Phase          Phase
	Mode           SyncMode
	SyncID         string
	ServerURL      string
	LastSyncAt     int64
	LastSyncSeq    int64
	LastMerged     int
	LastError      string
	IntegrityWarns int
	PendingDirty   int
	PendingDeletes int
}

// PushResult is returned by a push that sent at least one record.
type PushResult struct {
	ServerSeq int64
	SyncedAt  int64
	Pushed    int
	// DirtyIDs and DeletedIDs are the tracked ids the push consumed.
	DirtyIDs   []string
	DeletedIDs []string
}

// PullResult summarises one pull cycle.
type PullResult struct {
	ServerSeq   int64
	SyncedAt    int64
	TotalMerged int
	// Failed counts records that could not be decrypted; they are retried
	// on the next pull.
	Failed            int
	IntegrityWarnings int
	Changed           []string
	Deleted           []string
}

// MergeResult lists the records a merge actually mutated.
type MergeResult struct {
	Count   int
	Changed []string
	Deleted []string
}

// ImportResult counts what a restore did with each record of a snapshot.
type ImportResult struct {
	Imported int
	Skipped  int
	Invalid  int
	Changed  []string
}

// SyncResult combines both halves of a sync cycle. Push is nil when there
// was nothing to push.
type SyncResult struct {
	Push *PushResult
	Pull PullResult
}
