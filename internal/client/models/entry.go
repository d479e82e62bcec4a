// Package models defines the notebook records and sync envelopes shared by
// the workledger client packages.
package models

// Signifier marks an entry with a semantic category.
type Signifier string

const (
	SignifierNone      Signifier = ""
	SignifierDecision  Signifier = "decision"
	SignifierQuestion  Signifier = "question"
	SignifierIdea      Signifier = "idea"
	SignifierMilestone Signifier = "milestone"
)

// Valid reports whether s is empty or one of the known signifiers.
func (s Signifier) Valid() bool {
	switch s {
	case SignifierNone, SignifierDecision, SignifierQuestion, SignifierIdea, SignifierMilestone:
		return true
	}
	return false
}

// Entry is one notebook record as stored locally.
// Timestamps are Unix milliseconds.
type Entry struct {
	ID         string
	DayKey     string
	CreatedAt  int64
	UpdatedAt  int64
	Blocks     []Block
	IsArchived bool
	Tags       []string
	IsPinned   bool
	Signifier  Signifier
}

// Payload is the content of an entry that travels encrypted.
type Payload struct {
	DayKey     string    `json:"dayKey"`
	CreatedAt  int64     `json:"createdAt"`
	UpdatedAt  int64     `json:"updatedAt"`
	Blocks     []Block   `json:"blocks"`
	IsArchived bool      `json:"isArchived"`
	Tags       []string  `json:"tags"`
	IsPinned   bool      `json:"isPinned,omitempty"`
	Signifier  Signifier `json:"signifier,omitempty"`
}

// PayloadOf extracts the encrypted part of e. Nil slices become empty so
// that the serialized form never contains null collections.
func PayloadOf(e Entry) Payload {
	p := Payload{
		DayKey:     e.DayKey,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		Blocks:     e.Blocks,
		IsArchived: e.IsArchived,
		Tags:       e.Tags,
		IsPinned:   e.IsPinned,
		Signifier:  e.Signifier,
	}
	if p.Blocks == nil {
		p.Blocks = []Block{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// EntryFromPayload rebuilds a local entry with the given id.
func EntryFromPayload(id string, p Payload) Entry {
	return Entry{
		ID:         id,
		DayKey:     p.DayKey,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Blocks:     p.Blocks,
		IsArchived: p.IsArchived,
		Tags:       p.Tags,
		IsPinned:   p.IsPinned,
		Signifier:  p.Signifier,
	}
}

// SyncEntry is the only form of a record the relay ever sees.
// Tombstones carry empty EncryptedPayload and IntegrityHash.
// ServerSeq is assigned by the relay and is zero on outgoing records.
type SyncEntry struct {
	ID               string `json:"id"`
	UpdatedAt        int64  `json:"updatedAt"`
	IsArchived       bool   `json:"isArchived"`
	IsDeleted        bool   `json:"isDeleted"`
	EncryptedPayload string `json:"encryptedPayload"`
	IntegrityHash    string `json:"integrityHash"`
	ServerSeq        int64  `json:"serverSeq,omitempty"`
}

// NewTombstone builds the deletion marker for id.
func NewTombstone(id string, updatedAt int64) SyncEntry {
	return SyncEntry{ID: id, UpdatedAt: updatedAt, IsDeleted: true}
}

// DecryptedEntry is a remote record after decryption. For tombstones only
// ID, UpdatedAt and IsDeleted are meaningful.
type DecryptedEntry struct {
	Entry
	IsDeleted bool
	// IntegrityMismatch is set when the payload decrypted but its hash
	// did not match the carried integrity hash.
	IntegrityMismatch bool
	ServerSeq         int64
}
