package commander

import "time"

// Command kinds understood by the sync worker.
const (
	KindCatalog = "catalog"
	KindSales   = "sales"
	KindDedup   = "dedup"
	KindCancel  = "cancel"
)

// SyncCommand triggers one sync or maintenance run.
type SyncCommand struct {
	Kind string `json:"kind"`

	// DocumentURL points at the exchange document, catalog syncs only.
	DocumentURL string `json:"documentUrl,omitempty"`

	// From and To bound the sales window. Zero From continues from the last
	// successful sync.
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
	// Full re-reads the whole window even when a last success is recorded.
	Full      bool `json:"full,omitempty"`
	ChunkDays int  `json:"chunkDays,omitempty"`

	// Strategy and Apply configure duplicate remediation. Without Apply the
	// run only reports what it would delete.
	Strategy string `json:"strategy,omitempty"`
	Apply    bool   `json:"apply,omitempty"`

	// TaskID identifies the run to cancel.
	TaskID string `json:"taskId,omitempty"`
}
