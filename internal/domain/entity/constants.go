package entity

// Record status constants for the primary store
const (
	RecordStatusReceived  = "received"
	RecordStatusProcessed = "processed"
	RecordStatusPartial   = "partial"
)

// Sync status constants for the downstream accounting system
const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
	SyncStatusError   = "error"
)

// SchemaVersion is stamped on every primary record
const SchemaVersion = "2.0.0"

// DefaultCurrency is used when the document does not state one
const DefaultCurrency = "EUR"

// IsValidSyncStatus reports whether s is a known sync status
func IsValidSyncStatus(s string) bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusError:
		return true
	}
	return false
}
