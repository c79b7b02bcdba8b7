package models

import "time"

// UploadStatus tracks a journal entry through the registration workflow.
type UploadStatus string

const (
	// UploadStatusPublished: content published, ledger submission pending.
	UploadStatusPublished UploadStatus = "published"
	// UploadStatusSubmitted: registration transaction confirmed.
	UploadStatusSubmitted UploadStatus = "submitted"
	// UploadStatusOrphaned: content published but the ledger submission failed.
	UploadStatusOrphaned UploadStatus = "orphaned"
	// UploadStatusResolved: an orphan whose content was later registered.
	UploadStatusResolved UploadStatus = "resolved"
	// UploadStatusDeleted: the ledger record was revoked by its owner.
	UploadStatusDeleted UploadStatus = "deleted"
)

// UploadEntry is one row of the local upload journal.
type UploadEntry struct {
	ID           string
	Account      string
	ContentID    string
	FileName     string
	Size         int64
	Digest       string
	Endpoint     string
	Degraded     bool
	IsEncrypted  bool
	IsPublic     bool
	DurationDays int64
	// TotalCost is a decimal wei amount.
	TotalCost string
	Status    UploadStatus
	TxHash    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
