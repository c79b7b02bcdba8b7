package journal

import (
	"context"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
)

// Repository describes the journal operations used by the workflows.
type Repository interface {
	// Insert stores a new entry.
	Insert(ctx context.Context, e *models.UploadEntry) error

	// UpdateStatus sets the status and error text of an entry.
	UpdateStatus(ctx context.Context, id string, status models.UploadStatus, errText string) error

	// MarkSubmitted records the confirmed transaction of an entry and
	// resolves earlier orphans holding the same content digest.
	MarkSubmitted(ctx context.Context, id string, txHash string) error

	// MarkDeletedByContentID flags submitted entries for contentID as deleted.
	MarkDeletedByContentID(ctx context.Context, contentID string) error

	// ListByStatus returns entries with the given status, newest first.
	ListByStatus(ctx context.Context, status models.UploadStatus) ([]*models.UploadEntry, error)

	// List returns all entries, newest first.
	List(ctx context.Context) ([]*models.UploadEntry, error)
}
