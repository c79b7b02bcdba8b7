package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/dbx"
)

const selectColumns = `id, account, content_id, file_name, size, digest, endpoint, degraded,
	is_encrypted, is_public, duration, total_cost, status, tx_hash, error, created_at, updated_at`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.UploadEntry) error {
	now := r.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	query := `INSERT INTO uploads (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Account, e.ContentID, e.FileName, e.Size, e.Digest, e.Endpoint, e.Degraded,
		e.IsEncrypted, e.IsPublic, e.DurationDays, e.TotalCost, string(e.Status), e.TxHash, e.Error,
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.UploadStatus, errText string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errText, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update upload %s: %w", id, err)
	}

	return dbx.ExpectOneRow(res, common.ErrorNotFound)
}

func (r *SQLiteRepository) MarkSubmitted(ctx context.Context, id string, txHash string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		now := r.now().UTC()

		res, err := tx.ExecContext(ctx,
			`UPDATE uploads SET status = ?, tx_hash = ?, error = '', updated_at = ? WHERE id = ?`,
			string(models.UploadStatusSubmitted), txHash, now, id)
		if err != nil {
			return fmt.Errorf("failed to mark upload %s submitted: %w", id, err)
		}
		if err := dbx.ExpectOneRow(res, common.ErrorNotFound); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE uploads SET status = ?, updated_at = ?
			WHERE status = ? AND digest <> '' AND digest = (SELECT digest FROM uploads WHERE id = ?) AND id <> ?`,
			string(models.UploadStatusResolved), now, string(models.UploadStatusOrphaned), id, id)
		if err != nil {
			return fmt.Errorf("failed to resolve orphans: %w", err)
		}

		return nil
	})
}

func (r *SQLiteRepository) MarkDeletedByContentID(ctx context.Context, contentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, updated_at = ? WHERE content_id = ? AND status = ?`,
		string(models.UploadStatusDeleted), r.now().UTC(), contentID, string(models.UploadStatusSubmitted))
	if err != nil {
		return fmt.Errorf("failed to mark %s deleted: %w", contentID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.UploadStatus) ([]*models.UploadEntry, error) {
	return r.query(ctx, `SELECT `+selectColumns+` FROM uploads WHERE status = ? ORDER BY created_at DESC, id`, string(status))
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.UploadEntry, error) {
	return r.query(ctx, `SELECT `+selectColumns+` FROM uploads ORDER BY created_at DESC, id`)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.UploadEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error selecting uploads: %w", err)
	}
	defer rows.Close()

	result := make([]*models.UploadEntry, 0)

	for rows.Next() {
		e := &models.UploadEntry{}
		var status string
		err := rows.Scan(&e.ID, &e.Account, &e.ContentID, &e.FileName, &e.Size, &e.Digest, &e.Endpoint,
			&e.Degraded, &e.IsEncrypted, &e.IsPublic, &e.DurationDays, &e.TotalCost, &status, &e.TxHash,
			&e.Error, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload row: %w", err)
		}
		e.Status = models.UploadStatus(status)
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate upload rows: %w", err)
	}

	return result, nil
}
