// Package journal persists the local upload journal: one row per file the
// client published, with its ledger submission outcome.
//
// The journal is not a cache of ledger state. Listing always reads the
// ledger; the journal only remembers what this client did, most notably
// content that was published but never registered (orphans).
//
// Typical Usage
//
//	repo := journal.NewSQLiteRepository(db)
//	_ = repo.Insert(ctx, entry)
//	_ = repo.MarkSubmitted(ctx, entry.ID, txHash)
//	orphans, _ := repo.ListByStatus(ctx, models.UploadStatusOrphaned)
package journal
