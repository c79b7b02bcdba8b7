package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chainstash/internal/client/ledger"
	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/client/repositories/journal"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

type FileService interface {
	// ListOwned returns the records registered by owner, in ledger order.
	// Records whose lookup fails are left out.
	ListOwned(ctx context.Context, owner gethcommon.Address) ([]models.StorageRecord, error)

	// ListMine lists the records of the connected account.
	ListMine(ctx context.Context) ([]models.StorageRecord, error)

	// DeleteOwned revokes contentID if the connected account owns it.
	DeleteOwned(ctx context.Context, contentID string) (models.Receipt, error)

	// Orphans returns journal entries published but never registered.
	// While connected only the active account's entries are returned.
	Orphans(ctx context.Context) ([]*models.UploadEntry, error)

	// History returns the upload journal, newest first, scoped like Orphans.
	History(ctx context.Context) ([]*models.UploadEntry, error)
}

type fileService struct {
	session ledger.SessionReader
	binder  LedgerBinder
	journal journal.Repository
	log     logging.Logger
}

func NewFileService(session ledger.SessionReader, binder LedgerBinder, journal journal.Repository, log logging.Logger) FileService {
	return &fileService{
		session: session,
		binder:  binder,
		journal: journal,
		log:     log.With("component", "files"),
	}
}

func (s *fileService) ListMine(ctx context.Context) ([]models.StorageRecord, error) {
	snap := s.session.Snapshot()
	if !snap.Connected() {
		return nil, common.ErrNoProviderOrAccount
	}
	return s.ListOwned(ctx, snap.Account)
}

func (s *fileService) ListOwned(ctx context.Context, owner gethcommon.Address) ([]models.StorageRecord, error) {
	l, err := s.binder.Bind(ctx, s.session)
	if err != nil {
		return nil, err
	}

	ids, err := l.GetUserFiles(ctx, owner)
	if err != nil {
		return nil, err
	}

	found := make([]*models.StorageRecord, len(ids))

	// every lookup is issued at once
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range ids {
		g.Go(func() error {
			rec, err := l.GetFile(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn(ctx, "skipping unreadable record", "cid", id, "error", err)
				return nil
			}
			found[i] = &rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]models.StorageRecord, 0, len(ids))
	for _, r := range found {
		if r != nil {
			records = append(records, *r)
		}
	}

	return records, nil
}

func (s *fileService) DeleteOwned(ctx context.Context, contentID string) (models.Receipt, error) {
	l, err := s.binder.Bind(ctx, s.session)
	if err != nil {
		return models.Receipt{}, err
	}
	account := l.Account()

	rec, err := l.GetFile(ctx, contentID)
	if err != nil {
		return models.Receipt{}, err
	}

	if rec.Owner != account {
		return models.Receipt{}, fmt.Errorf("%w: %s is owned by %s", common.ErrNotOwner, contentID, rec.Owner.Hex())
	}

	receipt, err := l.DeleteFile(ctx, contentID)
	if err != nil {
		return models.Receipt{}, err
	}

	if err := s.journal.MarkDeletedByContentID(ctx, contentID); err != nil {
		s.log.Error(ctx, "journal update failed", "cid", contentID, "error", err)
	}

	s.log.Info(ctx, "record deleted", "cid", contentID, "tx", receipt.TxHash.Hex())
	return receipt, nil
}

func (s *fileService) Orphans(ctx context.Context) ([]*models.UploadEntry, error) {
	entries, err := s.journal.ListByStatus(ctx, models.UploadStatusOrphaned)
	if err != nil {
		return nil, err
	}
	return s.ownEntries(entries), nil
}

func (s *fileService) History(ctx context.Context) ([]*models.UploadEntry, error) {
	entries, err := s.journal.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.ownEntries(entries), nil
}

// ownEntries keeps the entries of the connected account. Without a
// connection nothing is filtered.
func (s *fileService) ownEntries(entries []*models.UploadEntry) []*models.UploadEntry {
	snap := s.session.Snapshot()
	if !snap.Connected() {
		return entries
	}

	own := entries[:0]
	for _, e := range entries {
		if e.Account == snap.Account.Hex() {
			own = append(own, e)
		}
	}
	return own
}
