package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/chainstash/internal/client/ledger"
	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/client/repositories/journal"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/filex"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	"github.com/google/uuid"
)

// ContentPublisher publishes file content and returns its content id.
type ContentPublisher interface {
	Publish(ctx context.Context, src models.FileSource) (models.Publication, error)
}

// LedgerBinder returns a ledger handle for the session's current account.
type LedgerBinder interface {
	Bind(ctx context.Context, session ledger.SessionReader) (ledger.Ledger, error)
}

type RegistrationService interface {
	// Select validates path and makes it the pending file.
	Select(path string) (models.SelectedFile, error)

	// Pending returns the pending file, if any.
	Pending() (models.SelectedFile, bool)

	// Quote prices days of storage at the live ledger rate.
	Quote(ctx context.Context, days int64) (models.Quote, error)

	// Register publishes the pending file and records it on the ledger.
	Register(ctx context.Context, opts models.RegisterOptions) (*models.RegistrationResult, error)
}

type registrationService struct {
	session   ledger.SessionReader
	binder    LedgerBinder
	publisher ContentPublisher
	journal   journal.Repository
	maxSize   datasize.ByteSize
	log       logging.Logger

	mu      sync.Mutex
	pending *models.SelectedFile
}

// NewRegistrationService wires the registration workflow. publisher may be
// nil when no gateway is configured; Register then fails with
// common.ErrMissingConfiguration.
func NewRegistrationService(session ledger.SessionReader, binder LedgerBinder, publisher ContentPublisher,
	journal journal.Repository, maxSize datasize.ByteSize, log logging.Logger) RegistrationService {
	return &registrationService{
		session:   session,
		binder:    binder,
		publisher: publisher,
		journal:   journal,
		maxSize:   maxSize,
		log:       log.With("component", "registration"),
	}
}

func (s *registrationService) Select(path string) (models.SelectedFile, error) {
	f, err := s.check(path)
	if err != nil {
		return models.SelectedFile{}, err
	}

	s.mu.Lock()
	s.pending = &f
	s.mu.Unlock()

	return f, nil
}

func (s *registrationService) Pending() (models.SelectedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return models.SelectedFile{}, false
	}
	return *s.pending, true
}

func (s *registrationService) Quote(ctx context.Context, days int64) (models.Quote, error) {
	if !common.ValidDuration(days) {
		return models.Quote{}, fmt.Errorf("%w: got %d", common.ErrInvalidDuration, days)
	}

	l, err := s.binder.Bind(ctx, s.session)
	if err != nil {
		return models.Quote{}, err
	}

	return s.quote(ctx, l, days)
}

func (s *registrationService) Register(ctx context.Context, opts models.RegisterOptions) (*models.RegistrationResult, error) {
	// validate
	if !common.ValidDuration(opts.DurationDays) {
		return nil, fmt.Errorf("%w: got %d", common.ErrInvalidDuration, opts.DurationDays)
	}

	selected, ok := s.Pending()
	if !ok {
		return nil, common.ErrNoFileSelected
	}

	file, err := s.check(selected.Path)
	if err != nil {
		return nil, err
	}

	if s.publisher == nil {
		return nil, fmt.Errorf("%w: gateway url", common.ErrMissingConfiguration)
	}

	l, err := s.binder.Bind(ctx, s.session)
	if err != nil {
		return nil, err
	}
	account := l.Account()

	// quote
	quote, err := s.quote(ctx, l, opts.DurationDays)
	if err != nil {
		return nil, err
	}

	// publish
	digest, err := filex.Digest(file.Path)
	if err != nil {
		s.log.Warn(ctx, "cannot digest file", "path", file.Path, "error", err)
	}

	pub, err := s.publisher.Publish(ctx, file.Source())
	if err != nil {
		return nil, err
	}
	if pub.Degraded {
		s.log.Warn(ctx, "registering placeholder content id", "cid", pub.ContentID, "file", file.Name())
	}

	entry := &models.UploadEntry{
		ID:           uuid.NewString(),
		Account:      account.Hex(),
		ContentID:    pub.ContentID,
		FileName:     file.Name(),
		Size:         file.Size,
		Digest:       digest,
		Endpoint:     pub.Endpoint,
		Degraded:     pub.Degraded,
		IsEncrypted:  opts.IsEncrypted,
		IsPublic:     opts.IsPublic,
		DurationDays: opts.DurationDays,
		TotalCost:    quote.Total.String(),
		Status:       models.UploadStatusPublished,
	}
	if err := s.journal.Insert(ctx, entry); err != nil {
		s.log.Error(ctx, "journal insert failed", "cid", pub.ContentID, "error", err)
	}

	// submit
	receipt, err := l.UploadFile(ctx, pub.ContentID, opts.IsEncrypted, opts.IsPublic, opts.DurationDays, quote.Total)
	if err != nil {
		s.log.Warn(ctx, "content published but not registered", "cid", pub.ContentID, "error", err)
		if jerr := s.journal.UpdateStatus(ctx, entry.ID, models.UploadStatusOrphaned, err.Error()); jerr != nil {
			s.log.Error(ctx, "journal update failed", "id", entry.ID, "error", jerr)
		}
		return nil, err
	}

	if err := s.journal.MarkSubmitted(ctx, entry.ID, receipt.TxHash.Hex()); err != nil {
		s.log.Error(ctx, "journal update failed", "id", entry.ID, "error", err)
	}

	s.clearPending(selected.Path)
	s.log.Info(ctx, "file registered", "cid", pub.ContentID, "tx", receipt.TxHash.Hex(), "cost_wei", quote.Total.String())

	return &models.RegistrationResult{
		Publication: pub,
		Quote:       quote,
		Receipt:     receipt,
		JournalID:   entry.ID,
	}, nil
}

func (s *registrationService) quote(ctx context.Context, l ledger.Ledger, days int64) (models.Quote, error) {
	price, err := l.StoragePricePerDay(ctx)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %w", common.ErrQuoteUnavailable, err)
	}
	return models.NewQuote(price, days), nil
}

// check stats path and enforces the size ceiling. It never touches the
// network.
func (s *registrationService) check(path string) (models.SelectedFile, error) {
	expanded, err := filex.ExpandPath(path)
	if err != nil {
		return models.SelectedFile{}, fmt.Errorf("error resolving %s: %w", path, err)
	}

	fi, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.SelectedFile{}, fmt.Errorf("file %s: %w", path, common.ErrorNotFound)
		}
		return models.SelectedFile{}, fmt.Errorf("error reading %s: %w", path, err)
	}
	if fi.IsDir() {
		return models.SelectedFile{}, fmt.Errorf("%s is a directory", path)
	}

	if uint64(fi.Size()) > s.maxSize.Bytes() {
		return models.SelectedFile{}, fmt.Errorf("%w: %s is %s, limit %s", common.ErrFileTooLarge,
			fi.Name(), datasize.ByteSize(fi.Size()).HR(), s.maxSize.HR())
	}

	return models.SelectedFile{Path: expanded, Size: fi.Size()}, nil
}

func (s *registrationService) clearPending(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.Path == path {
		s.pending = nil
	}
}
