package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/client"
	"github.com/dmitrijs2005/chainstash/internal/client/ledger"
	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/client/repositories/journal"
	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/dmitrijs2005/chainstash/internal/common"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var (
	alice = gethcommon.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = gethcommon.HexToAddress("0x0000000000000000000000000000000000000b0b")

	// 0.0000001 ETH
	defaultPrice = big.NewInt(100_000_000_000)
)

type fakeSession struct {
	mu   sync.Mutex
	snap wallet.Snapshot
}

func connectedAs(addr gethcommon.Address) *fakeSession {
	return &fakeSession{snap: wallet.Snapshot{
		State:      wallet.StateConnected,
		Account:    addr,
		ChainID:    common.SepoliaChainID,
		Generation: 1,
	}}
}

func (s *fakeSession) Snapshot() wallet.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSession) Signer() (wallet.Signer, bool) { return nil, false }

func (s *fakeSession) switchTo(addr gethcommon.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Account = addr
	s.snap.Generation++
}

// fakeLedger is an in-memory ledger. Writes are attributed to the account of
// the session it was bound through.
type fakeLedger struct {
	mu      sync.Mutex
	price   *big.Int
	now     time.Time
	records map[string]models.StorageRecord
	byOwner map[gethcommon.Address][]string
	txCount int

	priceErr  error
	uploadErr error
	getErr    map[string]error
	uploads   int

	// beforeGet runs outside the lock at the start of every GetFile.
	beforeGet func(ctx context.Context, contentID string)
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		price:   new(big.Int).Set(defaultPrice),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		records: map[string]models.StorageRecord{},
		byOwner: map[gethcommon.Address][]string{},
		getErr:  map[string]error{},
	}
}

func (l *fakeLedger) receipt() models.Receipt {
	l.txCount++
	return models.Receipt{TxHash: gethcommon.BigToHash(big.NewInt(int64(l.txCount))), BlockNumber: uint64(l.txCount)}
}

// view is the ledger as seen from one account.
type ledgerView struct {
	*fakeLedger
	from gethcommon.Address
}

func (v ledgerView) Account() gethcommon.Address { return v.from }

func (v ledgerView) StoragePricePerDay(ctx context.Context) (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.priceErr != nil {
		return nil, v.priceErr
	}
	return new(big.Int).Set(v.price), nil
}

func (v ledgerView) GetUserFiles(ctx context.Context, owner gethcommon.Address) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.byOwner[owner]...), nil
}

func (v ledgerView) GetFile(ctx context.Context, contentID string) (models.StorageRecord, error) {
	if v.beforeGet != nil {
		v.beforeGet(ctx, contentID)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.getErr[contentID]; err != nil {
		return models.StorageRecord{}, err
	}
	rec, ok := v.records[contentID]
	if !ok {
		return models.StorageRecord{}, fmt.Errorf("get %s: %w", contentID, common.ErrRecordNotFound)
	}
	return rec, nil
}

func (v ledgerView) UploadFile(ctx context.Context, contentID string, isEncrypted, isPublic bool, days int64, value *big.Int) (models.Receipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uploads++
	if v.uploadErr != nil {
		return models.Receipt{}, v.uploadErr
	}
	if _, ok := v.records[contentID]; ok {
		return models.Receipt{}, fmt.Errorf("upload: %w: already registered", common.ErrLedger)
	}
	want := new(big.Int).Mul(v.price, big.NewInt(days))
	if value.Cmp(want) < 0 {
		return models.Receipt{}, fmt.Errorf("upload: %w: insufficient payment", common.ErrLedger)
	}

	v.records[contentID] = models.StorageRecord{
		ContentID:   contentID,
		Owner:       v.from,
		CreatedAt:   v.now,
		IsEncrypted: isEncrypted,
		IsPublic:    isPublic,
		StorageCost: new(big.Int).Set(value),
		ExpiresAt:   v.now.Add(time.Duration(days) * models.DurationUnit),
	}
	v.byOwner[v.from] = append(v.byOwner[v.from], contentID)
	return v.receipt(), nil
}

func (v ledgerView) DeleteFile(ctx context.Context, contentID string) (models.Receipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.records[contentID]
	if !ok {
		return models.Receipt{}, fmt.Errorf("delete: %w", common.ErrRecordNotFound)
	}
	if rec.Owner != v.from {
		return models.Receipt{}, fmt.Errorf("delete: %w", common.ErrNotOwner)
	}
	delete(v.records, contentID)

	ids := v.byOwner[rec.Owner]
	for i, id := range ids {
		if id == contentID {
			v.byOwner[rec.Owner] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return v.receipt(), nil
}

type fakeBinder struct {
	ledger *fakeLedger
	err    error
	binds  int

	// afterBind runs once the handle is built.
	afterBind func()
}

func (b *fakeBinder) Bind(ctx context.Context, session ledger.SessionReader) (ledger.Ledger, error) {
	b.binds++
	if b.err != nil {
		return nil, b.err
	}
	snap := session.Snapshot()
	if !snap.Connected() {
		return nil, common.ErrNoProviderOrAccount
	}
	view := ledgerView{fakeLedger: b.ledger, from: snap.Account}
	if b.afterBind != nil {
		b.afterBind()
	}
	return view, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	calls    int
	degraded bool
	err      error
	names    []string
}

func (p *fakePublisher) Publish(ctx context.Context, src models.FileSource) (models.Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.names = append(p.names, src.Name)
	if p.err != nil {
		return models.Publication{}, p.err
	}

	rc, err := src.Open()
	if err != nil {
		return models.Publication{}, err
	}
	_ = rc.Close()

	if p.degraded {
		return models.Publication{ContentID: fmt.Sprintf("QmFallback%s%d", src.Name, p.calls), Endpoint: "fallback", Degraded: true}, nil
	}
	return models.Publication{ContentID: fmt.Sprintf("QmContent%s%d", src.Name, p.calls), Endpoint: "http://kubo"}, nil
}

func newJournal(t *testing.T) journal.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, client.RunMigrations(context.Background(), db))
	return journal.NewSQLiteRepository(db)
}

var errBoom = errors.New("boom")
