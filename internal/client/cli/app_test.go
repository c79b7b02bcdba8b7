package cli

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/config"
	"github.com/dmitrijs2005/chainstash/internal/client/ledger"
	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/client/services"
	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "correct horse"

type fakeRegistration struct {
	services.RegistrationService

	pending  *models.SelectedFile
	quote    models.Quote
	quoteErr error
	result   *models.RegistrationResult
	opts     []models.RegisterOptions
}

func (f *fakeRegistration) Pending() (models.SelectedFile, bool) {
	if f.pending == nil {
		return models.SelectedFile{}, false
	}
	return *f.pending, true
}

func (f *fakeRegistration) Select(path string) (models.SelectedFile, error) {
	f.pending = &models.SelectedFile{Path: path, Size: 2048}
	return *f.pending, nil
}

func (f *fakeRegistration) Quote(ctx context.Context, days int64) (models.Quote, error) {
	if f.quoteErr != nil {
		return models.Quote{}, f.quoteErr
	}
	return models.NewQuote(big.NewInt(100_000_000_000), days), nil
}

func (f *fakeRegistration) Register(ctx context.Context, opts models.RegisterOptions) (*models.RegistrationResult, error) {
	f.opts = append(f.opts, opts)
	return f.result, nil
}

type fakeFiles struct {
	services.FileService

	records []models.StorageRecord
	deleted []string
	orphans []*models.UploadEntry
	err     error
}

func (f *fakeFiles) ListMine(ctx context.Context) ([]models.StorageRecord, error) {
	return f.records, f.err
}

func (f *fakeFiles) DeleteOwned(ctx context.Context, contentID string) (models.Receipt, error) {
	if f.err != nil {
		return models.Receipt{}, f.err
	}
	f.deleted = append(f.deleted, contentID)
	return models.Receipt{TxHash: gethcommon.HexToHash("0x01")}, nil
}

func (f *fakeFiles) Orphans(ctx context.Context) ([]*models.UploadEntry, error) {
	return f.orphans, nil
}

func stubPassword(t *testing.T, pass string) {
	t.Helper()
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pass), nil }
	t.Cleanup(func() { readPassword = old })
}

// newTestApp builds an App over a temporary keystore holding n accounts.
// input feeds the interactive prompts.
func newTestApp(t *testing.T, n int, input string) (*App, *bytes.Buffer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	out := &bytes.Buffer{}
	a := &App{
		config:       cfg,
		log:          logging.Discard(),
		binder:       ledger.NewBinder(nil, "", logging.Discard()),
		registration: &fakeRegistration{},
		files:        &fakeFiles{},
		ping:         func(context.Context) error { return nil },
		reader:       rdr(input),
		out:          out,
	}

	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	for i := 0; i < n; i++ {
		_, err := ks.NewAccount(testPassphrase)
		require.NoError(t, err)
	}

	chain := chainParams(cfg)
	a.keystore = wallet.NewKeystoreWallet(ks, chain,
		wallet.WithConfirm(a.confirmAccess),
		wallet.WithPassphrase(a.askPassphrase),
	)
	a.session = wallet.NewSession(a.keystore, chain, a.log)
	a.session.Subscribe(a.onSessionEvent)
	t.Cleanup(a.session.Close)

	return a, out
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	a := &App{log: logging.NewTextLogger(&buf, "info")}

	a.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, a.Mode())
	assert.Contains(t, buf.String(), "mode=online")

	buf.Reset()
	a.setMode(ModeOnline)
	assert.Empty(t, buf.String())

	a.setMode(ModeOffline)
	assert.Equal(t, ModeOffline, a.Mode())
	assert.Contains(t, buf.String(), "mode=offline")
}

func TestCheckOnline(t *testing.T) {
	a, _ := newTestApp(t, 0, "")

	a.checkOnline(context.Background())
	assert.Equal(t, ModeOnline, a.Mode())

	a.ping = func(context.Context) error { return errors.New("dial tcp: refused") }
	a.checkOnline(context.Background())
	assert.Equal(t, ModeOffline, a.Mode())
}

func TestStartOnlineStatusWatcher_StopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t, 0, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return a.Mode() == ModeOnline }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestChainParams_FromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ChainID = 31337
	cfg.ChainName = "Hardhat"
	cfg.RPCURL = "http://127.0.0.1:8545"

	p := chainParams(cfg)
	assert.Equal(t, uint64(31337), p.ChainID)
	assert.Equal(t, "Hardhat", p.ChainName)
	assert.Equal(t, "http://127.0.0.1:8545", p.RPCURL)
	assert.Equal(t, 18, p.Decimals)
}

func TestConnect_Keystore(t *testing.T) {
	stubPassword(t, testPassphrase)
	a, out := newTestApp(t, 1, "y\n")

	assert.Equal(t, "", a.getStatus())
	require.NoError(t, a.Connect(context.Background()))

	assert.True(t, a.isConnected())
	assert.Contains(t, out.String(), "Connected as "+a.keystore.Accounts()[0].Hex())
	assert.Contains(t, a.getStatus(), "0x")

	out.Reset()
	require.NoError(t, a.Disconnect(context.Background()))
	assert.False(t, a.isConnected())
	assert.Contains(t, out.String(), "Wallet disconnected")
}

func TestConnect_Rejected(t *testing.T) {
	a, out := newTestApp(t, 1, "n\n")

	err := a.Connect(context.Background())
	require.ErrorIs(t, err, common.ErrUserRejected)
	assert.Contains(t, out.String(), "rejected")
	assert.False(t, a.isConnected())
}

func TestAccount_ListAndSwitch(t *testing.T) {
	stubPassword(t, testPassphrase)
	a, out := newTestApp(t, 2, "y\n")
	accs := a.keystore.Accounts()

	require.NoError(t, a.Connect(context.Background()))

	out.Reset()
	require.NoError(t, a.Account(context.Background(), nil))
	assert.Contains(t, out.String(), "* "+accs[0].Hex())
	assert.Contains(t, out.String(), "  "+accs[1].Hex())

	out.Reset()
	require.NoError(t, a.Account(context.Background(), []string{accs[1].Hex()}))
	assert.Contains(t, out.String(), "Active account changed to "+accs[1].Hex())

	active, ok := a.session.ActiveAccount()
	require.True(t, ok)
	assert.Equal(t, accs[1], active)
}

func TestAccount_NewAndInvalid(t *testing.T) {
	stubPassword(t, testPassphrase)
	a, out := newTestApp(t, 0, "")

	require.NoError(t, a.Account(context.Background(), nil))
	assert.Contains(t, out.String(), "Keystore is empty")

	require.NoError(t, a.Account(context.Background(), []string{"new"}))
	assert.Len(t, a.keystore.Accounts(), 1)

	require.Error(t, a.Account(context.Background(), []string{"0xnothex"}))

	a.keystore = nil
	require.ErrorIs(t, a.Account(context.Background(), nil), errKeystoreOnly)
}

func TestStatus_ReportsConfiguration(t *testing.T) {
	a, out := newTestApp(t, 0, "")
	a.endpoints = []string{"http://localhost:5001"}

	require.NoError(t, a.Status(context.Background()))
	s := out.String()
	assert.Contains(t, s, "disconnected")
	assert.Contains(t, s, "Contract: not configured")
	assert.Contains(t, s, "http://localhost:5001")
}

func TestSelectAndQuote(t *testing.T) {
	a, out := newTestApp(t, 0, "")

	require.Error(t, a.Select(context.Background(), nil))
	require.NoError(t, a.Select(context.Background(), []string{"/tmp/report.pdf"}))
	assert.Contains(t, out.String(), "Selected report.pdf")

	out.Reset()
	require.NoError(t, a.Quote(context.Background(), []string{"30"}))
	assert.Contains(t, out.String(), "0.000003 ETH")

	require.Error(t, a.Quote(context.Background(), []string{"thirty"}))
}

func TestUpload_ConfirmedFlow(t *testing.T) {
	a, out := newTestApp(t, 0, "45\ny\nn\ny\n")
	reg := a.registration.(*fakeRegistration)
	reg.pending = &models.SelectedFile{Path: "/tmp/report.pdf", Size: 10}
	reg.result = &models.RegistrationResult{
		Publication: models.Publication{ContentID: "QmAbc", Endpoint: "http://localhost:5001"},
		Quote:       models.NewQuote(big.NewInt(100_000_000_000), 45),
		Receipt:     models.Receipt{BlockNumber: 42},
	}

	require.NoError(t, a.Upload(context.Background()))

	require.Len(t, reg.opts, 1)
	assert.Equal(t, models.RegisterOptions{IsEncrypted: true, IsPublic: false, DurationDays: 45}, reg.opts[0])
	s := out.String()
	assert.Contains(t, s, "Published QmAbc via http://localhost:5001")
	assert.Contains(t, s, "Registered in block 42")
	assert.Contains(t, s, "Paid 0.0000045 ETH")
}

func TestUpload_DefaultsAndDegradedWarning(t *testing.T) {
	a, out := newTestApp(t, 0, "\n\n\ny\n")
	reg := a.registration.(*fakeRegistration)
	reg.pending = &models.SelectedFile{Path: "/tmp/a.txt", Size: 5}
	reg.result = &models.RegistrationResult{
		Publication: models.Publication{ContentID: "QmYS50eHQ1", Endpoint: "fallback", Degraded: true},
		Quote:       models.NewQuote(big.NewInt(1), 30),
	}

	require.NoError(t, a.Upload(context.Background()))
	assert.Equal(t, models.RegisterOptions{IsEncrypted: false, IsPublic: true, DurationDays: 30}, reg.opts[0])
	assert.Contains(t, out.String(), "Warning: no gateway accepted the file")
}

func TestUpload_CancelAndErrors(t *testing.T) {
	a, _ := newTestApp(t, 0, "\nn\nn\nn\n")
	reg := a.registration.(*fakeRegistration)

	require.Error(t, a.Upload(context.Background()), "nothing selected")

	reg.pending = &models.SelectedFile{Path: "/tmp/a.txt", Size: 5}
	require.ErrorIs(t, a.Upload(context.Background()), errUploadCancelled)
	assert.Empty(t, reg.opts)

	a.reader = rdr("30\n")
	reg.quoteErr = common.ErrContractNotDeployed
	require.ErrorIs(t, a.Upload(context.Background()), common.ErrContractNotDeployed)
}

func TestList_MarksExpired(t *testing.T) {
	a, out := newTestApp(t, 0, "")
	files := a.files.(*fakeFiles)

	require.NoError(t, a.List(context.Background()))
	assert.Contains(t, out.String(), "No files registered")

	created := time.Now().Add(-48 * time.Hour)
	files.records = []models.StorageRecord{
		{ContentID: "QmOld", CreatedAt: created, ExpiresAt: created.Add(models.DurationUnit), StorageCost: big.NewInt(1)},
		{ContentID: "QmNew", CreatedAt: created, ExpiresAt: created.Add(30 * models.DurationUnit), StorageCost: big.NewInt(1)},
	}

	out.Reset()
	require.NoError(t, a.List(context.Background()))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "QmOld"))
	assert.True(t, strings.HasSuffix(lines[0], "[expired]"))
	assert.False(t, strings.HasSuffix(lines[1], "[expired]"))

	files.err = common.ErrNoProviderOrAccount
	require.ErrorIs(t, a.List(context.Background()), common.ErrNoProviderOrAccount)
}

func TestDeleteAndOrphans(t *testing.T) {
	a, out := newTestApp(t, 0, "")
	files := a.files.(*fakeFiles)

	require.Error(t, a.Delete(context.Background(), nil))
	require.NoError(t, a.Delete(context.Background(), []string{"QmA"}))
	assert.Equal(t, []string{"QmA"}, files.deleted)

	out.Reset()
	require.NoError(t, a.Orphans(context.Background()))
	assert.Contains(t, out.String(), "No orphaned uploads")

	files.orphans = []*models.UploadEntry{{ContentID: "QmLost", FileName: "a.txt", Status: models.UploadStatusOrphaned, Error: "rejected"}}
	out.Reset()
	require.NoError(t, a.Orphans(context.Background()))
	assert.Contains(t, out.String(), "QmLost  a.txt: rejected")
}
