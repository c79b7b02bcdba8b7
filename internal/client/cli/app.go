package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/client"
	"github.com/dmitrijs2005/chainstash/internal/client/config"
	"github.com/dmitrijs2005/chainstash/internal/client/gateway"
	"github.com/dmitrijs2005/chainstash/internal/client/ledger"
	"github.com/dmitrijs2005/chainstash/internal/client/repositories/journal"
	"github.com/dmitrijs2005/chainstash/internal/client/services"
	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config       *config.Config
	log          logging.Logger
	session      *wallet.Session
	keystore     *wallet.KeystoreWallet
	binder       *ledger.Binder
	registration services.RegistrationService
	files        services.FileService
	endpoints    []string

	// ping probes the chain endpoint for the online watcher.
	ping    func(ctx context.Context) error
	closers []func()

	mu   sync.Mutex
	mode Mode

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewTextLogger(os.Stderr, c.LogLevel)

	a := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	chain := chainParams(c)

	provider, err := a.openWallet(ctx, chain)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.session = wallet.NewSession(provider, chain, log)
	a.closers = append(a.closers, a.session.Close)

	var backend ledger.Backend
	rpc, err := ethclient.DialContext(ctx, c.RPCURL)
	if err != nil {
		log.Warn(ctx, "chain endpoint unavailable", "url", c.RPCURL, "error", err)
		dialErr := err
		a.ping = func(context.Context) error { return dialErr }
	} else {
		backend = rpc
		a.closers = append(a.closers, rpc.Close)
		a.ping = func(ctx context.Context) error {
			_, err := rpc.ChainID(ctx)
			return err
		}
	}
	a.binder = ledger.NewBinder(backend, c.ContractAddress, log)

	a.wireServices(ctx, db)

	a.session.Subscribe(a.onSessionEvent)

	return a, nil
}

func (a *App) wireServices(ctx context.Context, db *sql.DB) {
	c := a.config
	j := journal.NewSQLiteRepository(db)

	gcfg := gateway.Config{
		GatewayURL:     c.GatewayURL,
		Fallbacks:      c.FallbackGateways,
		Token:          c.GatewayToken,
		AttemptTimeout: c.GatewayAttemptTimeout,
		AllowDegraded:  c.AllowDegradedPublish,
	}
	if c.S3Enabled() {
		gcfg.S3 = &gateway.S3Config{
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		}
	}

	var publisher services.ContentPublisher
	p, err := gateway.New(ctx, gcfg, a.log)
	if err != nil {
		a.log.Warn(ctx, "publishing disabled", "error", err)
	} else {
		publisher = p
		a.endpoints = p.Endpoints()
	}

	a.registration = services.NewRegistrationService(a.session, a.binder, publisher, j, c.MaxFileSize, a.log)
	a.files = services.NewFileService(a.session, a.binder, j, a.log)
}

// openWallet returns the configured wallet provider. A websocket wallet that
// cannot be reached yields a nil provider so the client still starts.
func (a *App) openWallet(ctx context.Context, chain wallet.ChainParams) (wallet.Provider, error) {
	c := a.config

	switch c.WalletMode {
	case config.WalletModeWS:
		ws, err := wallet.DialWS(ctx, c.WalletURL, a.log)
		if err != nil {
			a.log.Warn(ctx, "wallet bridge unavailable", "url", c.WalletURL, "error", err)
			return nil, nil
		}
		a.closers = append(a.closers, func() { _ = ws.Close() })
		return ws, nil

	case config.WalletModeKeystore, "":
		ks, err := wallet.OpenKeystore(c.KeystoreDir)
		if err != nil {
			return nil, err
		}

		opts := []wallet.KeystoreOption{
			wallet.WithConfirm(a.confirmAccess),
			wallet.WithPassphrase(a.askPassphrase),
		}
		if c.Account != "" {
			if !gethcommon.IsHexAddress(c.Account) {
				return nil, fmt.Errorf("invalid account address %q", c.Account)
			}
			opts = append(opts, wallet.WithAccount(gethcommon.HexToAddress(c.Account)))
		}

		a.keystore = wallet.NewKeystoreWallet(ks, chain, opts...)
		return a.keystore, nil

	default:
		return nil, fmt.Errorf("unknown wallet mode %q", c.WalletMode)
	}
}

func (a *App) confirmAccess(ctx context.Context, account gethcommon.Address) (bool, error) {
	return GetYesNo(a.reader, fmt.Sprintf("Allow chainstash to use account %s?", account.Hex()), true, a.out)
}

func (a *App) askPassphrase(account gethcommon.Address) (string, error) {
	pw, err := GetPassword("Passphrase for "+account.Hex(), a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func chainParams(c *config.Config) wallet.ChainParams {
	p := wallet.Sepolia()
	p.ChainID = c.ChainID
	p.ChainName = c.ChainName
	p.CurrencyName = c.CurrencyName
	p.CurrencySymbol = c.CurrencySymbol
	p.RPCURL = c.RPCURL
	p.ExplorerURL = c.ExplorerURL
	return p
}

func (a *App) onSessionEvent(ev wallet.Event) {
	snap := ev.Snapshot

	switch ev.Kind {
	case wallet.EventAccountChanged:
		a.println("Active account changed to", snap.Account.Hex())
	case wallet.EventNetworkChanged:
		if snap.WrongNetwork {
			a.println(fmt.Sprintf("Wallet is on chain %d; switch back to %s to continue", snap.ChainID, a.session.Chain().ChainName))
		} else {
			a.println("Wallet is back on", a.session.Chain().ChainName)
		}
	case wallet.EventDisconnected:
		a.binder.Invalidate()
		a.println("Wallet disconnected")
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Run resumes an existing wallet session, starts the online watcher and
// blocks in the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.println("Welcome to chainstash (type 'help' for commands)")

	if snap, err := a.session.Resume(ctx); err != nil {
		a.log.Debug(ctx, "no wallet session to resume", "error", err)
	} else if snap.Connected() {
		a.println("Connected as", snap.Account.Hex())
	}

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close releases the wallet, chain and journal handles in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.ping(ctx)
	cancel()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.setMode(ModeOffline)
		}
		return
	}
	a.setMode(ModeOnline)
}
