package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	gethcommon "github.com/ethereum/go-ethereum/common"
)

// Backend is the chain access needed to call, transact and wait for
// receipts. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// SessionReader is the read side of a wallet session.
type SessionReader interface {
	Snapshot() wallet.Snapshot
	Signer() (wallet.Signer, bool)
}

type handleKey struct {
	account    gethcommon.Address
	chainID    uint64
	generation uint64
}

// Binder builds Contract handles for the configured address and caches the
// last one. The cache is keyed by account, chain and session generation, so
// a handle never outlives an account or network switch.
type Binder struct {
	backend Backend
	address string
	log     logging.Logger

	mu     sync.Mutex
	key    handleKey
	cached *Contract
}

// NewBinder creates a Binder. backend may be nil when no chain endpoint is
// available; Bind then fails with common.ErrNoProviderOrAccount.
func NewBinder(backend Backend, address string, log logging.Logger) *Binder {
	return &Binder{backend: backend, address: address, log: log.With("component", "ledger")}
}

// Bind returns a handle for the session's current account.
func (b *Binder) Bind(ctx context.Context, session SessionReader) (Ledger, error) {
	if b.address == "" {
		return nil, fmt.Errorf("%w: contract address", common.ErrMissingConfiguration)
	}
	if !gethcommon.IsHexAddress(b.address) {
		return nil, fmt.Errorf("%w: invalid contract address %q", common.ErrMissingConfiguration, b.address)
	}
	if b.backend == nil || session == nil {
		return nil, common.ErrNoProviderOrAccount
	}

	snap := session.Snapshot()
	if !snap.Connected() {
		return nil, common.ErrNoProviderOrAccount
	}
	if snap.WrongNetwork {
		return nil, fmt.Errorf("%w: wallet is on chain %d", common.ErrWrongNetwork, snap.ChainID)
	}

	key := handleKey{account: snap.Account, chainID: snap.ChainID, generation: snap.Generation}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cached != nil && b.key == key {
		return b.cached, nil
	}

	address := gethcommon.HexToAddress(b.address)
	code, err := b.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: reading code at %s: %v", common.ErrLedger, address.Hex(), err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %w: %s on chain %d", common.ErrContractNotDeployed, common.ErrMissingConfiguration, address.Hex(), snap.ChainID)
	}

	signer, _ := session.Signer()
	b.cached = NewContract(address, b.backend, snap.Account, snap.ChainID, signer, b.log)
	b.key = key
	b.log.Debug(ctx, "contract handle rebuilt", "account", snap.Account.Hex(), "chain_id", snap.ChainID, "generation", snap.Generation)

	return b.cached, nil
}

// Invalidate drops the cached handle.
func (b *Binder) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cached = nil
	b.key = handleKey{}
}
