package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/chainstash/internal/filex"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// KeystoreWallet is a local wallet backed by an encrypted go-ethereum
// keystore directory. It answers the same wallet methods as a remote wallet
// and signs transactions with the selected account.
type KeystoreWallet struct {
	ks *keystore.KeyStore

	confirm    func(ctx context.Context, account gethcommon.Address) (bool, error)
	passphrase func(account gethcommon.Address) (string, error)

	mu         sync.Mutex
	selected   gethcommon.Address
	authorized bool
	chainID    uint64
	known      map[uint64]ChainParams

	events emitter
}

// KeystoreOption configures a KeystoreWallet.
type KeystoreOption func(*KeystoreWallet)

// WithConfirm installs the prompt shown on account access requests.
// Returning false rejects the request with CodeUserRejected.
func WithConfirm(fn func(ctx context.Context, account gethcommon.Address) (bool, error)) KeystoreOption {
	return func(w *KeystoreWallet) { w.confirm = fn }
}

// WithPassphrase installs the source of account passphrases. Accounts are
// unlocked when access is granted.
func WithPassphrase(fn func(account gethcommon.Address) (string, error)) KeystoreOption {
	return func(w *KeystoreWallet) { w.passphrase = fn }
}

// WithAccount preselects account instead of the first keystore entry.
func WithAccount(account gethcommon.Address) KeystoreOption {
	return func(w *KeystoreWallet) { w.selected = account }
}

// OpenKeystore opens (creating if needed) the keystore at dir.
func OpenKeystore(dir string) (*keystore.KeyStore, error) {
	path, err := filex.ExpandPath(dir)
	if err != nil {
		return nil, fmt.Errorf("error resolving keystore dir: %w", err)
	}
	return keystore.NewKeyStore(path, keystore.StandardScryptN, keystore.StandardScryptP), nil
}

// NewKeystoreWallet wraps ks. The wallet starts on chain, which is also the
// only chain it knows until another one is added.
func NewKeystoreWallet(ks *keystore.KeyStore, chain ChainParams, opts ...KeystoreOption) *KeystoreWallet {
	w := &KeystoreWallet{
		ks:      ks,
		chainID: chain.ChainID,
		known:   map[uint64]ChainParams{chain.ChainID: chain},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Accounts lists the keystore's accounts.
func (w *KeystoreWallet) Accounts() []gethcommon.Address {
	accs := w.ks.Accounts()
	out := make([]gethcommon.Address, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.Address)
	}
	return out
}

// NewAccount creates a keystore account protected by passphrase.
func (w *KeystoreWallet) NewAccount(passphrase string) (gethcommon.Address, error) {
	acc, err := w.ks.NewAccount(passphrase)
	if err != nil {
		return gethcommon.Address{}, fmt.Errorf("error creating account: %w", err)
	}
	return acc.Address, nil
}

// On implements Provider.
func (w *KeystoreWallet) On(event string, fn func(json.RawMessage)) func() {
	return w.events.on(event, fn)
}

// Request implements Provider.
func (w *KeystoreWallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodRequestAccounts:
		return w.requestAccounts(ctx)

	case MethodAccounts:
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.authorized {
			return json.Marshal([]string{})
		}
		return json.Marshal([]string{w.selected.Hex()})

	case MethodChainID:
		w.mu.Lock()
		defer w.mu.Unlock()
		return json.Marshal(ChainParams{ChainID: w.chainID}.HexChainID())

	case MethodSwitchChain:
		var p switchChainParam
		if err := decodeParam(params, &p); err != nil {
			return nil, err
		}
		return nil, w.switchChain(p.ChainID)

	case MethodAddChain:
		var p addChainParam
		if err := decodeParam(params, &p); err != nil {
			return nil, err
		}
		return nil, w.addChain(p)

	default:
		return nil, &RPCError{Code: CodeUnsupportedMethod, Message: "unsupported method " + method}
	}
}

// SelectAccount makes account the active one. An authorized wallet notifies
// listeners with accountsChanged.
func (w *KeystoreWallet) SelectAccount(account gethcommon.Address) error {
	if !w.ks.HasAddress(account) {
		return fmt.Errorf("account %s is not in the keystore", account.Hex())
	}

	w.mu.Lock()
	changed := w.selected != account
	w.selected = account
	notify := w.authorized && changed
	w.mu.Unlock()

	if notify {
		if w.passphrase != nil {
			if err := w.unlock(account); err != nil {
				return err
			}
		}
		w.emitAccounts([]string{account.Hex()})
	}
	return nil
}

// Lock revokes access and locks the selected account. Listeners see an
// empty accountsChanged.
func (w *KeystoreWallet) Lock() {
	w.mu.Lock()
	wasAuthorized := w.authorized
	w.authorized = false
	account := w.selected
	w.mu.Unlock()

	_ = w.ks.Lock(account)
	if wasAuthorized {
		w.emitAccounts([]string{})
	}
}

// SignTransaction implements Signer.
func (w *KeystoreWallet) SignTransaction(_ context.Context, from gethcommon.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	w.mu.Lock()
	ok := w.authorized && w.selected == from
	w.mu.Unlock()
	if !ok {
		return nil, &RPCError{Code: CodeUnauthorized, Message: "account " + from.Hex() + " is not authorized"}
	}

	acc := accounts.Account{Address: from}
	signed, err := w.ks.SignTx(acc, tx, chainID)
	if errors.Is(err, keystore.ErrLocked) && w.passphrase != nil {
		pass, perr := w.passphrase(from)
		if perr != nil {
			return nil, &RPCError{Code: CodeUserRejected, Message: perr.Error()}
		}
		signed, err = w.ks.SignTxWithPassphrase(acc, pass, tx, chainID)
	}
	if err != nil {
		return nil, fmt.Errorf("error signing transaction: %w", err)
	}
	return signed, nil
}

func (w *KeystoreWallet) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	w.mu.Lock()
	account := w.selected
	w.mu.Unlock()

	if account == (gethcommon.Address{}) {
		accs := w.ks.Accounts()
		if len(accs) == 0 {
			return nil, &RPCError{Code: CodeUnauthorized, Message: "keystore has no accounts"}
		}
		account = accs[0].Address
	} else if !w.ks.HasAddress(account) {
		return nil, &RPCError{Code: CodeUnauthorized, Message: "account " + account.Hex() + " is not in the keystore"}
	}

	if w.confirm != nil {
		ok, err := w.confirm(ctx, account)
		if err != nil || !ok {
			return nil, &RPCError{Code: CodeUserRejected, Message: "user rejected the request"}
		}
	}

	if w.passphrase != nil {
		if err := w.unlock(account); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	w.selected = account
	w.authorized = true
	w.mu.Unlock()

	return json.Marshal([]string{account.Hex()})
}

func (w *KeystoreWallet) unlock(account gethcommon.Address) error {
	pass, err := w.passphrase(account)
	if err != nil {
		return &RPCError{Code: CodeUserRejected, Message: err.Error()}
	}
	if err := w.ks.Unlock(accounts.Account{Address: account}, pass); err != nil {
		return &RPCError{Code: CodeUnauthorized, Message: err.Error()}
	}
	return nil
}

func (w *KeystoreWallet) switchChain(hexID string) error {
	id, err := decodeChainID(json.RawMessage(fmt.Sprintf("%q", hexID)))
	if err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	w.mu.Lock()
	if _, ok := w.known[id]; !ok {
		w.mu.Unlock()
		return &RPCError{Code: CodeUnrecognizedChain, Message: "unrecognized chain " + hexID}
	}
	changed := w.chainID != id
	w.chainID = id
	w.mu.Unlock()

	if changed {
		payload, _ := json.Marshal(hexID)
		w.events.emit(EventChainChanged, payload)
	}
	return nil
}

func (w *KeystoreWallet) addChain(p addChainParam) error {
	id, err := decodeChainID(json.RawMessage(fmt.Sprintf("%q", p.ChainID)))
	if err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	cp := ChainParams{
		ChainID:        id,
		ChainName:      p.ChainName,
		CurrencyName:   p.NativeCurrency.Name,
		CurrencySymbol: p.NativeCurrency.Symbol,
		Decimals:       p.NativeCurrency.Decimals,
	}
	if len(p.RPCURLs) > 0 {
		cp.RPCURL = p.RPCURLs[0]
	}
	if len(p.BlockExplorerURLs) > 0 {
		cp.ExplorerURL = p.BlockExplorerURLs[0]
	}

	w.mu.Lock()
	w.known[id] = cp
	w.mu.Unlock()
	return nil
}

func (w *KeystoreWallet) emitAccounts(accs []string) {
	payload, _ := json.Marshal(accs)
	w.events.emit(EventAccountsChanged, payload)
}

// decodeParam re-decodes the first request param into dst, so in-process
// callers and JSON callers are handled alike.
func decodeParam(params []any, dst any) error {
	if len(params) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "missing params"}
	}
	b, err := json.Marshal(params[0])
	if err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
