// Package wallet manages the connection between chainstash and a user's
// wallet.
//
// A wallet is reached through a Provider, an EIP-1193 style request/event
// surface. Two providers are available: WSProvider talks JSON-RPC to an
// external wallet bridge over a websocket, KeystoreWallet serves the same
// methods from a local go-ethereum keystore. Session sits on top of either one
// and owns the account and chain state read by the rest of the client.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Wallet error codes (EIP-1193, EIP-3326).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeUnrecognizedChain = 4902

	CodeInvalidParams = -32602
)

// Provider notifications.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Wallet RPC methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSignTransaction = "eth_signTransaction"
)

// Provider is the request/notification surface of a wallet.
type Provider interface {
	// Request calls method with params and returns the raw JSON result.
	// Wallet-side failures are reported as *RPCError.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// On registers fn for notifications named event and returns a function
	// that removes it. fn may be called from any goroutine.
	On(event string, fn func(payload json.RawMessage)) (unsubscribe func())
}

// Signer signs transactions on behalf of one of the wallet's accounts.
type Signer interface {
	SignTransaction(ctx context.Context, from gethcommon.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// RPCError is an error returned by the wallet.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

// ErrorCode extracts the wallet error code from err, if any.
func ErrorCode(err error) (int, bool) {
	var re *RPCError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}

// IsUserRejected reports whether err is a wallet-side user rejection.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// emitter fans provider notifications out to registered listeners.
type emitter struct {
	mu        sync.Mutex
	next      int
	listeners map[string]map[int]func(json.RawMessage)
}

func (e *emitter) on(event string, fn func(json.RawMessage)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[string]map[int]func(json.RawMessage))
	}
	if e.listeners[event] == nil {
		e.listeners[event] = make(map[int]func(json.RawMessage))
	}
	id := e.next
	e.next++
	e.listeners[event][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners[event], id)
	}
}

// emit calls the listeners of event outside the lock.
func (e *emitter) emit(event string, payload json.RawMessage) {
	e.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(e.listeners[event]))
	for _, fn := range e.listeners[event] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}
