package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	gethcommon "github.com/ethereum/go-ethereum/common"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Snapshot is a consistent view of the session at one point in time.
//
// Generation increases on every account or chain change; holders of derived
// state (contract handles) compare it to detect staleness.
type Snapshot struct {
	State        State
	Account      gethcommon.Address
	ChainID      uint64
	WrongNetwork bool
	Generation   uint64
}

// Connected reports whether the snapshot has an authorized account.
func (s Snapshot) Connected() bool {
	return s.State == StateConnected
}

// EventKind classifies session events.
type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventDisconnected   EventKind = "disconnected"
	EventAccountChanged EventKind = "account_changed"
	EventNetworkChanged EventKind = "network_changed"
)

// Event is delivered to Subscribe callbacks after the session changed.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}

// Session tracks the wallet connection: lifecycle state, active account and
// whether the wallet sits on the target chain. It is the single writer of
// that state; other components read it through Snapshot.
//
// Provider calls are made without holding the session lock, so wallet
// notifications can be applied while Connect is in flight.
type Session struct {
	provider Provider
	chain    ChainParams
	log      logging.Logger

	mu           sync.RWMutex
	state        State
	account      gethcommon.Address
	chainID      uint64
	wrongNetwork bool
	generation   uint64

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	unsubscribe []func()
}

// NewSession creates a disconnected session bound to provider. A nil provider
// is allowed and makes Connect fail with common.ErrWalletUnavailable.
func NewSession(provider Provider, chain ChainParams, log logging.Logger) *Session {
	s := &Session{
		provider: provider,
		chain:    chain,
		log:      log.With("component", "wallet"),
		subs:     make(map[int]func(Event)),
	}

	if provider != nil {
		s.unsubscribe = append(s.unsubscribe,
			provider.On(EventAccountsChanged, s.onAccountsChanged),
			provider.On(EventChainChanged, s.onChainChanged),
		)
	}

	return s
}

// Provider returns the underlying wallet provider, possibly nil.
func (s *Session) Provider() Provider {
	return s.provider
}

// Chain returns the target chain parameters.
func (s *Session) Chain() ChainParams {
	return s.chain
}

// Signer returns the provider's transaction signer if it has one.
func (s *Session) Signer() (Signer, bool) {
	if s.provider == nil {
		return nil, false
	}
	signer, ok := s.provider.(Signer)
	return signer, ok
}

// Connect asks the wallet for account access and makes sure it is on the
// target chain, switching or registering the chain when needed.
func (s *Session) Connect(ctx context.Context) (Snapshot, error) {
	if s.provider == nil {
		return Snapshot{}, common.ErrWalletUnavailable
	}

	s.mu.Lock()
	s.state = StateConnecting
	s.mu.Unlock()

	account, err := s.requestAccount(ctx, MethodRequestAccounts)
	if err != nil {
		s.abort()
		return Snapshot{}, err
	}

	chainID, err := s.ensureChain(ctx)
	if err != nil {
		s.abort()
		return Snapshot{}, err
	}

	snap := s.commit(account, chainID)
	s.log.Info(ctx, "wallet connected", "account", account.Hex(), "chain_id", chainID)
	s.publish(Event{Kind: EventConnected, Snapshot: snap})
	return snap, nil
}

// Resume restores a session the wallet has already authorized, without
// prompting. It returns a disconnected snapshot when there is none.
func (s *Session) Resume(ctx context.Context) (Snapshot, error) {
	if s.provider == nil {
		return Snapshot{}, common.ErrWalletUnavailable
	}

	account, err := s.requestAccount(ctx, MethodAccounts)
	if err != nil {
		if errors.Is(err, common.ErrWalletUnavailable) {
			return s.Snapshot(), nil
		}
		return Snapshot{}, err
	}

	chainID, err := s.readChainID(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", common.ErrWalletUnavailable, err)
	}

	snap := s.commit(account, chainID)
	s.log.Debug(ctx, "wallet session resumed", "account", account.Hex(), "chain_id", chainID)
	s.publish(Event{Kind: EventConnected, Snapshot: snap})
	return snap, nil
}

// Disconnect forgets the local session. Wallet-side authorization is kept.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(Event{Kind: EventDisconnected, Snapshot: snap})
}

// ActiveAccount returns the authorized account, if connected.
func (s *Session) ActiveAccount() (gethcommon.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected {
		return gethcommon.Address{}, false
	}
	return s.account, true
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for session events and returns a function that
// removes it. Events are delivered synchronously after the state change.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// Close detaches the session from provider notifications.
func (s *Session) Close() {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.unsubscribe = nil
}

func (s *Session) requestAccount(ctx context.Context, method string) (gethcommon.Address, error) {
	raw, err := s.provider.Request(ctx, method)
	if err != nil {
		if IsUserRejected(err) {
			return gethcommon.Address{}, fmt.Errorf("%w: %v", common.ErrUserRejected, err)
		}
		return gethcommon.Address{}, fmt.Errorf("%w: %v", common.ErrWalletUnavailable, err)
	}

	accounts, err := decodeAccounts(raw)
	if err != nil {
		return gethcommon.Address{}, fmt.Errorf("%w: %v", common.ErrWalletUnavailable, err)
	}
	if len(accounts) == 0 {
		return gethcommon.Address{}, fmt.Errorf("%w: wallet returned no accounts", common.ErrWalletUnavailable)
	}

	return accounts[0], nil
}

func (s *Session) readChainID(ctx context.Context) (uint64, error) {
	raw, err := s.provider.Request(ctx, MethodChainID)
	if err != nil {
		return 0, err
	}
	return decodeChainID(raw)
}

// ensureChain returns the wallet's chain id after switching to the target
// chain if necessary.
func (s *Session) ensureChain(ctx context.Context) (uint64, error) {
	chainID, err := s.readChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrChainMismatch, err)
	}
	if chainID == s.chain.ChainID {
		return chainID, nil
	}

	s.log.Info(ctx, "switching wallet chain", "from", chainID, "to", s.chain.ChainID)

	_, err = s.provider.Request(ctx, MethodSwitchChain, s.chain.switchParam())
	if code, ok := ErrorCode(err); ok && code == CodeUnrecognizedChain {
		s.log.Info(ctx, "registering chain with wallet", "chain", s.chain.ChainName)
		if _, err = s.provider.Request(ctx, MethodAddChain, s.chain.addParam()); err == nil {
			_, err = s.provider.Request(ctx, MethodSwitchChain, s.chain.switchParam())
		}
	}
	if err != nil {
		if IsUserRejected(err) {
			return 0, fmt.Errorf("%w: %v", common.ErrUserRejected, err)
		}
		return 0, fmt.Errorf("%w: %v", common.ErrChainMismatch, err)
	}

	chainID, err = s.readChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrChainMismatch, err)
	}
	if chainID != s.chain.ChainID {
		return 0, fmt.Errorf("%w: wallet reports chain %d", common.ErrChainMismatch, chainID)
	}
	return chainID, nil
}

func (s *Session) commit(account gethcommon.Address, chainID uint64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateConnected
	s.account = account
	s.chainID = chainID
	s.wrongNetwork = chainID != s.chain.ChainID
	s.generation++
	return s.snapshotLocked()
}

func (s *Session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		s.state = StateDisconnected
	}
}

func (s *Session) clearLocked() {
	s.state = StateDisconnected
	s.account = gethcommon.Address{}
	s.chainID = 0
	s.wrongNetwork = false
	s.generation++
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:        s.state,
		Account:      s.account,
		ChainID:      s.chainID,
		WrongNetwork: s.wrongNetwork,
		Generation:   s.generation,
	}
}

func (s *Session) onAccountsChanged(payload json.RawMessage) {
	ctx := context.Background()

	accounts, err := decodeAccounts(payload)
	if err != nil {
		s.log.Warn(ctx, "malformed accountsChanged notification", "error", err)
		return
	}

	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}

	var ev Event
	if len(accounts) == 0 {
		s.clearLocked()
		ev = Event{Kind: EventDisconnected, Snapshot: s.snapshotLocked()}
	} else {
		if accounts[0] == s.account {
			s.mu.Unlock()
			return
		}
		s.account = accounts[0]
		s.generation++
		ev = Event{Kind: EventAccountChanged, Snapshot: s.snapshotLocked()}
	}
	s.mu.Unlock()

	s.log.Info(ctx, "wallet accounts changed", "event", ev.Kind, "account", ev.Snapshot.Account.Hex())
	s.publish(ev)
}

func (s *Session) onChainChanged(payload json.RawMessage) {
	ctx := context.Background()

	chainID, err := decodeChainID(payload)
	if err != nil {
		s.log.Warn(ctx, "malformed chainChanged notification", "error", err)
		return
	}

	s.mu.Lock()
	if s.state != StateConnected || chainID == s.chainID {
		s.mu.Unlock()
		return
	}
	s.chainID = chainID
	s.wrongNetwork = chainID != s.chain.ChainID
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if snap.WrongNetwork {
		s.log.Warn(ctx, "wallet switched to another network", "chain_id", chainID, "want", s.chain.ChainID)
	} else {
		s.log.Info(ctx, "wallet back on target network", "chain_id", chainID)
	}
	s.publish(Event{Kind: EventNetworkChanged, Snapshot: snap})
}

func (s *Session) publish(ev Event) {
	s.subsMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func decodeAccounts(raw json.RawMessage) ([]gethcommon.Address, error) {
	var hexes []string
	if err := json.Unmarshal(raw, &hexes); err != nil {
		return nil, fmt.Errorf("invalid accounts payload: %w", err)
	}

	out := make([]gethcommon.Address, 0, len(hexes))
	for _, h := range hexes {
		if !gethcommon.IsHexAddress(h) {
			return nil, fmt.Errorf("invalid account %q", h)
		}
		out = append(out, gethcommon.HexToAddress(h))
	}
	return out, nil
}
