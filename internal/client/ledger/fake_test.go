package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// revertError mimics the JSON-RPC error of a reverted call.
type revertError struct {
	reason string
}

func (e *revertError) Error() string { return "execution reverted: " + e.reason }

func (e *revertError) ErrorData() interface{} {
	str, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: str}}.Pack(e.reason)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

type callHandler func(args []interface{}) ([]interface{}, error)

// fakeBackend serves contract calls from handlers keyed by method name and
// records submitted transactions.
type fakeBackend struct {
	bind.ContractBackend

	mu            sync.Mutex
	code          []byte
	codeErr       error
	calls         map[string]callHandler
	estimateErr   map[string]error
	sendErr       error
	receiptStatus uint64
	sent          []*types.Transaction
	codeAtCalls   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		code:          []byte{0x60, 0x80},
		calls:         make(map[string]callHandler),
		estimateErr:   make(map[string]error),
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) on(method string, h callHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method] = h
}

func (f *fakeBackend) CodeAt(context.Context, gethcommon.Address, *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeAtCalls++
	return f.code, f.codeErr
}

func (f *fakeBackend) PendingCodeAt(context.Context, gethcommon.Address) ([]byte, error) {
	return f.code, nil
}

func (f *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := parsedABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	h := f.calls[method.Name]
	f.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("no handler for %s", method.Name)
	}

	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, gethcommon.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	method, err := parsedABI.MethodById(call.Data[:4])
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.estimateErr[method.Name]; err != nil {
		return 0, err
	}
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash gethcommon.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.Receipt{
		Status:      f.receiptStatus,
		TxHash:      hash,
		BlockNumber: big.NewInt(42),
		GasUsed:     21_000,
	}, nil
}

func (f *fakeBackend) lastSent() *types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// fakeSession is a SessionReader with a fixed snapshot.
type fakeSession struct {
	snap   wallet.Snapshot
	signer wallet.Signer
}

func (s *fakeSession) Snapshot() wallet.Snapshot { return s.snap }

func (s *fakeSession) Signer() (wallet.Signer, bool) { return s.signer, s.signer != nil }
