package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
)

// rpcMessage covers requests, responses and notifications exchanged with a
// wallet bridge. Notifications carry a method and no id.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// WSProvider is a Provider speaking JSON-RPC 2.0 to an external wallet bridge
// over a websocket. Responses are matched to requests by id; bridge-initiated
// notifications are dispatched to listeners from the read loop, so listeners
// must not call Request synchronously.
type WSProvider struct {
	conn *websocket.Conn
	log  logging.Logger

	wmu sync.Mutex // guards writes

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan rpcMessage
	err     error

	done   chan struct{}
	events emitter
}

// DialWS connects to the wallet bridge at url and starts the read loop.
func DialWS(ctx context.Context, url string, log logging.Logger) (*WSProvider, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", common.ErrWalletUnavailable, url, err)
	}
	conn.SetReadLimit(1 << 20)

	p := &WSProvider{
		conn:    conn,
		log:     log.With("component", "ws-wallet"),
		pending: make(map[uint64]chan rpcMessage),
		done:    make(chan struct{}),
	}
	go p.readLoop()
	return p, nil
}

// On implements Provider.
func (p *WSProvider) On(event string, fn func(json.RawMessage)) func() {
	return p.events.on(event, fn)
}

// Request implements Provider.
func (p *WSProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	ch := make(chan rpcMessage, 1)

	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return nil, err
	}
	p.nextID++
	id := p.nextID
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	p.wmu.Lock()
	err := p.conn.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	p.wmu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: write: %v", common.ErrWalletUnavailable, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-p.done:
		p.mu.Lock()
		err := p.err
		p.mu.Unlock()
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SignTransaction implements Signer through eth_signTransaction.
func (p *WSProvider) SignTransaction(ctx context.Context, from gethcommon.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	raw, err := p.Request(ctx, MethodSignTransaction, newTxArgs(from, tx, chainID))
	if err != nil {
		return nil, err
	}

	encoded, err := decodeSignedTx(raw)
	if err != nil {
		return nil, err
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(encoded); err != nil {
		return nil, fmt.Errorf("error decoding signed transaction: %w", err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		return nil, fmt.Errorf("error recovering signer: %w", err)
	}
	if sender != from {
		return nil, fmt.Errorf("wallet signed with %s, expected %s", sender.Hex(), from.Hex())
	}
	return signed, nil
}

// Close shuts the connection down; pending requests fail.
func (p *WSProvider) Close() error {
	p.wmu.Lock()
	_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	p.wmu.Unlock()
	return p.conn.Close()
}

func (p *WSProvider) readLoop() {
	defer p.conn.Close()

	for {
		var msg rpcMessage
		if err := p.conn.ReadJSON(&msg); err != nil {
			p.fail(err)
			return
		}

		if msg.ID != nil {
			p.mu.Lock()
			ch, ok := p.pending[*msg.ID]
			p.mu.Unlock()
			if ok {
				select {
				case ch <- msg:
				default:
				}
			}
			continue
		}

		if msg.Method != "" {
			p.events.emit(msg.Method, msg.Params)
		}
	}
}

func (p *WSProvider) fail(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, websocket.ErrCloseSent) {
		p.log.Debug(context.Background(), "wallet bridge closed")
	} else {
		p.log.Warn(context.Background(), "wallet bridge connection lost", "error", err)
	}

	p.mu.Lock()
	p.err = fmt.Errorf("%w: connection closed: %v", common.ErrWalletUnavailable, err)
	p.mu.Unlock()
	close(p.done)
}

type txArgs struct {
	From                 gethcommon.Address  `json:"from"`
	To                   *gethcommon.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64      `json:"gas"`
	GasPrice             *hexutil.Big        `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big        `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big        `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big        `json:"value"`
	Nonce                hexutil.Uint64      `json:"nonce"`
	Data                 hexutil.Bytes       `json:"data"`
	ChainID              *hexutil.Big        `json:"chainId"`
}

func newTxArgs(from gethcommon.Address, tx *types.Transaction, chainID *big.Int) txArgs {
	args := txArgs{
		From:    from,
		To:      tx.To(),
		Gas:     hexutil.Uint64(tx.Gas()),
		Value:   (*hexutil.Big)(tx.Value()),
		Nonce:   hexutil.Uint64(tx.Nonce()),
		Data:    tx.Data(),
		ChainID: (*hexutil.Big)(chainID),
	}
	if tx.Type() == types.DynamicFeeTxType {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	} else {
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	}
	return args
}

// decodeSignedTx accepts either a raw hex string or an object with a "raw"
// field, both seen in wallet implementations.
func decodeSignedTx(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Raw string `json:"raw"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Raw == "" {
			return nil, fmt.Errorf("unexpected signTransaction result %s", string(raw))
		}
		s = obj.Raw
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid signed transaction: %w", err)
	}
	return b, nil
}
