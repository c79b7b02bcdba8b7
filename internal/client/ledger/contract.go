package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Ledger is the contract surface used by the workflows.
type Ledger interface {
	// Account is the account the handle reads and signs as.
	Account() gethcommon.Address

	// StoragePricePerDay reads the live price of one day of storage, in wei.
	StoragePricePerDay(ctx context.Context) (*big.Int, error)

	// GetUserFiles lists the content ids registered by owner, in ledger order.
	GetUserFiles(ctx context.Context, owner gethcommon.Address) ([]string, error)

	// GetFile looks up the record of contentID.
	GetFile(ctx context.Context, contentID string) (models.StorageRecord, error)

	// UploadFile registers contentID paying value and waits for the
	// transaction to be mined.
	UploadFile(ctx context.Context, contentID string, isEncrypted, isPublic bool, days int64, value *big.Int) (models.Receipt, error)

	// DeleteFile revokes the record of contentID and waits for the
	// transaction to be mined.
	DeleteFile(ctx context.Context, contentID string) (models.Receipt, error)
}

// Contract is a Ledger handle scoped to one account on one chain.
type Contract struct {
	address gethcommon.Address
	bound   *bind.BoundContract
	backend Backend
	from    gethcommon.Address
	chainID *big.Int
	signer  wallet.Signer
	log     logging.Logger
}

// NewContract builds a handle for address that calls as from and signs
// with signer. A nil signer makes writes fail with ErrNoProviderOrAccount.
func NewContract(address gethcommon.Address, backend Backend, from gethcommon.Address, chainID uint64, signer wallet.Signer, log logging.Logger) *Contract {
	return &Contract{
		address: address,
		bound:   bind.NewBoundContract(address, parsedABI, backend, backend, backend),
		backend: backend,
		from:    from,
		chainID: new(big.Int).SetUint64(chainID),
		signer:  signer,
		log:     log,
	}
}

// Address returns the contract address.
func (c *Contract) Address() gethcommon.Address {
	return c.address
}

// Account returns the account the handle acts for.
func (c *Contract) Account() gethcommon.Address {
	return c.from
}

func (c *Contract) StoragePricePerDay(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := c.bound.Call(c.callOpts(ctx), &out, methodStoragePrice); err != nil {
		return nil, mapError(methodStoragePrice, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Contract) GetUserFiles(ctx context.Context, owner gethcommon.Address) ([]string, error) {
	var out []interface{}
	if err := c.bound.Call(c.callOpts(ctx), &out, methodUserFiles, owner); err != nil {
		return nil, mapError(methodUserFiles, err)
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

func (c *Contract) GetFile(ctx context.Context, contentID string) (models.StorageRecord, error) {
	var out []interface{}
	if err := c.bound.Call(c.callOpts(ctx), &out, methodGetFile, contentID); err != nil {
		return models.StorageRecord{}, mapError(methodGetFile, err)
	}

	owner := *abi.ConvertType(out[0], new(gethcommon.Address)).(*gethcommon.Address)
	if owner == (gethcommon.Address{}) {
		return models.StorageRecord{}, fmt.Errorf("%s %s: %w", methodGetFile, contentID, common.ErrRecordNotFound)
	}

	timestamp := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	expiry := *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)

	return models.StorageRecord{
		ContentID:   contentID,
		Owner:       owner,
		CreatedAt:   time.Unix(timestamp.Int64(), 0).UTC(),
		IsEncrypted: *abi.ConvertType(out[2], new(bool)).(*bool),
		IsPublic:    *abi.ConvertType(out[3], new(bool)).(*bool),
		StorageCost: *abi.ConvertType(out[4], new(*big.Int)).(**big.Int),
		ExpiresAt:   time.Unix(expiry.Int64(), 0).UTC(),
	}, nil
}

func (c *Contract) UploadFile(ctx context.Context, contentID string, isEncrypted, isPublic bool, days int64, value *big.Int) (models.Receipt, error) {
	return c.transact(ctx, value, methodUploadFile, contentID, isEncrypted, isPublic, big.NewInt(days))
}

func (c *Contract) DeleteFile(ctx context.Context, contentID string) (models.Receipt, error) {
	return c.transact(ctx, nil, methodDeleteFile, contentID)
}

func (c *Contract) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.from}
}

func (c *Contract) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (models.Receipt, error) {
	if c.signer == nil {
		return models.Receipt{}, fmt.Errorf("%s: %w: wallet cannot sign", method, common.ErrNoProviderOrAccount)
	}

	opts := &bind.TransactOpts{
		From:    c.from,
		Context: ctx,
		Value:   value,
		Signer: func(addr gethcommon.Address, tx *types.Transaction) (*types.Transaction, error) {
			return c.signer.SignTransaction(ctx, addr, tx, c.chainID)
		},
	}

	tx, err := c.bound.Transact(opts, method, params...)
	if err != nil {
		return models.Receipt{}, mapError(method, err)
	}
	c.log.Info(ctx, "transaction sent", "method", method, "tx", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return models.Receipt{TxHash: tx.Hash()}, fmt.Errorf("%s: %w: waiting for %s: %v", method, common.ErrLedger, tx.Hash().Hex(), err)
	}

	result := models.Receipt{TxHash: receipt.TxHash, GasUsed: receipt.GasUsed}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, fmt.Errorf("%s: %w: transaction %s reverted", method, common.ErrLedger, tx.Hash().Hex())
	}

	c.log.Info(ctx, "transaction confirmed", "method", method, "tx", tx.Hash().Hex(), "block", result.BlockNumber)
	return result, nil
}
