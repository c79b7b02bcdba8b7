// Package models defines the client-side data models of chainstash: ledger
// records, cost quotes, gateway publications and local journal entries.
package models

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

// DurationUnit is the billing granularity of the ledger.
const DurationUnit = 24 * time.Hour

var weiPerEther = big.NewInt(1_000_000_000_000_000_000)

// StorageRecord mirrors the ledger-held record of a registered file.
type StorageRecord struct {
	ContentID   string
	Owner       gethcommon.Address
	CreatedAt   time.Time
	IsEncrypted bool
	IsPublic    bool
	// StorageCost is the amount paid, in wei.
	StorageCost *big.Int
	ExpiresAt   time.Time
}

// DurationDays is the number of billing units between creation and expiry.
func (r StorageRecord) DurationDays() int64 {
	return int64(r.ExpiresAt.Sub(r.CreatedAt) / DurationUnit)
}

// Expired reports whether the record's paid period is over at now.
func (r StorageRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r StorageRecord) String() string {
	visibility := "private"
	if r.IsPublic {
		visibility = "public"
	}
	enc := ""
	if r.IsEncrypted {
		enc = ", encrypted"
	}
	return fmt.Sprintf("%s (%s%s) cost %s ETH, expires %s",
		r.ContentID, visibility, enc, FormatEther(r.StorageCost), r.ExpiresAt.UTC().Format(time.DateOnly))
}

// Quote is the cost of storing a file for DurationDays at the live ledger price.
type Quote struct {
	PricePerDay  *big.Int
	DurationDays int64
	Total        *big.Int
}

// NewQuote computes Total = PricePerDay × DurationDays.
func NewQuote(pricePerDay *big.Int, days int64) Quote {
	total := new(big.Int).Mul(pricePerDay, big.NewInt(days))
	return Quote{PricePerDay: new(big.Int).Set(pricePerDay), DurationDays: days, Total: total}
}

func (q Quote) String() string {
	return fmt.Sprintf("%d day(s) × %s ETH = %s ETH", q.DurationDays, FormatEther(q.PricePerDay), FormatEther(q.Total))
}

// FormatEther renders a wei amount as an exact decimal ether string with
// trailing zeros removed.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	sign := ""
	v := new(big.Int).Set(wei)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}

	whole, frac := new(big.Int).QuoRem(v, weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fs := fmt.Sprintf("%018s", frac.String())
	fs = strings.TrimRight(fs, "0")
	return sign + whole.String() + "." + fs
}

// FileSource describes a local file that can be read more than once, one
// reader per gateway attempt.
type FileSource struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// SelectedFile is the local file pending registration.
type SelectedFile struct {
	Path string
	Size int64
}

// Name is the base name of the file.
func (f SelectedFile) Name() string {
	return filepath.Base(f.Path)
}

// Source returns a FileSource reading the file from disk.
func (f SelectedFile) Source() FileSource {
	return FileSource{
		Name: f.Name(),
		Size: f.Size,
		Open: func() (io.ReadCloser, error) { return os.Open(f.Path) },
	}
}

// Publication is the outcome of publishing a file to the content network.
// Degraded publications carry a synthesized identifier that is not a real
// content address.
type Publication struct {
	ContentID string
	Endpoint  string
	Degraded  bool
}

// RegisterOptions are the storage terms chosen for the pending file.
type RegisterOptions struct {
	IsEncrypted  bool
	IsPublic     bool
	DurationDays int64
}

// Receipt summarises a mined ledger transaction.
type Receipt struct {
	TxHash      gethcommon.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// RegistrationResult is returned by a successful registration.
type RegistrationResult struct {
	Publication Publication
	Quote       Quote
	Receipt     Receipt
	JournalID   string
}
