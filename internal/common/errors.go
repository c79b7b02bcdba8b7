// Package common defines sentinel errors shared by the wallet, ledger,
// gateway and workflow layers of chainstash. Callers should use errors.Is to
// match these values; lower layers wrap them with extra context.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Wallet session errors.
	ErrWalletUnavailable = errors.New("no wallet available")
	ErrUserRejected      = errors.New("request rejected by user")
	ErrChainMismatch     = errors.New("wallet is connected to a different chain")
	ErrWrongNetwork      = errors.New("wallet switched to an unsupported network")

	// Contract binding errors.
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrNoProviderOrAccount  = errors.New("no provider or account")
	ErrContractNotDeployed  = errors.New("no contract code at configured address")

	// Registration workflow errors.
	ErrInvalidDuration  = errors.New("storage duration must be between 1 and 365 days")
	ErrNoFileSelected   = errors.New("no file selected")
	ErrFileTooLarge     = errors.New("file too large")
	ErrQuoteUnavailable = errors.New("storage price unavailable")
	ErrPublishFailed    = errors.New("publish failed")

	// Ledger transaction errors.
	ErrSubmissionRejected = errors.New("transaction rejected by user")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrLedger             = errors.New("ledger error")
	ErrNotOwner           = errors.New("caller is not the record owner")
	ErrRecordNotFound     = errors.New("record not found")
)
