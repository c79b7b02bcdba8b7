package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/chainstash/internal/client/wallet"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// mapError translates wallet, node and contract failures of op into the
// client error taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if wallet.IsUserRejected(err) {
		return fmt.Errorf("%s: %w", op, common.ErrSubmissionRejected)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	reason := revertReason(err)
	lower := strings.ToLower(reason)

	switch {
	case strings.Contains(lower, "insufficient funds"):
		return fmt.Errorf("%s: %w: %s", op, common.ErrInsufficientFunds, reason)
	case strings.Contains(lower, "owner"):
		return fmt.Errorf("%s: %w: %s", op, common.ErrNotOwner, reason)
	case strings.Contains(lower, "not found"), strings.Contains(lower, "does not exist"):
		return fmt.Errorf("%s: %w: %s", op, common.ErrRecordNotFound, reason)
	}

	return fmt.Errorf("%s: %w: %s", op, common.ErrLedger, reason)
}

// revertReason returns the decoded Error(string) payload of a reverted call,
// or the error text when there is none.
func revertReason(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason
				}
			}
		}
	}
	return err.Error()
}
