package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/chainstash/internal/common"
	gethcommon "github.com/ethereum/go-ethereum/common"
)

var errKeystoreOnly = errors.New("accounts are managed by the connected wallet")

func (a *App) isConnected() bool {
	return a.session.Snapshot().Connected()
}

func (a *App) getStatus() string {
	var parts []string

	snap := a.session.Snapshot()
	if snap.Connected() {
		parts = append(parts, shortAddress(snap.Account))
		if snap.WrongNetwork {
			parts = append(parts, "wrong network")
		}
	}
	if mode := a.Mode(); mode != "" {
		parts = append(parts, string(mode))
	}

	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Connect requests wallet access and moves the wallet to the configured chain.
func (a *App) Connect(ctx context.Context) error {
	snap, err := a.session.Connect(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUserRejected) {
			a.println("Connection request was rejected in the wallet")
		}
		return err
	}

	a.println("Connected as", snap.Account.Hex(), "on", a.session.Chain().ChainName)
	return nil
}

func (a *App) Disconnect(ctx context.Context) error {
	if !a.isConnected() {
		a.println("Not connected")
		return nil
	}
	a.session.Disconnect()
	return nil
}

// Status prints the wallet session, the chain endpoint and publishing setup.
func (a *App) Status(ctx context.Context) error {
	snap := a.session.Snapshot()
	chain := a.session.Chain()

	a.println("Wallet:  ", snap.State.String())
	if snap.Connected() {
		a.println("Account: ", snap.Account.Hex())
		network := fmt.Sprintf("%s (chain %d)", chain.ChainName, snap.ChainID)
		if snap.WrongNetwork {
			network = fmt.Sprintf("chain %d, expected %s (chain %d)", snap.ChainID, chain.ChainName, chain.ChainID)
		}
		a.println("Network: ", network)
	}

	mode := a.Mode()
	if mode == "" {
		mode = "unknown"
	}
	a.println("RPC:     ", a.config.RPCURL, "("+string(mode)+")")

	contract := a.config.ContractAddress
	if contract == "" {
		contract = "not configured"
	}
	a.println("Contract:", contract)

	if len(a.endpoints) == 0 {
		a.println("Gateway:  not configured")
	} else {
		a.println("Gateway: ", strings.Join(a.endpoints, ", "))
	}

	if f, ok := a.registration.Pending(); ok {
		a.println("Selected:", f.Path, fmt.Sprintf("(%d bytes)", f.Size))
	}
	return nil
}

// Account lists keystore accounts, switches to one, or creates a new one.
func (a *App) Account(ctx context.Context, args []string) error {
	if a.keystore == nil {
		return errKeystoreOnly
	}

	if len(args) == 0 {
		active, _ := a.session.ActiveAccount()
		accounts := a.keystore.Accounts()
		if len(accounts) == 0 {
			a.println("Keystore is empty, create an account with 'account new'")
			return nil
		}
		for _, acc := range accounts {
			marker := " "
			if acc == active {
				marker = "*"
			}
			a.println(marker, acc.Hex())
		}
		return nil
	}

	if args[0] == "new" {
		pass, err := GetPassword("New passphrase", a.out)
		if err != nil {
			return err
		}
		addr, err := a.keystore.NewAccount(string(pass))
		if err != nil {
			return err
		}
		a.println("Created account", addr.Hex())
		return nil
	}

	if !gethcommon.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid address %q", args[0])
	}
	addr := gethcommon.HexToAddress(args[0])
	if err := a.keystore.SelectAccount(addr); err != nil {
		return err
	}
	if !a.isConnected() {
		a.println("Selected", addr.Hex(), "(connect to use it)")
	}
	return nil
}

func shortAddress(addr gethcommon.Address) string {
	h := addr.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
