package wallet

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChainParams describes the chain the client must operate on. It is also the
// payload used to register the chain with a wallet that does not know it.
type ChainParams struct {
	ChainID        uint64
	ChainName      string
	CurrencyName   string
	CurrencySymbol string
	Decimals       int
	RPCURL         string
	ExplorerURL    string
}

// Sepolia returns the parameters of the Sepolia test network.
func Sepolia() ChainParams {
	return ChainParams{
		ChainID:        common.SepoliaChainID,
		ChainName:      "Sepolia Test Network",
		CurrencyName:   "Sepolia ETH",
		CurrencySymbol: "ETH",
		Decimals:       18,
		RPCURL:         "https://rpc.sepolia.org",
		ExplorerURL:    "https://sepolia.etherscan.io/",
	}
}

// HexChainID is the chain id in the 0x-prefixed form wallets exchange.
func (p ChainParams) HexChainID() string {
	return hexutil.EncodeUint64(p.ChainID)
}

type switchChainParam struct {
	ChainID string `json:"chainId"`
}

type nativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type addChainParam struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    nativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

func (p ChainParams) switchParam() switchChainParam {
	return switchChainParam{ChainID: p.HexChainID()}
}

func (p ChainParams) addParam() addChainParam {
	ap := addChainParam{
		ChainID:   p.HexChainID(),
		ChainName: p.ChainName,
		NativeCurrency: nativeCurrency{
			Name:     p.CurrencyName,
			Symbol:   p.CurrencySymbol,
			Decimals: p.Decimals,
		},
		RPCURLs: []string{p.RPCURL},
	}
	if p.ExplorerURL != "" {
		ap.BlockExplorerURLs = []string{p.ExplorerURL}
	}
	return ap
}

// decodeChainID parses a chain id result, either "0xaa36a7" or a bare number.
func decodeChainID(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		id, err := hexutil.DecodeUint64(s)
		if err != nil {
			return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
		}
		return id, nil
	}

	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("invalid chain id %s: %w", string(raw), err)
	}
	return n, nil
}
