package config

import (
	"os"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "keystore flags",
			args: []string{"cmd", "-a", "http://127.0.0.1:8545", "-k", "0xabc", "-g", "http://ipfs:5001",
				"-m", "5MB", "-i", "3", "-u", "0xdef", "-l", "debug"},
			expected: &Config{
				RPCURL:              "http://127.0.0.1:8545",
				ContractAddress:     "0xabc",
				GatewayURL:          "http://ipfs:5001",
				MaxFileSize:         5 * datasize.MB,
				OnlineCheckInterval: 3 * time.Second,
				Account:             "0xdef",
				LogLevel:            "debug",
			},
		},
		{
			name: "wallet url switches mode",
			args: []string{"cmd", "-w", "ws://127.0.0.1:8546"},
			expected: &Config{
				WalletURL:  "ws://127.0.0.1:8546",
				WalletMode: WalletModeWS,
			},
		},
		{name: "incorrect check interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
		{name: "incorrect size", args: []string{"cmd", "-m", "huge"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}

			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
