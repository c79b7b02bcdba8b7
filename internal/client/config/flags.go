package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   RPC endpoint of the target chain
//	-k string   ledger contract address
//	-g string   IPFS node URL
//	-w string   wallet bridge websocket URL (switches wallet mode to ws)
//	-s string   keystore directory
//	-u string   account to use from the keystore
//	-d string   journal database path
//	-m string   max file size, e.g. 100MB
//	-i int      online check interval (seconds)
//	-l string   log level
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-g", "-w", "-s", "-u", "-d", "-m", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RPCURL, "a", cfg.RPCURL, "RPC endpoint of the target chain")
	fs.StringVar(&cfg.ContractAddress, "k", cfg.ContractAddress, "ledger contract address")
	fs.StringVar(&cfg.GatewayURL, "g", cfg.GatewayURL, "IPFS node URL")
	walletURL := fs.String("w", cfg.WalletURL, "wallet bridge websocket URL")
	fs.StringVar(&cfg.KeystoreDir, "s", cfg.KeystoreDir, "keystore directory")
	fs.StringVar(&cfg.Account, "u", cfg.Account, "account address")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "journal database path")
	fs.TextVar(&cfg.MaxFileSize, "m", cfg.MaxFileSize, "max file size")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *walletURL != cfg.WalletURL {
		cfg.WalletURL = *walletURL
		cfg.WalletMode = WalletModeWS
	}
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
