package config

import (
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/chainstash/internal/common"
)

// Wallet modes.
const (
	WalletModeKeystore = "keystore"
	WalletModeWS       = "ws"
)

// Config holds runtime settings for the chainstash CLI.
//
// ContractAddress and GatewayURL have no defaults: workflows that need them
// fail with common.ErrMissingConfiguration until they are set.
type Config struct {
	ContractAddress string `envconfig:"CONTRACT_ADDRESS"`

	GatewayURL            string        `envconfig:"IPFS_NODE_URL"`
	FallbackGateways      []string      `envconfig:"FALLBACK_GATEWAYS"`
	GatewayToken          string        `envconfig:"GATEWAY_TOKEN"`
	GatewayAttemptTimeout time.Duration `envconfig:"GATEWAY_ATTEMPT_TIMEOUT"`
	AllowDegradedPublish  bool          `envconfig:"ALLOW_DEGRADED_PUBLISH"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	RPCURL         string `envconfig:"RPC_URL"`
	ChainID        uint64 `envconfig:"CHAIN_ID"`
	ChainName      string `envconfig:"CHAIN_NAME"`
	CurrencyName   string `envconfig:"CURRENCY_NAME"`
	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL"`
	ExplorerURL    string `envconfig:"EXPLORER_URL"`

	WalletMode  string `envconfig:"WALLET_MODE"`
	WalletURL   string `envconfig:"WALLET_URL"`
	KeystoreDir string `envconfig:"KEYSTORE_DIR"`
	Account     string `envconfig:"ACCOUNT"`

	DatabasePath        string            `envconfig:"DATABASE_PATH"`
	MaxFileSize         datasize.ByteSize `envconfig:"MAX_FILE_SIZE"`
	OnlineCheckInterval time.Duration     `envconfig:"ONLINE_CHECK_INTERVAL"`
	LogLevel            string            `envconfig:"LOG_LEVEL"`
}

// LoadDefaults populates c with defaults targeting Sepolia and a local IPFS node.
func (c *Config) LoadDefaults() {
	c.FallbackGateways = []string{"http://localhost:5001", "http://127.0.0.1:5001"}
	c.GatewayAttemptTimeout = 30 * time.Second
	c.AllowDegradedPublish = true

	c.S3Region = "us-east-1"

	c.RPCURL = "https://rpc.sepolia.org"
	c.ChainID = common.SepoliaChainID
	c.ChainName = "Sepolia Test Network"
	c.CurrencyName = "Sepolia ETH"
	c.CurrencySymbol = "ETH"
	c.ExplorerURL = "https://sepolia.etherscan.io/"

	c.WalletMode = WalletModeKeystore
	c.KeystoreDir = "~/.chainstash/keystore"

	c.DatabasePath = "~/.chainstash/journal.db"
	c.MaxFileSize = 100 * datasize.MB
	c.OnlineCheckInterval = 10 * time.Second
	c.LogLevel = "info"
}

// S3Enabled reports whether an S3-compatible pinning bucket is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
