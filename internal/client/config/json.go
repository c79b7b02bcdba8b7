package config

import (
	"encoding/json"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/chainstash/internal/flagx"
	"github.com/dmitrijs2005/chainstash/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields let a
// file override only what it mentions.
type JsonConfig struct {
	ContractAddress       *string            `json:"contract_address"`
	GatewayURL            *string            `json:"gateway_url"`
	FallbackGateways      []string           `json:"fallback_gateways"`
	GatewayToken          *string            `json:"gateway_token"`
	GatewayAttemptTimeout *timex.Duration    `json:"gateway_attempt_timeout"`
	AllowDegradedPublish  *bool              `json:"allow_degraded_publish"`
	S3Endpoint            *string            `json:"s3_endpoint"`
	S3Bucket              *string            `json:"s3_bucket"`
	S3Region              *string            `json:"s3_region"`
	RPCURL                *string            `json:"rpc_url"`
	ChainID               *uint64            `json:"chain_id"`
	WalletMode            *string            `json:"wallet_mode"`
	WalletURL             *string            `json:"wallet_url"`
	KeystoreDir           *string            `json:"keystore_dir"`
	Account               *string            `json:"account"`
	DatabasePath          *string            `json:"database_path"`
	MaxFileSize           *datasize.ByteSize `json:"max_file_size"`
	OnlineCheckInterval   *timex.Duration    `json:"online_check_interval"`
	LogLevel              *string            `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config. It panics on
// read or decode errors; a missing flag leaves cfg untouched.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setIf(&cfg.ContractAddress, jc.ContractAddress)
	setIf(&cfg.GatewayURL, jc.GatewayURL)
	if jc.FallbackGateways != nil {
		cfg.FallbackGateways = jc.FallbackGateways
	}
	setIf(&cfg.GatewayToken, jc.GatewayToken)
	if jc.GatewayAttemptTimeout != nil {
		cfg.GatewayAttemptTimeout = jc.GatewayAttemptTimeout.Duration
	}
	setIf(&cfg.AllowDegradedPublish, jc.AllowDegradedPublish)
	setIf(&cfg.S3Endpoint, jc.S3Endpoint)
	setIf(&cfg.S3Bucket, jc.S3Bucket)
	setIf(&cfg.S3Region, jc.S3Region)
	setIf(&cfg.RPCURL, jc.RPCURL)
	setIf(&cfg.ChainID, jc.ChainID)
	setIf(&cfg.WalletMode, jc.WalletMode)
	setIf(&cfg.WalletURL, jc.WalletURL)
	setIf(&cfg.KeystoreDir, jc.KeystoreDir)
	setIf(&cfg.Account, jc.Account)
	setIf(&cfg.DatabasePath, jc.DatabasePath)
	setIf(&cfg.MaxFileSize, jc.MaxFileSize)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	setIf(&cfg.LogLevel, jc.LogLevel)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
