// Package config loads runtime configuration for the chainstash CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables prefixed with CHAINSTASH_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations accept "30s" style strings or integer nanoseconds; sizes accept
// datasize strings such as "100MB":
//
//	{
//	  "contract_address": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
//	  "gateway_url": "https://ipfs.example.org:5001",
//	  "gateway_attempt_timeout": "20s",
//	  "max_file_size": "100MB",
//	  "wallet_mode": "keystore",
//	  "account": "0x..."
//	}
//
// # Environment
//
//	CHAINSTASH_CONTRACT_ADDRESS   ledger contract address
//	CHAINSTASH_IPFS_NODE_URL      IPFS node URL
//	CHAINSTASH_RPC_URL            RPC endpoint of the target chain
//	CHAINSTASH_KEYSTORE_DIR       keystore directory
//	...                           one variable per Config field, see struct tags
package config
