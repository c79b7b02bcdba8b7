package config

import "github.com/kelseyhightower/envconfig"

// EnvPrefix prefixes every environment variable, e.g. CHAINSTASH_CONTRACT_ADDRESS.
const EnvPrefix = "chainstash"

// parseEnv overlays cfg with CHAINSTASH_* variables. Unset variables leave
// the current value alone. Panics on malformed values.
func parseEnv(cfg *Config) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		panic(err)
	}
}
