package common

const (
	// MinDurationDays and MaxDurationDays bound the storage duration accepted
	// before any ledger call is made.
	MinDurationDays = 1
	MaxDurationDays = 365

	// SepoliaChainID is the default target chain.
	SepoliaChainID uint64 = 11155111
)

// ValidDuration reports whether days is an accepted storage duration.
func ValidDuration(days int64) bool {
	return days >= MinDurationDays && days <= MaxDurationDays
}
