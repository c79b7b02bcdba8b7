// Package gateway publishes files to the content-addressed storage network.
//
// A Publisher walks an ordered list of Strategy values (Kubo-compatible HTTP
// nodes, optionally an S3-compatible pinning bucket) and uses the first
// content id returned. When every strategy fails it can synthesize a
// deterministic placeholder id; such publications are flagged Degraded.
package gateway

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/ipfs/go-cid"
)

// Strategy is one way of publishing a file.
type Strategy interface {
	// Name identifies the endpoint in logs and journal entries.
	Name() string

	// Publish uploads src and returns its content id.
	Publish(ctx context.Context, src models.FileSource) (string, error)
}

// ValidateCID reports whether s parses as a content identifier.
func ValidateCID(s string) error {
	if _, err := cid.Decode(s); err != nil {
		return fmt.Errorf("invalid content id %q: %w", s, err)
	}
	return nil
}
