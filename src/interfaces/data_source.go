package interfaces

import (
	"context"
)

// -----------------------------------------------------------------------------
// IFeedProvider interface for fetching raw records from external feeds.
// -----------------------------------------------------------------------------

type IFeedProvider interface {

	// Name returns the unique identifier of the feed (the source id stamped
	// on every observation normalized from it).
	Name() string

	// -----------------------------------------------------------------------------

	// Tier returns the source tier: "official", "api", "panel" or "scrape".
	Tier() string

	// -----------------------------------------------------------------------------

	// Fetch retrieves today's raw records. Records are free-form key/value
	// maps; the normalizer resolves them against the source schema hints.
	// ctx: controls the lifecycle (cancellation aborts the fetch)
	Fetch(ctx context.Context) ([]map[string]interface{}, error)
}
