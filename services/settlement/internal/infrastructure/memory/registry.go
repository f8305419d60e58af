package memory

import "context"

// AssetRegistry is a fixed set of quotable assets, usually taken from configuration.
type AssetRegistry struct {
	quotable map[string]bool
}

// NewAssetRegistry creates a registry quoting the given asset ids.
func NewAssetRegistry(assetIDs ...string) *AssetRegistry {
	quotable := make(map[string]bool, len(assetIDs))
	for _, id := range assetIDs {
		quotable[id] = true
	}
	return &AssetRegistry{quotable: quotable}
}

// IsQuotable reports whether assetID is in the set.
func (r *AssetRegistry) IsQuotable(_ context.Context, assetID string) (bool, error) {
	return r.quotable[assetID], nil
}
