package assetv1

import (
	"context"
	"time"
)

// Asset is an asset listed on the platform.
type Asset struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Quotable   bool       `json:"quotable"`
	DelistedAt *time.Time `json:"delistedAt,omitempty"`
}

// IsQuotable reports whether orders may be priced in the asset.
func (a *Asset) IsQuotable() bool {
	return a.Quotable && a.DelistedAt == nil
}

// Registry supplies the set of assets eligible as quote asset.
//
//go:generate mockgen -source asset.go -destination=mock/asset_mock.go -package=assetv1_mock
type Registry interface {
	IsQuotable(ctx context.Context, assetID string) (bool, error)
}
