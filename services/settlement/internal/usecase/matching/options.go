package matching

// MarketRemainderPolicy decides what happens to the unfilled part of an
// incoming market order once no candidate is left.
type MarketRemainderPolicy string

const (
	// RemainderCancel cancels the remainder so market orders never rest.
	RemainderCancel MarketRemainderPolicy = "cancel"
	// RemainderKeep leaves the remainder open; later limit orders may take it.
	RemainderKeep MarketRemainderPolicy = "keep"
)

// Options represents configuration options for the matching usecase.
type Options struct {
	MarketRemainder MarketRemainderPolicy
	// ListLimit caps ListUserOrders when the query has no limit.
	ListLimit int
}

// DefaultOptions returns the default matching options.
func DefaultOptions() *Options {
	return &Options{
		MarketRemainder: RemainderCancel,
		ListLimit:       100,
	}
}
