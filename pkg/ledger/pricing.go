package ledger

// Pricing maps operation names to their credit cost, with a fallback default
// for operations that have no explicit price.
type Pricing struct {
	costs       map[string]int64
	defaultCost int64
}

// PricingOption configures a Pricing table.
type PricingOption func(*Pricing)

// WithOperationCost sets the credit cost for a named operation.
// Panics on non-positive cost to catch configuration errors at startup.
func WithOperationCost(operation string, cost int64) PricingOption {
	if cost <= 0 {
		panic("ledger: operation cost must be positive")
	}
	return func(p *Pricing) { p.costs[operation] = cost }
}

// NewPricing creates a price table with the given fallback cost.
// Panics on non-positive defaultCost to fail fast during initialization.
func NewPricing(defaultCost int64, opts ...PricingOption) *Pricing {
	if defaultCost <= 0 {
		panic("ledger: default cost must be positive")
	}
	p := &Pricing{
		costs:       make(map[string]int64),
		defaultCost: defaultCost,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CostOf returns the credit cost of an operation, falling back to the
// default price for unknown operations.
func (p *Pricing) CostOf(operation string) int64 {
	if cost, ok := p.costs[operation]; ok {
		return cost
	}
	return p.defaultCost
}
