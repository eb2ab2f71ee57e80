package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/creditkit/pkg/ledger"
)

func TestPricing_CostOf(t *testing.T) {
	t.Parallel()

	pricing := ledger.NewPricing(5,
		ledger.WithOperationCost("image_generation", 50),
		ledger.WithOperationCost("text_completion", 2),
	)

	assert.EqualValues(t, 50, pricing.CostOf("image_generation"))
	assert.EqualValues(t, 2, pricing.CostOf("text_completion"))
	assert.EqualValues(t, 5, pricing.CostOf("anything_else"), "fallback default price")
}

func TestPricing_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { ledger.NewPricing(0) })
	assert.Panics(t, func() { ledger.WithOperationCost("op", -1) })
}
