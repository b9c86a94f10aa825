// Package rates derives conversion payables from a trader rate.
//
// The policy is a closed table keyed by the ordered currency pair. A pair
// that is not in the table has no payable; the caller must ask for a
// manually entered amount instead of guessing a direction.
package rates

import (
	"fmt"
	"sort"
	"strings"

	"exchange-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Operation tells how the trader rate is applied to the amount.
type Operation string

const (
	Multiply Operation = "multiply"
	Divide   Operation = "divide"
)

// Pair is an ordered base->target currency pair.
type Pair struct {
	Base   string
	Target string
}

// String renders the pair as BASE->TARGET.
func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.Base, p.Target)
}

// NewPair builds a pair from currency codes, case-insensitively.
func NewPair(base, target string) Pair {
	return Pair{
		Base:   strings.ToUpper(strings.TrimSpace(base)),
		Target: strings.ToUpper(strings.TrimSpace(target)),
	}
}

// Policy maps supported pairs to their operation.
type Policy map[Pair]Operation

// DefaultPolicy returns the supported pairs.
func DefaultPolicy() Policy {
	return Policy{
		{Base: "RMB", Target: "IRR"}: Multiply,
		{Base: "USD", Target: "IRR"}: Multiply,
		{Base: "USD", Target: "AED"}: Multiply,
		{Base: "RMB", Target: "AED"}: Divide,
		{Base: "RMB", Target: "USD"}: Divide,
	}
}

// Calculator applies a Policy.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a Calculator. A nil policy uses DefaultPolicy.
func NewCalculator(policy Policy) *Calculator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Calculator{policy: policy}
}

// Supports reports whether the pair has a policy entry.
func (c *Calculator) Supports(base, target string) bool {
	_, ok := c.policy[NewPair(base, target)]
	return ok
}

// Pairs lists the supported pairs in a stable order.
func (c *Calculator) Pairs() []Pair {
	pairs := make([]Pair, 0, len(c.policy))
	for p := range c.policy {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].String() < pairs[j].String()
	})
	return pairs
}

// ComputePayable returns amount*rate or amount/rate according to the pair's
// policy. It is null when either input is null, the pair is unsupported, or
// a divide policy meets a zero rate.
func (c *Calculator) ComputePayable(base, target string, amount, rate decimal.NullDecimal) decimal.NullDecimal {
	if !amount.Valid || !rate.Valid {
		return models.Null()
	}

	op, ok := c.policy[NewPair(base, target)]
	if !ok {
		return models.Null()
	}

	switch op {
	case Multiply:
		return models.Valid(amount.Decimal.Mul(rate.Decimal))
	case Divide:
		if rate.Decimal.IsZero() {
			return models.Null()
		}
		return models.Valid(amount.Decimal.Div(rate.Decimal))
	default:
		return models.Null()
	}
}
