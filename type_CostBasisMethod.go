package costbasis

import (
	"encoding/json"
	"fmt"
)

// CostBasisMethod defines the method for matching disposals against acquisitions.
type CostBasisMethod int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO CostBasisMethod = iota
	// LIFO (Last-In, First-Out) consumes the most recent lots first.
	LIFO
	// AverageCost keeps a single weighted average bucket per asset.
	AverageCost
)

func (m CostBasisMethod) String() string {
	switch m {
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	case AverageCost:
		return "AVERAGE_COST"
	default:
		return "unknown"
	}
}

// usesLots reports whether the method tracks discrete lots.
func (m CostBasisMethod) usesLots() bool { return m == FIFO || m == LIFO }

// ParseCostBasisMethod parses a method name. Names are case-sensitive: only
// "FIFO", "LIFO" and "AVERAGE_COST" are accepted.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "FIFO":
		return FIFO, nil
	case "LIFO":
		return LIFO, nil
	case "AVERAGE_COST":
		return AverageCost, nil
	default:
		return 0, fmt.Errorf("%w: %q (want FIFO, LIFO or AVERAGE_COST)", ErrUnknownMethod, s)
	}
}

func (m CostBasisMethod) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *CostBasisMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseCostBasisMethod(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
