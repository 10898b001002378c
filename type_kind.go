package costbasis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the type of a transaction.
type Kind int

const (
	Buy Kind = iota
	Sell
	Deposit
	Withdrawal
	Reward
	Transfer
	Swap
	Stake
	Unstake
	Fee
	Other
)

// Kinds lists every supported kind, in declaration order.
var Kinds = []Kind{Buy, Sell, Deposit, Withdrawal, Reward, Transfer, Swap, Stake, Unstake, Fee, Other}

func (k Kind) String() string {
	switch k {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Deposit:
		return "DEPOSIT"
	case Withdrawal:
		return "WITHDRAWAL"
	case Reward:
		return "REWARD"
	case Transfer:
		return "TRANSFER"
	case Swap:
		return "SWAP"
	case Stake:
		return "STAKE"
	case Unstake:
		return "UNSTAKE"
	case Fee:
		return "FEE"
	case Other:
		return "OTHER"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name, ignoring case and surrounding spaces.
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Treatment is what the ledger does with an event.
type Treatment int

const (
	// Ignore leaves the ledger untouched (cost-basis neutral).
	Ignore Treatment = iota
	// Acquire opens a lot, or merges into the average cost bucket.
	Acquire
	// Dispose matches the quantity against held lots.
	Dispose
)

func (t Treatment) String() string {
	switch t {
	case Ignore:
		return "ignore"
	case Acquire:
		return "acquire"
	case Dispose:
		return "dispose"
	default:
		return "unknown"
	}
}

// ParseTreatment parses "ignore", "acquire" or "dispose".
func ParseTreatment(s string) (Treatment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return Ignore, nil
	case "acquire":
		return Acquire, nil
	case "dispose":
		return Dispose, nil
	default:
		return Ignore, fmt.Errorf("unknown treatment %q (want ignore, acquire or dispose)", s)
	}
}

// Configurable reports whether the treatment of k can be changed by a
// Classification. BUY, DEPOSIT and REWARD always acquire; SELL and WITHDRAWAL
// always dispose.
func (k Kind) Configurable() bool {
	switch k {
	case Buy, Deposit, Reward, Sell, Withdrawal:
		return false
	case Transfer, Swap, Stake, Unstake, Fee, Other:
		return true
	default:
		return false
	}
}

// defaultTreatment is the mapping table used when no override is configured.
//
//	BUY, DEPOSIT, REWARD       acquire
//	SELL, WITHDRAWAL           dispose
//	TRANSFER, STAKE, UNSTAKE   ignore (moves between the client's own wallets)
//	SWAP                       dispose (the received leg is recorded as its own BUY)
//	FEE                        dispose (fee paid in kind)
//	OTHER                      ignore
func defaultTreatment(k Kind) Treatment {
	switch k {
	case Buy, Deposit, Reward:
		return Acquire
	case Sell, Withdrawal:
		return Dispose
	case Transfer, Stake, Unstake:
		return Ignore
	case Swap:
		return Dispose
	case Fee:
		return Dispose
	case Other:
		return Ignore
	default:
		panic(fmt.Sprintf("no treatment for kind %d", int(k)))
	}
}

// Classification maps each kind to its treatment. The zero value is the
// default table.
type Classification struct {
	overrides map[Kind]Treatment
}

// DefaultClassification returns the default mapping table.
func DefaultClassification() Classification { return Classification{} }

// With returns a copy of c where k is treated as t. Only configurable kinds
// can be overridden.
func (c Classification) With(k Kind, t Treatment) (Classification, error) {
	if !k.Configurable() {
		return c, fmt.Errorf("treatment of %s is fixed to %s", k, defaultTreatment(k))
	}
	overrides := make(map[Kind]Treatment, len(c.overrides)+1)
	for kk, tt := range c.overrides {
		overrides[kk] = tt
	}
	overrides[k] = t
	return Classification{overrides: overrides}, nil
}

// Classify returns the treatment of a kind.
func (c Classification) Classify(k Kind) Treatment {
	if t, ok := c.overrides[k]; ok {
		return t
	}
	return defaultTreatment(k)
}

// String lists the configurable kinds as "KIND=treatment" pairs, in kind order.
func (c Classification) String() string {
	var parts []string
	for _, k := range Kinds {
		if k.Configurable() {
			parts = append(parts, k.String()+"="+c.Classify(k).String())
		}
	}
	return strings.Join(parts, ",")
}

// ParseClassification parses overrides like "TRANSFER=ignore,SWAP=dispose" on
// top of the default table. An empty string is the default table.
func ParseClassification(s string) (Classification, error) {
	c := DefaultClassification()
	s = strings.TrimSpace(s)
	if s == "" {
		return c, nil
	}
	// a kind given twice takes its last value.
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return c, fmt.Errorf("invalid classification %q, want KIND=treatment", pair)
		}
		k, err := ParseKind(name)
		if err != nil {
			return c, err
		}
		t, err := ParseTreatment(value)
		if err != nil {
			return c, err
		}
		if c, err = c.With(k, t); err != nil {
			return c, err
		}
	}
	return c, nil
}
