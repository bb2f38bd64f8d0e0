package book

import "fmt"

// Side selects one of the two independently ranked sequences.
// Ranks on one side never affect the other.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// ParseSide maps the wire spelling of a side to its domain value.
func ParseSide(s string) (Side, error) {
	switch s {
	case "bid":
		return Bid, nil
	case "ask":
		return Ask, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// PriceLevel is the displayed state of a single rank. The zero value
// is the sentinel: no real order rests at this rank yet. Zero is not a
// valid price or quantity in this domain, so it doubles as absence.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// Zero reports whether the level is the sentinel.
func (p PriceLevel) Zero() bool {
	return p.Price == 0 && p.Quantity == 0
}

// DepthRow pairs the bid and ask levels occupying one rank.
type DepthRow struct {
	Bid PriceLevel
	Ask PriceLevel
}
