// Package sink provides the append-only persistence boundary for
// accepted instructions. A sink records what the dispatcher applied,
// in apply order; replaying the record is somebody else's job.
package sink

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnavailable reports a sink that failed to open or write. Sink
// failures never fail the mutation that triggered them.
var ErrUnavailable = errors.New("sink unavailable")

// Sink is an append log of accepted instructions. Open must be called
// before the first Write; Close releases the handle.
type Sink interface {
	Open() error
	Write(kind string, rank int, side string, price, qty float64) error
	Close() error
}

// Line renders one instruction in the audit format,
// kind;rank;side;price;quantity, newline-terminated.
func Line(kind string, rank int, side string, price, qty float64) string {
	return fmt.Sprintf("%s;%d;%s;%s;%s\n",
		kind,
		rank,
		side,
		strconv.FormatFloat(price, 'f', -1, 64),
		strconv.FormatFloat(qty, 'f', -1, 64),
	)
}
