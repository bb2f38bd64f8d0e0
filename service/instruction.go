package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"depthbook/domain/book"
)

// Kind names the three recognized book operations.
type Kind string

const (
	KindNew    Kind = "new"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ErrMalformedInstruction reports a structurally invalid instruction.
// Such instructions never reach the book.
var ErrMalformedInstruction = errors.New("malformed instruction")

// Instruction is a single immutable book command. Price and Quantity
// are required for new/update and ignored for delete.
type Instruction struct {
	Kind     Kind
	Side     book.Side
	Rank     int
	Price    float64
	Quantity float64
}

// Validate checks instruction shape only. Whether the addressed rank
// exists is the book's call, not ours.
func (in Instruction) Validate() error {
	switch in.Kind {
	case KindNew, KindUpdate, KindDelete:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedInstruction, string(in.Kind))
	}
	switch in.Side {
	case book.Bid, book.Ask:
	default:
		return fmt.Errorf("%w: unknown side %d", ErrMalformedInstruction, int(in.Side))
	}
	if in.Rank < 1 {
		return fmt.Errorf("%w: rank %d must be >= 1", ErrMalformedInstruction, in.Rank)
	}
	return nil
}

// ParseLine decodes one instruction from its audit-line form,
// kind;rank;side;price;quantity. This is the same layout the file
// sink appends, so a sink file can be fed straight back in.
func ParseLine(line string) (Instruction, error) {
	fields := strings.Split(strings.TrimSpace(line), ";")
	if len(fields) != 5 {
		return Instruction{}, fmt.Errorf("%w: want 5 fields, got %d", ErrMalformedInstruction, len(fields))
	}

	rank, err := strconv.Atoi(fields[1])
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: rank %q", ErrMalformedInstruction, fields[1])
	}
	side, err := book.ParseSide(fields[2])
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: %v", ErrMalformedInstruction, err)
	}
	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: price %q", ErrMalformedInstruction, fields[3])
	}
	qty, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: quantity %q", ErrMalformedInstruction, fields[4])
	}

	in := Instruction{
		Kind:     Kind(fields[0]),
		Side:     side,
		Rank:     rank,
		Price:    price,
		Quantity: qty,
	}
	if err := in.Validate(); err != nil {
		return Instruction{}, err
	}
	return in, nil
}
