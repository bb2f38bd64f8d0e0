package book

import "errors"

// ErrPriceLevelNotExist reports an update or delete addressed to a
// rank beyond the current length of the targeted side.
var ErrPriceLevelNotExist = errors.New("price level does not exist")

// Book maintains two rank-indexed sequences of price levels and
// answers depth-bounded pairwise snapshots. Implementations are
// selected at construction time; callers hold the interface.
type Book interface {
	Insert(side Side, rank int, price, qty float64)
	Update(side Side, rank int, price, qty float64) error
	Delete(side Side, rank int) error
	Pair(depth int) []DepthRow
}

// LevelBook is the slice-backed Book. Ranks are 1-based and dense: any
// rank between 1 and the side's length is materialized, with sentinel
// levels standing in where no real order has been placed yet.
//
// LevelBook is single-writer and deterministic. Serialization is the
// caller's job (see service.Dispatcher).
type LevelBook struct {
	bids []PriceLevel
	asks []PriceLevel
}

func NewLevelBook() *LevelBook {
	return &LevelBook{}
}

func (b *LevelBook) levels(s Side) *[]PriceLevel {
	if s == Ask {
		return &b.asks
	}
	return &b.bids
}

// Len returns the current length of one side's sequence, sentinel
// levels included.
func (b *LevelBook) Len(s Side) int {
	return len(*b.levels(s))
}

// Insert places a new level so that it now occupies rank, pushing the
// current occupant and everything behind it one rank back. A rank past
// length+1 first pads the gap with sentinel levels, then appends.
// Insert never fails for rank >= 1; rank below 1 panics.
func (b *LevelBook) Insert(side Side, rank int, price, qty float64) {
	if rank < 1 {
		panic("book: rank must be >= 1")
	}
	seq := b.levels(side)
	lvl := PriceLevel{Price: price, Quantity: qty}

	if rank > len(*seq) {
		for len(*seq) < rank-1 {
			*seq = append(*seq, PriceLevel{})
		}
		*seq = append(*seq, lvl)
		return
	}

	*seq = append(*seq, PriceLevel{})
	copy((*seq)[rank:], (*seq)[rank-1:])
	(*seq)[rank-1] = lvl
}

// Update replaces the price and quantity of the level currently
// occupying rank. Length and all other ranks are untouched. Updating a
// sentinel level is legal: it is how a gap-padded rank gets filled in.
func (b *LevelBook) Update(side Side, rank int, price, qty float64) error {
	seq := b.levels(side)
	if rank < 1 || rank > len(*seq) {
		return ErrPriceLevelNotExist
	}
	(*seq)[rank-1] = PriceLevel{Price: price, Quantity: qty}
	return nil
}

// Delete removes the level currently occupying rank, pulling everything
// behind it one rank forward.
func (b *LevelBook) Delete(side Side, rank int) error {
	seq := b.levels(side)
	if rank < 1 || rank > len(*seq) {
		return ErrPriceLevelNotExist
	}
	*seq = append((*seq)[:rank-1], (*seq)[rank:]...)
	return nil
}

// Pair returns exactly depth rows, pairing the bid and ask levels at
// each rank from 1 to depth. Ranks past either side's length report
// the sentinel for that side. Pair never mutates the book.
func (b *LevelBook) Pair(depth int) []DepthRow {
	if depth < 1 {
		return nil
	}
	rows := make([]DepthRow, depth)
	for i := 0; i < depth; i++ {
		if i < len(b.bids) {
			rows[i].Bid = b.bids[i]
		}
		if i < len(b.asks) {
			rows[i].Ask = b.asks[i]
		}
	}
	return rows
}
