package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthbook/domain/book"
)

func TestValidate(t *testing.T) {
	valid := Instruction{Kind: KindNew, Side: book.Ask, Rank: 1, Price: 1, Quantity: 10}
	assert.NoError(t, valid.Validate())

	cases := map[string]Instruction{
		"zero rank":     {Kind: KindNew, Side: book.Ask, Rank: 0, Price: 1, Quantity: 1},
		"negative rank": {Kind: KindDelete, Side: book.Bid, Rank: -3},
		"bad kind":      {Kind: "cancel", Side: book.Ask, Rank: 1},
		"bad side":      {Kind: KindNew, Side: book.Side(7), Rank: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, in.Validate(), ErrMalformedInstruction)
		})
	}
}

func TestParseLine(t *testing.T) {
	in, err := ParseLine("new;2;ask;1.5;10\n")
	require.NoError(t, err)
	assert.Equal(t, Instruction{
		Kind:     KindNew,
		Side:     book.Ask,
		Rank:     2,
		Price:    1.5,
		Quantity: 10,
	}, in)
}

func TestParseLineRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"",
		"new;2;ask;1.5",
		"new;two;ask;1.5;10",
		"new;2;mid;1.5;10",
		"new;2;ask;cheap;10",
		"new;2;ask;1.5;lots",
		"hold;2;ask;1.5;10",
		"new;0;ask;1.5;10",
	} {
		_, err := ParseLine(line)
		assert.ErrorIs(t, err, ErrMalformedInstruction, "line %q", line)
	}
}
