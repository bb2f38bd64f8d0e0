package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkAppendsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "instructions.log")
	s := NewFileSink(path)
	require.NoError(t, s.Open())

	require.NoError(t, s.Write("new", 1, "ask", 1, 10))
	require.NoError(t, s.Write("new", 2, "bid", 2.5, 20))
	require.NoError(t, s.Write("delete", 1, "ask", 0, 0))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"new;1;ask;1;10\nnew;2;bid;2.5;20\ndelete;1;ask;0;0\n",
		string(data),
	)
}

func TestFileSinkReopensForAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.log")

	s := NewFileSink(path)
	require.NoError(t, s.Open())
	require.NoError(t, s.Write("new", 1, "bid", 1, 1))
	require.NoError(t, s.Close())

	s = NewFileSink(path)
	require.NoError(t, s.Open())
	require.NoError(t, s.Write("new", 2, "bid", 2, 2))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new;1;bid;1;1\nnew;2;bid;2;2\n", string(data))
}

func TestFileSinkWriteBeforeOpen(t *testing.T) {
	s := NewFileSink(filepath.Join(t.TempDir(), "x.log"))
	assert.ErrorIs(t, s.Write("new", 1, "bid", 1, 1), ErrUnavailable)
}

func TestFileSinkOpenFailure(t *testing.T) {
	// The sink path is a directory, open must fail.
	s := NewFileSink(t.TempDir())
	assert.ErrorIs(t, s.Open(), ErrUnavailable)
}

func TestLineFormat(t *testing.T) {
	assert.Equal(t, "update;3;bid;1.25;100\n", Line("update", 3, "bid", 1.25, 100))
	assert.Equal(t, "delete;1;ask;0;0\n", Line("delete", 1, "ask", 0, 0))
}
