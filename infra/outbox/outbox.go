// Package outbox keeps a durable record of accepted instructions that
// still need to be broadcast downstream. Each entry is keyed by the
// dispatcher's sequence number and carries a delivery state, so a
// crash between apply and publish loses nothing.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Entry --------------------

// Entry is one pending broadcast.
type Entry struct {
	State       State
	Attempts    uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][attempts:4][lastAttempt:8][payload]
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 1+4+8+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Attempts)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[13:], e.Payload)
	return buf
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < 13 {
		return Entry{}, errors.New("outbox: entry too short")
	}
	return Entry{
		State:       State(b[0]),
		Attempts:    binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[13:]...),
	}, nil
}

// -------------------- Outbox --------------------

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // entries must survive a crash
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// PutNew records a freshly accepted instruction, called by the
// dispatcher on the apply path.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	e := Entry{
		State:   StateNew,
		Payload: payload,
	}
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

// SetState advances an entry's delivery state, bumping its attempt
// counter.
func (o *Outbox) SetState(seq uint64, state State) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = state
	e.Attempts++
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

// Delete removes an entry, used to clean up acked broadcasts.
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// Get returns the entry for a sequence number.
func (o *Outbox) Get(seq uint64) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()

	return decodeEntry(val)
}

// -------------------- Scan --------------------

// ScanByState visits all entries in the given state, in sequence
// order. This is the broadcaster's work queue.
func (o *Outbox) ScanByState(state State, fn func(seq uint64, e Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("instr/"),
		UpperBound: []byte("instr/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		if e.State != state {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("instr/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(string(b), "instr/"), 10, 64)
}
