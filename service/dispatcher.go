package service

import (
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"depthbook/domain/book"
	"depthbook/infra/outbox"
	"depthbook/infra/sequence"
	"depthbook/infra/sink"
)

/*
Dispatcher is the ONLY entry point into a book.

One worker goroutine owns the book exclusively and drains a request
mailbox, so every mutation and every snapshot runs to completion before
the next begins. The book itself never crosses a goroutine boundary.
*/

const (
	stateUninitialized int32 = iota
	stateReady
	stateClosed
)

// ErrDispatcherClosed reports a call after Close (or before Start).
var ErrDispatcherClosed = errors.New("dispatcher is not ready")

type request struct {
	in    Instruction
	depth int
	query bool
	reply chan response
}

type response struct {
	rows []book.DepthRow
	err  error
}

type Dispatcher struct {
	book book.Book
	seq  *sequence.Sequencer
	snk  sink.Sink      // optional, best-effort
	box  *outbox.Outbox // optional, best-effort
	log  logrus.FieldLogger

	state atomic.Int32
	reqs  chan request
	quit  chan struct{}
	done  chan struct{}
}

// NewDispatcher wires all dependencies. The sink and outbox may be nil;
// persistence is best-effort either way.
func NewDispatcher(
	b book.Book,
	snk sink.Sink,
	box *outbox.Outbox,
	log logrus.FieldLogger,
) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		book: b,
		seq:  sequence.New(0),
		snk:  snk,
		box:  box,
		log:  log,
		reqs: make(chan request),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start opens the sink and launches the worker. A sink that fails to
// open is logged and dropped; the dispatcher still comes up, the book
// being the source of truth for the process lifetime.
func (d *Dispatcher) Start() error {
	if !d.state.CompareAndSwap(stateUninitialized, stateReady) {
		return ErrDispatcherClosed
	}
	if d.snk != nil {
		if err := d.snk.Open(); err != nil {
			d.log.WithError(err).Warn("sink open failed, persistence disabled")
			d.snk = nil
		}
	}
	go d.loop()
	return nil
}

// Close stops the worker and releases the sink. Callers racing with
// Close get ErrDispatcherClosed instead of blocking on a dead mailbox.
func (d *Dispatcher) Close() error {
	if !d.state.CompareAndSwap(stateReady, stateClosed) {
		return ErrDispatcherClosed
	}
	close(d.quit)
	<-d.done
	if d.snk != nil {
		return d.snk.Close()
	}
	return nil
}

// Apply submits one instruction and waits for its result. Book-level
// failures come back as typed errors and leave the book untouched.
func (d *Dispatcher) Apply(in Instruction) error {
	if d.state.Load() != stateReady {
		return ErrDispatcherClosed
	}
	reply := make(chan response, 1)
	select {
	case d.reqs <- request{in: in, reply: reply}:
		return (<-reply).err
	case <-d.done:
		return ErrDispatcherClosed
	}
}

// Snapshot returns exactly depth paired rows. It is serialized behind
// the same mailbox as mutations, so it never observes a half-applied
// instruction.
func (d *Dispatcher) Snapshot(depth int) ([]book.DepthRow, error) {
	if d.state.Load() != stateReady {
		return nil, ErrDispatcherClosed
	}
	if depth < 1 {
		return nil, errors.New("depth must be >= 1")
	}
	reply := make(chan response, 1)
	select {
	case d.reqs <- request{depth: depth, query: true, reply: reply}:
		resp := <-reply
		return resp.rows, resp.err
	case <-d.done:
		return nil, ErrDispatcherClosed
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case req := <-d.reqs:
			if req.query {
				req.reply <- response{rows: d.book.Pair(req.depth)}
				continue
			}
			req.reply <- response{err: d.apply(req.in)}
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) apply(in Instruction) error {
	if err := in.Validate(); err != nil {
		return err
	}

	// Mirror the accepted instruction before mutating. Persistence is
	// fire-and-forget relative to book correctness.
	d.persist(in)

	switch in.Kind {
	case KindNew:
		d.book.Insert(in.Side, in.Rank, in.Price, in.Quantity)
		return nil
	case KindUpdate:
		return d.book.Update(in.Side, in.Rank, in.Price, in.Quantity)
	default:
		return d.book.Delete(in.Side, in.Rank)
	}
}

func (d *Dispatcher) persist(in Instruction) {
	seq := d.seq.Next()

	if d.snk != nil {
		err := d.snk.Write(string(in.Kind), in.Rank, in.Side.String(), in.Price, in.Quantity)
		if err != nil {
			d.log.WithError(err).WithField("seq", seq).Warn("sink write failed")
		}
	}

	if d.box != nil {
		line := sink.Line(string(in.Kind), in.Rank, in.Side.String(), in.Price, in.Quantity)
		if err := d.box.PutNew(seq, []byte(line)); err != nil {
			d.log.WithError(err).WithField("seq", seq).Warn("outbox put failed")
		}
	}
}

// Seq returns the last issued sequence number.
func (d *Dispatcher) Seq() uint64 {
	return d.seq.Current()
}
