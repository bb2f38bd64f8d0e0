package broadcaster

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthbook/infra/outbox"
)

func newTestBroadcaster(t *testing.T, producer sarama.SyncProducer) *Broadcaster {
	t.Helper()
	box, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = box.Close() })
	return newWithProducer(box, producer, "depthbook.test", time.Second, nil)
}

func TestDrainPublishesAndAcks(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		assert.Equal(t, "new;1;ask;1;10\n", string(val))
		return nil
	})

	b := newTestBroadcaster(t, producer)
	require.NoError(t, b.box.PutNew(1, []byte("new;1;ask;1;10\n")))

	b.drainOnce()

	e, err := b.box.Get(1)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateAcked, e.State)

	b.cleanupOnce()
	_, err = b.box.Get(1)
	assert.Error(t, err, "acked entry must be cleaned up")

	require.NoError(t, b.Close())
}

func TestFailedPublishIsRetriedNextTick(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndSucceed()

	b := newTestBroadcaster(t, producer)
	require.NoError(t, b.box.PutNew(7, []byte("delete;1;bid;0;0\n")))

	// First tick: publish fails, entry stays pending.
	b.drainOnce()
	e, err := b.box.Get(7)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateSent, e.State)
	assert.EqualValues(t, 1, e.Attempts)

	b.cleanupOnce()
	_, err = b.box.Get(7)
	require.NoError(t, err, "unacked entry must survive cleanup")

	// Second tick: the SENT entry is picked up again and acked.
	b.drainOnce()
	e, err = b.box.Get(7)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateAcked, e.State)

	require.NoError(t, b.Close())
}

func TestDrainPreservesSequenceOrder(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)

	var published []string
	for i := 0; i < 3; i++ {
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			published = append(published, string(val))
			return nil
		})
	}

	b := newTestBroadcaster(t, producer)
	require.NoError(t, b.box.PutNew(3, []byte("c")))
	require.NoError(t, b.box.PutNew(1, []byte("a")))
	require.NoError(t, b.box.PutNew(2, []byte("b")))

	b.drainOnce()

	assert.Equal(t, []string{"a", "b", "c"}, published)
	require.NoError(t, b.Close())
}

func TestCleanupRemovesOnlyAcked(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	b := newTestBroadcaster(t, producer)

	require.NoError(t, b.box.PutNew(1, []byte("x")))
	require.NoError(t, b.box.PutNew(2, []byte("y")))
	require.NoError(t, b.box.SetState(2, outbox.StateAcked))

	b.cleanupOnce()

	_, err := b.box.Get(1)
	require.NoError(t, err)
	_, err = b.box.Get(2)
	assert.Error(t, err)

	require.NoError(t, b.Close())
}
