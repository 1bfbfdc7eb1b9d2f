package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelSinkBuffersInOrder(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(8)
	for i := int64(1); i <= 3; i++ {
		sink.Emit(Event{Seq: i, Kind: KindStatus})
	}

	for i := int64(1); i <= 3; i++ {
		ev := <-sink.Events()
		require.Equal(t, i, ev.Seq)
	}
	require.Zero(t, sink.Dropped())
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(2)
	for i := int64(1); i <= 5; i++ {
		sink.Emit(Event{Seq: i})
	}

	require.Equal(t, int64(3), sink.Dropped())

	// The retained events are the oldest ones; order survives the drops.
	require.Equal(t, int64(1), (<-sink.Events()).Seq)
	require.Equal(t, int64(2), (<-sink.Events()).Seq)
}

func TestChannelSinkDefaultSize(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(0)
	for i := 0; i < 256; i++ {
		sink.Emit(Event{Seq: int64(i)})
	}
	require.Zero(t, sink.Dropped())
	sink.Emit(Event{Seq: 256})
	require.Equal(t, int64(1), sink.Dropped())
}

func TestCollectorSinkRecordsAndCounts(t *testing.T) {
	t.Parallel()

	sink := NewCollectorSink()
	sink.Emit(Event{Seq: 1, Kind: KindStatus})
	sink.Emit(Event{Seq: 2, Kind: KindAgentMessage})
	sink.Emit(Event{Seq: 3, Kind: KindAgentMessage})

	require.Equal(t, []Kind{KindStatus, KindAgentMessage, KindAgentMessage}, sink.Kinds())
	require.Equal(t, 2, sink.Count(KindAgentMessage))
	require.Equal(t, 0, sink.Count(KindError))
	require.Len(t, sink.Events(), 3)
}

func TestCollectorSinkWaitFor(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sink := NewCollectorSink()
	go func() {
		time.Sleep(20 * time.Millisecond)
		sink.Emit(Event{Seq: 1, Kind: KindStatus})
		sink.Emit(Event{Seq: 2, Kind: KindPublished})
	}()

	ev, err := sink.WaitFor(ctx, KindPublished)
	require.NoError(t, err)
	require.Equal(t, int64(2), ev.Seq)

	// Already-collected events resolve immediately.
	ev, err = sink.WaitFor(ctx, KindStatus)
	require.NoError(t, err)
	require.Equal(t, int64(1), ev.Seq)
}

func TestCollectorSinkWaitForTimesOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	sink := NewCollectorSink()
	_, err := sink.WaitFor(ctx, KindPublished)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
