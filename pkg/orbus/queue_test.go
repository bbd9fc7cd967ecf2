package orbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueTakeAndClear(t *testing.T) {
	var q Queue
	q.Append(Message{Group: 1, Command: 1})
	q.AppendMany([]Message{{Group: 1, Command: 2}, {Group: 2, Command: 1}})
	require.Equal(t, 3, q.Len())

	msgs := q.TakeAndClear()
	require.Len(t, msgs, 3)
	require.Equal(t, byte(1), msgs[0].Command)
	require.Equal(t, 0, q.Len())
	require.Empty(t, q.TakeAndClear())

	// appends after a take start the next batch
	q.Append(Message{Group: 3})
	require.Equal(t, 1, q.Len())
}

// Concurrent appends from N producers must all land in one batch, with
// each producer's own order preserved.
func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 100

	var q Queue
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p byte) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Append(Message{Group: p, Command: byte(i)})
			}
		}(byte(p))
	}
	wg.Wait()

	msgs := q.TakeAndClear()
	require.Len(t, msgs, producers*perProducer)

	next := make(map[byte]byte)
	for _, m := range msgs {
		require.Equalf(t, next[m.Group], m.Command, "producer %d out of order", m.Group)
		next[m.Group]++
	}
	for p := byte(0); p < producers; p++ {
		require.Equal(t, byte(perProducer), next[p])
	}
}
