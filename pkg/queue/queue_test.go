package queue_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/pkg/queue"
)

func TestPushPopOrder(t *testing.T) {
	q := queue.New[int](4)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)

	require.Equal(t, 1, q.Len())
}

func TestCapacityRoundsToPowerOfTwo(t *testing.T) {
	q := queue.New[int](5)
	require.Equal(t, 8, q.Cap())
}

func TestEmptyPopReturnsFalse(t *testing.T) {
	q := queue.New[int](2)
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestReserveOnFullQueuePanics(t *testing.T) {
	q := queue.New[int](2)
	q.Push(1)
	q.Push(2)
	require.True(t, q.Full())
	require.Panics(t, func() { q.Reserve() })
}

func TestWrapAround(t *testing.T) {
	q := queue.New[int](2)
	for i := 0; i < 100; i++ {
		q.Push(i)
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

// TestSingleProducerSingleConsumer exercises the queue the way the data
// plane actually uses it: one writer goroutine, one reader goroutine,
// nothing else.
func TestSingleProducerSingleConsumer(t *testing.T) {
	const n = 100000
	q := queue.New[int](1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for q.Full() {
			}
			q.Push(i)
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			v, ok := q.Pop()
			if !ok {
				continue
			}
			got = append(got, v)
		}
	}()

	wg.Wait()
	for i := 0; i < n; i++ {
		require.Equal(t, i, got[i])
	}
}
