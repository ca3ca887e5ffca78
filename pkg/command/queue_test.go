package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(Command{Kind: SetSpeed, LoopIdx: i}))
	}
	for i := 0; i < 5; i++ {
		cmd, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, cmd.LoopIdx)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestPushFailsWhenFullAndCountsDrop(t *testing.T) {
	q := NewQueue(4) // rounds up to 4
	for i := 0; i < q.Capacity(); i++ {
		require.True(t, q.Push(Command{}))
	}
	assert.False(t, q.Push(Command{}))
	assert.EqualValues(t, 1, q.Dropped())
}

func TestCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 8, NewQueue(5).Capacity())
	assert.Equal(t, 1, NewQueue(0).Capacity())
}

func TestConcurrentSingleProducerSingleConsumer(t *testing.T) {
	q := NewQueue(16)
	const n = 100000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(Command{LoopIdx: i}) {
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if cmd, ok := q.Pop(); ok {
				received = append(received, cmd.LoopIdx)
			}
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, v := range received {
		assert.Equal(t, i, v)
	}
}
