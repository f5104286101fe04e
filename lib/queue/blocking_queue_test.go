package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestXBlockingQueue_FIFO(t *testing.T) {
	q := NewXBlockingQueue[string]()
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Offer("Message-"+strconv.Itoa(i)))
	}
	require.Equal(t, int64(100), q.Len())

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		e, err := q.Take(ctx)
		require.NoError(t, err)
		require.Equal(t, "Message-"+strconv.Itoa(i), e)
	}
	require.Equal(t, int64(0), q.Len())

	_, ok := q.Poll()
	require.False(t, ok)
}

func TestXBlockingQueue_TakeBlocksUntilOffer(t *testing.T) {
	q := NewXBlockingQueue[int]()
	resC := make(chan int, 1)
	go func() {
		e, err := q.Take(context.Background())
		if err == nil {
			resC <- e
		}
	}()

	select {
	case <-resC:
		t.Fatal("take returned on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, q.Offer(42))
	select {
	case e := <-resC:
		require.Equal(t, 42, e)
	case <-time.After(time.Second):
		t.Fatal("take was not woken up by offer")
	}
}

func TestXBlockingQueue_TakeCancelled(t *testing.T) {
	q := NewXBlockingQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Take(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestXBlockingQueue_Close(t *testing.T) {
	q := NewXBlockingQueue[int]()
	require.NoError(t, q.Offer(1))
	require.NoError(t, q.Offer(2))

	waitC := make(chan error, 1)
	empty := NewXBlockingQueue[int]()
	go func() {
		_, err := empty.Take(context.Background())
		waitC <- err
	}()
	require.NoError(t, empty.Close())
	select {
	case err := <-waitC:
		require.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("take was not woken up by close")
	}

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	require.True(t, q.IsClosed())
	require.ErrorIs(t, q.Offer(3), ErrQueueClosed)

	// Elements offered before close are still drained.
	ctx := context.Background()
	e, err := q.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, e)
	e, err = q.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, e)
	_, err = q.Take(ctx)
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestXBlockingQueue_ConcurrentOffer(t *testing.T) {
	const producers, perProducer = 100, 100
	q := NewXBlockingQueue[int]()

	seen := make(map[int]struct{}, producers*perProducer)
	doneC := make(chan struct{})
	go func() {
		defer close(doneC)
		for len(seen) < producers*perProducer {
			e, err := q.Take(context.Background())
			if err != nil {
				return
			}
			seen[e] = struct{}{}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Offer(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	select {
	case <-doneC:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	require.Len(t, seen, producers*perProducer)
	require.Equal(t, int64(0), q.Len())
}
