package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSafeClosableChannel(t *testing.T) {
	ch := NewSafeClosableChannel[int](1)
	require.True(t, ch.TrySend(1))
	require.False(t, ch.TrySend(2))
	require.Equal(t, 1, <-ch.Wait())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, ch.Send(ctx, 3))
	require.ErrorIs(t, ch.Send(ctx, 4), context.DeadlineExceeded)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	require.True(t, ch.IsClosed())
	require.ErrorIs(t, ch.Send(context.Background(), 5), ErrChannelClosed)
	require.False(t, ch.TrySend(5))

	// Buffered values survive the close.
	v, ok := <-ch.Wait()
	require.True(t, ok)
	require.Equal(t, 3, v)
	_, ok = <-ch.Wait()
	require.False(t, ok)
}
