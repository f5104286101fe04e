package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xdispatch/api"
	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/lib/kv"
	"github.com/benz9527/xdispatch/xlog"
)

func testLogger() xlog.XLogger {
	return xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerLevel(xlog.LogLevelError),
	)
}

func newDispatchService(t *testing.T) (*httptest.Server, *dispatch.Gateway, kv.ThreadSafeStorer[string, dispatch.Result]) {
	t.Helper()
	logger := testLogger()
	processed := kv.NewThreadSafeMap[string, dispatch.Result]()
	handler := dispatch.NewHandler(
		dispatch.WithLogger(logger),
		dispatch.WithProcessingDelay(0),
		dispatch.WithOnProcessed(func(res dispatch.Result) {
			_ = processed.AddOrUpdate(res.Route.String()+"/"+res.Payload, res)
		}),
	)
	ring, err := dispatch.NewRingDispatcher(32, handler, dispatch.WithLogger(logger))
	require.NoError(t, err)
	gw, err := dispatch.NewGateway(ring, dispatch.NewQueueDispatcher(handler, dispatch.WithLogger(logger)), dispatch.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, gw.Start())
	router, err := api.NewRouter(api.RouterConfig{Gateway: gw, Logger: logger})
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		if gw.Ready() {
			_ = gw.Shutdown(context.Background())
		}
	})
	return srv, gw, processed
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("localhost:8080")
	require.Error(t, err)
	_, err = New("://bad")
	require.Error(t, err)
}

func TestSend_PassThrough(t *testing.T) {
	srv, gw, _ := newDispatchService(t)
	c, err := New(srv.URL+"/", WithLogger(testLogger()))
	require.NoError(t, err)

	ctx := context.Background()
	ack, err := c.Send(ctx, dispatch.RouteRing, "hello & bye")
	require.NoError(t, err)
	require.Equal(t, "Message published: hello & bye", ack)
	ack, err = c.Send(ctx, dispatch.RouteQueue, "hello")
	require.NoError(t, err)
	require.Equal(t, "Message published to queue: hello", ack)
	_, err = c.Send(ctx, dispatch.Route(7), "hello")
	require.ErrorIs(t, err, dispatch.ErrUnknownRoute)

	require.NoError(t, gw.Shutdown(ctx))
	ack, err = c.Send(ctx, dispatch.RouteQueue, "late")
	require.ErrorIs(t, err, ErrNotAccepted)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	require.Equal(t, "Message publish to queue failed: late", ack)
}

func TestBlast(t *testing.T) {
	srv, gw, processed := newDispatchService(t)
	c, err := New(srv.URL, WithLogger(testLogger()))
	require.NoError(t, err)

	_, err = c.Blast(context.Background(), dispatch.RouteRing, 0, 1)
	require.Error(t, err)

	for _, route := range []dispatch.Route{dispatch.RouteRing, dispatch.RouteQueue} {
		report, err := c.Blast(context.Background(), route, 500, 16)
		require.NoError(t, err)
		require.Equal(t, 500, report.Sent)
		require.Equal(t, 500, report.Acked)
		require.Zero(t, report.Failed)
		require.Nil(t, report.FirstError)
		require.Greater(t, report.Throughput(), float64(0))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, gw.Shutdown(ctx))
	require.Equal(t, 1000, processed.Len())
}

func TestBlast_CountsFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Message publish failed: " + r.URL.Query().Get("message")))
			return
		}
		_, _ = w.Write([]byte("Message published: " + r.URL.Query().Get("message")))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(testLogger()))
	require.NoError(t, err)
	report, err := c.Blast(context.Background(), dispatch.RouteRing, 100, 8)
	require.NoError(t, err)
	require.Equal(t, 100, report.Sent)
	require.Equal(t, 50, report.Acked)
	require.Equal(t, 50, report.Failed)
	require.ErrorIs(t, report.FirstError, ErrNotAccepted)
}
