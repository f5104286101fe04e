package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/lib/kv"
	"github.com/benz9527/xdispatch/xlog"
)

func testLogger() xlog.XLogger {
	return xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerLevel(xlog.LogLevelError),
		xlog.WithXLoggerContextFieldExtract(string(RequestIDKey), xlog.ContextKeyMapToOmitempty),
	)
}

type testService struct {
	gateway   *dispatch.Gateway
	processed kv.ThreadSafeStorer[string, dispatch.Result]
	server    *httptest.Server
	client    *http.Client
}

func newTestService(t *testing.T, ringCapacity uint64) *testService {
	t.Helper()
	svc := &testService{
		processed: kv.NewThreadSafeMap[string, dispatch.Result](),
	}
	logger := testLogger()
	handler := dispatch.NewHandler(
		dispatch.WithLogger(logger),
		dispatch.WithProcessingDelay(0),
		dispatch.WithOnProcessed(func(res dispatch.Result) {
			_ = svc.processed.AddOrUpdate(res.Route.String()+"/"+res.Payload, res)
		}),
	)
	ring, err := dispatch.NewRingDispatcher(ringCapacity, handler, dispatch.WithLogger(logger))
	require.NoError(t, err)
	queue := dispatch.NewQueueDispatcher(handler, dispatch.WithLogger(logger))
	svc.gateway, err = dispatch.NewGateway(ring, queue, dispatch.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, svc.gateway.Start())

	router, err := NewRouter(RouterConfig{
		Gateway: svc.gateway,
		Logger:  logger,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# metrics\n")
		}),
	})
	require.NoError(t, err)
	svc.server = httptest.NewServer(router)
	svc.client = &http.Client{
		Transport: &http.Transport{MaxIdleConnsPerHost: 128},
		Timeout:   10 * time.Second,
	}
	t.Cleanup(func() {
		svc.server.Close()
		if svc.gateway.Ready() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svc.gateway.Shutdown(ctx)
		}
	})
	return svc
}

func (svc *testService) do(path, message string) (int, string, error) {
	target := svc.server.URL + path
	if message != "" {
		target += "?message=" + url.QueryEscape(message)
	}
	resp, err := svc.client.Post(target, "text/plain", nil)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), err
}

func (svc *testService) post(t *testing.T, path, message string) (int, string) {
	t.Helper()
	status, body, err := svc.do(path, message)
	require.NoError(t, err)
	return status, body
}

func (svc *testService) shutdown(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, svc.gateway.Shutdown(ctx))
}

func TestPublish_Acks(t *testing.T) {
	svc := newTestService(t, 16)

	status, body := svc.post(t, "/api/messages", "hello world")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Message published: hello world", body)

	status, body = svc.post(t, "/api/messages/queue", "hello world")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Message published to queue: hello world", body)

	status, _ = svc.post(t, "/api/messages", "")
	require.Equal(t, http.StatusBadRequest, status)

	resp, err := svc.client.Post(svc.server.URL+"/api/messages?message=", "text/plain", nil)
	require.NoError(t, err)
	body2, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Message published: ", string(body2))
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp, err = svc.client.Get(svc.server.URL + "/api/messages")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPublish_FailureAfterShutdown(t *testing.T) {
	svc := newTestService(t, 16)
	svc.shutdown(t)

	status, body := svc.post(t, "/api/messages", "late")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "Message publish failed: late", body)

	status, body = svc.post(t, "/api/messages/queue", "late")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "Message publish to queue failed: late", body)
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, 16)
	for _, path := range []string{"/livez", "/readyz", "/metrics"} {
		resp, err := svc.client.Get(svc.server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	svc.shutdown(t)
	resp, err := svc.client.Get(svc.server.URL + "/readyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, string(body), `"ring":"stopped"`)

	resp, err = svc.client.Get(svc.server.URL + "/livez")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRingRoute_ConcurrentEndToEnd(t *testing.T) {
	const n = 1000
	svc := newTestService(t, 64)

	var g errgroup.Group
	g.SetLimit(64)
	acks := kv.NewThreadSafeMap[string, struct{}]()
	for i := 0; i < n; i++ {
		msg := "Message-" + strconv.Itoa(i)
		g.Go(func() error {
			status, body, err := svc.do("/api/messages", msg)
			if err != nil {
				return err
			}
			if status != http.StatusOK || body != "Message published: "+msg {
				return fmt.Errorf("unexpected ack %d %q", status, body)
			}
			return acks.AddOrUpdate(msg, struct{}{})
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, n, acks.Len())

	svc.shutdown(t)
	require.Equal(t, n, svc.processed.Len())
	seqs := make(map[uint64]struct{}, n)
	for _, res := range svc.processed.ListValues() {
		require.Equal(t, dispatch.RouteRing, res.Route)
		require.True(t, strings.HasPrefix(res.Payload, "Message-"))
		require.GreaterOrEqual(t, res.LatencyMs, int64(0))
		seqs[res.Sequence] = struct{}{}
	}
	require.Len(t, seqs, n)
}

func TestQueueRoute_ConcurrentEndToEnd(t *testing.T) {
	const producers, perProducer = 100, 100
	svc := newTestService(t, 16)

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		p := p
		g.Go(func() error {
			for i := 0; i < perProducer; i++ {
				msg := "Message-" + strconv.Itoa(p*perProducer+i)
				status, body, err := svc.do("/api/messages/queue", msg)
				if err != nil {
					return err
				}
				if status != http.StatusOK || body != "Message published to queue: "+msg {
					return fmt.Errorf("unexpected ack %d %q", status, body)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	svc.shutdown(t)
	require.Equal(t, producers*perProducer, svc.processed.Len())
	for _, res := range svc.processed.ListValues() {
		require.Equal(t, dispatch.RouteQueue, res.Route)
	}
}
