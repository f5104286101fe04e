package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/benz9527/xdispatch/api"
	"github.com/benz9527/xdispatch/client"
	"github.com/benz9527/xdispatch/config"
	"github.com/benz9527/xdispatch/dispatch"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Ring.Capacity = 64
	cfg.Handler.Delay = 0
	cfg.Log.Level = "ERROR"
	cfg.Metrics.Exporter = "none"
	cfg.Shutdown.Timeout = 5 * time.Second
	return cfg
}

func TestServeApp_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xdispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	var (
		srv *api.Server
		gw  *dispatch.Gateway
	)
	app := newServeApp(testConfig(), configPath(path), fx.Populate(&srv, &gw))
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	require.True(t, gw.Ready())

	cli, err := client.New("http://" + srv.Addr().String())
	require.NoError(t, err)
	ack, err := cli.Send(ctx, dispatch.RouteRing, "Message-0")
	require.NoError(t, err)
	require.Equal(t, "Message published: Message-0", ack)
	report, err := cli.Blast(ctx, dispatch.RouteQueue, 200, 8)
	require.NoError(t, err)
	require.Equal(t, 200, report.Acked)

	resp, err := http.Get("http://" + srv.Addr().String() + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(ctx))
	require.False(t, gw.Ready())
	require.Zero(t, gw.Ring().Backlog())
	require.Zero(t, gw.Queue().Len())
}

func TestServeApp_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Level = "verbose"
	app := newServeApp(cfg, "")
	require.Error(t, app.Err())
}

func TestClientFlags_Parse(t *testing.T) {
	c := &blastRun{}
	c.Init()
	c.Flags.IntVar(&c.n, "n", 1000, "")
	c.Flags.IntVar(&c.concurrency, "c", 100, "")

	require.NoError(t, c.GetFlags().Parse([]string{"-addr", "http://127.0.0.1:9", "-route", "queue", "-n", "5"}))
	require.NoError(t, c.Parse())
	require.Equal(t, dispatch.RouteQueue, c.route)
	require.Equal(t, 5, c.n)

	c.n = 0
	require.Error(t, c.Parse())

	s := &sendRun{}
	s.Init()
	require.NoError(t, s.GetFlags().Parse([]string{"-route", "kafka"}))
	require.Error(t, s.Parse())
}

func TestSendRun_Unreachable(t *testing.T) {
	s := &sendRun{}
	s.Init()
	require.NoError(t, s.GetFlags().Parse([]string{"-addr", "http://127.0.0.1:1"}))
	require.Equal(t, 1, s.Run(application, []string{"hello"}, nil))
	require.Equal(t, 1, s.Run(application, nil, nil))
}
