package client

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/xlog"
)

// BlastReport summarizes a load generation run.
type BlastReport struct {
	Route   dispatch.Route
	Sent    int
	Acked   int
	Failed  int
	Elapsed time.Duration
	// FirstError is the first failure observed, if any.
	FirstError error
}

// Throughput is the acknowledged messages per second.
func (r *BlastReport) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Acked) / r.Elapsed.Seconds()
}

type blastResult struct {
	ack string
	err error
}

// Blast sends "Message-0" to "Message-<n-1>" through a pool of
// concurrency workers and collects the acks.
func (c *Client) Blast(ctx context.Context, route dispatch.Route, n, concurrency int) (*BlastReport, error) {
	if n <= 0 || concurrency <= 0 {
		return nil, infra.NewErrorStack("[client] blast needs positive n and concurrency")
	}
	if _, err := routePath(route); err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(concurrency, ants.WithLogger(xlog.NewAntsXLogger(c.logger)))
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	defer pool.Release()

	report := &BlastReport{Route: route}
	resultC := make(chan blastResult, concurrency)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(resultC)
		}()
		for i := 0; i < n; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			msg := "Message-" + strconv.Itoa(i)
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				ack, err := c.Send(gctx, route, msg)
				resultC <- blastResult{ack: ack, err: err}
			}); err != nil {
				wg.Done()
				return infra.WrapErrorStack(err)
			}
		}
		return nil
	})
	g.Go(func() error {
		for res := range resultC {
			report.Sent++
			if res.err != nil {
				report.Failed++
				if report.FirstError == nil {
					report.FirstError = res.err
				}
				continue
			}
			report.Acked++
		}
		return nil
	})
	err = g.Wait()
	report.Elapsed = time.Since(start)

	c.logger.Info("blast finished",
		zap.String("route", route.String()),
		zap.Int("sent", report.Sent),
		zap.Int("acked", report.Acked),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed),
		zap.Float64("throughput", report.Throughput()),
	)
	return report, err
}
