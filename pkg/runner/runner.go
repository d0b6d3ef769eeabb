package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloud-bulldozer/writeperf/pkg/config"
	"github.com/cloud-bulldozer/writeperf/pkg/drivers"
	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
	"github.com/cloud-bulldozer/writeperf/pkg/sample"
	"golang.org/x/sync/errgroup"
)

// ErrFailFast is returned when a write fails and the workload was asked to
// stop on the first failure.
var ErrFailFast = errors.New("fail-fast: aborting run after failed write")

// Observer receives every finished write. pkg/metrics implements it.
type Observer interface {
	Observe(driver, workload string, ms int64, size int64)
	Failure(driver, workload string)
}

// Outcome is what one workload run produced.
type Outcome struct {
	Samples   *sample.Set
	Failures  int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

type task struct {
	index int
	name  string
}

// Run writes cfg.FileCount objects through d using cfg.Parallel workers,
// never more workers than objects.
// Each worker owns one Writer for the whole run. Run returns once every
// issued write has finished and every Writer is closed.
func Run(ctx context.Context, cfg config.Config, d drivers.Driver, obs Observer) (Outcome, error) {
	out := Outcome{Samples: sample.NewSet(cfg.FileCount)}
	if err := cfg.Validate(); err != nil {
		return out, err
	}
	p := payload.New(cfg.DataSize, cfg.DataBlockPerFile)
	if d.Buffered() {
		p.Materialize()
	}

	writers, err := connect(ctx, d, min(cfg.Parallel, cfg.FileCount))
	if err != nil {
		return out, err
	}
	defer closeAll(writers)

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan task)
	results := make(chan sample.Result, cfg.Parallel)

	g.Go(func() error {
		defer close(tasks)
		for i := 0; i < cfg.FileCount; i++ {
			select {
			case tasks <- task{index: i, name: cfg.ObjectName(i)}:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for _, w := range writers {
		w := w
		g.Go(func() error {
			for t := range tasks {
				if gctx.Err() != nil {
					continue
				}
				r := timedWrite(gctx, w, t, p)
				results <- r
				if r.Err != nil && cfg.FailFast {
					return fmt.Errorf("%w: %s: %v", ErrFailFast, t.name, r.Err)
				}
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			if r.Err != nil {
				out.Failures++
				if obs != nil {
					obs.Failure(d.Name(), cfg.Name)
				}
				continue
			}
			out.Samples.Add(r.Latency)
			if obs != nil {
				obs.Observe(d.Name(), cfg.Name, r.Latency, p.Size())
			}
		}
	}()

	out.StartTime = time.Now()
	err = g.Wait()
	out.EndTime = time.Now()
	close(results)
	<-done

	out.Skipped = cfg.FileCount - out.Samples.Len() - out.Failures
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return out, err
}

// timedWrite performs a single write. The clock covers the whole Put,
// including the close that makes the object durable, but not Prepare.
func timedWrite(ctx context.Context, w drivers.Writer, t task, p *payload.Payload) sample.Result {
	r := sample.Result{Index: t.index, Name: t.name}
	if pw, ok := w.(drivers.Preparer); ok {
		if err := pw.Prepare(ctx, t.name); err != nil {
			log.WithField("object", t.name).Errorf("😥 Prepare failed: %v", err)
			r.Err = err
			return r
		}
	}
	start := time.Now()
	err := w.Put(ctx, t.name, p)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.WithField("object", t.name).Errorf("😥 Write failed: %v", err)
		r.Err = err
		return r
	}
	r.Latency = elapsed
	log.Infof("File write cost %d ms", elapsed)
	return r
}

// connect opens one Writer per worker. On error the writers opened so far
// are closed.
func connect(ctx context.Context, d drivers.Driver, n int) ([]drivers.Writer, error) {
	writers := make([]drivers.Writer, 0, n)
	for i := 0; i < n; i++ {
		w, err := d.Connect(ctx)
		if err != nil {
			closeAll(writers)
			return nil, fmt.Errorf("connecting %s worker %d: %w", d.Name(), i, err)
		}
		writers = append(writers, w)
	}
	log.Debugf("🔌 %d %s writers connected", n, d.Name())
	return writers, nil
}

func closeAll(writers []drivers.Writer) {
	for _, w := range writers {
		if err := w.Close(); err != nil {
			log.Warnf("Unable to close writer: %v", err)
		}
	}
}
