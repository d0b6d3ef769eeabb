package drivers

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
)

const localDriverName = "local"

// localDriver writes into a directory tree, e.g. a mounted shared
// filesystem. An empty root writes relative to /.
type localDriver struct {
	root string
}

type localWriter struct {
	root string
	dirs map[string]bool
}

func newLocal(root string) *localDriver {
	return &localDriver{root: root}
}

func (d *localDriver) Name() string { return localDriverName }

func (d *localDriver) Buffered() bool { return false }

func (d *localDriver) Connect(_ context.Context) (Writer, error) {
	return &localWriter{root: d.root, dirs: map[string]bool{}}, nil
}

// Put writes every block then fsyncs, so the latency covers durability.
func (w *localWriter) Put(_ context.Context, name string, p *payload.Payload) error {
	fn := filepath.Join(w.root, filepath.FromSlash(path.Join("/", name)))
	if dir := filepath.Dir(fn); !w.dirs[dir] {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	start := time.Now()
	f, err := os.Create(fn)
	if err != nil {
		return fmt.Errorf("create %s: %w", fn, err)
	}
	created := time.Now()
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", fn, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", fn, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", fn, err)
	}
	log.Debugf("File created cost %d ms, write cost %d ms", created.Sub(start).Milliseconds(), time.Since(created).Milliseconds())
	return nil
}

func (w *localWriter) Close() error { return nil }
