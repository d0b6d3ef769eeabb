package drivers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path"
	"strings"
	"time"

	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
	"github.com/colinmarc/hdfs/v2"
)

const hdfsDriverName = "hdfs"

type hdfsDriver struct {
	address string
	user    string
}

type hdfsWriter struct {
	client *hdfs.Client
	dirs   map[string]bool
}

// newHDFS accepts either host:port or an hdfs:// URI for the namenode.
func newHDFS(namenode string) (Driver, error) {
	if strings.Contains(namenode, "://") {
		u, err := url.Parse(namenode)
		if err != nil {
			return nil, fmt.Errorf("invalid namenode URI %q: %w", namenode, err)
		}
		namenode = u.Host
	}
	if namenode == "" {
		return nil, fmt.Errorf("hdfs namenode address is required")
	}
	name := os.Getenv("HADOOP_USER_NAME")
	if name == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("unable to determine hdfs user: %w", err)
		}
		name = u.Username
	}
	return &hdfsDriver{address: namenode, user: name}, nil
}

func (d *hdfsDriver) Name() string { return hdfsDriverName }

func (d *hdfsDriver) Buffered() bool { return false }

func (d *hdfsDriver) Connect(_ context.Context) (Writer, error) {
	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: []string{d.address},
		User:      d.user,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to namenode %s: %w", d.address, err)
	}
	log.Debugf("🔌 HDFS client connected to %s as %s", d.address, d.user)
	return &hdfsWriter{client: client, dirs: map[string]bool{}}, nil
}

// Prepare creates the parent directory and removes a file left by an
// earlier run, so Put does not pay for either.
func (w *hdfsWriter) Prepare(_ context.Context, name string) error {
	fn := path.Join("/", name)
	if err := w.mkdir(path.Dir(fn)); err != nil {
		return err
	}
	if _, err := w.client.Stat(fn); err == nil {
		if err := w.client.Remove(fn); err != nil {
			return fmt.Errorf("remove stale %s: %w", fn, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", fn, err)
	}
	return nil
}

func (w *hdfsWriter) mkdir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.client.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Put creates the file, writes every block and closes it. The namenode only
// acknowledges the file on Close. A file that appeared after Prepare is
// removed and recreated, and that extra round trip is part of the latency.
func (w *hdfsWriter) Put(_ context.Context, name string, p *payload.Payload) error {
	fn := path.Join("/", name)
	if err := w.mkdir(path.Dir(fn)); err != nil {
		return err
	}
	start := time.Now()
	f, err := w.client.Create(fn)
	if errors.Is(err, os.ErrExist) {
		if err = w.client.Remove(fn); err == nil {
			f, err = w.client.Create(fn)
		}
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", fn, err)
	}
	created := time.Now()
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", fn, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", fn, err)
	}
	log.Debugf("File created cost %d ms, write cost %d ms", created.Sub(start).Milliseconds(), time.Since(created).Milliseconds())
	return nil
}

func (w *hdfsWriter) Close() error {
	return w.client.Close()
}
