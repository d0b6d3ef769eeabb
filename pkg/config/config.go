package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Config describes a single write workload
type Config struct {
	Name             string `yaml:"name,omitempty"`
	Bucket           string `yaml:"bucket,omitempty"`
	Dir              string `yaml:"dir,omitempty"`
	DataSize         int    `default:"1024" yaml:"dataSize,omitempty"`
	DataBlockPerFile int    `default:"1024" yaml:"dataBlockPerFile,omitempty"`
	FileCount        int    `default:"10" yaml:"fileCount,omitempty"`
	Region           string `yaml:"region,omitempty"`
	Parallel         int    `default:"1" yaml:"parallel,omitempty"`
	FailFast         bool   `default:"false" yaml:"-"`
	Endpoint         string `yaml:"endpoint,omitempty"`
	PathStyle        bool   `yaml:"-"`
	Checksum         bool   `default:"true" yaml:"-"`
}

// Workload is one entry of the workload file. The booleans are pointers so
// an explicit false can be told apart from an unset field.
type Workload struct {
	Config    `yaml:",inline"`
	FailFast  *bool `yaml:"failFast,omitempty"`
	PathStyle *bool `yaml:"pathStyle,omitempty"`
	Checksum  *bool `yaml:"checksum,omitempty"`
}

// Defaults used when a flag or a workload leaves a field unset.
const (
	DefaultDataSize         = 1024
	DefaultDataBlockPerFile = 1024
	DefaultFileCount        = 10
	DefaultParallel         = 1
)

// Workloads is the layout of the optional workload file.
type Workloads struct {
	Workloads []Workload `yaml:"workloads"`
}

func validConfig(cfg Config) (bool, error) {
	if cfg.DataSize < 1 {
		return false, fmt.Errorf("dataSize must be > 0")
	}
	if cfg.DataBlockPerFile < 1 {
		return false, fmt.Errorf("dataBlockPerFile must be > 0")
	}
	if cfg.FileCount < 1 {
		return false, fmt.Errorf("fileCount must be > 0")
	}
	if cfg.Parallel < 1 {
		return false, fmt.Errorf("parallel must be > 0")
	}
	return true, nil
}

// Validate reports whether the workload can be run.
func (c Config) Validate() error {
	_, err := validConfig(c)
	return err
}

// ObjectName returns the destination name of the i-th object of the run.
func (c Config) ObjectName(i int) string {
	return fmt.Sprintf("%s/test-%d-%d-%d-%d", c.Dir, c.DataSize, c.DataBlockPerFile, c.FileCount, i)
}

// ObjectSize is the number of bytes written per object.
func (c Config) ObjectSize() int64 {
	return int64(c.DataSize) * int64(c.DataBlockPerFile)
}

// inherit fills the unset fields of w from base.
func (w Workload) inherit(base Config) Config {
	c := w.Config
	if c.Bucket == "" {
		c.Bucket = base.Bucket
	}
	if c.Dir == "" {
		c.Dir = base.Dir
	}
	if c.DataSize == 0 {
		c.DataSize = base.DataSize
	}
	if c.DataBlockPerFile == 0 {
		c.DataBlockPerFile = base.DataBlockPerFile
	}
	if c.FileCount == 0 {
		c.FileCount = base.FileCount
	}
	if c.Region == "" {
		c.Region = base.Region
	}
	if c.Parallel == 0 {
		c.Parallel = base.Parallel
	}
	if c.Endpoint == "" {
		c.Endpoint = base.Endpoint
	}
	c.FailFast = boolOr(w.FailFast, base.FailFast)
	c.PathStyle = boolOr(w.PathStyle, base.PathStyle)
	c.Checksum = boolOr(w.Checksum, base.Checksum)
	return c
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ParseConf will read in the workload file which describes
// which write tests to run. Unset fields inherit from base.
// Returns Config slice
func ParseConf(fn string, base Config) ([]Config, error) {
	log.Infof("📒 Reading %s file. ", fn)
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var w Workloads
	err = yaml.Unmarshal(buf, &w)
	if err != nil {
		return nil, fmt.Errorf("in file %q: %v", fn, err)
	}
	if len(w.Workloads) < 1 {
		return nil, fmt.Errorf("in file %q: no workloads defined", fn)
	}
	var tests []Config
	for i, wl := range w.Workloads {
		cfg := wl.inherit(base)
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("workload-%d", i)
		}
		ok, err := validConfig(cfg)
		if !ok {
			return nil, fmt.Errorf("workload %q: %w", cfg.Name, err)
		}
		tests = append(tests, cfg)
	}
	return tests, nil
}

// Show Display the workload arguments
func Show(c Config, driver string) {
	log.Info("================================")
	log.Infof("🗒️  Running %s workload %q", driver, c.Name)
	log.Infof("bucket: %s", c.Bucket)
	log.Infof("dir: %s", c.Dir)
	log.Infof("dataSize: %d", c.DataSize)
	log.Infof("dataBlockPerFile: %d", c.DataBlockPerFile)
	log.Infof("fileCount: %d", c.FileCount)
	log.Infof("region: %s", c.Region)
	log.Infof("parallel: %d", c.Parallel)
	log.Infof("failFast: %t", c.FailFast)
	log.Infof("Testing time: %s", time.Now().Format(time.RFC1123))
	log.Info("================================")
}
