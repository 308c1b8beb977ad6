// Package jobconfig loads jobsystem.Config from YAML, in the style of the
// pack's other yaml.v3-backed configuration loaders.
package jobconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-foundations/jobsystem"
)

// File is the on-disk shape of a job system configuration file.
type File struct {
	NumThreads  int  `yaml:"num_threads"`
	JobsPerPool int  `yaml:"jobs_per_pool"`
	PackedIDs   bool `yaml:"packed_ids"`
	Debug       bool `yaml:"debug"`
}

// Load reads and parses a YAML config file into a jobsystem.Config. Missing
// or zero fields fall back to jobsystem.DefaultConfig's values, matching
// the defaulting-on-zero-value approach the root package's NewSystem
// applies itself.
func Load(path string) (jobsystem.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jobsystem.Config{}, fmt.Errorf("jobconfig: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return jobsystem.Config{}, fmt.Errorf("jobconfig: parsing %s: %w", path, err)
	}

	cfg := jobsystem.DefaultConfig()
	if f.NumThreads != 0 {
		cfg.NumThreads = f.NumThreads
	}
	if f.JobsPerPool != 0 {
		cfg.JobsPerPool = f.JobsPerPool
	}
	cfg.PackedIDs = f.PackedIDs
	cfg.Debug = f.Debug

	return cfg, nil
}

// Write serializes cfg to path as YAML, mainly useful for tests and for
// producing a starting file to pass to jobsystemctl's -config flag.
func Write(path string, cfg jobsystem.Config) error {
	f := File{
		NumThreads:  cfg.NumThreads,
		JobsPerPool: cfg.JobsPerPool,
		PackedIDs:   cfg.PackedIDs,
		Debug:       cfg.Debug,
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("jobconfig: marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("jobconfig: writing %s: %w", path, err)
	}
	return nil
}
