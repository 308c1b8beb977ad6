package jobsystem

import (
	"fmt"
	"runtime"
)

// Config holds the construction-time knobs for a System (spec §6).
type Config struct {
	// NumThreads is the number of worker goroutines plus the submitting
	// goroutine itself. Clamped to [1, runtime.NumCPU()]. Zero selects
	// runtime.NumCPU().
	NumThreads int

	// JobsPerPool is the size of each worker's job pool and deque; must be
	// a power of two. Zero selects the default of 2048.
	JobsPerPool int

	// PackedIDs selects the compact (threadId, poolIndex) JobID encoding
	// for callers that use PackJobID/System.JobFromPacked, limiting the
	// system to 32 threads and 2048 jobs per pool. It does not change the
	// internal representation, which always keeps the canonical pointer.
	PackedIDs bool

	// Debug turns contract violations (nil function, oversized payload,
	// an invalid JobID passed to Run/Wait/AddContinuation) into panics
	// instead of silent no-ops, matching the spec's "fatal assertion in
	// debug, undefined in release" error taxonomy.
	Debug bool
}

// DefaultConfig returns sensible defaults: one thread per logical CPU, a
// 2048-job pool per thread, pointer-width JobIDs, debug assertions off.
func DefaultConfig() Config {
	return Config{
		NumThreads:  runtime.NumCPU(),
		JobsPerPool: 2048,
		PackedIDs:   false,
		Debug:       false,
	}
}

func (c Config) normalize() (Config, error) {
	if c.NumThreads <= 0 {
		c.NumThreads = runtime.NumCPU()
	}
	if numCPU := runtime.NumCPU(); c.NumThreads > numCPU {
		c.NumThreads = numCPU
	}
	if c.JobsPerPool <= 0 {
		c.JobsPerPool = 2048
	}
	if c.JobsPerPool&(c.JobsPerPool-1) != 0 {
		return c, fmt.Errorf("jobsystem: JobsPerPool must be a power of two, got %d", c.JobsPerPool)
	}
	if c.PackedIDs && (c.NumThreads > packedMaxThreads || c.JobsPerPool > packedPoolIndexMask+1) {
		return c, fmt.Errorf("jobsystem: packed job ids limit the system to %d threads and %d jobs per pool",
			packedMaxThreads, packedPoolIndexMask+1)
	}
	return c, nil
}
