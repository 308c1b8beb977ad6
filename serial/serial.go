// Package serial implements the single-threaded drop-in for the job
// system: the same create/run/wait/continuation contract as the root
// jobsystem package, but executed entirely on the calling goroutine with no
// worker pool, no deque and no stealing.
//
// It is ported from the source's SerialJobSystem, which shares every
// algorithm with the threaded JobSystem except execution itself. One source
// bug is deliberately NOT reproduced here: SerialJobSystem.cpp wrote a new
// continuation at index count-1 instead of count, silently dropping the
// job's first continuation slot. Both this package and the root package use
// index count.
package serial

import (
	"fmt"
	"runtime"

	"github.com/go-foundations/jobsystem/internal/jobtelemetry"
	"github.com/go-foundations/jobsystem/internal/joblog"
)

// PayloadCapacity mirrors jobsystem.PayloadCapacity; kept as an independent
// constant so this package has no dependency on the root package's
// unexported job representation.
const PayloadCapacity = 52

// JobNumContinuations mirrors jobsystem.JobNumContinuations.
const JobNumContinuations = 6

// JobFunction is the work a job performs, receiving the System it runs on
// so nested CreateJob/Run calls have somewhere to submit to.
type JobFunction func(s *System, id JobID, payload *[PayloadCapacity]byte)

type job struct {
	function  JobFunction
	parent    *job
	poolIndex uint32

	unfinished        int32
	continuationCount int32
	continuations     [JobNumContinuations]*job

	payload [PayloadCapacity]byte
}

// JobID is an opaque handle to a job, identical in spirit to
// jobsystem.JobID. The zero value is NullJobID.
type JobID struct {
	job *job
}

// NullJobID denotes "no job".
var NullJobID = JobID{}

// IsNull reports whether id is the null job id.
func (id JobID) IsNull() bool { return id.job == nil }

// IsValid reports whether id refers to a live (not yet finished) job.
func (id JobID) IsValid() bool { return id.job != nil && id.job.function != nil }

// Unfinished returns id's unfinished count: 1 plus one per live descendant.
func (id JobID) Unfinished() int32 {
	if id.job == nil {
		return 0
	}
	return id.job.unfinished
}

// Config holds the construction-time knobs for a System: JobsPerPool sizes
// the pool and Debug turns contract violations into panics. There is no
// NumThreads (always 1) and no PackedIDs (there is only ever one thread id).
type Config struct {
	JobsPerPool int
	Debug       bool
}

// DefaultConfig mirrors jobsystem.DefaultConfig's JobsPerPool default.
func DefaultConfig() Config {
	return Config{JobsPerPool: 2048}
}

func (c Config) normalize() (Config, error) {
	if c.JobsPerPool <= 0 {
		c.JobsPerPool = 2048
	}
	if c.JobsPerPool&(c.JobsPerPool-1) != 0 {
		return c, fmt.Errorf("serial: JobsPerPool must be a power of two, got %d", c.JobsPerPool)
	}
	return c, nil
}

// System is the single-threaded job system. It is not safe for concurrent
// use: every method must be called from the one goroutine driving it,
// matching the source's SerialJobSystem (no synchronization anywhere in
// it, since there is only ever one caller).
type System struct {
	config Config

	jobs          []job
	mask          uint32
	allocatedJobs uint32

	queue []*job // LIFO: append on push, pop from the back

	logger  *joblog.Logger
	metrics *jobtelemetry.Collector
}

// Option configures optional collaborators of a System.
type Option func(*System)

// WithLogger attaches a logger. Without one, a System logs nothing.
func WithLogger(l *joblog.Logger) Option {
	return func(s *System) { s.logger = l }
}

// WithMetrics attaches a Prometheus collector. Without one, a System
// creates its own private collector.
func WithMetrics(m *jobtelemetry.Collector) Option {
	return func(s *System) { s.metrics = m }
}

// NewSystem creates a single-threaded job system.
func NewSystem(config Config, opts ...Option) (*System, error) {
	config, err := config.normalize()
	if err != nil {
		return nil, err
	}

	s := &System{
		config:  config,
		jobs:    make([]job, config.JobsPerPool),
		mask:    uint32(config.JobsPerPool - 1),
		logger:  joblog.Noop(),
		metrics: jobtelemetry.NewCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.WithComponent("jobsystem.serial").Info().
		Int("jobs_per_pool", config.JobsPerPool).
		Msg("serial job system started")

	return s, nil
}

// Metrics returns the System's Prometheus collector.
func (s *System) Metrics() *jobtelemetry.Collector { return s.metrics }

func (s *System) retrieve() (*job, uint32, bool) {
	index := s.allocatedJobs
	s.allocatedJobs++
	slot := index & s.mask
	j := &s.jobs[slot]
	if j.function != nil {
		return nil, 0, false
	}
	return j, slot, true
}

// CreateJob creates a new root job.
func (s *System) CreateJob(fn JobFunction, data []byte) JobID {
	return s.createJob(nil, fn, data)
}

// CreateJobAsChild creates a new job as a child of parent.
func (s *System) CreateJobAsChild(parent JobID, fn JobFunction, data []byte) JobID {
	if parent.job == nil {
		if s.config.Debug {
			panic("serial: CreateJobAsChild with an invalid parent")
		}
		return NullJobID
	}
	parent.job.unfinished++
	return s.createJob(parent.job, fn, data)
}

func (s *System) createJob(parent *job, fn JobFunction, data []byte) JobID {
	if fn == nil {
		if s.config.Debug {
			panic("serial: nil job function")
		}
		return NullJobID
	}
	if len(data) > PayloadCapacity {
		if s.config.Debug {
			panic("serial: payload exceeds capacity")
		}
		return NullJobID
	}

	j, idx, ok := s.retrieve()
	if !ok {
		s.logger.Warn().Msg("pool slot still busy on allocation")
		return NullJobID
	}

	j.function = fn
	j.parent = parent
	j.poolIndex = idx
	j.unfinished = 1
	j.continuationCount = 0
	for i := range j.continuations {
		j.continuations[i] = nil
	}
	if len(data) > 0 {
		copy(j.payload[:], data)
	}

	kind := "root"
	if parent != nil {
		kind = "child"
	}
	s.metrics.JobsCreated.WithLabelValues(kind).Inc()

	return JobID{job: j}
}

// AddContinuation queues continuation to run once ancestor finishes.
func (s *System) AddContinuation(ancestor, continuation JobID) bool {
	if ancestor.job == nil || continuation.job == nil {
		if s.config.Debug {
			panic("serial: AddContinuation with an invalid job id")
		}
		return false
	}
	count := ancestor.job.continuationCount
	ancestor.job.continuationCount++
	if count < JobNumContinuations {
		ancestor.job.continuations[count] = continuation.job
		return true
	}
	ancestor.job.continuationCount--
	return false
}

// Run pushes job onto the pending queue. Nothing executes until Wait (or a
// nested Run from inside a running job function, which recurses through
// Wait's drain loop) is called.
func (s *System) Run(id JobID) {
	if id.job == nil {
		if s.config.Debug {
			panic("serial: Run with an invalid job id")
		}
		return
	}
	s.queue = append(s.queue, id.job)
}

// Wait drains the pending queue, executing jobs until id's unfinished count
// reaches zero.
func (s *System) Wait(id JobID) {
	if id.job == nil {
		if s.config.Debug {
			panic("serial: Wait with an invalid job id")
		}
		return
	}
	for id.job.unfinished > 0 {
		j := s.pop()
		if j == nil {
			runtime.Gosched()
			continue
		}
		s.execute(j)
	}
}

// Unfinished returns a snapshot of id's unfinished count.
func (s *System) Unfinished(id JobID) int32 { return id.Unfinished() }

func (s *System) pop() *job {
	n := len(s.queue)
	if n == 0 {
		return nil
	}
	j := s.queue[n-1]
	s.queue = s.queue[:n-1]
	return j
}

func (s *System) execute(j *job) {
	id := JobID{job: j}
	j.function(s, id, &j.payload)
	s.finish(j)
}

func (s *System) finish(j *job) {
	cur := j
	for cur != nil {
		cur.unfinished--
		if cur.unfinished > 0 {
			return
		}

		cur.function = nil
		kind := "root"
		if cur.parent != nil {
			kind = "child"
		}
		s.metrics.JobsFinished.WithLabelValues(kind).Inc()

		for i := int32(0); i < cur.continuationCount && i < JobNumContinuations; i++ {
			if cont := cur.continuations[i]; cont != nil {
				s.queue = append(s.queue, cont)
			}
		}

		cur = cur.parent
	}
}
