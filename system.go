package jobsystem

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-foundations/jobsystem/internal/jobtelemetry"
	"github.com/go-foundations/jobsystem/internal/joblog"
)

// System is the multi-threaded job system: a pool of worker goroutines,
// each owning one deque and one job pool, coordinated by the get_job /
// execute / finish algorithm from the spec's scheduler core.
//
// It is ported from the source's JobSystem, with one necessary departure:
// the source identifies "the calling thread" through a thread-local static
// (threadId_), which Go goroutines have no equivalent for. Every operation
// is instead a method on a *Worker, the explicit stand-in for that
// thread-local — see JobFunction's doc comment.
type System struct {
	config Config

	deques []*deque
	pools  []*pool

	workers []*Worker

	mu   sync.Mutex
	cond *sync.Cond

	quitting atomic.Bool
	wg       sync.WaitGroup

	logger  *joblog.Logger
	metrics *jobtelemetry.Collector
}

// Worker is a System's stand-in for "the calling thread": the submitting
// goroutine (System.Main) or one of the spawned worker goroutines. All job
// operations are methods on a Worker because they must know which deque and
// pool to use for creation and submission — the source's threadId_.
type Worker struct {
	id  int
	sys *System
}

// ThreadID returns the worker's thread id, in [0, NumThreads). The
// submitting ("main") worker always has the highest id, NumThreads-1,
// exactly as the source's threadId_ = numThreads_ - 1.
func (w *Worker) ThreadID() int { return w.id }

// Option configures optional collaborators of a System.
type Option func(*System)

// WithLogger attaches a logger for worker lifecycle events. Without one, a
// System logs nothing.
func WithLogger(l *joblog.Logger) Option {
	return func(s *System) { s.logger = l }
}

// WithMetrics attaches a Prometheus collector. Without one, a System
// creates its own private collector (NewSystem's default), so Metrics() is
// always safe to call.
func WithMetrics(m *jobtelemetry.Collector) Option {
	return func(s *System) { s.metrics = m }
}

// NewSystem creates a job system. NumThreads is clamped to
// [1, runtime.NumCPU()]; JobsPerPool must be a power of two (2048 if zero).
// It spawns NumThreads-1 worker goroutines and reserves the highest thread
// id for the caller, returned via Main.
func NewSystem(config Config, opts ...Option) (*System, error) {
	config, err := config.normalize()
	if err != nil {
		return nil, err
	}

	s := &System{
		config:  config,
		deques:  make([]*deque, config.NumThreads),
		pools:   make([]*pool, config.NumThreads),
		workers: make([]*Worker, config.NumThreads),
		logger:  joblog.Noop(),
		metrics: jobtelemetry.NewCollector(),
	}
	s.cond = sync.NewCond(&s.mu)

	for _, opt := range opts {
		opt(s)
	}

	for i := 0; i < config.NumThreads; i++ {
		s.deques[i] = newDeque(config.JobsPerPool)
		s.pools[i] = newPool(config.JobsPerPool)
		s.workers[i] = &Worker{id: i, sys: s}
	}

	// The main thread gets the highest id (source: threadId_ = numThreads_ - 1).
	mainID := config.NumThreads - 1
	s.wg.Add(mainID) // one goroutine per worker id below mainID
	for i := 0; i < mainID; i++ {
		go s.workerLoop(s.workers[i])
	}

	s.logger.WithComponent("jobsystem").Info().
		Int("num_threads", config.NumThreads).
		Int("jobs_per_pool", config.JobsPerPool).
		Msg("job system started")

	return s, nil
}

// NumThreads returns the total number of threads executing jobs (workers
// plus the main/submitting one).
func (s *System) NumThreads() int { return s.config.NumThreads }

// Main returns the Worker handle for the submitting thread (id NumThreads-1).
// Only one goroutine should use it at a time, exactly as only the real main
// thread drives the source's JobSystem from outside a job function.
func (s *System) Main() *Worker { return s.workers[s.config.NumThreads-1] }

// Metrics returns the System's Prometheus collector (its own private one
// unless WithMetrics was used), so callers can register its registry with
// an HTTP handler.
func (s *System) Metrics() *jobtelemetry.Collector { return s.metrics }

// JobFromPacked decodes a PackedJobID produced by PackJobID back into a
// JobID. It returns NullJobID if the thread id is out of range.
func (s *System) JobFromPacked(p PackedJobID) JobID {
	threadID := int(p >> packedThreadIDShift)
	poolIndex := uint32(p) & packedPoolIndexMask
	if threadID < 0 || threadID >= s.config.NumThreads {
		return NullJobID
	}
	return JobID{job: &s.pools[threadID].jobs[poolIndex]}
}

// Close requests every worker goroutine to quit, wakes them, and waits for
// them to exit. Jobs already executing finish; jobs still queued in a
// deque are discarded (spec §5: "queued-but-unstarted jobs are discarded").
func (s *System) Close() {
	s.mu.Lock()
	s.quitting.Store(true)
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
	s.logger.WithComponent("jobsystem").Info().Msg("job system stopped")
}

// CreateJob creates a new root job (no parent) on the calling Worker's own
// pool. It returns NullJobID if the pool slot allocation index has wrapped
// onto a still-busy slot (spec §4.D's open resource-exhaustion question,
// resolved here by failing the allocation — see DESIGN.md).
func (w *Worker) CreateJob(fn JobFunction, data []byte) JobID {
	return w.createJob(nil, fn, data)
}

// CreateJobAsChild creates a new job as a child of parent: the parent's
// unfinished count is incremented before the child is published anywhere,
// per spec invariant 2.
func (w *Worker) CreateJobAsChild(parent JobID, fn JobFunction, data []byte) JobID {
	if parent.job == nil {
		if w.sys.config.Debug {
			panic("jobsystem: CreateJobAsChild with an invalid parent")
		}
		return NullJobID
	}
	parent.job.unfinishedJobs.Add(1)
	return w.createJob(parent.job, fn, data)
}

func (w *Worker) createJob(parent *job, fn JobFunction, data []byte) JobID {
	if fn == nil {
		if w.sys.config.Debug {
			panic("jobsystem: nil job function")
		}
		return NullJobID
	}
	if len(data) > PayloadCapacity {
		if w.sys.config.Debug {
			panic("jobsystem: payload exceeds capacity")
		}
		return NullJobID
	}

	j, idx, ok := w.sys.pools[w.id].retrieve()
	if !ok {
		w.sys.logger.WithWorker(w.id).Warn().Msg("pool slot still busy on allocation")
		return NullJobID
	}

	j.function = fn
	j.parent = parent
	j.threadID = uint8(w.id)
	j.poolIndex = idx
	j.unfinishedJobs.Store(1)
	j.continuationCount.Store(0)
	for i := range j.continuations {
		j.continuations[i] = nil
	}
	if len(data) > 0 {
		copy(j.payload[:], data)
	}
	// Publish last, with release ordering: any goroutine that later loads
	// live (pool.retrieve, JobID.IsValid) must see every field above.
	j.live.Store(true)

	kind := "root"
	if parent != nil {
		kind = "child"
	}
	w.sys.metrics.JobsCreated.WithLabelValues(kind).Inc()

	return JobID{job: j}
}

// AddContinuation queues continuation to run when ancestor finishes. It
// fails if ancestor's continuation array is already full (capacity
// JobNumContinuations), rolling back its speculative count increment —
// exactly the source's fetchAdd/fetchSub dance.
func (w *Worker) AddContinuation(ancestor, continuation JobID) bool {
	if ancestor.job == nil || continuation.job == nil {
		if w.sys.config.Debug {
			panic("jobsystem: AddContinuation with an invalid job id")
		}
		return false
	}

	// fetchAdd: the previous (pre-increment) value is what the source
	// calls `count`.
	prev := ancestor.job.continuationCount.Add(1) - 1
	if prev < JobNumContinuations {
		ancestor.job.continuations[prev] = continuation.job
		return true
	}
	ancestor.job.continuationCount.Add(-1)
	return false
}

// Run pushes job onto the calling Worker's own deque and wakes any parked
// worker goroutines.
func (w *Worker) Run(id JobID) {
	if id.job == nil {
		if w.sys.config.Debug {
			panic("jobsystem: Run with an invalid job id")
		}
		return
	}
	w.sys.deques[w.id].push(id.job)
	w.sys.updateQueueDepth(w.id)
	w.sys.cond.Broadcast()
}

// Wait blocks until job's unfinished count reaches zero, executing other
// available jobs in the meantime instead of sleeping — the waiter
// busy-participates in draining the graph rather than parking.
func (w *Worker) Wait(id JobID) {
	if id.job == nil {
		if w.sys.config.Debug {
			panic("jobsystem: Wait with an invalid job id")
		}
		return
	}
	for id.job.unfinishedJobs.Load() > 0 {
		if j := w.sys.getJob(w); j != nil {
			w.sys.executeJob(w, j)
		}
		runtime.Gosched()
	}
}

// Unfinished returns a snapshot of id's unfinished count.
func (w *Worker) Unfinished(id JobID) int32 { return id.Unfinished() }

// getJob implements the spec's get_job algorithm: pop from the calling
// worker's own deque, falling back to stealing from every other worker in
// round-robin order starting at self+1.
func (s *System) getJob(w *Worker) *job {
	if j, ok := s.deques[w.id].pop(); ok {
		s.updateQueueDepth(w.id)
		return j
	}

	n := s.config.NumThreads
	for i := 0; i < n; i++ {
		victim := (w.id + i + 1) % n
		if victim == w.id {
			continue
		}
		s.metrics.StealAttempts.Inc()
		if j, ok := s.deques[victim].steal(); ok {
			s.metrics.StealSuccess.Inc()
			s.updateQueueDepth(victim)
			return j
		}
	}
	return nil
}

// executeJob runs job.function, then propagates completion.
func (s *System) executeJob(w *Worker, j *job) {
	id := JobID{job: j}
	j.function(w, id, &j.payload)
	s.finish(w, j)
}

// finish implements the spec's finish algorithm: decrement the unfinished
// count; at zero, free the slot, propagate to the parent, and push
// continuations onto the current thread's deque. The parent chain is
// walked iteratively rather than recursively (spec §9 explicitly permits
// this transformation).
func (s *System) finish(w *Worker, j *job) {
	cur := j
	for cur != nil {
		remaining := cur.unfinishedJobs.Add(-1)
		if remaining > 0 {
			return
		}

		cur.function = nil
		// Release store: synchronizes with the acquire load in
		// pool.retrieve/JobID.IsValid, so the clear above (and every
		// earlier plain write) is visible before any other goroutine can
		// observe this slot as free or this job as invalid.
		cur.live.Store(false)
		s.metrics.JobsFinished.WithLabelValues(finishedKind(cur)).Inc()

		count := cur.continuationCount.Load()
		for i := int32(0); i < count && i < JobNumContinuations; i++ {
			if cont := cur.continuations[i]; cont != nil {
				s.deques[w.id].push(cont)
			}
		}
		s.updateQueueDepth(w.id)

		cur = cur.parent
	}
}

// updateQueueDepth refreshes the QueueDepth gauge for one worker's deque.
// It is a snapshot, same as deque.size() itself: informational only.
func (s *System) updateQueueDepth(threadID int) {
	s.metrics.QueueDepth.WithLabelValues(strconv.Itoa(threadID)).Set(float64(s.deques[threadID].size()))
}

func finishedKind(j *job) string {
	if j.parent != nil {
		return "child"
	}
	return "root"
}

func (s *System) workerLoop(w *Worker) {
	defer s.wg.Done()

	s.logger.WithWorker(w.id).Debug().Msg("worker starting")
	defer s.logger.WithWorker(w.id).Debug().Msg("worker exiting")

	for {
		var j *job
		for {
			if s.quitting.Load() {
				return
			}
			j = s.getJob(w)
			if j != nil {
				break
			}
			s.logger.WithWorker(w.id).Debug().Msg("worker parking")
			s.mu.Lock()
			// Re-check under the lock: Close sets quitting while holding it,
			// so a worker cannot miss the wake-up between this check and Wait.
			if s.quitting.Load() {
				s.mu.Unlock()
				return
			}
			s.metrics.ParkedWorkers.Inc()
			s.cond.Wait()
			s.metrics.ParkedWorkers.Dec()
			s.mu.Unlock()
		}
		s.executeJob(w, j)
	}
}
