package jobsystem

import "sync/atomic"

// PayloadCapacity is the number of bytes of inline user data a Job carries.
// It matches the source's 52-byte budget for the pointer-width JobId mode:
// a cache line minus the function pointer, parent pointer, the two atomic
// counters and the continuation array.
const PayloadCapacity = 52

// JobNumContinuations is the fixed capacity of a Job's continuation slots.
const JobNumContinuations = 6

// JobFunction is the work a Job performs. It receives the Worker it is
// running on (so it may create further jobs on the executing worker's own
// pool/deque, per the spec's "those jobs land in the executing worker's
// pool/deque"), the job's own id, and a pointer to its inline payload.
//
// The source models "the calling thread" as a thread-local static; Go
// goroutines have no usable thread-local storage, so the Worker is passed
// explicitly instead. It plays exactly the role of the source's thread-local
// threadId_: the executing context a nested CreateJob/Run call is scoped to.
type JobFunction func(w *Worker, id JobID, payload *[PayloadCapacity]byte)

// job is a fixed-size record holding all state for one unit of work.
//
// Field order keeps the hot atomics (unfinishedJobs, continuationCount) away
// from the payload bytes: one goroutine writes the payload before Run, other
// goroutines spin on the counters, and false sharing between the two would
// otherwise bounce the whole cache line.
type job struct {
	function  JobFunction
	parent    *job
	threadID  uint8
	poolIndex uint32

	// live gates every cross-goroutine read of function: it is stored with
	// release ordering wherever function is (re)assigned and loaded with
	// acquire ordering by any goroutine other than the job's current owner
	// (pool.retrieve, JobID.IsValid). function itself stays a plain field —
	// spec §4.D step 2a's "store function = null (release ordering)" is
	// satisfied by live, not by making function itself atomic.
	live atomic.Bool

	unfinishedJobs atomic.Int32

	continuationCount atomic.Int32
	continuations     [JobNumContinuations]*job

	payload [PayloadCapacity]byte
}

// JobID is an opaque handle to a job. The zero value is NullJobID: "no job".
//
// The spec permits either a raw pointer or a packed (threadId, poolIndex)
// integer as the representation. This implementation keeps the pointer as
// the canonical one (Go's garbage collector makes a bare pointer the
// natural, safe choice) and exposes PackJobID/System.JobFromPacked so a caller that
// wants the compact encoding described in the spec's Configuration knobs
// (Config.PackedIDs) can still obtain one.
type JobID struct {
	job *job
}

// NullJobID denotes "no job".
var NullJobID = JobID{}

// IsNull reports whether id is the null job id.
func (id JobID) IsNull() bool {
	return id.job == nil
}

// IsValid reports whether id currently refers to a live job. The check is
// an acquire load of the job's live flag, synchronizing with the release
// store finish() performs when the slot is freed — so a caller on any
// goroutine always observes a clear, not a stale, result. Validity is not
// lifetime-checked — an id whose slot has been reallocated since will
// report whatever the new occupant's validity happens to be.
func (id JobID) IsValid() bool {
	return id.job != nil && id.job.live.Load()
}

// Unfinished returns a snapshot of the job's unfinished-count: 1 for itself
// plus one for every not-yet-finished child. Zero means finished.
func (id JobID) Unfinished() int32 {
	if id.job == nil {
		return 0
	}
	return id.job.unfinishedJobs.Load()
}

// PackedJobID is the compact (threadId, poolIndex) encoding described in the
// spec's Configuration knobs: upper 5 bits thread id, lower 11 bits pool
// index, limiting packed mode to 32 threads and 2048 jobs per pool.
type PackedJobID uint16

const (
	packedThreadIDShift = 11
	packedPoolIndexMask = (1 << packedThreadIDShift) - 1
	packedMaxThreads    = 1 << (16 - packedThreadIDShift)
)

// PackJobID encodes id into the compact representation. A null id encodes
// as 0. It panics if the job's thread id / pool index do not fit the packed layout
// (more than 32 threads or 2048 jobs per pool) — the same contract violation
// the spec's FATAL_ASSERT enforces around packJobId.
func PackJobID(id JobID) PackedJobID {
	if id.job == nil {
		return PackedJobID(0)
	}
	if int(id.job.threadID) >= packedMaxThreads || id.job.poolIndex > packedPoolIndexMask {
		panic("jobsystem: job id does not fit the packed representation")
	}
	return PackedJobID(uint16(id.job.threadID)<<packedThreadIDShift | uint16(id.job.poolIndex))
}
