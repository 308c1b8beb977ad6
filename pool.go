package jobsystem

// pool is a per-thread ring of jobs with an owner-private monotonic
// allocator index; a slot is free iff its live flag is clear. Only the
// owning worker ever retrieves from its own pool, so allocatedJobs needs no
// synchronization (mirrors the source's JobQueue::retrieveJob / allocatedJobs_),
// but a slot's job may have been stolen and finished by another goroutine,
// so the liveness check itself must be an atomic acquire load — see job.go.
type pool struct {
	jobs          []job
	mask          uint32
	allocatedJobs uint32
}

func newPool(capacity int) *pool {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("jobsystem: pool capacity must be a positive power of two")
	}
	return &pool{
		jobs: make([]job, capacity),
		mask: uint32(capacity - 1),
	}
}

// retrieve returns the next slot in allocation order, together with its
// index within the pool (needed for the packed JobID encoding). It fails
// when the allocation index has wrapped onto a slot that is still occupied
// by an unfinished job — the spec leaves the choice open between failing
// the allocation and memset-ing ahead of time; this implementation takes
// the former, simpler option (see DESIGN.md).
func (p *pool) retrieve() (*job, uint32, bool) {
	index := p.allocatedJobs
	p.allocatedJobs++
	slot := index & p.mask
	j := &p.jobs[slot]
	if j.live.Load() {
		return nil, 0, false
	}
	return j, slot, true
}
