// Package parallelfor implements a data-parallel for loop on top of the
// root jobsystem package's public API only: it creates one root job that
// recursively subdivides its range into child jobs, exactly the shape
// shown by the source's nc::parallelFor(dataArray, count, &function,
// nc::CountSplitter(count)) calls.
package parallelfor

import (
	"sync"

	"github.com/go-foundations/jobsystem"
)

// Splitter decides whether a range of the given length should be split
// further. CountSplitter is the only one the source ships; others (e.g. a
// data-size splitter) are easy to add behind the same interface.
type Splitter interface {
	// Split reports whether a range of length count should still be
	// divided into two child ranges.
	Split(count int) bool
}

// CountSplitter splits a range until each piece holds at most the
// splitter's value in elements, mirroring the source's CountSplitter.
type CountSplitter int

// Split reports whether count exceeds the splitter's threshold.
func (c CountSplitter) Split(count int) bool {
	return count > int(c)
}

// Func is the per-element body of a parallel-for job, receiving the start
// index and length of the range it owns.
type Func func(start, length int)

// rangeJob carries the data a Job's fixed inline payload is too small to
// hold (an interface value plus a closure): the source's equivalent data
// blob stores small POD ranges directly and captures the splitter/function
// in the surrounding lambda; here the payload instead carries nothing and
// the job looks itself up in this side table by JobID, freed as soon as
// it's read.
type rangeJob struct {
	start    int
	length   int
	splitter Splitter
	fn       Func
}

var (
	rangesMu sync.Mutex
	ranges   = map[jobsystem.JobID]*rangeJob{}
)

func storeRange(id jobsystem.JobID, r *rangeJob) {
	rangesMu.Lock()
	ranges[id] = r
	rangesMu.Unlock()
}

func takeRange(id jobsystem.JobID) *rangeJob {
	rangesMu.Lock()
	r := ranges[id]
	delete(ranges, id)
	rangesMu.Unlock()
	return r
}

// For creates and runs a parallel-for job over [0, count) and blocks until
// every subdivision has finished, mirroring the source's single blocking
// nc::parallelFor call. body is invoked once per leaf range, potentially
// from many different workers concurrently — it must not share mutable
// state across calls without its own synchronization.
func For(sys *jobsystem.System, count int, splitter Splitter, body Func) {
	if count <= 0 {
		return
	}
	w := sys.Main()
	root := w.CreateJob(rangeJobFunction, nil)
	storeRange(root, &rangeJob{start: 0, length: count, splitter: splitter, fn: body})
	w.Run(root)
	w.Wait(root)
}

func rangeJobFunction(w *jobsystem.Worker, id jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {
	r := takeRange(id)
	if r == nil {
		return
	}

	if !r.splitter.Split(r.length) {
		r.fn(r.start, r.length)
		return
	}

	leftLength := r.length / 2
	rightLength := r.length - leftLength

	left := w.CreateJobAsChild(id, rangeJobFunction, nil)
	storeRange(left, &rangeJob{start: r.start, length: leftLength, splitter: r.splitter, fn: r.fn})

	right := w.CreateJobAsChild(id, rangeJobFunction, nil)
	storeRange(right, &rangeJob{start: r.start + leftLength, length: rightLength, splitter: r.splitter, fn: r.fn})

	w.Run(left)
	w.Run(right)
}
