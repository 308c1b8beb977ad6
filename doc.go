// Package jobsystem implements a multi-threaded, work-stealing job system:
// parent/child jobs, continuations, a parallel-for driver (in the sibling
// parallelfor package) and a single-threaded fallback (in the sibling serial
// package).
//
// A job is a small, fixed-size record holding a function pointer and an
// inline payload. Jobs are created by the calling goroutine, pushed onto its
// own per-worker deque with Run, and executed by whichever worker pops or
// steals them first. A parent job is considered unfinished while any of its
// descendants are unfinished; continuations are queued automatically when
// their ancestor finishes.
//
// The scheduler has no persistent task graph, no cancellation, no priorities
// and no stealing heuristics beyond round-robin: it is deliberately the
// minimal machine described by the spec, not a general task-graph engine.
package jobsystem
