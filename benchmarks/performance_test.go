package benchmarks

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/go-foundations/jobsystem"
	"github.com/go-foundations/jobsystem/parallelfor"
)

// BenchmarkFanOut measures creating and running N independent child jobs
// under one parent, waiting for the whole fan-out to finish.
func BenchmarkFanOut(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("Children_%d", n), func(b *testing.B) {
			sys, err := jobsystem.NewSystem(jobsystem.DefaultConfig())
			if err != nil {
				b.Fatal(err)
			}
			defer sys.Close()
			w := sys.Main()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				parent := w.CreateJob(func(w *jobsystem.Worker, id jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {
					for j := 0; j < n; j++ {
						child := w.CreateJobAsChild(id, func(_ *jobsystem.Worker, _ jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {}, nil)
						w.Run(child)
					}
				}, nil)
				w.Run(parent)
				w.Wait(parent)
			}
		})
	}
}

// BenchmarkWorkerCounts measures the same fan-out workload across different
// NumThreads settings.
func BenchmarkWorkerCounts(b *testing.B) {
	for _, numThreads := range []int{1, 2, 4, 8, 16} {
		b.Run(fmt.Sprintf("Threads_%d", numThreads), func(b *testing.B) {
			cfg := jobsystem.DefaultConfig()
			cfg.NumThreads = numThreads
			sys, err := jobsystem.NewSystem(cfg)
			if err != nil {
				b.Fatal(err)
			}
			defer sys.Close()
			w := sys.Main()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				parent := w.CreateJob(func(w *jobsystem.Worker, id jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {
					for j := 0; j < 100; j++ {
						child := w.CreateJobAsChild(id, func(_ *jobsystem.Worker, _ jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {}, nil)
						w.Run(child)
					}
				}, nil)
				w.Run(parent)
				w.Wait(parent)
			}
		})
	}
}

// BenchmarkParallelFor measures parallelfor.For over a range of increasing
// size with a fixed split threshold.
func BenchmarkParallelFor(b *testing.B) {
	for _, n := range []int{1_000, 100_000, 4_000_000} {
		b.Run(fmt.Sprintf("Range_%d", n), func(b *testing.B) {
			sys, err := jobsystem.NewSystem(jobsystem.DefaultConfig())
			if err != nil {
				b.Fatal(err)
			}
			defer sys.Close()

			var total int64

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				atomic.StoreInt64(&total, 0)
				parallelfor.For(sys, n, parallelfor.CountSplitter(4096), func(start, length int) {
					var partial int64
					for j := start; j < start+length; j++ {
						partial += int64(j)
					}
					atomic.AddInt64(&total, partial)
				})
			}
		})
	}
}
