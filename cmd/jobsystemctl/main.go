// Command jobsystemctl is a small demo/smoke-test harness for the job
// system: it runs a fan-out-with-continuation scenario and a
// parallel-for-sum scenario, optionally against a YAML config file, and
// prints what ran. Equivalent in spirit to the teacher's examples/*/main.go
// demo binaries.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/go-foundations/jobsystem"
	"github.com/go-foundations/jobsystem/internal/jobconfig"
	"github.com/go-foundations/jobsystem/internal/joblog"
	"github.com/go-foundations/jobsystem/parallelfor"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML job system config file (optional)")
		numThreads = flag.Int("threads", 0, "override NumThreads (0 = from config or runtime.NumCPU)")
		logLevel   = flag.String("log-level", "info", "debug, info, warn, error, disabled")
	)
	flag.Parse()

	cfg := jobsystem.DefaultConfig()
	if *configPath != "" {
		loaded, err := jobconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *numThreads > 0 {
		cfg.NumThreads = *numThreads
	}

	logger := joblog.New(joblog.Config{Level: *logLevel})

	sys, err := jobsystem.NewSystem(cfg, jobsystem.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sys.Close()

	runFanOut(sys)
	runParallelSum(sys)
}

// runFanOut creates a parent job with several children and a continuation,
// and waits for the whole graph to finish.
func runFanOut(sys *jobsystem.System) {
	w := sys.Main()
	var childRuns int32

	parent := w.CreateJob(func(w *jobsystem.Worker, id jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {
		for i := 0; i < 4; i++ {
			child := w.CreateJobAsChild(id, func(_ *jobsystem.Worker, _ jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {
				atomic.AddInt32(&childRuns, 1)
			}, nil)
			w.Run(child)
		}
	}, nil)

	done := w.CreateJob(func(_ *jobsystem.Worker, _ jobsystem.JobID, _ *[jobsystem.PayloadCapacity]byte) {
		fmt.Printf("fan-out: %d children ran\n", atomic.LoadInt32(&childRuns))
	}, nil)
	w.AddContinuation(parent, done)

	w.Run(parent)
	w.Wait(parent)
	w.Wait(done)
}

// runParallelSum sums a slice using parallelfor.For and prints the result.
func runParallelSum(sys *jobsystem.System) {
	const n = 1_000_000
	data := make([]int64, n)
	for i := range data {
		data[i] = int64(i)
	}

	var total int64
	parallelfor.For(sys, n, parallelfor.CountSplitter(4096), func(start, length int) {
		var partial int64
		for i := start; i < start+length; i++ {
			partial += data[i]
		}
		atomic.AddInt64(&total, partial)
	})

	fmt.Printf("parallel sum of %d elements: %d\n", n, total)
}
