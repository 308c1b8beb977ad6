package serial

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SerialTestSuite struct {
	suite.Suite
}

func TestSerialTestSuite(t *testing.T) {
	suite.Run(t, new(SerialTestSuite))
}

func noop(_ *System, _ JobID, _ *[PayloadCapacity]byte) {}

func (ts *SerialTestSuite) newSystem() *System {
	sys, err := NewSystem(DefaultConfig())
	ts.Require().NoError(err)
	return sys
}

func (ts *SerialTestSuite) TestEmptyRoot() {
	sys := ts.newSystem()
	r := sys.CreateJob(noop, nil)
	sys.Run(r)
	sys.Wait(r)
	ts.EqualValues(0, r.Unfinished())
}

func (ts *SerialTestSuite) TestFanOut() {
	sys := ts.newSystem()

	var counter int
	incr := func(_ *System, _ JobID, _ *[PayloadCapacity]byte) {
		counter++
	}

	root := sys.CreateJob(noop, nil)
	for i := 0; i < 256; i++ {
		child := sys.CreateJobAsChild(root, incr, nil)
		sys.Run(child)
	}
	sys.Run(root)
	sys.Wait(root)

	ts.Equal(256, counter)
	ts.EqualValues(0, root.Unfinished())
}

func (ts *SerialTestSuite) TestContinuations() {
	sys := ts.newSystem()

	var ran [7]int
	makeContinuation := func(idx int) JobID {
		i := idx
		return sys.CreateJob(func(_ *System, _ JobID, _ *[PayloadCapacity]byte) {
			ran[i]++
		}, nil)
	}

	a := sys.CreateJob(noop, nil)
	var continuations [7]JobID
	for i := range continuations {
		continuations[i] = makeContinuation(i)
	}

	for i := 0; i < 6; i++ {
		ts.True(sys.AddContinuation(a, continuations[i]))
	}
	ts.False(sys.AddContinuation(a, continuations[6]))

	sys.Run(a)
	sys.Wait(a)
	for i := 0; i < 6; i++ {
		sys.Wait(continuations[i])
		ts.Equal(1, ran[i])
	}
	ts.Equal(0, ran[6])
}

func (ts *SerialTestSuite) TestThreeLevelGraph() {
	sys := ts.newSystem()

	var leaves int
	leaf := func(_ *System, _ JobID, _ *[PayloadCapacity]byte) { leaves++ }

	root := sys.CreateJob(noop, nil)
	for i := 0; i < 10; i++ {
		mid := sys.CreateJobAsChild(root, noop, nil)
		for j := 0; j < 10; j++ {
			branch := sys.CreateJobAsChild(mid, noop, nil)
			for k := 0; k < 10; k++ {
				l := sys.CreateJobAsChild(branch, leaf, nil)
				sys.Run(l)
			}
			sys.Run(branch)
		}
		sys.Run(mid)
	}
	sys.Run(root)
	sys.Wait(root)

	ts.Equal(1000, leaves)
	ts.EqualValues(0, root.Unfinished())
}

func (ts *SerialTestSuite) TestPoolSlotReuse() {
	cfg := DefaultConfig()
	cfg.JobsPerPool = 8
	sys, err := NewSystem(cfg)
	ts.Require().NoError(err)

	for round := 0; round < 3; round++ {
		for i := 0; i < cfg.JobsPerPool; i++ {
			j := sys.CreateJob(noop, nil)
			ts.False(j.IsNull())
			sys.Run(j)
			sys.Wait(j)
		}
	}
}

func (ts *SerialTestSuite) TestNewSystemRejectsNonPowerOfTwoPool() {
	_, err := NewSystem(Config{JobsPerPool: 100})
	ts.Error(err)
}
