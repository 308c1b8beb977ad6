package jobtelemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegistersAllMetrics(t *testing.T) {
	c := NewCollector()

	c.JobsCreated.WithLabelValues("root").Inc()
	c.JobsFinished.WithLabelValues("root").Inc()
	c.StealAttempts.Inc()
	c.StealSuccess.Inc()
	c.QueueDepth.WithLabelValues("0").Set(3)
	c.ParkedWorkers.Set(1)

	require.Equal(t, float64(1), testutil.ToFloat64(c.JobsCreated.WithLabelValues("root")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.JobsFinished.WithLabelValues("root")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.StealAttempts))
	require.Equal(t, float64(1), testutil.ToFloat64(c.StealSuccess))
	require.Equal(t, float64(3), testutil.ToFloat64(c.QueueDepth.WithLabelValues("0")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.ParkedWorkers))
}

func TestRegistryIsNotShared(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	require.NotSame(t, a.Registry(), b.Registry())
}
