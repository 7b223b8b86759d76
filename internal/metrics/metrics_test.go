package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSummary(t *testing.T) {
	c := NewCollector()
	c.RecordOperation("deposit")
	c.RecordOperation("deposit")
	c.RecordPoll("found")
	c.RecordEvents(3)
	c.RecordProofGeneration("Deposit", 1500*time.Millisecond)
	c.RecordError("relayer")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("deposit")))

	s, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2.0, s[MetricOperationCount+"{method=deposit}"])
	assert.Equal(t, 1.0, s[MetricRelayerPolls+"{outcome=found}"])
	assert.Equal(t, 3.0, s[MetricEventsScanned])
	assert.Equal(t, 1.0, s[MetricProofGenerationTime+"{circuit=Deposit}_count"])
	assert.InDelta(t, 1.5, s[MetricProofGenerationTime+"{circuit=Deposit}_sum"], 1e-9)
	assert.Equal(t, 1.0, s[MetricErrorCount+"{type=relayer}"])
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordOperation("withdraw")
	c.RecordError("x")
	s, err := c.Summary()
	require.NoError(t, err)
	assert.Empty(t, s)
}
