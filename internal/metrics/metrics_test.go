package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveCallback("before_update")
	c.ObserveCallback("before_update")
	c.ObserveTransition("pause")
	c.SetNodes(4)
	c.ObservePhase("before_update", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Callbacks.WithLabelValues("before_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PauseTransitions.WithLabelValues("pause")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Nodes))

	var buf bytes.Buffer
	require.NoError(t, Dump(reg, &buf))
	assert.Contains(t, buf.String(), `scenetree_callbacks_total{phase="before_update"} 2`)
	assert.Contains(t, buf.String(), "scenetree_nodes 4")
	assert.Contains(t, buf.String(), `scenetree_phase_duration_seconds_count{phase="before_update"} 1`)
	assert.Contains(t, buf.String(), "# TYPE scenetree_phase_duration_seconds histogram")
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.ObserveCallback("x")
		c.ObservePanic("x")
		c.ObservePhase("x", time.Second)
		c.SetNodes(1)
		c.SetScenes(1)
		c.ObserveTransition("pause")
	})
}
