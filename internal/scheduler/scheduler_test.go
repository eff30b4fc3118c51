package scheduler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenekit/scenetree/internal/behaviour"
	coresys "github.com/scenekit/scenetree/internal/core/system"
	"github.com/scenekit/scenetree/internal/hierarchy"
	"github.com/scenekit/scenetree/internal/metrics"
)

type recorder struct {
	*behaviour.Base
	log      *[]string
	onBefore func()
}

func (p *recorder) BeforeUpdate() {
	*p.log = append(*p.log, p.Name()+".before")
	if p.onBefore != nil {
		p.onBefore()
	}
}
func (p *recorder) AfterUpdate()      { *p.log = append(*p.log, p.Name()+".after") }
func (p *recorder) BeforeLateUpdate() { *p.log = append(*p.log, p.Name()+".before_late") }
func (p *recorder) AfterLateUpdate()  { *p.log = append(*p.log, p.Name()+".after_late") }

type harness struct {
	tree   *hierarchy.Tree
	runner *coresys.Runner
	sched  *Scheduler
	log    []string
	m      *metrics.Collectors
}

func newHarness(t *testing.T) *harness {
	h := &harness{}
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	h.m = m
	h.tree = hierarchy.New(behaviour.ResolveParent(nil))
	h.runner = coresys.NewRunner()
	h.sched = New(h.tree, nil, m)

	// host dispatch registered first; the scheduler still brackets it
	h.runner.Register(coresys.Func{P: coresys.PhaseUpdate, Fn: func(time.Duration) { h.log = append(h.log, "host.update") }})
	h.runner.Register(coresys.Func{P: coresys.PhaseLateUpdate, Fn: func(time.Duration) { h.log = append(h.log, "host.late") }})
	h.sched.Install(h.runner)
	return h
}

func (h *harness) add(t *testing.T, name string, parent behaviour.Behaviour) *recorder {
	p := &recorder{Base: behaviour.NewBase(name), log: &h.log}
	if parent != nil {
		p.SetRoot(parent)
	}
	require.NoError(t, h.tree.Add(p))
	return p
}

func TestPhasesBracketHostDispatch(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "a", nil)
	h.add(t, "b", a)

	h.runner.Tick(16 * time.Millisecond)

	assert.Equal(t, []string{
		"a.before", "b.before",
		"host.update",
		"a.after", "b.after",
		"a.before_late", "b.before_late",
		"host.late",
		"a.after_late", "b.after_late",
	}, h.log)
	assert.Equal(t, 16*time.Millisecond, h.sched.FrameDelta())
	assert.Equal(t, 2.0, testutil.ToFloat64(h.m.Callbacks.WithLabelValues("before_update")))
}

func TestPausedDisabledAndDestroyedAreSkipped(t *testing.T) {
	h := newHarness(t)
	root := h.add(t, "root", nil)
	child := h.add(t, "child", root)
	disabled := h.add(t, "disabled", nil)
	gone := h.add(t, "gone", nil)
	live := h.add(t, "live", nil)

	h.tree.Pause(root)
	disabled.SetEnabled(false)
	gone.MarkDestroyed()

	h.runner.TickPhase(coresys.PhaseBeforeUpdate, 0)
	assert.Equal(t, []string{"live.before"}, h.log)

	h.log = nil
	h.tree.Unpause(root)
	h.tree.Pause(child)
	h.runner.TickPhase(coresys.PhaseAfterUpdate, 0)
	assert.Equal(t, []string{"root.after", "live.after"}, h.log)
}

func TestNodesRemovedMidPassAreSkipped(t *testing.T) {
	h := newHarness(t)
	first := h.add(t, "first", nil)
	second := h.add(t, "second", nil)
	var late *recorder
	first.onBefore = func() {
		require.NoError(t, h.tree.Remove(second))
		late = &recorder{Base: behaviour.NewBase("late"), log: &h.log}
		require.NoError(t, h.tree.Add(late))
	}

	h.runner.TickPhase(coresys.PhaseBeforeUpdate, 0)
	assert.Equal(t, []string{"first.before"}, h.log)

	h.log = nil
	first.onBefore = nil
	h.runner.TickPhase(coresys.PhaseBeforeUpdate, 0)
	assert.Equal(t, []string{"first.before", "late.before"}, h.log)
}

func TestPauseDuringPassAppliesImmediately(t *testing.T) {
	h := newHarness(t)
	first := h.add(t, "first", nil)
	second := h.add(t, "second", nil)
	first.onBefore = func() { h.tree.Pause(second) }

	h.runner.TickPhase(coresys.PhaseBeforeUpdate, 0)
	assert.Equal(t, []string{"first.before"}, h.log)
}

type exploding struct{ *behaviour.Base }

func (exploding) AfterLateUpdate() { panic("kaboom") }

func TestPanicIsRecoveredAndCounted(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tree.Add(&exploding{Base: behaviour.NewBase("x")}))
	h.add(t, "after", nil)

	assert.NotPanics(t, func() { h.runner.TickPhase(coresys.PhaseAfterLateUpdate, 0) })
	assert.Equal(t, []string{"after.after_late"}, h.log)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.CallbackPanics.WithLabelValues("after_late_update")))
}
