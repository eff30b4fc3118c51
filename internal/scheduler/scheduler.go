// Package scheduler drives the behaviour tree once per frame in four passes
// bracketing the host's Update and LateUpdate dispatch.
package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	coresys "github.com/scenekit/scenetree/internal/core/system"
	"github.com/scenekit/scenetree/internal/hierarchy"
	"github.com/scenekit/scenetree/internal/metrics"
)

// Loop is the host frame loop the scheduler splices into. *system.Runner
// satisfies it.
type Loop interface {
	Register(s coresys.System)
}

// Scheduler owns the four behaviour passes.
type Scheduler struct {
	tree    *hierarchy.Tree
	log     *zap.Logger
	metrics *metrics.Collectors
	dt      time.Duration
}

func New(tree *hierarchy.Tree, log *zap.Logger, m *metrics.Collectors) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{tree: tree, log: log, metrics: m}
}

// Install registers the four passes on loop. BeforeUpdate and AfterUpdate
// land right before and after the host's PhaseUpdate dispatch,
// BeforeLateUpdate and AfterLateUpdate around PhaseLateUpdate.
func (s *Scheduler) Install(loop Loop) {
	loop.Register(&pass{s: s, phase: coresys.PhaseBeforeUpdate, hook: behaviour.Behaviour.BeforeUpdate})
	loop.Register(&pass{s: s, phase: coresys.PhaseAfterUpdate, hook: behaviour.Behaviour.AfterUpdate})
	loop.Register(&pass{s: s, phase: coresys.PhaseBeforeLateUpdate, hook: behaviour.Behaviour.BeforeLateUpdate})
	loop.Register(&pass{s: s, phase: coresys.PhaseAfterLateUpdate, hook: behaviour.Behaviour.AfterLateUpdate})
}

// FrameDelta returns the unscaled delta of the frame being run.
func (s *Scheduler) FrameDelta() time.Duration { return s.dt }

// run visits every live node once. A node gets its hook only if it has a
// behaviour that is not destroyed, is active and enabled, and is not
// paused at the moment it is reached.
func (s *Scheduler) run(phase coresys.Phase, dt time.Duration, hook func(behaviour.Behaviour)) {
	s.dt = dt
	start := time.Now()
	name := phase.String()
	s.tree.Each(func(n *hierarchy.Node) {
		b := n.Behaviour()
		if b == nil || n.IsPaused() || b.Destroyed() || !b.ActiveAndEnabled() {
			return
		}
		s.invoke(name, b, hook)
	})
	s.metrics.ObservePhase(name, time.Since(start))
}

func (s *Scheduler) invoke(phase string, b behaviour.Behaviour, hook func(behaviour.Behaviour)) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.ObservePanic(phase)
			s.log.Error("behaviour callback panicked",
				zap.String("phase", phase), zap.String("name", b.Name()), zap.Any("panic", r))
		}
	}()
	hook(b)
	s.metrics.ObserveCallback(phase)
}

type pass struct {
	s     *Scheduler
	phase coresys.Phase
	hook  func(behaviour.Behaviour)
}

func (p *pass) Phase() coresys.Phase { return p.phase }

func (p *pass) Update(dt time.Duration) {
	p.s.run(p.phase, dt, p.hook)
}
