package system

import "time"

// Phase defines execution ordering within a single frame.
//
// PhaseUpdate and PhaseLateUpdate belong to the host's own per-object
// dispatch. The four phases around them are where the behaviour scheduler
// splices in, so every before-hook sees pre-frame state of all host objects
// and every after-hook sees post-frame state.
type Phase int

const (
	PhaseEarly            Phase = iota // 0: pump async scene ops, dispatch last frame's events
	PhaseBeforeUpdate                  // 1: behaviour BeforeUpdate
	PhaseUpdate                        // 2: host Update dispatch
	PhaseAfterUpdate                   // 3: behaviour AfterUpdate
	PhaseBeforeLateUpdate              // 4: behaviour BeforeLateUpdate
	PhaseLateUpdate                    // 5: host LateUpdate dispatch
	PhaseAfterLateUpdate               // 6: behaviour AfterLateUpdate
	PhaseCleanup                       // 7: destroy queued objects
)

func (p Phase) String() string {
	switch p {
	case PhaseEarly:
		return "early"
	case PhaseBeforeUpdate:
		return "before_update"
	case PhaseUpdate:
		return "update"
	case PhaseAfterUpdate:
		return "after_update"
	case PhaseBeforeLateUpdate:
		return "before_late_update"
	case PhaseLateUpdate:
		return "late_update"
	case PhaseAfterLateUpdate:
		return "after_late_update"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a plain function to System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
