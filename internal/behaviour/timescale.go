package behaviour

import (
	"reflect"
	"time"
)

// MinTimeScale is the floor for relative and effective time scales.
// Neither is ever zero.
const MinTimeScale = 1e-6

// maxChainDepth bounds ancestor walks so a cyclic ParentFunc cannot hang.
const maxChainDepth = 256

// ParentFunc resolves the implicit parent of b: its explicit root if set,
// otherwise the instance owning its scene. Nil means b is top level.
type ParentFunc func(b Behaviour) Behaviour

// ResolveParent is the default parent lookup. scene maps a scene handle to
// the behaviour owning that scene and may be nil.
func ResolveParent(scene func(SceneHandle) Behaviour) ParentFunc {
	return func(b Behaviour) Behaviour {
		if root := b.Root(); !IsNil(root) {
			return root
		}
		if scene == nil {
			return nil
		}
		owner := scene(b.SceneHandle())
		if IsNil(owner) || owner.ID() == b.ID() {
			return nil
		}
		return owner
	}
}

// TimeScale returns b's effective time scale: its relative scale multiplied
// by the effective scale of its resolved parent chain.
func TimeScale(b Behaviour, parent ParentFunc) float64 {
	if IsNil(b) {
		return 1.0
	}
	scale := b.RelativeTimeScale()
	if parent != nil {
		cur := parent(b)
		for depth := 0; !IsNil(cur) && depth < maxChainDepth; depth++ {
			scale *= cur.RelativeTimeScale()
			cur = parent(cur)
		}
	}
	return clampScale(scale)
}

// DeltaTime scales a frame delta by b's effective time scale.
func DeltaTime(b Behaviour, parent ParentFunc, dt time.Duration) time.Duration {
	return time.Duration(float64(dt) * TimeScale(b, parent))
}

func clampScale(scale float64) float64 {
	if scale < MinTimeScale || scale != scale {
		return MinTimeScale
	}
	return scale
}

// IsNil reports whether b is nil or a typed nil pointer stored in the
// interface.
func IsNil(b Behaviour) bool {
	if b == nil {
		return true
	}
	v := reflect.ValueOf(b)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
