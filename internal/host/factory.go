package host

import (
	"fmt"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/data"
	"github.com/scenekit/scenetree/internal/runtime"
	"github.com/scenekit/scenetree/internal/scripting"
)

// NewFactory builds components the usual way: objects owning a scene become
// scene instances managed by m, scripted objects get a Lua behaviour from
// engine, the rest a plain behaviour. engine may be nil when no object is
// scripted.
func NewFactory(rt *runtime.Runtime, engine *scripting.Engine, m *SceneManager) Factory {
	return func(obj data.ObjectEntry) (Component, error) {
		switch {
		case obj.Scene != nil:
			entry := m.Manifest().Scene(*obj.Scene)
			if entry == nil {
				return nil, fmt.Errorf("scene %d: %w", *obj.Scene, ErrUnknownScene)
			}
			return rt.NewSceneInstance(obj.Name, entry.BuildIndex, entry.AssetPath, m), nil
		case obj.Script != "":
			if engine == nil {
				return nil, fmt.Errorf("script %q: scripting disabled", obj.Script)
			}
			b, err := engine.NewBehaviour(behaviour.NewBase(obj.Name), obj.Script)
			if err != nil {
				return nil, err
			}
			return b, nil
		default:
			return behaviour.NewBase(obj.Name), nil
		}
	}
}
