package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ObjectEntry describes one object placed in a scene.
type ObjectEntry struct {
	Name string `yaml:"name"`
	// Parent names an earlier object of the same scene; empty for scene roots.
	Parent string `yaml:"parent"`
	// Root marks a root-capable behaviour: descendants use it as their
	// explicit root.
	Root      bool     `yaml:"root"`
	Script    string   `yaml:"script"`
	TimeScale *float64 `yaml:"time_scale"` // nil when unset, see Scale
	Paused    bool     `yaml:"paused"`
	Disabled  bool     `yaml:"disabled"`
	// Scene, when set, makes the object a scene instance owning the scene
	// with that build index. Load starts loading it on spawn.
	Scene *int `yaml:"scene"`
	Load  bool `yaml:"load"`
}

// Scale returns the relative time scale, 1 when unset. Explicit values are
// returned as is; behaviours clamp them to their minimum.
func (o ObjectEntry) Scale() float64 {
	if o.TimeScale == nil {
		return 1
	}
	return *o.TimeScale
}

// SceneEntry is one loadable scene.
type SceneEntry struct {
	BuildIndex int           `yaml:"build_index"`
	AssetPath  string        `yaml:"asset_path"`
	Objects    []ObjectEntry `yaml:"objects"`
}

// Manifest is the scene list, keyed by build index.
type Manifest struct {
	scenes map[int]*SceneEntry
	order  []int
}

// LoadManifest loads a scene list yaml file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest parses and validates a scene list.
func ParseManifest(raw []byte) (*Manifest, error) {
	var entries []SceneEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse scene manifest: %w", err)
	}
	m := &Manifest{
		scenes: make(map[int]*SceneEntry, len(entries)),
		order:  make([]int, 0, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if e.BuildIndex < 0 {
			return nil, fmt.Errorf("scene %q: negative build index %d", e.AssetPath, e.BuildIndex)
		}
		if _, dup := m.scenes[e.BuildIndex]; dup {
			return nil, fmt.Errorf("scene %q: duplicate build index %d", e.AssetPath, e.BuildIndex)
		}
		if err := validateObjects(e); err != nil {
			return nil, err
		}
		m.scenes[e.BuildIndex] = e
		m.order = append(m.order, e.BuildIndex)
	}
	for _, bi := range m.order {
		for _, o := range m.scenes[bi].Objects {
			if o.Scene == nil {
				continue
			}
			if _, ok := m.scenes[*o.Scene]; !ok {
				return nil, fmt.Errorf("scene %d object %q: unknown scene %d", bi, o.Name, *o.Scene)
			}
		}
	}
	return m, nil
}

func validateObjects(e *SceneEntry) error {
	seen := make(map[string]struct{}, len(e.Objects))
	for i := range e.Objects {
		o := &e.Objects[i]
		if o.Name == "" {
			return fmt.Errorf("scene %d object #%d: missing name", e.BuildIndex, i)
		}
		if _, dup := seen[o.Name]; dup {
			return fmt.Errorf("scene %d: duplicate object %q", e.BuildIndex, o.Name)
		}
		if o.Parent != "" {
			if _, ok := seen[o.Parent]; !ok {
				return fmt.Errorf("scene %d object %q: parent %q must be declared earlier", e.BuildIndex, o.Name, o.Parent)
			}
		}
		seen[o.Name] = struct{}{}
	}
	return nil
}

// Scene returns the scene with the given build index, or nil.
func (m *Manifest) Scene(buildIndex int) *SceneEntry {
	return m.scenes[buildIndex]
}

// Scenes returns all scenes in file order.
func (m *Manifest) Scenes() []*SceneEntry {
	out := make([]*SceneEntry, 0, len(m.order))
	for _, bi := range m.order {
		out = append(out, m.scenes[bi])
	}
	return out
}

// Count returns the total number of scenes loaded.
func (m *Manifest) Count() int {
	return len(m.scenes)
}
