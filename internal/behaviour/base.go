package behaviour

// Base implements Behaviour with no-op hooks. Concrete behaviours embed
// *Base and override the hooks they care about.
type Base struct {
	id        ID
	name      string
	root      Behaviour
	scene     SceneHandle
	timeScale float64
	enabled   bool
	active    bool
	destroyed bool
}

func NewBase(name string) *Base {
	return &Base{
		id:        NewID(),
		name:      name,
		scene:     InvalidSceneHandle,
		timeScale: 1.0,
		enabled:   true,
		active:    true,
	}
}

func (b *Base) ID() ID       { return b.id }
func (b *Base) Name() string { return b.name }

func (b *Base) Root() Behaviour { return b.root }

// SetRoot updates the explicit root. Callers must follow up with a parent
// refresh on the hierarchy so the node moves.
func (b *Base) SetRoot(root Behaviour) { b.root = root }

func (b *Base) SceneHandle() SceneHandle          { return b.scene }
func (b *Base) SetSceneHandle(handle SceneHandle) { b.scene = handle }

func (b *Base) RelativeTimeScale() float64 { return b.timeScale }

func (b *Base) SetRelativeTimeScale(scale float64) {
	b.timeScale = clampScale(scale)
}

func (b *Base) ActiveAndEnabled() bool { return b.active && b.enabled && !b.destroyed }

func (b *Base) SetEnabled(enabled bool) { b.enabled = enabled }
func (b *Base) SetActive(active bool)   { b.active = active }

func (b *Base) Destroyed() bool { return b.destroyed }

// MarkDestroyed flags the behaviour as gone. The scheduler skips it from the
// next pass even before it is unregistered.
func (b *Base) MarkDestroyed() { b.destroyed = true }

func (b *Base) BeforeUpdate()     {}
func (b *Base) AfterUpdate()      {}
func (b *Base) BeforeLateUpdate() {}
func (b *Base) AfterLateUpdate()  {}
func (b *Base) OnPause()          {}
func (b *Base) OnUnpause()        {}
