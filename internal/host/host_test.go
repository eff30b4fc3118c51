package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	coresys "github.com/scenekit/scenetree/internal/core/system"
	"github.com/scenekit/scenetree/internal/data"
	"github.com/scenekit/scenetree/internal/runtime"
	"github.com/scenekit/scenetree/internal/scene"
)

const manifest = `
- build_index: 0
  asset_path: scenes/main
  objects:
    - name: World
      root: true
    - name: Player
      parent: World
    - name: Weapon
      parent: Player
      time_scale: 0
    - name: Level
      scene: 1
      load: true
- build_index: 1
  asset_path: scenes/level
  objects:
    - name: Enemy
    - name: Loot
      parent: Enemy
      paused: true
- build_index: 2
  asset_path: scenes/empty
`

type fixture struct {
	rt     *runtime.Runtime
	world  *World
	scenes *SceneManager
	runner *coresys.Runner
}

func newFixture(t *testing.T, latency int) *fixture {
	t.Helper()
	m, err := data.ParseManifest([]byte(manifest))
	require.NoError(t, err)

	f := &fixture{rt: runtime.New(zap.NewNop(), nil), runner: coresys.NewRunner()}
	f.world = NewWorld(f.rt, zap.NewNop())
	f.scenes = NewSceneManager(f.world, m, latency, zap.NewNop())
	f.scenes.SetFactory(NewFactory(f.rt, nil, f.scenes))
	f.rt.Install(f.runner)
	Install(f.runner, f.world, f.scenes)
	return f
}

func (f *fixture) load(t *testing.T, buildIndex int) {
	t.Helper()
	_, err := f.scenes.LoadAdditive(buildIndex)
	require.NoError(t, err)
	require.NoError(t, f.scenes.Settle(10))
}

func (f *fixture) comp(t *testing.T, name string) Component {
	t.Helper()
	o := f.world.Find(name)
	require.NotNil(t, o, "object %q", name)
	return o.Component()
}

func TestNestedSceneObjectsHangUnderInstance(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t, 0)

	level, ok := f.comp(t, "Level").(*scene.Instance)
	require.True(t, ok)
	require.True(t, level.IsLoaded())
	assert.Same(t, level, f.rt.FindSceneInstance(level.Handle()))

	enemy := f.comp(t, "Enemy")
	assert.Equal(t, level.Handle(), enemy.SceneHandle())
	assert.Equal(t, level.ID(), f.rt.Tree().ParentOf(enemy).ID())
	assert.Equal(t, level.ID(), f.rt.Tree().ParentOf(f.comp(t, "Loot")).ID(), "Enemy is not root-capable")

	// explicit roots win over the scene owner
	world := f.comp(t, "World")
	assert.Equal(t, world.ID(), f.rt.Tree().ParentOf(f.comp(t, "Player")).ID())
	assert.Equal(t, world.ID(), f.rt.Tree().ParentOf(f.comp(t, "Weapon")).ID(), "Player is not root-capable")
	assert.Nil(t, f.rt.Tree().ParentOf(world), "startup scene has no owner")

	require.NoError(t, f.rt.Tree().Validate())
}

func TestManifestTimeScale(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t, 0)

	assert.Equal(t, 1.0, f.comp(t, "Player").RelativeTimeScale(), "unset scale is 1")
	assert.Equal(t, behaviour.MinTimeScale, f.comp(t, "Weapon").RelativeTimeScale(), "explicit zero is clamped")
}

func TestManifestPauseAndScenePause(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t, 0)

	loot := f.comp(t, "Loot")
	enemy := f.comp(t, "Enemy")
	assert.True(t, f.rt.IsPaused(loot))
	assert.False(t, f.rt.IsPaused(enemy))

	level := f.comp(t, "Level")
	f.rt.Pause(level)
	assert.True(t, f.rt.IsPaused(enemy))
	f.rt.Unpause(level)
	assert.False(t, f.rt.IsPaused(enemy))
	assert.True(t, f.rt.IsPaused(loot), "self pause survives")
}

func TestSetParentRefreshesRoots(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t, 0)
	tree := f.rt.Tree()

	player := f.world.Find("Player")
	weapon := f.world.Find("Weapon")
	world := f.world.Find("World")

	require.NoError(t, f.world.SetParent(player, nil))
	assert.Nil(t, player.Component().Root())
	assert.Nil(t, tree.ParentOf(player.Component()))
	assert.Nil(t, tree.ParentOf(weapon.Component()), "weapon lost its root too")

	require.NoError(t, f.world.SetParent(weapon, world))
	assert.Equal(t, world.Component().ID(), tree.ParentOf(weapon.Component()).ID())

	// moving into the nested scene adopts its owner
	enemy := f.world.Find("Enemy")
	level := f.comp(t, "Level")
	require.NoError(t, f.world.SetParent(player, enemy))
	assert.Equal(t, enemy.Scene(), player.Component().SceneHandle())
	assert.Equal(t, level.ID(), tree.ParentOf(player.Component()).ID())

	assert.ErrorIs(t, f.world.SetParent(enemy, player), ErrCycle)
	require.NoError(t, tree.Validate())
}

func TestDeferredDestroy(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t, 0)

	player := f.world.Find("Player")
	f.world.Destroy(player)
	assert.True(t, f.rt.Tree().Contains(player.Component()), "still alive until cleanup")

	f.runner.TickPhase(coresys.PhaseCleanup, 0)
	assert.True(t, player.Destroyed())
	assert.True(t, player.Component().Destroyed())
	assert.False(t, f.rt.Tree().Contains(player.Component()))
	assert.Nil(t, f.world.Find("Weapon"))
	assert.Empty(t, f.world.Find("World").Children())
	require.NoError(t, f.rt.Tree().Validate())
}

func TestDestroyingInstanceUnloadsScene(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t, 0)

	level := f.comp(t, "Level").(*scene.Instance)
	handle := level.Handle()
	f.world.DestroyImmediate(f.world.Find("Level"))

	assert.False(t, level.IsLoaded())
	assert.Nil(t, f.rt.FindSceneInstance(handle))
	assert.Equal(t, 1, f.scenes.Pending())

	require.NoError(t, f.scenes.Settle(5))
	assert.Nil(t, f.world.Find("Enemy"))
	assert.Nil(t, f.world.Find("Loot"))
	assert.Equal(t, behaviour.InvalidSceneHandle, f.scenes.HandleOf(1))
	assert.Equal(t, 3, f.rt.Tree().Len())
	require.NoError(t, f.rt.Tree().Validate())
}

func TestLatencyAndActivationGate(t *testing.T) {
	f := newFixture(t, 2)

	op, err := f.scenes.LoadAdditive(2)
	require.NoError(t, err)
	var got []error
	op.OnComplete(func(err error) { got = append(got, err) })
	op.SetAllowActivation(false)

	assert.ErrorIs(t, f.scenes.Settle(4), ErrNotSettled)
	assert.Empty(t, got)

	op.SetAllowActivation(true)
	f.scenes.Pump()
	assert.Equal(t, []error{nil}, got)
	assert.Equal(t, 0, f.scenes.Pending())

	// late subscribers are called at once
	op.OnComplete(func(err error) { got = append(got, err) })
	assert.Len(t, got, 2)
}

func TestSceneManagerErrors(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.scenes.LoadAdditive(9)
	assert.ErrorIs(t, err, ErrUnknownScene)

	_, err = f.scenes.Unload(2)
	assert.ErrorIs(t, err, ErrSceneNotFound)

	_, err = f.scenes.LoadAdditive(2)
	require.NoError(t, err)
	_, err = f.scenes.LoadAdditive(2)
	assert.ErrorIs(t, err, ErrSceneLoaded)
}

func TestSpawnErrors(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.world.Spawn(SpawnParams{Name: "ghost"})
	assert.ErrorIs(t, err, ErrNilComponent)

	parent, err := f.world.Spawn(SpawnParams{Name: "p", Component: behaviour.NewBase("p")})
	require.NoError(t, err)
	f.world.DestroyImmediate(parent)

	_, err = f.world.Spawn(SpawnParams{Name: "c", Component: behaviour.NewBase("c"), Parent: parent})
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.Equal(t, 0, f.world.Len())
}

type tracer struct {
	*behaviour.Base
	log *[]string
}

func (p *tracer) BeforeUpdate()     { *p.log = append(*p.log, "before_update") }
func (p *tracer) Update()           { *p.log = append(*p.log, "update") }
func (p *tracer) AfterUpdate()      { *p.log = append(*p.log, "after_update") }
func (p *tracer) BeforeLateUpdate() { *p.log = append(*p.log, "before_late_update") }
func (p *tracer) LateUpdate()       { *p.log = append(*p.log, "late_update") }
func (p *tracer) AfterLateUpdate()  { *p.log = append(*p.log, "after_late_update") }

func TestFrameOrder(t *testing.T) {
	f := newFixture(t, 0)
	var log []string
	tr := &tracer{Base: behaviour.NewBase("t"), log: &log}
	_, err := f.world.Spawn(SpawnParams{Name: "t", Component: tr, Scene: behaviour.InvalidSceneHandle})
	require.NoError(t, err)

	f.runner.Tick(16 * time.Millisecond)
	assert.Equal(t, []string{
		"before_update", "update", "after_update",
		"before_late_update", "late_update", "after_late_update",
	}, log)

	// pause gates only the tree passes
	log = nil
	f.rt.Pause(tr)
	f.runner.Tick(16 * time.Millisecond)
	assert.Equal(t, []string{"update", "late_update"}, log)

	// disabled components are skipped everywhere
	log = nil
	tr.SetEnabled(false)
	f.runner.Tick(16 * time.Millisecond)
	assert.Empty(t, log)
}
