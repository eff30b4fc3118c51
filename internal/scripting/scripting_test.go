package scripting

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scenekit/scenetree/internal/behaviour"
)

type fakeControls struct {
	paused map[behaviour.ID]bool
	scale  float64
	dt     time.Duration
}

func newFakeControls() *fakeControls {
	return &fakeControls{paused: make(map[behaviour.ID]bool), scale: 0.5, dt: 20 * time.Millisecond}
}

func (c *fakeControls) Pause(b behaviour.Behaviour)                 { c.paused[b.ID()] = true }
func (c *fakeControls) Unpause(b behaviour.Behaviour)               { c.paused[b.ID()] = false }
func (c *fakeControls) IsPaused(b behaviour.Behaviour) bool         { return c.paused[b.ID()] }
func (c *fakeControls) TimeScale(behaviour.Behaviour) float64       { return c.scale }
func (c *fakeControls) DeltaTime(behaviour.Behaviour) time.Duration { return c.dt }

const recorder = `
calls = {}
behaviour("recorder", {
	before_update = function(self, dt) table.insert(calls, self.name .. ":before_update:" .. dt) end,
	after_late_update = function(self, dt) table.insert(calls, self.name .. ":after_late_update") end,
	on_pause = function(self) table.insert(calls, self.name .. ":on_pause") end,
})
`

func calls(t *testing.T, e *Engine) []string {
	t.Helper()
	tbl, ok := e.vm.GetGlobal("calls").(*lua.LTable)
	require.True(t, ok, "calls table missing")
	var out []string
	tbl.ForEach(func(_, v lua.LValue) { out = append(out, v.String()) })
	return out
}

func TestBehaviourHooksCallLua(t *testing.T) {
	e := NewEngine(newFakeControls(), zap.NewNop())
	defer e.Close()
	require.NoError(t, e.LoadString(recorder))
	assert.Equal(t, []string{"recorder"}, e.Classes())

	b, err := e.NewBehaviour(behaviour.NewBase("crate"), "recorder")
	require.NoError(t, err)
	assert.Equal(t, "recorder", b.Class())

	b.BeforeUpdate()
	b.AfterUpdate() // no hook declared
	b.AfterLateUpdate()
	b.OnPause()
	b.OnUnpause() // no hook declared

	assert.Equal(t, []string{
		"crate:before_update:0.02",
		"crate:after_late_update",
		"crate:on_pause",
	}, calls(t, e))
}

func TestUnknownClass(t *testing.T) {
	e := NewEngine(nil, zap.NewNop())
	defer e.Close()

	_, err := e.NewBehaviour(behaviour.NewBase("crate"), "missing")
	assert.ErrorContains(t, err, "unknown class")

	_, err = e.NewBehaviour(nil, "missing")
	assert.Error(t, err)
}

func TestSelfControls(t *testing.T) {
	ctl := newFakeControls()
	e := NewEngine(ctl, zap.NewNop())
	defer e.Close()
	require.NoError(t, e.LoadString(`
behaviour("sleeper", {
	before_update = function(self, dt)
		if not self:is_paused() then self:pause() end
		scale = self:time_scale()
	end,
	after_update = function(self, dt) self:set_time_scale(3) end,
})
`))
	b, err := e.NewBehaviour(behaviour.NewBase("s"), "sleeper")
	require.NoError(t, err)

	b.BeforeUpdate()
	assert.True(t, ctl.paused[b.ID()])
	assert.Equal(t, lua.LNumber(0.5), e.vm.GetGlobal("scale"))

	b.AfterUpdate()
	assert.Equal(t, 3.0, b.RelativeTimeScale())
}

func TestScriptErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := NewEngine(nil, zap.New(core))
	defer e.Close()
	require.NoError(t, e.LoadString(`
behaviour("broken", { before_update = function(self, dt) error("boom") end })
`))
	b, err := e.NewBehaviour(behaviour.NewBase("b"), "broken")
	require.NoError(t, err)

	assert.NotPanics(t, b.BeforeUpdate)
	entries := logs.FilterMessage("lua hook failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, HookBeforeUpdate, entries[0].ContextMap()["hook"])
}

func TestLoadDirAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
behaviour("counter", { before_update = function(self, dt) hits = (hits or 0) + 1 end })
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644))

	e := NewEngine(nil, zap.NewNop())
	defer e.Close()
	require.NoError(t, e.LoadDir(dir))
	require.NoError(t, e.LoadDir(filepath.Join(dir, "missing")))

	b, err := e.NewBehaviour(behaviour.NewBase("c"), "counter")
	require.NoError(t, err)
	b.BeforeUpdate()
	assert.Equal(t, lua.LNumber(1), e.vm.GetGlobal("hits"))

	require.NoError(t, os.WriteFile(path, []byte(`
behaviour("counter", { before_update = function(self, dt) hits = (hits or 0) + 10 end })
`), 0o644))
	paths := make(chan string, 4)
	paths <- path
	paths <- filepath.Join(dir, "notes.txt")
	assert.Equal(t, 2, e.ApplyReloads(paths), "non-lua paths are ignored without error")

	b.BeforeUpdate()
	assert.Equal(t, lua.LNumber(11), e.vm.GetGlobal("hits"), "live behaviour uses the reloaded class")

	require.NoError(t, os.WriteFile(path, []byte(`behaviour(`), 0o644))
	assert.Error(t, e.Reload(path))
	b.BeforeUpdate()
	assert.Equal(t, lua.LNumber(21), e.vm.GetGlobal("hits"), "failed reload keeps the old class")
}

func TestWatchPostsWrites(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 8)
	require.NoError(t, Watch(ctx, dir, out, zap.NewNop()))

	path := filepath.Join(dir, "late.lua")
	require.NoError(t, os.WriteFile(path, []byte(`behaviour("late", {})`), 0o644))

	select {
	case got := <-out:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload posted")
	}
}

func TestWatchMissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), make(chan string), zap.NewNop())
	assert.Error(t, err)
}
