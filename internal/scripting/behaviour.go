package scripting

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
)

// Hook names looked up on a class table.
const (
	HookBeforeUpdate     = "before_update"
	HookAfterUpdate      = "after_update"
	HookBeforeLateUpdate = "before_late_update"
	HookAfterLateUpdate  = "after_late_update"
	HookUpdate           = "update"
	HookLateUpdate       = "late_update"
	HookOnPause          = "on_pause"
	HookOnUnpause        = "on_unpause"
)

// Controls is the runtime surface exposed to scripts through self.
type Controls interface {
	Pause(b behaviour.Behaviour)
	Unpause(b behaviour.Behaviour)
	IsPaused(b behaviour.Behaviour) bool
	TimeScale(b behaviour.Behaviour) float64
	DeltaTime(b behaviour.Behaviour) time.Duration
}

// Behaviour is a behaviour whose hooks are implemented by a Lua class.
// The class is looked up by name on every call.
type Behaviour struct {
	*behaviour.Base
	engine *Engine
	class  string
	self   *lua.LTable // first argument of every hook
}

// NewBehaviour binds base to the named class.
func (e *Engine) NewBehaviour(base *behaviour.Base, class string) (*Behaviour, error) {
	if base == nil {
		return nil, fmt.Errorf("new lua behaviour %q: nil base", class)
	}
	if !e.HasClass(class) {
		return nil, fmt.Errorf("new lua behaviour %q: unknown class %q", base.Name(), class)
	}
	b := &Behaviour{Base: base, engine: e, class: class}
	b.self = b.newSelf()
	return b, nil
}

func (b *Behaviour) Class() string { return b.class }

func (b *Behaviour) newSelf() *lua.LTable {
	vm := b.engine.vm
	self := vm.NewTable()
	self.RawSetString("name", lua.LString(b.Name()))
	self.RawSetString("class", lua.LString(b.class))
	self.RawSetString("pause", vm.NewFunction(func(L *lua.LState) int {
		if c := b.engine.controls; c != nil {
			c.Pause(b)
		}
		return 0
	}))
	self.RawSetString("unpause", vm.NewFunction(func(L *lua.LState) int {
		if c := b.engine.controls; c != nil {
			c.Unpause(b)
		}
		return 0
	}))
	self.RawSetString("is_paused", vm.NewFunction(func(L *lua.LState) int {
		paused := false
		if c := b.engine.controls; c != nil {
			paused = c.IsPaused(b)
		}
		L.Push(lua.LBool(paused))
		return 1
	}))
	self.RawSetString("time_scale", vm.NewFunction(func(L *lua.LState) int {
		scale := b.RelativeTimeScale()
		if c := b.engine.controls; c != nil {
			scale = c.TimeScale(b)
		}
		L.Push(lua.LNumber(scale))
		return 1
	}))
	self.RawSetString("set_time_scale", vm.NewFunction(func(L *lua.LState) int {
		b.SetRelativeTimeScale(float64(L.CheckNumber(2)))
		return 0
	}))
	return self
}

func (b *Behaviour) BeforeUpdate()     { b.callFrame(HookBeforeUpdate) }
func (b *Behaviour) AfterUpdate()      { b.callFrame(HookAfterUpdate) }
func (b *Behaviour) BeforeLateUpdate() { b.callFrame(HookBeforeLateUpdate) }
func (b *Behaviour) AfterLateUpdate()  { b.callFrame(HookAfterLateUpdate) }

// Update and LateUpdate are the host's own per-object hooks.
func (b *Behaviour) Update()     { b.callFrame(HookUpdate) }
func (b *Behaviour) LateUpdate() { b.callFrame(HookLateUpdate) }

func (b *Behaviour) OnPause()   { b.call(HookOnPause) }
func (b *Behaviour) OnUnpause() { b.call(HookOnUnpause) }

func (b *Behaviour) callFrame(hook string) {
	var dt float64
	if c := b.engine.controls; c != nil {
		dt = c.DeltaTime(b).Seconds()
	}
	b.call(hook, lua.LNumber(dt))
}

// call invokes hook(self, args...). Missing hooks are skipped; script errors
// are logged.
func (b *Behaviour) call(hook string, args ...lua.LValue) {
	class, ok := b.engine.classes[b.class]
	if !ok {
		return
	}
	fn := class.RawGetString(hook)
	if fn.Type() != lua.LTFunction {
		return
	}
	params := append([]lua.LValue{b.self}, args...)
	if err := b.engine.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, params...); err != nil {
		b.engine.log.Error("lua hook failed",
			zap.String("class", b.class),
			zap.String("hook", hook),
			zap.String("behaviour", b.Name()),
			zap.Error(err))
	}
}
