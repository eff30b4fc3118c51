package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding behaviour classes.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	classes  map[string]*lua.LTable
	controls Controls
}

// NewEngine creates a Lua engine. Scripts declare classes with
//
//	behaviour("spinner", { before_update = function(self, dt) ... end })
//
// controls backs the self:pause() family of methods and may be nil.
func NewEngine(controls Controls, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:       vm,
		log:      log,
		classes:  make(map[string]*lua.LTable),
		controls: controls,
	}
	vm.SetGlobal("behaviour", vm.NewFunction(e.declare))
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))
	return e
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// LoadDir loads all .lua files in a directory, in name order.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load lua chunk: %w", err)
	}
	return nil
}

// Reload re-executes one file. Classes it declares replace the previous
// tables, so live behaviours pick up the new hooks on their next call.
// On error the old classes stay in place.
func (e *Engine) Reload(path string) error {
	if filepath.Ext(path) != ".lua" {
		return nil
	}
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("reload %s: %w", path, err)
	}
	e.log.Info("reloaded lua script", zap.String("file", path))
	return nil
}

// HasClass reports whether a class with that name was declared.
func (e *Engine) HasClass(name string) bool {
	_, ok := e.classes[name]
	return ok
}

// Classes returns the declared class names, sorted.
func (e *Engine) Classes() []string {
	names := make([]string, 0, len(e.classes))
	for name := range e.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// declare implements behaviour(name, table).
func (e *Engine) declare(L *lua.LState) int {
	name := L.CheckString(1)
	class := L.CheckTable(2)
	if _, ok := e.classes[name]; ok {
		e.log.Debug("lua class replaced", zap.String("class", name))
	}
	e.classes[name] = class
	return 0
}

// luaLog implements log(msg) for scripts.
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}
