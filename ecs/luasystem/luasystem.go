// Package luasystem implements ecs systems whose interest set and frame
// callbacks are written in Lua.
//
// A script declares the component types it iterates in a global
// components array and defines tick, and optionally pre_physics_tick and
// post_physics_tick:
//
//	components = {"game.Transform", "game.Velocity"}
//
//	function tick(dt)
//		ecs.for_each(function(id, transform, velocity)
//			transform.x = transform.x + velocity.x * dt
//		end)
//	end
//
// Components reach Lua as userdata. Field access works for components that
// implement Fields.
package luasystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/plus3/ooftn/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const componentTypeName = "ecs.component"

// Fields exposes component fields to scripts. LuaGet returns lua.LNil for
// unknown fields.
type Fields interface {
	LuaGet(L *lua.LState, field string) lua.LValue
	LuaSet(L *lua.LState, field string, v lua.LValue) error
}

// System runs a Lua script as an ecs system. A System is not safe for
// concurrent use.
type System struct {
	*ecs.Base

	name      string
	vm        *lua.LState
	keys      []ecs.TypeKey
	positions []int

	tick *lua.LFunction
	pre  *lua.LFunction
	post *lua.LFunction

	log *zap.Logger
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger behind the script's ecs.log function.
func WithLogger(log *zap.Logger) Option {
	return func(s *System) {
		s.log = log
	}
}

// Load reads a script file and creates a System named after the file.
func Load(path string, base *ecs.Base, opts ...Option) (*System, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lua system: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(string(src), name, base, opts...)
}

// New compiles src in a fresh Lua state, declares its components on base
// and resolves its callbacks.
func New(src, name string, base *ecs.Base, opts ...Option) (*System, error) {
	s := &System{
		Base: base,
		name: name,
		vm:   lua.NewState(),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("script", name))

	if err := s.init(src); err != nil {
		s.vm.Close()
		return nil, fmt.Errorf("lua system %s: %w", name, err)
	}
	s.log.Debug("loaded lua system", zap.Int("components", len(s.keys)))
	return s, nil
}

func (s *System) init(src string) error {
	s.registerComponentType()
	s.vm.SetGlobal("ecs", s.vm.SetFuncs(s.vm.NewTable(), map[string]lua.LGFunction{
		"for_each":    s.luaForEach,
		"query":       s.luaQuery,
		"find_entity": s.luaFindEntity,
		"name":        s.luaName,
		"remove":      s.luaRemove,
		"log":         s.luaLog,
	}))

	chunk, err := s.vm.Load(strings.NewReader(src), s.name)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	s.vm.Push(chunk)
	if err := s.vm.PCall(0, 0, nil); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	keys, err := stringList(s.vm.GetGlobal("components"))
	if err != nil {
		return fmt.Errorf("components: %w", err)
	}
	for _, k := range keys {
		key := ecs.ParseTypeKey(k)
		s.DeclareComponentKey(key)
		s.keys = append(s.keys, key)
	}
	// Positions follow declaration order, not dense order. The signature is
	// frozen once they are cached.
	for _, key := range s.keys {
		idx, err := s.Signature().DenseIndexOf(s.Registry().TypeID(key))
		if err != nil {
			return err
		}
		s.positions = append(s.positions, idx)
	}
	s.Signature().Freeze()

	var ok bool
	if s.tick, ok = s.vm.GetGlobal("tick").(*lua.LFunction); !ok {
		return fmt.Errorf("tick is not defined")
	}
	s.pre, _ = s.vm.GetGlobal("pre_physics_tick").(*lua.LFunction)
	s.post, _ = s.vm.GetGlobal("post_physics_tick").(*lua.LFunction)
	return nil
}

func stringList(v lua.LValue) ([]string, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("want an array of type names, got %s", v.Type())
	}
	out := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		str, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, fmt.Errorf("entry %d is %s, want string", i, tbl.RawGetInt(i).Type())
		}
		out = append(out, string(str))
	}
	return out, nil
}

// Name returns the script name.
func (s *System) Name() string {
	return s.name
}

// Components returns the declared component keys in script order.
func (s *System) Components() []ecs.TypeKey {
	return s.keys
}

// Tick calls the script's tick function.
func (s *System) Tick(dt float64) error {
	return s.call("tick", s.tick, dt)
}

// PrePhysicsTick calls pre_physics_tick when the script defines it.
func (s *System) PrePhysicsTick(dt float64) error {
	return s.call("pre_physics_tick", s.pre, dt)
}

// PostPhysicsTick calls post_physics_tick when the script defines it.
func (s *System) PostPhysicsTick(dt float64) error {
	return s.call("post_physics_tick", s.post, dt)
}

func (s *System) call(name string, fn *lua.LFunction, dt float64) error {
	if fn == nil {
		return nil
	}
	if err := s.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt)); err != nil {
		return fmt.Errorf("lua system %s: %s: %w", s.name, name, err)
	}
	return nil
}

// Close releases the Lua state.
func (s *System) Close() {
	s.vm.Close()
}

func (s *System) registerComponentType() {
	mt := s.vm.NewTypeMetatable(componentTypeName)
	s.vm.SetField(mt, "__index", s.vm.NewFunction(componentIndex))
	s.vm.SetField(mt, "__newindex", s.vm.NewFunction(componentNewIndex))
	s.vm.SetField(mt, "__tostring", s.vm.NewFunction(componentString))
}

func pushComponent(L *lua.LState, c ecs.Component) {
	if c == nil {
		L.Push(lua.LNil)
		return
	}
	ud := L.NewUserData()
	ud.Value = c
	L.SetMetatable(ud, L.GetTypeMetatable(componentTypeName))
	L.Push(ud)
}

func checkFields(L *lua.LState) Fields {
	ud := L.CheckUserData(1)
	f, ok := ud.Value.(Fields)
	if !ok {
		L.ArgError(1, fmt.Sprintf("%T has no script fields", ud.Value))
	}
	return f
}

func componentIndex(L *lua.LState) int {
	f := checkFields(L)
	L.Push(f.LuaGet(L, L.CheckString(2)))
	return 1
}

func componentNewIndex(L *lua.LState) int {
	f := checkFields(L)
	if err := f.LuaSet(L, L.CheckString(2), L.Get(3)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func componentString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if c, ok := ud.Value.(ecs.Component); ok {
		L.Push(lua.LString(c.ComponentTypeKey().String()))
		return 1
	}
	L.Push(lua.LString("component"))
	return 1
}

// each calls fn for every row, passing the entity id and the components at
// positions.
func each(L *lua.LState, res *ecs.QueryResult, positions []int, fn *lua.LFunction) {
	for e, comps := range res.Iter() {
		L.Push(fn)
		L.Push(lua.LString(e.ID().String()))
		for _, pos := range positions {
			pushComponent(L, comps[pos])
		}
		L.Call(1+len(positions), 0)
	}
}

func (s *System) luaForEach(L *lua.LState) int {
	fn := L.CheckFunction(1)
	res, err := s.Query(s.Signature())
	if err != nil {
		L.RaiseError("for_each: %s", err.Error())
	}
	each(L, res, s.positions, fn)
	return 0
}

func (s *System) luaQuery(L *lua.LState) int {
	names, err := stringList(L.CheckTable(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	fn := L.CheckFunction(2)

	keys := make([]ecs.TypeKey, len(names))
	for i, n := range names {
		keys[i] = ecs.ParseTypeKey(n)
	}
	res, err := s.QueryOf(keys...)
	if err != nil {
		L.RaiseError("query: %s", err.Error())
	}

	positions := make([]int, len(keys))
	for i, key := range keys {
		positions[i] = res.Signature().MustDenseIndexOf(s.Registry().TypeID(key))
	}
	each(L, res, positions, fn)
	return 0
}

func (s *System) luaFindEntity(L *lua.LState) int {
	e, ok, err := s.FindEntityByName(L.CheckString(1))
	if err != nil {
		L.RaiseError("find_entity: %s", err.Error())
	}
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(e.ID().String()))
	return 1
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	id, err := uuid.Parse(L.CheckString(n))
	if err != nil {
		L.ArgError(n, "invalid entity id")
	}
	return ecs.NewEntity(id)
}

func (s *System) luaName(L *lua.LState) int {
	name, err := s.NameOf(checkEntity(L, 1))
	if err != nil {
		L.RaiseError("name: %s", err.Error())
	}
	L.Push(lua.LString(name))
	return 1
}

func (s *System) luaRemove(L *lua.LState) int {
	if err := s.Remove(checkEntity(L, 1)); err != nil {
		L.RaiseError("remove: %s", err.Error())
	}
	return 0
}

func (s *System) luaLog(L *lua.LState) int {
	s.log.Info(L.CheckString(1))
	return 0
}
