package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/plus3/ooftn/ecs"
	"github.com/plus3/ooftn/ecs/memengine"
	lua "github.com/yuin/gopher-lua"
)

const namespace = "Stress"

type Position struct {
	X, Y float64
}

func (*Position) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: namespace, Name: "Position"}
}

func (p *Position) LuaGet(L *lua.LState, field string) lua.LValue {
	switch field {
	case "x":
		return lua.LNumber(p.X)
	case "y":
		return lua.LNumber(p.Y)
	}
	return lua.LNil
}

func (p *Position) LuaSet(L *lua.LState, field string, v lua.LValue) error {
	n, ok := v.(lua.LNumber)
	if !ok {
		return fmt.Errorf("position.%s must be a number, got %s", field, v.Type())
	}
	switch field {
	case "x":
		p.X = float64(n)
	case "y":
		p.Y = float64(n)
	default:
		return fmt.Errorf("position has no field %s", field)
	}
	return nil
}

type Velocity struct {
	DX, DY float64
}

func (*Velocity) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: namespace, Name: "Velocity"}
}

func (v *Velocity) LuaGet(L *lua.LState, field string) lua.LValue {
	switch field {
	case "dx":
		return lua.LNumber(v.DX)
	case "dy":
		return lua.LNumber(v.DY)
	}
	return lua.LNil
}

func (v *Velocity) LuaSet(L *lua.LState, field string, val lua.LValue) error {
	n, ok := val.(lua.LNumber)
	if !ok {
		return fmt.Errorf("velocity.%s must be a number, got %s", field, val.Type())
	}
	switch field {
	case "dx":
		v.DX = float64(n)
	case "dy":
		v.DY = float64(n)
	default:
		return fmt.Errorf("velocity has no field %s", field)
	}
	return nil
}

type Health struct {
	Current, Max float64
}

func (*Health) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: namespace, Name: "Health"}
}

// Lifetime counts down; the entity is replaced when it reaches zero.
type Lifetime struct {
	Remaining float64
}

func (*Lifetime) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: namespace, Name: "Lifetime"}
}

type Team struct {
	ID int
}

func (*Team) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: namespace, Name: "Team"}
}

// randomComponents returns between one and five components.
func randomComponents(r *rand.Rand) []ecs.Component {
	all := []func() ecs.Component{
		func() ecs.Component { return &Position{X: r.Float64() * 100, Y: r.Float64() * 100} },
		func() ecs.Component { return &Velocity{DX: r.Float64() - 0.5, DY: r.Float64() - 0.5} },
		func() ecs.Component { return &Health{Current: 100, Max: 100} },
		func() ecs.Component { return &Lifetime{Remaining: 1 + r.Float64()*10} },
		func() ecs.Component { return &Team{ID: r.IntN(4)} },
	}
	r.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	n := r.IntN(len(all)) + 1
	out := make([]ecs.Component, n)
	for i := range out {
		out[i] = all[i]()
	}
	return out
}

func populate(w *memengine.World, r *rand.Rand, n int) error {
	for i := 0; i < n; i++ {
		if _, err := w.Spawn(fmt.Sprintf("entity-%d", i), randomComponents(r)...); err != nil {
			return err
		}
	}
	return nil
}
