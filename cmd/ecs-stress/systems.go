package main

import (
	"math/rand/v2"

	"github.com/plus3/ooftn/ecs"
	"github.com/plus3/ooftn/ecs/dispatch"
	"github.com/plus3/ooftn/ecs/memengine"
)

type movementSystem struct {
	*ecs.Base
}

func (s *movementSystem) Tick(dt float64) error {
	return ecs.ForEachEntity2(s.Base, func(_ ecs.Entity, p *Position, v *Velocity) {
		p.X += v.DX * dt
		p.Y += v.DY * dt
	})
}

// bounceSystem reflects velocities at the world edge once per physics step.
type bounceSystem struct {
	*ecs.Base
	size float64
}

func (s *bounceSystem) Tick(float64) error { return nil }

func (s *bounceSystem) PostPhysicsTick(float64) error {
	return ecs.ForEachEntity2(s.Base, func(_ ecs.Entity, p *Position, v *Velocity) {
		if p.X < 0 || p.X > s.size {
			v.DX = -v.DX
		}
		if p.Y < 0 || p.Y > s.size {
			v.DY = -v.DY
		}
	})
}

type regenSystem struct {
	*ecs.Base
}

func (s *regenSystem) Tick(dt float64) error {
	return ecs.ForEachEntity1(s.Base, func(_ ecs.Entity, h *Health) {
		h.Current = min(h.Max, h.Current+dt)
	})
}

// lifetimeSystem removes expired entities and queues a replacement so the
// population stays constant.
type lifetimeSystem struct {
	*ecs.Base
	world *memengine.World
	rand  *rand.Rand
}

func (s *lifetimeSystem) Tick(dt float64) error {
	var expired []ecs.Entity
	err := ecs.ForEachEntity1(s.Base, func(e ecs.Entity, l *Lifetime) {
		l.Remaining -= dt
		if l.Remaining <= 0 {
			expired = append(expired, e)
		}
	})
	if err != nil {
		return err
	}
	for _, e := range expired {
		if err := s.Remove(e); err != nil {
			return err
		}
		s.world.Commands().Spawn("respawned", randomComponents(s.rand)...)
	}
	return nil
}

// teamSystem runs an ad-hoc query outside its own signature.
type teamSystem struct {
	*ecs.Base
	counts [4]int
}

func (s *teamSystem) Tick(float64) error {
	res, err := ecs.Query2[*Team, *Health](s.Base)
	if err != nil {
		return err
	}
	col, err := ecs.Column[*Team](res)
	if err != nil {
		return err
	}
	s.counts = [4]int{}
	for _, team := range col {
		s.counts[team.ID%len(s.counts)]++
	}
	return nil
}

// registerSystems registers n native systems, cycling through the kinds.
func registerSystems(d *dispatch.Dispatcher, w *memengine.World, reg *ecs.TypeRegistry, r *rand.Rand, n int) {
	handle := ecs.NativeHandle(1)
	newBase := func() *ecs.Base {
		b := ecs.NewBase(handle, w, reg)
		handle++
		return b
	}

	for i := 0; i < n; i++ {
		var sys ecs.System
		switch i % 5 {
		case 0:
			s := &movementSystem{Base: newBase()}
			ecs.DeclareComponentType[*Position](s.Base)
			ecs.DeclareComponentType[*Velocity](s.Base)
			sys = s
		case 1:
			s := &regenSystem{Base: newBase()}
			ecs.DeclareComponentType[*Health](s.Base)
			sys = s
		case 2:
			s := &lifetimeSystem{Base: newBase(), world: w, rand: r}
			ecs.DeclareComponentType[*Lifetime](s.Base)
			sys = s
		case 3:
			s := &bounceSystem{Base: newBase(), size: 100}
			ecs.DeclareComponentType[*Position](s.Base)
			ecs.DeclareComponentType[*Velocity](s.Base)
			sys = s
		case 4:
			sys = &teamSystem{Base: newBase()}
		}
		d.Register(sys)
	}
}
