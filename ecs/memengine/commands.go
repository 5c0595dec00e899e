package memengine

import (
	"github.com/plus3/ooftn/ecs"
	"go.uber.org/zap"
)

// Commands buffers structural changes made while systems run. The buffer
// is applied by World.Flush, normally once at the end of a frame.
type Commands struct {
	spawns  []spawnCommand
	deletes []ecs.Entity
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []func()
}

func newCommands() *Commands {
	return &Commands{}
}

type spawnCommand struct {
	name       string
	components []ecs.Component
}

type addComponentCommand struct {
	entity    ecs.Entity
	component ecs.Component
}

type removeComponentCommand struct {
	entity ecs.Entity
	key    ecs.TypeKey
}

// Spawn queues the creation of a named entity.
func (c *Commands) Spawn(name string, components ...ecs.Component) {
	c.spawns = append(c.spawns, spawnCommand{name: name, components: components})
}

// Delete queues the removal of an entity.
func (c *Commands) Delete(e ecs.Entity) {
	c.deletes = append(c.deletes, e)
}

// AddComponent queues attaching a component.
func (c *Commands) AddComponent(e ecs.Entity, component ecs.Component) {
	c.adds = append(c.adds, addComponentCommand{entity: e, component: component})
}

// RemoveComponent queues detaching the component with key.
func (c *Commands) RemoveComponent(e ecs.Entity, key ecs.TypeKey) {
	c.removes = append(c.removes, removeComponentCommand{entity: e, key: key})
}

// Defer queues fn to run after every other command of the same flush.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Pending returns the number of queued commands.
func (c *Commands) Pending() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// flush applies deletes, component removes, component adds, spawns and
// deferred functions in that order. Commands on a deleted entity are
// dropped. Failures are logged; a frame never stops on a bad command.
// Commands queued while flushing, including from deferred functions, are
// kept for the next flush.
func (c *Commands) flush(w *World) {
	if c.Pending() == 0 {
		return
	}

	spawns, deletes, adds, removes, defers := c.spawns, c.deletes, c.adds, c.removes, c.defers
	c.spawns, c.deletes, c.adds, c.removes, c.defers = nil, nil, nil, nil, nil

	deleted := make(map[ecs.Entity]bool, len(deletes))
	for _, e := range deletes {
		w.destroy(e)
		deleted[e] = true
	}
	if len(deletes) > 0 {
		w.compactSpawned()
	}

	for _, cmd := range removes {
		if deleted[cmd.entity] {
			continue
		}
		if err := w.RemoveComponent(cmd.entity, cmd.key); err != nil {
			w.log.Warn("deferred remove component failed", zap.Error(err))
		}
	}

	for _, cmd := range adds {
		if deleted[cmd.entity] {
			continue
		}
		if err := w.AddComponent(cmd.entity, cmd.component); err != nil {
			w.log.Warn("deferred add component failed", zap.Error(err))
		}
	}

	for _, cmd := range spawns {
		if _, err := w.Spawn(cmd.name, cmd.components...); err != nil {
			w.log.Warn("deferred spawn failed", zap.Error(err))
		}
	}

	for _, fn := range defers {
		fn()
	}
}
