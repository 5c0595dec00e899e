package memengine

import (
	"iter"
	"math/bits"

	"github.com/kamstrup/intmap"
	"github.com/plus3/ooftn/ecs"
)

// archetype holds every entity with exactly the component set in mask.
// Component ids are kept in ascending order, matching signature dense order.
type archetype struct {
	mask    uint64
	ids     []ecs.ComponentTypeID
	columns []*column

	slots     *intmap.Map[int, ecs.Entity]
	freeSlots []int
	nextSlot  int
}

type slotMove struct {
	from, to int
}

func newArchetype(mask uint64) *archetype {
	a := &archetype{
		mask:  mask,
		slots: intmap.New[int, ecs.Entity](256),
	}
	for m := mask; m != 0; m &= m - 1 {
		id := ecs.ComponentTypeID(bits.TrailingZeros64(m))
		a.ids = append(a.ids, id)
		a.columns = append(a.columns, &column{id: id})
	}
	return a
}

// columnOf returns the column position of id, or -1.
func (a *archetype) columnOf(id ecs.ComponentTypeID) int {
	if a.mask&(1<<id) == 0 {
		return -1
	}
	// Position is the number of set bits below id.
	return bits.OnesCount64(a.mask & (1<<id - 1))
}

// spawn stores components, which must be ordered like a.ids, and returns
// the slot assigned to e.
func (a *archetype) spawn(e ecs.Entity, components []ecs.Component) int {
	var slot int
	if n := len(a.freeSlots); n > 0 {
		slot = a.freeSlots[n-1]
		a.freeSlots = a.freeSlots[:n-1]
	} else {
		slot = a.nextSlot
		a.nextSlot++
	}

	for i, col := range a.columns {
		col.set(slot, components[i])
	}
	a.slots.Put(slot, e)
	return slot
}

// delete marks slot as empty. Other slots keep their positions.
func (a *archetype) delete(slot int) {
	if !a.slots.Has(slot) {
		return
	}
	for _, col := range a.columns {
		col.clear(slot)
	}
	a.slots.Del(slot)
	a.freeSlots = append(a.freeSlots, slot)
}

// components returns the components of slot in column order.
func (a *archetype) components(slot int) []ecs.Component {
	out := make([]ecs.Component, len(a.columns))
	for i, col := range a.columns {
		out[i] = col.get(slot)
	}
	return out
}

func (a *archetype) component(slot int, id ecs.ComponentTypeID) (ecs.Component, bool) {
	pos := a.columnOf(id)
	if pos < 0 {
		return nil, false
	}
	return a.columns[pos].get(slot), true
}

func (a *archetype) len() int {
	return a.slots.Len()
}

// iter yields live slots in ascending order.
func (a *archetype) iter() iter.Seq2[int, ecs.Entity] {
	return func(yield func(int, ecs.Entity) bool) {
		for slot := 0; slot < a.nextSlot; slot++ {
			e, ok := a.slots.Get(slot)
			if !ok {
				continue
			}
			if !yield(slot, e) {
				return
			}
		}
	}
}

// compact packs live slots to the front and returns the moves performed so
// the caller can update entity records.
func (a *archetype) compact() []slotMove {
	moves := make([]slotMove, 0, a.len())
	for slot := range a.iter() {
		moves = append(moves, slotMove{from: slot, to: len(moves)})
	}

	for _, col := range a.columns {
		col.compact(moves, len(moves))
	}

	entities := make([]ecs.Entity, len(moves))
	for i, m := range moves {
		entities[i], _ = a.slots.Get(m.from)
	}
	a.slots.Clear()
	for i := range moves {
		a.slots.Put(i, entities[i])
	}

	a.freeSlots = nil
	a.nextSlot = len(moves)
	return moves
}
