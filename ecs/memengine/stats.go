package memengine

import "github.com/plus3/ooftn/ecs"

// Stats is a snapshot of world storage.
type Stats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	ComponentTypeCount int
	PendingCommands    int
	ArchetypeBreakdown []ArchetypeStats
}

// ArchetypeStats describes one archetype. Empty archetypes are included.
type ArchetypeStats struct {
	Mask        uint64
	Types       []ecs.TypeKey
	EntityCount int
	Capacity    int
}

// CollectStats reports archetypes in creation order.
func (w *World) CollectStats() Stats {
	stats := Stats{
		ArchetypeCount:     len(w.order),
		TotalEntityCount:   len(w.records),
		ComponentTypeCount: len(w.keys),
		PendingCommands:    w.commands.Pending(),
		ArchetypeBreakdown: make([]ArchetypeStats, 0, len(w.order)),
	}
	for _, arch := range w.order {
		types := make([]ecs.TypeKey, len(arch.ids))
		for i, id := range arch.ids {
			types[i] = w.keys[id]
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			Mask:        arch.mask,
			Types:       types,
			EntityCount: arch.len(),
			Capacity:    arch.nextSlot,
		})
	}
	return stats
}
