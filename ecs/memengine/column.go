package memengine

import "github.com/plus3/ooftn/ecs"

const blockSize = 64

// column stores the components of one type for an archetype in fixed-size
// blocks. Slots are allocated by the owning archetype.
type column struct {
	id     ecs.ComponentTypeID
	blocks [][blockSize]ecs.Component
}

func (c *column) set(slot int, comp ecs.Component) {
	blockIdx := slot / blockSize
	for blockIdx >= len(c.blocks) {
		c.blocks = append(c.blocks, [blockSize]ecs.Component{})
	}
	c.blocks[blockIdx][slot%blockSize] = comp
}

func (c *column) get(slot int) ecs.Component {
	if slot < 0 {
		return nil
	}
	blockIdx := slot / blockSize
	if blockIdx >= len(c.blocks) {
		return nil
	}
	return c.blocks[blockIdx][slot%blockSize]
}

// clear drops the reference held in slot so the component can be collected.
func (c *column) clear(slot int) {
	blockIdx := slot / blockSize
	if slot < 0 || blockIdx >= len(c.blocks) {
		return
	}
	c.blocks[blockIdx][slot%blockSize] = nil
}

// compact moves live slots down according to moves (old slot to new slot,
// ascending) and shrinks the block list to fit live components.
func (c *column) compact(moves []slotMove, live int) {
	numBlocks := (live + blockSize - 1) / blockSize
	if numBlocks == 0 {
		numBlocks = 1
	}
	newBlocks := make([][blockSize]ecs.Component, numBlocks)
	for _, m := range moves {
		newBlocks[m.to/blockSize][m.to%blockSize] = c.get(m.from)
	}
	c.blocks = newBlocks
}
