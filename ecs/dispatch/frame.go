package dispatch

// Frame describes one dispatch iteration.
type Frame struct {
	// Index counts frames from zero.
	Index uint64
	// DeltaTime is the variable frame delta passed to Tick, in seconds.
	DeltaTime float64
	// PhysicsSteps is the number of fixed physics sub-steps run this frame.
	PhysicsSteps int
	// Alpha is the fraction of a physics step left in the accumulator,
	// for render interpolation.
	Alpha float64
}

// FrameEnder is called once at the end of every frame, after all Tick
// callbacks. Engines apply deferred structural changes here.
type FrameEnder interface {
	Flush()
}

// FrameEnderFunc adapts a function to FrameEnder.
type FrameEnderFunc func()

func (f FrameEnderFunc) Flush() { f() }

// Physics advances the physics simulation by one fixed step.
type Physics interface {
	Step(dt float64) error
}

// PhysicsFunc adapts a function to Physics.
type PhysicsFunc func(dt float64) error

func (f PhysicsFunc) Step(dt float64) error { return f(dt) }

// Phase names a callback slot of the frame.
type Phase string

const (
	PhasePrePhysics  Phase = "pre_physics"
	PhasePostPhysics Phase = "post_physics"
	PhaseTick        Phase = "tick"
)
