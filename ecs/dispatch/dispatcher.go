// Package dispatch drives registered ecs systems through their frame
// callbacks: a fixed-rate physics section of pre-physics, physics and
// post-physics sub-steps, then a variable-rate Tick, then the frame-end
// hook.
package dispatch

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/plus3/ooftn/ecs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultPhysicsStep is the default fixed physics timestep in seconds.
	DefaultPhysicsStep = 1.0 / 60.0
	// DefaultMaxPhysicsSteps bounds sub-steps per frame so a slow frame
	// cannot spiral.
	DefaultMaxPhysicsSteps = 5

	tracerName = "github.com/plus3/ooftn/ecs/dispatch"
)

// Named is implemented by systems that report their own name in stats and
// logs. Other systems are named after their type.
type Named interface {
	Name() string
}

type entry struct {
	system ecs.System
	pre    ecs.PrePhysicsTicker
	post   ecs.PostPhysicsTicker
	name   string
	stats  *systemStats
}

// Dispatcher runs systems in registration order.
type Dispatcher struct {
	mu      sync.Mutex
	entries []*entry

	physics    Physics
	step       float64
	maxSteps   int
	frameEnder FrameEnder

	accumulator float64
	dropped     float64
	frame       Frame
	frames      uint64
	steps       uint64

	log    *zap.Logger
	tracer trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for callback failures.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithTracer sets the tracer for frame and phase spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithPhysics sets the physics stepper run between the pre and post
// physics callbacks.
func WithPhysics(p Physics) Option {
	return func(d *Dispatcher) {
		d.physics = p
	}
}

// WithPhysicsStep sets the fixed physics timestep in seconds.
func WithPhysicsStep(step float64) Option {
	return func(d *Dispatcher) {
		d.step = step
	}
}

// WithMaxPhysicsSteps limits physics sub-steps per frame. Accumulated time
// beyond the limit is dropped.
func WithMaxPhysicsSteps(n int) Option {
	return func(d *Dispatcher) {
		d.maxSteps = n
	}
}

// WithFrameEnder sets the hook called at the end of every frame.
func WithFrameEnder(f FrameEnder) Option {
	return func(d *Dispatcher) {
		d.frameEnder = f
	}
}

// New creates a dispatcher with no systems.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		step:     DefaultPhysicsStep,
		maxSteps: DefaultMaxPhysicsSteps,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	if d.step <= 0 || math.IsNaN(d.step) || math.IsInf(d.step, 0) {
		panic(fmt.Sprintf("dispatch: physics step must be positive, got %v", d.step))
	}
	if d.maxSteps < 1 {
		panic(fmt.Sprintf("dispatch: max physics steps must be at least 1, got %d", d.maxSteps))
	}
	return d
}

// Register appends a system. PrePhysicsTick and PostPhysicsTick are called
// only when the system implements them.
func (d *Dispatcher) Register(sys ecs.System) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := &entry{system: sys, name: systemName(sys)}
	e.pre, _ = sys.(ecs.PrePhysicsTicker)
	e.post, _ = sys.(ecs.PostPhysicsTicker)
	e.stats = newSystemStats(e.name)
	d.entries = append(d.entries, e)
}

func systemName(sys ecs.System) string {
	if n, ok := sys.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(sys)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Once runs a single frame with delta time dt in seconds.
func (d *Dispatcher) Once(dt float64) error {
	return d.OnceContext(context.Background(), dt)
}

// OnceContext is Once with a parent context for the frame span.
func (d *Dispatcher) OnceContext(ctx context.Context, dt float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, span := d.tracer.Start(ctx, "ecs.frame", trace.WithAttributes(
		attribute.Int64("ecs.frame.index", int64(d.frames)),
		attribute.Float64("ecs.frame.dt", dt),
		attribute.Int("ecs.systems", len(d.entries)),
	))
	defer span.End()

	n := d.advance(dt)
	frame := Frame{Index: d.frames, DeltaTime: dt, PhysicsSteps: n}

	for i := 0; i < n; i++ {
		if err := d.physicsStep(ctx, i); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "physics step failed")
			return err
		}
		d.accumulator = max(d.accumulator-d.step, 0)
	}

	d.runPhase(ctx, PhaseTick, dt)

	if d.frameEnder != nil {
		d.frameEnder.Flush()
	}

	frame.Alpha = d.accumulator / d.step
	d.frame = frame
	d.frames++
	return nil
}

// advance adds dt to the accumulator and returns the number of physics
// sub-steps to run. Each step's time is debited only once the step has run,
// so time for steps skipped by a failed frame carries over.
func (d *Dispatcher) advance(dt float64) int {
	if dt > 0 {
		d.accumulator += dt
	}
	n := int(math.Floor(d.accumulator / d.step))
	if n > d.maxSteps {
		excess := float64(n-d.maxSteps) * d.step
		d.accumulator -= excess
		d.dropped += excess
		d.log.Debug("physics steps clamped",
			zap.Int("wanted", n),
			zap.Int("max", d.maxSteps),
			zap.Float64("dropped_seconds", excess),
		)
		n = d.maxSteps
	}
	return n
}

func (d *Dispatcher) physicsStep(ctx context.Context, i int) error {
	d.runPhase(ctx, PhasePrePhysics, d.step)

	if d.physics != nil {
		_, span := d.tracer.Start(ctx, "ecs.physics", trace.WithAttributes(
			attribute.Int("ecs.physics.step", i),
		))
		err := d.physics.Step(d.step)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "physics step failed")
		}
		span.End()
		if err != nil {
			return fmt.Errorf("physics step %d of frame %d: %w", i, d.frames, err)
		}
	}
	d.steps++

	d.runPhase(ctx, PhasePostPhysics, d.step)
	return nil
}

// runPhase calls the phase callback of every system. A failing system is
// logged and counted; the remaining systems still run.
func (d *Dispatcher) runPhase(ctx context.Context, phase Phase, dt float64) {
	_, span := d.tracer.Start(ctx, "ecs."+string(phase))
	defer span.End()

	for _, e := range d.entries {
		var call func(float64) error
		switch phase {
		case PhasePrePhysics:
			if e.pre != nil {
				call = e.pre.PrePhysicsTick
			}
		case PhasePostPhysics:
			if e.post != nil {
				call = e.post.PostPhysicsTick
			}
		case PhaseTick:
			call = e.system.Tick
		}
		if call == nil {
			continue
		}

		start := time.Now()
		err := call(dt)
		e.stats.record(time.Since(start), err)
		if err != nil {
			span.RecordError(err, trace.WithAttributes(attribute.String("ecs.system", e.name)))
			d.log.Warn("system callback failed",
				zap.String("system", e.name),
				zap.String("phase", string(phase)),
				zap.Uint64("frame", d.frames),
				zap.Error(err),
			)
		}
	}
}

// Run executes frames at the given interval until ctx is cancelled or a
// frame fails. The first frame's delta is measured from the call to Run.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := d.OnceContext(ctx, dt); err != nil {
				return err
			}
		}
	}
}

// LastFrame returns the most recently completed frame.
func (d *Dispatcher) LastFrame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Stats returns statistics about system execution.
func (d *Dispatcher) Stats() *Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := &Stats{
		SystemCount:      len(d.entries),
		FrameCount:       d.frames,
		PhysicsStepCount: d.steps,
		DroppedPhysicsDT: d.dropped,
		Systems:          make([]SystemStats, len(d.entries)),
	}
	for i, e := range d.entries {
		s := e.stats.snapshot()
		stats.Systems[i] = s
		stats.TotalExecutions += s.ExecutionCount
		stats.TotalErrors += s.ErrorCount
	}
	return stats
}
