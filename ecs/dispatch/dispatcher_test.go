package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plus3/ooftn/ecs/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	name  string
	calls *[]string
	fail  error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) PrePhysicsTick(dt float64) error {
	*r.calls = append(*r.calls, r.name+".prePhysicsTick")
	return nil
}

func (r *recorder) PostPhysicsTick(dt float64) error {
	*r.calls = append(*r.calls, r.name+".postPhysicsTick")
	return nil
}

func (r *recorder) Tick(dt float64) error {
	*r.calls = append(*r.calls, r.name+".tick")
	return r.fail
}

type tickOnly struct {
	ticks int
	dts   []float64
}

func (s *tickOnly) Tick(dt float64) error {
	s.ticks++
	s.dts = append(s.dts, dt)
	return nil
}

func TestLifecycleOrdering(t *testing.T) {
	var calls []string
	d := dispatch.New(
		dispatch.WithPhysicsStep(0.5),
		dispatch.WithPhysics(dispatch.PhysicsFunc(func(dt float64) error {
			calls = append(calls, "physics")
			return nil
		})),
		dispatch.WithFrameEnder(dispatch.FrameEnderFunc(func() {
			calls = append(calls, "flush")
		})),
	)
	d.Register(&recorder{name: "a", calls: &calls})
	d.Register(&recorder{name: "b", calls: &calls})

	require.NoError(t, d.Once(0.5))

	assert.Equal(t, []string{
		"a.prePhysicsTick", "b.prePhysicsTick",
		"physics",
		"a.postPhysicsTick", "b.postPhysicsTick",
		"a.tick", "b.tick",
		"flush",
	}, calls)
}

func TestTickOnlySystemSkipsPhysicsCallbacks(t *testing.T) {
	d := dispatch.New(dispatch.WithPhysicsStep(0.5))
	sys := &tickOnly{}
	d.Register(sys)

	require.NoError(t, d.Once(1.0))
	require.NoError(t, d.Once(0.25))

	assert.Equal(t, 2, sys.ticks)
	assert.Equal(t, []float64{1.0, 0.25}, sys.dts)

	stats := d.Stats()
	require.Len(t, stats.Systems, 1)
	assert.Equal(t, "tickOnly", stats.Systems[0].Name)
	assert.Equal(t, int64(2), stats.Systems[0].ExecutionCount)
	assert.Equal(t, uint64(2), stats.PhysicsStepCount)
}

func TestPhysicsAccumulator(t *testing.T) {
	steps := 0
	d := dispatch.New(
		dispatch.WithPhysicsStep(0.5),
		dispatch.WithMaxPhysicsSteps(3),
		dispatch.WithPhysics(dispatch.PhysicsFunc(func(dt float64) error {
			assert.Equal(t, 0.5, dt)
			steps++
			return nil
		})),
	)

	cases := []struct {
		dt    float64
		steps int
	}{
		{dt: 0.25, steps: 0},
		{dt: 0.25, steps: 1},
		{dt: 1.0, steps: 2},
		{dt: 10, steps: 3},
		{dt: 0, steps: 0},
	}
	for _, tc := range cases {
		steps = 0
		require.NoError(t, d.Once(tc.dt))
		assert.Equal(t, tc.steps, steps, "dt %v", tc.dt)
		assert.Equal(t, tc.steps, d.LastFrame().PhysicsSteps)
	}

	stats := d.Stats()
	assert.Equal(t, uint64(5), stats.FrameCount)
	assert.Equal(t, uint64(6), stats.PhysicsStepCount)
	assert.Equal(t, 8.5, stats.DroppedPhysicsDT)
}

func TestFrameAlpha(t *testing.T) {
	d := dispatch.New(dispatch.WithPhysicsStep(0.5))
	require.NoError(t, d.Once(0.75))

	frame := d.LastFrame()
	assert.Equal(t, uint64(0), frame.Index)
	assert.Equal(t, 1, frame.PhysicsSteps)
	assert.Equal(t, 0.5, frame.Alpha)
}

func TestSystemErrorsAreTolerated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var calls []string
	boom := errors.New("boom")

	d := dispatch.New(dispatch.WithLogger(zap.New(core)))
	d.Register(&recorder{name: "broken", calls: &calls, fail: boom})
	d.Register(&recorder{name: "healthy", calls: &calls})

	require.NoError(t, d.Once(0))
	require.NoError(t, d.Once(0))

	assert.Equal(t, []string{"broken.tick", "healthy.tick", "broken.tick", "healthy.tick"}, calls)

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int64(4), stats.TotalExecutions)
	assert.Equal(t, int64(2), stats.Systems[0].ErrorCount)
	assert.ErrorIs(t, stats.Systems[0].LastError, boom)
	assert.Zero(t, stats.Systems[1].ErrorCount)

	entries := logs.FilterMessage("system callback failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "broken", entries[0].ContextMap()["system"])
	assert.Equal(t, "tick", entries[0].ContextMap()["phase"])
}

func TestPhysicsErrorAbortsFrame(t *testing.T) {
	boom := errors.New("solver diverged")
	flushed := false
	var calls []string

	d := dispatch.New(
		dispatch.WithPhysicsStep(0.5),
		dispatch.WithPhysics(dispatch.PhysicsFunc(func(float64) error { return boom })),
		dispatch.WithFrameEnder(dispatch.FrameEnderFunc(func() { flushed = true })),
	)
	d.Register(&recorder{name: "a", calls: &calls})

	err := d.Once(0.5)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a.prePhysicsTick"}, calls)
	assert.False(t, flushed)
	assert.Equal(t, uint64(0), d.Stats().FrameCount)
}

func TestPhysicsErrorKeepsUnrunStepTime(t *testing.T) {
	calls := 0
	boom := errors.New("solver diverged")
	d := dispatch.New(
		dispatch.WithPhysicsStep(0.5),
		dispatch.WithPhysics(dispatch.PhysicsFunc(func(float64) error {
			calls++
			if calls == 2 {
				return boom
			}
			return nil
		})),
	)

	require.ErrorIs(t, d.Once(1.0), boom)
	assert.Equal(t, uint64(1), d.Stats().PhysicsStepCount)

	// The failed step's time is still owed.
	require.NoError(t, d.Once(0))
	assert.Equal(t, 1, d.LastFrame().PhysicsSteps)
	assert.Equal(t, uint64(2), d.Stats().PhysicsStepCount)
	assert.Equal(t, 0.0, d.LastFrame().Alpha)
}

func TestStatsDurations(t *testing.T) {
	d := dispatch.New()
	d.Register(&tickOnly{})

	stats := d.Stats()
	assert.Equal(t, 1, stats.SystemCount)
	assert.Zero(t, stats.Systems[0].MinDuration)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Once(0.01))
	}

	s := d.Stats().Systems[0]
	assert.Equal(t, int64(3), s.ExecutionCount)
	assert.LessOrEqual(t, s.MinDuration, s.AvgDuration)
	assert.LessOrEqual(t, s.AvgDuration, s.MaxDuration)
	assert.Equal(t, s.TotalDuration/3, s.AvgDuration)
}

func TestSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	d := dispatch.New(
		dispatch.WithTracer(tp.Tracer("test")),
		dispatch.WithPhysicsStep(0.5),
		dispatch.WithPhysics(dispatch.PhysicsFunc(func(float64) error { return nil })),
	)
	d.Register(&tickOnly{})
	require.NoError(t, d.Once(0.5))

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"ecs.pre_physics", "ecs.physics", "ecs.post_physics", "ecs.tick", "ecs.frame"}, names)

	frame := sr.Ended()[4]
	for _, s := range sr.Ended()[:4] {
		assert.Equal(t, frame.SpanContext().SpanID(), s.Parent().SpanID())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := dispatch.New()
	sys := &tickOnly{}
	d.Register(sys)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, sys.ticks)
	assert.Equal(t, uint64(sys.ticks), d.Stats().FrameCount)
}

func TestRunReturnsPhysicsError(t *testing.T) {
	boom := errors.New("boom")
	d := dispatch.New(
		dispatch.WithPhysicsStep(0.001),
		dispatch.WithPhysics(dispatch.PhysicsFunc(func(float64) error { return boom })),
	)

	err := d.Run(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestNewRejectsBadStep(t *testing.T) {
	assert.Panics(t, func() { dispatch.New(dispatch.WithPhysicsStep(0)) })
	assert.Panics(t, func() { dispatch.New(dispatch.WithMaxPhysicsSteps(0)) })
}
