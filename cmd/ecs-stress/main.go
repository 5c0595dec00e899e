// Command ecs-stress populates an in-memory world, drives it with the
// dispatch loop and prints a performance report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/ooftn/ecs"
	"github.com/plus3/ooftn/ecs/dispatch"
	"github.com/plus3/ooftn/ecs/luasystem"
	"github.com/plus3/ooftn/ecs/memengine"
	"github.com/plus3/ooftn/internal/config"
	"github.com/plus3/ooftn/internal/logging"
	"github.com/plus3/ooftn/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML or YAML config file.")
	duration := flag.Duration("duration", 0, "Run for this long instead of a fixed number of frames.")
	frames := flag.Int("frames", 0, "The number of frames to run.")
	entityCount := flag.Int("entities", 0, "The initial number of entities to create.")
	systemCount := flag.Int("systems", 0, "The number of native systems to register.")
	script := flag.String("script", "", "A Lua system to register alongside the native ones.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	realtime := flag.Bool("realtime", false, "Pace frames at the configured tick interval until -duration elapses or the process is interrupted.")
	seed := flag.Uint64("seed", 1, "Seed for the entity population.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Stress.Duration = *duration
		case "frames":
			cfg.Stress.Frames = *frames
		case "entities":
			cfg.Stress.Entities = *entityCount
		case "systems":
			cfg.Stress.Systems = *systemCount
		case "script":
			cfg.Stress.Script = *script
		case "profile":
			cfg.Stress.Profile = *profileMode
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout, *seed, *realtime, *gcPauseMetrics); err != nil {
		log.Fatal("stress test failed", zap.Error(err))
	}
}

// run builds the world and dispatcher from cfg, runs the simulation until
// the configured frames or duration are done or ctx is cancelled, and writes
// the report to out.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer, seed uint64, realtime, gcPauseMetrics bool) error {
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	switch cfg.Stress.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	world := memengine.New(
		memengine.WithMaxComponentTypes(cfg.Engine.MaxComponentTypes),
		memengine.WithLogger(log.Named("memengine")),
	)
	reg := ecs.NewTypeRegistry(ecs.WithRegistryLogger(log.Named("registry")))
	reg.Bind(world)

	d := dispatch.New(
		dispatch.WithLogger(log.Named("dispatch")),
		dispatch.WithPhysicsStep(cfg.Engine.PhysicsStep),
		dispatch.WithMaxPhysicsSteps(cfg.Engine.MaxPhysicsSteps),
		dispatch.WithFrameEnder(world),
	)

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	registerSystems(d, world, reg, r, cfg.Stress.Systems)
	if cfg.Stress.Script != "" {
		sys, err := luasystem.Load(cfg.Stress.Script, ecs.NewBase(0, world, reg), luasystem.WithLogger(log.Named("lua")))
		if err != nil {
			return err
		}
		defer sys.Close()
		d.Register(sys)
	}

	log.Info("populating world", zap.Int("entities", cfg.Stress.Entities))
	if err := populate(world, r, cfg.Stress.Entities); err != nil {
		return err
	}

	report := &Report{
		Duration:       cfg.Stress.Duration,
		Frames:         cfg.Stress.Frames,
		Entities:       cfg.Stress.Entities,
		Systems:        cfg.Stress.Systems,
		Script:         cfg.Stress.Script,
		GCPauseMetrics: gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	runCtx := ctx
	if cfg.Stress.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Stress.Duration)
		defer cancel()
	}

	log.Info("running simulation",
		zap.Duration("duration", cfg.Stress.Duration),
		zap.Int("frames", cfg.Stress.Frames),
		zap.Bool("realtime", realtime),
	)

	runCtx, finish := context.WithCancel(runCtx)
	defer finish()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// Releases the watcher below when a fixed frame count completes.
		defer finish()
		if realtime {
			return d.Run(gctx, cfg.Engine.TickInterval)
		}
		return loop(gctx, d, cfg, &report.UpdateTime)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("interrupted")
		}
		return nil
	})

	start := time.Now()
	err = g.Wait()
	report.TotalTime = time.Since(start)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.Dispatch = d.Stats()
	report.World = world.CollectStats()
	report.TotalUpdates = int64(report.Dispatch.FrameCount)

	log.Info("simulation finished")

	fmt.Fprintln(out, "\n\n--- Stress Test Report ---")
	if err := report.Generate(out); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Fprintln(out, "--- End of Report ---")
	return nil
}

// loop runs frames back to back, sampling each frame's duration. With a
// positive frame count it stops after that many frames.
func loop(ctx context.Context, d *dispatch.Dispatcher, cfg *config.Config, samples *Stats) error {
	last := time.Now()
	for n := 0; cfg.Stress.Duration > 0 || n < cfg.Stress.Frames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		dt := time.Since(last)
		last = time.Now()

		start := time.Now()
		if err := d.OnceContext(ctx, dt.Seconds()); err != nil {
			return err
		}
		samples.Samples = append(samples.Samples, time.Since(start))
	}
	return nil
}
