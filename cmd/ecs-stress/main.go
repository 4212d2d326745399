package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plus3/quiver/ecs"
)

// Stress components.

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64
}

type Hitpoints struct {
	Value float64
	Regen float64
}

type Actor struct {
	Position  Position
	Velocity  Velocity
	Hitpoints Hitpoints
}

// Nudge is the pooled command the workers record into the buffer.
type Nudge struct {
	DX, DY float64
	pool   *ecs.CommandPool[Nudge]
}

func (c *Nudge) Execute(_ *ecs.World, target ecs.EntityRef) {
	if pos := ecs.GetOrNil[Position](target); pos != nil {
		pos.X += c.DX
		pos.Y += c.DY
	}
}

func (c *Nudge) Release() {
	c.pool.Put(c)
}

func (c *Nudge) Reset() {
	c.DX, c.DY = 0, 0
}

// MoveSystem integrates velocity each tick.
type MoveSystem struct {
	ecs.SystemBase
}

func (s *MoveSystem) Matcher() ecs.Matcher {
	return ecs.And(ecs.HasComponent[Position](), ecs.HasComponent[Velocity]())
}

func (s *MoveSystem) Execute(w *ecs.World, _ *ecs.Scheduler, entity ecs.EntityRef) {
	clock := ecs.AcquireAddon[ecs.Clock](w)
	pos := ecs.MustGet[Position](entity)
	vel := ecs.MustGet[Velocity](entity)
	pos.X += vel.DX * clock.DeltaTime
	pos.Y += vel.DY * clock.DeltaTime
}

// RegenSystem runs after MoveSystem and tops hitpoints up.
type RegenSystem struct {
	ecs.SystemBase
	move *MoveSystem
}

func (s *RegenSystem) Matcher() ecs.Matcher       { return ecs.HasComponent[Hitpoints]() }
func (s *RegenSystem) Dependencies() []ecs.System { return []ecs.System{s.move} }

func (s *RegenSystem) Execute(w *ecs.World, _ *ecs.Scheduler, entity ecs.EntityRef) {
	clock := ecs.AcquireAddon[ecs.Clock](w)
	hp := ecs.MustGet[Hitpoints](entity)
	hp.Value += hp.Regen * clock.DeltaTime
	if hp.Value > 100 {
		hp.Value = 100
	}
}

// NudgeCountSystem reacts to Nudge commands. It counts, per tick, the
// entities hit by at least one Nudge; repeated nudges on one entity within
// a tick count once.
type NudgeCountSystem struct {
	ecs.SystemBase
	Landed int64
}

func (s *NudgeCountSystem) Matcher() ecs.Matcher { return ecs.HasComponent[Position]() }
func (s *NudgeCountSystem) Triggers() []any      { return []any{&Nudge{}} }

func (s *NudgeCountSystem) Execute(*ecs.World, *ecs.Scheduler, ecs.EntityRef) {
	s.Landed++
}

func main() {
	configPath := flag.String("config", "", "Path to a TOML scenario file.")
	entityCount := flag.Int("entities", 0, "Override the initial entity count.")
	tickCount := flag.Int("ticks", 0, "Override the tick count.")
	verbose := flag.Bool("v", false, "Enable debug logging.")
	flag.Parse()

	logger, err := buildLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if *entityCount > 0 {
		cfg.Entities = *entityCount
	}
	if *tickCount > 0 {
		cfg.Ticks = *tickCount
	}

	logger.Info("starting stress run",
		zap.Int("entities", cfg.Entities),
		zap.Int("ticks", cfg.Ticks),
		zap.Int("workers", cfg.Workers))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("stress run failed", zap.Error(err))
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
	}
	return zcfg.Build()
}

func run(cfg Config, logger *zap.Logger) error {
	world := ecs.NewWorld(ecs.WithLogger(logger))
	defer world.Dispose()
	sched := ecs.NewScheduler(ecs.WithSchedulerLogger(logger))

	clock := ecs.AcquireAddon[ecs.Clock](world)

	move := &MoveSystem{}
	regen := &RegenSystem{move: move}
	nudges := &NudgeCountSystem{}
	for _, sys := range []ecs.System{move, regen, nudges} {
		if _, err := ecs.RegisterSystem(world, sched, sys); err != nil {
			return err
		}
	}

	var opts []ecs.HostOption
	if cfg.SparseStorage {
		opts = append(opts, ecs.WithSparseStorage(0))
	}
	host := ecs.AcquireHost[Actor](world, opts...)

	rng := rand.New(rand.NewSource(1))
	spawn := func() ecs.EntityRef {
		return host.CreateValue(Actor{
			Velocity:  Velocity{DX: rng.Float64(), DY: rng.Float64()},
			Hitpoints: Hitpoints{Value: rng.Float64() * 100, Regen: 1},
		})
	}

	entities := make([]ecs.EntityRef, 0, cfg.Entities)
	for i := 0; i < cfg.Entities; i++ {
		entities = append(entities, spawn())
	}
	logger.Info("population complete", zap.Int("count", world.Count()))

	pool := ecs.NewCommandPool[Nudge]()

	report := &Report{
		Entities:       cfg.Entities,
		Ticks:          cfg.Ticks,
		Workers:        cfg.Workers,
		GCPauseMetrics: cfg.GCPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)
	runStart := time.Now()
	lastTick := runStart

	for tick := 0; tick < cfg.Ticks; tick++ {
		now := time.Now()
		clock.DeltaTime = now.Sub(lastTick).Seconds()
		lastTick = now

		// Parallel phase: workers record deferred mutations into their
		// own writers; nothing touches the world until Submit runs on
		// this goroutine.
		var group errgroup.Group
		for worker := 0; worker < cfg.Workers; worker++ {
			writer := world.Commands().Writer()
			seed := int64(tick*cfg.Workers + worker)
			group.Go(func() error {
				wrng := rand.New(rand.NewSource(seed))
				for i := 0; i < cfg.CommandsPerWorkerTick; i++ {
					cmd := pool.Acquire()
					cmd.pool = pool
					cmd.DX = wrng.Float64() - 0.5
					cmd.DY = wrng.Float64() - 0.5
					writer.Record(cmd, entities[wrng.Intn(len(entities))])
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
		if err := world.Commands().Submit(world); err != nil {
			return err
		}

		tickStart := time.Now()
		sched.Tick()
		report.TickTime.Samples = append(report.TickTime.Samples, time.Since(tickStart))

		// Churn: release and respawn a slice of the population.
		churn := int(float64(len(entities)) * cfg.ChurnRatio)
		for i := 0; i < churn; i++ {
			victim := rng.Intn(len(entities))
			if err := world.Remove(entities[victim]); err != nil {
				return err
			}
			entities[victim] = spawn()
		}
	}

	report.TotalTime = time.Since(runStart)
	report.NudgesLanded = nudges.Landed
	report.TickTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	logger.Info("run finished",
		zap.Duration("total", report.TotalTime),
		zap.Int64("nudges_landed", report.NudgesLanded))

	fmt.Println("\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return err
	}
	fmt.Println("--- End of Report ---")
	return nil
}
