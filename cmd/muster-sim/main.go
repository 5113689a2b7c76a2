// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// muster-sim runs a headless swarm simulation from a config file and a
// scenario, printing the final metric summary to stdout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/muster-robotics/muster/bus"
	"github.com/muster-robotics/muster/engine"
	"github.com/muster-robotics/muster/lib/clock"
	"github.com/muster-robotics/muster/lib/config"
	"github.com/muster-robotics/muster/lib/geo"
	"github.com/muster-robotics/muster/lib/process"
	"github.com/muster-robotics/muster/perception"
	"github.com/muster-robotics/muster/scenario"
	"github.com/muster-robotics/muster/swarm"
	"github.com/muster-robotics/muster/telemetry"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath   string
		scenarioPath string
		maxTime      time.Duration
		seed         int64
		realtime     bool
		showVersion  bool
	)
	pflag.StringVar(&configPath, "config", "", "path to muster.yaml (overrides MUSTER_CONFIG)")
	pflag.StringVar(&scenarioPath, "scenario", "", "scenario file to run (default: generated)")
	pflag.DurationVar(&maxTime, "max-time", 0, "override the configured simulation time limit")
	pflag.Int64Var(&seed, "seed", 0, "override the configured random seed")
	pflag.BoolVar(&realtime, "realtime", false, "pace ticks at wall-clock rate instead of free-running")
	pflag.BoolVar(&showVersion, "version", false, "print the build version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println("muster-sim", buildVersion())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if maxTime > 0 {
		cfg.Sim.MaxTime = config.Duration(maxTime)
	}
	if seed != 0 {
		cfg.Sim.Seed = seed
	}
	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = time.Now().UnixNano()
	}

	logger := newLogger(cfg.Logging.Level)
	rng := rand.New(rand.NewSource(cfg.Sim.Seed))

	world, err := loadScenario(scenarioPath, cfg, rng)
	if err != nil {
		return err
	}
	if err := world.Validate(cfg.World.Width, cfg.World.Height); err != nil {
		return fmt.Errorf("scenario %q: %w", world.Name, err)
	}
	digest, err := scenario.Digest(world)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := telemetry.NewRunID()
	logger.Info("starting simulation",
		"run", runID,
		"scenario", world.Name,
		"digest", digest[:12],
		"agents", len(world.Agents),
		"seed", cfg.Sim.Seed,
	)

	var store *telemetry.Store
	if cfg.Telemetry.Database != "" {
		store, err = telemetry.OpenStore(cfg.Telemetry.Database, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	var trace *telemetry.TraceWriter
	if cfg.Telemetry.Trace != "" {
		trace, err = telemetry.NewTraceWriter(cfg.Telemetry.Trace,
			telemetry.TraceHeader{RunID: runID, Scenario: digest}, logger)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	eventBus := bus.New(0)
	defer eventBus.Close()

	scheduler := engine.NewScheduler(engine.Config{
		WorldWidth:  cfg.World.Width,
		WorldHeight: cfg.World.Height,
		Obstacles:   world.ObstacleRects(),
		Targets:     world.TargetVecs(),
		Agents:      buildAgents(world, cfg),

		Decider:            buildDecider(cfg, logger),
		PerceptionTimeout:  cfg.Perception.Timeout.Std(),
		PerceptionInterval: cfg.Perception.Interval.Std().Seconds(),

		ElectionTimeout: cfg.Election.Timeout.Std(),
		HeartbeatStale:  cfg.Heartbeat.StaleAfter.Std().Seconds(),

		RNG:    rng,
		Clock:  clock.Real(),
		Logger: logger,

		Bus:   eventBus,
		Store: store,
		Trace: trace,
		RunID: runID,
	})

	runErr := scheduler.Run(ctx, engine.RunConfig{
		Dt:       cfg.Sim.Dt.Std(),
		MaxTime:  cfg.Sim.MaxTime.Std(),
		Realtime: realtime,
	})
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	printSummary(scheduler)
	return nil
}

// loadConfig resolves --config, then MUSTER_CONFIG, then defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("MUSTER_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// loadScenario reads the scenario file, or generates one from the
// configured agent count when no file is given.
func loadScenario(path string, cfg *config.Config, rng *rand.Rand) (*scenario.Scenario, error) {
	if path != "" {
		return scenario.Load(path)
	}
	return scenario.Generate(rng, scenario.GenerateSpec{
		Name:    "generated",
		Agents:  cfg.Agents.Count,
		Targets: 5,
		Width:   cfg.World.Width,
		Height:  cfg.World.Height,
	}), nil
}

// buildAgents instantiates the swarm from scenario spawns, applying
// the configured platform parameters.
func buildAgents(world *scenario.Scenario, cfg *config.Config) []*swarm.Agent {
	agents := make([]*swarm.Agent, 0, len(world.Agents))
	for _, spawn := range world.Agents {
		agent := swarm.NewAgent(swarm.AgentID(spawn.ID), geo.Vec{X: spawn.X, Y: spawn.Y})
		role, _ := scenarioRole(spawn.Role)
		agent.Role = role
		if cfg.Agents.MaxSpeed > 0 {
			agent.MaxSpeed = cfg.Agents.MaxSpeed
		}
		if cfg.Agents.CommRange > 0 {
			agent.CommRange = cfg.Agents.CommRange
		}
		if cfg.Agents.SensorRange > 0 {
			agent.SensorRange = cfg.Agents.SensorRange
		}
		agents = append(agents, agent)
	}
	return agents
}

// scenarioRole parses a role string; validation already ran, so the
// fallback is unreachable in practice.
func scenarioRole(s string) (swarm.Role, error) {
	role, err := swarm.ParseRole(s)
	if err != nil {
		return swarm.RoleFollower, err
	}
	return role, nil
}

// buildDecider selects the model collaborator when an endpoint is
// configured, the heuristic otherwise.
func buildDecider(cfg *config.Config, logger *slog.Logger) perception.Decider {
	if cfg.Perception.Endpoint == "" {
		return nil
	}
	return perception.NewModel(perception.ModelConfig{
		Endpoint: cfg.Perception.Endpoint,
		Model:    cfg.Perception.Model,
		Attempts: cfg.Perception.Retries,
		Logger:   logger,
	})
}

func printSummary(s *engine.Scheduler) {
	metrics := s.Metrics()
	found, total := s.TargetsFound()
	fmt.Printf("ticks: %d  sim time: %.1fs\n", s.TicksRun(), s.SimTime())
	fmt.Printf("targets found: %d/%d\n", found, total)
	fmt.Printf("mission success:          %6.1f%%\n", metrics.MissionSuccessRate)
	fmt.Printf("formation accuracy:       %6.1f%%\n", metrics.FormationAccuracy)
	fmt.Printf("communication efficiency: %6.1f%%\n", metrics.CommunicationEfficiency)
	if alpha := s.Alpha(); alpha != nil {
		fmt.Printf("alpha: agent %d\n", alpha.ID)
	}
}

// buildVersion reports the module version recorded by the build, or
// "devel" for a plain source build.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
