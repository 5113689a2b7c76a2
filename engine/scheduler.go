// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/muster-robotics/muster/bus"
	"github.com/muster-robotics/muster/lib/clock"
	"github.com/muster-robotics/muster/lib/geo"
	"github.com/muster-robotics/muster/perception"
	"github.com/muster-robotics/muster/swarm"
	"github.com/muster-robotics/muster/telemetry"
)

// discoveryRadius is how close an agent must get to a target to
// collect it from the world.
const discoveryRadius = 30.0

// Heartbeat is the per-agent liveness message published on the bus
// every tick.
type Heartbeat struct {
	Agent   int     `cbor:"agent"`
	Role    string  `cbor:"role"`
	State   string  `cbor:"state"`
	X       float64 `cbor:"x"`
	Y       float64 `cbor:"y"`
	Battery float64 `cbor:"battery"`
}

// Config assembles a Scheduler. Agents, world bounds, and a seeded RNG
// are required; everything else has a usable zero value.
type Config struct {
	WorldWidth  float64
	WorldHeight float64
	Obstacles   []geo.Rect
	Targets     []geo.Vec
	Agents      []*swarm.Agent

	// Decider is the perception collaborator. Nil means heuristic
	// decisions only.
	Decider perception.Decider

	// PerceptionTimeout is the wall-clock deadline per collaborator
	// call. PerceptionInterval is simulated seconds between decisions
	// per agent.
	PerceptionTimeout  time.Duration
	PerceptionInterval float64

	ElectionTimeout time.Duration
	// HeartbeatStale is the follower staleness window in simulated
	// seconds.
	HeartbeatStale float64

	RNG    *rand.Rand
	Clock  clock.Clock
	Logger *slog.Logger

	// Optional sinks.
	Bus   *bus.Bus
	Store *telemetry.Store
	Trace *telemetry.TraceWriter
	RunID string
}

// Scheduler advances the simulation tick by tick. All methods are
// single-threaded: callers drive Tick (or Run) from one goroutine.
type Scheduler struct {
	worldWidth  float64
	worldHeight float64
	obstacles   []geo.Rect
	targets     []geo.Vec
	agents      []*swarm.Agent

	decider            perception.Decider
	heuristic          perception.Heuristic
	perceptionTimeout  time.Duration
	perceptionInterval float64
	lastDecision       map[swarm.AgentID]float64

	election        *swarm.Election
	electionTimeout time.Duration

	board     *swarm.TaskBoard
	formation *swarm.Formation
	consensus *swarm.Consensus
	registry  *FollowerRegistry
	alpha     *swarm.Agent

	rng    *rand.Rand
	clock  clock.Clock
	logger *slog.Logger

	eventBus *bus.Bus
	store    *telemetry.Store
	trace    *telemetry.TraceWriter
	runID    string

	tick         int64
	simTime      float64
	totalTargets int
	targetsFound int
	metrics      swarm.Metrics
}

// NewScheduler builds a scheduler from the config.
func NewScheduler(cfg Config) *Scheduler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(clk.Now().UnixNano()))
	}
	if cfg.PerceptionTimeout <= 0 {
		cfg.PerceptionTimeout = 3 * time.Second
	}
	if cfg.PerceptionInterval <= 0 {
		cfg.PerceptionInterval = 5
	}
	if cfg.HeartbeatStale <= 0 {
		cfg.HeartbeatStale = 10
	}

	election := swarm.NewElection(clk, logger)
	if cfg.ElectionTimeout > 0 {
		election.SetTimeout(cfg.ElectionTimeout)
	}

	s := &Scheduler{
		worldWidth:  cfg.WorldWidth,
		worldHeight: cfg.WorldHeight,
		obstacles:   cfg.Obstacles,
		targets:     append([]geo.Vec(nil), cfg.Targets...),
		agents:      cfg.Agents,

		decider:            cfg.Decider,
		perceptionTimeout:  cfg.PerceptionTimeout,
		perceptionInterval: cfg.PerceptionInterval,
		lastDecision:       make(map[swarm.AgentID]float64),

		election:        election,
		electionTimeout: cfg.ElectionTimeout,

		board:     swarm.NewTaskBoard(clk, logger),
		formation: swarm.NewFormation(logger),
		consensus: swarm.NewConsensus(clk, logger),
		registry:  NewFollowerRegistry(cfg.HeartbeatStale),

		rng:    rng,
		clock:  clk,
		logger: logger,

		eventBus: cfg.Bus,
		store:    cfg.Store,
		trace:    cfg.Trace,
		runID:    cfg.RunID,

		totalTargets: len(cfg.Targets),
	}
	for _, agent := range s.agents {
		if agent.Role == swarm.RoleAlpha {
			s.alpha = agent
			break
		}
	}
	return s
}

// Accessors for callers that inspect or drive coordination directly.

func (s *Scheduler) Agents() []*swarm.Agent       { return s.agents }
func (s *Scheduler) Alpha() *swarm.Agent          { return s.alpha }
func (s *Scheduler) Tasks() *swarm.TaskBoard      { return s.board }
func (s *Scheduler) Formation() *swarm.Formation  { return s.formation }
func (s *Scheduler) Consensus() *swarm.Consensus  { return s.consensus }
func (s *Scheduler) Followers() *FollowerRegistry { return s.registry }
func (s *Scheduler) Metrics() swarm.Metrics       { return s.metrics }
func (s *Scheduler) SimTime() float64             { return s.simTime }
func (s *Scheduler) TicksRun() int64              { return s.tick }

// TargetsFound returns collected and total target counts.
func (s *Scheduler) TargetsFound() (found, total int) {
	return s.targetsFound, s.totalTargets
}

// Tick advances the simulation by dt simulated seconds through the
// full phase sequence.
func (s *Scheduler) Tick(ctx context.Context, dt float64) {
	s.tick++
	s.simTime += dt

	s.sensorsPhase()
	s.perceptionPhase(ctx)
	s.behaviorPhase(dt)
	s.coordinationPhase()
	s.discoveryPhase()
	s.metricsPhase()
}

// sensorsPhase refreshes every agent's local view of the world.
func (s *Scheduler) sensorsPhase() {
	for _, agent := range s.agents {
		agent.UpdateSensors(s.obstacles, s.targets, s.agents)
	}
}

// perceptionPhase fans out collaborator calls for agents whose
// decision interval elapsed, joins them, and applies the resulting
// commands. Failures and timeouts fall back to the heuristic.
func (s *Scheduler) perceptionPhase(ctx context.Context) {
	var due []*swarm.Agent
	for _, agent := range s.agents {
		last, decided := s.lastDecision[agent.ID]
		if !decided || s.simTime-last >= s.perceptionInterval {
			due = append(due, agent)
			s.lastDecision[agent.ID] = s.simTime
		}
	}
	if len(due) == 0 {
		return
	}

	commands := make([]perception.Command, len(due))
	if s.decider == nil {
		for i, agent := range due {
			commands[i], _ = s.heuristic.Decide(ctx, agent.SceneDescription())
		}
	} else {
		var wg sync.WaitGroup
		for i, agent := range due {
			wg.Add(1)
			go func(i int, agent *swarm.Agent) {
				defer wg.Done()
				scene := agent.SceneDescription()
				callCtx, cancel := context.WithTimeout(ctx, s.perceptionTimeout)
				defer cancel()

				cmd, err := s.decider.Decide(callCtx, scene)
				if err != nil {
					s.logger.Warn("perception call failed, using heuristic",
						"agent", int(agent.ID), "error", err)
					cmd, _ = s.heuristic.Decide(ctx, scene)
				}
				commands[i] = cmd
			}(i, agent)
		}
		wg.Wait()
	}

	// Commands mutate agent state, so application happens after the
	// join, back on the tick goroutine.
	for i, agent := range due {
		s.applyCommand(agent, commands[i])
	}
}

// applyCommand translates a collaborator command into agent state.
// Rejected transitions leave the agent as is.
func (s *Scheduler) applyCommand(agent *swarm.Agent, cmd perception.Command) {
	switch cmd.Kind {
	case perception.KindMoveToTarget:
		agent.SetTarget(cmd.Target)
	case perception.KindSearchArea, perception.KindSearch:
		agent.TransitionTo(swarm.StateSearching)
	case perception.KindReportFinding:
		agent.TransitionTo(swarm.StateIdle)
	case perception.KindMoveForward:
		if agent.Vel.Len() > 0 {
			agent.Vel = agent.Vel.Norm().Scale(agent.MaxSpeed)
		}
	case perception.KindMoveBackward:
		agent.Vel = agent.Vel.Scale(-1)
	case perception.KindTurnLeft:
		agent.Vel = geo.Vec{X: agent.Vel.Y, Y: -agent.Vel.X}
	case perception.KindTurnRight:
		agent.Vel = geo.Vec{X: -agent.Vel.Y, Y: agent.Vel.X}
	case perception.KindStop:
		agent.Vel = geo.Vec{}
	case perception.KindIdle, perception.KindUnknown:
		agent.TransitionTo(swarm.StateIdle)
	}
}

// behaviorPhase runs state behaviors, obstacle avoidance, and physics
// for every agent, then clamps positions to the world bounds.
func (s *Scheduler) behaviorPhase(dt float64) {
	for _, agent := range s.agents {
		agent.RunBehavior(s.rng)
		agent.AvoidObstacles()
		agent.Integrate(dt)

		if agent.Pos.X < 0 {
			agent.Pos.X = 0
		} else if agent.Pos.X > s.worldWidth {
			agent.Pos.X = s.worldWidth
		}
		if agent.Pos.Y < 0 {
			agent.Pos.Y = 0
		} else if agent.Pos.Y > s.worldHeight {
			agent.Pos.Y = s.worldHeight
		}
	}
}

// coordinationPhase runs the election state machine, follower
// liveness, task assignment, and formation steering.
func (s *Scheduler) coordinationPhase() {
	switch s.election.Phase() {
	case swarm.PhaseIdle:
		s.election.Start(s.agents)
	case swarm.PhaseVoting:
		if s.election.TimedOut() {
			s.logger.Warn("election timed out, restarting")
			s.election.Start(s.agents)
			break
		}
		// The phase switch guarantees a running election, so the
		// ErrNoElection paths are unreachable here.
		if quorum, _ := s.election.ProcessVotes(s.agents); quorum {
			if alpha, _ := s.election.ElectAlpha(s.agents); alpha != nil {
				if s.alpha == nil || s.alpha.ID != alpha.ID {
					s.registry.Clear()
				}
				s.alpha = alpha
			}
		}
	}

	if s.alpha != nil {
		for _, agent := range s.alpha.DetectedAgents {
			if agent.Role == swarm.RoleFollower {
				s.registry.Observe(agent.ID, s.simTime)
			}
		}
		for _, id := range s.registry.Sweep(s.simTime) {
			s.logger.Info("follower went stale", "agent", int(id))
		}
	}

	s.board.AssignAll(s.agents)
	s.formation.Update(s.agents)
}

// discoveryPhase collects world targets that any agent has closed to
// within the discovery radius.
func (s *Scheduler) discoveryPhase() {
	remaining := s.targets[:0]
	for _, target := range s.targets {
		collected := false
		for _, agent := range s.agents {
			if agent.Pos.Dist(target) < discoveryRadius {
				collected = true
				break
			}
		}
		if collected {
			s.targetsFound++
			s.logger.Info("target found", "x", target.X, "y", target.Y,
				"found", s.targetsFound, "total", s.totalTargets)
		} else {
			remaining = append(remaining, target)
		}
	}
	s.targets = remaining
}

// metricsPhase computes the metric surface and feeds the sinks:
// heartbeats on the bus, a row in the metrics store, a snapshot in the
// trace. Sink errors are logged, never propagated.
func (s *Scheduler) metricsPhase() {
	s.metrics = swarm.ComputeMetrics(s.agents, s.targetsFound, s.totalTargets,
		s.formation.Error(s.agents))

	if s.eventBus != nil {
		for _, agent := range s.agents {
			err := s.eventBus.Publish("heartbeat", int(agent.ID), Heartbeat{
				Agent:   int(agent.ID),
				Role:    string(agent.Role),
				State:   string(agent.State),
				X:       agent.Pos.X,
				Y:       agent.Pos.Y,
				Battery: agent.Battery,
			})
			if err != nil {
				s.logger.Warn("heartbeat publish failed", "agent", int(agent.ID), "error", err)
			}
		}
	}

	if s.store != nil {
		alphaID := -1
		if s.alpha != nil {
			alphaID = int(s.alpha.ID)
		}
		err := s.store.RecordTick(telemetry.TickRecord{
			RunID:         s.runID,
			Tick:          s.tick,
			SimTime:       s.simTime,
			Mission:       s.metrics.MissionSuccessRate,
			Formation:     s.metrics.FormationAccuracy,
			Communication: s.metrics.CommunicationEfficiency,
			TargetsFound:  s.targetsFound,
			TotalTargets:  s.totalTargets,
			AlphaID:       alphaID,
		})
		if err != nil {
			s.logger.Warn("tick metrics write failed", "tick", s.tick, "error", err)
		}
	}

	if s.trace != nil {
		snapshot := telemetry.TickSnapshot{Tick: s.tick, SimTime: s.simTime}
		for _, agent := range s.agents {
			snapshot.Agents = append(snapshot.Agents, telemetry.AgentSnapshot{
				ID:      int(agent.ID),
				X:       agent.Pos.X,
				Y:       agent.Pos.Y,
				VX:      agent.Vel.X,
				VY:      agent.Vel.Y,
				Battery: agent.Battery,
				Role:    string(agent.Role),
				State:   string(agent.State),
			})
		}
		s.trace.Write(snapshot)
	}
}

// Reset restores the simulation to its initial condition: agents back
// to the given spawn positions, targets restored, counters cleared,
// and a fresh election pending. Spawns beyond the agent count are
// ignored; missing spawns leave agents at their homes.
func (s *Scheduler) Reset(spawns []geo.Vec, targets []geo.Vec) {
	for i, agent := range s.agents {
		pos := agent.Home
		if i < len(spawns) {
			pos = spawns[i]
		}
		agent.Reset(pos)
	}
	s.targets = append(s.targets[:0], targets...)
	s.totalTargets = len(targets)
	s.targetsFound = 0
	s.tick = 0
	s.simTime = 0
	s.alpha = nil
	s.lastDecision = make(map[swarm.AgentID]float64)
	s.registry.Clear()
	s.election = swarm.NewElection(s.clock, s.logger)
	if s.electionTimeout > 0 {
		s.election.SetTimeout(s.electionTimeout)
	}
	s.metrics = swarm.Metrics{}

	s.logger.Info("simulation reset", "agents", len(s.agents), "targets", len(targets))
}
