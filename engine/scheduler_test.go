// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/muster-robotics/muster/bus"
	"github.com/muster-robotics/muster/lib/geo"
	"github.com/muster-robotics/muster/lib/testutil"
	"github.com/muster-robotics/muster/perception"
	"github.com/muster-robotics/muster/swarm"
)

func testConfig(agents int) Config {
	spawned := make([]*swarm.Agent, agents)
	for i := range spawned {
		spawned[i] = swarm.NewAgent(swarm.AgentID(i), geo.Vec{X: 100 + float64(i)*20, Y: 100})
	}
	return Config{
		WorldWidth:  1200,
		WorldHeight: 800,
		Agents:      spawned,
		RNG:         rand.New(rand.NewSource(1)),
	}
}

func TestTickElectsAlpha(t *testing.T) {
	s := NewScheduler(testConfig(5))

	// Tick 1 starts the election, tick 2 collects votes and decides.
	s.Tick(context.Background(), 1.0/60)
	s.Tick(context.Background(), 1.0/60)

	if s.Alpha() == nil {
		t.Fatal("no alpha after two ticks")
	}
	alphas := 0
	for _, agent := range s.Agents() {
		if agent.Role == swarm.RoleAlpha {
			alphas++
		}
	}
	if alphas != 1 {
		t.Fatalf("%d alphas", alphas)
	}
}

func TestDiscoveryCollectsTargets(t *testing.T) {
	cfg := testConfig(1)
	cfg.Targets = []geo.Vec{
		{X: 110, Y: 100}, // within 30 of the agent at (100, 100)
		{X: 900, Y: 700}, // far away
	}
	s := NewScheduler(cfg)
	s.Tick(context.Background(), 1.0/60)

	found, total := s.TargetsFound()
	if found != 1 || total != 2 {
		t.Fatalf("found %d/%d, want 1/2", found, total)
	}
	if s.Metrics().MissionSuccessRate != 50 {
		t.Fatalf("mission success = %v", s.Metrics().MissionSuccessRate)
	}
	// The collected target is gone: it is not found again.
	s.Tick(context.Background(), 1.0/60)
	if found, _ := s.TargetsFound(); found != 1 {
		t.Fatalf("target double-counted: found %d", found)
	}
}

func TestRunStopsWhenAllTargetsFound(t *testing.T) {
	cfg := testConfig(2)
	cfg.Targets = []geo.Vec{{X: 105, Y: 105}}
	s := NewScheduler(cfg)

	if err := s.Run(context.Background(), RunConfig{MaxTime: time.Minute}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found, total := s.TargetsFound(); found != total {
		t.Fatalf("run stopped with %d/%d targets", found, total)
	}
}

func TestRunStopsAtMaxTime(t *testing.T) {
	s := NewScheduler(testConfig(2))
	if err := s.Run(context.Background(), RunConfig{MaxTime: time.Second}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.SimTime() < 1.0 {
		t.Fatalf("stopped at sim time %v", s.SimTime())
	}
	if s.TicksRun() < 59 || s.TicksRun() > 61 {
		t.Fatalf("ticks = %d, want about 60", s.TicksRun())
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	s := NewScheduler(testConfig(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, RunConfig{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

// failingDecider always errors, forcing the heuristic fallback.
type failingDecider struct{}

func (failingDecider) Decide(context.Context, string) (perception.Command, error) {
	return perception.Command{}, errors.New("model unavailable")
}

// blockingDecider never returns until its context is canceled.
type blockingDecider struct{}

func (blockingDecider) Decide(ctx context.Context, _ string) (perception.Command, error) {
	<-ctx.Done()
	return perception.Command{}, ctx.Err()
}

func TestPerceptionFailureFallsBackToHeuristic(t *testing.T) {
	cfg := testConfig(3)
	cfg.Decider = failingDecider{}
	s := NewScheduler(cfg)

	s.Tick(context.Background(), 1.0/60)

	// The heuristic answers SEARCH_AREA for an empty or peer-only
	// scene, so every agent leaves idle despite the dead model.
	for _, agent := range s.Agents() {
		if agent.State != swarm.StateSearching {
			t.Fatalf("agent %d state = %q, want searching", agent.ID, agent.State)
		}
	}
}

func TestPerceptionTimeoutBoundsTheTick(t *testing.T) {
	cfg := testConfig(2)
	cfg.Decider = blockingDecider{}
	cfg.PerceptionTimeout = 20 * time.Millisecond
	s := NewScheduler(cfg)

	start := time.Now()
	s.Tick(context.Background(), 1.0/60)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("tick blocked for %v", elapsed)
	}
	for _, agent := range s.Agents() {
		if agent.State != swarm.StateSearching {
			t.Fatalf("agent %d state = %q after timeout fallback", agent.ID, agent.State)
		}
	}
}

func TestPerceptionIntervalThrottlesCalls(t *testing.T) {
	calls := 0
	cfg := testConfig(1)
	cfg.Decider = deciderFunc(func(ctx context.Context, scene string) (perception.Command, error) {
		calls++
		return perception.Command{Kind: perception.KindIdle}, nil
	})
	cfg.PerceptionInterval = 5
	s := NewScheduler(cfg)

	// 1 simulated second of ticks: only the initial decision fires.
	for i := 0; i < 60; i++ {
		s.Tick(context.Background(), 1.0/60)
	}
	if calls != 1 {
		t.Fatalf("decider called %d times in 1s, want 1", calls)
	}
	// Crossing the 5s interval triggers the second decision.
	for i := 0; i < 300; i++ {
		s.Tick(context.Background(), 1.0/60)
	}
	if calls != 2 {
		t.Fatalf("decider called %d times in 6s, want 2", calls)
	}
}

type deciderFunc func(context.Context, string) (perception.Command, error)

func (f deciderFunc) Decide(ctx context.Context, scene string) (perception.Command, error) {
	return f(ctx, scene)
}

func TestHeartbeatsPublishedEachTick(t *testing.T) {
	eventBus := bus.New(16)
	defer eventBus.Close()
	ch, cancel := eventBus.Subscribe("heartbeat")
	defer cancel()

	cfg := testConfig(2)
	cfg.Bus = eventBus
	s := NewScheduler(cfg)
	s.Tick(context.Background(), 1.0/60)

	seen := make(map[int]bool)
	for i := 0; i < 2; i++ {
		envelope := testutil.RequireReceive(t, ch, time.Second, "heartbeat")
		var hb Heartbeat
		if err := envelope.Decode(&hb); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		seen[hb.Agent] = true
		if hb.Battery <= 0 {
			t.Fatalf("heartbeat battery = %v", hb.Battery)
		}
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("heartbeats from %v, want agents 0 and 1", seen)
	}
}

func TestStaleFollowerSweptNotKilled(t *testing.T) {
	cfg := testConfig(3)
	cfg.HeartbeatStale = 10
	s := NewScheduler(cfg)

	// Decide the election so an alpha exists and hears followers.
	s.Tick(context.Background(), 1.0/60)
	s.Tick(context.Background(), 1.0/60)
	alpha := s.Alpha()
	if alpha == nil {
		t.Fatal("no alpha")
	}
	if s.Followers().Len() == 0 {
		t.Fatal("alpha heard no followers")
	}

	// Move one follower out of communication range and run past the
	// staleness window.
	var strayed *swarm.Agent
	for _, agent := range s.Agents() {
		if agent.Role == swarm.RoleFollower {
			strayed = agent
			break
		}
	}
	strayed.Pos = geo.Vec{X: 1200, Y: 800}
	strayed.Home = strayed.Pos
	strayed.Target = strayed.Pos
	for i := 0; i < 11; i++ {
		s.Tick(context.Background(), 1.0)
	}

	if s.Followers().Contains(strayed.ID) {
		t.Fatalf("strayed follower %d still registered", strayed.ID)
	}
	// The agent survives in the simulation.
	if len(s.Agents()) != 3 {
		t.Fatalf("agent count changed: %d", len(s.Agents()))
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	cfg := testConfig(2)
	cfg.Targets = []geo.Vec{{X: 105, Y: 105}}
	s := NewScheduler(cfg)

	for i := 0; i < 10; i++ {
		s.Tick(context.Background(), 1.0/60)
	}
	if found, _ := s.TargetsFound(); found != 1 {
		t.Fatalf("setup: found %d targets", found)
	}

	spawns := []geo.Vec{{X: 50, Y: 50}, {X: 60, Y: 60}}
	s.Reset(spawns, []geo.Vec{{X: 500, Y: 500}})

	if s.TicksRun() != 0 || s.SimTime() != 0 {
		t.Fatal("counters not reset")
	}
	if found, total := s.TargetsFound(); found != 0 || total != 1 {
		t.Fatalf("targets after reset: %d/%d", found, total)
	}
	if s.Alpha() != nil {
		t.Fatal("alpha survived reset")
	}
	for i, agent := range s.Agents() {
		if agent.Pos != spawns[i] || agent.Battery != swarm.FullBattery {
			t.Fatalf("agent %d not reset: %+v", i, agent)
		}
	}

	// The simulation runs again after reset.
	s.Tick(context.Background(), 1.0/60)
	s.Tick(context.Background(), 1.0/60)
	if s.Alpha() == nil {
		t.Fatal("no alpha after reset restart")
	}
}
