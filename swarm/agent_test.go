// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"strings"
	"testing"

	"github.com/muster-robotics/muster/lib/geo"
)

func TestUpdateSensorsRanges(t *testing.T) {
	agent := NewAgent(0, geo.Vec{})
	obstacles := []geo.Rect{
		{X: 50, Y: 0, W: 20, H: 20},    // within sensor range
		{X: 500, Y: 500, W: 20, H: 20}, // far away
	}
	targets := []geo.Vec{
		{X: 80, Y: 0},  // within sensor range 100
		{X: 300, Y: 0}, // out of range
	}
	others := []*Agent{
		NewAgent(0, geo.Vec{X: 10}),  // self, excluded by ID
		NewAgent(1, geo.Vec{X: 120}), // within comm range 150
		NewAgent(2, geo.Vec{X: 400}), // out of range
	}

	agent.UpdateSensors(obstacles, targets, others)

	if len(agent.DetectedObstacles) != 1 {
		t.Fatalf("detected %d obstacles, want 1", len(agent.DetectedObstacles))
	}
	if len(agent.DetectedAgents) != 1 || agent.DetectedAgents[0].ID != 1 {
		t.Fatalf("detected agents = %v", agent.DetectedAgents)
	}
	if !agent.DiscoveredTargets[targets[0]] {
		t.Fatal("in-range target not discovered")
	}
	if agent.DiscoveredTargets[targets[1]] {
		t.Fatal("out-of-range target discovered")
	}
}

func TestDiscoveredTargetsAreSet(t *testing.T) {
	agent := NewAgent(0, geo.Vec{})
	target := geo.Vec{X: 50, Y: 50}
	for i := 0; i < 3; i++ {
		agent.UpdateSensors(nil, []geo.Vec{target}, nil)
	}
	if len(agent.DiscoveredTargets) != 1 {
		t.Fatalf("target recorded %d times", len(agent.DiscoveredTargets))
	}
}

func TestSceneDescriptionContents(t *testing.T) {
	agent := NewAgent(3, geo.Vec{X: 10, Y: 20})
	agent.UpdateSensors(
		[]geo.Rect{{X: 40, Y: 20, W: 30, H: 30}},
		[]geo.Vec{{X: 60, Y: 20}},
		[]*Agent{NewAgent(7, geo.Vec{X: 100, Y: 20})},
	)

	scene := agent.SceneDescription()
	for _, want := range []string{
		"Agent 3 at (10.0, 20.0)",
		"Detected obstacles",
		"Discovered targets",
		"a target at (60.0, 20.0)",
		"Agent 7 (follower)",
	} {
		if !strings.Contains(scene, want) {
			t.Fatalf("scene missing %q:\n%s", want, scene)
		}
	}
}

func TestSceneDescriptionEmpty(t *testing.T) {
	agent := NewAgent(1, geo.Vec{})
	scene := agent.SceneDescription()
	if !strings.Contains(scene, "No significant objects or agents detected") {
		t.Fatalf("empty scene = %q", scene)
	}
}

func TestResetRestoresInitialCondition(t *testing.T) {
	agent := NewAgent(4, geo.Vec{X: 1, Y: 1})
	agent.Battery = 12
	agent.Uptime = 300
	agent.Role = RoleAlpha
	agent.State = StateSearching
	agent.CurrentTask = "task-3"
	agent.DiscoveredTargets[geo.Vec{X: 9}] = true

	spawn := geo.Vec{X: 200, Y: 200}
	agent.Reset(spawn)

	if agent.Pos != spawn || agent.Home != spawn || agent.Target != spawn {
		t.Fatal("positions not reset to spawn")
	}
	if agent.Battery != FullBattery || agent.Uptime != 0 {
		t.Fatal("battery/uptime not reset")
	}
	if agent.Role != RoleFollower || agent.State != StateIdle {
		t.Fatalf("role = %q state = %q after reset", agent.Role, agent.State)
	}
	if agent.CurrentTask != "" || len(agent.DiscoveredTargets) != 0 {
		t.Fatal("task/discovery state survived reset")
	}
	if agent.ID != 4 {
		t.Fatal("identity changed on reset")
	}
}

func TestParseRole(t *testing.T) {
	if role, err := ParseRole("alpha"); err != nil || role != RoleAlpha {
		t.Fatalf("ParseRole(alpha) = %v, %v", role, err)
	}
	if _, err := ParseRole("queen"); err == nil {
		t.Fatal("unknown role accepted")
	}
}
