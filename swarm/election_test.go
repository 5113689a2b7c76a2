// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"errors"
	"testing"
	"time"

	"github.com/muster-robotics/muster/lib/clock"
	"github.com/muster-robotics/muster/lib/geo"
)

func newTestAgents(n int) []*Agent {
	agents := make([]*Agent, n)
	for i := range agents {
		agents[i] = NewAgent(AgentID(i), geo.Vec{X: float64(i) * 10})
	}
	return agents
}

func TestElectionExactlyOneAlpha(t *testing.T) {
	for _, n := range []int{1, 2, 5, 12} {
		agents := newTestAgents(n)
		election := NewElection(nil, nil)
		election.Start(agents)
		quorum, err := election.ProcessVotes(agents)
		if err != nil {
			t.Fatalf("n=%d: ProcessVotes: %v", n, err)
		}
		if !quorum {
			t.Fatalf("n=%d: full participation did not reach quorum", n)
		}
		alpha, err := election.ElectAlpha(agents)
		if err != nil {
			t.Fatalf("n=%d: ElectAlpha: %v", n, err)
		}
		if alpha == nil {
			t.Fatalf("n=%d: no alpha elected", n)
		}

		alphas := 0
		for _, agent := range agents {
			switch agent.Role {
			case RoleAlpha:
				alphas++
			case RoleFollower:
			default:
				t.Fatalf("n=%d: agent %d has role %q after election", n, agent.ID, agent.Role)
			}
		}
		if alphas != 1 {
			t.Fatalf("n=%d: want exactly 1 alpha, got %d", n, alphas)
		}
	}
}

func TestElectionLowestIDWinsOnEqualScores(t *testing.T) {
	// Identical battery and uptime: the (100 - id) term dominates and
	// the smallest ID must win.
	agents := newTestAgents(5)
	for _, agent := range agents {
		agent.Battery = 80
		agent.Uptime = 40
	}

	election := NewElection(nil, nil)
	election.Start(agents)
	election.ProcessVotes(agents)
	alpha, err := election.ElectAlpha(agents)
	if err != nil {
		t.Fatalf("ElectAlpha: %v", err)
	}
	if alpha == nil || alpha.ID != 0 {
		t.Fatalf("want agent 0 as alpha, got %v", alpha)
	}
}

func TestLeadershipScoreComposition(t *testing.T) {
	agent := NewAgent(3, geo.Vec{})
	agent.Battery = 100
	agent.Uptime = 50
	agent.Centrality = 10

	// 100*0.3 + 50*0.2 + 150/200*20 + 10*0.15 + 97*0.15
	want := 30.0 + 10.0 + 15.0 + 1.5 + 14.55
	if got := LeadershipScore(agent); got != want {
		t.Fatalf("LeadershipScore = %v, want %v", got, want)
	}
}

func TestElectionQuorumGate(t *testing.T) {
	agents := newTestAgents(10)
	election := NewElection(nil, nil)
	election.Start(agents)

	// Only 5 of 10 vote: below the 60% quorum.
	if quorum, _ := election.ProcessVotes(agents[:5]); quorum {
		t.Fatal("5 of 10 votes reported quorum")
	}
	// A sixth voter tips it over.
	if quorum, _ := election.ProcessVotes(agents[:6]); !quorum {
		t.Fatal("6 of 10 votes did not report quorum")
	}
}

func TestElectionTimeoutAndRestart(t *testing.T) {
	clk := clock.Fake(time.Unix(1000, 0))
	agents := newTestAgents(4)
	election := NewElection(clk, nil)
	election.Start(agents)

	if election.TimedOut() {
		t.Fatal("fresh election reported timed out")
	}
	clk.Advance(DefaultElectionTimeout + time.Second)
	if !election.TimedOut() {
		t.Fatal("election did not time out after the deadline")
	}

	// Restart clears the stall; the rerun completes normally.
	election.Start(agents)
	if election.TimedOut() {
		t.Fatal("restarted election reported timed out")
	}
	election.ProcessVotes(agents)
	if alpha, _ := election.ElectAlpha(agents); alpha == nil {
		t.Fatal("restarted election produced no alpha")
	}
}

func TestElectAlphaRequiresVotes(t *testing.T) {
	agents := newTestAgents(3)
	election := NewElection(nil, nil)
	election.Start(agents)

	alpha, err := election.ElectAlpha(agents)
	if err != nil {
		t.Fatalf("ElectAlpha: %v", err)
	}
	if alpha != nil {
		t.Fatalf("election with no votes produced alpha %d", alpha.ID)
	}
	for _, agent := range agents {
		if agent.Role != RoleFollower {
			t.Fatalf("agent %d role changed without a decision", agent.ID)
		}
	}
}

func TestElectionDecidedIsFrozen(t *testing.T) {
	agents := newTestAgents(3)
	election := NewElection(nil, nil)
	election.Start(agents)
	election.ProcessVotes(agents)
	election.ElectAlpha(agents)

	if election.Phase() != PhaseDecided {
		t.Fatalf("phase = %q, want decided", election.Phase())
	}
	if _, err := election.ProcessVotes(agents); !errors.Is(err, ErrNoElection) {
		t.Fatalf("voting on decided election: err = %v", err)
	}
	if _, err := election.ElectAlpha(agents); !errors.Is(err, ErrNoElection) {
		t.Fatalf("tallying decided election: err = %v", err)
	}
	if election.TimedOut() {
		t.Fatal("decided election reported timed out")
	}
}

func TestElectionIdleRejectsVotes(t *testing.T) {
	agents := newTestAgents(3)
	election := NewElection(nil, nil)

	if _, err := election.ProcessVotes(agents); !errors.Is(err, ErrNoElection) {
		t.Fatalf("voting before Start: err = %v", err)
	}
	if _, err := election.ElectAlpha(agents); !errors.Is(err, ErrNoElection) {
		t.Fatalf("tallying before Start: err = %v", err)
	}
	for _, agent := range agents {
		if agent.Role != RoleFollower {
			t.Fatalf("agent %d role changed with no election", agent.ID)
		}
	}
}
