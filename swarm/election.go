// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/muster-robotics/muster/lib/clock"
)

// ElectionPhase tracks progress of an alpha election.
type ElectionPhase string

const (
	PhaseIdle       ElectionPhase = "idle"
	PhaseNomination ElectionPhase = "nomination"
	PhaseVoting     ElectionPhase = "voting"
	PhaseDecided    ElectionPhase = "decided"
)

// DefaultElectionTimeout is how long an election may sit in voting
// without reaching quorum before the scheduler restarts it.
const DefaultElectionTimeout = 30 * time.Second

// Leadership score weights. The agent-ID term makes the score a total
// order even when everything else is identical: lower IDs score
// higher, which doubles as the deterministic tie-break.
const (
	weightBattery    = 0.3
	weightUptime     = 0.2
	weightComm       = 20.0 // applied to commRange/commRangeScale
	commRangeScale   = 200.0
	weightCentrality = 0.15
	weightAgentID    = 0.15
)

// Election selects exactly one alpha from the swarm by scored,
// quorum-gated voting. Create one with NewElection and drive it from
// the scheduler: Start, then ProcessVotes each tick until quorum, then
// ElectAlpha; restart on TimedOut.
type Election struct {
	clock  clock.Clock
	logger *slog.Logger

	phase      ElectionPhase
	candidates map[AgentID]float64
	votes      map[AgentID]AgentID
	started    time.Time
	timeout    time.Duration
}

// NewElection creates an idle election. A nil logger discards output.
func NewElection(clk clock.Clock, logger *slog.Logger) *Election {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Election{
		clock:   clk,
		logger:  logger,
		phase:   PhaseIdle,
		timeout: DefaultElectionTimeout,
	}
}

// SetTimeout overrides the election timeout. Must be called before
// Start.
func (e *Election) SetTimeout(d time.Duration) { e.timeout = d }

// Phase returns the current election phase.
func (e *Election) Phase() ElectionPhase { return e.phase }

// Start begins a new election: every agent is scored as a candidate
// (the nomination phase) and voting opens. Any prior election state is
// discarded, so Start doubles as the timeout restart path.
func (e *Election) Start(agents []*Agent) {
	e.phase = PhaseNomination
	e.started = e.clock.Now()
	e.candidates = make(map[AgentID]float64, len(agents))
	e.votes = make(map[AgentID]AgentID)

	for _, agent := range agents {
		e.candidates[agent.ID] = LeadershipScore(agent)
	}
	e.phase = PhaseVoting

	e.logger.Info("alpha election started", "candidates", len(e.candidates))
}

// LeadershipScore is the weighted leadership capability score:
// battery, uptime, communication reach, position centrality, and a
// lower-ID preference that guarantees strict ordering.
func LeadershipScore(agent *Agent) float64 {
	score := agent.Battery * weightBattery
	score += agent.Uptime * weightUptime
	score += agent.CommRange / commRangeScale * weightComm
	score += agent.Centrality * weightCentrality
	score += (100.0 - float64(agent.ID)) * weightAgentID
	return score
}

// quorumFraction is the participation required before votes can be
// tallied.
const quorumFraction = 0.6

// ProcessVotes has every agent vote for the highest-scored candidate
// (ties broken by lowest candidate ID) and reports whether
// participation has reached quorum. Re-votes overwrite: last write
// wins, though deterministic voting makes every write identical.
// Returns ErrNoElection when no election is accepting votes.
func (e *Election) ProcessVotes(agents []*Agent) (bool, error) {
	if e.phase != PhaseVoting {
		return false, fmt.Errorf("process votes in phase %q: %w", e.phase, ErrNoElection)
	}

	best := e.bestCandidate()
	for _, agent := range agents {
		if _, isCandidate := e.candidates[agent.ID]; isCandidate {
			e.votes[agent.ID] = best
		}
	}
	return float64(len(e.votes)) >= float64(len(agents))*quorumFraction, nil
}

// ElectAlpha tallies votes, applies the result to agent roles (winner
// alpha, everyone else follower), and freezes the election as decided.
// Returns ErrNoElection when no election is running, and a nil agent
// without changing any role when no votes were cast.
func (e *Election) ElectAlpha(agents []*Agent) (*Agent, error) {
	if e.phase != PhaseVoting {
		return nil, fmt.Errorf("tally in phase %q: %w", e.phase, ErrNoElection)
	}

	counts := make(map[AgentID]int)
	for _, candidate := range e.votes {
		counts[candidate]++
	}
	if len(counts) == 0 {
		return nil, nil
	}

	// Most votes wins; equal counts go to the lowest agent ID so the
	// outcome never depends on map iteration order.
	var winner AgentID
	bestCount := -1
	for candidate, count := range counts {
		if count > bestCount || (count == bestCount && candidate < winner) {
			winner = candidate
			bestCount = count
		}
	}

	var elected *Agent
	for _, agent := range agents {
		if agent.ID == winner {
			agent.Role = RoleAlpha
			elected = agent
		} else {
			agent.Role = RoleFollower
		}
	}
	e.phase = PhaseDecided

	e.logger.Info("alpha elected", "agent", int(winner), "votes", bestCount)
	return elected, nil
}

// TimedOut reports whether the election has been in voting longer than
// the timeout without being decided. The scheduler responds by calling
// Start again; a stalled election is never left hanging and never
// produces a default leader.
func (e *Election) TimedOut() bool {
	if e.phase != PhaseVoting {
		return false
	}
	return e.clock.Now().Sub(e.started) > e.timeout
}

// Votes returns the number of votes cast so far.
func (e *Election) Votes() int { return len(e.votes) }

// bestCandidate returns the candidate with the highest score, lowest
// ID on ties.
func (e *Election) bestCandidate() AgentID {
	var best AgentID
	bestScore := -1.0
	first := true
	for candidate, score := range e.candidates {
		switch {
		case first, score > bestScore:
			best, bestScore, first = candidate, score, false
		case score == bestScore && candidate < best:
			best = candidate
		}
	}
	return best
}
