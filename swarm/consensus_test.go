// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"errors"
	"testing"
	"time"

	"github.com/muster-robotics/muster/lib/clock"
)

func TestConsensusDecidedAboveThreshold(t *testing.T) {
	// Ten voters, 8 for A and 2 for B: 100% participation, 80% share.
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "formation_change", []string{"A", "B"})

	for voter := AgentID(0); voter < 8; voter++ {
		if err := consensus.Vote(id, voter, "A", ""); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	consensus.Vote(id, 8, "B", "")
	consensus.Vote(id, 9, "B", "")

	status, err := consensus.Check(id, 10)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != ProposalDecided {
		t.Fatalf("status = %q, want decided", status)
	}
	if got := consensus.Proposal(id).Decision; got != "A" {
		t.Fatalf("decision = %q, want A", got)
	}
	if consensus.Proposal(id).DecidedAt.IsZero() {
		t.Fatal("decision timestamp not set")
	}
}

func TestConsensusStaysVotingBelowQuorum(t *testing.T) {
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "target_priority", []string{"A", "B"})

	// Five unanimous votes out of ten agents: 50% < 60% quorum.
	for voter := AgentID(0); voter < 5; voter++ {
		consensus.Vote(id, voter, "A", "")
	}
	status, err := consensus.Check(id, 10)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != ProposalVoting {
		t.Fatalf("status = %q, want voting", status)
	}
}

func TestConsensusStaysVotingBelowThreshold(t *testing.T) {
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "target_priority", []string{"A", "B"})

	// Full participation but 6/10 = 60% share < 70% threshold.
	for voter := AgentID(0); voter < 6; voter++ {
		consensus.Vote(id, voter, "A", "")
	}
	for voter := AgentID(6); voter < 10; voter++ {
		consensus.Vote(id, voter, "B", "")
	}
	if status, _ := consensus.Check(id, 10); status != ProposalVoting {
		t.Fatalf("status = %q, want voting", status)
	}
}

func TestConsensusLastWriteWins(t *testing.T) {
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "retreat", []string{"A", "B"})

	for voter := AgentID(0); voter < 7; voter++ {
		consensus.Vote(id, voter, "B", "")
	}
	// Everyone reconsiders.
	for voter := AgentID(0); voter < 7; voter++ {
		consensus.Vote(id, voter, "A", "")
	}
	if got := consensus.Proposal(id).Votes(); got != 7 {
		t.Fatalf("votes = %d, want 7", got)
	}
	status, _ := consensus.Check(id, 10)
	if status != ProposalDecided || consensus.Proposal(id).Decision != "A" {
		t.Fatalf("status = %q decision = %q", status, consensus.Proposal(id).Decision)
	}
}

func TestConsensusBallotCarriesReasoning(t *testing.T) {
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "formation_change", []string{"A", "B"})

	if err := consensus.Vote(id, 3, "A", "closer to the targets"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	choice, reasoning, ok := consensus.Proposal(id).Ballot(3)
	if !ok || choice != "A" || reasoning != "closer to the targets" {
		t.Fatalf("ballot = %q %q %v", choice, reasoning, ok)
	}

	// A re-vote replaces the reasoning along with the choice.
	consensus.Vote(id, 3, "B", "battery too low for A")
	choice, reasoning, _ = consensus.Proposal(id).Ballot(3)
	if choice != "B" || reasoning != "battery too low for A" {
		t.Fatalf("ballot after re-vote = %q %q", choice, reasoning)
	}

	if _, _, ok := consensus.Proposal(id).Ballot(9); ok {
		t.Fatal("ballot reported for a voter that never voted")
	}
}

func TestConsensusRejectsBadVotes(t *testing.T) {
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "retreat", []string{"A", "B"})

	if err := consensus.Vote("proposal-99", 1, "A", ""); !errors.Is(err, ErrUnknownProposal) {
		t.Fatalf("unknown proposal: err = %v", err)
	}
	if err := consensus.Vote(id, 1, "C", ""); err == nil {
		t.Fatal("vote for unknown option accepted")
	}
	if got := consensus.Proposal(id).Votes(); got != 0 {
		t.Fatalf("rejected votes were recorded: %d", got)
	}
}

func TestConsensusDecisionIsFinal(t *testing.T) {
	clk := clock.Fake(time.Unix(5000, 0))
	consensus := NewConsensus(clk, nil)
	id := consensus.Propose(0, "retreat", []string{"A", "B"})

	for voter := AgentID(0); voter < 10; voter++ {
		consensus.Vote(id, voter, "A", "")
	}
	consensus.Check(id, 10)
	decidedAt := consensus.Proposal(id).DecidedAt

	if err := consensus.Vote(id, 3, "B", ""); !errors.Is(err, ErrProposalClosed) {
		t.Fatalf("vote on decided proposal: err = %v", err)
	}
	clk.Advance(time.Minute)
	if status, _ := consensus.Check(id, 10); status != ProposalDecided {
		t.Fatalf("status = %q after re-check", status)
	}
	if !consensus.Proposal(id).DecidedAt.Equal(decidedAt) {
		t.Fatal("decision timestamp changed on re-check")
	}
}

func TestConsensusAbandon(t *testing.T) {
	consensus := NewConsensus(nil, nil)
	id := consensus.Propose(0, "retreat", []string{"A", "B"})

	if err := consensus.Abandon(id); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if got := consensus.Proposal(id).Status; got != ProposalAbandoned {
		t.Fatalf("status = %q", got)
	}
	if err := consensus.Abandon(id); !errors.Is(err, ErrProposalClosed) {
		t.Fatalf("double abandon: err = %v", err)
	}
	if open := consensus.Open(); len(open) != 0 {
		t.Fatalf("abandoned proposal still open: %v", open)
	}
}
