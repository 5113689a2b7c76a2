// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/muster-robotics/muster/lib/clock"
)

// ProposalStatus is the lifecycle state of a consensus proposal.
type ProposalStatus string

const (
	ProposalVoting    ProposalStatus = "voting"
	ProposalDecided   ProposalStatus = "decided"
	ProposalAbandoned ProposalStatus = "abandoned"
)

// Consensus thresholds: at least 60% of the swarm must vote, and the
// leading option needs at least a 70% share of the votes cast.
const (
	consensusQuorum    = 0.6
	consensusThreshold = 0.7
)

// Proposal is a multi-option decision put to the swarm.
type Proposal struct {
	ID       string
	Proposer AgentID
	Kind     string
	Options  []string

	Status ProposalStatus

	// Decision and DecidedAt are set once the proposal is decided.
	Decision  string
	DecidedAt time.Time

	votes map[AgentID]ballot
}

// ballot is one voter's recorded choice and the reasoning behind it.
type ballot struct {
	choice    string
	reasoning string
}

// Votes returns how many votes have been cast.
func (p *Proposal) Votes() int { return len(p.votes) }

// Ballot returns a voter's recorded choice and reasoning, and whether
// the voter has cast one.
func (p *Proposal) Ballot(voter AgentID) (choice, reasoning string, ok bool) {
	b, ok := p.votes[voter]
	return b.choice, b.reasoning, ok
}

// Consensus runs multi-option voting across the swarm. Like the other
// coordination components it is single-threaded, driven from the
// scheduler's coordination phase.
type Consensus struct {
	clock  clock.Clock
	logger *slog.Logger

	nextProposal int
	proposals    map[string]*Proposal
}

// NewConsensus creates an empty consensus registry. A nil logger
// discards output.
func NewConsensus(clk clock.Clock, logger *slog.Logger) *Consensus {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consensus{
		clock:     clk,
		logger:    logger,
		proposals: make(map[string]*Proposal),
	}
}

// Propose opens a new proposal in voting status and returns its ID
// ("proposal-1", "proposal-2", ...).
func (c *Consensus) Propose(proposer AgentID, kind string, options []string) string {
	c.nextProposal++
	id := fmt.Sprintf("proposal-%d", c.nextProposal)
	c.proposals[id] = &Proposal{
		ID:       id,
		Proposer: proposer,
		Kind:     kind,
		Options:  options,
		Status:   ProposalVoting,
		votes:    make(map[AgentID]ballot),
	}

	c.logger.Info("proposal opened", "proposal", id, "kind", kind, "options", len(options))
	return id
}

// Proposal returns the proposal with the given ID, or nil.
func (c *Consensus) Proposal(id string) *Proposal { return c.proposals[id] }

// Vote records one vote per voter, last write wins, only while the
// proposal is voting. The reasoning travels with the vote for later
// inspection; it carries no weight in the tally. An unknown option is
// rejected without recording anything.
func (c *Consensus) Vote(proposalID string, voter AgentID, choice, reasoning string) error {
	proposal, ok := c.proposals[proposalID]
	if !ok {
		return fmt.Errorf("vote on %q: %w", proposalID, ErrUnknownProposal)
	}
	if proposal.Status != ProposalVoting {
		return fmt.Errorf("vote on %q: %w", proposalID, ErrProposalClosed)
	}
	valid := false
	for _, option := range proposal.Options {
		if option == choice {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("vote on %q: unknown option %q", proposalID, choice)
	}
	proposal.votes[voter] = ballot{choice: choice, reasoning: reasoning}
	return nil
}

// Check evaluates the proposal against quorum and threshold: with
// participation of at least 60% of totalAgents and a leading option
// holding at least a 70% share of votes cast, the proposal becomes
// decided and the winning option is recorded with a decision time.
// Otherwise the proposal stays voting. Equal leading shares resolve in
// option order, so the outcome never depends on map iteration.
func (c *Consensus) Check(proposalID string, totalAgents int) (ProposalStatus, error) {
	proposal, ok := c.proposals[proposalID]
	if !ok {
		return "", fmt.Errorf("check %q: %w", proposalID, ErrUnknownProposal)
	}
	if proposal.Status != ProposalVoting {
		return proposal.Status, nil
	}

	cast := len(proposal.votes)
	if float64(cast) < float64(totalAgents)*consensusQuorum {
		return ProposalVoting, nil
	}

	counts := make(map[string]int)
	for _, b := range proposal.votes {
		counts[b.choice]++
	}
	var best string
	bestCount := -1
	for _, option := range proposal.Options {
		if counts[option] > bestCount {
			best = option
			bestCount = counts[option]
		}
	}
	if float64(bestCount)/float64(cast) < consensusThreshold {
		return ProposalVoting, nil
	}

	proposal.Status = ProposalDecided
	proposal.Decision = best
	proposal.DecidedAt = c.clock.Now()

	c.logger.Info("proposal decided", "proposal", proposalID, "decision", best,
		"votes", bestCount, "cast", cast)
	return ProposalDecided, nil
}

// Abandon closes a proposal that is still voting. Deciding when to
// give up is the caller's call; there is no automatic timeout here.
func (c *Consensus) Abandon(proposalID string) error {
	proposal, ok := c.proposals[proposalID]
	if !ok {
		return fmt.Errorf("abandon %q: %w", proposalID, ErrUnknownProposal)
	}
	if proposal.Status != ProposalVoting {
		return fmt.Errorf("abandon %q: %w", proposalID, ErrProposalClosed)
	}
	proposal.Status = ProposalAbandoned
	c.logger.Info("proposal abandoned", "proposal", proposalID)
	return nil
}

// Open returns the IDs of proposals still voting, in ID order.
func (c *Consensus) Open() []string {
	var open []string
	for id, proposal := range c.proposals {
		if proposal.Status == ProposalVoting {
			open = append(open, id)
		}
	}
	sort.Strings(open)
	return open
}
