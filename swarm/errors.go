// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import "errors"

// Sentinel errors for callers that need errors.Is. None of these are
// fatal to the engine: every failure path degrades to a defined
// fallback (a rejected transition keeps the prior state, an unknown
// task leaves the board untouched, and so on).
var (
	// ErrInvalidTransition reports a behavior state change the
	// transition table does not permit.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownTask reports an operation against a task ID the board
	// has never announced.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskNotAssigned reports a completion attempt against a task
	// that is not in the assigned state. The task is unchanged.
	ErrTaskNotAssigned = errors.New("task not assigned")

	// ErrUnknownProposal reports an operation against a proposal ID
	// that was never made.
	ErrUnknownProposal = errors.New("unknown proposal")

	// ErrProposalClosed reports a vote on a proposal that is no
	// longer accepting votes.
	ErrProposalClosed = errors.New("proposal is not voting")

	// ErrNoElection reports a vote-processing or tally request while
	// no election is running.
	ErrNoElection = errors.New("no election in progress")
)
