// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/muster-robotics/muster/lib/geo"
)

// State is a behavior state in the per-agent state machine.
type State string

const (
	StateIdle                 State = "idle"
	StateSearching            State = "searching"
	StateMovingToTarget       State = "moving_to_target"
	StateFormingUp            State = "forming_up"
	StateFollowingAlpha       State = "following_alpha"
	StateRescuing             State = "rescuing"
	StateReturningHome        State = "returning_home"
	StateAvoidingObstacle     State = "avoiding_obstacle"
	StateTaskBidding          State = "task_bidding"
	StateAwaitingInstructions State = "awaiting_instructions"
)

// transitions is the legal transition table. A request not listed here
// is rejected: the agent keeps its state and the caller gets an error
// to report. Rejection is never fatal.
var transitions = map[State][]State{
	StateIdle:                 {StateSearching, StateAwaitingInstructions, StateTaskBidding},
	StateSearching:            {StateMovingToTarget, StateAvoidingObstacle, StateIdle},
	StateMovingToTarget:       {StateRescuing, StateFormingUp, StateIdle},
	StateFormingUp:            {StateFollowingAlpha, StateIdle},
	StateFollowingAlpha:       {StateSearching, StateMovingToTarget, StateIdle},
	StateRescuing:             {StateReturningHome, StateIdle},
	StateReturningHome:        {StateIdle},
	StateAvoidingObstacle:     {StateSearching, StateMovingToTarget},
	StateTaskBidding:          {StateAwaitingInstructions, StateIdle},
	StateAwaitingInstructions: {StateSearching, StateMovingToTarget, StateFormingUp},
}

// CanTransition reports whether the state machine permits moving from
// current to next. A self-transition is always permitted (it is a
// no-op).
func CanTransition(current, next State) bool {
	if current == next {
		return true
	}
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the agent to the requested state if the
// transition table allows it. On a rejected request the state is
// unchanged and an error wrapping ErrInvalidTransition is returned.
func (a *Agent) TransitionTo(next State) error {
	if !CanTransition(a.State, next) {
		return fmt.Errorf("agent %d: %w: %s -> %s", a.ID, ErrInvalidTransition, a.State, next)
	}
	a.State = next
	return nil
}

// Behavior tuning constants, from the reference rover platform.
const (
	// wanderProbability is the per-tick chance an idle agent picks a
	// new wander point.
	wanderProbability = 0.01
	// wanderRadius bounds the idle wander offset on each axis.
	wanderRadius = 100.0
	// searchRepickDistance: a searching agent within this distance of
	// its search point (per axis) picks a new one.
	searchRepickDistance = 10.0
	// searchMinLeg and searchMaxLeg bound the length of a new search
	// leg.
	searchMinLeg = 50.0
	searchMaxLeg = 150.0
	// arrivalRadius: a moving agent within this distance of its target
	// has arrived.
	arrivalRadius = 20.0
	// arrivalDamping halves velocity on arrival.
	arrivalDamping = 0.5
)

// RunBehavior executes one tick of the behavior routine for the
// agent's current state. States without an active routine (awaiting
// instructions, task bidding, and the rescue family, which are driven
// entirely by coordination commands) are no-ops here.
func (a *Agent) RunBehavior(rng *rand.Rand) {
	switch a.State {
	case StateIdle:
		a.idleBehavior(rng)
	case StateSearching:
		a.searchBehavior(rng)
	case StateMovingToTarget:
		a.moveToTargetBehavior()
	case StateFormingUp:
		// Formation convergence reuses the arrival logic against the
		// formation-assigned target.
		a.moveToTargetBehavior()
	case StateReturningHome:
		a.returnHomeBehavior()
	}
}

// idleBehavior wanders with small probability: no task, no urgency.
func (a *Agent) idleBehavior(rng *rand.Rand) {
	if rng.Float64() < wanderProbability {
		a.Target = geo.Vec{
			X: a.Pos.X + (rng.Float64()*2-1)*wanderRadius,
			Y: a.Pos.Y + (rng.Float64()*2-1)*wanderRadius,
		}
	}
}

// searchBehavior advances toward the current search point and picks a
// new random leg once close enough on both axes.
func (a *Agent) searchBehavior(rng *rand.Rand) {
	if math.Abs(a.Pos.X-a.Target.X) < searchRepickDistance &&
		math.Abs(a.Pos.Y-a.Target.Y) < searchRepickDistance {
		a.Target = a.Pos.Add(randomLeg(rng))
	}
}

// randomLeg returns a displacement at a uniform random angle with
// length in [searchMinLeg, searchMaxLeg].
func randomLeg(rng *rand.Rand) geo.Vec {
	angle := rng.Float64() * 2 * math.Pi
	length := searchMinLeg + rng.Float64()*(searchMaxLeg-searchMinLeg)
	return geo.FromAngle(angle).Scale(length)
}

// moveToTargetBehavior reverts to idle with damped velocity once the
// agent reaches its target.
func (a *Agent) moveToTargetBehavior() {
	if a.Pos.Dist(a.Target) < arrivalRadius {
		// Both moving_to_target and forming_up may legally return to
		// idle; the transition table guarantees this succeeds.
		if err := a.TransitionTo(StateIdle); err == nil {
			a.Vel = a.Vel.Scale(arrivalDamping)
		}
	}
}

// returnHomeBehavior steers home and goes idle on arrival.
func (a *Agent) returnHomeBehavior() {
	a.Target = a.Home
	if a.Pos.Dist(a.Home) < arrivalRadius {
		if err := a.TransitionTo(StateIdle); err == nil {
			a.Vel = a.Vel.Scale(arrivalDamping)
		}
	}
}
