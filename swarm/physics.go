// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import "github.com/muster-robotics/muster/lib/geo"

// Physics tuning constants. Position integration normalizes dt against
// the reference frame rate so a 1/60 s tick moves an agent by exactly
// its velocity in world units.
const (
	// avoidanceThreshold is the obstacle distance below which the
	// repulsive force activates.
	avoidanceThreshold = 50.0
	// avoidanceStrength scales the repulsive force at zero distance.
	avoidanceStrength = 3.0
	// avoidanceGain blends the accumulated avoidance force into
	// velocity.
	avoidanceGain = 0.1
	// steeringGain is the exponential smoothing factor pulling
	// velocity toward the desired vector.
	steeringGain = 0.1
	// steeringDeadzone suppresses steering jitter when the agent is
	// effectively at its target.
	steeringDeadzone = 5.0
	// friction decays velocity each tick.
	friction = 0.95
	// frameNormalization converts per-frame velocities into per-second
	// positions (reference rate 60 frames/s).
	frameNormalization = 60.0
	// batteryDrainRate is percentage points of charge per simulated
	// second, independent of activity.
	batteryDrainRate = 0.01
)

// AvoidObstacles accumulates a repulsive force from every detected
// obstacle whose boundary is within the avoidance threshold and blends
// it into velocity. Force magnitude grows linearly as distance shrinks,
// reaching avoidanceStrength at contact.
func (a *Agent) AvoidObstacles() {
	var force geo.Vec
	for _, obstacle := range a.DetectedObstacles {
		closest := obstacle.ClosestPoint(a.Pos)
		away := a.Pos.Sub(closest)
		distance := away.Len()
		if distance >= avoidanceThreshold || distance == 0 {
			// At exactly zero distance the agent is inside the
			// obstacle and there is no defined away direction;
			// friction and steering recover it.
			continue
		}
		magnitude := (avoidanceThreshold - distance) / avoidanceThreshold * avoidanceStrength
		force = force.Add(away.Norm().Scale(magnitude))
	}
	a.Vel = a.Vel.Add(force.Scale(avoidanceGain))
}

// Integrate advances the agent's physics by dt seconds: steer toward
// the target, apply friction, clamp to max speed, move, and drain the
// battery. Uptime accumulates here so every agent ages at the same
// rate regardless of behavior.
func (a *Agent) Integrate(dt float64) {
	toTarget := a.Target.Sub(a.Pos)
	if toTarget.Len() > steeringDeadzone {
		desired := toTarget.Norm().Scale(a.MaxSpeed)
		a.Vel = a.Vel.Add(desired.Sub(a.Vel).Scale(steeringGain))
	}

	a.Vel = a.Vel.Scale(friction).Clamp(a.MaxSpeed)
	a.Pos = a.Pos.Add(a.Vel.Scale(dt * frameNormalization))

	a.Battery -= batteryDrainRate * dt
	if a.Battery < 0 {
		a.Battery = 0
	}
	a.Uptime += dt
}
