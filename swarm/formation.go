// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/muster-robotics/muster/lib/geo"
)

// FormationType names a formation geometry.
type FormationType string

const (
	FormationLine    FormationType = "line"
	FormationCircle  FormationType = "circle"
	FormationDiamond FormationType = "diamond"
	FormationV       FormationType = "v_formation"
)

// ParseFormationType validates a formation name.
func ParseFormationType(s string) (FormationType, error) {
	switch FormationType(s) {
	case FormationLine, FormationCircle, FormationDiamond, FormationV:
		return FormationType(s), nil
	}
	return "", fmt.Errorf("unknown formation type %q", s)
}

// Formation holds the active formation geometry and the per-agent slot
// assignments. Slots are assigned by the agents' order in the Set
// call; agents a geometry cannot place (beyond the 8th in a diamond)
// have no slot and are left alone by Update.
type Formation struct {
	logger *slog.Logger

	kind    FormationType
	spacing float64
	center  geo.Vec
	slots   map[AgentID]geo.Vec
	active  bool
}

// NewFormation creates an inactive formation. A nil logger discards
// output.
func NewFormation(logger *slog.Logger) *Formation {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Formation{logger: logger}
}

// Active reports whether a formation has been set.
func (f *Formation) Active() bool { return f.active }

// Type returns the active formation type, empty when inactive.
func (f *Formation) Type() FormationType { return f.kind }

// Slot returns the target position assigned to the agent and whether
// the agent has one.
func (f *Formation) Slot(id AgentID) (geo.Vec, bool) {
	pos, ok := f.slots[id]
	return pos, ok
}

// Set computes slot positions for the given geometry. When center is
// nil the agents' centroid is used. Agents transition to forming up;
// an agent whose state cannot reach forming_up keeps its state but
// still receives a slot.
func (f *Formation) Set(kind FormationType, agents []*Agent, spacing float64, center *geo.Vec) {
	f.kind = kind
	f.spacing = spacing
	if center != nil {
		f.center = *center
	} else {
		f.center = Center(agents)
	}
	f.slots = make(map[AgentID]geo.Vec, len(agents))
	f.active = true

	n := len(agents)
	for i, agent := range agents {
		slot, placed := f.slotFor(i, n)
		if !placed {
			continue
		}
		f.slots[agent.ID] = slot
		agent.Target = slot
		// moving_to_target and awaiting_instructions both reach
		// forming_up directly; idle needs the bidding hop and simply
		// keeps its state if the table refuses.
		agent.TransitionTo(StateFormingUp)
	}

	f.logger.Info("formation set", "type", string(kind), "spacing", spacing, "agents", len(f.slots))
}

// slotFor returns the world position for slot index i of n, and
// whether the geometry places that index at all.
func (f *Formation) slotFor(i, n int) (geo.Vec, bool) {
	switch f.kind {
	case FormationLine:
		offset := (float64(i) - float64(n)/2) * f.spacing
		return geo.Vec{X: f.center.X + offset, Y: f.center.Y}, true

	case FormationCircle:
		angle := 2 * math.Pi * float64(i) / float64(n)
		return f.center.Add(geo.FromAngle(angle).Scale(f.spacing)), true

	case FormationDiamond:
		cardinals := []geo.Vec{
			{X: 0, Y: -f.spacing},
			{X: f.spacing, Y: 0},
			{X: 0, Y: f.spacing},
			{X: -f.spacing, Y: 0},
		}
		if i < 4 {
			return f.center.Add(cardinals[i]), true
		}
		if i < 8 {
			// Inner ring at half spacing, quartered angles.
			angle := math.Pi / 2 * float64(i-4)
			return f.center.Add(geo.FromAngle(angle).Scale(0.5 * f.spacing)), true
		}
		return geo.Vec{}, false

	case FormationV:
		if i == 0 {
			return f.center, true
		}
		row := float64((i + 1) / 2)
		side := 1.0
		if i%2 == 0 {
			side = -1
		}
		return geo.Vec{
			X: f.center.X - row*0.8*f.spacing,
			Y: f.center.Y + side*row*0.6*f.spacing,
		}, true
	}
	return geo.Vec{}, false
}

// Update steers each agent with a slot toward it: full speed while
// more than five units out, decaying velocity once close. Called every
// tick while the formation is active.
func (f *Formation) Update(agents []*Agent) {
	if !f.active {
		return
	}
	for _, agent := range agents {
		slot, ok := f.slots[agent.ID]
		if !ok {
			continue
		}
		agent.Target = slot
		toSlot := slot.Sub(agent.Pos)
		if toSlot.Len() > 5 {
			agent.Vel = toSlot.Norm().Scale(agent.MaxSpeed)
		} else {
			agent.Vel = agent.Vel.Scale(0.8)
		}
	}
}

// Error returns the mean distance between agents and their slots,
// averaged over all agents passed in (unplaced agents count as zero
// distance). Zero when inactive or no agents.
func (f *Formation) Error(agents []*Agent) float64 {
	if !f.active || len(agents) == 0 {
		return 0
	}
	total := 0.0
	for _, agent := range agents {
		if slot, ok := f.slots[agent.ID]; ok {
			total += agent.Pos.Dist(slot)
		}
	}
	return total / float64(len(agents))
}

// Clear deactivates the formation and forgets all slots.
func (f *Formation) Clear() {
	f.kind = ""
	f.slots = nil
	f.active = false
}
