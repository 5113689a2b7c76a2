// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package perception

import (
	"strconv"
	"strings"

	"github.com/muster-robotics/muster/lib/geo"
)

// Kind is a command token the collaborator may issue. High-level kinds
// drive the behavior state machine; agent-level kinds nudge velocity
// directly.
type Kind string

const (
	// High-level commands.
	KindSearchArea    Kind = "SEARCH_AREA"
	KindMoveToTarget  Kind = "MOVE_TO_TARGET"
	KindReportFinding Kind = "REPORT_FINDING"
	KindIdle          Kind = "IDLE"

	// Agent-level commands.
	KindMoveForward  Kind = "MOVE_FORWARD"
	KindMoveBackward Kind = "MOVE_BACKWARD"
	KindTurnLeft     Kind = "TURN_LEFT"
	KindTurnRight    Kind = "TURN_RIGHT"
	KindStop         Kind = "STOP"
	KindSearch       Kind = "SEARCH"

	// KindUnknown marks output with no recognizable token. The engine
	// treats it as IDLE.
	KindUnknown Kind = ""
)

// Command is one parsed collaborator decision. Target is meaningful
// only for KindMoveToTarget.
type Command struct {
	Kind   Kind
	Target geo.Vec
}

// Parse extracts the first recognized command token from free-form
// model output. Models wrap commands in prose, quotes, and code
// fences, so matching is substring-based on the uppercased input.
// MOVE_TO_TARGET without parseable "x,y" coordinates degrades to
// SEARCH_AREA (a move with no destination is useless). Output with no
// recognizable token parses to KindUnknown.
func Parse(output string) Command {
	upper := strings.ToUpper(strings.TrimSpace(output))

	if strings.Contains(upper, string(KindSearchArea)) {
		return Command{Kind: KindSearchArea}
	}
	if i := strings.Index(upper, string(KindMoveToTarget)); i >= 0 {
		if target, ok := parseTarget(upper[i+len(KindMoveToTarget):]); ok {
			return Command{Kind: KindMoveToTarget, Target: target}
		}
		return Command{Kind: KindSearchArea}
	}
	if strings.Contains(upper, string(KindReportFinding)) {
		return Command{Kind: KindReportFinding}
	}

	// Agent-level tokens, checked before IDLE: "idle" shows up in
	// prose ("the rover is idle") more often than the others.
	for _, kind := range []Kind{
		KindMoveForward, KindMoveBackward, KindTurnLeft, KindTurnRight, KindStop,
	} {
		if strings.Contains(upper, string(kind)) ||
			strings.Contains(upper, strings.ReplaceAll(string(kind), "_", " ")) {
			return Command{Kind: kind}
		}
	}
	if strings.Contains(upper, string(KindIdle)) {
		return Command{Kind: KindIdle}
	}
	if strings.Contains(upper, string(KindSearch)) {
		return Command{Kind: KindSearch}
	}
	return Command{Kind: KindUnknown}
}

// parseTarget reads "x,y" coordinates from the text following a
// MOVE_TO_TARGET token, tolerating surrounding whitespace.
func parseTarget(rest string) (geo.Vec, bool) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return geo.Vec{}, false
	}
	coords := strings.SplitN(strings.Trim(fields[0], ".,;:!\"'()"), ",", 2)
	if len(coords) != 2 {
		// Coordinates may be split by a space after the comma.
		if len(fields) >= 2 && strings.HasSuffix(fields[0], ",") {
			coords = []string{strings.TrimSuffix(fields[0], ","), strings.Trim(fields[1], ".,;:!\"'()")}
		} else {
			return geo.Vec{}, false
		}
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
	if errX != nil || errY != nil {
		return geo.Vec{}, false
	}
	return geo.Vec{X: x, Y: y}, true
}
