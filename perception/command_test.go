// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package perception

import (
	"testing"

	"github.com/muster-robotics/muster/lib/geo"
)

func TestParse(t *testing.T) {
	tests := []struct {
		output string
		want   Command
	}{
		{"SEARCH_AREA", Command{Kind: KindSearchArea}},
		{"I think the rover should SEARCH_AREA now.", Command{Kind: KindSearchArea}},
		{"MOVE_TO_TARGET 100,200", Command{Kind: KindMoveToTarget, Target: geo.Vec{X: 100, Y: 200}}},
		{"move_to_target 40.5,-12", Command{Kind: KindMoveToTarget, Target: geo.Vec{X: 40.5, Y: -12}}},
		{"The command is \"MOVE_TO_TARGET 7, 9\".", Command{Kind: KindMoveToTarget, Target: geo.Vec{X: 7, Y: 9}}},
		// Move without usable coordinates degrades to search.
		{"MOVE_TO_TARGET", Command{Kind: KindSearchArea}},
		{"MOVE_TO_TARGET the red square", Command{Kind: KindSearchArea}},
		{"REPORT_FINDING", Command{Kind: KindReportFinding}},
		{"IDLE", Command{Kind: KindIdle}},
		{"TURN_LEFT", Command{Kind: KindTurnLeft}},
		{"Please turn right here", Command{Kind: KindTurnRight}},
		{"STOP", Command{Kind: KindStop}},
		{"keep searching the area", Command{Kind: KindSearch}},
		{"", Command{Kind: KindUnknown}},
		{"I cannot help with that.", Command{Kind: KindUnknown}},
	}
	for _, tc := range tests {
		if got := Parse(tc.output); got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.output, got, tc.want)
		}
	}
}

func TestHeuristicKeywordClasses(t *testing.T) {
	tests := []struct {
		scene string
		want  Kind
	}{
		{"Discovered targets: a target at (60.0, 20.0);", KindReportFinding},
		{"Detected obstacles: a rectangle at (40.0, 20.0) with size 30x30;", KindTurnLeft},
		{"There is a target somewhere to the north.", KindSearchArea},
		{"No significant objects or agents detected in immediate vicinity.", KindSearchArea},
		{"", KindSearchArea},
	}
	for _, tc := range tests {
		cmd, err := Heuristic{}.Decide(nil, tc.scene)
		if err != nil {
			t.Fatalf("Heuristic.Decide(%q): %v", tc.scene, err)
		}
		if cmd.Kind != tc.want {
			t.Errorf("Heuristic(%q) = %s, want %s", tc.scene, cmd.Kind, tc.want)
		}
	}
}
