// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package perception

import (
	"context"
	"strings"
)

// Decider turns a scene description into a command. Implementations
// must honor ctx cancellation; the engine imposes a hard per-call
// timeout.
type Decider interface {
	Decide(ctx context.Context, scene string) (Command, error)
}

// Heuristic is the keyword fallback decider. It never fails and never
// blocks, which is what makes it a safe recovery path when the model
// collaborator times out or errors.
type Heuristic struct{}

// Decide classifies the scene by keyword presence. Keyword classes, in
// priority order: a found/discovered target reports the finding, a
// nearby obstacle turns away, anything suggesting exploration (or an
// empty scene) searches.
func (Heuristic) Decide(_ context.Context, scene string) (Command, error) {
	lower := strings.ToLower(scene)

	if containsAny(lower, "found", "discovered") && containsAny(lower, "target") {
		return Command{Kind: KindReportFinding}, nil
	}
	if containsAny(lower, "obstacle", "blocked", "wall") {
		return Command{Kind: KindTurnLeft}, nil
	}
	if containsAny(lower, "target", "goal", "objective") {
		return Command{Kind: KindSearchArea}, nil
	}
	return Command{Kind: KindSearchArea}, nil
}

func containsAny(s string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
