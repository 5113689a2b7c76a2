// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"time"
)

// RunConfig bounds a Run call.
type RunConfig struct {
	// Dt is the simulated duration of one tick.
	Dt time.Duration

	// MaxTime stops the run once simulated time reaches it. Zero
	// means unbounded.
	MaxTime time.Duration

	// Realtime paces ticks on the scheduler's clock at Dt intervals.
	// False runs ticks back to back as fast as they compute.
	Realtime bool
}

// Run ticks the scheduler until the context is canceled, simulated
// time reaches MaxTime, or every target has been found. Returns the
// context error on cancellation, nil on a natural stop.
func (s *Scheduler) Run(ctx context.Context, cfg RunConfig) error {
	if cfg.Dt <= 0 {
		cfg.Dt = time.Second / 60
	}
	dt := cfg.Dt.Seconds()

	var tickC <-chan time.Time
	if cfg.Realtime {
		ticker := s.clock.NewTicker(cfg.Dt)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		if cfg.MaxTime > 0 && s.simTime >= cfg.MaxTime.Seconds() {
			s.logger.Info("simulation time limit reached", "sim_time", s.simTime)
			return nil
		}
		if s.totalTargets > 0 && s.targetsFound == s.totalTargets {
			s.logger.Info("all targets found", "targets", s.totalTargets, "ticks", s.tick)
			return nil
		}

		if cfg.Realtime {
			select {
			case <-tickC:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		s.Tick(ctx, dt)
	}
}
