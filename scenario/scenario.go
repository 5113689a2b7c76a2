// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/muster-robotics/muster/lib/geo"
	"github.com/muster-robotics/muster/swarm"
)

// Scenario is one world description. Obstacles are [x, y, w, h]
// rectangles and targets are [x, y] points, kept as fixed-size arrays
// to match the compact file layout.
type Scenario struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Obstacles   [][4]float64 `json:"obstacles"`
	Targets     [][2]float64 `json:"targets"`
	Agents      []AgentSpawn `json:"agents"`
}

// AgentSpawn places one agent in the world.
type AgentSpawn struct {
	ID   int     `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Role string  `json:"role"`
}

// ObstacleRects converts the obstacle arrays to geometry rectangles.
func (s *Scenario) ObstacleRects() []geo.Rect {
	rects := make([]geo.Rect, len(s.Obstacles))
	for i, o := range s.Obstacles {
		rects[i] = geo.Rect{X: o[0], Y: o[1], W: o[2], H: o[3]}
	}
	return rects
}

// TargetVecs converts the target arrays to vectors.
func (s *Scenario) TargetVecs() []geo.Vec {
	vecs := make([]geo.Vec, len(s.Targets))
	for i, t := range s.Targets {
		vecs[i] = geo.Vec{X: t[0], Y: t[1]}
	}
	return vecs
}

// Validate checks the scenario against the given world bounds. Zero
// bounds skip the bounds checks.
func (s *Scenario) Validate(width, height float64) error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	for i, o := range s.Obstacles {
		if o[2] <= 0 || o[3] <= 0 {
			return fmt.Errorf("obstacle %d: non-positive size %vx%v", i, o[2], o[3])
		}
		if width > 0 && (o[0] < 0 || o[1] < 0 || o[0]+o[2] > width || o[1]+o[3] > height) {
			return fmt.Errorf("obstacle %d: outside world bounds", i)
		}
	}
	for i, t := range s.Targets {
		if width > 0 && (t[0] < 0 || t[1] < 0 || t[0] > width || t[1] > height) {
			return fmt.Errorf("target %d: outside world bounds", i)
		}
	}
	seen := make(map[int]bool, len(s.Agents))
	for i, spawn := range s.Agents {
		if seen[spawn.ID] {
			return fmt.Errorf("agent %d: duplicate id %d", i, spawn.ID)
		}
		seen[spawn.ID] = true
		if _, err := swarm.ParseRole(spawn.Role); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if width > 0 && (spawn.X < 0 || spawn.Y < 0 || spawn.X > width || spawn.Y > height) {
			return fmt.Errorf("agent %d: spawn outside world bounds", i)
		}
	}
	return nil
}

// Load reads a scenario file. The file may contain JSONC comments and
// trailing commas; both are stripped before parsing.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the scenario atomically: temp file in the destination
// directory, fsync, rename into place, directory sync. A failed save
// never damages an existing file at path.
func Save(s *Scenario, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scenario: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating temporary scenario file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary scenario file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary scenario file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary scenario file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming scenario file into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss.
	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// GenerateSpec controls random scenario generation.
type GenerateSpec struct {
	Name      string
	Agents    int
	Targets   int
	Obstacles int
	Width     float64
	Height    float64
}

// Generate produces a random scenario from the spec. The first agent
// spawns as alpha, the rest as followers. Obstacle sizes range from 30
// to 110 units and everything is kept inside the world bounds.
func Generate(rng *rand.Rand, spec GenerateSpec) *Scenario {
	s := &Scenario{
		Name:        spec.Name,
		Description: fmt.Sprintf("Generated scenario: %d agents, %d targets, %d obstacles", spec.Agents, spec.Targets, spec.Obstacles),
	}

	for i := 0; i < spec.Obstacles; i++ {
		w := 30 + rng.Float64()*80
		h := 30 + rng.Float64()*80
		s.Obstacles = append(s.Obstacles, [4]float64{
			rng.Float64() * (spec.Width - w),
			rng.Float64() * (spec.Height - h),
			w, h,
		})
	}
	for i := 0; i < spec.Targets; i++ {
		s.Targets = append(s.Targets, [2]float64{
			rng.Float64() * spec.Width,
			rng.Float64() * spec.Height,
		})
	}
	for i := 0; i < spec.Agents; i++ {
		role := swarm.RoleFollower
		if i == 0 {
			role = swarm.RoleAlpha
		}
		s.Agents = append(s.Agents, AgentSpawn{
			ID:   i,
			X:    rng.Float64() * spec.Width,
			Y:    rng.Float64() * spec.Height,
			Role: string(role),
		})
	}
	return s
}
