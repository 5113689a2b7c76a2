// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import "math"

// Vec is a 2D vector. Used for positions, velocities, and forces.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + other.
func (v Vec) Add(other Vec) Vec { return Vec{v.X + other.X, v.Y + other.Y} }

// Sub returns v - other.
func (v Vec) Sub(other Vec) Vec { return Vec{v.X - other.X, v.Y - other.Y} }

// Scale returns v scaled by factor.
func (v Vec) Scale(factor float64) Vec { return Vec{v.X * factor, v.Y * factor} }

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and other.
func (v Vec) Dist(other Vec) float64 { return v.Sub(other).Len() }

// Norm returns v scaled to unit length. The zero vector normalizes to
// the zero vector rather than NaN, so callers steering toward a point
// they are already at produce no force.
func (v Vec) Norm() Vec {
	length := v.Len()
	if length == 0 {
		return Vec{}
	}
	return v.Scale(1 / length)
}

// Clamp returns v with its length limited to max. Vectors at or below
// max are returned unchanged.
func (v Vec) Clamp(max float64) Vec {
	length := v.Len()
	if length <= max {
		return v
	}
	return v.Scale(max / length)
}

// FromAngle returns the unit vector at the given angle in radians.
func FromAngle(angle float64) Vec {
	return Vec{math.Cos(angle), math.Sin(angle)}
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
// Obstacles in the world are rectangles.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ClosestPoint returns the point on or inside r nearest to p. For a
// point inside the rectangle this is the point itself, which makes the
// distance zero — obstacle avoidance treats that as maximal urgency.
func (r Rect) ClosestPoint(p Vec) Vec {
	return Vec{
		X: math.Max(r.X, math.Min(p.X, r.X+r.W)),
		Y: math.Max(r.Y, math.Min(p.Y, r.Y+r.H)),
	}
}

// Dist returns the distance from p to the nearest point of r. Zero
// when p is inside the rectangle.
func (r Rect) Dist(p Vec) float64 {
	return p.Dist(r.ClosestPoint(p))
}
