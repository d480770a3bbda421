// Package scene models the camera state reported by the sandbox.
package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is one camera-state snapshot from inside the sandbox.
type Camera struct {
	Position r3.Vec  `json:"position"`
	Target   r3.Vec  `json:"target"`
	FOV      float64 `json:"fov"`
}

// LookDir returns the unit vector from the camera toward its target, or the
// zero vector when the two coincide.
func (c Camera) LookDir() r3.Vec {
	d := r3.Sub(c.Target, c.Position)
	n := r3.Norm(d)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, d)
}

// TargetDistance returns the distance from the camera to its target.
func (c Camera) TargetDistance() float64 {
	return r3.Norm(r3.Sub(c.Target, c.Position))
}

// Valid rejects snapshots with non-finite components or a degenerate field
// of view; the sandbox side serializes whatever the sketch left behind.
func (c Camera) Valid() bool {
	for _, f := range []float64{
		c.Position.X, c.Position.Y, c.Position.Z,
		c.Target.X, c.Target.Y, c.Target.Z, c.FOV,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return c.FOV > 0 && c.FOV < 180
}
