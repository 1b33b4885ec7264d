// SPDX-License-Identifier: EPL-2.0

// Package gainpan implements the engine's pure distance-attenuation and
// stereo-pan math. Every function here is side-effect free: same inputs
// always produce the same outputs, which keeps the voice scheduler's
// per-frame gain recomputation cheap to reason about and to test.
package gainpan

import (
	"math"

	"github.com/silverlode/voicecore/geom"
)

// panSilenceEpsilonSq is the squared-length threshold below which a
// listener-space vector is treated as coincident with the listener and
// panned to dead center.
const panSilenceEpsilonSq = 1e-4

// AttenuationCurve maps p in [lo, hi] onto [0, 1] with curvature k.
// k == 1 is linear; k > 1 eases out (slow then fast); 0 < k < 1 eases in
// (fast then slow). Values of p outside [lo, hi] extrapolate rather than
// clamp; callers that need clamping (DistanceAttenuation) do it
// themselves before calling in.
func AttenuationCurve(p, lo, hi, k float64) float64 {
	d := p - lo
	r := hi - lo
	return d / ((r-d)*(k-1) + r)
}

// AttenuationParams bundles a SoundCollection's distance-rolloff
// fields (min_audible_radius..roll_out_curve_factor) so
// DistanceAttenuation doesn't need six positional arguments.
type AttenuationParams struct {
	MinAudibleRadius   float64
	RollInRadius       float64
	RollOutRadius      float64
	MaxAudibleRadius   float64
	RollInCurveFactor  float64
	RollOutCurveFactor float64
}

// DistanceAttenuation computes the [0,1] gain multiplier for a source at
// squared distance dSq from the listener.
func DistanceAttenuation(dSq float64, p AttenuationParams) float64 {
	if dSq < p.MinAudibleRadius*p.MinAudibleRadius || dSq > p.MaxAudibleRadius*p.MaxAudibleRadius {
		return 0
	}

	d := math.Sqrt(dSq)
	switch {
	case d < p.RollInRadius:
		return AttenuationCurve(d, p.MinAudibleRadius, p.RollInRadius, p.RollInCurveFactor)
	case d > p.RollOutRadius:
		return 1 - AttenuationCurve(d, p.RollOutRadius, p.MaxAudibleRadius, p.RollOutCurveFactor)
	default:
		return 1
	}
}

// Pan projects a listener-space direction onto the engine's stereo pan
// plane. The result's X and Y components lie in the unit disc and are
// handed to the backend's pan input unchanged (X maps -1..+1 across
// left/right via equal-power pan; Y is forward/back, useful for
// backends that support it and ignorable for those that don't).
type Pan struct {
	X, Y float64
}

// FromListenerSpace computes the pan of a vector already expressed in
// listener space (i.e. the result of a Listener's inverse-world matrix
// applied to a world-space source location).
func FromListenerSpace(v geom.Vector3D) Pan {
	if v.LengthSq() <= panSilenceEpsilonSq {
		return Pan{}
	}
	n := v.Normalized()
	return Pan{X: n.X, Y: n.Z}
}
