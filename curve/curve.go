// Package curve implements the monotonically non-increasing threshold
// functions that decide whether a referendum is passing at a given point
// in its decision period. Every family is pure fixed-point arithmetic over
// types.Perbill (parts-per-billion) so curve evaluation is bit-for-bit
// reproducible across nodes, per the engine's determinism requirement.
package curve

import "assembly/core/types"

// Perbill is re-exported for caller convenience.
type Perbill = types.Perbill

// OneBillion is re-exported for caller convenience.
const OneBillion = types.OneBillion

// Curve describes a monotonically non-increasing threshold(x) for
// x in [0,1], plus its inverse delay(y) = inf{x : threshold(x) <= y}.
type Curve interface {
	// Threshold returns the passing threshold at elapsed fraction x.
	Threshold(x Perbill) Perbill
	// Passing reports whether measurement y meets the threshold at x.
	Passing(x, y Perbill) bool
	// Delay returns the smallest x at which measurement y would be passing.
	Delay(y Perbill) Perbill
}

// LinearDecreasing describes a threshold that falls linearly from Ceil at
// x=0 to Floor at x=1.
type LinearDecreasing struct {
	Ceil  Perbill
	Floor Perbill
}

// Threshold implements Curve.
func (c LinearDecreasing) Threshold(x Perbill) Perbill {
	if x >= OneBillion {
		return c.Floor
	}
	span := c.Ceil.Sub(c.Floor)
	// c.Ceil - span*x (fixed point).
	drop := span.Mul(x)
	return c.Ceil.Sub(drop)
}

// Passing implements Curve.
func (c LinearDecreasing) Passing(x, y Perbill) bool {
	return y >= c.Threshold(x)
}

// Delay implements Curve.
func (c LinearDecreasing) Delay(y Perbill) Perbill {
	if y >= c.Ceil {
		return 0
	}
	if y <= c.Floor {
		return OneBillion
	}
	span := c.Ceil.Sub(c.Floor)
	if span == 0 {
		return 0
	}
	// Solve c.Ceil - span*x <= y  =>  x >= (c.Ceil - y)/span.
	need := c.Ceil.Sub(y)
	return ceilDiv(uint64(need)*uint64(OneBillion), uint64(span))
}

// Reciprocal describes a threshold of the form
// factor/(x+xOffset) - yOffset, clamped to [0,1]. It falls steeply
// near x=0 and flattens out, matching the "decide fast if support is high,
// otherwise wait" shape used for fast-track-style tracks.
type Reciprocal struct {
	Factor  Perbill
	XOffset Perbill
	YOffset Perbill
}

// Threshold implements Curve.
func (c Reciprocal) Threshold(x Perbill) Perbill {
	denom := uint64(x) + uint64(c.XOffset)
	if denom == 0 {
		return OneBillion
	}
	raw := (uint64(c.Factor) * uint64(OneBillion)) / denom
	value := Perbill(raw).Sub(c.YOffset)
	if value > OneBillion {
		return OneBillion
	}
	return value
}

// Passing implements Curve.
func (c Reciprocal) Passing(x, y Perbill) bool {
	return y >= c.Threshold(x)
}

// Delay implements Curve.
func (c Reciprocal) Delay(y Perbill) Perbill {
	// Binary search the inverse: Threshold is non-increasing in x, so we
	// can bisect over [0, OneBillion] for the crossing point. This keeps
	// the family trivially extensible without a closed-form inverse for
	// every parameterization while staying fully deterministic (fixed
	// iteration count, integer-only comparisons).
	return bisectDelay(c, y)
}

// SteppedDecreasing describes a staircase threshold that drops by Step at
// every multiple of Period, starting at OneBillion.
type SteppedDecreasing struct {
	Step   Perbill
	Period Perbill
}

// Threshold implements Curve.
func (c SteppedDecreasing) Threshold(x Perbill) Perbill {
	if c.Period == 0 {
		return 0
	}
	steps := uint64(x) / uint64(c.Period)
	total := steps * uint64(c.Step)
	if total >= uint64(OneBillion) {
		return 0
	}
	return OneBillion - Perbill(total)
}

// Passing implements Curve.
func (c SteppedDecreasing) Passing(x, y Perbill) bool {
	return y >= c.Threshold(x)
}

// Delay implements Curve.
func (c SteppedDecreasing) Delay(y Perbill) Perbill {
	return bisectDelay(c, y)
}

func bisectDelay(c Curve, y Perbill) Perbill {
	if c.Passing(0, y) {
		return 0
	}
	if !c.Passing(OneBillion, y) {
		return OneBillion
	}
	lo, hi := uint64(0), uint64(OneBillion)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if c.Passing(Perbill(mid), y) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return Perbill(hi)
}

func ceilDiv(num, denom uint64) Perbill {
	if denom == 0 {
		return OneBillion
	}
	result := (num + denom - 1) / denom
	if result > uint64(OneBillion) {
		return OneBillion
	}
	return Perbill(result)
}
