// Package fps models edit frame rates as an integer timebase plus an NTSC
// flag, the encoding used by the XMEML rate element. NTSC rates are decimal
// broadcast rates: the effective frames-per-second is the timebase scaled by
// 0.999, so timebase 30 with NTSC set plays at 29.97.
package fps

import (
	"errors"
	"fmt"
)

// ErrUnspecified reports a rate element whose timebase is missing or zero.
var ErrUnspecified = errors.New("frame rate unspecified")

// ntscMultiplier converts an integer timebase to its broadcast decimal rate.
const ntscMultiplier = 0.999

// Rate is a frame rate as stored in an edit document.
type Rate struct {
	Timebase int
	NTSC     bool
}

// Zero reports whether the rate carries no usable timebase.
func (r Rate) Zero() bool {
	return r.Timebase == 0
}

// Validate returns ErrUnspecified for a rate no element may carry.
func (r Rate) Validate() error {
	if r.Timebase < 1 {
		return ErrUnspecified
	}
	return nil
}

// FPS returns the effective frames per second.
func (r Rate) FPS() float64 {
	if r.NTSC {
		return float64(r.Timebase) * ntscMultiplier
	}
	return float64(r.Timebase)
}

// Fractional reports whether the effective rate has a non-zero fractional
// part. The writer emits ntsc TRUE exactly when this holds.
func (r Rate) Fractional() bool {
	fps := r.FPS()
	return fps != float64(int(fps))
}

func (r Rate) String() string {
	if r.NTSC {
		return fmt.Sprintf("%g", r.FPS())
	}
	return fmt.Sprintf("%d", r.Timebase)
}

// namedRates is the closed set of rates a host scene accepts as its global
// frame rate. Rates outside the set remain valid inside a document.
var namedRates = map[int]string{
	15: "game",
	24: "film",
	25: "pal",
	30: "ntsc",
	48: "show",
	50: "palf",
	60: "ntscf",
}

// Name maps the rate onto the host's named set. The second return is false
// when no mapping exists.
func (r Rate) Name() (string, bool) {
	name, ok := namedRates[r.Timebase]
	return name, ok
}

// FromName returns the rate registered under a host rate name.
func FromName(name string) (Rate, bool) {
	for timebase, candidate := range namedRates {
		if candidate == name {
			return Rate{Timebase: timebase}, true
		}
	}
	return Rate{}, false
}
