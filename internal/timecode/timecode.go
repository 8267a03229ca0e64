// Package timecode holds HH:MM:SS:FF addresses tied to a frame rate.
//
// Parsing is permissive: fields outside their usual range (frames beyond the
// timebase, seconds beyond 59) are kept verbatim so a document can round-trip
// exactly what it said. Formatting normalizes, carrying overflow into the
// next higher field.
package timecode

import (
	"fmt"
	"strconv"
	"strings"

	"slate/internal/fps"
)

// Timecode is a frame-accurate address at a rate.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
	Rate    fps.Rate
}

// Parse reads "HH:MM:SS:FF". Fields must be non-negative integers; values
// out of range are accepted verbatim.
func Parse(s string, rate fps.Rate) (Timecode, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return Timecode{}, fmt.Errorf("timecode %q: want HH:MM:SS:FF", s)
	}
	fields := make([]int, 4)
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			return Timecode{}, fmt.Errorf("timecode %q: field %d: %w", s, i+1, err)
		}
		if value < 0 {
			return Timecode{}, fmt.Errorf("timecode %q: negative field", s)
		}
		fields[i] = value
	}
	return Timecode{
		Hours:   fields[0],
		Minutes: fields[1],
		Seconds: fields[2],
		Frames:  fields[3],
		Rate:    rate,
	}, nil
}

// FromFrames converts a frame count at the given rate into a timecode.
// Negative counts wrap modulo-then-carry, matching ShiftFrames underflow.
func FromFrames(frames int, rate fps.Rate) Timecode {
	tc := Timecode{Frames: frames, Rate: rate}
	return tc.normalized()
}

// TotalFrames returns the address as a frame count at the timecode's rate.
func (t Timecode) TotalFrames() int {
	timebase := t.Rate.Timebase
	if timebase < 1 {
		timebase = 1
	}
	return ((t.Hours*60+t.Minutes)*60+t.Seconds)*timebase + t.Frames
}

// ShiftFrames returns the timecode moved by delta frames.
func (t Timecode) ShiftFrames(delta int) Timecode {
	shifted := Timecode{Frames: t.TotalFrames() + delta, Rate: t.Rate}
	return shifted.normalized()
}

// String formats the normalized address as HH:MM:SS:FF.
func (t Timecode) String() string {
	n := t.normalized()
	return fmt.Sprintf("%02d:%02d:%02d:%02d", n.Hours, n.Minutes, n.Seconds, n.Frames)
}

// normalized carries out-of-range fields upward: frames into seconds at the
// timebase, seconds and minutes at 60. Negative totals use modulo-then-carry.
func (t Timecode) normalized() Timecode {
	timebase := t.Rate.Timebase
	if timebase < 1 {
		timebase = 1
	}
	total := t.TotalFrames()

	frames := mod(total, timebase)
	total = (total - frames) / timebase
	seconds := mod(total, 60)
	total = (total - seconds) / 60
	minutes := mod(total, 60)
	total = (total - minutes) / 60

	return Timecode{
		Hours:   total,
		Minutes: minutes,
		Seconds: seconds,
		Frames:  frames,
		Rate:    t.Rate,
	}
}

func mod(value, base int) int {
	m := value % base
	if m < 0 {
		m += base
	}
	return m
}
