package timecode_test

import (
	"testing"

	"slate/internal/fps"
	"slate/internal/timecode"
)

var film = fps.Rate{Timebase: 24}

func TestParseKeepsFieldsVerbatim(t *testing.T) {
	tc, err := timecode.Parse("01:02:03:30", film)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tc.Frames != 30 {
		t.Fatalf("expected frames kept verbatim, got %d", tc.Frames)
	}
	// Normalization happens on format only.
	if got := tc.String(); got != "01:02:04:06" {
		t.Fatalf("expected carry on format, got %q", got)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "01:02:03", "aa:00:00:00", "01:-2:00:00", "1:2:3:4:5"} {
		if _, err := timecode.Parse(input, film); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestShiftFramesCarries(t *testing.T) {
	tc, err := timecode.Parse("00:00:59:20", film)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tc.ShiftFrames(5).String(); got != "00:01:00:01" {
		t.Fatalf("expected 00:01:00:01, got %q", got)
	}
}

func TestShiftFramesUnderflowModuloThenCarry(t *testing.T) {
	tc, err := timecode.Parse("00:01:00:00", film)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tc.ShiftFrames(-1).String(); got != "00:00:59:23" {
		t.Fatalf("expected 00:00:59:23, got %q", got)
	}
}

func TestTotalFramesRoundTrip(t *testing.T) {
	tc, err := timecode.Parse("01:00:00:00", fps.Rate{Timebase: 30, NTSC: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	frames := tc.TotalFrames()
	if frames != 30*3600 {
		t.Fatalf("expected %d frames, got %d", 30*3600, frames)
	}
	back := timecode.FromFrames(frames, tc.Rate)
	if back.String() != "01:00:00:00" {
		t.Fatalf("round trip mismatch: %q", back.String())
	}
}
