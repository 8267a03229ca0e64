package xmeml_test

import (
	"strings"
	"testing"

	"slate/internal/fps"
	"slate/internal/timecode"
	"slate/internal/timeline"
	"slate/internal/xmeml"
)

func encode(t *testing.T, seq *timeline.Sequence) string {
	t.Helper()
	var buf strings.Builder
	if err := xmeml.NewEncoder(&buf, quietLogger()).Encode(seq); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.String()
}

func filmSequence() *timeline.Sequence {
	rate := fps.Rate{Timebase: 24}
	tc, _ := timecode.Parse("01:00:00:00", rate)
	return &timeline.Sequence{
		Name:     "cut_v3",
		Duration: 48,
		Rate:     rate,
		Timecode: &tc,
		Format:   &timeline.SampleCharacteristics{Width: 1920, Height: 1080},
		VideoTracks: []*timeline.Track{{
			Kind:        timeline.TrackVideo,
			Enabled:     true,
			TrackNumber: 1,
			Items: []*timeline.Item{
				{
					Kind: timeline.KindClip, ID: "shot_010", Name: "shot_010",
					Start: 0, End: 24, In: 0, Out: 24, Duration: 24, Enabled: true,
					File: &timeline.FileRef{ID: "f1", Name: "shot_010.mov", PathURL: "/media/render out/shot_010.mov", Duration: 24},
				},
				{
					Kind: timeline.KindClip, ID: "shot_020", Name: "shot_020",
					Start: 24, End: 48, In: 0, Out: 24, Duration: 24, Enabled: true,
					File: &timeline.FileRef{ID: "f2", Name: "shot_020.mov", PathURL: "/media/shot_020.mov", Duration: 24},
				},
			},
		}},
	}
}

func TestEncodeDocumentShape(t *testing.T) {
	doc := encode(t, filmSequence())

	if !strings.HasPrefix(doc, `<?xml version="1.0" encoding="utf-8"?>`) {
		t.Fatalf("missing header: %q", doc[:60])
	}
	if !strings.Contains(doc, `<xmeml version="1.0">`) {
		t.Fatal("missing xmeml root")
	}
	for _, want := range []string{
		"<duration>48</duration>",
		"<timebase>24</timebase>",
		"<ntsc>FALSE</ntsc>",
		"<string>01:00:00:00</string>",
		"<width>1920</width>",
		"<height>1080</height>",
		"<end>24</end>",
		"<end>48</end>",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("missing %q in output:\n%s", want, doc)
		}
	}
}

func TestEncodeChildOrderUnderSequence(t *testing.T) {
	doc := encode(t, filmSequence())
	order := []string{"<name>cut_v3</name>", "<duration>", "<rate>", "<timecode>", "<media>", "<video>", "<audio>"}
	at := 0
	for _, marker := range order {
		idx := strings.Index(doc[at:], marker)
		if idx < 0 {
			t.Fatalf("marker %q missing or out of order:\n%s", marker, doc)
		}
		at += idx
	}
}

func TestEncodePathURLPercentEncodesSpaces(t *testing.T) {
	doc := encode(t, filmSequence())
	if !strings.Contains(doc, "<pathurl>file:///media/render%20out/shot_010.mov</pathurl>") {
		t.Fatalf("pathurl not encoded:\n%s", doc)
	}
}

func TestEncodeEmitsNTSCWhenFractional(t *testing.T) {
	seq := filmSequence()
	seq.Rate = fps.Rate{Timebase: 30, NTSC: true}
	seq.Timecode = nil
	doc := encode(t, seq)
	if !strings.Contains(doc, "<timebase>30</timebase>") || !strings.Contains(doc, "<ntsc>TRUE</ntsc>") {
		t.Fatalf("NTSC rate not emitted:\n%s", doc)
	}
}

func TestEncodeSortsClipsByStart(t *testing.T) {
	seq := filmSequence()
	track := seq.VideoTracks[0]
	track.Items[0], track.Items[1] = track.Items[1], track.Items[0]
	doc := encode(t, seq)
	first := strings.Index(doc, "<name>shot_010</name>")
	second := strings.Index(doc, "<name>shot_020</name>")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("clips not emitted in start order:\n%s", doc)
	}
}

func TestRoundTripThroughCodec(t *testing.T) {
	original := decode(t, sequenceDoc)
	written := encode(t, original)
	reread, err := xmeml.NewDecoder(strings.NewReader(written), quietLogger()).Decode()
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}

	if reread.Name != original.Name || reread.Duration != original.Duration {
		t.Fatalf("header changed: %q/%d vs %q/%d", reread.Name, reread.Duration, original.Name, original.Duration)
	}
	if reread.Rate != original.Rate {
		t.Fatalf("rate changed: %+v vs %+v", reread.Rate, original.Rate)
	}
	if len(reread.VideoTracks) != 1 || len(reread.AudioTracks) != 1 {
		t.Fatalf("track counts changed")
	}
	origItems := original.VideoTracks[0].Items
	backItems := reread.VideoTracks[0].Items
	if len(backItems) != len(origItems) {
		t.Fatalf("item count changed: %d vs %d", len(backItems), len(origItems))
	}
	for i := range origItems {
		if backItems[i].IsTransition() != origItems[i].IsTransition() {
			t.Fatalf("item %d kind changed", i)
		}
		if backItems[i].Start != origItems[i].Start || backItems[i].End != origItems[i].End {
			t.Fatalf("item %d extent changed: %d..%d vs %d..%d",
				i, backItems[i].Start, backItems[i].End, origItems[i].Start, origItems[i].End)
		}
	}
	if backItems[0].File == nil || backItems[0].File.PathURL != "/media/shot 010.mov" {
		t.Fatalf("pathurl did not round-trip: %+v", backItems[0].File)
	}
	if len(reread.Links) != 1 || len(reread.Links[0].ClipIDs) != 2 {
		t.Fatalf("link groups did not round-trip: %+v", reread.Links)
	}
}
