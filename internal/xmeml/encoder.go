package xmeml

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"slate/internal/fps"
	"slate/internal/timeline"
)

// header matches the document encoding the dialect promises.
const header = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"

// Encoder serializes a timeline.Sequence as an XMEML document with two-space
// indentation and the stable child ordering readers of the dialect expect.
type Encoder struct {
	w    io.Writer
	log  *slog.Logger
	seen map[string]bool
}

// NewEncoder returns an encoder writing to w. Diagnostics go to log.
func NewEncoder(w io.Writer, log *slog.Logger) *Encoder {
	if log == nil {
		log = slog.Default()
	}
	return &Encoder{w: w, log: log, seen: make(map[string]bool)}
}

// Write-side schema. Field order is the emission order.

type outDocument struct {
	XMLName  xml.Name    `xml:"xmeml"`
	Version  string      `xml:"version,attr"`
	Sequence outSequence `xml:"sequence"`
}

type outRate struct {
	Timebase int    `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

type outTimecode struct {
	Rate          outRate `xml:"rate"`
	String        string  `xml:"string"`
	Frame         int     `xml:"frame"`
	DisplayFormat string  `xml:"displayformat"`
}

type outSequence struct {
	Name     string       `xml:"name"`
	Duration int          `xml:"duration"`
	Rate     outRate      `xml:"rate"`
	Timecode *outTimecode `xml:"timecode,omitempty"`
	Media    outMedia     `xml:"media"`
}

type outMedia struct {
	Video outMediaKind `xml:"video"`
	Audio outMediaKind `xml:"audio"`
}

type outMediaKind struct {
	Format *outFormat `xml:"format,omitempty"`
	Tracks []outTrack `xml:"track"`
}

type outFormat struct {
	Characteristics outCharacteristics `xml:"samplecharacteristics"`
}

type outCharacteristics struct {
	Width      int `xml:"width,omitempty"`
	Height     int `xml:"height,omitempty"`
	Depth      int `xml:"depth,omitempty"`
	SampleRate int `xml:"samplerate,omitempty"`
}

type outTrack struct {
	Name        string
	Locked      string
	Enabled     string
	TrackNumber int
	Items       []outTrackItem
}

type outTrackItem struct {
	Clip       *outClipItem
	Transition *outTransitionItem
}

type outClipItem struct {
	ID           string    `xml:"id,attr,omitempty"`
	Name         string    `xml:"name"`
	Duration     int       `xml:"duration"`
	Enabled      string    `xml:"enabled"`
	Start        int       `xml:"start"`
	End          int       `xml:"end"`
	In           int       `xml:"in"`
	Out          int       `xml:"out"`
	MasterClipID string    `xml:"masterclipid,omitempty"`
	File         *outFile  `xml:"file,omitempty"`
	Links        []outLink `xml:"link,omitempty"`
}

type outTransitionItem struct {
	Name      string   `xml:"name,omitempty"`
	Rate      *outRate `xml:"rate,omitempty"`
	Start     int      `xml:"start"`
	End       int      `xml:"end"`
	Alignment string   `xml:"alignment,omitempty"`
}

type outFile struct {
	ID       string `xml:"id,attr,omitempty"`
	PathURL  string `xml:"pathurl,omitempty"`
	Name     string `xml:"name,omitempty"`
	Duration int    `xml:"duration,omitempty"`
}

type outLink struct {
	ClipRefs []string `xml:"linkclipref"`
}

// MarshalXML interleaves clipitem and transitionitem children by hand; the
// two element names share one ordered list.
func (t outTrack) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if t.Name != "" {
		if err := encodeLeaf(e, "name", t.Name); err != nil {
			return err
		}
	}
	if err := encodeLeaf(e, "locked", t.Locked); err != nil {
		return err
	}
	if err := encodeLeaf(e, "enabled", t.Enabled); err != nil {
		return err
	}
	if err := encodeLeaf(e, "trackNumber", fmt.Sprintf("%d", t.TrackNumber)); err != nil {
		return err
	}
	for _, item := range t.Items {
		switch {
		case item.Clip != nil:
			if err := e.EncodeElement(item.Clip, xml.StartElement{Name: xml.Name{Local: "clipitem"}}); err != nil {
				return err
			}
		case item.Transition != nil:
			if err := e.EncodeElement(item.Transition, xml.StartElement{Name: xml.Name{Local: "transitionitem"}}); err != nil {
				return err
			}
		}
	}
	return e.EncodeToken(start.End())
}

func encodeLeaf(e *xml.Encoder, tag, text string) error {
	return e.EncodeElement(text, xml.StartElement{Name: xml.Name{Local: tag}})
}

// Encode writes the sequence as a complete document.
func (e *Encoder) Encode(seq *timeline.Sequence) error {
	doc := outDocument{
		Version:  "1.0",
		Sequence: e.buildSequence(seq),
	}
	if _, err := io.WriteString(e.w, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := xml.NewEncoder(e.w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write xmeml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, "\n")
	return err
}

func (e *Encoder) buildSequence(seq *timeline.Sequence) outSequence {
	out := outSequence{
		Name:     seq.Name,
		Duration: seq.Duration,
		Rate:     buildRate(seq.Rate),
	}
	if seq.Timecode != nil {
		tc := *seq.Timecode
		out.Timecode = &outTimecode{
			Rate:          buildRate(tc.Rate),
			String:        tc.String(),
			Frame:         tc.TotalFrames(),
			DisplayFormat: displayFormat(tc.Rate),
		}
	}
	if seq.Format != nil {
		out.Media.Video.Format = buildFormat(seq.Format)
	}
	for _, track := range seq.VideoTracks {
		out.Media.Video.Tracks = append(out.Media.Video.Tracks, e.buildTrack(seq, track))
	}
	for _, track := range seq.AudioTracks {
		out.Media.Audio.Tracks = append(out.Media.Audio.Tracks, e.buildTrack(seq, track))
	}
	return out
}

func (e *Encoder) buildTrack(seq *timeline.Sequence, track *timeline.Track) outTrack {
	out := outTrack{
		Name:        track.Name,
		Locked:      formatBool(track.Locked),
		Enabled:     formatBool(track.Enabled),
		TrackNumber: track.TrackNumber,
	}
	for _, item := range orderItems(track.Items) {
		if item.IsTransition() {
			out.Items = append(out.Items, outTrackItem{Transition: buildTransition(item)})
			continue
		}
		out.Items = append(out.Items, outTrackItem{Clip: e.buildClip(seq, item)})
	}
	return out
}

// orderItems sorts by start while keeping items with a sentinel start glued
// to the element before them, since their real start is defined by it.
func orderItems(items []*timeline.Item) []*timeline.Item {
	keys := make([]int, len(items))
	last := 0
	for i, item := range items {
		if item.Start == timeline.Sentinel {
			keys[i] = last
		} else {
			keys[i] = item.Start
			last = item.Start
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	ordered := make([]*timeline.Item, len(items))
	for i, j := range idx {
		ordered[i] = items[j]
	}
	return ordered
}

func (e *Encoder) buildClip(seq *timeline.Sequence, item *timeline.Item) *outClipItem {
	if item.Start == item.End && item.Start != timeline.Sentinel {
		e.log.Warn("zero-length clip", "location", fmt.Sprintf("clipitem with name '%s'", item.Name))
	}
	out := &outClipItem{
		ID:           item.ID,
		Name:         item.Name,
		Duration:     item.Duration,
		Enabled:      formatBool(item.Enabled),
		Start:        item.Start,
		End:          item.End,
		In:           item.In,
		Out:          item.Out,
		MasterClipID: item.MasterClipID,
	}
	if item.File != nil {
		out.File = e.buildFile(item.File)
	}
	if item.ID != "" {
		if group := seq.LinkGroupFor(item.ID); group != nil {
			out.Links = []outLink{{ClipRefs: append([]string(nil), group.ClipIDs...)}}
		}
	}
	return out
}

// buildFile writes the full definition once per id; repeats carry only the
// id attribute, the dialect's way of sharing a reference.
func (e *Encoder) buildFile(ref *timeline.FileRef) *outFile {
	if ref.ID != "" && e.seen[ref.ID] {
		return &outFile{ID: ref.ID}
	}
	if ref.ID != "" {
		e.seen[ref.ID] = true
	}
	out := &outFile{
		ID:       ref.ID,
		Name:     ref.Name,
		Duration: ref.Duration,
	}
	if ref.PathURL != "" {
		if !IsAbsolutePath(ref.PathURL) {
			e.log.Warn("pathurl is not absolute", "path", ref.PathURL,
				"location", fmt.Sprintf("file with name '%s'", fileName(ref)))
		}
		out.PathURL = FormatPathURL(ref.PathURL)
	}
	return out
}

func fileName(ref *timeline.FileRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	return ref.ID
}

func buildTransition(item *timeline.Item) *outTransitionItem {
	out := &outTransitionItem{
		Name:      item.Name,
		Start:     item.Start,
		End:       item.End,
		Alignment: string(item.Alignment),
	}
	if !item.Rate.Zero() {
		rate := buildRate(item.Rate)
		out.Rate = &rate
	}
	return out
}

// buildRate emits ntsc TRUE exactly when the effective rate is fractional.
func buildRate(rate fps.Rate) outRate {
	return outRate{
		Timebase: rate.Timebase,
		NTSC:     formatBool(rate.Fractional()),
	}
}

func displayFormat(rate fps.Rate) string {
	if rate.NTSC {
		return "DF"
	}
	return "NDF"
}

func buildFormat(chars *timeline.SampleCharacteristics) *outFormat {
	if chars == nil {
		return nil
	}
	return &outFormat{Characteristics: outCharacteristics{
		Width:      chars.Width,
		Height:     chars.Height,
		Depth:      chars.Depth,
		SampleRate: chars.SampleRate,
	}}
}
