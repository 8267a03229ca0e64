// Package xmeml reads and writes the Final Cut Pro XMEML dialect, translating
// between serialized documents and the timeline sequence model.
//
// The read side is deliberately forgiving: element-level problems (a missing
// rate, an unusable file reference, a mismatched clip rate) are reported on
// the logger with the closest named ancestor for context and decoding
// continues with defaults. Only structural failures - a document with no
// sequence, or a sequence with no usable rate - abort the decode.
package xmeml

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"

	"slate/internal/fps"
	"slate/internal/timecode"
	"slate/internal/timeline"
)

// Decoder reads one XMEML document into a timeline.Sequence.
type Decoder struct {
	r   io.Reader
	log *slog.Logger
}

// NewDecoder returns a decoder reading from r. Diagnostics go to log.
func NewDecoder(r io.Reader, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{r: r, log: log}
}

// location is a parent chain for error messages. Links point upward only and
// live no longer than the decode that built them. The label records which
// attribute identified the element, so messages read "clipitem with name
// 'shot_010'" or, for elements known only by id, "file with id 'f1'".
type location struct {
	parent *location
	tag    string
	label  string // "name" or "id"
	value  string
}

func (l *location) child(tag, name string) *location {
	return &location{parent: l, tag: tag, label: "name", value: name}
}

func (l *location) childID(tag, id string) *location {
	return &location{parent: l, tag: tag, label: "id", value: id}
}

// childNamed prefers the element's name and falls back to its id.
func (l *location) childNamed(tag, name, id string) *location {
	if name != "" {
		return l.child(tag, name)
	}
	return l.childID(tag, id)
}

// String walks up to the first identified element and renders it; with no
// identified ancestor the innermost tag is reported as unknown.
func (l *location) String() string {
	for at := l; at != nil; at = at.parent {
		if at.value != "" {
			return fmt.Sprintf("%s with %s '%s'", at.tag, at.label, at.value)
		}
	}
	if l == nil {
		return "unknown element"
	}
	return fmt.Sprintf("unknown %s element", l.tag)
}

// masterClip is the bin-level record a sequence clipitem can inherit from.
type masterClip struct {
	name     string
	duration int
	start    int
	end      int
	rate     fps.Rate
	items    []*rawClipItem
}

type decodeState struct {
	log     *slog.Logger
	reg     *timeline.Registry
	masters map[string]masterClip
	seq     *timeline.Sequence
}

// Decode parses the document and returns its first sequence.
func (d *Decoder) Decode() (*timeline.Sequence, error) {
	var doc rawDocument
	if err := xml.NewDecoder(d.r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse xmeml: %w", err)
	}
	if len(doc.Sequences) == 0 {
		return nil, fmt.Errorf("document has no sequence")
	}

	st := &decodeState{
		log:     d.log,
		reg:     timeline.NewRegistry(),
		masters: make(map[string]masterClip),
	}
	root := (*location)(nil)
	for i := range doc.Bins {
		st.scanBin(&doc.Bins[i], root.child("bin", doc.Bins[i].Name))
	}
	return st.translateSequence(&doc.Sequences[0], root)
}

// scanBin records master clips by id and registers every file reachable
// under them, so sequence clipitems can inherit metadata and share refs.
func (st *decodeState) scanBin(bin *rawBin, loc *location) {
	for i := range bin.Children.Clips {
		clip := &bin.Children.Clips[i]
		clipLoc := loc.childNamed("clip", clip.Name, clip.ID)
		record := masterClip{
			name:     clip.Name,
			duration: clip.Duration,
			start:    clip.In,
			end:      clip.Out,
			rate:     st.rateAt(clip.Rate, clipLoc),
		}
		record.items = mediaClipItems(clip.Media)
		for _, item := range record.items {
			itemLoc := clipLoc.childNamed("clipitem", item.Name, item.ID)
			if item.File != nil {
				st.registerFile(item.File, itemLoc)
			}
			if rate := st.rateAt(item.Rate, itemLoc); record.rate.Zero() {
				record.rate = rate
			}
		}
		if clip.ID != "" {
			st.masters[clip.ID] = record
		}
	}
	for i := range bin.Children.Bins {
		nested := &bin.Children.Bins[i]
		st.scanBin(nested, loc.child("bin", nested.Name))
	}
}

func mediaClipItems(media *rawMedia) []*rawClipItem {
	if media == nil {
		return nil
	}
	var items []*rawClipItem
	for _, kind := range []*rawMediaKind{media.Video, media.Audio} {
		if kind == nil {
			continue
		}
		for t := range kind.Tracks {
			for i := range kind.Tracks[t].Items {
				if clip := kind.Tracks[t].Items[i].Clip; clip != nil {
					items = append(items, clip)
				}
			}
		}
	}
	return items
}

func (st *decodeState) translateSequence(raw *rawSequence, root *location) (*timeline.Sequence, error) {
	loc := root.child("sequence", raw.Name)
	if raw.Rate == nil || raw.Rate.Timebase < 1 {
		return nil, fmt.Errorf("%s: %w", loc, fps.ErrUnspecified)
	}

	seq := &timeline.Sequence{
		Name:     raw.Name,
		Duration: raw.Duration,
		Rate:     translateRate(raw.Rate),
	}
	st.seq = seq

	if raw.Timecode != nil && raw.Timecode.String != "" {
		tcRate := seq.Rate
		if rate := st.rateAt(raw.Timecode.Rate, loc.child("timecode", "")); !rate.Zero() {
			tcRate = rate
		}
		tc, err := timecode.Parse(raw.Timecode.String, tcRate)
		if err != nil {
			st.log.Error("invalid timecode", "location", loc.child("timecode", "").String(), "err", err)
		} else {
			seq.Timecode = &tc
		}
	}

	if raw.Media != nil {
		if raw.Media.Video != nil {
			seq.Format = translateFormat(raw.Media.Video.Format)
			for i := range raw.Media.Video.Tracks {
				seq.VideoTracks = append(seq.VideoTracks,
					st.translateTrack(&raw.Media.Video.Tracks[i], timeline.TrackVideo, loc))
			}
		}
		if raw.Media.Audio != nil {
			if seq.Format == nil {
				seq.Format = translateFormat(raw.Media.Audio.Format)
			}
			for i := range raw.Media.Audio.Tracks {
				seq.AudioTracks = append(seq.AudioTracks,
					st.translateTrack(&raw.Media.Audio.Tracks[i], timeline.TrackAudio, loc))
			}
		}
	}
	return seq, nil
}

func (st *decodeState) translateTrack(raw *rawTrack, kind timeline.TrackKind, parent *location) *timeline.Track {
	loc := parent.child("track", raw.Name)
	track := &timeline.Track{
		Kind:        kind,
		Name:        raw.Name,
		Locked:      parseBool(raw.Locked, false),
		Enabled:     parseBool(raw.Enabled, true),
		TrackNumber: raw.TrackNumber,
		Format:      translateFormat(raw.Format),
	}
	for i := range raw.Items {
		item := raw.Items[i]
		switch {
		case item.Clip != nil:
			track.Items = append(track.Items, st.translateClip(item.Clip, loc))
		case item.Transition != nil:
			track.Items = append(track.Items, st.translateTransition(item.Transition, loc))
		}
	}
	return track
}

func (st *decodeState) translateClip(raw *rawClipItem, parent *location) *timeline.Item {
	loc := parent.childNamed("clipitem", raw.Name, raw.ID)

	clip := &timeline.Item{
		Kind:         timeline.KindClip,
		ID:           raw.ID,
		Name:         raw.Name,
		Start:        raw.Start,
		End:          raw.End,
		In:           raw.In,
		Out:          raw.Out,
		Duration:     raw.Duration,
		Enabled:      parseBool(raw.Enabled, true),
		MasterClipID: raw.MasterClipID,
	}
	clip.Rate = st.rateAt(raw.Rate, loc)

	if master, ok := st.masters[raw.MasterClipID]; ok {
		if clip.Rate.Zero() {
			clip.Rate = master.rate
		}
		if clip.Duration == 0 {
			clip.Duration = master.duration
		}
	}

	if !clip.Rate.Zero() && clip.Rate.FPS() != st.seq.Rate.FPS() {
		st.log.Error("frame rate mismatch",
			"location", loc.String(),
			"clip_fps", clip.Rate.FPS(),
			"sequence_fps", st.seq.Rate.FPS())
	}

	if raw.File != nil {
		clip.File = st.registerFile(raw.File, loc)
	}

	for i := range raw.Links {
		st.recordLinkGroup(&raw.Links[i])
	}
	return clip
}

// recordLinkGroup folds one link block into the sequence's groups. A block
// whose refs include an already-grouped clip extends that clip's group;
// otherwise it opens a fresh group in first-appearance order.
func (st *decodeState) recordLinkGroup(raw *rawLink) {
	if len(raw.ClipRefs) == 0 {
		return
	}
	var group *timeline.LinkGroup
	for _, ref := range raw.ClipRefs {
		if existing := st.seq.LinkGroupFor(ref); existing != nil {
			group = existing
			break
		}
	}
	if group == nil {
		group = &timeline.LinkGroup{}
		st.seq.Links = append(st.seq.Links, group)
	}
	for _, ref := range raw.ClipRefs {
		group.Add(ref)
	}
}

func (st *decodeState) translateTransition(raw *rawTransitionItem, parent *location) *timeline.Item {
	loc := parent.child("transitionitem", raw.Name)
	return &timeline.Item{
		Kind:      timeline.KindTransition,
		Name:      raw.Name,
		Start:     raw.Start,
		End:       raw.End,
		Enabled:   true,
		Alignment: timeline.Alignment(raw.Alignment),
		Rate:      st.rateAt(raw.Rate, loc),
	}
}

// registerFile translates a file element and returns the registry's
// canonical entry for its id, so clips sharing an id share one ref.
func (st *decodeState) registerFile(raw *rawFile, parent *location) *timeline.FileRef {
	loc := parent.childNamed("file", raw.Name, raw.ID)

	ref := &timeline.FileRef{
		ID:       raw.ID,
		Name:     raw.Name,
		PathURL:  NormalizePathURL(raw.PathURL),
		Duration: raw.Duration,
		Rate:     st.rateAt(raw.Rate, loc),
	}
	if raw.Media != nil {
		var merged rawFormat
		if raw.Media.Video != nil && raw.Media.Video.Characteristics != nil {
			merged = *raw.Media.Video
		} else if raw.Media.Audio != nil && raw.Media.Audio.Characteristics != nil {
			merged = *raw.Media.Audio
		}
		ref.Characteristics = charFromRaw(merged.Characteristics)
	}

	if !ref.Usable() {
		if stored := st.reg.Resolve(ref.ID); stored.Usable() {
			return stored
		}
		st.log.Warn("file reference has neither name nor path", "location", loc.String())
	}
	return st.reg.Register(ref)
}

// rateAt translates an optional rate element. An element that is present but
// carries no usable timebase is reported on the logger before decoding
// continues with the zero rate; only the sequence-level rate is structural.
func (st *decodeState) rateAt(raw *rawRate, loc *location) fps.Rate {
	if raw == nil {
		return fps.Rate{}
	}
	if raw.Timebase < 1 {
		st.log.Error("unusable frame rate", "location", loc.String(), "err", fps.ErrUnspecified)
		return fps.Rate{}
	}
	return translateRate(raw)
}

func translateRate(raw *rawRate) fps.Rate {
	if raw == nil {
		return fps.Rate{}
	}
	return fps.Rate{Timebase: raw.Timebase, NTSC: parseBool(raw.NTSC, false)}
}

func translateFormat(raw *rawFormat) *timeline.SampleCharacteristics {
	if raw == nil {
		return nil
	}
	return charFromRaw(raw.Characteristics)
}

func charFromRaw(raw *rawSampleCharacteristics) *timeline.SampleCharacteristics {
	if raw == nil {
		return nil
	}
	chars := timeline.SampleCharacteristics{
		Width:      raw.Width,
		Height:     raw.Height,
		Depth:      raw.Depth,
		SampleRate: raw.SampleRate,
	}
	if chars.Empty() {
		return nil
	}
	return &chars
}
