// Package timeline is the in-memory sequence model shared by the XMEML codec
// and the scene drivers: sequences of video and audio tracks, whose items are
// clips or transitions, referencing external media files by id.
package timeline

import (
	"slate/internal/fps"
	"slate/internal/timecode"
)

// TrackKind distinguishes the two track lists a sequence carries.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Alignment describes where a transition sits relative to its neighbors.
type Alignment string

const (
	AlignUnspecified Alignment = ""
	AlignCenter      Alignment = "center"
	AlignStart       Alignment = "start"
	AlignEnd         Alignment = "end"
	AlignStartBlack  Alignment = "start-black"
	AlignEndBlack    Alignment = "end-black"
)

// Sentinel marks a clip boundary owned by an adjacent transition. The
// resolver replaces it with the transition's computed boundary.
const Sentinel = -1

// SampleCharacteristics carries whichever media format fields a document
// chose to state. Zero values mean unset.
type SampleCharacteristics struct {
	Width      int
	Height     int
	Depth      int
	SampleRate int
}

// Empty reports whether no field is set.
func (s SampleCharacteristics) Empty() bool {
	return s == SampleCharacteristics{}
}

// FileRef identifies an external media file. Refs are shared by id across a
// document; clips hold the registry's canonical entry.
type FileRef struct {
	ID              string
	Name            string
	PathURL         string
	Duration        int
	Rate            fps.Rate
	Characteristics *SampleCharacteristics
}

// Usable reports whether the ref identifies anything at all. A ref with
// neither name nor path cannot be bound in a scene.
func (f *FileRef) Usable() bool {
	return f != nil && (f.Name != "" || f.PathURL != "")
}

// ItemKind tags the variant held by an Item.
type ItemKind int

const (
	KindClip ItemKind = iota
	KindTransition
)

// Item is one entry in a track: a clip, or a transition between the clips
// beside it. Transitions use the clip fields for their visible extent and
// additionally carry an Alignment.
type Item struct {
	Kind         ItemKind
	ID           string
	Name         string
	Start        int
	End          int
	In           int
	Out          int
	Duration     int
	Enabled      bool
	Rate         fps.Rate
	File         *FileRef
	MasterClipID string
	Alignment    Alignment
}

// IsTransition reports whether the item is the transition variant.
func (i *Item) IsTransition() bool {
	return i != nil && i.Kind == KindTransition
}

// Track is an ordered run of items of one kind. Order follows document order
// on read and ascending start on write.
type Track struct {
	Kind        TrackKind
	Name        string
	Locked      bool
	Enabled     bool
	TrackNumber int
	Format      *SampleCharacteristics
	Items       []*Item
}

// Clips returns the non-transition items in track order.
func (t *Track) Clips() []*Item {
	clips := make([]*Item, 0, len(t.Items))
	for _, item := range t.Items {
		if !item.IsTransition() {
			clips = append(clips, item)
		}
	}
	return clips
}

// LinkGroup is an ordered set of clip ids to be linked together in the scene.
type LinkGroup struct {
	ClipIDs []string
}

// Contains reports membership of a clip id.
func (g *LinkGroup) Contains(id string) bool {
	for _, existing := range g.ClipIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// Add appends a clip id unless already present.
func (g *LinkGroup) Add(id string) {
	if id == "" || g.Contains(id) {
		return
	}
	g.ClipIDs = append(g.ClipIDs, id)
}

// Sequence is the top-level container of tracks and timing.
type Sequence struct {
	Name        string
	Duration    int
	Rate        fps.Rate
	Timecode    *timecode.Timecode
	Format      *SampleCharacteristics
	VideoTracks []*Track
	AudioTracks []*Track
	Links       []*LinkGroup
}

// LinkGroupFor returns the group already holding the clip id, if any.
func (s *Sequence) LinkGroupFor(id string) *LinkGroup {
	for _, group := range s.Links {
		if group.Contains(id) {
			return group
		}
	}
	return nil
}
