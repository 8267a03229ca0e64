// Package exporter drives the scene out to an XMEML document: shots become
// video clip items grouped by track, audio nodes become audio clip items
// grouped by order, and linked pairs become link groups.
package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"slate/internal/config"
	"slate/internal/fileutil"
	"slate/internal/fps"
	"slate/internal/scene"
	"slate/internal/services"
	"slate/internal/timecode"
	"slate/internal/timeline"
	"slate/internal/xmeml"
)

// Exporter owns one export run's collaborators.
type Exporter struct {
	cfg   *config.Config
	scene scene.Gateway
	log   *slog.Logger
}

// New builds an exporter.
func New(cfg *config.Config, gateway scene.Gateway, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{cfg: cfg, scene: gateway, log: log}
}

// Run writes the scene as an XMEML document at path. With allowRefresh, shots
// whose cached clips are stale or invisible are refreshed first.
func (e *Exporter) Run(ctx context.Context, path string, allowRefresh bool) error {
	shots, err := e.scene.Shots(ctx)
	if err != nil {
		return err
	}
	if len(shots) == 0 {
		return services.Wrap(services.ErrValidation, "export", "gather",
			"scene holds no shots", nil)
	}

	if allowRefresh {
		refreshed := false
		for _, shot := range shots {
			if !shot.ClipSynced || shot.ClipOpacity <= 0 {
				if err := e.scene.RefreshShot(ctx, shot.ID); err != nil {
					return err
				}
				refreshed = true
			}
		}
		if refreshed {
			if shots, err = e.scene.Shots(ctx); err != nil {
				return err
			}
		}
	}

	audio, err := e.scene.AudioClips(ctx)
	if err != nil {
		return err
	}

	rate, err := e.scene.GlobalRate(ctx)
	if err != nil {
		return err
	}
	if err := rate.Validate(); err != nil {
		return services.Wrap(services.ErrRateUnspecified, "export", "frame rate", "", err)
	}
	if _, ok := rate.Name(); !ok {
		return services.Wrap(services.ErrUnsupportedRate, "export", "frame rate",
			fmt.Sprintf("timebase %d has no named rate", rate.Timebase), nil)
	}

	tc, err := e.sequenceTimecode(ctx)
	if err != nil {
		return err
	}

	seq := e.buildSequence(sequenceName(path), shots, audio, rate, tc)

	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		return xmeml.NewEncoder(w, e.log).Encode(seq)
	})
}

func sequenceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sequenceTimecode reads the production start timecode pinned at frame zero.
// When the scene start frame is non-zero the stored value is temporarily
// re-based, read back, and restored, so the exported timecode is right no
// matter where the scene starts.
func (e *Exporter) sequenceTimecode(ctx context.Context) (timecode.Timecode, error) {
	tc, startFrame, err := e.scene.ProductionTimecode(ctx)
	if err != nil {
		return timecode.Timecode{}, err
	}
	if startFrame == 0 {
		return tc, nil
	}
	rebased := tc.ShiftFrames(-startFrame)
	if err := e.scene.SetProductionTimecode(ctx, rebased, 0); err != nil {
		return timecode.Timecode{}, err
	}
	read, _, readErr := e.scene.ProductionTimecode(ctx)
	restoreErr := e.scene.SetProductionTimecode(ctx, tc, startFrame)
	if readErr != nil {
		return timecode.Timecode{}, readErr
	}
	if restoreErr != nil {
		return timecode.Timecode{}, restoreErr
	}
	return read, nil
}

func (e *Exporter) buildSequence(name string, shots []*scene.Shot, audio []*scene.AudioClip, rate fps.Rate, tc timecode.Timecode) *timeline.Sequence {
	first, last := shots[0].SequenceStart, shots[0].SequenceEnd
	for _, shot := range shots[1:] {
		if shot.SequenceStart < first {
			first = shot.SequenceStart
		}
		if shot.SequenceEnd > last {
			last = shot.SequenceEnd
		}
	}

	seq := &timeline.Sequence{
		Name:     name,
		Duration: last + 1 - first,
		Rate:     rate,
		Timecode: &tc,
		Format:   sharedFormat(shots),
	}

	files := newFileSet()
	seq.VideoTracks = e.videoTracks(shots, rate, files)
	seq.AudioTracks = e.audioTracks(audio, rate, files)
	seq.Links = linkGroups(shots, audio)
	return seq
}

// sharedFormat returns a sequence-level format only when every shot agrees
// on a known resolution.
func sharedFormat(shots []*scene.Shot) *timeline.SampleCharacteristics {
	width, height := shots[0].Width, shots[0].Height
	if width <= 0 || height <= 0 {
		return nil
	}
	for _, shot := range shots[1:] {
		if shot.Width != width || shot.Height != height {
			return nil
		}
	}
	return &timeline.SampleCharacteristics{Width: width, Height: height}
}

// videoTracks groups shots by track attribute and emits them highest track
// number first, matching the stacking order the file format expects.
func (e *Exporter) videoTracks(shots []*scene.Shot, rate fps.Rate, files *fileSet) []*timeline.Track {
	byTrack := make(map[int][]*scene.Shot)
	for _, shot := range shots {
		byTrack[shot.Track] = append(byTrack[shot.Track], shot)
	}
	numbers := make([]int, 0, len(byTrack))
	for number := range byTrack {
		numbers = append(numbers, number)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))

	tracks := make([]*timeline.Track, 0, len(numbers))
	for _, number := range numbers {
		group := byTrack[number]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].SequenceStart < group[j].SequenceStart
		})

		track := &timeline.Track{
			Kind:        timeline.TrackVideo,
			TrackNumber: number,
			Locked:      true,
			Enabled:     true,
		}
		for _, shot := range group {
			track.Locked = track.Locked && shot.Locked
			track.Enabled = track.Enabled && !shot.Mute
			track.Items = append(track.Items, e.videoItem(shot, rate, files))
		}
		tracks = append(tracks, track)
	}
	return tracks
}

func (e *Exporter) videoItem(shot *scene.Shot, rate fps.Rate, files *fileSet) *timeline.Item {
	// Scene ends are inclusive; the document's are exclusive.
	start, end := shot.SequenceStart, shot.SequenceEnd+1
	duration := shot.ClipDuration
	if duration <= 0 {
		duration = end - start
	}
	return &timeline.Item{
		Kind:     timeline.KindClip,
		ID:       shot.Name,
		Name:     shot.Name,
		Start:    start,
		End:      end,
		In:       shot.ClipZeroOffset,
		Out:      shot.ClipZeroOffset + (end - start),
		Duration: duration,
		Enabled:  !shot.Mute,
		Rate:     rate,
		File:     files.ref(shot.MediaPath, shot.Name, shot.ClipDuration, rate),
	}
}

// audioTracks emits one track per order attribute, ascending.
func (e *Exporter) audioTracks(clips []*scene.AudioClip, rate fps.Rate, files *fileSet) []*timeline.Track {
	byOrder := make(map[int][]*scene.AudioClip)
	for _, clip := range clips {
		byOrder[clip.Order] = append(byOrder[clip.Order], clip)
	}
	orders := make([]int, 0, len(byOrder))
	for order := range byOrder {
		orders = append(orders, order)
	}
	sort.Ints(orders)

	tracks := make([]*timeline.Track, 0, len(orders))
	for _, order := range orders {
		group := byOrder[order]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].SequenceStart < group[j].SequenceStart
		})

		track := &timeline.Track{
			Kind:        timeline.TrackAudio,
			TrackNumber: order,
			Enabled:     true,
		}
		for _, clip := range group {
			track.Enabled = track.Enabled && !clip.Mute
			// Audio spans are stored in document convention already.
			span := clip.SequenceEnd - clip.SequenceStart
			track.Items = append(track.Items, &timeline.Item{
				Kind:     timeline.KindClip,
				ID:       clip.Name,
				Name:     clip.Name,
				Start:    clip.SequenceStart,
				End:      clip.SequenceEnd,
				In:       clip.Offset,
				Out:      clip.Offset + span,
				Duration: span,
				Enabled:  !clip.Mute,
				Rate:     rate,
				File:     files.ref(clip.FilePath, clip.Name, span, rate),
			})
		}
		tracks = append(tracks, track)
	}
	return tracks
}

func linkGroups(shots []*scene.Shot, audio []*scene.AudioClip) []*timeline.LinkGroup {
	audioByID := make(map[int64]*scene.AudioClip, len(audio))
	for _, clip := range audio {
		audioByID[clip.ID] = clip
	}
	var groups []*timeline.LinkGroup
	for _, shot := range shots {
		if shot.LinkedAudioID == 0 {
			continue
		}
		clip, ok := audioByID[shot.LinkedAudioID]
		if !ok {
			continue
		}
		group := &timeline.LinkGroup{}
		group.Add(shot.Name)
		group.Add(clip.Name)
		groups = append(groups, group)
	}
	return groups
}

// fileSet assigns file ids, reusing one ref per media path so a shared file
// is defined once in the output.
type fileSet struct {
	byPath map[string]*timeline.FileRef
	next   int
}

func newFileSet() *fileSet {
	return &fileSet{byPath: make(map[string]*timeline.FileRef)}
}

// ref returns the file reference for a path. Clips without media still get
// a named ref so the emitted element stays structurally valid.
func (s *fileSet) ref(path, nodeName string, duration int, rate fps.Rate) *timeline.FileRef {
	if path != "" {
		if existing, ok := s.byPath[path]; ok {
			return existing
		}
	}
	s.next++
	ref := &timeline.FileRef{
		ID:       fmt.Sprintf("file-%d", s.next),
		Name:     fileName(path, nodeName),
		PathURL:  path,
		Duration: duration,
		Rate:     rate,
	}
	if path != "" {
		s.byPath[path] = ref
	}
	return ref
}

func fileName(path, nodeName string) string {
	if path != "" {
		return filepath.Base(path)
	}
	return nodeName
}
