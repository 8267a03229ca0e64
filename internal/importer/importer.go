// Package importer drives an EDL document into the scene: it decodes the
// XMEML (converting AAF input first), resolves transitions, and materializes
// shots, audio nodes, and links through the scene gateway.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"slate/internal/config"
	"slate/internal/fileutil"
	"slate/internal/logging"
	"slate/internal/media/probe"
	"slate/internal/scene"
	"slate/internal/services"
	"slate/internal/services/aafconv"
	"slate/internal/textutil"
	"slate/internal/timeline"
	"slate/internal/xmeml"
)

// Options selects import behavior beyond the input path.
type Options struct {
	// UseStartFrame shifts every created entity so the earliest one lands
	// on StartFrame.
	UseStartFrame bool
	StartFrame    int
}

// Importer owns one import run's collaborators.
type Importer struct {
	cfg       *config.Config
	scene     scene.Gateway
	converter *aafconv.Client
	prober    *probe.Client
	log       *slog.Logger
}

// New builds an importer. The converter may be nil when no AAF translator is
// configured; AAF input then fails with ErrTranslatorUnavailable.
func New(cfg *config.Config, gateway scene.Gateway, converter *aafconv.Client, prober *probe.Client, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{cfg: cfg, scene: gateway, converter: converter, prober: prober, log: log}
}

// Run imports the document at path into the scene. Element-level problems
// are recorded in a sidecar error log next to the input; if any were
// recorded the run fails with ErrImportFailed after the sidecar is closed.
func (imp *Importer) Run(ctx context.Context, path string, opts Options) error {
	sidecar, err := logging.NewSidecar(path, imp.log)
	if err != nil {
		return err
	}
	runErr := imp.run(ctx, path, opts, sidecar.Logger())

	recorded := sidecar.Errors()
	sidecarPath := sidecar.Path()
	closeErr := sidecar.Close()

	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	if recorded > 0 {
		return services.Wrap(services.ErrImportFailed, "import", "finish",
			fmt.Sprintf("%d errors recorded in %s", recorded, sidecarPath), nil)
	}
	return nil
}

func (imp *Importer) run(ctx context.Context, path string, opts Options, log *slog.Logger) error {
	seq, err := imp.loadSequence(ctx, path, log)
	if err != nil {
		return err
	}
	if err := imp.applyRate(ctx, seq, log); err != nil {
		return err
	}
	if seq.Timecode != nil {
		if err := imp.scene.SetProductionTimecode(ctx, *seq.Timecode, 0); err != nil {
			return err
		}
	}

	created := newCreatedSet()

	// Reversed document order so the file's top evaluation priority ends up
	// stacked on top in the scene.
	for i := len(seq.VideoTracks) - 1; i >= 0; i-- {
		track := seq.VideoTracks[i]
		number := track.TrackNumber
		if number <= 0 {
			number = i + 1
		}
		if err := imp.importVideoTrack(ctx, track, number, created, log); err != nil {
			return err
		}
	}
	for i, track := range seq.AudioTracks {
		number := track.TrackNumber
		if number <= 0 {
			number = i + 1
		}
		if err := imp.importAudioTrack(ctx, track, number, created, log); err != nil {
			return err
		}
	}

	if err := imp.applyLinks(ctx, seq, created); err != nil {
		return err
	}

	if opts.UseStartFrame && created.any {
		offset := created.minStart - opts.StartFrame
		if offset != 0 {
			if err := imp.scene.ShiftAll(ctx, -offset); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadSequence dispatches on the input extension. AAF goes through the
// external converter into a temp directory first; everything happens before
// any scene mutation.
func (imp *Importer) loadSequence(ctx context.Context, path string, log *slog.Logger) (*timeline.Sequence, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return imp.decodeFile(path, log)
	case ".aaf":
		return imp.convertAndDecode(ctx, path, log)
	default:
		return nil, services.Wrap(services.ErrTranslatorUnavailable, "import", "dispatch",
			fmt.Sprintf("no translator for %s", filepath.Ext(path)), nil)
	}
}

func (imp *Importer) convertAndDecode(ctx context.Context, path string, log *slog.Logger) (*timeline.Sequence, error) {
	if imp.converter == nil {
		return nil, services.Wrap(services.ErrTranslatorUnavailable, "import", "convert",
			"no AAF converter configured", nil)
	}
	destDir, err := os.MkdirTemp(imp.cfg.TempDir(), "aaf-")
	if err != nil {
		return nil, fmt.Errorf("create conversion dir: %w", err)
	}
	defer os.RemoveAll(destDir)

	handle, err := imp.converter.Submit(ctx, path, destDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTranslatorUnavailable, "import", "convert",
			"converter did not accept the job", err)
	}
	defer handle.Release()
	if err := handle.Await(); err != nil {
		return nil, err
	}
	return imp.decodeFile(aafconv.OutputPath(path, destDir), log)
}

func (imp *Importer) decodeFile(path string, log *slog.Logger) (*timeline.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return xmeml.NewDecoder(f, log).Decode()
}

func (imp *Importer) applyRate(ctx context.Context, seq *timeline.Sequence, log *slog.Logger) error {
	if seq.Rate.Zero() {
		log.Warn("sequence has no frame rate, using current frame rate")
		return nil
	}
	return imp.scene.SetGlobalRate(ctx, seq.Rate)
}

func (imp *Importer) importVideoTrack(ctx context.Context, track *timeline.Track, number int, created *createdSet, log *slog.Logger) error {
	res := timeline.Resolve(track)
	for i, item := range track.Items {
		if item.IsTransition() {
			continue
		}
		start, end := res.Starts[i], res.Ends[i]
		if end <= start {
			log.Warn("zero-length clip", "clip", item.Name, "start", start)
		}
		name := imp.nodeName(item.Name, "shot", log)
		shot := &scene.Shot{
			Name:           name,
			Track:          number,
			SequenceStart:  start,
			SequenceEnd:    end - 1,
			ClipZeroOffset: item.In + res.InAdjustments[i],
			Mute:           !item.Enabled,
			Camera:         name + "_cam",
			ClipSynced:     true,
			ClipOpacity:    1,
		}
		imp.attachMedia(ctx, shot, item.File, log)
		id, err := imp.scene.CreateShot(ctx, shot)
		if err != nil {
			return err
		}
		created.addShot(item.ID, id, start)
	}
	return nil
}

// attachMedia binds the clip's file to the shot: absolute path, queried
// frame count, and resolution if the document or the probe states one.
func (imp *Importer) attachMedia(ctx context.Context, shot *scene.Shot, ref *timeline.FileRef, log *slog.Logger) {
	if ref == nil || ref.PathURL == "" {
		return
	}
	shot.MediaPath = ref.PathURL
	if ref.Characteristics != nil {
		shot.Width = ref.Characteristics.Width
		shot.Height = ref.Characteristics.Height
	}
	if imp.prober == nil {
		return
	}
	result, err := imp.prober.Inspect(ctx, ref.PathURL)
	if err != nil {
		log.Warn(fmt.Sprintf("could not open %s: format not supported", ref.PathURL))
		return
	}
	frames, ok := result.VideoFrameCount()
	if !ok {
		log.Warn(fmt.Sprintf("could not open %s: format not supported", ref.PathURL))
		return
	}
	shot.ClipDuration = frames
	shot.ClipValid = true
	if shot.Width == 0 || shot.Height == 0 {
		if w, h, ok := result.Resolution(); ok {
			shot.Width, shot.Height = w, h
		}
	}
}

func (imp *Importer) importAudioTrack(ctx context.Context, track *timeline.Track, order int, created *createdSet, log *slog.Logger) error {
	res := timeline.Resolve(track)
	for i, item := range track.Items {
		if item.IsTransition() {
			continue
		}
		start, end := res.Starts[i], res.Ends[i]
		clip := &scene.AudioClip{
			Name:          imp.nodeName(item.Name, "audio", log),
			Order:         order,
			SequenceStart: start,
			SequenceEnd:   end,
			Offset:        item.In + res.InAdjustments[i],
			Mute:          !item.Enabled,
		}
		if item.File != nil && item.File.PathURL != "" {
			clip.FilePath = item.File.PathURL
			if fileutil.Exists(item.File.PathURL) {
				clip.Bound = true
			} else {
				log.Warn(fmt.Sprintf("could not open %s: leaving audio unbound", item.File.PathURL))
			}
		}
		id, err := imp.scene.CreateAudio(ctx, clip)
		if err != nil {
			return err
		}
		created.addAudio(item.ID, id, start)
	}
	return nil
}

func (imp *Importer) nodeName(clipName, fallback string, log *slog.Logger) string {
	name, ok := textutil.SceneName(clipName)
	if !ok {
		log.Warn("clip name is not representable in the scene, using default",
			"clip", clipName, "default", fallback)
		return fallback
	}
	if name == "" {
		return fallback
	}
	return name
}

// applyLinks maps each link group to the first video and first audio node it
// produced and links that pair. Extra members collapse to the first of each
// kind; groups missing either kind link nothing.
func (imp *Importer) applyLinks(ctx context.Context, seq *timeline.Sequence, created *createdSet) error {
	for _, group := range seq.Links {
		var shotID, audioID int64
		for _, clipID := range group.ClipIDs {
			if shotID == 0 {
				if id, ok := created.shots[clipID]; ok {
					shotID = id
					continue
				}
			}
			if audioID == 0 {
				if id, ok := created.audio[clipID]; ok {
					audioID = id
				}
			}
		}
		if shotID != 0 && audioID != 0 {
			if err := imp.scene.LinkAudio(ctx, shotID, audioID); err != nil {
				return err
			}
		}
	}
	return nil
}

// createdSet remembers which scene entity each clip id produced and the
// earliest sequence start seen, for link resolution and start-frame shifts.
type createdSet struct {
	shots    map[string]int64
	audio    map[string]int64
	minStart int
	any      bool
}

func newCreatedSet() *createdSet {
	return &createdSet{shots: make(map[string]int64), audio: make(map[string]int64)}
}

func (c *createdSet) addShot(clipID string, id int64, start int) {
	if clipID != "" {
		if _, exists := c.shots[clipID]; !exists {
			c.shots[clipID] = id
		}
	}
	c.observe(start)
}

func (c *createdSet) addAudio(clipID string, id int64, start int) {
	if clipID != "" {
		if _, exists := c.audio[clipID]; !exists {
			c.audio[clipID] = id
		}
	}
	c.observe(start)
}

func (c *createdSet) observe(start int) {
	if !c.any || start < c.minStart {
		c.minStart = start
	}
	c.any = true
}
