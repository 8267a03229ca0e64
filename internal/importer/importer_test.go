package importer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"slate/internal/config"
	"slate/internal/fps"
	"slate/internal/importer"
	"slate/internal/media/probe"
	"slate/internal/scene"
	"slate/internal/services"
	"slate/internal/services/aafconv"
)

const importDoc = `<?xml version="1.0" encoding="utf-8"?>
<xmeml version="1.0">
  <sequence>
    <name>cut</name>
    <duration>84</duration>
    <rate>
      <timebase>24</timebase>
      <ntsc>FALSE</ntsc>
    </rate>
    <timecode>
      <rate>
        <timebase>24</timebase>
        <ntsc>FALSE</ntsc>
      </rate>
      <string>01:00:00:00</string>
    </timecode>
    <media>
      <video>
        <track>
          <locked>FALSE</locked>
          <enabled>TRUE</enabled>
          <trackNumber>1</trackNumber>
          <clipitem id="c1">
            <name>shot_010.mov</name>
            <duration>48</duration>
            <enabled>TRUE</enabled>
            <start>0</start>
            <end>-1</end>
            <in>0</in>
            <out>48</out>
            <file id="f1">
              <pathurl>file://localhost/media/shot%20010.mov</pathurl>
              <name>shot_010.mov</name>
              <duration>48</duration>
            </file>
            <link>
              <linkclipref>c1</linkclipref>
              <linkclipref>a1</linkclipref>
            </link>
          </clipitem>
          <transitionitem>
            <name>Cross Dissolve</name>
            <start>36</start>
            <end>48</end>
            <alignment>center</alignment>
          </transitionitem>
          <clipitem id="c2">
            <name>shot_020.mov</name>
            <duration>48</duration>
            <enabled>FALSE</enabled>
            <start>-1</start>
            <end>84</end>
            <in>0</in>
            <out>48</out>
            <file id="f1"/>
          </clipitem>
        </track>
      </video>
      <audio>
        <track>
          <clipitem id="a1">
            <name>dialogue.wav</name>
            <duration>84</duration>
            <enabled>TRUE</enabled>
            <start>0</start>
            <end>84</end>
            <in>0</in>
            <out>84</out>
            <link>
              <linkclipref>c1</linkclipref>
              <linkclipref>a1</linkclipref>
            </link>
          </clipitem>
        </track>
      </audio>
    </media>
  </sequence>
</xmeml>
`

type fakeProbe struct{}

func (fakeProbe) Run(context.Context, string, []string) ([]byte, error) {
	return []byte(`{
        "streams": [
            {"index": 0, "codec_type": "video", "nb_frames": "120", "width": 1920, "height": 1080}
        ],
        "format": {"format_name": "mov"}
    }`), nil
}

type failingProbe struct{}

func (failingProbe) Run(context.Context, string, []string) ([]byte, error) {
	return nil, errors.New("probe exploded")
}

type copyDocExecutor struct {
	doc string
}

func (e copyDocExecutor) Run(_ context.Context, _ string, args []string) error {
	return os.WriteFile(aafconv.OutputPath(args[0], args[1]), []byte(e.doc), 0o644)
}

type harness struct {
	imp   *importer.Importer
	store *scene.Store
	dir   string
}

func newHarness(t *testing.T, converter *aafconv.Client, runner probe.Runner) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SceneDB = filepath.Join(dir, "scene.db")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.TempDir = filepath.Join(dir, "tmp")

	store, err := scene.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if runner == nil {
		runner = fakeProbe{}
	}
	prober := probe.New("ffprobe", 1, probe.WithRunner(runner))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{
		imp:   importer.New(cfg, store, converter, prober, log),
		store: store,
		dir:   dir,
	}
}

func (h *harness) writeInput(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestImportCreatesSceneEntities(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	path := h.writeInput(t, "cut.xml", importDoc)

	if err := h.imp.Run(ctx, path, importer.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	shots, err := h.store.Shots(ctx)
	if err != nil {
		t.Fatalf("Shots: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("expected 2 shots, got %d", len(shots))
	}

	first, second := shots[0], shots[1]
	if first.Name != "shot_010" || second.Name != "shot_020" {
		t.Fatalf("shot names: %q %q", first.Name, second.Name)
	}
	if first.SequenceStart != 0 || first.SequenceEnd != 41 {
		t.Errorf("first shot span: %d..%d", first.SequenceStart, first.SequenceEnd)
	}
	if second.SequenceStart != 42 || second.SequenceEnd != 83 {
		t.Errorf("second shot span: %d..%d", second.SequenceStart, second.SequenceEnd)
	}
	if first.ClipZeroOffset != 0 || second.ClipZeroOffset != 6 {
		t.Errorf("zero offsets: %d %d", first.ClipZeroOffset, second.ClipZeroOffset)
	}
	if first.Mute || !second.Mute {
		t.Errorf("mute flags: %v %v", first.Mute, second.Mute)
	}
	if first.Camera != "shot_010_cam" {
		t.Errorf("camera: %q", first.Camera)
	}
	if first.MediaPath != "/media/shot 010.mov" {
		t.Errorf("media path: %q", first.MediaPath)
	}
	if first.ClipDuration != 120 || !first.ClipValid {
		t.Errorf("probed duration: %d valid=%v", first.ClipDuration, first.ClipValid)
	}
	if first.Width != 1920 || first.Height != 1080 {
		t.Errorf("resolution: %dx%d", first.Width, first.Height)
	}

	clips, err := h.store.AudioClips(ctx)
	if err != nil {
		t.Fatalf("AudioClips: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("expected 1 audio clip, got %d", len(clips))
	}
	audio := clips[0]
	if audio.Name != "dialogue" || audio.Order != 1 {
		t.Errorf("audio identity: %q order %d", audio.Name, audio.Order)
	}
	if audio.SequenceStart != 0 || audio.SequenceEnd != 84 {
		t.Errorf("audio span kept resolved end: %d..%d", audio.SequenceStart, audio.SequenceEnd)
	}
	if audio.Bound {
		t.Error("audio without a file should stay unbound")
	}

	if first.LinkedAudioID != audio.ID {
		t.Errorf("link: shot %d points at audio %d, want %d", first.ID, first.LinkedAudioID, audio.ID)
	}

	rate, err := h.store.GlobalRate(ctx)
	if err != nil {
		t.Fatalf("GlobalRate: %v", err)
	}
	if rate != (fps.Rate{Timebase: 24}) {
		t.Errorf("global rate: %+v", rate)
	}
	tc, mayaStart, err := h.store.ProductionTimecode(ctx)
	if err != nil {
		t.Fatalf("ProductionTimecode: %v", err)
	}
	if tc.String() != "01:00:00:00" || mayaStart != 0 {
		t.Errorf("timecode %s at maya start %d", tc, mayaStart)
	}

	if _, err := os.Stat(filepath.Join(h.dir, "cut_error.log")); !os.IsNotExist(err) {
		t.Errorf("clean import should remove the error sidecar: %v", err)
	}
}

func TestImportStartFrameShift(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	path := h.writeInput(t, "cut.xml", importDoc)

	opts := importer.Options{UseStartFrame: true, StartFrame: 101}
	if err := h.imp.Run(ctx, path, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	shots, err := h.store.Shots(ctx)
	if err != nil {
		t.Fatalf("Shots: %v", err)
	}
	if shots[0].SequenceStart != 101 || shots[0].SequenceEnd != 142 {
		t.Errorf("shifted first shot: %d..%d", shots[0].SequenceStart, shots[0].SequenceEnd)
	}
	clips, err := h.store.AudioClips(ctx)
	if err != nil {
		t.Fatalf("AudioClips: %v", err)
	}
	if clips[0].SequenceStart != 101 {
		t.Errorf("shifted audio start: %d", clips[0].SequenceStart)
	}
}

func TestImportProbeFailureWarnsAndContinues(t *testing.T) {
	h := newHarness(t, nil, failingProbe{})
	ctx := context.Background()
	path := h.writeInput(t, "cut.xml", importDoc)

	if err := h.imp.Run(ctx, path, importer.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	shots, err := h.store.Shots(ctx)
	if err != nil {
		t.Fatalf("Shots: %v", err)
	}
	if shots[0].ClipDuration != 0 || shots[0].ClipValid {
		t.Errorf("unprobed clip: duration %d valid=%v", shots[0].ClipDuration, shots[0].ClipValid)
	}
}

func TestImportUnknownExtension(t *testing.T) {
	h := newHarness(t, nil, nil)
	err := h.imp.Run(context.Background(), filepath.Join(h.dir, "cut.edl"), importer.Options{})
	if !errors.Is(err, services.ErrTranslatorUnavailable) {
		t.Fatalf("expected ErrTranslatorUnavailable, got %v", err)
	}
	shots, qerr := h.store.Shots(context.Background())
	if qerr != nil {
		t.Fatalf("Shots: %v", qerr)
	}
	if len(shots) != 0 {
		t.Fatalf("scene should be untouched, found %d shots", len(shots))
	}
}

func TestImportAAFWithoutConverter(t *testing.T) {
	h := newHarness(t, nil, nil)
	err := h.imp.Run(context.Background(), filepath.Join(h.dir, "cut.aaf"), importer.Options{})
	if !errors.Is(err, services.ErrTranslatorUnavailable) {
		t.Fatalf("expected ErrTranslatorUnavailable, got %v", err)
	}
}

func TestImportAAFThroughConverter(t *testing.T) {
	converter, err := aafconv.New("aafconvert", 5, aafconv.WithExecutor(copyDocExecutor{doc: importDoc}))
	if err != nil {
		t.Fatalf("aafconv.New: %v", err)
	}
	h := newHarness(t, converter, nil)
	ctx := context.Background()
	path := h.writeInput(t, "cut.aaf", "not really an aaf")

	if err := h.imp.Run(ctx, path, importer.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	shots, err := h.store.Shots(ctx)
	if err != nil {
		t.Fatalf("Shots: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("expected 2 shots from converted document, got %d", len(shots))
	}
}

func TestImportErrorsRaiseImportFailed(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<xmeml version="1.0">
  <sequence>
    <name>bad</name>
    <duration>10</duration>
    <rate><timebase>24</timebase><ntsc>FALSE</ntsc></rate>
    <media>
      <video>
        <track>
          <clipitem id="c1">
            <name>clip.mov</name>
            <rate><timebase>30</timebase><ntsc>FALSE</ntsc></rate>
            <enabled>TRUE</enabled>
            <start>0</start>
            <end>10</end>
            <in>0</in>
            <out>10</out>
          </clipitem>
        </track>
      </video>
    </media>
  </sequence>
</xmeml>
`
	h := newHarness(t, nil, nil)
	path := h.writeInput(t, "bad.xml", doc)

	err := h.imp.Run(context.Background(), path, importer.Options{})
	if !errors.Is(err, services.ErrImportFailed) {
		t.Fatalf("expected ErrImportFailed, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(h.dir, "bad_error.log")); statErr != nil {
		t.Errorf("error sidecar should survive a failed import: %v", statErr)
	}
}

func TestImportNonASCIINameFallsBack(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<xmeml version="1.0">
  <sequence>
    <name>jp</name>
    <duration>10</duration>
    <rate><timebase>24</timebase><ntsc>FALSE</ntsc></rate>
    <media>
      <video>
        <track>
          <clipitem id="c1">
            <name>&#12471;&#12519;&#12483;&#12488;.mov</name>
            <enabled>TRUE</enabled>
            <start>0</start>
            <end>10</end>
            <in>0</in>
            <out>10</out>
          </clipitem>
        </track>
      </video>
    </media>
  </sequence>
</xmeml>
`
	h := newHarness(t, nil, nil)
	path := h.writeInput(t, "jp.xml", doc)

	if err := h.imp.Run(context.Background(), path, importer.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	shots, err := h.store.Shots(context.Background())
	if err != nil {
		t.Fatalf("Shots: %v", err)
	}
	if len(shots) != 1 || shots[0].Name != "shot" {
		t.Fatalf("expected default shot name, got %+v", shots)
	}
}
