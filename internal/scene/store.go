package scene

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"slate/internal/config"
	"slate/internal/fps"
	"slate/internal/services"
	"slate/internal/timecode"
)

// Store manages scene persistence backed by SQLite. The database is guarded
// by a file lock held for the store's lifetime; two slate processes never
// mutate one scene concurrently.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open connects to the scene database, acquiring its lock and applying the
// schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := cfg.Paths.SceneDB

	lock := flock.New(lockPath(dbPath))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scene lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("scene database %s is in use by another process", dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open scene db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath, lock: lock}, nil
}

func lockPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "."+filepath.Base(dbPath)+".lock")
}

// Close releases the database and its lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		_ = os.Remove(s.lock.Path())
	}
	return firstErr
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// CreateShot inserts a shot and returns its id.
func (s *Store) CreateShot(ctx context.Context, shot *Shot) (int64, error) {
	now := timestamp()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO shots (
            name, track, sequence_start, sequence_end, clip_zero_offset,
            mute, locked, camera, media_path, width, height, clip_duration,
            clip_valid, clip_synced, clip_opacity, linked_audio_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shot.Name, shot.Track, shot.SequenceStart, shot.SequenceEnd, shot.ClipZeroOffset,
		boolInt(shot.Mute), boolInt(shot.Locked), shot.Camera, shot.MediaPath, shot.Width, shot.Height, shot.ClipDuration,
		boolInt(shot.ClipValid), boolInt(shot.ClipSynced), shot.ClipOpacity, shot.LinkedAudioID,
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert shot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("shot id: %w", err)
	}
	shot.ID = id
	return id, nil
}

// CreateAudio inserts an audio clip and returns its id.
func (s *Store) CreateAudio(ctx context.Context, clip *AudioClip) (int64, error) {
	now := timestamp()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO audio_clips (
            name, track_order, sequence_start, sequence_end, offset,
            mute, file_path, bound, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.Name, clip.Order, clip.SequenceStart, clip.SequenceEnd, clip.Offset,
		boolInt(clip.Mute), clip.FilePath, boolInt(clip.Bound), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert audio clip: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("audio clip id: %w", err)
	}
	clip.ID = id
	return id, nil
}

// Shots returns every shot ordered by track then sequence start.
func (s *Store) Shots(ctx context.Context) ([]*Shot, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, track, sequence_start, sequence_end, clip_zero_offset,
               mute, locked, camera, media_path, width, height, clip_duration,
               clip_valid, clip_synced, clip_opacity, linked_audio_id,
               created_at, updated_at
        FROM shots ORDER BY track, sequence_start, id`)
	if err != nil {
		return nil, fmt.Errorf("query shots: %w", err)
	}
	defer rows.Close()

	var shots []*Shot
	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, shot)
	}
	return shots, rows.Err()
}

// AudioClips returns every audio clip ordered by track order then start.
func (s *Store) AudioClips(ctx context.Context) ([]*AudioClip, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, track_order, sequence_start, sequence_end, offset,
               mute, file_path, bound, created_at, updated_at
        FROM audio_clips ORDER BY track_order, sequence_start, id`)
	if err != nil {
		return nil, fmt.Errorf("query audio clips: %w", err)
	}
	defer rows.Close()

	var clips []*AudioClip
	for rows.Next() {
		clip := &AudioClip{}
		var mute, bound int
		var created, updated string
		if err := rows.Scan(
			&clip.ID, &clip.Name, &clip.Order, &clip.SequenceStart, &clip.SequenceEnd, &clip.Offset,
			&mute, &clip.FilePath, &bound, &created, &updated,
		); err != nil {
			return nil, fmt.Errorf("scan audio clip: %w", err)
		}
		clip.Mute = mute != 0
		clip.Bound = bound != 0
		clip.CreatedAt = parseTime(created)
		clip.UpdatedAt = parseTime(updated)
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// GlobalRate returns the scene's frame rate.
func (s *Store) GlobalRate(ctx context.Context) (fps.Rate, error) {
	settings, err := s.readSettings(ctx)
	if err != nil {
		return fps.Rate{}, err
	}
	return fps.Rate{Timebase: settings.RateTimebase, NTSC: settings.RateNTSC}, nil
}

// SetGlobalRate stores the scene frame rate. The rate must map onto the
// scene's named set; anything else fails with ErrUnsupportedRate.
func (s *Store) SetGlobalRate(ctx context.Context, rate fps.Rate) error {
	if err := rate.Validate(); err != nil {
		return services.Wrap(services.ErrRateUnspecified, "scene", "set frame rate", "", err)
	}
	if _, ok := rate.Name(); !ok {
		return services.Wrap(services.ErrUnsupportedRate, "scene", "set frame rate",
			fmt.Sprintf("timebase %d has no scene rate name", rate.Timebase), nil)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET rate_timebase = ?, rate_ntsc = ? WHERE id = 1`,
		rate.Timebase, boolInt(rate.NTSC))
	if err != nil {
		return fmt.Errorf("set frame rate: %w", err)
	}
	return nil
}

// ProductionTimecode returns the production start timecode and the scene's
// start frame.
func (s *Store) ProductionTimecode(ctx context.Context) (timecode.Timecode, int, error) {
	settings, err := s.readSettings(ctx)
	if err != nil {
		return timecode.Timecode{}, 0, err
	}
	rate := fps.Rate{Timebase: settings.RateTimebase, NTSC: settings.RateNTSC}
	tc, err := timecode.Parse(settings.ProductionTimecode, rate)
	if err != nil {
		return timecode.Timecode{}, 0, fmt.Errorf("stored production timecode: %w", err)
	}
	return tc, settings.MayaStartFrame, nil
}

// SetProductionTimecode stores the production start timecode with the scene
// start frame pinned to the given value.
func (s *Store) SetProductionTimecode(ctx context.Context, tc timecode.Timecode, mayaStartFrame int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET production_timecode = ?, maya_start_frame = ? WHERE id = 1`,
		tc.String(), mayaStartFrame)
	if err != nil {
		return fmt.Errorf("set production timecode: %w", err)
	}
	return nil
}

// LinkAudio binds an audio clip to a shot.
func (s *Store) LinkAudio(ctx context.Context, shotID, audioID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shots SET linked_audio_id = ?, updated_at = ? WHERE id = ?`,
		audioID, timestamp(), shotID)
	if err != nil {
		return fmt.Errorf("link audio: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "scene", "link audio",
			fmt.Sprintf("shot %d", shotID), nil)
	}
	return nil
}

// ShiftAll moves every shot and audio clip by delta sequence frames.
func (s *Store) ShiftAll(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin shift: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp()
	if _, err := tx.ExecContext(ctx,
		`UPDATE shots SET sequence_start = sequence_start + ?, sequence_end = sequence_end + ?, updated_at = ?`,
		delta, delta, now); err != nil {
		return fmt.Errorf("shift shots: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE audio_clips SET sequence_start = sequence_start + ?, sequence_end = sequence_end + ?, updated_at = ?`,
		delta, delta, now); err != nil {
		return fmt.Errorf("shift audio clips: %w", err)
	}
	return tx.Commit()
}

// RefreshShot re-materializes a shot's cached clip: the scene-side
// playblast equivalent. The stored flags record that the clip is current.
func (s *Store) RefreshShot(ctx context.Context, shotID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shots SET clip_synced = 1, clip_valid = 1, clip_opacity = 1.0, updated_at = ? WHERE id = ?`,
		timestamp(), shotID)
	if err != nil {
		return fmt.Errorf("refresh shot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "scene", "refresh shot",
			fmt.Sprintf("shot %d", shotID), nil)
	}
	return nil
}

func (s *Store) readSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	var ntsc int
	err := s.db.QueryRowContext(ctx,
		`SELECT rate_timebase, rate_ntsc, production_timecode, maya_start_frame FROM settings WHERE id = 1`,
	).Scan(&settings.RateTimebase, &ntsc, &settings.ProductionTimecode, &settings.MayaStartFrame)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	settings.RateNTSC = ntsc != 0
	return settings, nil
}

func scanShot(rows *sql.Rows) (*Shot, error) {
	shot := &Shot{}
	var mute, locked, valid, synced int
	var created, updated string
	if err := rows.Scan(
		&shot.ID, &shot.Name, &shot.Track, &shot.SequenceStart, &shot.SequenceEnd, &shot.ClipZeroOffset,
		&mute, &locked, &shot.Camera, &shot.MediaPath, &shot.Width, &shot.Height, &shot.ClipDuration,
		&valid, &synced, &shot.ClipOpacity, &shot.LinkedAudioID,
		&created, &updated,
	); err != nil {
		return nil, fmt.Errorf("scan shot: %w", err)
	}
	shot.Mute = mute != 0
	shot.Locked = locked != 0
	shot.ClipValid = valid != 0
	shot.ClipSynced = synced != 0
	shot.CreatedAt = parseTime(created)
	shot.UpdatedAt = parseTime(updated)
	return shot, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var _ Gateway = (*Store)(nil)
