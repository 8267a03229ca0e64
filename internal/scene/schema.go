package scene

const schema = `
CREATE TABLE IF NOT EXISTS shots (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL,
    track            INTEGER NOT NULL DEFAULT 1,
    sequence_start   INTEGER NOT NULL DEFAULT 0,
    sequence_end     INTEGER NOT NULL DEFAULT 0,
    clip_zero_offset INTEGER NOT NULL DEFAULT 0,
    mute             INTEGER NOT NULL DEFAULT 0,
    locked           INTEGER NOT NULL DEFAULT 0,
    camera           TEXT NOT NULL DEFAULT '',
    media_path       TEXT NOT NULL DEFAULT '',
    width            INTEGER NOT NULL DEFAULT 0,
    height           INTEGER NOT NULL DEFAULT 0,
    clip_duration    INTEGER NOT NULL DEFAULT 0,
    clip_valid       INTEGER NOT NULL DEFAULT 0,
    clip_synced      INTEGER NOT NULL DEFAULT 1,
    clip_opacity     REAL NOT NULL DEFAULT 1.0,
    linked_audio_id  INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audio_clips (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL,
    track_order      INTEGER NOT NULL DEFAULT 1,
    sequence_start   INTEGER NOT NULL DEFAULT 0,
    sequence_end     INTEGER NOT NULL DEFAULT 0,
    offset           INTEGER NOT NULL DEFAULT 0,
    mute             INTEGER NOT NULL DEFAULT 0,
    file_path        TEXT NOT NULL DEFAULT '',
    bound            INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    id                  INTEGER PRIMARY KEY CHECK (id = 1),
    rate_timebase       INTEGER NOT NULL DEFAULT 24,
    rate_ntsc           INTEGER NOT NULL DEFAULT 0,
    production_timecode TEXT NOT NULL DEFAULT '00:00:00:00',
    maya_start_frame    INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO settings (id) VALUES (1);

CREATE INDEX IF NOT EXISTS idx_shots_track ON shots (track, sequence_start);
CREATE INDEX IF NOT EXISTS idx_audio_order ON audio_clips (track_order, sequence_start);
`
