// Package scene is the gateway to the host scene: a SQLite-backed store of
// shots, audio clips, and global settings (frame rate and production
// timecode). The import and export drivers speak to it through the Gateway
// interface; the store is the only writer of the scene database.
package scene

import (
	"time"
)

// Shot is a video clip materialized in the scene. Sequence frames are
// inclusive on both ends, the scene convention; the XMEML exclusive end is
// converted at the driver boundary.
type Shot struct {
	ID             int64
	Name           string
	Track          int
	SequenceStart  int
	SequenceEnd    int
	ClipZeroOffset int
	Mute           bool
	Locked         bool
	Camera         string
	MediaPath      string
	Width          int
	Height         int
	ClipDuration   int
	ClipValid      bool
	ClipSynced     bool
	ClipOpacity    float64
	LinkedAudioID  int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AudioClip is an audio node in the scene. Order is its track position.
type AudioClip struct {
	ID            int64
	Name          string
	Order         int
	SequenceStart int
	SequenceEnd   int
	Offset        int
	Mute          bool
	FilePath      string
	Bound         bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Settings is the scene's single global record.
type Settings struct {
	RateTimebase       int
	RateNTSC           bool
	ProductionTimecode string
	MayaStartFrame     int
}
