package scene

import (
	"context"

	"slate/internal/fps"
	"slate/internal/timecode"
)

// Gateway is the capability surface the drivers need from a scene. The
// SQLite Store is the production implementation; tests may substitute their
// own.
type Gateway interface {
	CreateShot(ctx context.Context, shot *Shot) (int64, error)
	CreateAudio(ctx context.Context, clip *AudioClip) (int64, error)
	Shots(ctx context.Context) ([]*Shot, error)
	AudioClips(ctx context.Context) ([]*AudioClip, error)

	GlobalRate(ctx context.Context) (fps.Rate, error)
	SetGlobalRate(ctx context.Context, rate fps.Rate) error

	ProductionTimecode(ctx context.Context) (timecode.Timecode, int, error)
	SetProductionTimecode(ctx context.Context, tc timecode.Timecode, mayaStartFrame int) error

	LinkAudio(ctx context.Context, shotID, audioID int64) error
	ShiftAll(ctx context.Context, delta int) error
	RefreshShot(ctx context.Context, shotID int64) error
}
