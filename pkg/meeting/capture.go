package meeting

import "context"

// MediaTrack is one locally produced media track. Implementations must
// support cheap in-place enable toggling: disabling a track mutes it
// without releasing the device or renegotiating any connection.
type MediaTrack interface {
	ID() string
	Kind() TrackKind
	SetEnabled(enabled bool)
	Enabled() bool
	// Stop releases the underlying device. Only the owning DeviceManager
	// may call Stop on camera and microphone tracks.
	Stop()
}

// ScreenTrack is a display-capture track. The platform fires OnEnded when
// the user stops sharing outside the application.
type ScreenTrack interface {
	MediaTrack
	OnEnded(fn func())
}

// UserMedia is the result of a capture request. Either field may be nil
// when the corresponding device was unavailable (partial acquisition).
type UserMedia struct {
	Video MediaTrack
	Audio MediaTrack
}

// MediaCapture abstracts the platform capture APIs so the control logic
// is testable without real hardware.
type MediaCapture interface {
	// AcquireUserMedia requests camera and/or microphone capture. A partial
	// result (one nil track) with a nil error is a valid degraded outcome.
	AcquireUserMedia(ctx context.Context, wantVideo, wantAudio bool) (*UserMedia, error)
	// AcquireDisplayMedia requests a screen-capture stream
	AcquireDisplayMedia(ctx context.Context) (ScreenTrack, error)
}

// TrackSender is the outbound binding of one track on one peer connection.
// ReplaceTrack substitutes the media source in place, without renegotiation.
type TrackSender interface {
	Track() MediaTrack
	ReplaceTrack(track MediaTrack) error
}

// PeerLink is a logical real-time media link to one remote participant
type PeerLink interface {
	ID() string
	AddTrack(track MediaTrack) (TrackSender, error)
	Close() error
}
