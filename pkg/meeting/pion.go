package meeting

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/LingByte/LingMeet/pkg/constants"
	"github.com/LingByte/LingMeet/pkg/errors"
	gonanoid "github.com/matoous/go-nanoid"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// localTrackProvider exposes the underlying pion track for sender binding
type localTrackProvider interface {
	Local() webrtc.TrackLocal
}

// SampleTrack adapts a pion TrackLocalStaticSample to the MediaTrack
// interface. Enable state is an in-place gate: when disabled, written
// samples are dropped while the sender binding stays untouched, so
// toggling mute never renegotiates.
type SampleTrack struct {
	id      string
	kind    TrackKind
	local   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
	stopped atomic.Bool

	mu       sync.Mutex
	onEnded  func()
	stopOnce sync.Once
}

func newSampleTrack(kind TrackKind, codec webrtc.RTPCodecCapability, trackName string) (*SampleTrack, error) {
	id, err := gonanoid.Nanoid()
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeInternal, err)
	}
	local, err := webrtc.NewTrackLocalStaticSample(codec, trackName+"-"+id, constants.DefaultStreamID)
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeInternal, err)
	}
	st := &SampleTrack{
		id:    id,
		kind:  kind,
		local: local,
	}
	st.enabled.Store(true)
	return st, nil
}

// NewCameraTrack creates an H264 video track for camera capture
func NewCameraTrack() (*SampleTrack, error) {
	return newSampleTrack(TrackKindVideo,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "camera")
}

// NewMicrophoneTrack creates an Opus audio track for microphone capture
func NewMicrophoneTrack() (*SampleTrack, error) {
	return newSampleTrack(TrackKindAudio,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "mic")
}

// NewScreenCaptureTrack creates an H264 video track for display capture
func NewScreenCaptureTrack() (*SampleTrack, error) {
	return newSampleTrack(TrackKindVideo,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "screen")
}

// ID returns the track id
func (st *SampleTrack) ID() string {
	return st.id
}

// Kind returns audio or video
func (st *SampleTrack) Kind() TrackKind {
	return st.kind
}

// SetEnabled flips the sample gate in place
func (st *SampleTrack) SetEnabled(enabled bool) {
	st.enabled.Store(enabled)
}

// Enabled reports the gate state
func (st *SampleTrack) Enabled() bool {
	return st.enabled.Load()
}

// WriteSample forwards one encoded sample to the pion track. Samples are
// dropped while the track is disabled or after it stopped.
func (st *SampleTrack) WriteSample(sample media.Sample) error {
	if st.stopped.Load() || !st.enabled.Load() {
		return nil
	}
	return st.local.WriteSample(sample)
}

// Stop releases the track. Idempotent; the ended callback fires once.
func (st *SampleTrack) Stop() {
	st.stopOnce.Do(func() {
		st.stopped.Store(true)
		st.mu.Lock()
		fn := st.onEnded
		st.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// OnEnded registers the callback fired when the track stops, satisfying
// the ScreenTrack interface for display capture tracks.
func (st *SampleTrack) OnEnded(fn func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onEnded = fn
}

// Local exposes the underlying pion track for sender binding
func (st *SampleTrack) Local() webrtc.TrackLocal {
	return st.local
}

// RTPSenderBinding adapts a pion RTPSender to the TrackSender interface.
// ReplaceTrack substitutes the outbound source without renegotiation.
type RTPSenderBinding struct {
	mu     sync.Mutex
	sender *webrtc.RTPSender
	track  MediaTrack
}

// Track returns the currently bound track
func (rb *RTPSenderBinding) Track() MediaTrack {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.track
}

// ReplaceTrack swaps the outbound source in place. A nil track clears
// the sender.
func (rb *RTPSenderBinding) ReplaceTrack(track MediaTrack) error {
	var local webrtc.TrackLocal
	if track != nil {
		provider, ok := track.(localTrackProvider)
		if !ok {
			return errors.NewAppErrorf(errors.ErrCodeSubstitutionFailed,
				"track %s is not backed by a pion track", track.ID())
		}
		local = provider.Local()
	}
	if err := rb.sender.ReplaceTrack(local); err != nil {
		return errors.WrapError(errors.ErrCodeSubstitutionFailed, err)
	}

	rb.mu.Lock()
	rb.track = track
	rb.mu.Unlock()
	return nil
}

// PionLink adapts a pion PeerConnection to the PeerLink interface
type PionLink struct {
	id string
	pc *webrtc.PeerConnection
}

// NewPionLink 包装一个已建立的对等连接
func NewPionLink(connectionID string, pc *webrtc.PeerConnection) *PionLink {
	return &PionLink{id: connectionID, pc: pc}
}

// ID returns the connection id
func (pl *PionLink) ID() string {
	return pl.id
}

// PeerConnection exposes the wrapped pion connection
func (pl *PionLink) PeerConnection() *webrtc.PeerConnection {
	return pl.pc
}

// AddTrack binds a local track to the connection and returns the sender
func (pl *PionLink) AddTrack(track MediaTrack) (TrackSender, error) {
	provider, ok := track.(localTrackProvider)
	if !ok {
		return nil, errors.NewAppErrorf(errors.ErrCodeSubstitutionFailed,
			"track %s is not backed by a pion track", track.ID())
	}
	sender, err := pl.pc.AddTrack(provider.Local())
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeSubstitutionFailed, err)
	}
	return &RTPSenderBinding{sender: sender, track: track}, nil
}

// Close shuts the peer connection down
func (pl *PionLink) Close() error {
	return pl.pc.Close()
}

// PionCapture implements MediaCapture over pion sample tracks. Feeding
// encoded samples into the returned tracks is up to the embedding
// application's capture pipeline.
type PionCapture struct{}

// NewPionCapture 创建 pion 采集适配器
func NewPionCapture() *PionCapture {
	return &PionCapture{}
}

// AcquireUserMedia creates camera and microphone sample tracks
func (pc *PionCapture) AcquireUserMedia(ctx context.Context, wantVideo, wantAudio bool) (*UserMedia, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	media := &UserMedia{}
	if wantVideo {
		video, err := NewCameraTrack()
		if err != nil {
			return nil, err
		}
		media.Video = video
	}
	if wantAudio {
		audio, err := NewMicrophoneTrack()
		if err != nil {
			return nil, err
		}
		media.Audio = audio
	}
	return media, nil
}

// AcquireDisplayMedia creates a screen-capture sample track
func (pc *PionCapture) AcquireDisplayMedia(ctx context.Context) (ScreenTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewScreenCaptureTrack()
}
