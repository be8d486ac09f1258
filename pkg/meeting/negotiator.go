package meeting

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/LingByte/LingMeet/pkg/errors"
	"go.uber.org/zap"
)

// peerBinding holds the outbound senders for one peer link. At most one
// audio and one video sender exist per link at any time.
type peerBinding struct {
	link  PeerLink
	audio TrackSender
	video TrackSender
}

// SubstitutionFailure reports a failed track substitution on one connection
type SubstitutionFailure struct {
	ConnectionID string
	Err          error
}

// ShareResult is the per-connection outcome of a screen-share substitution.
// Failures do not roll back substitutions that succeeded on other
// connections.
type ShareResult struct {
	Substituted []string
	Failures    []SubstitutionFailure
}

// TrackNegotiator manages the outbound media tracks bound to each peer
// connection and performs in-place track substitution for screen sharing.
// It borrows track references from the DeviceManager but never stops
// camera or microphone tracks itself.
type TrackNegotiator struct {
	devices *DeviceManager
	capture MediaCapture
	logger  *zap.Logger

	mu           sync.Mutex
	bindings     map[string]*peerBinding
	screen       ScreenTrack
	sharing      bool
	onShareEnded func()
}

// NewTrackNegotiator 创建轨道协商器
func NewTrackNegotiator(devices *DeviceManager, capture MediaCapture, logger *zap.Logger) *TrackNegotiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackNegotiator{
		devices:  devices,
		capture:  capture,
		logger:   logger,
		bindings: make(map[string]*peerBinding),
	}
}

// OnShareEnded registers the callback fired when the platform reports the
// user stopped sharing outside the application. The callback must route
// into the same stop path as an explicit StopScreenShare call.
func (tn *TrackNegotiator) OnShareEnded(fn func()) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.onShareEnded = fn
}

// AddPeer binds the current local tracks to a new peer link. While a
// screen share is active the video sender is bound to the screen track so
// a late joiner sees the share immediately.
func (tn *TrackNegotiator) AddPeer(link PeerLink) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	if _, exists := tn.bindings[link.ID()]; exists {
		return errors.NewAppErrorf(errors.ErrCodeTrackAlreadyBound, "peer %s already bound", link.ID())
	}

	binding := &peerBinding{link: link}

	if audio := tn.devices.AudioTrack(); audio != nil {
		sender, err := link.AddTrack(audio)
		if err != nil {
			return errors.WrapError(errors.ErrCodeSubstitutionFailed, err).
				WithDetails("connection_id", link.ID())
		}
		binding.audio = sender
	}

	var video MediaTrack
	if tn.sharing && tn.screen != nil {
		video = tn.screen
	} else {
		video = tn.devices.VideoTrack()
	}
	if video != nil {
		sender, err := link.AddTrack(video)
		if err != nil {
			return errors.WrapError(errors.ErrCodeSubstitutionFailed, err).
				WithDetails("connection_id", link.ID())
		}
		binding.video = sender
	}

	tn.bindings[link.ID()] = binding
	tn.logger.Info("peer bound",
		zap.String("connection_id", link.ID()),
		zap.Bool("audio", binding.audio != nil),
		zap.Bool("video", binding.video != nil))
	return nil
}

// RemovePeer closes one peer link and drops its bindings
func (tn *TrackNegotiator) RemovePeer(connectionID string) error {
	tn.mu.Lock()
	binding, exists := tn.bindings[connectionID]
	delete(tn.bindings, connectionID)
	tn.mu.Unlock()

	if !exists {
		return errors.NewAppErrorf(errors.ErrCodePeerNotFound, "peer %s not found", connectionID)
	}

	if err := binding.link.Close(); err != nil {
		tn.logger.Warn("closing peer link failed",
			zap.String("connection_id", connectionID),
			zap.Error(err))
	}
	tn.logger.Info("peer released", zap.String("connection_id", connectionID))
	return nil
}

// Peers returns the ids of all bound connections
func (tn *TrackNegotiator) Peers() []string {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	ids := make([]string, 0, len(tn.bindings))
	for id := range tn.bindings {
		ids = append(ids, id)
	}
	return ids
}

// Sharing reports whether a screen share is currently bound
func (tn *TrackNegotiator) Sharing() bool {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	return tn.sharing
}

// StartScreenShare acquires a screen-capture stream and atomically
// replaces the bound video track on every active connection with it,
// using in-place sender substitution. A failure on one connection is
// reported in the result and does not roll back the others. When the
// acquisition itself fails nothing is substituted.
func (tn *TrackNegotiator) StartScreenShare(ctx context.Context) (*ShareResult, error) {
	tn.mu.Lock()
	if tn.sharing {
		tn.mu.Unlock()
		return nil, errors.NewAppError(errors.ErrCodeShareAlreadyActive, "screen share already active")
	}
	tn.mu.Unlock()

	screen, err := tn.capture.AcquireDisplayMedia(ctx)
	if err != nil {
		return nil, classifyShareError(err)
	}

	tn.mu.Lock()
	defer tn.mu.Unlock()

	// end() may have raced the acquisition; release the stream instead of
	// binding it
	if tn.bindings == nil {
		screen.Stop()
		return nil, errors.NewAppError(errors.ErrCodeSessionNotActive, "negotiator closed during share acquisition")
	}
	// A concurrent start may have won while this one was acquiring; the
	// loser releases its stream rather than overwrite the bound one
	if tn.sharing {
		screen.Stop()
		return nil, errors.NewAppError(errors.ErrCodeShareAlreadyActive, "screen share already active")
	}

	tn.screen = screen
	tn.sharing = true
	tn.devices.SetScreenSharing(true)

	screen.OnEnded(func() {
		tn.mu.Lock()
		fn := tn.onShareEnded
		tn.mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	result := tn.substituteVideoLocked(screen)
	tn.logger.Info("screen share started",
		zap.Int("substituted", len(result.Substituted)),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// StopScreenShare reverses the substitution, restoring the camera track.
// The platform "user stopped sharing" signal converges on the same path.
func (tn *TrackNegotiator) StopScreenShare(ctx context.Context) (*ShareResult, error) {
	return tn.revertTrack(ctx)
}

// revertTrack is the single teardown routine for a screen share. Both the
// explicit stop and the platform ended signal land here, so the two paths
// cannot diverge.
func (tn *TrackNegotiator) revertTrack(ctx context.Context) (*ShareResult, error) {
	tn.mu.Lock()
	if !tn.sharing {
		tn.mu.Unlock()
		return nil, errors.NewAppError(errors.ErrCodeShareNotActive, "no active screen share")
	}

	screen := tn.screen
	tn.screen = nil
	tn.sharing = false
	tn.devices.SetScreenSharing(false)

	camera := tn.devices.VideoTrack()
	if camera == nil {
		// 摄像头轨道已释放，先重新采集再恢复
		tn.mu.Unlock()
		reacquired, err := tn.devices.ReacquireVideo(ctx)
		if err != nil {
			tn.logger.Warn("camera re-acquisition failed, clearing video senders", zap.Error(err))
		}
		camera = reacquired
		tn.mu.Lock()
	}

	result := tn.substituteVideoLocked(camera)
	tn.mu.Unlock()

	// Stop outside the lock: the ended callback may fire synchronously
	if screen != nil {
		screen.Stop()
	}

	tn.logger.Info("screen share stopped",
		zap.Int("restored", len(result.Substituted)),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// substituteVideoLocked replaces the video source on every bound sender.
// Caller holds tn.mu.
func (tn *TrackNegotiator) substituteVideoLocked(track MediaTrack) *ShareResult {
	result := &ShareResult{}
	for id, binding := range tn.bindings {
		if binding.video == nil {
			continue
		}
		if err := binding.video.ReplaceTrack(track); err != nil {
			appErr := errors.WrapError(errors.ErrCodeSubstitutionFailed, err).
				WithDetails("connection_id", id)
			result.Failures = append(result.Failures, SubstitutionFailure{ConnectionID: id, Err: appErr})
			tn.logger.Error("track substitution failed",
				zap.String("connection_id", id),
				zap.Error(err))
			continue
		}
		result.Substituted = append(result.Substituted, id)
	}
	return result
}

// CloseAll closes every peer link and releases the screen track if one is
// still bound. Called exactly once from session teardown.
func (tn *TrackNegotiator) CloseAll() {
	tn.mu.Lock()
	bindings := tn.bindings
	screen := tn.screen
	tn.bindings = nil
	tn.screen = nil
	tn.sharing = false
	tn.mu.Unlock()

	if screen != nil {
		screen.Stop()
	}
	for id, binding := range bindings {
		if err := binding.link.Close(); err != nil {
			tn.logger.Warn("closing peer link failed",
				zap.String("connection_id", id),
				zap.Error(err))
		}
	}
}

// classifyShareError maps display capture failures onto the share error
// taxonomy
func classifyShareError(err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.ErrCodeShareCancelled, errors.ErrCodeShareAcquisitionFailed:
			return appErr
		}
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.WrapError(errors.ErrCodeShareCancelled, err)
	}
	return errors.WrapError(errors.ErrCodeShareAcquisitionFailed, err)
}
