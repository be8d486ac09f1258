package meeting

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/LingByte/LingMeet/pkg/errors"
	"go.uber.org/zap"
)

// DeviceManager owns the local capture devices. It is the only component
// allowed to stop camera and microphone tracks; other components borrow
// track references but never release them.
type DeviceManager struct {
	capture MediaCapture
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.RWMutex
	video   MediaTrack
	audio   MediaTrack
	state   LocalMediaState
	// closed is latched by ReleaseAll; acquisitions resolving afterwards
	// release their tracks instead of storing them
	closed bool
}

// NewDeviceManager 创建本地设备管理器
func NewDeviceManager(capture MediaCapture, timeout time.Duration, logger *zap.Logger) *DeviceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceManager{
		capture: capture,
		timeout: timeout,
		logger:  logger,
	}
}

// Acquire requests capture capabilities. On partial failure it returns a
// degraded LocalMediaState instead of failing outright: a session with no
// camera still joins audio-only. The wait is bounded; on timeout the
// request resolves as DEVICE_BUSY rather than hanging.
func (dm *DeviceManager) Acquire(ctx context.Context, wantVideo, wantAudio bool) (LocalMediaState, error) {
	if !wantVideo && !wantAudio {
		return dm.State(), nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, dm.timeout)
	defer cancel()

	media, err := dm.capture.AcquireUserMedia(acquireCtx, wantVideo, wantAudio)
	if err != nil && wantVideo && wantAudio {
		// 摄像头不可用时降级为纯音频，会话继续
		dm.logger.Warn("combined acquisition failed, retrying audio-only",
			zap.Error(err))
		media, err = dm.capture.AcquireUserMedia(acquireCtx, false, true)
	}
	if err != nil {
		return LocalMediaState{}, classifyDeviceError(err)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.closed {
		// 会话已结束，释放迟到的轨道
		stopUserMedia(media)
		return LocalMediaState{}, errors.NewAppError(errors.ErrCodeSessionNotActive, "devices released during acquisition")
	}

	if media.Video != nil {
		dm.video = media.Video
		dm.state.VideoEnabled = true
	}
	if media.Audio != nil {
		dm.audio = media.Audio
		dm.state.AudioEnabled = true
	}

	dm.logger.Info("local media acquired",
		zap.Bool("video", dm.video != nil),
		zap.Bool("audio", dm.audio != nil))

	return dm.state, nil
}

// SetVideoEnabled toggles the camera track in place. No device
// re-acquisition, no renegotiation.
func (dm *DeviceManager) SetVideoEnabled(enabled bool) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.video == nil {
		if !enabled {
			dm.state.VideoEnabled = false
			return nil
		}
		return errors.NewAppError(errors.ErrCodeDeviceNotFound, "no camera track acquired")
	}

	dm.video.SetEnabled(enabled)
	dm.state.VideoEnabled = enabled
	return nil
}

// SetAudioEnabled toggles the microphone track in place
func (dm *DeviceManager) SetAudioEnabled(enabled bool) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.audio == nil {
		if !enabled {
			dm.state.AudioEnabled = false
			return nil
		}
		return errors.NewAppError(errors.ErrCodeDeviceNotFound, "no microphone track acquired")
	}

	dm.audio.SetEnabled(enabled)
	dm.state.AudioEnabled = enabled
	return nil
}

// SetScreenSharing records the screen-share flag. The screen track itself
// is owned by the negotiator's capture flow, not the device manager.
func (dm *DeviceManager) SetScreenSharing(sharing bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.state.ScreenSharing = sharing
}

// VideoTrack returns a borrowed reference to the camera track
func (dm *DeviceManager) VideoTrack() MediaTrack {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.video
}

// AudioTrack returns a borrowed reference to the microphone track
func (dm *DeviceManager) AudioTrack() MediaTrack {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.audio
}

// State returns a copy of the current local media state
func (dm *DeviceManager) State() LocalMediaState {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.state
}

// ReacquireVideo re-acquires the camera after the track was released,
// used when a screen share ends and the camera must be restored.
func (dm *DeviceManager) ReacquireVideo(ctx context.Context) (MediaTrack, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, dm.timeout)
	defer cancel()

	media, err := dm.capture.AcquireUserMedia(acquireCtx, true, false)
	if err != nil {
		return nil, classifyDeviceError(err)
	}
	if media.Video == nil {
		return nil, errors.NewAppError(errors.ErrCodeDeviceNotFound, "camera unavailable")
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.closed {
		stopUserMedia(media)
		return nil, errors.NewAppError(errors.ErrCodeSessionNotActive, "devices released during acquisition")
	}

	dm.video = media.Video
	dm.state.VideoEnabled = true
	return dm.video, nil
}

// ReleaseAll stops every acquired track. Safe to call more than once;
// the second call finds nothing to release.
func (dm *DeviceManager) ReleaseAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.closed = true
	if dm.video != nil {
		dm.video.Stop()
		dm.video = nil
	}
	if dm.audio != nil {
		dm.audio.Stop()
		dm.audio = nil
	}
	dm.state = LocalMediaState{}
}

func stopUserMedia(media *UserMedia) {
	if media.Video != nil {
		media.Video.Stop()
	}
	if media.Audio != nil {
		media.Audio.Stop()
	}
}

// classifyDeviceError maps capture failures onto the device error
// taxonomy. Bounded waits that expire surface as DEVICE_BUSY.
func classifyDeviceError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.WrapError(errors.ErrCodeDeviceBusy, err)
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.WrapError(errors.ErrCodeDeviceNotFound, err)
}
