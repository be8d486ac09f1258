package meeting

import (
	"context"
	"testing"
	"time"

	"github.com/LingByte/LingMeet/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceManagerAcquire(t *testing.T) {
	capture := newFakeCapture()
	dm := NewDeviceManager(capture, time.Second, nil)

	state, err := dm.Acquire(context.Background(), true, true)
	require.NoError(t, err)

	assert.True(t, state.VideoEnabled)
	assert.True(t, state.AudioEnabled)
	assert.NotNil(t, dm.VideoTrack())
	assert.NotNil(t, dm.AudioTrack())
	assert.Equal(t, 1, capture.UserCalls())
}

func TestDeviceManagerAcquireDegradesToAudioOnly(t *testing.T) {
	capture := newFakeCapture()
	capture.failCombined = true
	dm := NewDeviceManager(capture, time.Second, nil)

	state, err := dm.Acquire(context.Background(), true, true)
	require.NoError(t, err)

	assert.False(t, state.VideoEnabled)
	assert.True(t, state.AudioEnabled)
	assert.Nil(t, dm.VideoTrack())
	assert.NotNil(t, dm.AudioTrack())
	// 合并请求失败后用纯音频重试
	assert.Equal(t, 2, capture.UserCalls())
}

func TestDeviceManagerAcquireNothingRequested(t *testing.T) {
	capture := newFakeCapture()
	dm := NewDeviceManager(capture, time.Second, nil)

	state, err := dm.Acquire(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, LocalMediaState{}, state)
	assert.Equal(t, 0, capture.UserCalls())
}

func TestDeviceManagerToggleWithoutReacquisition(t *testing.T) {
	capture := newFakeCapture()
	dm := NewDeviceManager(capture, time.Second, nil)

	_, err := dm.Acquire(context.Background(), true, true)
	require.NoError(t, err)

	video := dm.VideoTrack()

	require.NoError(t, dm.SetVideoEnabled(false))
	assert.False(t, dm.State().VideoEnabled)
	assert.False(t, video.Enabled())

	require.NoError(t, dm.SetVideoEnabled(true))
	assert.True(t, dm.State().VideoEnabled)
	assert.True(t, video.Enabled())

	require.NoError(t, dm.SetAudioEnabled(false))
	assert.False(t, dm.State().AudioEnabled)

	// Toggling never goes back to the capture device
	assert.Equal(t, 1, capture.UserCalls())
	assert.Same(t, video, dm.VideoTrack())
}

func TestDeviceManagerEnableWithoutTrack(t *testing.T) {
	dm := NewDeviceManager(newFakeCapture(), time.Second, nil)

	err := dm.SetVideoEnabled(true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDeviceNotFound))

	err = dm.SetAudioEnabled(true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDeviceNotFound))
}

func TestDeviceManagerDisableWithoutTrack(t *testing.T) {
	dm := NewDeviceManager(newFakeCapture(), time.Second, nil)

	// Disabling an unacquired device is a harmless no-op
	assert.NoError(t, dm.SetVideoEnabled(false))
	assert.NoError(t, dm.SetAudioEnabled(false))
	assert.Equal(t, LocalMediaState{}, dm.State())
}

func TestDeviceManagerAcquireTimeout(t *testing.T) {
	capture := newFakeCapture()
	capture.blockDisplay = make(chan struct{})
	capture.failUser = context.DeadlineExceeded
	dm := NewDeviceManager(capture, 10*time.Millisecond, nil)

	_, err := dm.Acquire(context.Background(), true, true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDeviceBusy))
}

func TestDeviceManagerReacquireVideo(t *testing.T) {
	capture := newFakeCapture()
	dm := NewDeviceManager(capture, time.Second, nil)

	_, err := dm.Acquire(context.Background(), false, true)
	require.NoError(t, err)
	require.Nil(t, dm.VideoTrack())

	track, err := dm.ReacquireVideo(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, track)
	assert.Same(t, track, dm.VideoTrack())
	assert.True(t, dm.State().VideoEnabled)
}

func TestDeviceManagerAcquireResolvingAfterRelease(t *testing.T) {
	capture := newFakeCapture()
	capture.blockUser = make(chan struct{})
	dm := NewDeviceManager(capture, time.Minute, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := dm.Acquire(context.Background(), true, true)
		errCh <- err
	}()

	// Release races the pending acquisition
	time.Sleep(20 * time.Millisecond)
	dm.ReleaseAll()
	close(capture.blockUser)

	err := <-errCh
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionNotActive))

	// The late tracks are stopped, never stored
	tracks := capture.UserTracks()
	require.Len(t, tracks, 2)
	for _, track := range tracks {
		assert.True(t, track.Stopped())
	}
	assert.Nil(t, dm.VideoTrack())
	assert.Nil(t, dm.AudioTrack())
	assert.Equal(t, LocalMediaState{}, dm.State())
}

func TestDeviceManagerReacquireResolvingAfterRelease(t *testing.T) {
	capture := newFakeCapture()
	dm := NewDeviceManager(capture, time.Minute, nil)
	dm.ReleaseAll()

	_, err := dm.ReacquireVideo(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionNotActive))

	tracks := capture.UserTracks()
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].Stopped())
	assert.Nil(t, dm.VideoTrack())
}

func TestDeviceManagerReleaseAll(t *testing.T) {
	capture := newFakeCapture()
	dm := NewDeviceManager(capture, time.Second, nil)

	_, err := dm.Acquire(context.Background(), true, true)
	require.NoError(t, err)

	video := dm.VideoTrack().(*fakeTrack)
	audio := dm.AudioTrack().(*fakeTrack)

	dm.ReleaseAll()
	assert.True(t, video.Stopped())
	assert.True(t, audio.Stopped())
	assert.Nil(t, dm.VideoTrack())
	assert.Nil(t, dm.AudioTrack())
	assert.Equal(t, LocalMediaState{}, dm.State())

	// Second call finds nothing, and the tracks are not stopped twice
	dm.ReleaseAll()
	assert.Equal(t, 1, video.stopCount)
	assert.Equal(t, 1, audio.stopCount)
}
