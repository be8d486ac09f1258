package meeting

import (
	"context"
	"fmt"
	"sync"
)

// fakeTrack is an in-memory MediaTrack / ScreenTrack
type fakeTrack struct {
	id   string
	kind TrackKind

	mu        sync.Mutex
	enabled   bool
	stopped   bool
	stopCount int
	onEnded   func()
}

func newFakeTrack(id string, kind TrackKind) *fakeTrack {
	return &fakeTrack{id: id, kind: kind, enabled: true}
}

func (ft *fakeTrack) ID() string      { return ft.id }
func (ft *fakeTrack) Kind() TrackKind { return ft.kind }

func (ft *fakeTrack) SetEnabled(enabled bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.enabled = enabled
}

func (ft *fakeTrack) Enabled() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.enabled
}

func (ft *fakeTrack) Stop() {
	ft.mu.Lock()
	ft.stopCount++
	already := ft.stopped
	ft.stopped = true
	fn := ft.onEnded
	ft.mu.Unlock()
	if !already && fn != nil {
		fn()
	}
}

func (ft *fakeTrack) OnEnded(fn func()) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.onEnded = fn
}

func (ft *fakeTrack) Stopped() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.stopped
}

// fireEnded simulates the platform ending the capture
func (ft *fakeTrack) fireEnded() {
	ft.mu.Lock()
	fn := ft.onEnded
	ft.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fakeCapture is an in-memory MediaCapture with programmable failures
type fakeCapture struct {
	mu           sync.Mutex
	userCalls    int
	displayCalls int
	// failCombined rejects requests for both devices, so the audio-only
	// retry path is observable
	failCombined bool
	failUser     error
	failDisplay  error
	// blockUser / blockDisplay delay acquisition until closed
	blockUser    chan struct{}
	blockDisplay chan struct{}
	userTracks   []*fakeTrack
	screens      []*fakeTrack
	lastScreen   *fakeTrack
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{}
}

func (fc *fakeCapture) AcquireUserMedia(ctx context.Context, wantVideo, wantAudio bool) (*UserMedia, error) {
	fc.mu.Lock()
	fc.userCalls++
	n := fc.userCalls
	failCombined := fc.failCombined
	failUser := fc.failUser
	block := fc.blockUser
	fc.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failUser != nil {
		return nil, failUser
	}
	if failCombined && wantVideo && wantAudio {
		return nil, fmt.Errorf("camera unavailable")
	}

	media := &UserMedia{}
	fc.mu.Lock()
	if wantVideo {
		video := newFakeTrack(fmt.Sprintf("video-%d", n), TrackKindVideo)
		media.Video = video
		fc.userTracks = append(fc.userTracks, video)
	}
	if wantAudio {
		audio := newFakeTrack(fmt.Sprintf("audio-%d", n), TrackKindAudio)
		media.Audio = audio
		fc.userTracks = append(fc.userTracks, audio)
	}
	fc.mu.Unlock()
	return media, nil
}

func (fc *fakeCapture) AcquireDisplayMedia(ctx context.Context) (ScreenTrack, error) {
	fc.mu.Lock()
	fc.displayCalls++
	n := fc.displayCalls
	failDisplay := fc.failDisplay
	block := fc.blockDisplay
	fc.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failDisplay != nil {
		return nil, failDisplay
	}

	screen := newFakeTrack(fmt.Sprintf("screen-%d", n), TrackKindVideo)
	fc.mu.Lock()
	fc.screens = append(fc.screens, screen)
	fc.lastScreen = screen
	fc.mu.Unlock()
	return screen, nil
}

func (fc *fakeCapture) UserCalls() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.userCalls
}

func (fc *fakeCapture) LastScreen() *fakeTrack {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lastScreen
}

func (fc *fakeCapture) Screens() []*fakeTrack {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	out := make([]*fakeTrack, len(fc.screens))
	copy(out, fc.screens)
	return out
}

func (fc *fakeCapture) UserTracks() []*fakeTrack {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	out := make([]*fakeTrack, len(fc.userTracks))
	copy(out, fc.userTracks)
	return out
}

// fakeSender records track substitutions on one link
type fakeSender struct {
	mu           sync.Mutex
	track        MediaTrack
	replaceCalls int
	failReplace  error
}

func (fs *fakeSender) Track() MediaTrack {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.track
}

func (fs *fakeSender) ReplaceTrack(track MediaTrack) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.replaceCalls++
	if fs.failReplace != nil {
		return fs.failReplace
	}
	fs.track = track
	return nil
}

// fakeLink is an in-memory PeerLink
type fakeLink struct {
	id string

	mu          sync.Mutex
	senders     []*fakeSender
	closed      bool
	failAdd     error
	failReplace error
}

func newFakeLink(id string) *fakeLink {
	return &fakeLink{id: id}
}

func (fl *fakeLink) ID() string { return fl.id }

func (fl *fakeLink) AddTrack(track MediaTrack) (TrackSender, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.failAdd != nil {
		return nil, fl.failAdd
	}
	sender := &fakeSender{track: track, failReplace: fl.failReplace}
	fl.senders = append(fl.senders, sender)
	return sender, nil
}

func (fl *fakeLink) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.closed = true
	return nil
}

func (fl *fakeLink) Closed() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.closed
}

// videoSender returns the sender currently carrying a video track
func (fl *fakeLink) videoSender() *fakeSender {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	for _, s := range fl.senders {
		if s.Track() != nil && s.Track().Kind() == TrackKindVideo {
			return s
		}
	}
	return nil
}

func (fl *fakeLink) senderCount() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return len(fl.senders)
}

// fakeRelay records relayed chat messages
type fakeRelay struct {
	mu       sync.Mutex
	messages []ChatMessage
	fail     error
}

func (fr *fakeRelay) RelayChat(msg ChatMessage) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.fail != nil {
		return fr.fail
	}
	fr.messages = append(fr.messages, msg)
	return nil
}

func (fr *fakeRelay) count() int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return len(fr.messages)
}
