package meeting

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LingByte/LingMeet/pkg/constants"
	"github.com/LingByte/LingMeet/pkg/errors"
	"github.com/LingByte/LingMeet/pkg/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollaboratorNotifier relays local state changes to the transport
// collaborator for delivery to remote peers.
type CollaboratorNotifier interface {
	NotifyMediaState(participantID string, audioEnabled, videoEnabled bool)
	NotifyShareState(participantID string, sharing bool)
}

// ControllerOptions configures a SessionController
type ControllerOptions struct {
	SessionID          string
	LocalParticipantID string
	Capture            MediaCapture
	WantVideo          bool
	WantAudio          bool
	AcquireTimeout     time.Duration
	ShareTimeout       time.Duration
	QualitySampleTTL   time.Duration
	EventQueueSize     int
	ChatRelay          ChatRelay
	Notifier           CollaboratorNotifier
	Logger             *zap.Logger
}

// SessionController orchestrates the session lifecycle. All mutation of
// session, participant, local-media and chat state happens on a single
// control loop goroutine, so the core data model needs no locking across
// components. Blocking acquisitions run on the caller's goroutine and
// re-enter the loop as ordinary commands.
type SessionController struct {
	session    Session
	devices    *DeviceManager
	negotiator *TrackNegotiator
	registry   *ParticipantRegistry
	chat       *ChatChannel
	bus        *events.Bus
	notifier   CollaboratorNotifier
	logger     *zap.Logger

	localID      string
	wantVideo    bool
	wantAudio    bool
	shareTimeout time.Duration

	cmds       chan func()
	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	// endOnce guards teardown: exactly one execution regardless of which
	// exit path fires first
	endOnce  sync.Once
	state    atomic.Int32
	shareGen uint64
	// prevLayout is the mode restored when a screen share ends
	prevLayout LayoutMode
}

// NewSessionController wires the coordinator components together
func NewSessionController(opts ControllerOptions) *SessionController {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.LocalParticipantID == "" {
		opts.LocalParticipantID = LocalTileID
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = constants.DefaultAcquireTimeout
	}
	if opts.ShareTimeout <= 0 {
		opts.ShareTimeout = constants.DefaultShareTimeout
	}
	if opts.QualitySampleTTL <= 0 {
		opts.QualitySampleTTL = constants.DefaultQualitySampleTTL
	}
	if opts.EventQueueSize <= 0 {
		opts.EventQueueSize = constants.DefaultEventQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())

	devices := NewDeviceManager(opts.Capture, opts.AcquireTimeout, logger)
	sc := &SessionController{
		session: Session{
			ID:         opts.SessionID,
			State:      SessionStateIdle,
			LayoutMode: LayoutGrid,
			CreatedAt:  time.Now(),
		},
		devices:      devices,
		negotiator:   NewTrackNegotiator(devices, opts.Capture, logger),
		registry:     NewParticipantRegistry(opts.QualitySampleTTL, constants.DefaultRemovedCacheSize, logger),
		chat:         NewChatChannel(opts.LocalParticipantID, opts.ChatRelay, logger),
		bus:          events.NewBus(context.Background(), opts.EventQueueSize, constants.DefaultEventWorkers),
		notifier:     opts.Notifier,
		logger:       logger,
		localID:      opts.LocalParticipantID,
		wantVideo:    opts.WantVideo,
		wantAudio:    opts.WantAudio,
		shareTimeout: opts.ShareTimeout,
		cmds:         make(chan func(), 64),
		loopCtx:      loopCtx,
		loopCancel:   loopCancel,
		loopDone:     make(chan struct{}),
		prevLayout:   LayoutGrid,
	}

	// Removing a participant releases the peer resources tied to its id
	sc.registry.OnRemove(func(participantID string) {
		if err := sc.negotiator.RemovePeer(participantID); err != nil {
			if !errors.HasCode(err, errors.ErrCodePeerNotFound) {
				logger.Warn("releasing peer failed",
					zap.String("participant_id", participantID),
					zap.Error(err))
			}
		}
	})

	// The platform "user stopped sharing" signal converges on the same
	// stop path as an explicit call
	sc.negotiator.OnShareEnded(func() {
		go sc.handleShareEnded()
	})

	return sc
}

// Bus exposes the session event bus for rendering collaborators
func (sc *SessionController) Bus() *events.Bus {
	return sc.bus
}

// Registry exposes the participant registry for transport collaborators
func (sc *SessionController) Registry() *ParticipantRegistry {
	return sc.registry
}

// Chat exposes the in-session chat log
func (sc *SessionController) Chat() *ChatChannel {
	return sc.chat
}

// Devices exposes the local device manager
func (sc *SessionController) Devices() *DeviceManager {
	return sc.devices
}

// CurrentState returns the lifecycle state
func (sc *SessionController) CurrentState() SessionState {
	return SessionState(sc.state.Load())
}

// Start moves the session from Idle through Initializing to Active.
// Local media acquisition is bounded and degrades on device errors: a
// participant whose camera fails still joins audio-only. Calling Start
// outside Idle fails with SESSION_ALREADY_ACTIVE.
func (sc *SessionController) Start(ctx context.Context) error {
	if !sc.state.CompareAndSwap(int32(SessionStateIdle), int32(SessionStateInitializing)) {
		return errors.NewAppErrorf(errors.ErrCodeSessionAlreadyActive,
			"start called in state %s", sc.CurrentState())
	}

	go sc.loop()
	_ = sc.run(func() {
		sc.session.State = SessionStateInitializing
		sc.publishState()
	})

	// Device acquisition happens off the control loop; its completion
	// re-enters as a command
	_, err := sc.devices.Acquire(ctx, sc.wantVideo, sc.wantAudio)
	if err != nil {
		if errors.IsDeviceError(err) {
			sc.logger.Warn("local media degraded", zap.Error(err))
			sc.bus.PublishError(sc.session.ID, err, "device")
		} else {
			sc.logger.Error("unrecoverable media failure", zap.Error(err))
			sc.End()
			return err
		}
	}

	return sc.run(func() {
		sc.session.State = SessionStateActive
		sc.state.Store(int32(SessionStateActive))
		sc.publishState()
		sc.publishLayout()
	})
}

// End performs session teardown: stop local tracks, close every peer
// connection, flush chat. Teardown executes exactly once no matter how
// many paths trigger it, and End is safe to call repeatedly.
func (sc *SessionController) End() error {
	// Ending an Idle session has nothing to clean up; the loop never ran
	if sc.state.CompareAndSwap(int32(SessionStateIdle), int32(SessionStateEnded)) {
		sc.loopCancel()
		sc.bus.Close()
		close(sc.loopDone)
		return nil
	}
	if s := sc.CurrentState(); s == SessionStateEnded || s == SessionStateEnding {
		<-sc.loopDone
		return nil
	}

	err := sc.run(func() { sc.teardown() })
	if err != nil && sc.CurrentState() == SessionStateEnded {
		return nil
	}
	return err
}

// teardown runs on the control loop, guarded by the single-fire latch
func (sc *SessionController) teardown() {
	sc.endOnce.Do(func() {
		sc.session.State = SessionStateEnding
		sc.state.Store(int32(SessionStateEnding))
		sc.shareGen++
		sc.publishState()

		sc.devices.ReleaseAll()
		sc.negotiator.CloseAll()
		sc.chat.MarkRead()

		sc.session.State = SessionStateEnded
		sc.state.Store(int32(SessionStateEnded))
		sc.publishState()
		sc.logger.Info("session ended", zap.String("session_id", sc.session.ID))

		sc.bus.Close()
		sc.loopCancel()
	})
}

// SetVideoEnabled toggles the camera in place; no re-acquisition, no
// renegotiation of other tracks.
func (sc *SessionController) SetVideoEnabled(enabled bool) error {
	var toggleErr error
	err := sc.run(func() {
		toggleErr = sc.devices.SetVideoEnabled(enabled)
		if toggleErr == nil {
			sc.notifyMediaState()
			sc.publishLayout()
		}
	})
	if err != nil {
		return err
	}
	return toggleErr
}

// SetAudioEnabled toggles the microphone in place
func (sc *SessionController) SetAudioEnabled(enabled bool) error {
	var toggleErr error
	err := sc.run(func() {
		toggleErr = sc.devices.SetAudioEnabled(enabled)
		if toggleErr == nil {
			sc.notifyMediaState()
			sc.publishLayout()
		}
	})
	if err != nil {
		return err
	}
	return toggleErr
}

// SetLayoutMode switches the tile arrangement on user command
func (sc *SessionController) SetLayoutMode(mode LayoutMode) error {
	return sc.run(func() {
		sc.session.LayoutMode = mode
		sc.publishLayout()
	})
}

// SetRecording flips the recording flag on the session
func (sc *SessionController) SetRecording(recording bool) error {
	return sc.run(func() {
		sc.session.Recording = recording
		sc.publishState()
	})
}

// AddPeer binds a new peer connection into the negotiator
func (sc *SessionController) AddPeer(link PeerLink) error {
	var addErr error
	err := sc.run(func() {
		addErr = sc.negotiator.AddPeer(link)
	})
	if err != nil {
		return err
	}
	return addErr
}

// StartScreenShare acquires a screen stream, substitutes the outbound
// video track on every connection, and switches to Presentation layout.
// The acquisition runs off the control loop; if the session ends before
// it resolves, the stream is released instead of bound. A failed
// acquisition leaves the layout mode untouched.
func (sc *SessionController) StartScreenShare(ctx context.Context) (*ShareResult, error) {
	var gen uint64
	var precheck error
	err := sc.run(func() {
		if sc.session.State != SessionStateActive {
			precheck = errors.NewAppErrorf(errors.ErrCodeSessionNotActive,
				"screen share requires an active session, state is %s", sc.session.State)
			return
		}
		if sc.negotiator.Sharing() {
			precheck = errors.NewAppError(errors.ErrCodeShareAlreadyActive, "screen share already active")
			return
		}
		gen = sc.shareGen
	})
	if err != nil {
		return nil, err
	}
	if precheck != nil {
		return nil, precheck
	}

	// The display picker wait is bounded like device acquisition is
	shareCtx, cancelShare := context.WithTimeout(ctx, sc.shareTimeout)
	defer cancelShare()

	result, shareErr := sc.negotiator.StartScreenShare(shareCtx)
	if shareErr != nil {
		return nil, shareErr
	}

	cancelled := false
	err = sc.run(func() {
		if sc.session.State != SessionStateActive || gen != sc.shareGen {
			cancelled = true
			return
		}
		sc.prevLayout = sc.session.LayoutMode
		sc.session.LayoutMode = LayoutPresentation
		sc.notifyShareState(true)
		sc.publishLayout()
	})
	if err != nil || cancelled {
		// The session went away while the stream was resolving; release
		// it rather than bind it
		_, _ = sc.negotiator.StopScreenShare(context.Background())
		return nil, errors.NewAppError(errors.ErrCodeShareCancelled, "session ended during share acquisition")
	}

	for _, failure := range result.Failures {
		sc.bus.PublishError(sc.session.ID, failure.Err, "negotiator")
	}
	return result, nil
}

// StopScreenShare reverts the substitution and restores the pre-share
// layout mode
func (sc *SessionController) StopScreenShare(ctx context.Context) (*ShareResult, error) {
	result, err := sc.negotiator.StopScreenShare(ctx)
	if err != nil {
		return nil, err
	}

	runErr := sc.run(func() { sc.finishShare() })
	if runErr != nil {
		return result, nil
	}
	return result, nil
}

// handleShareEnded is the platform-signal path. It funnels into the same
// revertTrack routine; a share already reverted is a no-op.
func (sc *SessionController) handleShareEnded() {
	_, err := sc.negotiator.StopScreenShare(context.Background())
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeShareNotActive) {
			sc.logger.Warn("platform share stop failed", zap.Error(err))
		}
		return
	}
	_ = sc.run(func() { sc.finishShare() })
}

// finishShare restores the pre-share layout. Runs on the control loop.
func (sc *SessionController) finishShare() {
	if sc.session.LayoutMode == LayoutPresentation {
		sc.session.LayoutMode = sc.prevLayout
	}
	sc.notifyShareState(false)
	sc.publishLayout()
}

// HandleRosterPatch applies a transport roster or quality event
func (sc *SessionController) HandleRosterPatch(participantID string, patch ParticipantPatch) error {
	return sc.run(func() {
		if p, ok := sc.registry.Upsert(participantID, patch); ok {
			sc.bus.PublishRoster(sc.session.ID, p, "transport")
			sc.publishLayout()
		}
	})
}

// HandleParticipantLeave removes a participant and releases its
// per-connection resources
func (sc *SessionController) HandleParticipantLeave(participantID string) error {
	return sc.run(func() {
		if sc.registry.Remove(participantID) {
			sc.bus.PublishRoster(sc.session.ID, participantID, "transport")
			sc.publishLayout()
		}
	})
}

// SendChat appends a local message to the log and relays it
func (sc *SessionController) SendChat(text string) (ChatMessage, error) {
	var msg ChatMessage
	err := sc.run(func() {
		msg = sc.chat.Append(sc.localID, text)
		sc.bus.PublishChat(sc.session.ID, msg, sc.localID)
	})
	return msg, err
}

// HandleRemoteChat appends a message received from the transport
func (sc *SessionController) HandleRemoteChat(senderID, text string) error {
	return sc.run(func() {
		msg := sc.chat.Append(senderID, text)
		sc.bus.PublishChat(sc.session.ID, msg, senderID)
	})
}

// MarkChatRead resets the unread counter
func (sc *SessionController) MarkChatRead() error {
	return sc.run(func() { sc.chat.MarkRead() })
}

// Snapshot returns the render-ready view model
func (sc *SessionController) Snapshot() Snapshot {
	var snap Snapshot
	err := sc.run(func() { snap = sc.snapshot() })
	if err != nil {
		// Loop stopped; no concurrent writers remain
		snap = sc.snapshot()
	}
	return snap
}

// Layout recomputes the tile arrangement from the current snapshot
func (sc *SessionController) Layout() []Tile {
	return sc.Snapshot().Tiles
}

func (sc *SessionController) snapshot() Snapshot {
	local := sc.devices.State()
	participants := sc.registry.List()
	return Snapshot{
		SessionID:    sc.session.ID,
		State:        sc.session.State,
		LayoutMode:   sc.session.LayoutMode,
		Recording:    sc.session.Recording,
		Local:        local,
		Tiles:        ComputeLayout(local, participants, sc.session.LayoutMode),
		Participants: participants,
		Unread:       sc.chat.Unread(),
	}
}

// run executes fn on the control loop and waits for it. Events are
// processed strictly in arrival order.
func (sc *SessionController) run(fn func()) error {
	if sc.CurrentState() == SessionStateIdle {
		return errors.NewAppError(errors.ErrCodeSessionNotActive, "session not started")
	}

	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case sc.cmds <- wrapped:
	case <-sc.loopCtx.Done():
		return errors.NewAppError(errors.ErrCodeSessionNotActive, "session ended")
	}

	select {
	case <-done:
		return nil
	case <-sc.loopDone:
		// The loop drained remaining commands before exiting; fn may
		// still have run
		select {
		case <-done:
			return nil
		default:
			return errors.NewAppError(errors.ErrCodeSessionNotActive, "session ended")
		}
	}
}

// loop is the single-threaded control loop. It drains queued commands
// after cancellation so no posted command is silently dropped.
func (sc *SessionController) loop() {
	defer close(sc.loopDone)
	for {
		select {
		case fn := <-sc.cmds:
			fn()
		case <-sc.loopCtx.Done():
			for {
				select {
				case fn := <-sc.cmds:
					fn()
				default:
					return
				}
			}
		}
	}
}

func (sc *SessionController) publishState() {
	sc.bus.PublishState(sc.session.ID, sc.session.State, "controller")
}

func (sc *SessionController) publishLayout() {
	sc.bus.PublishLayout(sc.session.ID, sc.snapshot().Tiles, "controller")
}

func (sc *SessionController) notifyMediaState() {
	if sc.notifier == nil {
		return
	}
	state := sc.devices.State()
	sc.notifier.NotifyMediaState(sc.localID, state.AudioEnabled, state.VideoEnabled)
}

func (sc *SessionController) notifyShareState(sharing bool) {
	if sc.notifier == nil {
		return
	}
	sc.notifier.NotifyShareState(sc.localID, sharing)
}
