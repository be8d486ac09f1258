package signal

import (
	"context"
	"sync"
	"time"

	"github.com/LingByte/LingMeet/pkg/config"
	"github.com/LingByte/LingMeet/pkg/logger"
	"github.com/LingByte/LingMeet/pkg/meeting"
	"github.com/LingByte/LingMeet/pkg/protocol"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// SessionHandler receives decoded control events from the signaling
// channel. The SessionController satisfies it.
type SessionHandler interface {
	HandleRosterPatch(participantID string, patch meeting.ParticipantPatch) error
	HandleParticipantLeave(participantID string) error
	HandleRemoteChat(senderID, text string) error
}

// Client is the websocket signaling transport. It decodes inbound
// control messages into session events and relays local chat and media
// state outbound. It also satisfies meeting.ChatRelay and
// meeting.CollaboratorNotifier.
type Client struct {
	url            string
	sessionID      string
	localID        string
	reconnectDelay time.Duration
	handler        SessionHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient 创建信令客户端
func NewClient(cfg *config.SignalConfig, sessionID, localID string, handler SessionHandler) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:            cfg.URL,
		sessionID:      sessionID,
		localID:        localID,
		reconnectDelay: cfg.ReconnectDelay,
		handler:        handler,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Connect dials the signaling endpoint and announces the local
// participant, then starts the message listener.
func (c *Client) Connect(ctx context.Context, displayName, role string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	logger.Info("signaling connected",
		zap.String("url", c.url),
		zap.String("session_id", c.sessionID))

	join, err := protocol.NewJoinMessage(c.sessionID, protocol.JoinMessage{
		ParticipantID: c.localID,
		DisplayName:   displayName,
		Role:          role,
	})
	if err != nil {
		return err
	}
	if err := c.writeMessage(join); err != nil {
		return err
	}

	go c.listen()
	return nil
}

// listen reads control messages until the client closes, reconnecting
// after transient failures.
func (c *Client) listen() {
	defer close(c.done)
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		var msg protocol.ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			logrus.WithError(err).Warn("signaling read failed, reconnecting")
			if !c.reconnect() {
				return
			}
			continue
		}

		if msg.SessionID != c.sessionID {
			logrus.WithFields(logrus.Fields{
				"expected": c.sessionID,
				"received": msg.SessionID,
			}).Debug("dropping message for another session")
			continue
		}

		c.dispatch(&msg)
	}
}

// dispatch maps one control message onto the session handler
func (c *Client) dispatch(msg *protocol.ControlMessage) {
	var err error
	switch msg.Type {
	case protocol.MessageTypeJoin:
		var join protocol.JoinMessage
		if err = msg.DecodePayload(&join); err == nil {
			err = c.handler.HandleRosterPatch(join.ParticipantID, meeting.ParticipantPatch{
				DisplayName: &join.DisplayName,
				Role:        &join.Role,
			})
		}
	case protocol.MessageTypeLeave:
		var leave protocol.LeaveMessage
		if err = msg.DecodePayload(&leave); err == nil {
			err = c.handler.HandleParticipantLeave(leave.ParticipantID)
		}
	case protocol.MessageTypeRosterPatch:
		var patch protocol.RosterPatchMessage
		if err = msg.DecodePayload(&patch); err == nil {
			err = c.handler.HandleRosterPatch(patch.ParticipantID, meeting.ParticipantPatch{
				DisplayName:  patch.DisplayName,
				Role:         patch.Role,
				AudioEnabled: patch.AudioEnabled,
				VideoEnabled: patch.VideoEnabled,
			})
		}
	case protocol.MessageTypeQualitySample:
		var sample protocol.QualitySampleMessage
		if err = msg.DecodePayload(&sample); err == nil {
			err = c.handler.HandleRosterPatch(sample.ParticipantID, meeting.ParticipantPatch{
				QualityScore: &sample.Score,
			})
		}
	case protocol.MessageTypeSpeaking:
		var speaking protocol.SpeakingMessage
		if err = msg.DecodePayload(&speaking); err == nil {
			err = c.handler.HandleRosterPatch(speaking.ParticipantID, meeting.ParticipantPatch{
				IsSpeaking: &speaking.Speaking,
			})
		}
	case protocol.MessageTypeChat:
		var chat protocol.ChatMessage
		if err = msg.DecodePayload(&chat); err == nil {
			// Our own relayed messages echo back from the server
			if chat.SenderID == c.localID {
				return
			}
			err = c.handler.HandleRemoteChat(chat.SenderID, chat.Text)
		}
	case protocol.MessageTypeMediaState:
		var state protocol.MediaStateMessage
		if err = msg.DecodePayload(&state); err == nil {
			err = c.handler.HandleRosterPatch(state.ParticipantID, meeting.ParticipantPatch{
				AudioEnabled: &state.AudioEnabled,
				VideoEnabled: &state.VideoEnabled,
			})
		}
	case protocol.MessageTypeShareState:
		var state protocol.ShareStateMessage
		if err = msg.DecodePayload(&state); err == nil {
			logrus.WithFields(logrus.Fields{
				"participant_id": state.ParticipantID,
				"sharing":        state.Sharing,
			}).Info("remote share state changed")
		}
	default:
		logrus.WithField("type", int(msg.Type)).Debug("ignoring unknown message type")
	}

	if err != nil {
		logrus.WithError(err).WithField("type", int(msg.Type)).Warn("handling control message failed")
	}
}

// reconnect re-dials until it succeeds or the client closes
func (c *Client) reconnect() bool {
	for {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(c.reconnectDelay):
		}

		conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, nil)
		if err != nil {
			logrus.WithError(err).Warn("signaling reconnect failed")
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		logger.Info("signaling reconnected", zap.String("url", c.url))
		return true
	}
}

// RelayChat sends a local chat message to the signaling collaborator,
// satisfying meeting.ChatRelay.
func (c *Client) RelayChat(msg meeting.ChatMessage) error {
	envelope, err := protocol.NewChatMessage(c.sessionID, protocol.ChatMessage{
		SenderID: msg.SenderID,
		Text:     msg.Text,
		SentAt:   msg.SentAt,
	})
	if err != nil {
		return err
	}
	return c.writeMessage(envelope)
}

// NotifyMediaState announces the local mute and camera state to peers
func (c *Client) NotifyMediaState(participantID string, audioEnabled, videoEnabled bool) {
	envelope, err := protocol.NewMediaStateMessage(c.sessionID, protocol.MediaStateMessage{
		ParticipantID: participantID,
		AudioEnabled:  audioEnabled,
		VideoEnabled:  videoEnabled,
	})
	if err != nil {
		logrus.WithError(err).Warn("encoding media state failed")
		return
	}
	if err := c.writeMessage(envelope); err != nil {
		logrus.WithError(err).Warn("sending media state failed")
	}
}

// NotifyShareState announces a local screen share start or stop to peers
func (c *Client) NotifyShareState(participantID string, sharing bool) {
	envelope, err := protocol.NewShareStateMessage(c.sessionID, protocol.ShareStateMessage{
		ParticipantID: participantID,
		Sharing:       sharing,
	})
	if err != nil {
		logrus.WithError(err).Warn("encoding share state failed")
		return
	}
	if err := c.writeMessage(envelope); err != nil {
		logrus.WithError(err).Warn("sending share state failed")
	}
}

// writeMessage serializes one outbound envelope. Gorilla connections do
// not support concurrent writers, so writes hold the client lock.
func (c *Client) writeMessage(msg *protocol.ControlMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteJSON(msg)
}

// Close announces departure and shuts the connection down
func (c *Client) Close() error {
	leave, err := protocol.NewLeaveMessage(c.sessionID, protocol.LeaveMessage{
		ParticipantID: c.localID,
	})
	if err == nil {
		_ = c.writeMessage(leave)
	}

	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
