package protocol

import (
	"encoding/json"
	"time"
)

// MessageType identifies a control message on the signaling channel
type MessageType int

const (
	MessageTypeJoin          MessageType = 1
	MessageTypeLeave         MessageType = 2
	MessageTypeRosterPatch   MessageType = 3
	MessageTypeQualitySample MessageType = 4
	MessageTypeSpeaking      MessageType = 5
	MessageTypeChat          MessageType = 6
	MessageTypeMediaState    MessageType = 7
	MessageTypeShareState    MessageType = 8
)

// ControlMessage is the envelope exchanged with the signaling collaborator
type ControlMessage struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"sessionId"`
	SenderID  string          `json:"senderId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DecodePayload unmarshals the payload into v
func (m *ControlMessage) DecodePayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// JoinMessage announces a remote participant joining the session
type JoinMessage struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
}

// LeaveMessage announces a remote participant leaving the session
type LeaveMessage struct {
	ParticipantID string `json:"participantId"`
}

// RosterPatchMessage carries partial participant state updates
type RosterPatchMessage struct {
	ParticipantID string  `json:"participantId"`
	DisplayName   *string `json:"displayName,omitempty"`
	Role          *string `json:"role,omitempty"`
	AudioEnabled  *bool   `json:"audioEnabled,omitempty"`
	VideoEnabled  *bool   `json:"videoEnabled,omitempty"`
}

// QualitySampleMessage carries one sampled link-health score in [0,1]
type QualitySampleMessage struct {
	ParticipantID string  `json:"participantId"`
	Score         float64 `json:"score"`
}

// SpeakingMessage carries a speaking-detection flag change
type SpeakingMessage struct {
	ParticipantID string `json:"participantId"`
	Speaking      bool   `json:"speaking"`
}

// ChatMessage carries one in-session chat message
type ChatMessage struct {
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// MediaStateMessage announces local mute/unmute and camera state to peers
type MediaStateMessage struct {
	ParticipantID string `json:"participantId"`
	AudioEnabled  bool   `json:"audioEnabled"`
	VideoEnabled  bool   `json:"videoEnabled"`
}

// ShareStateMessage announces screen share start/stop to peers
type ShareStateMessage struct {
	ParticipantID string `json:"participantId"`
	Sharing       bool   `json:"sharing"`
}

func newMessage(t MessageType, sessionID, senderID string, payload interface{}) (*ControlMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ControlMessage{
		Type:      t,
		SessionID: sessionID,
		SenderID:  senderID,
		Payload:   raw,
	}, nil
}

// NewJoinMessage builds a join announcement envelope
func NewJoinMessage(sessionID string, msg JoinMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeJoin, sessionID, msg.ParticipantID, msg)
}

// NewLeaveMessage builds a leave announcement envelope
func NewLeaveMessage(sessionID string, msg LeaveMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeLeave, sessionID, msg.ParticipantID, msg)
}

// NewRosterPatchMessage builds a roster update envelope
func NewRosterPatchMessage(sessionID string, msg RosterPatchMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeRosterPatch, sessionID, msg.ParticipantID, msg)
}

// NewQualitySampleMessage builds a link-health sample envelope
func NewQualitySampleMessage(sessionID string, msg QualitySampleMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeQualitySample, sessionID, msg.ParticipantID, msg)
}

// NewSpeakingMessage builds a speaking-detection envelope
func NewSpeakingMessage(sessionID string, msg SpeakingMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeSpeaking, sessionID, msg.ParticipantID, msg)
}

// NewChatMessage builds a chat envelope
func NewChatMessage(sessionID string, msg ChatMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeChat, sessionID, msg.SenderID, msg)
}

// NewMediaStateMessage builds a media-state envelope
func NewMediaStateMessage(sessionID string, state MediaStateMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeMediaState, sessionID, state.ParticipantID, state)
}

// NewShareStateMessage builds a share-state envelope
func NewShareStateMessage(sessionID string, state ShareStateMessage) (*ControlMessage, error) {
	return newMessage(MessageTypeShareState, sessionID, state.ParticipantID, state)
}
