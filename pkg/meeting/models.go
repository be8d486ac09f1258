package meeting

import "time"

// Session 会话状态，仅由 SessionController 持有和修改
type Session struct {
	ID         string
	State      SessionState
	LayoutMode LayoutMode
	Recording  bool
	CreatedAt  time.Time
}

// LocalMediaState mirrors the state of the local capture devices.
// Mutated only by the DeviceManager.
type LocalMediaState struct {
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool
}

// Participant is the per-remote-participant state held by the registry
type Participant struct {
	ID           string
	DisplayName  string
	Role         string
	AudioEnabled bool
	VideoEnabled bool
	IsSpeaking   bool
	Quality      ConnectionQuality
	// JoinOrder is assigned on first upsert and breaks layout ties
	JoinOrder   int
	JoinedAt    time.Time
	LastSpokeAt time.Time
}

// ParticipantPatch is a partial state update merged by Upsert.
// Nil fields are left untouched.
type ParticipantPatch struct {
	DisplayName  *string
	Role         *string
	AudioEnabled *bool
	VideoEnabled *bool
	IsSpeaking   *bool
	// QualityScore is a sampled link-health score in [0,1]
	QualityScore *float64
	SpokeAt      *time.Time
}

// ChatMessage is one entry in the append-only chat log
type ChatMessage struct {
	ID       int64     `json:"id"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
	// Pending marks a message kept locally after a relay failure
	Pending bool `json:"pending,omitempty"`
}

// Tile is one renderable slot. Derived by the layout engine, never stored.
type Tile struct {
	ParticipantID string   `json:"participantId"`
	Role          TileRole `json:"role"`
	Size          TileSize `json:"size"`
	Position      int      `json:"position"`
	Highlighted   bool     `json:"highlighted,omitempty"`
}

// Snapshot is the render-ready view model handed to the rendering collaborator
type Snapshot struct {
	SessionID    string          `json:"sessionId"`
	State        SessionState    `json:"state"`
	LayoutMode   LayoutMode      `json:"layoutMode"`
	Recording    bool            `json:"recording"`
	Local        LocalMediaState `json:"local"`
	Tiles        []Tile          `json:"tiles"`
	Participants []Participant   `json:"participants"`
	Unread       int             `json:"unread"`
}
