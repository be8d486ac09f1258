package meeting

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChatRelay delivers a message to the transport collaborator. Retry
// policy lives with the transport, not here.
type ChatRelay interface {
	RelayChat(msg ChatMessage) error
}

// ChatChannel is the append-only ordered in-session chat log.
// Message ids are strictly increasing; delivery order equals send order.
type ChatChannel struct {
	mu       sync.Mutex
	localID  string
	nextID   int64
	messages []ChatMessage
	unread   int
	relay    ChatRelay
	logger   *zap.Logger
}

// NewChatChannel 创建会话聊天通道。relay 可以为 nil（无转发方）。
func NewChatChannel(localID string, relay ChatRelay, logger *zap.Logger) *ChatChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatChannel{
		localID: localID,
		nextID:  1,
		relay:   relay,
		logger:  logger,
	}
}

// Append assigns the next monotonic id and stores the message in send
// order. Messages from anyone but the local sender increment the unread
// counter. When relay delivery fails the message stays in the log,
// flagged send-pending.
func (cc *ChatChannel) Append(senderID, text string) ChatMessage {
	cc.mu.Lock()

	msg := ChatMessage{
		ID:       cc.nextID,
		SenderID: senderID,
		Text:     text,
		SentAt:   time.Now(),
	}
	cc.nextID++

	relay := cc.relay
	local := senderID == cc.localID
	if !local {
		cc.unread++
		// 远端消息不需要转发
		relay = nil
	}

	if relay != nil {
		if err := relay.RelayChat(msg); err != nil {
			cc.logger.Warn("chat relay failed, keeping message as pending",
				zap.Int64("message_id", msg.ID),
				zap.Error(err))
			msg.Pending = true
		}
	}

	cc.messages = append(cc.messages, msg)
	cc.mu.Unlock()

	return msg
}

// MarkRead resets the unread counter. Message history is untouched.
func (cc *ChatChannel) MarkRead() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.unread = 0
}

// Unread returns the current unread count
func (cc *ChatChannel) Unread() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.unread
}

// Messages returns a copy of the full log in send order
func (cc *ChatChannel) Messages() []ChatMessage {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	out := make([]ChatMessage, len(cc.messages))
	copy(out, cc.messages)
	return out
}

// Len returns the number of logged messages
func (cc *ChatChannel) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.messages)
}
