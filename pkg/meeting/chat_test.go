package meeting

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatAppendAssignsMonotonicIDs(t *testing.T) {
	cc := NewChatChannel("local", nil, nil)

	senders := []string{"local", "alice", "local", "bob", "alice"}
	for i, sender := range senders {
		msg := cc.Append(sender, fmt.Sprintf("message %d", i))
		assert.Equal(t, int64(i+1), msg.ID)
	}

	messages := cc.Messages()
	require.Len(t, messages, len(senders))
	for i := 1; i < len(messages); i++ {
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
	}
}

func TestChatUnreadCountsRemoteOnly(t *testing.T) {
	cc := NewChatChannel("local", nil, nil)

	cc.Append("local", "hi")
	assert.Equal(t, 0, cc.Unread())

	cc.Append("alice", "hello")
	cc.Append("bob", "hey")
	assert.Equal(t, 2, cc.Unread())

	cc.MarkRead()
	assert.Equal(t, 0, cc.Unread())
	// History survives marking read
	assert.Equal(t, 3, cc.Len())
}

func TestChatRelaysLocalMessagesOnly(t *testing.T) {
	relay := &fakeRelay{}
	cc := NewChatChannel("local", relay, nil)

	cc.Append("local", "outbound")
	cc.Append("alice", "inbound")

	assert.Equal(t, 1, relay.count())
	assert.Equal(t, "outbound", relay.messages[0].Text)
}

func TestChatKeepsMessageWhenRelayFails(t *testing.T) {
	relay := &fakeRelay{fail: fmt.Errorf("transport down")}
	cc := NewChatChannel("local", relay, nil)

	msg := cc.Append("local", "lost in transit")
	assert.True(t, msg.Pending)

	messages := cc.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Pending)
	assert.Equal(t, "lost in transit", messages[0].Text)
}

func TestChatNilRelay(t *testing.T) {
	cc := NewChatChannel("local", nil, nil)

	msg := cc.Append("local", "no relay configured")
	assert.False(t, msg.Pending)
	assert.Equal(t, 1, cc.Len())
}
