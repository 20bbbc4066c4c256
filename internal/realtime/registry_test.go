package realtime_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/realtime"
)

type recorderHandle struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
}

func (h *recorderHandle) Send(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return h.sendErr
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	h.frames = append(h.frames, frame)
	return nil
}

func (h *recorderHandle) received() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	frames := make([][]byte, len(h.frames))
	copy(frames, h.frames)
	return frames
}

func testMessage(content string) conversation.Message {
	return conversation.NewMessage("user-1", nil, content, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestRegistrySubscribeIsIdempotent(t *testing.T) {
	registry := realtime.NewRegistry()
	handle := &recorderHandle{}

	registry.Subscribe("conv-1", handle)
	registry.Subscribe("conv-1", handle)

	assert.Equal(t, 1, registry.SubscriberCount("conv-1"))
}

func TestRegistryUnsubscribeUnknownIsNoOp(t *testing.T) {
	registry := realtime.NewRegistry()
	handle := &recorderHandle{}

	registry.Unsubscribe("conv-1", handle)

	registry.Subscribe("conv-1", handle)
	registry.Unsubscribe("conv-1", &recorderHandle{})
	assert.Equal(t, 1, registry.SubscriberCount("conv-1"))
}

func TestRegistryBroadcastDeliversInRegistrationOrder(t *testing.T) {
	registry := realtime.NewRegistry()
	first := &recorderHandle{}
	second := &recorderHandle{}
	registry.Subscribe("conv-1", first)
	registry.Subscribe("conv-1", second)

	delivered := registry.Broadcast("conv-1", realtime.NewMessageEvent(testMessage("hello")))

	assert.Equal(t, 2, delivered)
	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, first.received()[0], second.received()[0])

	event, err := realtime.DecodeEvent(first.received()[0])
	require.NoError(t, err)
	msg, ok := event.(realtime.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Message.Content)
}

func TestRegistryBroadcastSurvivesSendFailure(t *testing.T) {
	registry := realtime.NewRegistry()
	failing := &recorderHandle{sendErr: errors.New("connection reset")}
	healthy := &recorderHandle{}
	registry.Subscribe("conv-1", failing)
	registry.Subscribe("conv-1", healthy)

	delivered := registry.Broadcast("conv-1", realtime.NewErrorEvent("boom"))

	assert.Equal(t, 1, delivered)
	assert.Len(t, healthy.received(), 1)
}

func TestRegistryBroadcastIsolatedPerConversation(t *testing.T) {
	registry := realtime.NewRegistry()
	subscriber := &recorderHandle{}
	bystander := &recorderHandle{}
	registry.Subscribe("conv-1", subscriber)
	registry.Subscribe("conv-2", bystander)

	registry.Broadcast("conv-1", realtime.NewMessageEvent(testMessage("private")))

	assert.Len(t, subscriber.received(), 1)
	assert.Empty(t, bystander.received())
}

func TestRegistryDoubleUnsubscribeIsNoOp(t *testing.T) {
	registry := realtime.NewRegistry()
	handle := &recorderHandle{}
	registry.Subscribe("conv-1", handle)

	registry.Unsubscribe("conv-1", handle)
	registry.Unsubscribe("conv-1", handle)

	assert.Zero(t, registry.SubscriberCount("conv-1"))
}

func TestRegistryBroadcastToEmptyConversation(t *testing.T) {
	registry := realtime.NewRegistry()

	delivered := registry.Broadcast("conv-missing", realtime.NewErrorEvent("nobody home"))

	assert.Zero(t, delivered)
}

func TestRegistryDropsEmptyConversationEntry(t *testing.T) {
	registry := realtime.NewRegistry()
	handle := &recorderHandle{}

	registry.Subscribe("conv-1", handle)
	registry.Unsubscribe("conv-1", handle)

	assert.Zero(t, registry.SubscriberCount("conv-1"))

	// A fresh subscribe after disposal must work as if the conversation
	// had never been seen.
	registry.Subscribe("conv-1", handle)
	assert.Equal(t, 1, registry.SubscriberCount("conv-1"))
}
