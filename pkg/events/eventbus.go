package events

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/LingByte/LingMeet/pkg/logger"
	"go.uber.org/zap"
)

// EventType classifies session events
type EventType int

const (
	// EventTypeAll subscribers receive every published event
	EventTypeAll EventType = iota
	EventTypeState
	EventTypeLayout
	EventTypeRoster
	EventTypeChat
	EventTypeError
)

// Event is one session event delivered to subscribers
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	Sender    string
	Payload   interface{}
}

// Handler processes one event. Returned errors are logged, not retried.
type Handler func(ctx context.Context, event *Event) error

// Bus is a bounded in-process event bus. With a single worker, delivery
// order equals publish order.
type Bus struct {
	ctx         context.Context
	cancel      context.CancelFunc
	eventQueue  chan *Event
	subscribers map[EventType][]Handler
	workers     int
	mu          sync.RWMutex
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewBus creates an event bus with the given queue size and worker count
func NewBus(ctx context.Context, queueSize, workers int) *Bus {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 1
	}

	busCtx, cancel := context.WithCancel(ctx)
	bus := &Bus{
		ctx:         busCtx,
		cancel:      cancel,
		eventQueue:  make(chan *Event, queueSize),
		subscribers: make(map[EventType][]Handler),
		workers:     workers,
	}

	for i := 0; i < workers; i++ {
		bus.wg.Add(1)
		go bus.worker()
	}

	return bus
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Unsubscribe removes a previously registered handler
func (b *Bus) Unsubscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subscribers[eventType]
	target := reflect.ValueOf(handler).Pointer()
	for i, h := range handlers {
		if reflect.ValueOf(h).Pointer() == target {
			b.subscribers[eventType] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Publish enqueues an event. Events are dropped when the queue is full.
func (b *Bus) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventQueue <- event:
	case <-b.ctx.Done():
	default:
		logger.Warn("event queue full, dropping event",
			zap.Int("type", int(event.Type)),
			zap.String("session_id", event.SessionID))
	}
}

// PublishState publishes a session state change
func (b *Bus) PublishState(sessionID string, payload interface{}, sender string) {
	b.Publish(&Event{Type: EventTypeState, SessionID: sessionID, Sender: sender, Payload: payload})
}

// PublishLayout publishes a recomputed tile arrangement
func (b *Bus) PublishLayout(sessionID string, payload interface{}, sender string) {
	b.Publish(&Event{Type: EventTypeLayout, SessionID: sessionID, Sender: sender, Payload: payload})
}

// PublishRoster publishes a roster change
func (b *Bus) PublishRoster(sessionID string, payload interface{}, sender string) {
	b.Publish(&Event{Type: EventTypeRoster, SessionID: sessionID, Sender: sender, Payload: payload})
}

// PublishChat publishes a chat log change
func (b *Bus) PublishChat(sessionID string, payload interface{}, sender string) {
	b.Publish(&Event{Type: EventTypeChat, SessionID: sessionID, Sender: sender, Payload: payload})
}

// PublishError publishes an absorbed error for observers
func (b *Bus) PublishError(sessionID string, err error, sender string) {
	b.Publish(&Event{Type: EventTypeError, SessionID: sessionID, Sender: sender, Payload: err})
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventQueue:
			if !ok {
				return
			}
			b.dispatch(event)
		}
	}
}

func (b *Bus) dispatch(event *Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Type])+len(b.subscribers[EventTypeAll]))
	handlers = append(handlers, b.subscribers[event.Type]...)
	if event.Type != EventTypeAll {
		handlers = append(handlers, b.subscribers[EventTypeAll]...)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(handler, event)
	}
}

// invoke runs one handler with panic recovery so a bad subscriber cannot
// take down the dispatch loop.
func (b *Bus) invoke(handler Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				zap.Any("panic", r),
				zap.Int("type", int(event.Type)),
				zap.String("session_id", event.SessionID))
		}
	}()

	if err := handler(b.ctx, event); err != nil {
		logger.Warn("event handler returned error",
			zap.Error(err),
			zap.Int("type", int(event.Type)),
			zap.String("session_id", event.SessionID))
	}
}

// Close stops the workers. Pending events in the queue are discarded.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
	})
}
