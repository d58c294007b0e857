// internal/realtime/router/router.go
package router

import (
	"encoding/json"
	"sync"
	"time"

	"collab-client/internal/common/logger"
	"collab-client/internal/common/metrics"
	"collab-client/pkg/registry"
)

// Router parses raw channel frames into typed events and fans them out to
// subscribers. Dispatch is synchronous and in arrival order, which preserves
// the per-channel total order the transport guarantees. Frames from distinct
// channels go through distinct Router instances and may interleave freely.
type Router struct {
	mu            sync.Mutex
	keepalive     []func()
	notifications []func(Notification)
	chatMessages  []func(ChatMessage)

	logger   logger.Logger
	contract *registry.EventRegistry
	strict   bool
}

// Option configures a Router.
type Option func(*Router)

// WithContract enables strict payload validation against the given event
// registry. Invalid payloads are dropped like decode failures.
func WithContract(contract *registry.EventRegistry) Option {
	return func(r *Router) {
		r.contract = contract
		r.strict = true
	}
}

func New(log logger.Logger, opts ...Option) *Router {
	r := &Router{
		logger: log.WithFields(map[string]interface{}{"component": "router"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnKeepalive registers a subscriber for keepalive frames.
func (r *Router) OnKeepalive(fn func()) {
	r.mu.Lock()
	r.keepalive = append(r.keepalive, fn)
	r.mu.Unlock()
}

// OnNotification registers a subscriber for notification events.
func (r *Router) OnNotification(fn func(Notification)) {
	r.mu.Lock()
	r.notifications = append(r.notifications, fn)
	r.mu.Unlock()
}

// OnChatMessage registers a subscriber for chat message events.
func (r *Router) OnChatMessage(fn func(ChatMessage)) {
	r.mu.Lock()
	r.chatMessages = append(r.chatMessages, fn)
	r.mu.Unlock()
}

// HandleFrame decodes one raw frame and dispatches it. Malformed frames and
// unknown kinds are dropped, logged at debug level only: a bad frame is
// never an error the user sees.
func (r *Router) HandleFrame(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.FramesDropped.WithLabelValues("decode").Inc()
		r.logger.Debug("dropping undecodable frame", map[string]interface{}{
			"error": err.Error(),
			"bytes": len(raw),
		})
		return
	}

	if r.strict && env.Type != string(KindKeepalive) {
		if err := r.contract.Validate(env.Type, raw); err != nil {
			metrics.FramesDropped.WithLabelValues("contract").Inc()
			r.logger.Debug("dropping frame failing contract validation", map[string]interface{}{
				"kind":  env.Type,
				"error": err.Error(),
			})
			return
		}
	}

	switch Kind(env.Type) {
	case KindKeepalive:
		r.dispatchKeepalive()
	case KindNotification:
		r.dispatchNotification(env)
	case KindChatMessage:
		r.dispatchChatMessage(env)
	default:
		metrics.FramesDropped.WithLabelValues("unknown_kind").Inc()
		r.logger.Debug("dropping frame with unknown kind", map[string]interface{}{
			"kind": env.Type,
		})
	}
}

func (r *Router) dispatchKeepalive() {
	metrics.FramesDispatched.WithLabelValues(string(KindKeepalive)).Inc()
	for _, fn := range r.subscribersKeepalive() {
		fn()
	}
}

func (r *Router) dispatchNotification(env envelope) {
	if env.Notification == nil {
		metrics.FramesDropped.WithLabelValues("missing_payload").Inc()
		r.logger.Debug("dropping notification frame without payload", nil)
		return
	}
	metrics.FramesDispatched.WithLabelValues(string(KindNotification)).Inc()
	for _, fn := range r.subscribersNotification() {
		fn(*env.Notification)
	}
}

func (r *Router) dispatchChatMessage(env envelope) {
	sentAt, err := time.Parse(time.RFC3339Nano, env.SentAt)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("bad_timestamp").Inc()
		r.logger.Debug("dropping chat frame with unparseable sent_at", map[string]interface{}{
			"messageId": env.MessageID,
			"sentAt":    env.SentAt,
		})
		return
	}

	msg := ChatMessage{
		ID:       env.MessageID,
		RoomID:   env.RoomID,
		AuthorID: env.AuthorID,
		Content:  env.Content,
		SentAt:   sentAt,
	}
	metrics.FramesDispatched.WithLabelValues(string(KindChatMessage)).Inc()
	for _, fn := range r.subscribersChatMessage() {
		fn(msg)
	}
}

func (r *Router) subscribersKeepalive() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(){}, r.keepalive...)
}

func (r *Router) subscribersNotification() []func(Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(Notification){}, r.notifications...)
}

func (r *Router) subscribersChatMessage() []func(ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(ChatMessage){}, r.chatMessages...)
}
