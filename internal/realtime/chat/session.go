// internal/realtime/chat/session.go

// Package chat implements a per-room chat session: paged history over REST
// merged with live messages from the room's push channel. Message identity
// is the message id, so replayed history pages and echoed sends are
// idempotent.
package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"collab-client/internal/common/errors"
	"collab-client/internal/common/logger"
	"collab-client/internal/common/metrics"
	"collab-client/internal/platform/rest"
	"collab-client/internal/realtime/connection"
	"collab-client/internal/realtime/router"
)

// HistoryAPI is the REST surface a session needs.
type HistoryAPI interface {
	ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]rest.Message, error)
	SendMessage(ctx context.Context, roomID, content string) (*rest.Message, error)
}

// ChannelOpener is the push channel surface a session needs.
type ChannelOpener interface {
	Open(ctx context.Context, key string, buildURL func(token string) string, onFrame connection.FrameHandler) (*connection.Handle, error)
	Close(h *connection.Handle)
	State(h *connection.Handle) connection.State
}

// Options tunes session behavior.
type Options struct {
	// PageLimit is the history page size. Zero means 50.
	PageLimit int
}

// Session is one open chat room. All exported methods are safe for
// concurrent use.
type Session struct {
	mu       sync.Mutex
	roomID   string
	api      HistoryAPI
	opener   ChannelOpener
	buildURL func(token string) string
	logger   logger.Logger
	limit    int

	handle   *connection.Handle
	router   *router.Router
	messages []rest.Message
	byID     map[string]int
	hasMore  bool
	onChange func()
}

func NewSession(roomID string, api HistoryAPI, opener ChannelOpener, buildURL func(token string) string, log logger.Logger, opts Options) *Session {
	limit := opts.PageLimit
	if limit <= 0 {
		limit = 50
	}
	s := &Session{
		roomID:   roomID,
		api:      api,
		opener:   opener,
		buildURL: buildURL,
		logger:   log.WithFields(map[string]interface{}{"component": "chat", "room": roomID}),
		limit:    limit,
		byID:     make(map[string]int),
		hasMore:  true,
	}
	s.router = router.New(s.logger)
	s.router.OnChatMessage(s.onIncoming)
	return s
}

// OnChange registers the render callback, invoked after every visible
// change to the message list.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Connect opens the room's push channel. History is loaded separately so
// a failed channel open does not block reading the transcript.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	h, err := s.opener.Open(ctx, connection.ChatKey(s.roomID), s.buildURL, s.router.HandleFrame)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	return nil
}

// State reports the push channel state, or ClosedFinal before Connect.
func (s *Session) State() connection.State {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	return s.opener.State(h)
}

// LoadHistory fetches the most recent page and merges it.
func (s *Session) LoadHistory(ctx context.Context) error {
	return s.loadPage(ctx, time.Time{})
}

// RefreshHistory re-fetches the most recent page. Reconnecting does not do
// this automatically; callers who want to close a gap left by an outage
// call it explicitly. Merging by id makes it safe to call at any time.
func (s *Session) RefreshHistory(ctx context.Context) error {
	return s.loadPage(ctx, time.Time{})
}

// LoadOlder fetches the page before the oldest held message. It is a
// no-op once the server returns a short page.
func (s *Session) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	var before time.Time
	if len(s.messages) > 0 {
		before = s.messages[0].SentAt
	}
	s.mu.Unlock()

	if before.IsZero() {
		return s.loadPage(ctx, time.Time{})
	}
	return s.loadPage(ctx, before)
}

func (s *Session) loadPage(ctx context.Context, before time.Time) error {
	page, err := s.api.ListMessages(ctx, s.roomID, before, s.limit)
	if err != nil {
		return errors.NewHistoryFetchError(s.roomID, err)
	}

	s.mu.Lock()
	if len(page) < s.limit {
		s.hasMore = false
	}
	changed := false
	for i := range page {
		if s.mergeLocked(page[i]) {
			changed = true
		}
	}
	fn := s.onChange
	s.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
	return nil
}

// Send posts the message over REST. The sent message is rendered only
// when its echo arrives on the push channel; merging here would race the
// echo and merge-by-id already makes the echo idempotent.
func (s *Session) Send(ctx context.Context, content string) error {
	if _, err := s.api.SendMessage(ctx, s.roomID, content); err != nil {
		return errors.NewMessageSendError(s.roomID, err)
	}
	return nil
}

// Messages returns the held transcript, oldest first.
func (s *Session) Messages() []rest.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rest.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// HasMore reports whether older pages may remain on the server.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Close tears down the push channel. The transcript stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h != nil {
		s.opener.Close(h)
	}
}

// onIncoming merges one live message. Frames for other rooms can arrive
// when a shared channel multiplexes rooms; they are ignored here.
func (s *Session) onIncoming(msg router.ChatMessage) {
	if msg.RoomID != s.roomID {
		return
	}

	s.mu.Lock()
	changed := s.mergeLocked(rest.Message{
		ID:       msg.ID,
		RoomID:   msg.RoomID,
		AuthorID: msg.AuthorID,
		Content:  msg.Content,
		SentAt:   msg.SentAt,
	})
	fn := s.onChange
	s.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}

// mergeLocked inserts one message in SentAt order. A message already held
// under the same id is ignored, so duplicate delivery is absorbed rather
// than appended. Caller holds s.mu.
func (s *Session) mergeLocked(msg rest.Message) bool {
	if _, ok := s.byID[msg.ID]; ok {
		return false
	}

	pos := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].SentAt.After(msg.SentAt)
	})
	s.messages = append(s.messages, rest.Message{})
	copy(s.messages[pos+1:], s.messages[pos:])
	s.messages[pos] = msg
	for id, i := range s.byID {
		if i >= pos {
			s.byID[id] = i + 1
		}
	}
	s.byID[msg.ID] = pos
	metrics.ChatMessagesMerged.WithLabelValues(s.roomID).Inc()
	return true
}
