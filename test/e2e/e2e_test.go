// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-client/internal/common/auth"
	"collab-client/internal/common/logger"
	"collab-client/internal/platform/rest"
	"collab-client/internal/realtime/chat"
	"collab-client/internal/realtime/clock"
	"collab-client/internal/realtime/connection"
	"collab-client/internal/realtime/router"
	"collab-client/internal/realtime/toast"
	"collab-client/internal/realtime/unread"
)

// ==========================
// In-Process Platform Server
// ==========================

// platformServer fakes the collaboration backend: push channels over
// websocket plus the REST endpoints the client consumes.
type platformServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	notifConns []*websocket.Conn
	chatConns  map[string][]*websocket.Conn
	dialCounts map[string]int
	history    map[string][]rest.Message
	snapshot   rest.Snapshot
	markedIDs  []string
}

func newPlatformServer(t *testing.T) *platformServer {
	p := &platformServer{
		t:          t,
		chatConns:  make(map[string][]*websocket.Conn),
		dialCounts: make(map[string]int),
		history:    make(map[string][]rest.Message),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/notifications", p.handleNotificationsWS)
	mux.HandleFunc("/ws/chat/", p.handleChatWS)
	mux.HandleFunc("/notifications-snapshot", p.handleSnapshot)
	mux.HandleFunc("/notifications/mark-read", p.handleMarkRead)
	mux.HandleFunc("/chat/rooms/", p.handleHistory)

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *platformServer) wsBase() string {
	return strings.Replace(p.srv.URL, "http://", "ws://", 1)
}

func (p *platformServer) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") != "e2e-token" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.notifConns = append(p.notifConns, conn)
	p.dialCounts["notifications"]++
	p.mu.Unlock()
	go discardReads(conn)
}

func (p *platformServer) handleChatWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/ws/chat/")
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.chatConns[roomID] = append(p.chatConns[roomID], conn)
	p.dialCounts["chat:"+roomID]++
	p.mu.Unlock()
	go discardReads(conn)
}

// discardReads keeps the server side of one connection drained so client
// pings do not back up.
func discardReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *platformServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	snap := p.snapshot
	p.mu.Unlock()
	json.NewEncoder(w).Encode(snap)
}

func (p *platformServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	p.mu.Lock()
	p.markedIDs = req.IDs
	p.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (p *platformServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/chat/rooms/"), "/")
	roomID := parts[0]

	if r.Method == http.MethodPost {
		var req struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		msg := rest.Message{
			ID:      "srv-" + req.Content,
			RoomID:  roomID,
			Content: req.Content,
			SentAt:  time.Now().UTC(),
		}
		// The echo over the push channel is the client's render path.
		p.pushChat(roomID, msg)
		json.NewEncoder(w).Encode(msg)
		return
	}

	p.mu.Lock()
	msgs := p.history[roomID]
	p.mu.Unlock()
	json.NewEncoder(w).Encode(rest.HistoryPage{Messages: msgs})
}

func (p *platformServer) pushNotification(title, message string) {
	frame := map[string]interface{}{
		"type": "notification",
		"notification": map[string]interface{}{
			"title":    title,
			"message":  message,
			"severity": "info",
		},
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.notifConns {
		conn.WriteJSON(frame)
	}
}

func (p *platformServer) pushChat(roomID string, msg rest.Message) {
	frame := map[string]interface{}{
		"type":       "chat_message",
		"message_id": msg.ID,
		"room_id":    msg.RoomID,
		"author_id":  msg.AuthorID,
		"content":    msg.Content,
		"sent_at":    msg.SentAt.Format(time.RFC3339Nano),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.chatConns[roomID] {
		conn.WriteJSON(frame)
	}
}

func (p *platformServer) dropNotificationConns() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.notifConns {
		conn.Close()
	}
	p.notifConns = nil
}

func (p *platformServer) dialCount(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialCounts[key]
}

func newClientStack(t *testing.T, p *platformServer) (*connection.Manager, *rest.Client) {
	tokens := &auth.StaticTokenSource{AccessToken: "e2e-token"}
	mgr := connection.NewManager(
		connection.NewWebsocketDialer(),
		tokens,
		clock.New(),
		logger.NewTestLogger(t),
		connection.Options{
			BackoffBase: 25 * time.Millisecond,
			BackoffCap:  100 * time.Millisecond,
		},
	)
	t.Cleanup(mgr.CloseAll)
	restClient := rest.NewClient(p.srv.URL, 5*time.Second, tokens)
	return mgr, restClient
}

// ==========================
// Pipeline Tests
// ==========================

func TestNotificationPipeline(t *testing.T) {
	p := newPlatformServer(t)
	p.snapshot = rest.Snapshot{
		Total:       5,
		UnreadCount: 2,
		Items: []rest.NotificationItem{
			{ID: "n1", Title: "old", Read: false},
			{ID: "n2", Title: "older", Read: false},
		},
	}

	mgr, restClient := newClientStack(t, p)
	log := logger.NewTestLogger(t)

	toasts := toast.NewQueue(clock.New(), log)
	counter := unread.NewCounter(restClient, log)

	r := router.New(log)
	r.OnNotification(func(n router.Notification) {
		toasts.Add(toast.Toast{
			Severity: toast.Severity(n.Severity),
			Title:    n.Title,
			Message:  n.Message,
		})
		counter.IncrementOptimistic()
	})

	counter.FetchSnapshot(context.Background())
	require.Equal(t, 2, counter.Count())

	h, err := mgr.Open(context.Background(), connection.NotificationsKey,
		connection.NotificationsURL(p.wsBase()), r.HandleFrame)
	require.NoError(t, err)
	defer mgr.Close(h)

	p.pushNotification("Mention", "alice mentioned you")
	p.pushNotification("Invite", "bob invited you")

	require.Eventually(t, func() bool {
		return len(toasts.Active()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	active := toasts.Active()
	assert.Equal(t, "Invite", active[0].Title, "newest toast first")
	assert.Equal(t, "Mention", active[1].Title)
	assert.Equal(t, 4, counter.Count())

	// Snapshot re-fetch overwrites the optimistic count.
	counter.FetchSnapshot(context.Background())
	assert.Equal(t, 2, counter.Count())

	// Mark-all-read posts the snapshot's unread ids and zeroes the badge.
	require.NoError(t, counter.MarkAllRead(context.Background()))
	assert.Equal(t, 0, counter.Count())
	p.mu.Lock()
	assert.Equal(t, []string{"n1", "n2"}, p.markedIDs)
	p.mu.Unlock()
}

func TestChatPipeline(t *testing.T) {
	p := newPlatformServer(t)
	sentAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p.history["room-1"] = []rest.Message{
		{ID: "m1", RoomID: "room-1", AuthorID: "alice", Content: "hello", SentAt: sentAt},
	}

	mgr, restClient := newClientStack(t, p)

	session := chat.NewSession("room-1", restClient, mgr,
		connection.ChatRoomURL(p.wsBase(), "room-1"),
		logger.NewTestLogger(t), chat.Options{PageLimit: 50})
	defer session.Close()

	require.NoError(t, session.Connect(context.Background()))
	require.NoError(t, session.LoadHistory(context.Background()))
	require.Len(t, session.Messages(), 1)

	// Send travels over REST; the message renders only once the server
	// echoes it back over the push channel.
	require.NoError(t, session.Send(context.Background(), "hi all"))

	require.Eventually(t, func() bool {
		return len(session.Messages()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	msgs := session.Messages()
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "hi all", msgs[1].Content)
}

func TestReconnectAfterServerDrop(t *testing.T) {
	p := newPlatformServer(t)
	mgr, _ := newClientStack(t, p)

	r := router.New(logger.NewTestLogger(t))
	h, err := mgr.Open(context.Background(), connection.NotificationsKey,
		connection.NotificationsURL(p.wsBase()), r.HandleFrame)
	require.NoError(t, err)
	defer mgr.Close(h)

	require.Equal(t, 1, p.dialCount("notifications"))

	p.dropNotificationConns()

	require.Eventually(t, func() bool {
		return p.dialCount("notifications") >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return mgr.State(h) == connection.StateOpen
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOpenRejectedWithoutToken(t *testing.T) {
	p := newPlatformServer(t)

	mgr := connection.NewManager(
		connection.NewWebsocketDialer(),
		&auth.StaticTokenSource{AccessToken: ""},
		clock.New(),
		logger.NewTestLogger(t),
		connection.Options{},
	)
	t.Cleanup(mgr.CloseAll)

	r := router.New(logger.NewTestLogger(t))
	h, err := mgr.Open(context.Background(), connection.NotificationsKey,
		connection.NotificationsURL(p.wsBase()), r.HandleFrame)

	assert.Nil(t, h)
	assert.Error(t, err)
	assert.Equal(t, 0, p.dialCount("notifications"))
}
