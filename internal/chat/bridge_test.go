package chat

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
	"go.uber.org/zap"
)

// collectHandler records inbound events for assertions.
type collectHandler struct {
	mu       sync.Mutex
	commands []Command
}

func (h *collectHandler) HandleCommand(ctx context.Context, cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

func (h *collectHandler) HandleButton(ctx context.Context, press ButtonPress) {}

func (h *collectHandler) HandleSelect(ctx context.Context, sel SelectSubmit) {}

func (h *collectHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands)
}

// newBridgeServer runs a minimal relay: it pushes one command event on
// connect, then answers every request with a canned result.
func newBridgeServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		cmdData, _ := json.Marshal(Command{Name: "lista", Arg: "Raid1", ChannelID: "ch", UserID: "ana"})
		assert.NoError(t, conn.WriteJSON(frame{Op: opCommand, Data: cmdData}))

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			switch f.Op {
			case opPostAnnouncement:
				var req postAnnouncementReq
				assert.NoError(t, json.Unmarshal(f.Data, &req))
				data, _ := json.Marshal(Message{ID: "m1", ChannelID: req.ChannelID, Title: req.Announcement.Title})
				_ = conn.WriteJSON(frame{Op: opResult, ReplyTo: f.ID, Data: data})
			case opRecentMessages:
				data, _ := json.Marshal(recentMessagesResp{Messages: []Message{{ID: "m1", Title: "📅 Evento: Raid1"}}})
				_ = conn.WriteJSON(frame{Op: opResult, ReplyTo: f.ID, Data: data})
			case opPostMessage:
				_ = conn.WriteJSON(frame{Op: opResult, ReplyTo: f.ID})
			default:
				_ = conn.WriteJSON(frame{Op: opResult, ReplyTo: f.ID, Error: "unsupported op"})
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBridgeRoundTrip(t *testing.T) {
	srv := newBridgeServer(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewBridgeClient(wsURL(srv), "sekrit", zap.NewNop().Sugar())
	require.NoError(t, c.Dial(ctx))

	h := &collectHandler{}
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, h) }()

	// The relay pushed one command on connect.
	assert.Eventually(t, func() bool { return h.count() == 1 }, time.Second, 5*time.Millisecond)

	msg, err := c.PostAnnouncement(ctx, "ch", Announcement{Title: "📅 Evento: Raid1"})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "📅 Evento: Raid1", msg.Title)

	msgs, err := c.RecentMessages(ctx, "ch", HistoryWindow)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, c.PostMessage(ctx, "ch", "oi"))

	// Errors from the relay surface on the caller, not the read loop.
	err = c.EditAnnouncement(ctx, msg, Announcement{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported op")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestBridgeRunBeforeDial(t *testing.T) {
	c := NewBridgeClient("ws://nowhere", "", zap.NewNop().Sugar())
	err := c.Run(context.Background(), &collectHandler{})
	assert.Error(t, err)
}
