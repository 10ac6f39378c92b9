package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame ops spoken on the bridge socket. Inbound events carry platform
// activity toward the bot; requests flow the other way and are answered by
// result frames correlated on the request ID.
const (
	opCommand = "command"
	opButton  = "button"
	opSelect  = "select"
	opResult  = "result"

	opPostAnnouncement = "post_announcement"
	opEditAnnouncement = "edit_announcement"
	opPostMessage      = "post_message"
	opPostPrivate      = "post_private"
	opPostEphemeral    = "post_ephemeral"
	opExpirePrompt     = "expire_prompt"
	opRecentMessages   = "recent_messages"
)

// frame is the single wire envelope of the bridge protocol.
type frame struct {
	Op      string          `json:"op"`
	ID      string          `json:"id,omitempty"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// BridgeClient implements Gateway over a websocket connection to a chat
// relay. One goroutine owns reads (Run); writes serialize on a mutex so
// concurrent interaction sessions can issue requests freely.
type BridgeClient struct {
	url   string
	token string
	log   *zap.SugaredLogger

	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan frame
}

// NewBridgeClient constructs a client for the given bridge URL. The token
// is sent as a bearer credential during the websocket handshake.
func NewBridgeClient(url, token string, log *zap.SugaredLogger) *BridgeClient {
	return &BridgeClient{
		url:     url,
		token:   token,
		log:     log,
		pending: make(map[string]chan frame),
	}
}

// Dial opens the websocket connection.
func (c *BridgeClient) Dial(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial bridge %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial bridge %s: %w", c.url, err)
	}
	c.conn = conn
	return nil
}

// Run reads frames until the connection or context ends, dispatching each
// inbound event to the handler on its own goroutine. Result frames are
// routed to whichever request is waiting on them.
func (c *BridgeClient) Run(ctx context.Context, h Handler) error {
	if c.conn == nil {
		return fmt.Errorf("bridge: Run called before Dial")
	}
	defer c.conn.Close()

	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bridge read: %w", err)
		}

		switch f.Op {
		case opResult:
			c.resolve(f)
		case opCommand:
			var cmd Command
			if err := json.Unmarshal(f.Data, &cmd); err != nil {
				c.log.Warnw("bridge: bad command frame", "error", err)
				continue
			}
			go h.HandleCommand(ctx, cmd)
		case opButton:
			var press ButtonPress
			if err := json.Unmarshal(f.Data, &press); err != nil {
				c.log.Warnw("bridge: bad button frame", "error", err)
				continue
			}
			go h.HandleButton(ctx, press)
		case opSelect:
			var sel SelectSubmit
			if err := json.Unmarshal(f.Data, &sel); err != nil {
				c.log.Warnw("bridge: bad select frame", "error", err)
				continue
			}
			go h.HandleSelect(ctx, sel)
		default:
			c.log.Debugw("bridge: ignoring frame", "op", f.Op)
		}
	}
}

func (c *BridgeClient) resolve(f frame) {
	c.pendingMu.Lock()
	ch, ok := c.pending[f.ReplyTo]
	if ok {
		delete(c.pending, f.ReplyTo)
	}
	c.pendingMu.Unlock()
	if !ok {
		c.log.Debugw("bridge: result for unknown request", "reply_to", f.ReplyTo)
		return
	}
	ch <- f
}

// request sends one frame and waits for its correlated result. out may be
// nil when the reply carries no payload of interest.
func (c *BridgeClient) request(ctx context.Context, op string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", op, err)
	}

	id := uuid.New().String()
	ch := make(chan frame, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(frame{Op: op, ID: id, Data: data})
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("write %s: %w", op, err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return ctx.Err()
	case reply := <-ch:
		if reply.Error != "" {
			return fmt.Errorf("bridge %s: %s", op, reply.Error)
		}
		if out != nil && len(reply.Data) > 0 {
			if err := json.Unmarshal(reply.Data, out); err != nil {
				return fmt.Errorf("decode %s result: %w", op, err)
			}
		}
		return nil
	}
}

type postAnnouncementReq struct {
	ChannelID    string       `json:"channel_id"`
	Announcement Announcement `json:"announcement"`
}

// PostAnnouncement publishes a public announcement and returns its handle.
func (c *BridgeClient) PostAnnouncement(ctx context.Context, channelID string, a Announcement) (Message, error) {
	var msg Message
	err := c.request(ctx, opPostAnnouncement, postAnnouncementReq{ChannelID: channelID, Announcement: a}, &msg)
	return msg, err
}

type editAnnouncementReq struct {
	Message      Message      `json:"message"`
	Announcement Announcement `json:"announcement"`
}

// EditAnnouncement replaces the payload of an existing announcement.
func (c *BridgeClient) EditAnnouncement(ctx context.Context, msg Message, a Announcement) error {
	return c.request(ctx, opEditAnnouncement, editAnnouncementReq{Message: msg, Announcement: a}, nil)
}

type postMessageReq struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// PostMessage sends a plain text message to a channel.
func (c *BridgeClient) PostMessage(ctx context.Context, channelID, text string) error {
	return c.request(ctx, opPostMessage, postMessageReq{ChannelID: channelID, Text: text}, nil)
}

type postPrivateReq struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// PostPrivate sends a text message only the given user can see.
func (c *BridgeClient) PostPrivate(ctx context.Context, channelID, userID, text string) error {
	return c.request(ctx, opPostPrivate, postPrivateReq{ChannelID: channelID, UserID: userID, Text: text}, nil)
}

type postEphemeralReq struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Prompt    Prompt `json:"prompt"`
}

type postEphemeralResp struct {
	PromptID PromptID `json:"prompt_id"`
}

// PostEphemeral shows a private prompt to one user and returns its ID.
func (c *BridgeClient) PostEphemeral(ctx context.Context, channelID, userID string, p Prompt) (PromptID, error) {
	var resp postEphemeralResp
	err := c.request(ctx, opPostEphemeral, postEphemeralReq{ChannelID: channelID, UserID: userID, Prompt: p}, &resp)
	return resp.PromptID, err
}

type expirePromptReq struct {
	ChannelID string   `json:"channel_id"`
	PromptID  PromptID `json:"prompt_id"`
}

// ExpirePrompt renders a pending ephemeral prompt inert.
func (c *BridgeClient) ExpirePrompt(ctx context.Context, channelID string, id PromptID) error {
	return c.request(ctx, opExpirePrompt, expirePromptReq{ChannelID: channelID, PromptID: id}, nil)
}

type recentMessagesReq struct {
	ChannelID string `json:"channel_id"`
	Limit     int    `json:"limit"`
}

type recentMessagesResp struct {
	Messages []Message `json:"messages"`
}

// RecentMessages returns up to limit messages, newest first.
func (c *BridgeClient) RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	var resp recentMessagesResp
	err := c.request(ctx, opRecentMessages, recentMessagesReq{ChannelID: channelID, Limit: limit}, &resp)
	return resp.Messages, err
}
