// Package handler translates inbound chat events — text commands, button
// presses, select submissions — into service calls and drives the replies
// and announcement refreshes back through the gateway.
package handler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcotta/presenca-bot/internal/chat"
	"github.com/mcotta/presenca-bot/internal/model"
	"github.com/mcotta/presenca-bot/internal/render"
	"github.com/mcotta/presenca-bot/internal/service"
	"github.com/mcotta/presenca-bot/internal/store"
)

// Command names the bot answers to. The bridge strips the platform's
// command prefix before forwarding.
const (
	CmdCreateEvent = "criar_evento"
	CmdList        = "lista"
	CmdDeleteEvent = "apagar_evento"
)

// DefaultSelectTimeout is how long a class-selection prompt stays live.
const DefaultSelectTimeout = 30 * time.Second

// session is one user's in-flight response: the button was pressed, the
// class prompt is showing, the choice has not arrived yet.
type session struct {
	id        string
	eventName string
	channelID string
	userID    string
	intent    model.Intent
	promptID  chat.PromptID
	timer     *time.Timer
}

type sessionKey struct {
	userID   string
	promptID chat.PromptID
}

// Router holds all chat-facing handlers for the attendance bot.
type Router struct {
	svc           *service.AttendanceService
	gw            chat.Gateway
	log           *zap.SugaredLogger
	selectTimeout time.Duration

	mu       sync.Mutex
	sessions map[sessionKey]*session
}

// NewRouter constructs a Router. A zero selectTimeout falls back to
// DefaultSelectTimeout.
func NewRouter(svc *service.AttendanceService, gw chat.Gateway, log *zap.SugaredLogger, selectTimeout time.Duration) *Router {
	if selectTimeout <= 0 {
		selectTimeout = DefaultSelectTimeout
	}
	return &Router{
		svc:           svc,
		gw:            gw,
		log:           log,
		selectTimeout: selectTimeout,
		sessions:      make(map[sessionKey]*session),
	}
}

// HandleCommand dispatches a text command. Unknown commands are ignored;
// every failure of a known command turns into a short chat reply, never a
// propagated error.
func (r *Router) HandleCommand(ctx context.Context, cmd chat.Command) {
	name := strings.TrimSpace(cmd.Arg)

	switch cmd.Name {
	case CmdCreateEvent:
		r.createEvent(ctx, cmd.ChannelID, name)
	case CmdList:
		r.listEvent(ctx, cmd.ChannelID, name)
	case CmdDeleteEvent:
		r.deleteEvent(ctx, cmd.ChannelID, name)
	default:
		r.log.Debugw("ignoring unknown command", "command", cmd.Name)
	}
}

func (r *Router) createEvent(ctx context.Context, channelID, name string) {
	if err := r.svc.Create(ctx, name); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			r.reply(ctx, channelID, render.MsgEventExists)
			return
		}
		r.commandFailed(ctx, channelID, "create event", err)
		return
	}
	if _, err := r.gw.PostAnnouncement(ctx, channelID, render.Announcement(name, 0, 0)); err != nil {
		r.log.Errorw("post announcement", "event", name, "error", err)
	}
}

func (r *Router) listEvent(ctx context.Context, channelID, name string) {
	confirmed, declined, err := r.svc.Roster(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.reply(ctx, channelID, render.MsgEventNotFound)
			return
		}
		r.commandFailed(ctx, channelID, "list event", err)
		return
	}
	if _, err := r.gw.PostAnnouncement(ctx, channelID, render.Roster(name, confirmed, declined)); err != nil {
		r.log.Errorw("post roster", "event", name, "error", err)
	}
}

func (r *Router) deleteEvent(ctx context.Context, channelID, name string) {
	if err := r.svc.Delete(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.reply(ctx, channelID, render.MsgEventNotFound)
			return
		}
		r.commandFailed(ctx, channelID, "delete event", err)
		return
	}
	r.reply(ctx, channelID, render.EventDeleted(name))
}

// HandleButton starts an interaction session: it shows the private class
// prompt and arms the expiry timer. The event name comes from the title of
// the announcement the button is attached to.
func (r *Router) HandleButton(ctx context.Context, press chat.ButtonPress) {
	var intent model.Intent
	switch press.ButtonID {
	case render.ButtonConfirm:
		intent = model.IntentConfirm
	case render.ButtonDecline:
		intent = model.IntentDecline
	default:
		r.log.Debugw("ignoring unknown button", "button", press.ButtonID)
		return
	}

	eventName, ok := render.EventNameFromTitle(press.MessageTitle)
	if !ok {
		r.log.Warnw("button press on non-announcement message", "title", press.MessageTitle)
		return
	}

	promptID, err := r.gw.PostEphemeral(ctx, press.ChannelID, press.UserID, render.ClassPrompt())
	if err != nil {
		r.log.Errorw("post class prompt", "event", eventName, "user", press.UserID, "error", err)
		return
	}

	sess := &session{
		id:        uuid.New().String(),
		eventName: eventName,
		channelID: press.ChannelID,
		userID:    press.UserID,
		intent:    intent,
		promptID:  promptID,
	}
	key := sessionKey{userID: press.UserID, promptID: promptID}

	r.mu.Lock()
	sess.timer = time.AfterFunc(r.selectTimeout, func() { r.expireSession(key) })
	r.sessions[key] = sess
	r.mu.Unlock()

	r.log.Debugw("session started",
		"session", sess.id, "event", eventName, "user", press.UserID, "intent", intent)
}

// expireSession abandons a session whose prompt timed out. Nothing is
// recorded and nothing reaches the channel; the prompt just goes inert.
func (r *Router) expireSession(key sessionKey) {
	r.mu.Lock()
	sess, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.gw.ExpirePrompt(ctx, sess.channelID, sess.promptID); err != nil {
		r.log.Debugw("expire prompt", "session", sess.id, "error", err)
	}
	r.log.Debugw("session abandoned", "session", sess.id, "event", sess.eventName, "user", sess.userID)
}

// HandleSelect completes a session: the response is recorded, the user gets
// a private confirmation, and the public announcement is refreshed.
func (r *Router) HandleSelect(ctx context.Context, sel chat.SelectSubmit) {
	key := sessionKey{userID: sel.UserID, promptID: sel.PromptID}

	r.mu.Lock()
	sess, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()
	if !ok {
		// Expired or never existed; the prompt is already inert.
		r.log.Debugw("select with no session", "user", sel.UserID, "prompt", sel.PromptID)
		return
	}
	sess.timer.Stop()

	class := model.ClassLabel(sel.Value)
	if err := r.svc.Record(ctx, sess.eventName, sess.userID, sess.intent, class); err != nil {
		if errors.Is(err, service.ErrUnknownClass) {
			r.log.Warnw("rejected class outside the fixed set",
				"session", sess.id, "class", sel.Value, "user", sess.userID)
			return
		}
		r.log.Errorw("record response", "session", sess.id, "event", sess.eventName, "error", err)
		return
	}

	if err := r.gw.PostPrivate(ctx, sess.channelID, sess.userID, render.Confirmation(sess.intent, class)); err != nil {
		r.log.Warnw("post confirmation", "session", sess.id, "error", err)
	}

	r.refreshAnnouncement(ctx, sess.channelID, sess.eventName)
}

// refreshAnnouncement re-locates the event's live announcement in recent
// history and rewrites its counts. A missing announcement is skipped
// silently: it scrolled out of the window or was deleted, and there is no
// fallback.
func (r *Router) refreshAnnouncement(ctx context.Context, channelID, eventName string) {
	confirmed, declined, err := r.svc.Summary(ctx, eventName)
	if err != nil {
		r.log.Errorw("summarize event", "event", eventName, "error", err)
		return
	}

	msg, found, err := chat.FindAnnouncement(ctx, r.gw, channelID, render.AnnouncementTitle(eventName))
	if err != nil {
		r.log.Warnw("scan history for announcement", "event", eventName, "error", err)
		return
	}
	if !found {
		r.log.Debugw("announcement not in recent history, skipping refresh", "event", eventName)
		return
	}

	if err := r.gw.EditAnnouncement(ctx, msg, render.Announcement(eventName, confirmed, declined)); err != nil {
		r.log.Warnw("edit announcement", "event", eventName, "error", err)
	}
}

// reply posts a short channel message, logging instead of failing when the
// gateway is down.
func (r *Router) reply(ctx context.Context, channelID, text string) {
	if err := r.gw.PostMessage(ctx, channelID, text); err != nil {
		r.log.Errorw("post reply", "error", err)
	}
}

func (r *Router) commandFailed(ctx context.Context, channelID, op string, err error) {
	r.log.Errorw(op, "error", err)
	r.reply(ctx, channelID, render.MsgCommandFailed)
}
