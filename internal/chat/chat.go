// Package chat defines the collaborator seam between the bot and the chat
// platform: the message/interaction types the bot consumes and produces, the
// Gateway interface it talks through, and a websocket bridge client
// implementing that interface against a platform-specific relay.
package chat

import "context"

// Message identifies a message the platform has posted. The bot keeps no
// message registry; announcements are re-located by title when they need
// updating.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Title     string `json:"title,omitempty"`
}

// Field is one name/value pair of an announcement body.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Button is an interactive control attached to an announcement.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Style string `json:"style,omitempty"`
}

// Announcement is the rich payload of a public event message.
type Announcement struct {
	Title   string   `json:"title"`
	Fields  []Field  `json:"fields,omitempty"`
	Footer  string   `json:"footer,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Prompt is a private single-select shown to one user after a button press.
type Prompt struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// PromptID identifies a pending ephemeral prompt.
type PromptID string

// Command is a text command addressed to the bot.
type Command struct {
	Name      string `json:"name"`
	Arg       string `json:"arg"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// ButtonPress is a click on an announcement button. MessageTitle is the
// title of the message the button belongs to; the handler derives the event
// name from it.
type ButtonPress struct {
	ChannelID    string `json:"channel_id"`
	MessageID    string `json:"message_id"`
	MessageTitle string `json:"message_title"`
	UserID       string `json:"user_id"`
	ButtonID     string `json:"button_id"`
}

// SelectSubmit is a completed choice on an ephemeral prompt.
type SelectSubmit struct {
	ChannelID string   `json:"channel_id"`
	UserID    string   `json:"user_id"`
	PromptID  PromptID `json:"prompt_id"`
	Value     string   `json:"value"`
}

// Handler receives inbound platform events. Implementations must be safe
// for concurrent calls: the bridge dispatches each event on its own
// goroutine.
type Handler interface {
	HandleCommand(ctx context.Context, cmd Command)
	HandleButton(ctx context.Context, press ButtonPress)
	HandleSelect(ctx context.Context, sel SelectSubmit)
}

// Gateway is everything the bot asks of the chat platform.
type Gateway interface {
	PostAnnouncement(ctx context.Context, channelID string, a Announcement) (Message, error)
	EditAnnouncement(ctx context.Context, msg Message, a Announcement) error
	PostMessage(ctx context.Context, channelID, text string) error
	PostPrivate(ctx context.Context, channelID, userID, text string) error
	PostEphemeral(ctx context.Context, channelID, userID string, p Prompt) (PromptID, error)
	ExpirePrompt(ctx context.Context, channelID string, id PromptID) error
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// HistoryWindow bounds the recent-history scan used to re-locate an
// announcement. Older announcements simply stop receiving live updates.
const HistoryWindow = 50

// FindAnnouncement scans the channel's recent history for the announcement
// carrying the given title. A miss is a normal outcome, not an error: the
// announcement may have scrolled out of the window or been deleted.
func FindAnnouncement(ctx context.Context, gw Gateway, channelID, title string) (Message, bool, error) {
	msgs, err := gw.RecentMessages(ctx, channelID, HistoryWindow)
	if err != nil {
		return Message{}, false, err
	}
	for _, m := range msgs {
		if m.Title == title {
			return m, true, nil
		}
	}
	return Message{}, false, nil
}
