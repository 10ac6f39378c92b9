// Package render derives the chat payloads shown for an event: the compact
// live announcement with its buttons and the on-demand roster listing. All
// user-facing text lives here, in the guild's Portuguese.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcotta/presenca-bot/internal/chat"
	"github.com/mcotta/presenca-bot/internal/model"
)

// Button IDs the announcement carries; the handler routes presses on them.
const (
	ButtonConfirm = "confirm"
	ButtonDecline = "decline"
)

// Nobody is the placeholder for an empty roster section. Never render an
// empty string: the platform collapses empty fields.
const Nobody = "Ninguém"

// AnnouncementTitle is the convention that lets a live announcement be
// re-located in channel history later. Changing it orphans every
// announcement already posted.
func AnnouncementTitle(eventName string) string {
	return "📅 Evento: " + eventName
}

// EventNameFromTitle recovers the event name from an announcement title.
// The second return is false for titles that are not event announcements.
func EventNameFromTitle(title string) (string, bool) {
	return strings.CutPrefix(title, "📅 Evento: ")
}

// Announcement builds the public summary payload for an event.
func Announcement(eventName string, confirmed, declined int) chat.Announcement {
	return chat.Announcement{
		Title: AnnouncementTitle(eventName),
		Fields: []chat.Field{
			{Name: "✅ Confirmados", Value: strconv.Itoa(confirmed), Inline: true},
			{Name: "❌ Não vão", Value: strconv.Itoa(declined), Inline: true},
		},
		Footer: "Clique abaixo para confirmar ou recusar.",
		Buttons: []chat.Button{
			{ID: ButtonConfirm, Label: "✅ Marcar Presença", Style: "green"},
			{ID: ButtonDecline, Label: "❌ Não vou", Style: "red"},
		},
	}
}

// Roster builds the full listing payload for an event.
func Roster(eventName string, confirmed, declined []model.RosterEntry) chat.Announcement {
	return chat.Announcement{
		Title: "📋 Lista de " + eventName,
		Fields: []chat.Field{
			{Name: "✅ Confirmados", Value: rosterSection(confirmed)},
			{Name: "❌ Não vão", Value: rosterSection(declined)},
		},
	}
}

func rosterSection(entries []model.RosterEntry) string {
	if len(entries) == 0 {
		return Nobody
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("- <@%s> (%s)", e.UserID, e.Class)
	}
	return strings.Join(lines, "\n")
}

// ClassPrompt is the private single-select shown after a button press.
func ClassPrompt() chat.Prompt {
	options := make([]string, 0, len(model.Classes()))
	for _, c := range model.Classes() {
		options = append(options, string(c))
	}
	return chat.Prompt{Text: "Selecione sua classe:", Options: options}
}

// Confirmation is the private reply after a response is recorded.
func Confirmation(intent model.Intent, class model.ClassLabel) string {
	if intent == model.IntentConfirm {
		return fmt.Sprintf("✅ Presença confirmada como %s.", class)
	}
	return fmt.Sprintf("❌ Ausência registrada como %s.", class)
}

// Command replies.
const (
	MsgEventExists   = "⚠️ Este evento já existe."
	MsgEventNotFound = "❌ Evento não encontrado."
	MsgCommandFailed = "⚠️ Não consegui processar o comando, tente novamente."
)

// EventDeleted is the reply after a successful delete.
func EventDeleted(name string) string {
	return fmt.Sprintf("🗑️ Evento **%s** removido.", name)
}
