// Package model defines the core domain types for the attendance bot.
package model

import "sort"

// ClassLabel is one of the fixed in-game classes a member picks when
// responding to an event announcement.
type ClassLabel string

// The closed set of classes offered by the selection prompt. The order
// here is the order the prompt displays them in.
const (
	ClassShura    ClassLabel = "Shura"
	ClassRK       ClassLabel = "RK"
	ClassRG       ClassLabel = "RG"
	ClassGX       ClassLabel = "GX"
	ClassAB       ClassLabel = "AB"
	ClassMusa     ClassLabel = "Musa"
	ClassTrovador ClassLabel = "Trovador"
	ClassSorc     ClassLabel = "Sorc"
	ClassWL       ClassLabel = "WL"
	ClassSL       ClassLabel = "SL"
	ClassRanger   ClassLabel = "Ranger"
	ClassMecha    ClassLabel = "Mecha"
	ClassBio      ClassLabel = "Bio"
	ClassRenegado ClassLabel = "Renegado"
)

var classes = []ClassLabel{
	ClassShura, ClassRK, ClassRG, ClassGX, ClassAB, ClassMusa, ClassTrovador,
	ClassSorc, ClassWL, ClassSL, ClassRanger, ClassMecha, ClassBio, ClassRenegado,
}

// Classes returns the fixed, ordered class list. Callers must not mutate
// the returned slice.
func Classes() []ClassLabel {
	return classes
}

// ValidClass reports whether label belongs to the fixed class set.
func ValidClass(label ClassLabel) bool {
	for _, c := range classes {
		if c == label {
			return true
		}
	}
	return false
}

// Intent is a member's answer to an announcement: attending or not.
type Intent string

const (
	IntentConfirm Intent = "confirm"
	IntentDecline Intent = "decline"
)

// Event is a named attendance record. A user ID appears in at most one of
// Confirmed/Declined at any time; Record enforces that.
//
// The JSON keys are the persisted wire format and must not change: existing
// eventos.json files in the field use them.
type Event struct {
	Confirmed map[string]ClassLabel `json:"presentes"`
	Declined  map[string]ClassLabel `json:"nao_vou"`
}

// NewEvent returns an Event with both response maps allocated.
func NewEvent() *Event {
	return &Event{
		Confirmed: make(map[string]ClassLabel),
		Declined:  make(map[string]ClassLabel),
	}
}

// Record applies a member's response. Confirming removes any standing
// decline and vice versa; responding again simply overwrites the class.
func (e *Event) Record(userID string, intent Intent, class ClassLabel) {
	switch intent {
	case IntentConfirm:
		e.Confirmed[userID] = class
		delete(e.Declined, userID)
	case IntentDecline:
		e.Declined[userID] = class
		delete(e.Confirmed, userID)
	}
}

// RosterEntry is one member's response in a roster listing.
type RosterEntry struct {
	UserID string
	Class  ClassLabel
}

// ConfirmedRoster returns the confirmed responses ordered by user ID.
func (e *Event) ConfirmedRoster() []RosterEntry {
	return rosterOf(e.Confirmed)
}

// DeclinedRoster returns the declined responses ordered by user ID.
func (e *Event) DeclinedRoster() []RosterEntry {
	return rosterOf(e.Declined)
}

func rosterOf(m map[string]ClassLabel) []RosterEntry {
	entries := make([]RosterEntry, 0, len(m))
	for uid, class := range m {
		entries = append(entries, RosterEntry{UserID: uid, Class: class})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}
