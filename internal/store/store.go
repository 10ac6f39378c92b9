// Package store implements persistence for the attendance bot's event
// records. Two backends share one contract: a whole-file JSON store (the
// default) and a PostgreSQL store for deployments that already run a
// database.
package store

import (
	"context"
	"errors"

	"github.com/mcotta/presenca-bot/internal/model"
)

// ErrAlreadyExists is returned when creating an event whose name is taken.
var ErrAlreadyExists = errors.New("event already exists")

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("event not found")

// ErrMalformedState is returned when persisted state cannot be parsed.
// There is no recovery path; callers treat it as fatal at startup.
var ErrMalformedState = errors.New("malformed persisted state")

// EventStore is the persistence contract shared by all backends.
//
// Record applies a member's response and persists it in the same call. An
// event that was never created is created implicitly on its first response;
// the guild relies on that when an announcement outlives a wiped store.
type EventStore interface {
	Load(ctx context.Context) error
	Create(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*model.Event, error)
	Record(ctx context.Context, name, userID string, intent model.Intent, class model.ClassLabel) error
}

// cloneEvent returns a deep copy so callers can read a snapshot without
// holding the store's lock.
func cloneEvent(e *model.Event) *model.Event {
	out := model.NewEvent()
	for uid, class := range e.Confirmed {
		out.Confirmed[uid] = class
	}
	for uid, class := range e.Declined {
		out.Declined[uid] = class
	}
	return out
}
