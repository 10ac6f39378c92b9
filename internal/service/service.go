// Package service implements business logic and validation between the
// chat-facing handlers and the persistence layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcotta/presenca-bot/internal/model"
	"github.com/mcotta/presenca-bot/internal/store"
)

// ErrUnknownClass is returned when a response carries a class label outside
// the fixed set. The selection prompt only offers valid labels, but the
// gateway is an external collaborator and is not trusted to enforce that.
var ErrUnknownClass = errors.New("unknown class label")

// AttendanceService orchestrates event and response operations.
type AttendanceService struct {
	store    store.EventStore
	validate *validator.Validate
}

// recordInput is validated before any response reaches the store.
type recordInput struct {
	EventName string           `validate:"required"`
	UserID    string           `validate:"required"`
	Intent    model.Intent     `validate:"required,oneof=confirm decline"`
	Class     model.ClassLabel `validate:"required,class"`
}

// NewAttendanceService constructs an AttendanceService with its dependencies.
func NewAttendanceService(st store.EventStore) *AttendanceService {
	v := validator.New()
	// "class" checks membership in the fixed label set so the enum lives in
	// one place (model.Classes) instead of a struct tag.
	_ = v.RegisterValidation("class", func(fl validator.FieldLevel) bool {
		return model.ValidClass(model.ClassLabel(fl.Field().String()))
	})
	return &AttendanceService{store: st, validate: v}
}

// Create validates the event name and creates an empty event.
func (s *AttendanceService) Create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("event name is required")
	}
	return s.store.Create(ctx, name)
}

// Delete removes an event.
func (s *AttendanceService) Delete(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("event name is required")
	}
	return s.store.Delete(ctx, name)
}

// Record validates and applies a member's response. An event that does not
// exist yet is created implicitly — the first responder to a stale
// announcement still gets recorded.
func (s *AttendanceService) Record(ctx context.Context, name, userID string, intent model.Intent, class model.ClassLabel) error {
	in := recordInput{EventName: name, UserID: userID, Intent: intent, Class: class}
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "Class" {
					return fmt.Errorf("%w: %q", ErrUnknownClass, class)
				}
			}
		}
		return fmt.Errorf("invalid response: %w", err)
	}
	return s.store.Record(ctx, name, userID, intent, class)
}

// Summary returns the confirmed and declined counts for an event.
func (s *AttendanceService) Summary(ctx context.Context, name string) (confirmed, declined int, err error) {
	event, err := s.store.Get(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	return len(event.Confirmed), len(event.Declined), nil
}

// Roster returns the ordered confirmed and declined listings for an event.
func (s *AttendanceService) Roster(ctx context.Context, name string) (confirmed, declined []model.RosterEntry, err error) {
	event, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return event.ConfirmedRoster(), event.DeclinedRoster(), nil
}
