package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

// Event is the closed union of everything a producer can announce on a
// conversation. The unexported marker method keeps the set of kinds sealed
// inside this package.
type Event interface {
	previewEvent()
}

// Kind returns the wire name of the event's variant. It matches the "type"
// discriminator emitted by MarshalJSON.
func Kind(ev Event) string {
	switch ev.(type) {
	case Component:
		return "component"
	case Layout:
		return "layout"
	case Types:
		return "types"
	case Complete:
		return "complete"
	case Error:
		return "error"
	default:
		panic(fmt.Sprintf("unknown event type: %T", ev))
	}
}

// IsTerminal reports whether ev ends its conversation's stream. After a
// terminal event a producer should publish nothing further for that
// conversation.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case Complete, Error:
		return true
	default:
		return false
	}
}

func validProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress must be between 0 and 100, got %d", progress)
	}
	return nil
}

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now().UTC())
}

// Component announces a generated UI component. The same name may appear in
// several events for one conversation, each carrying a more complete version
// of the code.
type Component struct {
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Progress  int             `json:"progress"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Component) previewEvent() {}

// NewComponent builds a component event. The name identifies the component
// across updates and must not be blank, code carries the source emitted so
// far and may still be empty early in generation.
func NewComponent(name, code string, progress int) (Component, error) {
	if strings.TrimSpace(name) == "" {
		return Component{}, errors.New("component events require a name")
	}
	if err := validProgress(progress); err != nil {
		return Component{}, fmt.Errorf("component %q: %w", name, err)
	}
	return Component{Name: name, Code: code, Progress: progress, Timestamp: now()}, nil
}

// Layout announces an update to the generated page structure. Code holds a
// serialized structural description, its format is owned by the producer.
type Layout struct {
	Code      string          `json:"code"`
	Progress  int             `json:"progress"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Layout) previewEvent() {}

// NewLayout builds a layout event.
func NewLayout(code string, progress int) (Layout, error) {
	if err := validProgress(progress); err != nil {
		return Layout{}, fmt.Errorf("layout: %w", err)
	}
	return Layout{Code: code, Progress: progress, Timestamp: now()}, nil
}

// Types announces progress on generated type definitions. It carries no
// payload beyond the progress value.
type Types struct {
	Progress  int             `json:"progress"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Types) previewEvent() {}

// NewTypes builds a types event.
func NewTypes(progress int) (Types, error) {
	if err := validProgress(progress); err != nil {
		return Types{}, fmt.Errorf("types: %w", err)
	}
	return Types{Progress: progress, Timestamp: now()}, nil
}

// Complete announces that generation finished successfully. Terminal, and
// always carries progress 100.
type Complete struct {
	Progress  int             `json:"progress"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Complete) previewEvent() {}

// NewComplete builds a complete event. There is nothing to validate, the
// progress value is fixed at 100.
func NewComplete() Complete {
	return Complete{Progress: 100, Timestamp: now()}
}

// Error announces that generation failed. Terminal, progress is fixed at 0
// and the message is the only payload.
type Error struct {
	Message   string          `json:"message"`
	Progress  int             `json:"progress"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) previewEvent() {}

// Error implements the error interface so a received failure can travel
// through error-shaped plumbing on the consumer side.
func (e Error) Error() string {
	if e.Message == "" {
		return "generation failed"
	}
	return e.Message
}

// NewError builds an error event from a failure message, which must not be
// blank.
func NewError(message string) (Error, error) {
	if strings.TrimSpace(message) == "" {
		return Error{}, errors.New("error events require a message")
	}
	return Error{Message: message, Timestamp: now()}, nil
}
