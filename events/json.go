package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	componentJSON = []byte(`{"type":"component"}`)
	layoutJSON    = []byte(`{"type":"layout"}`)
	typesJSON     = []byte(`{"type":"types"}`)
	completeJSON  = []byte(`{"type":"complete"}`)
	errorJSON     = []byte(`{"type":"error"}`)
)

// Unmarshal decodes a single wire event, dispatching on the "type"
// discriminator. It is the entry point for transports that receive events as
// raw JSON, and applies the same validation the constructors do.
func Unmarshal(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	kind := gjson.GetBytes(data, "type")
	if !kind.Exists() {
		return nil, errors.New("missing required field 'type'")
	}

	switch kind.String() {
	case "component":
		var ev Component
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "layout":
		var ev Layout
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "types":
		var ev Types
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "complete":
		var ev Complete
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev Error
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", kind.String())
	}
}

func progressField(data []byte) (int, error) {
	progress := gjson.GetBytes(data, "progress")
	if !progress.Exists() {
		return 0, errors.New("missing required field 'progress'")
	}
	if progress.Type != gjson.Number {
		return 0, errors.New("invalid progress: expected a number")
	}
	value := int(progress.Int())
	if err := validProgress(value); err != nil {
		return 0, err
	}
	return value, nil
}

// MarshalJSON implements custom JSON marshaling for Component
func (c Component) MarshalJSON() ([]byte, error) {
	result := componentJSON

	var err error
	result, err = sjson.SetBytes(result, "name", c.Name)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "code", c.Code)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "progress", c.Progress)
	if err != nil {
		return nil, err
	}

	if !c.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", c.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Component
func (c *Component) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "component" {
		return errors.New("missing or invalid type, expected 'component'")
	}

	name := gjson.GetBytes(data, "name")
	if !name.Exists() {
		return errors.New("missing required field 'name'")
	}
	if strings.TrimSpace(name.String()) == "" {
		return errors.New("component events require a name")
	}
	c.Name = name.String()

	code := gjson.GetBytes(data, "code")
	if !code.Exists() {
		return errors.New("missing required field 'code'")
	}
	c.Code = code.String()

	progress, err := progressField(data)
	if err != nil {
		return fmt.Errorf("component %q: %w", c.Name, err)
	}
	c.Progress = progress

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := c.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling for Layout
func (l Layout) MarshalJSON() ([]byte, error) {
	result := layoutJSON

	var err error
	result, err = sjson.SetBytes(result, "code", l.Code)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "progress", l.Progress)
	if err != nil {
		return nil, err
	}

	if !l.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", l.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Layout
func (l *Layout) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "layout" {
		return errors.New("missing or invalid type, expected 'layout'")
	}

	code := gjson.GetBytes(data, "code")
	if !code.Exists() {
		return errors.New("missing required field 'code'")
	}
	l.Code = code.String()

	progress, err := progressField(data)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	l.Progress = progress

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := l.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling for Types
func (t Types) MarshalJSON() ([]byte, error) {
	result := typesJSON

	var err error
	result, err = sjson.SetBytes(result, "progress", t.Progress)
	if err != nil {
		return nil, err
	}

	if !t.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", t.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Types
func (t *Types) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "types" {
		return errors.New("missing or invalid type, expected 'types'")
	}

	progress, err := progressField(data)
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	t.Progress = progress

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := t.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling for Complete
func (c Complete) MarshalJSON() ([]byte, error) {
	result := completeJSON

	var err error
	result, err = sjson.SetBytes(result, "progress", c.Progress)
	if err != nil {
		return nil, err
	}

	if !c.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", c.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Complete. The
// progress field may be omitted on the wire, when present it must be 100.
func (c *Complete) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "complete" {
		return errors.New("missing or invalid type, expected 'complete'")
	}

	if progress := gjson.GetBytes(data, "progress"); progress.Exists() {
		if progress.Type != gjson.Number || progress.Int() != 100 {
			return errors.New("complete events always carry progress 100")
		}
	}
	c.Progress = 100

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := c.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling for Error
func (e Error) MarshalJSON() ([]byte, error) {
	result := errorJSON

	var err error
	result, err = sjson.SetBytes(result, "message", e.Message)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "progress", e.Progress)
	if err != nil {
		return nil, err
	}

	if !e.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", e.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Error. The progress
// field may be omitted on the wire, when present it must be 0.
func (e *Error) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "error" {
		return errors.New("missing or invalid type, expected 'error'")
	}

	message := gjson.GetBytes(data, "message")
	if !message.Exists() {
		return errors.New("missing required field 'message'")
	}
	if strings.TrimSpace(message.String()) == "" {
		return errors.New("error events require a message")
	}
	e.Message = message.String()

	if progress := gjson.GetBytes(data, "progress"); progress.Exists() {
		if progress.Type != gjson.Number || progress.Int() != 0 {
			return errors.New("error events always carry progress 0")
		}
	}
	e.Progress = 0

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := e.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}
