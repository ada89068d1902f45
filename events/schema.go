package events

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// WireSchema describes the JSON wire form of every event kind as a oneOf
// over the five variants. Transports can serve it so external producers
// know exactly what the ingress boundary accepts.
func WireSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Version: "https://json-schema.org/draft/2020-12/schema",
		Title:   "preview event",
		OneOf: []*jsonschema.Schema{
			componentSchema(),
			layoutSchema(),
			typesSchema(),
			completeSchema(),
			errorSchema(),
		},
	}
}

func kindSchema(kind string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Enum: []any{kind}}
}

func progressSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: "percentage between 0 and 100"}
}

func timestampSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Format: "date-time"}
}

func componentSchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("type", kindSchema("component"))
	props.Set("name", &jsonschema.Schema{Type: "string", Description: "identifies the component across updates, must not be blank"})
	props.Set("code", &jsonschema.Schema{Type: "string", Description: "the source emitted so far"})
	props.Set("progress", progressSchema())
	props.Set("timestamp", timestampSchema())

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type", "name", "code", "progress"},
	}
}

func layoutSchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("type", kindSchema("layout"))
	props.Set("code", &jsonschema.Schema{Type: "string", Description: "serialized structural description"})
	props.Set("progress", progressSchema())
	props.Set("timestamp", timestampSchema())

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type", "code", "progress"},
	}
}

func typesSchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("type", kindSchema("types"))
	props.Set("progress", progressSchema())
	props.Set("timestamp", timestampSchema())

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type", "progress"},
	}
}

func completeSchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("type", kindSchema("complete"))
	props.Set("progress", &jsonschema.Schema{Type: "integer", Enum: []any{100}})
	props.Set("timestamp", timestampSchema())

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type"},
	}
}

func errorSchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("type", kindSchema("error"))
	props.Set("message", &jsonschema.Schema{Type: "string", Description: "failure description, must not be blank"})
	props.Set("progress", &jsonschema.Schema{Type: "integer", Enum: []any{0}})
	props.Set("timestamp", timestampSchema())

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type", "message"},
	}
}
