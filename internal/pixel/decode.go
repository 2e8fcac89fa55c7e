package pixel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidEvent is returned for event envelopes that fail validation.
var ErrInvalidEvent = errors.New("invalid event")

// eventSchema constrains the envelope only. Payload shape is open and names
// outside the canonical set are accepted and later ignored.
const eventSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 128},
		"data": {"type": ["object", "null"]}
	}
}`

var eventSchemaLoader = gojsonschema.NewStringLoader(eventSchema)

// DecodeEvent validates and decodes a canonical event envelope.
func DecodeEvent(raw []byte) (Event, error) {
	result, err := gojsonschema.Validate(eventSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Event{}, fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(msgs, "; "))
	}

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}
	return ev, nil
}
