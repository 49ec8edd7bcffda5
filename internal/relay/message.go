package relay

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// KindRun asks the primary game master to run a slot.
const KindRun = "RUN"

// Channel returns the pub/sub channel for a module.
func Channel(moduleID string) string {
	return "module." + moduleID
}

// Message is the wire shape of a relay message.
type Message struct {
	Kind               string         `json:"kind"`
	SlotName           string         `json:"slotName,omitempty"`
	Arguments          map[string]any `json:"arguments,omitempty"`
	RequestingIdentity string         `json:"requestingIdentity,omitempty"`
}

//go:embed message.schema.json
var messageSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func messageSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("message.schema.json", messageSchemaJSON)
	})
	return schema, schemaErr
}

// Encode marshals m.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses and validates data. Numbers in arguments decode as
// json.Number.
func Decode(data []byte) (Message, error) {
	s, err := messageSchema()
	if err != nil {
		return Message{}, fmt.Errorf("compile message schema: %w", err)
	}

	var raw any
	if err := decodeJSON(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}

	var m Message
	if err := decodeJSON(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
