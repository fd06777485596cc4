// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package cmwapi

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cmwapi/internal/validation"
)

// Command is one decoded command object. Values are plain JSON types:
// string, float64, bool, nil, []any and map[string]any.
type Command map[string]any

// String returns the string at key.
func (c Command) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Bool returns the bool at key.
func (c Command) Bool(key string) (bool, bool) {
	b, ok := c[key].(bool)
	return b, ok
}

// Object returns the object at key.
func (c Command) Object(key string) (map[string]any, bool) {
	m, ok := c[key].(map[string]any)
	return m, ok
}

// Has reports whether key is present with a non-null value.
func (c Command) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// OverlayID returns the overlayId field, or "".
func (c Command) OverlayID() string {
	s, _ := c.String("overlayId")
	return s
}

// FeatureID returns the featureId field, or "".
func (c Command) FeatureID() string {
	s, _ := c.String("featureId")
	return s
}

// Clone returns a deep copy.
func (c Command) Clone() Command {
	out := make(Command, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Decode converts a command into a typed view and validates its struct tags.
func Decode[T any](c Command) (*T, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if verr := validation.ValidateStruct(&out); verr != nil {
		return nil, verr
	}
	return &out, nil
}

// Payload is what travels on a channel: either one command (Single) or a
// sequence of commands (Batch). The tag survives a round trip so a handler
// sees the shape the sender used.
type Payload struct {
	commands []Command
	batch    bool
}

// Single wraps one command.
func Single(c Command) Payload {
	return Payload{commands: []Command{c}}
}

// Batch wraps a sequence of commands.
func Batch(cs ...Command) Payload {
	return Payload{commands: cs, batch: true}
}

// Commands returns the commands in order. A Single yields one element.
func (p Payload) Commands() []Command {
	return p.commands
}

// IsBatch reports whether the payload is a sequence.
func (p Payload) IsBatch() bool {
	return p.batch
}

// Len returns the number of commands.
func (p Payload) Len() int {
	return len(p.commands)
}

// MarshalJSON encodes a Single as a bare object and a Batch as an array.
func (p Payload) MarshalJSON() ([]byte, error) {
	if !p.batch && len(p.commands) == 1 {
		return json.Marshal(p.commands[0])
	}
	if p.commands == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.commands)
}
