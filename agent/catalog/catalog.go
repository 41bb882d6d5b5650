package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v5"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// ActionSchema describes one storefront action. Immutable once loaded.
type ActionSchema struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Required    []string          `json:"required"`
	Optional    map[string]string `json:"optional,omitempty"`
	Parameters  json.RawMessage   `json:"parameters"`
}

// Catalog is the read-only set of known actions, safe for concurrent use.
type Catalog struct {
	schemas  map[string]ActionSchema
	compiled map[string]*jsonschema.Schema
	order    []string
}

func (c *Catalog) Get(name string) (ActionSchema, bool) {
	if c == nil {
		return ActionSchema{}, false
	}
	s, ok := c.schemas[name]
	return s, ok
}

// RequiredFieldsOf returns the required parameter names of an action, or an
// empty slice when the action is unknown or has none.
func (c *Catalog) RequiredFieldsOf(name string) []string {
	s, ok := c.Get(name)
	if !ok || len(s.Required) == 0 {
		return []string{}
	}
	return slices.Clone(s.Required)
}

func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.schemas)
}

// Subset returns the schemas for names in the given order, skipping unknown ones.
func (c *Catalog) Subset(names ...string) []ActionSchema {
	out := make([]ActionSchema, 0, len(names))
	for _, n := range names {
		if s, ok := c.Get(n); ok {
			out = append(out, s)
		}
	}
	return out
}

type promptAction struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Required    []string          `json:"required"`
	Optional    map[string]string `json:"optional,omitempty"`
}

// Describe renders actions as compact JSON for prompts. No names means all actions.
func (c *Catalog) Describe(names ...string) string {
	if len(names) == 0 {
		names = c.Names()
	}
	subset := c.Subset(names...)
	items := make([]promptAction, 0, len(subset))
	for _, s := range subset {
		items = append(items, promptAction{
			Name:        s.Name,
			Description: s.Description,
			Required:    s.Required,
			Optional:    s.Optional,
		})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// Validate checks payload against the compiled parameter schema of action.
func (c *Catalog) Validate(action string, payload map[string]any) error {
	if c == nil {
		return fmt.Errorf("%w: %s", contractx.ErrUnknownAction, action)
	}
	sch, ok := c.compiled[action]
	if !ok {
		return fmt.Errorf("%w: %s", contractx.ErrUnknownAction, action)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload for %s: %v", contractx.ErrValidation, action, err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: decode payload for %s: %v", contractx.ErrValidation, action, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: parameters for %s: %v", contractx.ErrValidation, action, err)
	}
	return nil
}

func optionalHints(properties map[string]any, required []string) map[string]string {
	if len(properties) == 0 {
		return nil
	}
	hints := make(map[string]string, len(properties))
	for field, def := range properties {
		if slices.Contains(required, field) {
			continue
		}
		hints[field] = typeHint(def)
	}
	if len(hints) == 0 {
		return nil
	}
	return hints
}

func typeHint(def any) string {
	m, ok := def.(map[string]any)
	if !ok {
		return "any"
	}
	typ, _ := m["type"].(string)
	if typ == "" {
		return "any"
	}
	if typ == "array" {
		return "array<" + typeHint(m["items"]) + ">"
	}
	return typ
}
