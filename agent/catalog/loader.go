package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"gopkg.in/yaml.v3"
)

//go:embed actions/*
var embeddedActions embed.FS

// Source is one declarative action document. JSON documents are read as YAML.
type Source struct {
	Name string
	Data []byte
}

type rawEntry struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// EmbeddedSources returns the built-in action documents in file name order.
func EmbeddedSources() ([]Source, error) {
	entries, err := fs.ReadDir(embeddedActions, "actions")
	if err != nil {
		return nil, fmt.Errorf("%w: read embedded actions: %v", contractx.ErrSchemaLoad, err)
	}
	sources := make([]Source, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := path.Join("actions", e.Name())
		data, err := embeddedActions.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrSchemaLoad, p, err)
		}
		sources = append(sources, Source{Name: p, Data: data})
	}
	return sources, nil
}

// FileSources reads action documents from disk; a missing file is a load error.
func FileSources(paths ...string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrSchemaLoad, p, err)
		}
		sources = append(sources, Source{Name: p, Data: data})
	}
	return sources, nil
}

// LoadDefault loads the embedded catalog, or the given files when any are set.
func LoadDefault(paths ...string) (*Catalog, error) {
	var (
		sources []Source
		err     error
	)
	if len(paths) > 0 {
		sources, err = FileSources(paths...)
	} else {
		sources, err = EmbeddedSources()
	}
	if err != nil {
		return nil, err
	}
	return Load(sources...)
}

// Load merges sources in order. Duplicate names resolve last-write-wins, so
// the result depends on source order.
func Load(sources ...Source) (*Catalog, error) {
	c := &Catalog{
		schemas:  map[string]ActionSchema{},
		compiled: map[string]*jsonschema.Schema{},
	}
	origin := map[string]string{}

	for _, src := range sources {
		entries, err := decodeSource(src)
		if err != nil {
			return nil, err
		}
		for i, e := range entries {
			schema, compiled, err := buildSchema(src.Name, i, e)
			if err != nil {
				return nil, err
			}
			if prev, dup := origin[schema.Name]; dup {
				log.Warn().
					Str("action", schema.Name).
					Str("previous_source", prev).
					Str("source", src.Name).
					Msg("duplicate action schema, last definition wins")
			} else {
				c.order = append(c.order, schema.Name)
			}
			origin[schema.Name] = src.Name
			c.schemas[schema.Name] = schema
			c.compiled[schema.Name] = compiled
		}
	}

	if len(c.schemas) == 0 {
		return nil, contractx.ErrEmptyCatalog
	}
	return c, nil
}

func decodeSource(src Source) ([]rawEntry, error) {
	var entries []rawEntry
	if err := yaml.Unmarshal(src.Data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contractx.ErrSchemaLoad, src.Name, err)
	}
	return entries, nil
}

func buildSchema(source string, idx int, e rawEntry) (ActionSchema, *jsonschema.Schema, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ActionSchema{}, nil, fmt.Errorf("%w: %s[%d]: name is required", contractx.ErrSchemaLoad, source, idx)
	}
	if strings.TrimSpace(e.Description) == "" {
		return ActionSchema{}, nil, fmt.Errorf("%w: %s[%d] %s: description is required", contractx.ErrSchemaLoad, source, idx, name)
	}

	params := e.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	required, err := stringList(params["required"])
	if err != nil {
		return ActionSchema{}, nil, fmt.Errorf("%w: %s %s: required: %v", contractx.ErrSchemaLoad, source, name, err)
	}
	properties, _ := params["properties"].(map[string]any)

	raw, err := json.Marshal(params)
	if err != nil {
		return ActionSchema{}, nil, fmt.Errorf("%w: %s %s: encode parameters: %v", contractx.ErrSchemaLoad, source, name, err)
	}

	url := "mem://actions/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return ActionSchema{}, nil, fmt.Errorf("%w: %s %s: %v", contractx.ErrSchemaLoad, source, name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return ActionSchema{}, nil, fmt.Errorf("%w: %s %s: compile parameters: %v", contractx.ErrSchemaLoad, source, name, err)
	}

	return ActionSchema{
		Name:        name,
		Description: strings.TrimSpace(e.Description),
		Required:    required,
		Optional:    optionalHints(properties, required),
		Parameters:  raw,
	}, compiled, nil
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return []string{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New("must be a list of field names")
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, errors.New("field names must be non-empty strings")
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}
