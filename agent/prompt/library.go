// Package prompt holds the embedded system prompts of the planning agents and renders them per language.
package prompt

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// Key names a prompt template.
type Key string

const (
	KeyIntent        Key = "intent"
	KeySearch        Key = "search"
	KeyCart          Key = "cart"
	KeyCommunication Key = "communication"
	KeyMemory        Key = "memory"
)

//go:embed template
var templateFS embed.FS

var placeholderPattern = regexp.MustCompile(`\{\{\s*\.(\w+)\s*\}\}`)

// requiredVars lists the variables every language variant of a key must declare.
var requiredVars = map[Key][]string{
	KeyIntent:        {"actions", "intents"},
	KeySearch:        {"actions"},
	KeyCart:          {"actions"},
	KeyCommunication: {"actions"},
	KeyMemory:        {"entity_types", "edge_types", "edge_type_map"},
}

// Library is an immutable set of prompt templates indexed by language and key.
type Library struct {
	templates map[string]map[Key]string
	fallback  string
}

// Load reads the embedded templates and checks that each one uses exactly its declared variables.
func Load() (*Library, error) {
	return load(templateFS, "template")
}

// MustLoad panics when the embedded templates are inconsistent.
func MustLoad() *Library {
	lib, err := Load()
	if err != nil {
		panic(err)
	}
	return lib
}

func load(fsys fs.FS, root string) (*Library, error) {
	langs, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("%w: read templates: %v", contractx.ErrPromptMissing, err)
	}

	lib := &Library{templates: map[string]map[Key]string{}, fallback: DefaultLanguage}
	for _, dir := range langs {
		if !dir.IsDir() {
			continue
		}
		lang := dir.Name()
		set := map[Key]string{}
		for key, vars := range requiredVars {
			raw, err := fs.ReadFile(fsys, root+"/"+lang+"/"+string(key)+".txt")
			if err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", contractx.ErrPromptMissing, lang, key, err)
			}
			text := strings.TrimSpace(string(raw))
			if err := checkPlaceholders(text, vars); err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", contractx.ErrPromptMissing, lang, key, err)
			}
			set[key] = text
		}
		lib.templates[lang] = set
	}
	if _, ok := lib.templates[lib.fallback]; !ok {
		return nil, fmt.Errorf("%w: no %q templates", contractx.ErrPromptMissing, lib.fallback)
	}
	return lib, nil
}

func checkPlaceholders(text string, declared []string) error {
	found := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		found[m[1]] = true
	}
	want := map[string]bool{}
	for _, v := range declared {
		want[v] = true
		if !found[v] {
			return fmt.Errorf("placeholder %q not used", v)
		}
	}
	for v := range found {
		if !want[v] {
			return fmt.Errorf("undeclared placeholder %q", v)
		}
	}
	return nil
}

// Languages lists the loaded language codes.
func (l *Library) Languages() []string {
	out := make([]string, 0, len(l.templates))
	for lang := range l.templates {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Raw returns the unrendered template for a key. Unknown languages fall back to English.
func (l *Library) Raw(key Key, languageID string) (string, error) {
	lang := Resolve(languageID)
	set, ok := l.templates[lang]
	if !ok {
		set = l.templates[l.fallback]
	}
	text, ok := set[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown prompt %q", contractx.ErrPromptMissing, key)
	}
	return text, nil
}

// Render fills the template for key in the resolved language. Every declared variable must be supplied.
func (l *Library) Render(ctx context.Context, key Key, languageID string, vars map[string]any) (string, error) {
	text, err := l.Raw(key, languageID)
	if err != nil {
		return "", err
	}
	normalized := make(map[string]any, len(vars))
	for _, name := range requiredVars[key] {
		v, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("%w: %s: missing variable %q", contractx.ErrPromptMissing, key, name)
		}
		normalized[name] = normalizeVar(v)
	}

	tpl := einoprompt.FromMessages(schema.GoTemplate, schema.SystemMessage(text))
	msgs, err := tpl.Format(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("%w: format %s: %v", contractx.ErrPromptMissing, key, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%w: %s rendered empty", contractx.ErrPromptMissing, key)
	}
	return msgs[0].Content, nil
}

// normalizeVar turns maps and slices into JSON and everything else into its string form.
func normalizeVar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.RawMessage:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any, []string, []map[string]any, contractx.Seed:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
