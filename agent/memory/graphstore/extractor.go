package graphstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

type Entity struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
}

type Fact struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Name   string `json:"name"`
	Fact   string `json:"fact"`
}

type Extraction struct {
	Entities []Entity `json:"entities"`
	Facts    []Fact   `json:"facts"`
}

// Extractor pulls entities and facts out of an episode.
type Extractor interface {
	Extract(ctx context.Context, ep contractx.Episode) (Extraction, error)
}

type LLMExtractor struct {
	prompts    *promptx.Library
	completion *llmx.Structured[Extraction]
}

func NewLLMExtractor(ctx context.Context, chatModel einomodel.BaseChatModel, prompts *promptx.Library, timeout time.Duration) (*LLMExtractor, error) {
	completion, err := llmx.NewStructured[Extraction](ctx, chatModel, "memory_extractor", timeout)
	if err != nil {
		return nil, err
	}
	return &LLMExtractor{prompts: prompts, completion: completion}, nil
}

func (x *LLMExtractor) Extract(ctx context.Context, ep contractx.Episode) (Extraction, error) {
	entityTypes, edgeTypes, edgeMap := ontologyOf(ep)
	system, err := x.prompts.Render(ctx, promptx.KeyMemory, "", map[string]any{
		"entity_types":  strings.Join(entityTypes, ", "),
		"edge_types":    strings.Join(edgeTypes, ", "),
		"edge_type_map": edgeMap,
	})
	if err != nil {
		return Extraction{}, err
	}

	user := fmt.Sprintf("EPISODE (%s, %s):\n%s", ep.Description, ep.ReferenceTime.Format(time.RFC3339), ep.Content)
	return x.completion.Complete(ctx, []contractx.Message{
		contractx.SystemMessage(system),
		contractx.UserMessage(user),
	})
}

func ontologyOf(ep contractx.Episode) ([]string, []string, map[string][]string) {
	entityTypes, edgeTypes, edgeMap := ep.EntityTypes, ep.EdgeTypes, ep.EdgeTypeMap
	if len(entityTypes) == 0 {
		entityTypes = memory.EntityTypes()
	}
	if len(edgeTypes) == 0 {
		edgeTypes = memory.EdgeTypes()
	}
	if len(edgeMap) == 0 {
		edgeMap = memory.EdgeTypeMap()
	}
	return entityTypes, edgeTypes, edgeMap
}
