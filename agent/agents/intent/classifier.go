// Package intent splits one utterance into the ordered shopping intents the coordinator runs.
package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

// tagDescriptions is rendered into the prompt in this order.
var tagDescriptions = []struct{ tag, desc string }{
	{contractx.IntentSearch, "find, list, compare or inspect products and variants"},
	{contractx.IntentCart, "add, change, remove or view items in the cart"},
	{contractx.IntentOrder, "look up the latest order or its delivery state"},
	{contractx.IntentCommunication, "the user must be asked for something before any action"},
	{contractx.IntentGreeting, "hello, goodbye, thanks or small talk"},
	{contractx.IntentUnclear, "the message cannot be understood"},
}

type Classifier struct {
	catalog    *catalogx.Catalog
	prompts    *promptx.Library
	completion *llmx.Structured[contractx.IntentClassification]
}

var _ contractx.Classifier = (*Classifier)(nil)

func New(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	catalog *catalogx.Catalog,
	prompts *promptx.Library,
	timeout time.Duration,
) (*Classifier, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: prompt library is required", contractx.ErrValidation)
	}
	completion, err := llmx.NewStructured[contractx.IntentClassification](ctx, chatModel, "intent.classifier", timeout)
	if err != nil {
		return nil, err
	}
	return &Classifier{catalog: catalog, prompts: prompts, completion: completion}, nil
}

func (c *Classifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.IntentClassification, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return contractx.IntentClassification{}, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	system, err := c.prompts.Render(ctx, promptx.KeyIntent, req.LanguageID, map[string]any{
		"actions": c.catalog.Describe(),
		"intents": describeTags(),
	})
	if err != nil {
		return contractx.IntentClassification{}, err
	}

	msgs := []contractx.Message{contractx.SystemMessage(system)}
	if outline := strings.TrimSpace(req.Outline); outline != "" {
		msgs = append(msgs, contractx.UserMessage("CONTEXT_OUTLINE:\n"+outline))
	}
	msgs = append(msgs, contractx.UserMessage("USER MESSAGE:\n"+message))

	raw, err := c.completion.Complete(ctx, msgs)
	if err != nil {
		return contractx.IntentClassification{}, err
	}
	return Normalize(raw)
}

// Normalize canonicalises a raw classification. It is pure: the same input always yields the same output.
func Normalize(in contractx.IntentClassification) (contractx.IntentClassification, error) {
	out := in
	out.PrimaryIntent = normalizeTag(in.PrimaryIntent)
	out.Goal = strings.TrimSpace(in.Goal)

	out.OrderedIntents = make([]string, 0, len(in.OrderedIntents))
	for _, tag := range in.OrderedIntents {
		if t := normalizeTag(tag); t != "" {
			out.OrderedIntents = append(out.OrderedIntents, t)
		}
	}

	if out.PrimaryIntent == "" && len(out.OrderedIntents) == 0 {
		return contractx.IntentClassification{}, fmt.Errorf("%w: classification has no intents", contractx.ErrParse)
	}
	if out.PrimaryIntent == "" {
		out.PrimaryIntent = out.OrderedIntents[0]
	}
	if len(out.OrderedIntents) == 0 && !isSpecial(out.PrimaryIntent) {
		out.OrderedIntents = []string{out.PrimaryIntent}
	}

	if len(in.MessageFragments) > 0 {
		out.MessageFragments = make([]string, len(in.MessageFragments))
		for i, f := range in.MessageFragments {
			out.MessageFragments[i] = strings.TrimSpace(f)
		}
	}
	if len(in.ParsedIntents) > 0 {
		out.ParsedIntents = make([]contractx.ParsedIntent, len(in.ParsedIntents))
		for i, p := range in.ParsedIntents {
			p.AgentCategory = normalizeCategory(p.AgentCategory)
			p.Function = strings.TrimSpace(p.Function)
			out.ParsedIntents[i] = p
		}
	}

	out.IsMultiIntent = len(out.OrderedIntents) > 1
	return out, nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func normalizeCategory(c contractx.AgentCategory) contractx.AgentCategory {
	switch v := contractx.AgentCategory(strings.ToUpper(strings.TrimSpace(string(c)))); v {
	case contractx.CategoryProducts, contractx.CategoryCart, contractx.CategoryOrders, contractx.CategoryCommunication:
		return v
	default:
		return contractx.CategoryUnknown
	}
}

func isSpecial(tag string) bool {
	return tag == contractx.IntentGreeting || tag == contractx.IntentUnclear
}

func describeTags() string {
	lines := make([]string, 0, len(tagDescriptions))
	for _, td := range tagDescriptions {
		lines = append(lines, "- "+td.tag+": "+td.desc)
	}
	return strings.Join(lines, "\n")
}
