package intent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

type fakeChatModel struct {
	content string
	err     error
	inputs  [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func newClassifier(t *testing.T, m *fakeChatModel) *Classifier {
	t.Helper()
	cat, err := catalogx.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	c, err := New(context.Background(), m, cat, promptx.MustLoad(), 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

const multiIntentReply = `{
  "primary_intent": " Search ",
  "goal": "find red shoes and buy them",
  "intent_sequence": ["SEARCH", "cart"],
  "message_parts": ["find me red shoes", "add them to cart"],
  "is_multi_intent": false,
  "parsed_intents": [
    {"agent": "products", "function": "search_products", "parameters": {"search": "red shoes"}},
    {"agent": "CART", "function": "add_to_cart", "parameters": {}, "missing": ["items"]}
  ]
}`

func TestClassifyMultiIntent(t *testing.T) {
	t.Parallel()

	m := &fakeChatModel{content: multiIntentReply}
	c := newClassifier(t, m)

	out, err := c.Classify(context.Background(), contractx.ClassifyRequest{
		Message: "find me red shoes and add them to cart",
		Outline: "Relevant knowledge:\n- NODE[Product]: Red Runner (p1)",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if out.PrimaryIntent != "search" {
		t.Fatalf("unexpected primary: %q", out.PrimaryIntent)
	}
	if !reflect.DeepEqual(out.OrderedIntents, []string{"search", "cart"}) {
		t.Fatalf("unexpected sequence: %#v", out.OrderedIntents)
	}
	if !out.IsMultiIntent {
		t.Fatalf("expected multi intent to be recomputed")
	}
	if out.ParsedIntents[0].AgentCategory != contractx.CategoryProducts {
		t.Fatalf("unexpected category: %q", out.ParsedIntents[0].AgentCategory)
	}

	sent := m.inputs[0]
	if len(sent) != 3 {
		t.Fatalf("expected system, outline and message, got %d messages", len(sent))
	}
	if !strings.Contains(sent[0].Content, "add_to_cart") || !strings.Contains(sent[0].Content, "- greeting:") {
		t.Fatalf("system prompt lacks catalog or tags: %s", sent[0].Content)
	}
	if !strings.HasPrefix(sent[1].Content, "CONTEXT_OUTLINE:") {
		t.Fatalf("unexpected outline message: %s", sent[1].Content)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	c := newClassifier(t, &fakeChatModel{content: multiIntentReply})
	req := contractx.ClassifyRequest{Message: "find me red shoes and add them to cart"}
	first, err := c.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("first Classify() error = %v", err)
	}
	second, err := c.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("second Classify() error = %v", err)
	}
	if !reflect.DeepEqual(first.OrderedIntents, second.OrderedIntents) || !reflect.DeepEqual(first.ParsedIntents, second.ParsedIntents) {
		t.Fatalf("classification differs between runs: %#v vs %#v", first, second)
	}
}

func TestClassifyParseFailurePropagates(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":   "I think you want shoes",
		"no intents": `{"primary_intent": "", "intent_sequence": []}`,
	}
	for name, content := range cases {
		content := content
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := newClassifier(t, &fakeChatModel{content: content})
			_, err := c.Classify(context.Background(), contractx.ClassifyRequest{Message: "hello"})
			if !errors.Is(err, contractx.ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	t.Parallel()

	c := newClassifier(t, &fakeChatModel{err: errors.New("connection reset")})
	_, err := c.Classify(context.Background(), contractx.ClassifyRequest{Message: "hello"})
	if !errors.Is(err, contractx.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	out, err := Normalize(contractx.IntentClassification{PrimaryIntent: "Order"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(out.OrderedIntents, []string{"order"}) || out.IsMultiIntent {
		t.Fatalf("unexpected normalised primary-only result: %#v", out)
	}

	greet, err := Normalize(contractx.IntentClassification{PrimaryIntent: "greeting"})
	if err != nil {
		t.Fatalf("Normalize() greeting error = %v", err)
	}
	if len(greet.OrderedIntents) != 0 || !greet.IsNonShopping() {
		t.Fatalf("greeting should keep an empty sequence: %#v", greet)
	}

	unknown, err := Normalize(contractx.IntentClassification{OrderedIntents: []string{"wishlist", "cart"}})
	if err != nil {
		t.Fatalf("Normalize() unknown error = %v", err)
	}
	if unknown.PrimaryIntent != "wishlist" || !unknown.IsMultiIntent {
		t.Fatalf("unknown tags must be kept: %#v", unknown)
	}
}
