package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// Structured performs one completion call and decodes the reply into T.
// It never retries; callers decide what a failure means.
type Structured[T any] struct {
	name      string
	runner    compose.Runnable[[]*schema.Message, *schema.Message]
	parser    schema.MessageParser[T]
	timeout   time.Duration
	validator func(T) error
}

func NewStructured[T any](ctx context.Context, chatModel einomodel.BaseChatModel, name string, timeout time.Duration) (*Structured[T], error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required for %s", contractx.ErrValidation, name)
	}

	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add structured edge start->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add structured edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(name))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph %s: %w", name, err)
	}

	return &Structured[T]{
		name:   name,
		runner: runner,
		parser: schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
		timeout: timeout,
	}, nil
}

// WithValidator adds a shape check run after decoding; its failures are parse failures.
func (s *Structured[T]) WithValidator(fn func(T) error) *Structured[T] {
	s.validator = fn
	return s
}

func (s *Structured[T]) Complete(ctx context.Context, messages []contractx.Message) (T, error) {
	var zero T
	if len(messages) == 0 {
		return zero, fmt.Errorf("%w: %s: no messages", contractx.ErrValidation, s.name)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	msg, err := s.runner.Invoke(ctx, toSchemaMessages(messages))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %s: timed out after %s", contractx.ErrTransport, s.name, s.timeout)
		}
		return zero, fmt.Errorf("%w: %s: %v", contractx.ErrTransport, s.name, err)
	}
	if msg == nil {
		return zero, fmt.Errorf("%w: %s: empty reply", contractx.ErrParse, s.name)
	}

	content := stripCodeFence(msg.Content)
	if content == "" || content == "null" {
		return zero, fmt.Errorf("%w: %s: empty content", contractx.ErrParse, s.name)
	}

	out, err := s.parser.Parse(ctx, &schema.Message{Role: msg.Role, Content: content})
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %v", contractx.ErrParse, s.name, err)
	}
	if s.validator != nil {
		if err := s.validator(out); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", contractx.ErrParse, s.name, err)
		}
	}
	return out, nil
}

func toSchemaMessages(in []contractx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case "system":
			out = append(out, schema.SystemMessage(m.Content))
		case "assistant":
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

// stripCodeFence removes a surrounding ```json fence some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
