// Package planner holds the Search, Cart, Order and Communication planning agents
// and the runtime they share for prompting, payload checks and execution.
package planner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	payloadx "github.com/tanpawarit/Chative-Commerce-Router/agent/payload"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

// Normalizer reshapes an expanded payload for one action. It returns the payload and
// hints about sub-fields it had to drop.
type Normalizer func(action string, p map[string]any) (map[string]any, []string)

// Runtime is the shared helper set injected into each agent.
type Runtime struct {
	catalog  *catalogx.Catalog
	prompts  *promptx.Library
	executor contractx.ActionExecutor
	timeout  time.Duration
}

func NewRuntime(catalog *catalogx.Catalog, prompts *promptx.Library, executor contractx.ActionExecutor, timeout time.Duration) (*Runtime, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: prompt library is required", contractx.ErrValidation)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: action executor is required", contractx.ErrValidation)
	}
	return &Runtime{catalog: catalog, prompts: prompts, executor: executor, timeout: timeout}, nil
}

// NewPlanCompletion builds the structured call every model-driven planner uses.
func (r *Runtime) NewPlanCompletion(ctx context.Context, chatModel einomodel.BaseChatModel, name string) (*llmx.Structured[contractx.Plan], error) {
	completion, err := llmx.NewStructured[contractx.Plan](ctx, chatModel, name, r.timeout)
	if err != nil {
		return nil, err
	}
	return completion.WithValidator(func(p contractx.Plan) error {
		if len(p.Steps) == 0 {
			return fmt.Errorf("plan has no steps")
		}
		return nil
	}), nil
}

func (r *Runtime) Messages(ctx context.Context, key promptx.Key, actions []string, req contractx.AgentRequest) ([]contractx.Message, error) {
	system, err := r.prompts.Render(ctx, key, req.LanguageID, map[string]any{
		"actions": r.catalog.Describe(actions...),
	})
	if err != nil {
		return nil, err
	}
	return BuildMessages(system, req.Message, req.Outline, Section{Title: "SEED", Content: req.Seed}), nil
}

// Prepared is a step ready for the missing-field gate.
type Prepared struct {
	Action  string
	Payload map[string]any
	Known   map[string]any
	Missing []string
}

// Prepare expands and normalises a model step and computes what is still missing.
func (r *Runtime) Prepare(step contractx.PlanStep, allowed []string, normalize Normalizer) (Prepared, error) {
	action := strings.TrimSpace(step.Action)
	if !slices.Contains(allowed, action) {
		return Prepared{}, fmt.Errorf("%w: action %q is not allowed here", contractx.ErrSchemaViolation, action)
	}

	expanded, err := payloadx.Expand(step.Parameters)
	if err != nil {
		return Prepared{}, err
	}
	known := payloadx.Compact(expanded)

	normalized := expanded
	var hints []string
	if normalize != nil {
		normalized, hints = normalize(action, expanded)
	}

	// A dropped sub-field counts as missing even when the parent field survived.
	missing := payloadx.Missing(r.catalog.RequiredFieldsOf(action), normalized)
	for _, h := range hints {
		if !slices.Contains(missing, h) {
			missing = append(missing, h)
		}
	}

	return Prepared{Action: action, Payload: normalized, Known: known, Missing: missing}, nil
}

// Execute calls the action executor. Failures are reported in the result, never returned.
func (r *Runtime) Execute(ctx context.Context, action string, payload map[string]any, header contractx.HeaderInfo) contractx.ActionResult {
	res, err := r.executor.Execute(ctx, action, payload, header)
	res.Action = action
	if err != nil {
		log.Warn().Err(err).Str("action", action).Int("status_code", res.StatusCode).Msg("action execution failed")
		res.Error = err.Error()
	}
	return res
}

// Delegate hands a step with missing fields to the communication agent. When that
// agent fails, the local fallback question is used; the executor is never called.
func Delegate(ctx context.Context, comm contractx.Communicator, prepared Prepared, req contractx.AgentRequest) contractx.Plan {
	seed := req.Seed.Clone()
	seed["missing"] = prepared.Missing
	seed["action"] = prepared.Action
	seed["knownPayload"] = prepared.Known

	creq := req
	creq.Seed = seed
	if comm != nil {
		cp, err := comm.PlanCommunication(ctx, creq)
		if err == nil {
			return cp.Raw
		}
		log.Warn().Err(err).Str("action", prepared.Action).Msg("communication delegation failed, using fallback question")
	}
	return FallbackCommunication(req.LanguageID, prepared.Missing, prepared.Known).Raw
}

// FallbackCommunication is the question asked when no usable message is available.
func FallbackCommunication(languageID string, missing []string, context map[string]any) contractx.CommunicationPlan {
	return communicationPlan(promptx.Text(promptx.PhraseAskMissing, languageID), missing, context)
}

func communicationPlan(message string, missing []string, context map[string]any) contractx.CommunicationPlan {
	if missing == nil {
		missing = []string{}
	}
	if context == nil {
		context = map[string]any{}
	}
	return contractx.CommunicationPlan{
		Message: message,
		Missing: missing,
		Context: context,
		Raw: contractx.Plan{
			Mode: contractx.PlanModeSingle,
			Steps: []contractx.PlanStep{{
				Action: contractx.ActionCommunication,
				Parameters: map[string]any{
					"message": message,
					"missing": missing,
					"context": context,
				},
			}},
			Done:         false,
			ResponseText: message,
			Agent:        contractx.AgentTypeCommunication,
		},
	}
}

// communicationFromStep turns a model-chosen communication step into a plan, substituting the fallback question.
func communicationFromStep(step contractx.PlanStep, languageID string, defaultMissing []string, defaultContext map[string]any) contractx.CommunicationPlan {
	msg := strings.TrimSpace(stringValue(step.Parameters["message"]))
	if msg == "" {
		msg = promptx.Text(promptx.PhraseAskMissing, languageID)
	}
	missing := stringSlice(step.Parameters["missing"])
	if len(missing) == 0 {
		missing = defaultMissing
	}
	ctx, _ := step.Parameters["context"].(map[string]any)
	if len(ctx) == 0 {
		ctx = defaultContext
	}
	return communicationPlan(msg, missing, ctx)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}
