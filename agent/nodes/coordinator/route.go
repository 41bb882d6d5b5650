package coordinatornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

// Route maps an intent tag to its agent. Every tag resolves; anything that is
// not search, cart or order goes to the communication agent.
func Route(reg contractx.Registry, tag string) contractx.Agent {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case contractx.IntentSearch:
		return reg.Search()
	case contractx.IntentCart:
		return reg.Cart()
	case contractx.IntentOrder:
		return reg.Order()
	default:
		return reg.Communication()
	}
}

// RespondNonShopping answers greetings and unclear messages through the
// communication agent without entering the intent sequence.
func RespondNonShopping(ctx context.Context, in *GraphState, reg contractx.Registry) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	primary := in.Intent.PrimaryIntent
	seed := contractx.Seed{
		"intent_type": primary,
		"context": map[string]any{
			"message":     in.Request.Message,
			"is_greeting": primary == contractx.IntentGreeting,
			"is_unclear":  primary == contractx.IntentUnclear,
		},
		"cue": fmt.Sprintf("Generate a contextual response for %s intent, acknowledging the user but redirecting to shopping assistance", primary),
	}

	res := contractx.TurnResult{
		Status:            contractx.StatusNonShopping,
		Agent:             contractx.AgentTypeCommunication,
		Intent:            in.Intent,
		IsShoppingRelated: false,
	}

	plan, err := reg.Communication().PlanAndExecute(ctx, agentRequest(in, seed, in.Request.Message))
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.Session.SessionID).Msg("non-shopping response failed")
		res.Message = promptx.Text(promptx.PhraseNonShopping, in.Header.LanguageID)
		in.Result = res
		return in, nil
	}

	res.Plan = &plan
	res.Message = planMessage(plan, promptx.Text(promptx.PhraseNonShopping, in.Header.LanguageID))
	in.Result = res
	return in, nil
}

// RunSequence runs every classified intent in order. A failing step is
// recorded and the remaining steps still run.
func RunSequence(ctx context.Context, in *GraphState, reg contractx.Registry) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	seed := contractx.Seed{}
	steps := make([]contractx.StepResult, 0, len(in.Intent.OrderedIntents))
	for i, tag := range in.Intent.OrderedIntents {
		fragment := in.Intent.FragmentFor(i, in.Request.Message)
		agent := Route(reg, tag)
		logger := log.With().
			Str("session_id", in.Session.SessionID).
			Int("step", i+1).
			Str("intent", tag).
			Str("agent", string(agent.Name())).
			Logger()

		step := contractx.StepResult{Step: i + 1, Intent: tag, Message: fragment}
		plan, err := agent.PlanAndExecute(ctx, agentRequest(in, seed.Clone(), fragment))
		if err != nil {
			logger.Error().Err(err).Msg("intent step failed")
			step.Status = contractx.StepStatusError
			step.Error = err.Error()
			steps = append(steps, step)
			continue
		}

		logger.Info().Int("plan_steps", len(plan.Steps)).Msg("intent step completed")
		step.Status = contractx.StepStatusSuccess
		step.Plan = &plan
		steps = append(steps, step)

		if len(plan.Steps) > 0 {
			seed[contractx.StepResultKey(i+1)] = plan.Steps
		}
		if plan.Result != nil && plan.Result.ContextToken != "" {
			in.Header.ContextToken = plan.Result.ContextToken
		}
	}

	in.Result = contractx.TurnResult{
		Status:            contractx.StatusMultiIntent,
		Intent:            in.Intent,
		Steps:             steps,
		Context:           seed,
		IsShoppingRelated: true,
		TotalSteps:        len(in.Intent.OrderedIntents),
		Message:           sequenceMessage(steps, in.Header.LanguageID),
	}
	return in, nil
}

func agentRequest(in *GraphState, seed contractx.Seed, message string) contractx.AgentRequest {
	return contractx.AgentRequest{
		Seed:       seed,
		Message:    message,
		LanguageID: in.Header.LanguageID,
		Outline:    in.Outline,
		Header:     in.Header,
	}
}

func planMessage(plan contractx.Plan, fallback string) string {
	if msg := strings.TrimSpace(plan.ResponseText); msg != "" {
		return msg
	}
	if len(plan.Steps) > 0 {
		if msg, _ := plan.Steps[0].Parameters["message"].(string); strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}
	return fallback
}

// sequenceMessage joins the response texts of successful steps.
func sequenceMessage(steps []contractx.StepResult, languageID string) string {
	var parts []string
	for _, s := range steps {
		if s.Status != contractx.StepStatusSuccess || s.Plan == nil {
			continue
		}
		if msg := planMessage(*s.Plan, ""); msg != "" {
			parts = append(parts, msg)
		}
	}
	if len(parts) == 0 {
		return promptx.Text(promptx.PhraseTurnFailed, languageID)
	}
	return strings.Join(parts, "\n")
}
