package memory

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// GroupID scopes graph data to one storefront sales channel and session.
func GroupID(salesChannelID, sessionID string) string {
	sc := strings.TrimSpace(salesChannelID)
	if sc == "" {
		sc = "default"
	}
	return "sc:" + sc + ":session:" + strings.TrimSpace(sessionID)
}

// referenceKeys are the payload fields copied into the episode text.
var referenceKeys = []string{"search", "productNumber", "productId", "category_id", "items", "ids"}

// EpisodeFromTurn describes a handled turn as graph episode text.
func EpisodeFromTurn(groupID string, req contractx.TurnRequest, res contractx.TurnResult, now time.Time) contractx.Episode {
	var b strings.Builder
	fmt.Fprintf(&b, "user: %s\n", strings.TrimSpace(req.Message))
	if len(res.Intent.OrderedIntents) > 0 {
		fmt.Fprintf(&b, "intents: %s\n", strings.Join(res.Intent.OrderedIntents, ", "))
	}
	if res.Plan != nil && res.Plan.ResponseText != "" {
		fmt.Fprintf(&b, "assistant: %s\n", res.Plan.ResponseText)
	}
	for _, step := range res.Steps {
		if step.Status != contractx.StepStatusSuccess || step.Plan == nil {
			continue
		}
		for _, ps := range step.Plan.Steps {
			fmt.Fprintf(&b, "action[%d]: %s%s\n", step.Step, ps.Action, references(ps.Parameters))
		}
		if step.Plan.ResponseText != "" {
			fmt.Fprintf(&b, "assistant: %s\n", step.Plan.ResponseText)
		}
	}

	return contractx.Episode{
		Name:          fmt.Sprintf("turn-%d", now.UnixMilli()),
		GroupID:       groupID,
		Content:       strings.TrimSpace(b.String()),
		Description:   "shopping assistant turn",
		ReferenceTime: now.UTC(),
		EntityTypes:   EntityTypes(),
		EdgeTypes:     EdgeTypes(),
		EdgeTypeMap:   EdgeTypeMap(),
	}
}

func references(params map[string]any) string {
	parts := make([]string, 0, len(referenceKeys))
	for _, k := range referenceKeys {
		if v, ok := params[k]; ok && v != nil {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
