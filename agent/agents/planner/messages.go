package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

const nonEmptyStepsGuard = "In the output JSON, 'steps' cannot be an empty array."

// Section is an extra titled block appended after the goal and outline.
type Section struct {
	Title   string
	Content any
}

// BuildMessages lays out a planner conversation: the steps guard, the system prompt,
// the user goal, the context outline and any extra sections, in that order.
func BuildMessages(system, goal, outline string, sections ...Section) []contractx.Message {
	msgs := []contractx.Message{
		contractx.SystemMessage(nonEmptyStepsGuard),
		contractx.SystemMessage(system),
		contractx.UserMessage("USER GOAL:\n" + strings.TrimSpace(goal)),
	}
	if o := strings.TrimSpace(outline); o != "" {
		msgs = append(msgs, contractx.UserMessage("CONTEXT_OUTLINE:\n"+o))
	}
	for _, s := range sections {
		body := sectionBody(s.Content)
		if body == "" {
			continue
		}
		msgs = append(msgs, contractx.UserMessage(strings.ToUpper(strings.TrimSpace(s.Title))+":\n"+body))
	}
	return msgs
}

func sectionBody(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case contractx.Seed:
		if len(t) == 0 {
			return ""
		}
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
