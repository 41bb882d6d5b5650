package contract

import (
	"fmt"
	"maps"
	"strings"
)

type AgentType string

const (
	AgentTypeIntent        AgentType = "intent"
	AgentTypeSearch        AgentType = "search"
	AgentTypeCart          AgentType = "cart"
	AgentTypeOrder         AgentType = "order"
	AgentTypeCommunication AgentType = "communication"
	AgentTypeMemory        AgentType = "memory"
)

// Intent tags produced by the classifier.
const (
	IntentSearch        = "search"
	IntentCart          = "cart"
	IntentOrder         = "order"
	IntentCommunication = "communication"
	IntentGreeting      = "greeting"
	IntentUnclear       = "unclear"
)

type AgentCategory string

const (
	CategoryProducts      AgentCategory = "PRODUCTS"
	CategoryCart          AgentCategory = "CART"
	CategoryOrders        AgentCategory = "ORDERS"
	CategoryCommunication AgentCategory = "COMMUNICATION"
	CategoryUnknown       AgentCategory = "UNKNOWN"
)

// ActionCommunication is the only action the communication agent emits.
const ActionCommunication = "communication"

const (
	StatusNonShopping   = "non_shopping_request"
	StatusMultiIntent   = "multi_intent_complete"
	StepStatusSuccess   = "success"
	StepStatusError     = "error"
	PlanModeSingle      = "single"
	stepResultKeyFormat = "step_%d_results"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message   { return Message{Role: "user", Content: content} }

type ParsedIntent struct {
	AgentCategory AgentCategory  `json:"agent"`
	Function      string         `json:"function,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Missing       []string       `json:"missing,omitempty"`
	Confidence    *float64       `json:"confidence,omitempty"`
	Summary       string         `json:"summary,omitempty"`
}

type IntentClassification struct {
	PrimaryIntent    string         `json:"primary_intent"`
	Goal             string         `json:"goal,omitempty"`
	OrderedIntents   []string       `json:"intent_sequence"`
	MessageFragments []string       `json:"message_parts,omitempty"`
	ParsedIntents    []ParsedIntent `json:"parsed_intents,omitempty"`
	IsMultiIntent    bool           `json:"is_multi_intent"`
}

// FragmentFor returns the message fragment aligned with intent i, or fallback
// when fragmentation did not produce one.
func (c IntentClassification) FragmentFor(i int, fallback string) string {
	if i >= 0 && i < len(c.MessageFragments) {
		if frag := strings.TrimSpace(c.MessageFragments[i]); frag != "" {
			return frag
		}
	}
	return fallback
}

func (c IntentClassification) IsNonShopping() bool {
	return c.PrimaryIntent == IntentGreeting || c.PrimaryIntent == IntentUnclear
}

type ClassifyRequest struct {
	Message    string
	LanguageID string
	Outline    string
}

// Seed is the carried-forward context handed to an agent.
type Seed map[string]any

// Clone returns a shallow copy so agents never mutate the coordinator's context.
func (s Seed) Clone() Seed {
	out := make(Seed, len(s))
	maps.Copy(out, s)
	return out
}

func StepResultKey(step int) string {
	return fmt.Sprintf(stepResultKeyFormat, step)
}

type HeaderInfo struct {
	ContextToken   string `json:"context_token,omitempty"`
	LanguageID     string `json:"language_id,omitempty"`
	SalesChannelID string `json:"sales_channel_id,omitempty"`
}

type AgentRequest struct {
	Seed       Seed
	Message    string
	LanguageID string
	Outline    string
	Header     HeaderInfo
}

type PlanStep struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

type Plan struct {
	Mode         string        `json:"mode"`
	Steps        []PlanStep    `json:"steps"`
	Done         bool          `json:"done"`
	ResponseText string        `json:"response_text"`
	Agent        AgentType     `json:"agent,omitempty"`
	Result       *ActionResult `json:"result,omitempty"`
}

type CommunicationPlan struct {
	Message string         `json:"message"`
	Missing []string       `json:"missing,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	Raw     Plan           `json:"raw"`
}

type ActionResult struct {
	Action       string            `json:"action"`
	StatusCode   int               `json:"status_code,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	ContextToken string            `json:"context_token,omitempty"`
	Data         any               `json:"data,omitempty"`
	Error        string            `json:"error,omitempty"`
}

type StepResult struct {
	Step    int    `json:"step"`
	Intent  string `json:"intent"`
	Message string `json:"message"`
	Plan    *Plan  `json:"plan,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  string `json:"status"`
}

type TurnRequest struct {
	Message        string
	ContextToken   string
	LanguageID     string
	SalesChannelID string
}

type TurnResult struct {
	Status            string               `json:"status"`
	Agent             AgentType            `json:"agent,omitempty"`
	Message           string               `json:"message,omitempty"`
	Plan              *Plan                `json:"plan,omitempty"`
	Intent            IntentClassification `json:"intent_data"`
	Steps             []StepResult         `json:"sequence_results,omitempty"`
	Context           Seed                 `json:"context,omitempty"`
	IsShoppingRelated bool                 `json:"is_shopping_related"`
	TotalSteps        int                  `json:"total_steps,omitempty"`
	ContextToken      string               `json:"context_token,omitempty"`
	SessionID         string               `json:"session_id,omitempty"`
}
