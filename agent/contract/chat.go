package contract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxCustomerMessageChars = 2000
	// Longer messages without a single latin letter are treated as noise.
	nonAlphabeticLimit = 50
)

var nonAlphabetic = regexp.MustCompile(`^[^a-zA-Z]*$`)

type ChatRequest struct {
	CustomerMessage string `json:"customerMessage"`
	ContextToken    string `json:"contextToken,omitempty"`
	LanguageID      string `json:"languageId,omitempty"`
	SalesChannelID  string `json:"salesChannelId,omitempty"`
}

type ChatResponse struct {
	OK           bool           `json:"ok"`
	Action       string         `json:"action"`
	Message      string         `json:"message"`
	ContextToken string         `json:"contextToken,omitempty"`
	Data         map[string]any `json:"data"`
}

// ValidateCustomerMessage trims msg and enforces the inbound message rules.
func ValidateCustomerMessage(msg string) (string, error) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		return "", fmt.Errorf("%w: customerMessage must not be empty", ErrValidation)
	}
	n := utf8.RuneCountInString(trimmed)
	if n > MaxCustomerMessageChars {
		return "", fmt.Errorf("%w: customerMessage exceeds %d characters", ErrValidation, MaxCustomerMessageChars)
	}
	if n > nonAlphabeticLimit && nonAlphabetic.MatchString(trimmed) {
		return "", fmt.Errorf("%w: customerMessage contains no letters", ErrValidation)
	}
	return trimmed, nil
}

// TurnRequest converts the inbound request into a validated turn.
func (r ChatRequest) TurnRequest() (TurnRequest, error) {
	msg, err := ValidateCustomerMessage(r.CustomerMessage)
	if err != nil {
		return TurnRequest{}, err
	}
	return TurnRequest{
		Message:        msg,
		ContextToken:   strings.TrimSpace(r.ContextToken),
		LanguageID:     strings.TrimSpace(r.LanguageID),
		SalesChannelID: strings.TrimSpace(r.SalesChannelID),
	}, nil
}

// NewChatResponse renders a turn into the outward response shape.
func NewChatResponse(res TurnResult) ChatResponse {
	resp := ChatResponse{
		OK:           true,
		Action:       res.Status,
		Message:      res.Message,
		ContextToken: res.ContextToken,
		Data: map[string]any{
			"status":              res.Status,
			"intent_data":         res.Intent,
			"is_shopping_related": res.IsShoppingRelated,
		},
	}
	if res.Plan != nil {
		resp.Data["plan"] = res.Plan
	}
	if res.Agent != "" {
		resp.Data["agent"] = res.Agent
	}
	if len(res.Steps) > 0 {
		resp.Data["sequence_results"] = res.Steps
		resp.Data["total_steps"] = res.TotalSteps
	}
	if len(res.Context) > 0 {
		resp.Data["context"] = res.Context
	}
	return resp
}
