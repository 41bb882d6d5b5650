package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxTurns = 10

var (
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrInvalidTurn     = errors.New("turn is invalid")
)

// SessionState is what the router remembers about one storefront context between turns.
// It is keyed by the storefront context token once one is known.
type SessionState struct {
	SessionID      string    `json:"session_id"`
	ContextToken   string    `json:"context_token,omitempty"`
	LanguageID     string    `json:"language_id,omitempty"`
	SalesChannelID string    `json:"sales_channel_id,omitempty"`
	Turns          []Turn    `json:"turns,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"`
}

// Turn is one handled user message.
type Turn struct {
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	Intents      []string  `json:"intents,omitempty"`
	ResponseText string    `json:"response_text,omitempty"`
	FailedSteps  int       `json:"failed_steps,omitempty"`
	At           time.Time `json:"at"`
}

// NewSessionState starts a session for a context token, or under a fresh id when there is none.
func NewSessionState(contextToken string, now time.Time) *SessionState {
	token := strings.TrimSpace(contextToken)
	id := token
	if id == "" {
		id = uuid.NewString()
	}
	return &SessionState{
		SessionID:    id,
		ContextToken: token,
		UpdatedAt:    now.UTC(),
		Version:      1,
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn records a turn and keeps only the newest maxTurns.
func (s *SessionState) AppendTurn(t Turn, maxTurns int) error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(t.Message) == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidTurn)
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	t.At = t.At.UTC()
	s.Turns = append(s.Turns, t)
	if over := len(s.Turns) - maxTurns; over > 0 {
		s.Turns = append([]Turn(nil), s.Turns[over:]...)
	}
	return nil
}

// Rekey moves the session to a new context token. It reports the previous id when it changed.
func (s *SessionState) Rekey(contextToken string) (string, bool) {
	token := strings.TrimSpace(contextToken)
	if s == nil || token == "" || token == s.SessionID {
		return "", false
	}
	prev := s.SessionID
	s.SessionID = token
	s.ContextToken = token
	return prev, true
}

// LastTurn returns the most recent turn, if any.
func (s *SessionState) LastTurn() (Turn, bool) {
	if s == nil || len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.ContextToken != "" && s.ContextToken != s.SessionID {
		return fmt.Errorf("context token %q does not match session id %q", s.ContextToken, s.SessionID)
	}
	for i, t := range s.Turns {
		if strings.TrimSpace(t.Message) == "" {
			return fmt.Errorf("%w: turn %d has no message", ErrInvalidTurn, i)
		}
	}
	return nil
}
