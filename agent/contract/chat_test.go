package contract

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCustomerMessageBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		msg     string
		wantErr bool
	}{
		{name: "exactly max", msg: strings.Repeat("a", MaxCustomerMessageChars)},
		{name: "one over max", msg: strings.Repeat("a", MaxCustomerMessageChars+1), wantErr: true},
		{name: "empty", msg: "", wantErr: true},
		{name: "whitespace", msg: "  \t\n ", wantErr: true},
		{name: "short digits", msg: "12345"},
		{name: "long digits", msg: strings.Repeat("1", 51), wantErr: true},
		{name: "long digits with letter", msg: strings.Repeat("1", 60) + "x"},
		{name: "multibyte counted as chars", msg: strings.Repeat("ü", MaxCustomerMessageChars)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateCustomerMessage(tc.msg)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestChatRequestTurnRequestTrims(t *testing.T) {
	t.Parallel()

	req := ChatRequest{CustomerMessage: "  hello  ", ContextToken: " tok ", LanguageID: " lang "}
	turn, err := req.TurnRequest()
	if err != nil {
		t.Fatalf("TurnRequest() error = %v", err)
	}
	if turn.Message != "hello" || turn.ContextToken != "tok" || turn.LanguageID != "lang" {
		t.Fatalf("unexpected turn request: %#v", turn)
	}
}

func TestFragmentForFallsBack(t *testing.T) {
	t.Parallel()

	c := IntentClassification{MessageFragments: []string{"find shoes", "  "}}
	if got := c.FragmentFor(0, "full"); got != "find shoes" {
		t.Fatalf("FragmentFor(0) = %q", got)
	}
	if got := c.FragmentFor(1, "full"); got != "full" {
		t.Fatalf("FragmentFor(1) = %q", got)
	}
	if got := c.FragmentFor(5, "full"); got != "full" {
		t.Fatalf("FragmentFor(5) = %q", got)
	}
}

func TestSeedCloneIsIndependent(t *testing.T) {
	t.Parallel()

	s := Seed{StepResultKey(1): "x"}
	c := s.Clone()
	c["step_2_results"] = "y"
	if _, ok := s["step_2_results"]; ok {
		t.Fatal("clone mutation leaked into original seed")
	}
	if StepResultKey(3) != "step_3_results" {
		t.Fatalf("unexpected key format: %s", StepResultKey(3))
	}
}
