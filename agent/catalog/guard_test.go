package catalog

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

type recordingExecutor struct {
	calls []string
}

func (r *recordingExecutor) Execute(ctx context.Context, action string, payload map[string]any, header contractx.HeaderInfo) (contractx.ActionResult, error) {
	r.calls = append(r.calls, action)
	return contractx.ActionResult{Action: action, StatusCode: 200}, nil
}

func TestGuardBlocksInvalidPayload(t *testing.T) {
	t.Parallel()

	c, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	next := &recordingExecutor{}
	g, err := NewGuard(c, next)
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	_, err = g.Execute(context.Background(), "get_product", map[string]any{}, contractx.HeaderInfo{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	_, err = g.Execute(context.Background(), "communication", map[string]any{"message": "hi"}, contractx.HeaderInfo{})
	if !errors.Is(err, contractx.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if len(next.calls) != 0 {
		t.Fatalf("executor must not be reached, got %v", next.calls)
	}

	res, err := g.Execute(context.Background(), "get_product", map[string]any{"productId": "p1"}, contractx.HeaderInfo{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.StatusCode != 200 || len(next.calls) != 1 {
		t.Fatalf("unexpected result %#v calls=%v", res, next.calls)
	}
}
