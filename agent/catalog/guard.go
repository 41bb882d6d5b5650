package catalog

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// Guard rejects unknown actions and payloads that fail the action's parameter
// schema before the wrapped executor is reached.
type Guard struct {
	catalog *Catalog
	next    contractx.ActionExecutor
}

var _ contractx.ActionExecutor = (*Guard)(nil)

func NewGuard(c *Catalog, next contractx.ActionExecutor) (*Guard, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}
	if next == nil {
		return nil, fmt.Errorf("%w: executor is required", contractx.ErrValidation)
	}
	return &Guard{catalog: c, next: next}, nil
}

func (g *Guard) Execute(ctx context.Context, action string, payload map[string]any, header contractx.HeaderInfo) (contractx.ActionResult, error) {
	if action == contractx.ActionCommunication {
		return contractx.ActionResult{}, fmt.Errorf("%w: %s is not executable", contractx.ErrUnknownAction, action)
	}
	if err := g.catalog.Validate(action, payload); err != nil {
		return contractx.ActionResult{}, err
	}
	return g.next.Execute(ctx, action, payload, header)
}
