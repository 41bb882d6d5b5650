package storefront

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// ResolveProductID looks up the id of the active product with the given number.
// It prefers cover.productId and falls back to the first nested productId.
func (c *Client) ResolveProductID(ctx context.Context, productNumber string, h contractx.HeaderInfo) (string, error) {
	productNumber = strings.TrimSpace(productNumber)
	if productNumber == "" {
		return "", fmt.Errorf("%w: productNumber or productId is required", contractx.ErrValidation)
	}

	body := map[string]any{
		"filter": []any{Equals("active", true), Equals("productNumber", productNumber)},
		"limit":  10,
	}
	res, err := c.do(ctx, request{method: http.MethodPost, path: "/product", body: body, header: contractx.HeaderInfo{LanguageID: h.LanguageID, SalesChannelID: h.SalesChannelID}})
	if err != nil {
		return "", err
	}

	data, _ := res.Data.(map[string]any)
	elements, _ := data["elements"].([]any)
	if len(elements) == 0 {
		return "", fmt.Errorf("%w: product %s not found", contractx.ErrValidation, productNumber)
	}
	first, _ := elements[0].(map[string]any)
	if cover, ok := first["cover"].(map[string]any); ok {
		if id, _ := cover["productId"].(string); id != "" {
			return id, nil
		}
	}
	if id := findProductID(first); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: product %s has no id", contractx.ErrValidation, productNumber)
}

func findProductID(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if id, _ := t["productId"].(string); id != "" {
			return id
		}
		for _, k := range slices.Sorted(maps.Keys(t)) {
			if id := findProductID(t[k]); id != "" {
				return id
			}
		}
	case []any:
		for _, item := range t {
			if id := findProductID(item); id != "" {
				return id
			}
		}
	}
	return ""
}
