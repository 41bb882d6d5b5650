package storefront

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// searchKeyAliases maps planner keys to the Store API listing parameters.
var searchKeyAliases = map[string]string{
	"post_filter":          "post-filter",
	"min_price":            "min-price",
	"max_price":            "max-price",
	"shipping_free":        "shipping-free",
	"quantity_mode":        "quantity-mode",
	"manufacturer_filter":  "manufacturer-filter",
	"price_filter":         "price-filter",
	"rating_filter":        "rating-filter",
	"shipping_free_filter": "shipping-free-filter",
	"property_filter":      "property-filter",
	"property_whitelist":   "property-whitelist",
	"reduce_aggregations":  "reduce-aggregations",
	"no_aggregations":      "no-aggregations",
	"only_aggregations":    "only-aggregations",
}

// Executor runs catalog actions against the Store API.
type Executor struct {
	client *Client
}

var _ contractx.ActionExecutor = (*Executor)(nil)

func NewExecutor(client *Client) *Executor {
	return &Executor{client: client}
}

func (e *Executor) Execute(ctx context.Context, action string, payload map[string]any, h contractx.HeaderInfo) (contractx.ActionResult, error) {
	p := maps.Clone(payload)
	if p == nil {
		p = map[string]any{}
	}

	var (
		res contractx.ActionResult
		err error
	)
	switch action {
	case "search_product_by_productNumber":
		res, err = e.searchByProductNumber(ctx, p, h)
	case "search_products":
		query := pageQuery(p)
		res, err = e.client.do(ctx, request{method: http.MethodPost, path: "/search", query: query, body: searchBody(p), header: h, retryWithoutToken: true})
	case "list_products":
		res, err = e.client.do(ctx, request{method: http.MethodPost, path: "/product", body: p, header: h, retryWithoutToken: true})
	case "product_listing_by_category":
		var id string
		if id, err = takeString(p, "category_id"); err == nil {
			query := pageQuery(p)
			res, err = e.client.do(ctx, request{method: http.MethodPost, path: "/product-listing/" + url.PathEscape(id), query: query, body: searchBody(p), header: h, retryWithoutToken: true})
		}
	case "search_suggest":
		query := pageQuery(p)
		res, err = e.client.do(ctx, request{method: http.MethodPost, path: "/search-suggest", query: query, body: searchBody(p), header: h, retryWithoutToken: true})
	case "get_product":
		res, err = e.productCall(ctx, p, h, "")
	case "product_cross_selling":
		res, err = e.productCall(ctx, p, h, "/cross-selling")
	case "find_variant":
		res, err = e.findVariant(ctx, p, h)
	case "add_to_cart":
		res, err = e.addToCart(ctx, p, h)
	case "update_cart_items":
		if err = requireToken(action, h); err == nil {
			res, err = e.client.do(ctx, request{method: http.MethodPatch, path: "/checkout/cart/line-item", body: map[string]any{"items": p["items"]}, header: h})
		}
	case "remove_from_cart":
		if err = requireToken(action, h); err == nil {
			res, err = e.client.do(ctx, request{method: http.MethodDelete, path: "/checkout/cart/line-item", body: map[string]any{"ids": p["ids"]}, header: h})
		}
	case "delete_cart":
		res, err = e.client.do(ctx, request{method: http.MethodDelete, path: "/checkout/cart", header: h})
	case "get_cart":
		res, err = e.client.do(ctx, request{method: http.MethodGet, path: "/checkout/cart", header: h})
	case "fetch_orders_list":
		if err = requireToken(action, h); err == nil {
			res, err = e.client.do(ctx, request{method: http.MethodPost, path: "/order", body: p, header: h})
		}
	default:
		return contractx.ActionResult{Action: action}, fmt.Errorf("%w: %s", contractx.ErrUnknownAction, action)
	}

	res.Action = action
	return res, err
}

func (e *Executor) searchByProductNumber(ctx context.Context, p map[string]any, h contractx.HeaderInfo) (contractx.ActionResult, error) {
	number, err := takeString(p, "productNumber")
	if err != nil {
		return contractx.ActionResult{}, err
	}
	filter := []any{Equals("active", true), Equals("productNumber", number)}
	if price := priceBounds(p); price != nil {
		filter = append(filter, price)
	}
	body := map[string]any{"filter": filter, "limit": 10}
	for _, k := range []string{"limit", "page", "includes"} {
		if v, ok := p[k]; ok {
			body[k] = v
		}
	}
	return e.client.do(ctx, request{method: http.MethodPost, path: "/product", body: body, header: h, retryWithoutToken: true})
}

func (e *Executor) productCall(ctx context.Context, p map[string]any, h contractx.HeaderInfo, suffix string) (contractx.ActionResult, error) {
	id, err := takeString(p, "productId")
	if err != nil {
		return contractx.ActionResult{}, err
	}
	return e.client.do(ctx, request{method: http.MethodPost, path: "/product/" + url.PathEscape(id) + suffix, body: p, header: h})
}

func (e *Executor) findVariant(ctx context.Context, p map[string]any, h contractx.HeaderInfo) (contractx.ActionResult, error) {
	id, err := takeString(p, "productId")
	if err != nil {
		return contractx.ActionResult{}, err
	}
	body := map[string]any{"options": p["options"]}
	if g, _ := p["switchedGroup"].(string); g != "" {
		body["switchedGroup"] = g
	}
	return e.client.do(ctx, request{method: http.MethodPost, path: "/product/" + url.PathEscape(id) + "/find-variant", body: body, header: h})
}

func (e *Executor) addToCart(ctx context.Context, p map[string]any, h contractx.HeaderInfo) (contractx.ActionResult, error) {
	raw, _ := p["items"].([]any)
	if len(raw) == 0 {
		return contractx.ActionResult{}, fmt.Errorf("%w: add_to_cart needs items", contractx.ErrValidation)
	}

	items := make([]any, 0, len(raw))
	for i, it := range raw {
		m, ok := it.(map[string]any)
		if !ok {
			return contractx.ActionResult{}, fmt.Errorf("%w: items[%d] must be an object", contractx.ErrValidation, i)
		}
		id, _ := m["productId"].(string)
		if id == "" {
			number, _ := m["productNumber"].(string)
			resolved, err := e.client.ResolveProductID(ctx, number, h)
			if err != nil {
				return contractx.ActionResult{}, err
			}
			id = resolved
		}
		items = append(items, map[string]any{
			"type":         "product",
			"referencedId": id,
			"quantity":     m["quantity"],
		})
	}
	return e.client.do(ctx, request{method: http.MethodPost, path: "/checkout/cart/line-item", body: map[string]any{"items": items}, header: h})
}

// searchBody renames listing keys and drops the ones sent as query parameters.
func searchBody(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if k == "p" || k == "category_id" || v == nil {
			continue
		}
		if alias, ok := searchKeyAliases[k]; ok {
			k = alias
		}
		out[k] = v
	}
	return out
}

func pageQuery(p map[string]any) url.Values {
	v, ok := p["p"]
	if !ok || v == nil {
		return nil
	}
	return url.Values{"p": {fmt.Sprint(v)}}
}

func priceBounds(p map[string]any) map[string]any {
	var b Bounds
	if v, ok := toFloat(p["min_price"]); ok {
		b.GTE = &v
	}
	if v, ok := toFloat(p["max_price"]); ok {
		b.LTE = &v
	}
	if b.GTE == nil && b.LTE == nil {
		return nil
	}
	return Range("price", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func takeString(p map[string]any, key string) (string, error) {
	s, _ := p[key].(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrValidation, key)
	}
	delete(p, key)
	return s, nil
}

func requireToken(action string, h contractx.HeaderInfo) error {
	if strings.TrimSpace(h.ContextToken) == "" {
		return fmt.Errorf("%w: %s requires a context token", contractx.ErrValidation, action)
	}
	return nil
}
