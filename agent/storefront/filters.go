package storefront

// Contains builds a criteria filter matching a substring.
func Contains(field string, value any) map[string]any {
	return map[string]any{"type": "contains", "field": field, "value": value}
}

func Equals(field string, value any) map[string]any {
	return map[string]any{"type": "equals", "field": field, "value": value}
}

// Bounds are the optional limits of a range filter.
type Bounds struct {
	LT, LTE, GT, GTE *float64
}

// Range builds a range filter; only the bounds that are set are sent.
func Range(field string, b Bounds) map[string]any {
	params := map[string]any{}
	if b.LT != nil {
		params["lt"] = *b.LT
	}
	if b.LTE != nil {
		params["lte"] = *b.LTE
	}
	if b.GT != nil {
		params["gt"] = *b.GT
	}
	if b.GTE != nil {
		params["gte"] = *b.GTE
	}
	return map[string]any{"type": "range", "field": field, "parameters": params}
}

// SortField builds a sorting entry. sortType is omitted when empty.
func SortField(field, order string, naturalSorting bool, sortType string) map[string]any {
	if order == "" {
		order = "ASC"
	}
	out := map[string]any{"field": field, "order": order, "naturalSorting": naturalSorting}
	if sortType != "" {
		out["type"] = sortType
	}
	return out
}
