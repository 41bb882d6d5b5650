package storefront

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]any
}

type fakeStore struct {
	mu      sync.Mutex
	calls   []recorded
	handler func(w http.ResponseWriter, r recorded)
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header.Clone()}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, rec)
	f.mu.Unlock()
	f.handler(w, rec)
}

func (f *fakeStore) snapshot() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.calls...)
}

func newTestExecutor(t *testing.T, handler func(w http.ResponseWriter, r recorded)) (*Executor, *fakeStore) {
	t.Helper()

	store := &fakeStore{handler: handler}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIBase: srv.URL + "/store-api/", AccessKey: "SWSC-KEY", LanguageID: "lang-default"})
	require.NoError(t, err)
	return NewExecutor(client), store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRequiresBaseAndKey(t *testing.T) {
	_, err := NewClient(Config{AccessKey: "k"})
	assert.Error(t, err)
	_, err = NewClient(Config{APIBase: "https://shop.example/store-api"})
	assert.Error(t, err)
}

func TestHeaders(t *testing.T) {
	c, err := NewClient(Config{APIBase: "https://shop.example/store-api", AccessKey: "key", LanguageID: "default-lang", SalesChannelID: "sc"})
	require.NoError(t, err)

	h := c.Headers(contractx.HeaderInfo{ContextToken: "tok", LanguageID: "de-lang"}, true)
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "key", h.Get(HeaderAccessKey))
	assert.Equal(t, "de-lang", h.Get(HeaderLanguageID))
	assert.Equal(t, "tok", h.Get(HeaderContextToken))
	assert.Equal(t, "sc", h.Get(HeaderSalesChannelID))

	h = c.Headers(contractx.HeaderInfo{ContextToken: "tok"}, false)
	assert.Empty(t, h.Get(HeaderContextToken))
	assert.Equal(t, "default-lang", h.Get(HeaderLanguageID))
}

func TestExtractContextToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractContextToken("abc, def"))
	assert.Equal(t, "def", ExtractContextToken(" , def"))
	assert.Empty(t, ExtractContextToken(""))
}

func TestSearchProductsMapsKeysAndPage(t *testing.T) {
	exec, store := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		w.Header().Set(HeaderContextToken, "new-token, old-token")
		writeJSON(w, http.StatusOK, map[string]any{"total": 1})
	})

	res, err := exec.Execute(context.Background(), "search_products", map[string]any{
		"search":        "shoes",
		"min_price":     10.0,
		"shipping_free": true,
		"post_filter":   []any{},
		"p":             2,
	}, contractx.HeaderInfo{ContextToken: "tok"})
	require.NoError(t, err)

	require.Len(t, store.snapshot(), 1)
	call := store.snapshot()[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/store-api/search", call.path)
	assert.Equal(t, "p=2", call.query)
	assert.Equal(t, "tok", call.header.Get(HeaderContextToken))
	assert.Equal(t, 10.0, call.body["min-price"])
	assert.Equal(t, true, call.body["shipping-free"])
	assert.Contains(t, call.body, "post-filter")
	assert.NotContains(t, call.body, "p")
	assert.NotContains(t, call.body, "min_price")

	assert.Equal(t, "search_products", res.Action)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "new-token", res.ContextToken)
	assert.Equal(t, map[string]any{"total": 1.0}, res.Data)
}

func TestSearchRetriesOnceWithoutTokenOn412(t *testing.T) {
	exec, store := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		if r.header.Get(HeaderContextToken) != "" {
			writeJSON(w, http.StatusPreconditionFailed, map[string]any{"errors": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"elements": []any{}})
	})

	res, err := exec.Execute(context.Background(), "search_suggest", map[string]any{"search": "mug"}, contractx.HeaderInfo{ContextToken: "stale"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, store.snapshot(), 2)
	assert.Equal(t, "stale", store.snapshot()[0].header.Get(HeaderContextToken))
	assert.Empty(t, store.snapshot()[1].header.Get(HeaderContextToken))
}

func TestCartCallsDoNotRetryOn412(t *testing.T) {
	exec, store := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusPreconditionFailed, map[string]any{})
	})

	res, err := exec.Execute(context.Background(), "get_cart", nil, contractx.HeaderInfo{ContextToken: "tok"})
	assert.ErrorIs(t, err, contractx.ErrTransport)
	assert.Equal(t, http.StatusPreconditionFailed, res.StatusCode)
	assert.Len(t, store.snapshot(), 1)
}

func TestNonJSONResponseIsWrappedAsRaw(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("plain text"))
	})

	res, err := exec.Execute(context.Background(), "get_cart", nil, contractx.HeaderInfo{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"raw": "plain text"}, res.Data)
}

func TestAddToCartResolvesProductNumber(t *testing.T) {
	exec, store := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		switch r.path {
		case "/store-api/product":
			writeJSON(w, http.StatusOK, map[string]any{"elements": []any{
				map[string]any{"id": "variant", "cover": map[string]any{"productId": "parent-id"}},
			}})
		case "/store-api/checkout/cart/line-item":
			w.Header().Set(HeaderContextToken, "cart-token")
			writeJSON(w, http.StatusOK, map[string]any{"lineItems": []any{}})
		default:
			writeJSON(w, http.StatusNotFound, nil)
		}
	})

	res, err := exec.Execute(context.Background(), "add_to_cart", map[string]any{
		"items": []any{
			map[string]any{"productNumber": "SW100", "quantity": 2},
			map[string]any{"productId": "direct-id", "quantity": 1},
		},
	}, contractx.HeaderInfo{ContextToken: "tok", LanguageID: "lang"})
	require.NoError(t, err)
	assert.Equal(t, "cart-token", res.ContextToken)

	require.Len(t, store.snapshot(), 2)
	lookup := store.snapshot()[0]
	assert.Empty(t, lookup.header.Get(HeaderContextToken))
	assert.Equal(t, "lang", lookup.header.Get(HeaderLanguageID))
	assert.Equal(t, 10.0, lookup.body["limit"])
	assert.Len(t, lookup.body["filter"], 2)

	add := store.snapshot()[1]
	assert.Equal(t, "tok", add.header.Get(HeaderContextToken))
	assert.Equal(t, []any{
		map[string]any{"type": "product", "referencedId": "parent-id", "quantity": 2.0},
		map[string]any{"type": "product", "referencedId": "direct-id", "quantity": 1.0},
	}, add.body["items"])
}

func TestResolveProductIDFallsBackToNestedID(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{"elements": []any{
			map[string]any{"id": "x", "media": []any{map[string]any{"productId": "nested-id"}}},
		}})
	})

	id, err := exec.client.ResolveProductID(context.Background(), "SW200", contractx.HeaderInfo{})
	require.NoError(t, err)
	assert.Equal(t, "nested-id", id)
}

func TestResolveProductIDNotFound(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{"elements": []any{}})
	})

	_, err := exec.client.ResolveProductID(context.Background(), "SW404", contractx.HeaderInfo{})
	assert.ErrorIs(t, err, contractx.ErrValidation)
}

func TestFetchOrdersRequiresContextToken(t *testing.T) {
	exec, store := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	_, err := exec.Execute(context.Background(), "fetch_orders_list", map[string]any{"limit": 1}, contractx.HeaderInfo{})
	assert.ErrorIs(t, err, contractx.ErrValidation)
	assert.Empty(t, store.snapshot())

	_, err = exec.Execute(context.Background(), "fetch_orders_list", map[string]any{"limit": 1}, contractx.HeaderInfo{ContextToken: "tok"})
	require.NoError(t, err)
	require.Len(t, store.snapshot(), 1)
	assert.Equal(t, "/store-api/order", store.snapshot()[0].path)
}

func TestProductEndpoints(t *testing.T) {
	exec, store := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	ctx := context.Background()

	_, err := exec.Execute(ctx, "find_variant", map[string]any{"productId": "p1", "options": []any{"o1"}, "switchedGroup": "g1"}, contractx.HeaderInfo{})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "product_cross_selling", map[string]any{"productId": "p1"}, contractx.HeaderInfo{})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "product_listing_by_category", map[string]any{"category_id": "c1", "p": 3}, contractx.HeaderInfo{})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "remove_from_cart", map[string]any{"ids": []any{"li1"}}, contractx.HeaderInfo{ContextToken: "tok"})
	require.NoError(t, err)

	require.Len(t, store.snapshot(), 4)
	assert.Equal(t, "/store-api/product/p1/find-variant", store.snapshot()[0].path)
	assert.Equal(t, map[string]any{"options": []any{"o1"}, "switchedGroup": "g1"}, store.snapshot()[0].body)
	assert.Equal(t, "/store-api/product/p1/cross-selling", store.snapshot()[1].path)
	assert.Equal(t, "/store-api/product-listing/c1", store.snapshot()[2].path)
	assert.Equal(t, "p=3", store.snapshot()[2].query)
	assert.Equal(t, http.MethodDelete, store.snapshot()[3].method)
	assert.Equal(t, map[string]any{"ids": []any{"li1"}}, store.snapshot()[3].body)
}

func TestUnknownAction(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r recorded) {})

	_, err := exec.Execute(context.Background(), "checkout_now", nil, contractx.HeaderInfo{})
	assert.ErrorIs(t, err, contractx.ErrUnknownAction)
}

func TestFilterHelpers(t *testing.T) {
	gte := 10.0
	assert.Equal(t, map[string]any{"type": "range", "field": "price", "parameters": map[string]any{"gte": 10.0}}, Range("price", Bounds{GTE: &gte}))
	assert.Equal(t, map[string]any{"type": "contains", "field": "name", "value": "mug"}, Contains("name", "mug"))
	assert.Equal(t, map[string]any{"field": "name", "order": "ASC", "naturalSorting": false}, SortField("name", "", false, ""))
	assert.Equal(t, "custom", SortField("price", "DESC", true, "custom")["type"])
}
