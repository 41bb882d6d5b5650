// Package storefront calls the Shopware Store API on behalf of the planning agents.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

const (
	HeaderAccessKey      = "sw-access-key"
	HeaderLanguageID     = "sw-language-id"
	HeaderContextToken   = "sw-context-token"
	HeaderSalesChannelID = "sw-sales-channel-id"

	maxResponseSizeBytes = 4 << 20
)

type Client struct {
	baseURL        string
	accessKey      string
	languageID     string
	salesChannelID string
	httpClient     *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		return nil, errors.New("storefront: SHOPWARE_API_BASE is not set")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("storefront: invalid api base: %w", err)
	}
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, errors.New("storefront: SHOPWARE_ACCESS_KEY is not set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		baseURL:        base,
		accessKey:      cfg.AccessKey,
		languageID:     cfg.LanguageID,
		salesChannelID: cfg.SalesChannelID,
		httpClient:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Headers builds the Store API headers. The per-request header wins over the
// configured defaults.
func (c *Client) Headers(h contractx.HeaderInfo, withToken bool) http.Header {
	out := http.Header{}
	out.Set("Accept", "application/json")
	out.Set("Content-Type", "application/json")
	out.Set(HeaderAccessKey, c.accessKey)
	if lang := firstNonEmpty(h.LanguageID, c.languageID); lang != "" {
		out.Set(HeaderLanguageID, lang)
	}
	if withToken && h.ContextToken != "" {
		out.Set(HeaderContextToken, h.ContextToken)
	}
	if sc := firstNonEmpty(h.SalesChannelID, c.salesChannelID); sc != "" {
		out.Set(HeaderSalesChannelID, sc)
	}
	return out
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header contractx.HeaderInfo
	// retryWithoutToken repeats a 412 response once without the context token.
	retryWithoutToken bool
}

// do sends one request and wraps the response. Non-2xx statuses are returned
// with their body and an ErrTransport error.
func (c *Client) do(ctx context.Context, req request) (contractx.ActionResult, error) {
	res, err := c.send(ctx, req, true)
	if err != nil {
		return res, err
	}
	if res.StatusCode == http.StatusPreconditionFailed && req.retryWithoutToken && req.header.ContextToken != "" {
		log.Warn().Str("path", req.path).Msg("storefront returned 412 with context token, retrying without it")
		res, err = c.send(ctx, req, false)
		if err != nil {
			return res, err
		}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return res, fmt.Errorf("%w: %s %s returned %d", contractx.ErrTransport, req.method, req.path, res.StatusCode)
	}
	return res, nil
}

func (c *Client) send(ctx context.Context, req request, withToken bool) (contractx.ActionResult, error) {
	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return contractx.ActionResult{}, fmt.Errorf("%w: encode body: %v", contractx.ErrValidation, err)
		}
		body = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return contractx.ActionResult{}, fmt.Errorf("%w: build request: %v", contractx.ErrTransport, err)
	}
	httpReq.Header = c.Headers(req.header, withToken)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return contractx.ActionResult{}, fmt.Errorf("%w: %s %s: %v", contractx.ErrTransport, req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.ActionResult{}, fmt.Errorf("%w: read response: %v", contractx.ErrTransport, err)
	}
	log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status_code", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("storefront call")

	return wrapResponse(resp, raw), nil
}

func wrapResponse(resp *http.Response, raw []byte) contractx.ActionResult {
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		data = map[string]any{"raw": string(raw)}
	}
	return contractx.ActionResult{
		StatusCode:   resp.StatusCode,
		Headers:      headers,
		ContextToken: ExtractContextToken(resp.Header.Get(HeaderContextToken)),
		Data:         data,
	}
}

// ExtractContextToken returns the first non-empty comma separated part.
func ExtractContextToken(v string) string {
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
