// Package rest talks to the billing/beneficiary REST API.
package rest

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

	"github.com/hashicorp/go-retryablehttp"

	"billview/internal/core"
	"billview/internal/log"
	"billview/internal/source"
)

// Endpoints are paths relative to the API base URL.
type Endpoints struct {
	BillingItems  string
	Beneficiaries string
	VikasKhand    string
}

type Config struct {
	BaseURL   string
	Endpoints Endpoints
	Timeout   time.Duration
	RetryMax  int
}

type Client struct {
	http   *retryablehttp.Client
	base   *url.URL
	ep     Endpoints
	logger *log.Logger
}

var (
	_ source.RecordSource     = (*Client)(nil)
	_ source.BeneficiaryStore = (*Client)(nil)
	_ source.RegionLookup     = (*Client)(nil)
)

const maxBodyBytes = 64 << 20

func New(cfg Config, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = log.Wrap(nil)
	}
	logger = logger.WithComponent(log.ComponentUpstream)

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Backoff = retryablehttp.LinearJitterBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.CheckRetry = retryReads
	rc.Logger = nil
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.WarnContext(req.Context(), "Retrying upstream request",
				log.FieldMethod, req.Method, log.FieldPath, req.URL.Path, log.FieldAttempts, attempt)
		}
	}

	return &Client{http: rc, base: base, ep: cfg.Endpoints, logger: logger}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request and returns the body of a 2xx response. Failures
// come back as *core.FetchError.
type noRetryKey struct{}

// retryReads applies the default policy to reads only. Writes go out once:
// a 5xx may arrive after the upstream committed the change.
func retryReads(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) do(ctx context.Context, op, method, target string, body any, headers map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, core.DataError(op, err)
		}
		payload = b
	}
	var rawBody any
	if payload != nil {
		rawBody = payload
	}
	if method != http.MethodGet {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, core.NetworkError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, core.NetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, core.ServerError(op, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.NetworkError(op, err)
	}
	return data, nil
}

// getJSON fetches target and decodes it into T.
func getJSON[T any](ctx context.Context, c *Client, op, target string) (T, error) {
	var result T
	data, err := c.do(ctx, op, http.MethodGet, target, nil, nil)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, core.DataError(op, err)
	}
	return result, nil
}

func (c *Client) FetchRecords(ctx context.Context) ([]core.Record, error) {
	const op = "fetch billing items"
	raw, err := getJSON[json.RawMessage](ctx, c, op, c.endpoint(c.ep.BillingItems, nil))
	if err != nil {
		return nil, err
	}
	records, err := decodeList[core.Record](raw)
	if err != nil {
		return nil, core.DataError(op, err)
	}
	return records, nil
}

func (c *Client) ListBeneficiaries(ctx context.Context) ([]core.Beneficiary, error) {
	const op = "list beneficiaries"
	raw, err := getJSON[json.RawMessage](ctx, c, op, c.endpoint(c.ep.Beneficiaries, nil))
	if err != nil {
		return nil, err
	}
	list, err := decodeList[core.Beneficiary](raw)
	if err != nil {
		return nil, core.DataError(op, err)
	}
	return list, nil
}

func (c *Client) CreateBeneficiary(ctx context.Context, b core.Beneficiary, key string) error {
	_, err := c.do(ctx, "create beneficiary", http.MethodPost, c.endpoint(c.ep.Beneficiaries, nil), b, idempotency(key))
	return err
}

func (c *Client) UpdateBeneficiary(ctx context.Context, b core.Beneficiary, key string) error {
	if b.ID == "" {
		return core.ErrMissingBeneficiaryID
	}
	_, err := c.do(ctx, "update beneficiary", http.MethodPut, c.endpoint(c.ep.Beneficiaries, nil), b, idempotency(key))
	return err
}

func (c *Client) DeleteBeneficiary(ctx context.Context, id string, key string) error {
	if id == "" {
		return core.ErrMissingBeneficiaryID
	}
	body := map[string]string{"beneficiary_id": id}
	_, err := c.do(ctx, "delete beneficiary", http.MethodDelete, c.endpoint(c.ep.Beneficiaries, nil), body, idempotency(key))
	return err
}

// LookupRegion accepts a single object, an array, or either wrapped
// under "data". An array yields its first element.
func (c *Client) LookupRegion(ctx context.Context, centerName string) (core.Region, error) {
	const op = "lookup vikas khand"
	q := url.Values{"center_name": {centerName}}
	raw, err := getJSON[json.RawMessage](ctx, c, op, c.endpoint(c.ep.VikasKhand, q))
	if err != nil {
		return core.Region{}, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		if data, ok := unwrapData(raw); ok {
			raw = data
		}
	}

	var r core.Region
	switch {
	case len(raw) > 0 && raw[0] == '[':
		var list []core.Region
		if err := json.Unmarshal(raw, &list); err != nil {
			return core.Region{}, core.DataError(op, err)
		}
		if len(list) == 0 {
			return core.Region{}, source.ErrNotFound
		}
		r = list[0]
	case len(raw) > 0 && raw[0] == '{':
		if err := json.Unmarshal(raw, &r); err != nil {
			return core.Region{}, core.DataError(op, err)
		}
		if r == (core.Region{}) {
			return core.Region{}, source.ErrNotFound
		}
	default:
		return core.Region{}, core.DataError(op, errors.New("expected object or array"))
	}
	if r.CenterName == "" {
		r.CenterName = centerName
	}
	return r, nil
}

// decodeList accepts a bare array or an object wrapping it under "data".
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	if raw[0] == '{' {
		data, ok := unwrapData(raw)
		if !ok {
			return nil, errors.New(`object without "data" array`)
		}
		raw = data
	}
	if raw[0] != '[' {
		return nil, errors.New("expected array")
	}
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func unwrapData(raw json.RawMessage) (json.RawMessage, bool) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
		return nil, false
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, false
	}
	return data, true
}

func idempotency(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{"Idempotency-Key": key}
}
