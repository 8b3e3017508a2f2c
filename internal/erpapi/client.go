package erpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 1 << 20

// Observer receives one callback per completed remote call.
type Observer interface {
	ObserveUpstream(method, route string, status int, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
}

// Client issues typed calls against the remote ERP API. It holds no per-user
// state; the bearer token travels in the request context.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	observer Observer
}

// NewClient constructs a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("erpapi: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("erpapi: parse base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, http: httpClient, logger: logger, observer: opts.Observer}, nil
}

type tokenKey struct{}

// ContextWithToken attaches a bearer token for subsequent calls.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached to ctx.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.VendorID != "" {
		q.Set("vendor_id", p.VendorID)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

// call describes one request; route is the low-cardinality label used for metrics.
type call struct {
	method string
	path   string
	route  string
	query  url.Values
	body   any
}

func (c *Client) do(ctx context.Context, req call, out any) error {
	var payload io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("erpapi: encode %s %s: %w", req.method, req.route, err)
		}
		payload = bytes.NewReader(buf)
	}
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, payload)
	if err != nil {
		return fmt.Errorf("erpapi: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		return &Error{Method: req.method, Path: req.path, Err: err}
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, start)

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail, raw := DecodeDetail(body)
		apiErr := &Error{Method: req.method, Path: req.path, StatusCode: resp.StatusCode, Detail: detail, Raw: raw}
		c.logger.Debug("erp api rejected request",
			slog.String("method", req.method),
			slog.String("route", req.route),
			slog.Int("status", resp.StatusCode),
			slog.String("detail", detail),
		)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Method: req.method, Path: req.path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) observe(req call, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(req.method, req.route, status, time.Since(start))
}

func orderPath(id string, suffix string) string {
	return "/purchase-orders/" + url.PathEscape(id) + suffix
}

// ListPurchaseOrders returns one page of orders.
func (c *Client) ListPurchaseOrders(ctx context.Context, params ListParams) (Page[PurchaseOrder], error) {
	var page Page[PurchaseOrder]
	err := c.do(ctx, call{method: http.MethodGet, path: "/purchase-orders", route: "/purchase-orders", query: params.values()}, &page)
	return page, err
}

// GetPurchaseOrder fetches one order with its line items.
func (c *Client) GetPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := c.do(ctx, call{method: http.MethodGet, path: orderPath(id, ""), route: "/purchase-orders/{id}"}, &po)
	return po, err
}

// CreatePurchaseOrder creates a draft order.
func (c *Client) CreatePurchaseOrder(ctx context.Context, in PurchaseOrderCreate) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := c.do(ctx, call{method: http.MethodPost, path: "/purchase-orders", route: "/purchase-orders", body: in}, &po)
	return po, err
}

// UpdatePurchaseOrder replaces the mutable fields of a draft order.
func (c *Client) UpdatePurchaseOrder(ctx context.Context, id string, in PurchaseOrderUpdate) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := c.do(ctx, call{method: http.MethodPut, path: orderPath(id, ""), route: "/purchase-orders/{id}", body: in}, &po)
	return po, err
}

func (c *Client) transition(ctx context.Context, id, verb string) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   orderPath(id, "/"+verb),
		route:  "/purchase-orders/{id}/" + verb,
	}, &po)
	return po, err
}

// SubmitPurchaseOrder moves a draft to pending_approval.
func (c *Client) SubmitPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return c.transition(ctx, id, "submit")
}

// ApprovePurchaseOrder moves a pending order to approved.
func (c *Client) ApprovePurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return c.transition(ctx, id, "approve")
}

// SendPurchaseOrder marks an approved order as sent to the vendor.
func (c *Client) SendPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return c.transition(ctx, id, "send")
}

// CancelPurchaseOrder cancels any order that is not received or cancelled.
func (c *Client) CancelPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return c.transition(ctx, id, "cancel")
}

// ReceiveGoods posts a goods receipt against an order.
func (c *Client) ReceiveGoods(ctx context.Context, id string, in GoodsReceiptCreate) (GoodsReceipt, error) {
	var receipt GoodsReceipt
	err := c.do(ctx, call{method: http.MethodPost, path: orderPath(id, "/receive"), route: "/purchase-orders/{id}/receive", body: in}, &receipt)
	return receipt, err
}

// ListWarehouses returns warehouse summaries without zones.
func (c *Client) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var warehouses []Warehouse
	err := c.do(ctx, call{method: http.MethodGet, path: "/warehouses", route: "/warehouses"}, &warehouses)
	return warehouses, err
}

// GetWarehouse returns one warehouse with zones and locations.
func (c *Client) GetWarehouse(ctx context.Context, id string) (Warehouse, error) {
	var warehouse Warehouse
	err := c.do(ctx, call{method: http.MethodGet, path: "/warehouses/" + url.PathEscape(id), route: "/warehouses/{id}"}, &warehouse)
	return warehouse, err
}

// ListVendors returns one page of vendors.
func (c *Client) ListVendors(ctx context.Context, params ListParams) (Page[Vendor], error) {
	var page Page[Vendor]
	err := c.do(ctx, call{method: http.MethodGet, path: "/vendors", route: "/vendors", query: params.values()}, &page)
	return page, err
}

// ListProducts returns one page of products.
func (c *Client) ListProducts(ctx context.Context, params ListParams) (Page[Product], error) {
	var page Page[Product]
	err := c.do(ctx, call{method: http.MethodGet, path: "/products", route: "/products", query: params.values()}, &page)
	return page, err
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var tokens TokenPair
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login", route: "/auth/login", body: body}, &tokens)
	return tokens, err
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var tokens TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/refresh", route: "/auth/refresh", body: body}, &tokens)
	return tokens, err
}
