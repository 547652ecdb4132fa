// Package client talks to the feira-smart API over HTTP. It lets a
// client-held cart go through the same checkout coordinator as the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"feira-smart/internal/checkout"
	"feira-smart/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

var _ checkout.Placer = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithToken sets the access token sent as a Bearer credential
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the logger for failed calls
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is safe for concurrent use; checkout places orders in parallel
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates and keeps the access token for later calls
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", body, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = resp.AccessToken
	c.mu.Unlock()
	return nil
}

// PlaceOrder creates one vendor order
func (c *Client) PlaceOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// WithdrawOrder cancels a pending order placed by the logged-in customer
func (c *Client) WithdrawOrder(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/orders/"+id.String()+"/cancel", nil, nil)
}

// ListOrders returns the orders visible to the logged-in user
func (c *Client) ListOrders(ctx context.Context, status *domain.OrderStatus) ([]*domain.Order, error) {
	path := "/api/orders"
	if status != nil {
		path += "?" + url.Values{"status": {string(*status)}}.Encode()
	}

	var orders []*domain.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("API call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return domain.Errorf(domain.ErrTransient, "api unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return errorForStatus(resp.StatusCode, envelope.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorForStatus maps an API error back onto the shared error classes
func errorForStatus(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}

	var class error
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		class = domain.ErrValidation
	case http.StatusUnauthorized:
		class = domain.ErrUnauthenticated
	case http.StatusForbidden:
		class = domain.ErrPermission
	case http.StatusNotFound:
		class = domain.ErrNotFound
	case http.StatusConflict:
		class = domain.ErrConflict
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		class = domain.ErrTransient
	default:
		return fmt.Errorf("api returned %d: %s", status, message)
	}
	return domain.NewError(class, message)
}
