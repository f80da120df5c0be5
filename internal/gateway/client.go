// Package gateway wraps the remote commerce API's cart endpoints. The
// backend owns merge conflict resolution; this client only carries
// identity (bearer token, session header) and maps payloads onto the
// local line type.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solmercado/storefront-core/internal/cart"
	"github.com/solmercado/storefront-core/pkg/config"
	pkgerrors "github.com/solmercado/storefront-core/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	defaultSessionHeader        = "X-Session-Id"
	errorBodyReadLimit    int64 = 1024
)

// Client talks to the commerce API's cart endpoints.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	sessionHeader string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSessionHeader overrides the header carrying the guest session token.
func WithSessionHeader(name string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			c.sessionHeader = trimmed
		}
	}
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	sessionHeader := strings.TrimSpace(cfg.SessionHeader)
	if sessionHeader == "" {
		sessionHeader = defaultSessionHeader
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		sessionHeader: sessionHeader,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// FetchCart returns the authenticated shopper's persisted cart.
func (c *Client) FetchCart(ctx context.Context, authToken string) ([]cart.Line, error) {
	if strings.TrimSpace(authToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("cart"), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build fetch cart request")
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	return c.doCartRequest(req, "fetch cart")
}

// MergeCart asks the backend to fold the session-identified anonymous
// cart into the shopper's persistent cart and returns the merged result.
func (c *Client) MergeCart(ctx context.Context, authToken, sessionID string) ([]cart.Line, error) {
	if strings.TrimSpace(authToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("cart/merge"), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build merge cart request")
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set(c.sessionHeader, sessionID)

	return c.doCartRequest(req, "merge cart")
}

// PushMutation proxies a single local mutation to the backend. Identity
// is the bearer token when authenticated, the session header otherwise.
func (c *Client) PushMutation(ctx context.Context, mut Mutation, ident Identity) error {
	if err := mut.validate(); err != nil {
		return err
	}
	if !ident.valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "auth token or session id is required")
	}

	var req *http.Request
	var err error
	switch mut.Op {
	case OpAdd:
		payload, merr := json.Marshal(addItemRequest{
			Product:  mut.Product,
			Quantity: mut.Quantity,
		})
		if merr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, merr, "marshal add item request")
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("cart/items"), bytes.NewReader(payload))
	case OpUpdate:
		payload, merr := json.Marshal(updateItemRequest{Quantity: mut.Quantity})
		if merr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, merr, "marshal update item request")
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPatch, c.itemURL(mut.ProductID), bytes.NewReader(payload))
	case OpRemove:
		req, err = http.NewRequestWithContext(ctx, http.MethodDelete, c.itemURL(mut.ProductID), nil)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown mutation op")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mutation request")
	}

	req.Header.Set("Content-Type", "application/json")
	if ident.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+ident.AuthToken)
	}
	if ident.SessionID != "" {
		req.Header.Set(c.sessionHeader, ident.SessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mutation request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp, "push mutation failed")
	}
	return nil
}

func (c *Client) doCartRequest(req *http.Request, action string) ([]cart.Line, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+action+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, action+" request failed")
	}

	var payload cartPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+action+" response")
	}
	lines, err := payload.toLines()
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func statusError(resp *http.Response, message string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	code := pkgerrors.CodeDependency
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		code = pkgerrors.CodeUnauthorized
	}
	return pkgerrors.Wrap(code, cause, message)
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}

func (c *Client) itemURL(productID string) string {
	return c.buildURL("cart/items/" + url.PathEscape(productID))
}
