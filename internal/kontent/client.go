package kontent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/JaimeStill/kontrib/pkg/lifecycle"
)

const continuationHeader = "x-continuation"

type scope int

const (
	managementScope scope = iota
	subscriptionScope
)

// Client calls the CMS management (project-scoped) and subscription APIs.
// Each key is sent as a bearer token to its own base URL.
type Client struct {
	management      string
	subscription    string
	managementKey   string
	subscriptionKey string
	http            *http.Client
	logger          *slog.Logger
	reachable       atomic.Bool
}

// New creates a client from the given configuration. No request is made
// until an operation is called or Start registers the startup probe.
func New(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		management:      cfg.ManagementBase(),
		subscription:    cfg.SubscriptionBase(),
		managementKey:   cfg.ManagementAPIKey,
		subscriptionKey: cfg.SubscriptionAPIKey,
		http:            &http.Client{Timeout: cfg.TimeoutDuration()},
		logger:          logger.With("system", "kontent"),
	}
}

// Start registers a startup hook that probes the management API. A failed
// probe is logged and does not block startup; it is reported through Ready.
func (c *Client) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting kontent client", "management", c.management)
	lc.Check("kontent", c)

	lc.OnStartup(func() {
		if err := c.Ping(lc.Context()); err != nil {
			c.logger.Warn("kontent management api unreachable", "error", err)
			return
		}
		c.logger.Info("kontent management api reachable")
	})

	return nil
}

// Ready reports whether the last Ping succeeded.
func (c *Client) Ready() bool {
	return c.reachable.Load()
}

// Ping issues a cheap authenticated read against the management API.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, managementScope, http.MethodGet, "/languages", nil, nil)
	c.reachable.Store(err == nil)
	return err
}

// ListUsers returns the subscription user directory.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return listAll[User](ctx, c, subscriptionScope, "/users", "users")
}

// ListItems returns every content item of the project.
func (c *Client) ListItems(ctx context.Context) ([]ContentItem, error) {
	return listAll[ContentItem](ctx, c, managementScope, "/items", "items")
}

// ListTypes returns every content type of the project.
func (c *Client) ListTypes(ctx context.Context) ([]ContentType, error) {
	return listAll[ContentType](ctx, c, managementScope, "/types", "types")
}

// ListLanguages returns every language of the project.
func (c *Client) ListLanguages(ctx context.Context) ([]Language, error) {
	return listAll[Language](ctx, c, managementScope, "/languages", "languages")
}

// ListWorkflows returns every workflow definition of the project.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	return listAll[Workflow](ctx, c, managementScope, "/workflows", "workflows")
}

// GetVariant fetches one language variant of an item.
func (c *Client) GetVariant(ctx context.Context, itemID string, lang LanguageRef) (*Variant, error) {
	body, err := c.do(ctx, managementScope, http.MethodGet, variantPath(itemID, lang, ""), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeVariant(body)
}

// ListVariants returns every language variant of an item.
func (c *Client) ListVariants(ctx context.Context, itemID string) ([]Variant, error) {
	path := "/items/" + url.PathEscape(itemID) + "/variants"
	body, err := c.do(ctx, managementScope, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return Normalize[Variant](body, "variants")
}

// UpsertVariant replaces the variant with payload and returns the stored
// variant. An empty response body yields a nil variant and no error.
func (c *Client) UpsertVariant(ctx context.Context, itemID string, lang LanguageRef, payload VariantPayload) (*Variant, error) {
	body, err := c.do(ctx, managementScope, http.MethodPut, variantPath(itemID, lang, ""), payload, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return decodeVariant(body)
}

// ChangeWorkflowStep moves the variant to the step referenced by ptr without
// touching its content.
func (c *Client) ChangeWorkflowStep(ctx context.Context, itemID string, lang LanguageRef, ptr WorkflowPointer) error {
	_, err := c.do(ctx, managementScope, http.MethodPut, variantPath(itemID, lang, "/workflow"), ptr, nil)
	return err
}

// CreateNewVersion forks a published or scheduled variant into an editable copy.
func (c *Client) CreateNewVersion(ctx context.Context, itemID string, lang LanguageRef) error {
	_, err := c.do(ctx, managementScope, http.MethodPost, variantPath(itemID, lang, "/new-version"), nil, nil)
	return err
}

// Unpublish withdraws a published variant and returns it to the draft class.
func (c *Client) Unpublish(ctx context.Context, itemID string, lang LanguageRef) error {
	_, err := c.do(ctx, managementScope, http.MethodPut, variantPath(itemID, lang, "/unpublish"), nil, nil)
	return err
}

func listAll[T any](ctx context.Context, c *Client, s scope, path, resource string) ([]T, error) {
	var (
		all   []T
		token string
	)

	for {
		var header http.Header
		if token != "" {
			header = http.Header{continuationHeader: []string{token}}
		}

		body, err := c.do(ctx, s, http.MethodGet, path, nil, header)
		if err != nil {
			return nil, err
		}

		page, next, err := normalizePage[T](body, resource)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", resource, err)
		}
		all = append(all, page...)

		if next == "" || next == token {
			break
		}
		token = next
	}

	if all == nil {
		all = []T{}
	}
	return all, nil
}

func (c *Client) do(
	ctx context.Context,
	s scope,
	method, path string,
	payload any,
	header http.Header,
) ([]byte, error) {
	base, key := c.management, c.managementKey
	if s == subscriptionScope {
		base, key = c.subscription, c.subscriptionKey
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNoResponse, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrNoResponse, method, path, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := parseAPIError(method, path, resp.StatusCode, data)
		c.logger.Debug("kontent request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return nil, apiErr
	}

	return data, nil
}

func variantPath(itemID string, lang LanguageRef, suffix string) string {
	return "/items/" + url.PathEscape(itemID) + "/variants/" + url.PathEscape(lang.String()) + suffix
}

func decodeVariant(body []byte) (*Variant, error) {
	var v Variant
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: variant: %v", ErrMalformedResponse, err)
	}
	return &v, nil
}
