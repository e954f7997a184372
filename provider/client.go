package provider

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

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/flexnote/compute-broker/internal/config"
	"github.com/flexnote/compute-broker/internal/errors"
)

const (
	routeGPUTypes  = "/v1/compute/gpu-types"
	routeInstances = "/v1/compute/instances"

	headerOrganizationID = "X-Organization-ID"

	defaultTimeout          = 30 * time.Second
	defaultProvisionTimeout = 60 * time.Second

	maxErrorBody = 64 << 10
)

var _ Gateway = (*Client)(nil)

// Client talks to the compute provider over HTTP. Requests carry the API key
// (or a caller token from the context) as a bearer token plus the
// organization header.
type Client struct {
	baseURL          string
	apiKey           string
	orgID            string
	base             http.RoundTripper
	timeout          time.Duration
	provisionTimeout time.Duration
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithTransport sets the underlying round tripper (primarily for testing)
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.base = rt
	}
}

// WithTimeouts sets the per call timeouts for control calls and provisioning.
func WithTimeouts(timeout, provisionTimeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
		if provisionTimeout > 0 {
			c.provisionTimeout = provisionTimeout
		}
	}
}

func NewClient(apiKey, baseURL, orgID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		apiKey:           apiKey,
		orgID:            orgID,
		base:             http.DefaultTransport,
		timeout:          defaultTimeout,
		provisionTimeout: defaultProvisionTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a Client from the provider settings.
func NewClientFromConfig(cfg config.ProviderConfig, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithTimeouts(cfg.GetProviderTimeout(), cfg.GetProvisionTimeout())}, opts...)
	return NewClient(cfg.GetProviderAPIKey(), cfg.GetProviderURL(), cfg.GetOrganizationID(), opts...)
}

func (c *Client) ListGPUTypes(ctx context.Context) ([]GPUType, error) {
	var body struct {
		GPUTypes *[]GPUType `json:"gpu_types"`
	}
	if err := c.do(ctx, http.MethodGet, routeGPUTypes, nil, &body, c.timeout); err != nil {
		log.Err(err).Msg("Error fetching GPU types")
		return nil, err
	}
	if body.GPUTypes == nil {
		err := fmt.Errorf("%w: catalog response missing gpu_types", errors.ErrProviderUnavailable)
		log.Err(err).Msg("Error fetching GPU types")
		return nil, err
	}
	for _, g := range *body.GPUTypes {
		if err := g.validate(); err != nil {
			log.Err(err).Msg("Error fetching GPU types")
			return nil, err
		}
	}
	return *body.GPUTypes, nil
}

// provisionPayload is the provider's create-instance body.
type provisionPayload struct {
	ProvisionRequest
	Environment string   `json:"environment"`
	Frameworks  []string `json:"frameworks"`
}

func (c *Client) Provision(ctx context.Context, req ProvisionRequest) (Instance, error) {
	payload := provisionPayload{
		ProvisionRequest: req.WithDefaults(),
		Environment:      "jupyter",
		Frameworks:       []string{"pytorch", "tensorflow", "jax"},
	}

	var inst Instance
	if err := c.do(ctx, http.MethodPost, routeInstances, payload, &inst, c.provisionTimeout); err != nil {
		log.Err(err).Str("gpu_type", req.GPUType).Int("gpu_count", payload.GPUCount).Msg("Error provisioning instance")
		return Instance{}, err
	}
	if err := inst.validate(); err != nil {
		log.Err(err).Str("gpu_type", req.GPUType).Msg("Error provisioning instance")
		return Instance{}, err
	}
	return inst, nil
}

func (c *Client) GetStatus(ctx context.Context, instanceID string) (Instance, error) {
	var inst Instance
	if err := c.do(ctx, http.MethodGet, instancePath(instanceID), nil, &inst, c.timeout); err != nil {
		log.Err(err).Str("instance_id", instanceID).Msg("Error getting instance status")
		return Instance{}, err
	}
	if err := inst.validate(); err != nil {
		log.Err(err).Str("instance_id", instanceID).Msg("Error getting instance status")
		return Instance{}, err
	}
	return inst, nil
}

func (c *Client) Stop(ctx context.Context, instanceID string) bool {
	if err := c.do(ctx, http.MethodPost, instancePath(instanceID)+"/stop", nil, nil, c.timeout); err != nil {
		log.Err(err).Str("instance_id", instanceID).Msg("Error stopping instance")
		return false
	}
	return true
}

func (c *Client) Delete(ctx context.Context, instanceID string) bool {
	if err := c.do(ctx, http.MethodDelete, instancePath(instanceID), nil, nil, c.timeout); err != nil {
		log.Err(err).Str("instance_id", instanceID).Msg("Error deleting instance")
		return false
	}
	return true
}

func instancePath(instanceID string) string {
	return routeInstances + "/" + url.PathEscape(instanceID)
}

// httpClient returns a client that authorizes requests with the caller's
// token when one is attached to ctx, otherwise with the API key.
func (c *Client) httpClient(ctx context.Context) *http.Client {
	token := c.apiKey
	if callerToken, ok := CallerToken(ctx); ok {
		token = callerToken
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.base,
		},
	}
}

// do performs one provider call bounded by timeout. A non-nil out receives
// the decoded 2xx body.
func (c *Client) do(ctx context.Context, method, path string, in, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(errors.ErrInternal, "encode %s %s: %v", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(errors.ErrInternal, "build %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerOrganizationID, c.orgID)

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errors.ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, method, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", errors.ErrProviderUnavailable, method, path, err)
	}
	return nil
}

// statusError maps a non-2xx provider response onto the error taxonomy. A
// 404 is an instance miss only on a per-instance path; anywhere else it means
// the provider API is not where we expect it.
func statusError(resp *http.Response, method, path string) error {
	detail := errorDetail(resp.Body)
	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return errors.Invalidf("provider rejected %s %s: %s", method, path, detail)
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, routeInstances+"/"):
		return fmt.Errorf("%w: %s %s: %s", errors.ErrInstanceNotFound, method, path, detail)
	default:
		return fmt.Errorf("%w: %s %s returned %d: %s", errors.ErrProviderUnavailable, method, path, resp.StatusCode, detail)
	}
}

// errorDetail pulls the "detail" field out of an error body, falling back to
// the raw text.
func errorDetail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(raw))
}
