// Package vault implements the signed wire client for the external biometric
// matching engine. It maps four operations onto the engine's private HTTP API
// and unwraps its layered responses. The client never retries; retry policy
// belongs to the caller.
package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"voicegate/pkg/circuit"
)

// ErrCircuitOpen is returned without any network traffic while the breaker
// considers the vault down.
var ErrCircuitOpen = errors.New("vault circuit open")

// Config holds credentials and endpoints for the vault.
type Config struct {
	AppID     string
	APIKey    string
	APISecret string

	// Host is the vault hostname used both to reach the service and as the
	// signed Host header.
	Host string
	// ServiceID is the account's provisioned service ID; it is the last
	// path segment and the parameter-block key.
	ServiceID string

	// BaseURL overrides "https://<Host>" when set. Tests point it at a
	// local fake; the signed Host header is unaffected.
	BaseURL string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func (c Config) endpoint() string {
	return "/v1/private/" + c.ServiceID
}

func (c Config) url() string {
	base := c.BaseURL
	if base == "" {
		base = "https://" + c.Host
	}
	return base + c.endpoint()
}

// Client is the signed HTTP client for the vault.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	breaker *circuit.Breaker
	observe func(op string, d time.Duration)
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker guards calls with a circuit breaker. Only transport-level
// failures trip it; a reachable vault rejecting a request counts as success.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithObserver reports per-operation call durations, typically into a
// histogram.
func WithObserver(observe func(op string, d time.Duration)) Option {
	return func(c *Client) { c.observe = observe }
}

// NewClient builds a vault client with the configured connect and read
// timeouts.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateFeature registers a voiceprint feature and returns the vault's echo
// of the feature ID.
func (c *Client) CreateFeature(ctx context.Context, groupID, featureID, audioBase64, featureInfo string) (*CreateFeatureResult, error) {
	params := opParams{
		Func:        "createFeature",
		GroupID:     groupID,
		FeatureID:   featureID,
		FeatureInfo: featureInfo,
	}
	payload, err := c.call(ctx, "createFeature", params, audioBase64)
	if err != nil {
		return nil, err
	}
	var res CreateFeatureResult
	if err := decodeInner(payload.CreateFeatureRes, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SearchFeature runs a 1:N search against the group and returns the scored
// candidate list.
func (c *Client) SearchFeature(ctx context.Context, groupID, audioBase64 string, topK int) (*SearchResult, error) {
	params := opParams{
		Func:    "searchFea",
		GroupID: groupID,
		TopK:    topK,
	}
	payload, err := c.call(ctx, "searchFea", params, audioBase64)
	if err != nil {
		return nil, err
	}
	var res SearchResult
	if err := decodeInner(payload.SearchFeaRes, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteFeature removes a feature from the group.
func (c *Client) DeleteFeature(ctx context.Context, groupID, featureID string) (*DeleteFeatureResult, error) {
	params := opParams{
		Func:      "deleteFeature",
		GroupID:   groupID,
		FeatureID: featureID,
	}
	payload, err := c.call(ctx, "deleteFeature", params, "")
	if err != nil {
		return nil, err
	}
	var res DeleteFeatureResult
	if err := decodeInner(payload.DeleteFeatureRes, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateGroup provisions a feature group; used by operational tooling when a
// deployment points at a fresh vault account.
func (c *Client) CreateGroup(ctx context.Context, groupID, groupName, groupInfo string) (*CreateGroupResult, error) {
	params := opParams{
		Func:      "createGroup",
		GroupID:   groupID,
		GroupName: groupName,
		GroupInfo: groupInfo,
	}
	payload, err := c.call(ctx, "createGroup", params, "")
	if err != nil {
		return nil, err
	}
	var res CreateGroupResult
	if err := decodeInner(payload.CreateGroupRes, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// call sends one signed request and parses the outer response layer.
func (c *Client) call(ctx context.Context, op string, params opParams, audioBase64 string) (*responsePayload, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, fmt.Errorf("%s: %w", op, ErrCircuitOpen)
	}

	env := requestEnvelope{
		Header:    requestHeader{AppID: c.cfg.AppID, Status: 3},
		Parameter: map[string]opParams{c.cfg.ServiceID: params},
	}
	if audioBase64 != "" {
		env.Payload = &requestPayload{Resource: audioResource{Audio: audioBase64}}
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.url(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range authHeaders(c.cfg.APIKey, c.cfg.APISecret, c.cfg.Host, http.MethodPost, c.cfg.endpoint(), c.now()) {
		if k == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if c.observe != nil {
		c.observe(op, duration)
	}
	if err != nil {
		c.tripped(op)
		return nil, fmt.Errorf("send %s request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.tripped(op)
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	c.logger.Debug("vault call",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		c.tripped(op)
		return nil, &APIError{HTTPStatus: resp.StatusCode, Body: string(raw)}
	}
	c.recovered(op)

	var env2 responseEnvelope
	if err := json.Unmarshal(raw, &env2); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	if env2.Header.Code != 0 {
		c.logger.Error("vault rejected call",
			"op", op,
			"code", env2.Header.Code,
			"message", env2.Header.Message,
			"sid", env2.Header.Sid,
		)
		return nil, &APIError{
			Code:    env2.Header.Code,
			Message: env2.Header.Message,
			Sid:     env2.Header.Sid,
		}
	}

	c.logger.Debug("vault call succeeded", "op", op, "sid", env2.Header.Sid)
	return &env2.Payload, nil
}

func (c *Client) tripped(op string) {
	if c.breaker == nil {
		return
	}
	if c.breaker.RecordFailure() {
		c.logger.Warn("vault circuit opened", "op", op, "breaker", c.breaker.Name())
	}
}

func (c *Client) recovered(op string) {
	if c.breaker == nil {
		return
	}
	if c.breaker.RecordSuccess() {
		c.logger.Info("vault circuit closed", "op", op, "breaker", c.breaker.Name())
	}
}

// decodeInner unwraps the second response layer: base64 text holding a JSON
// document.
func decodeInner(res *encodedResult, into any) error {
	if res == nil || res.Text == "" {
		return fmt.Errorf("response payload missing result text")
	}
	decoded, err := base64.StdEncoding.DecodeString(res.Text)
	if err != nil {
		return fmt.Errorf("decode result text: %w", err)
	}
	if err := json.Unmarshal(decoded, into); err != nil {
		return fmt.Errorf("parse result document: %w", err)
	}
	return nil
}
