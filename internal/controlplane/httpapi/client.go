// Package httpapi implementa controlplane.Client contra la Admin REST API
// del cluster groupware: JSON sobre HTTP, bearer token HS256 por request.
package httpapi

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

	jwtv5 "github.com/golang-jwt/jwt/v5"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
)

// Options configura el cliente HTTP.
type Options struct {
	BaseURL string
	// Secret firma los tokens HS256 (compartido con el Admin API).
	Secret string
	// Requester va como subject del token y como tag en component-state.
	Requester string
	Timeout   time.Duration // default 30s
	TokenTTL  time.Duration // default 2m
	// HTTP permite inyectar un *http.Client propio (tests).
	HTTP *http.Client
}

// Client habla con el Admin API. Implementa controlplane.Client.
type Client struct {
	baseURL   string
	secret    []byte
	requester string
	tokenTTL  time.Duration
	http      *http.Client
}

func New(o Options) (*Client, error) {
	if strings.TrimSpace(o.BaseURL) == "" {
		return nil, fmt.Errorf("httpapi: base URL required")
	}
	if o.Secret == "" {
		return nil, fmt.Errorf("httpapi: shared secret required")
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := o.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	hc := o.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(o.BaseURL, "/"),
		secret:    []byte(o.Secret),
		requester: o.Requester,
		tokenTTL:  ttl,
		http:      hc,
	}, nil
}

// mintToken emite el bearer HS256 de corta vida para un request.
func (c *Client) mintToken() (string, error) {
	now := time.Now()
	claims := jwtv5.RegisteredClaims{
		Issuer:    "mailmaint",
		Subject:   c.requester,
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(c.tokenTTL)),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(c.secret)
}

// do ejecuta un request JSON y decodifica la respuesta 2xx en out (si no es nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpapi: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}
	token, err := c.mintToken()
	if err != nil {
		return fmt.Errorf("httpapi: mint token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if strings.Contains(strings.ToLower(string(b)), "server not found") {
			return cp.ErrServerNotFound
		}
		return fmt.Errorf("httpapi: %s %s: status=404 body=%s", method, path, strings.TrimSpace(string(b)))
	}
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("httpapi: %s %s: status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("httpapi: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// ---- Wire types ----

type componentStateReq struct {
	State     cp.ComponentState `json:"state"`
	Requester string            `json:"requester"`
}

type redirectReq struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type activationReq struct {
	DisabledAndMoveNow bool `json:"disabled_and_move_now"`
}

type policyBody struct {
	Policy cp.ActivationPolicy `json:"policy"`
}

type nodeStateResp struct {
	Name  string              `json:"name"`
	State cp.ClusterNodeState `json:"state"`
}

type databasesResp struct {
	Databases []string `json:"databases"`
}

type groupResp struct {
	Group string `json:"group"`
}

// ---- controlplane.Client ----

func (c *Client) GetServer(ctx context.Context, identity string) (*cp.ServerInfo, error) {
	var out cp.ServerInfo
	if err := c.do(ctx, http.MethodGet, "/v1/servers/"+url.PathEscape(identity), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetComponentState(ctx context.Context, server string, component cp.Component, state cp.ComponentState, requester string) error {
	path := fmt.Sprintf("/v1/servers/%s/components/%s", url.PathEscape(server), url.PathEscape(string(component)))
	return c.do(ctx, http.MethodPost, path, componentStateReq{State: state, Requester: requester}, nil)
}

func (c *Client) RedirectMessages(ctx context.Context, source, target string) error {
	return c.do(ctx, http.MethodPost, "/v1/transport/redirect", redirectReq{Source: source, Target: target}, nil)
}

func (c *Client) SuspendClusterNode(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/v1/cluster/nodes/"+url.PathEscape(name)+"/suspend", nil, nil)
}

func (c *Client) ResumeClusterNode(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/v1/cluster/nodes/"+url.PathEscape(name)+"/resume", nil, nil)
}

func (c *Client) GetClusterNodeState(ctx context.Context, name string) (cp.ClusterNodeState, error) {
	var out nodeStateResp
	if err := c.do(ctx, http.MethodGet, "/v1/cluster/nodes/"+url.PathEscape(name), nil, &out); err != nil {
		return cp.NodeUnknown, err
	}
	return out.State, nil
}

func (c *Client) SetMailboxServerActivation(ctx context.Context, server string, disableAndMoveNow bool) error {
	path := "/v1/servers/" + url.PathEscape(server) + "/activation"
	return c.do(ctx, http.MethodPost, path, activationReq{DisabledAndMoveNow: disableAndMoveNow}, nil)
}

func (c *Client) GetMailboxServerActivationPolicy(ctx context.Context, server string) (cp.ActivationPolicy, error) {
	var out policyBody
	if err := c.do(ctx, http.MethodGet, "/v1/servers/"+url.PathEscape(server)+"/activation-policy", nil, &out); err != nil {
		return "", err
	}
	return out.Policy, nil
}

func (c *Client) SetMailboxServerActivationPolicy(ctx context.Context, server string, policy cp.ActivationPolicy) error {
	return c.do(ctx, http.MethodPut, "/v1/servers/"+url.PathEscape(server)+"/activation-policy", policyBody{Policy: policy}, nil)
}

func (c *Client) GetMountedDatabaseCopies(ctx context.Context, server string) ([]string, error) {
	var out databasesResp
	path := "/v1/servers/" + url.PathEscape(server) + "/database-copies?state=mounted"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Databases, nil
}

func (c *Client) GetReplicationGroupForServer(ctx context.Context, server string) (string, error) {
	var out groupResp
	if err := c.do(ctx, http.MethodGet, "/v1/servers/"+url.PathEscape(server)+"/replication-group", nil, &out); err != nil {
		return "", err
	}
	return out.Group, nil
}

func (c *Client) RebalanceGroup(ctx context.Context, group string) error {
	return c.do(ctx, http.MethodPost, "/v1/groups/"+url.PathEscape(group)+"/rebalance", nil, nil)
}

// compile-time check
var _ cp.Client = (*Client)(nil)
