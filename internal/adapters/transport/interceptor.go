package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/httpapi"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

var (
	// Paths that never carry a bearer token.
	anonymousPaths = []string{"auth/login", "auth/register", "auth/refresh"}
	// Paths whose auth failures are final.
	authPaths = []string{"auth/login", "auth/register", "auth/refresh", "auth/logout"}
)

type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Header    http.Header
	SkipScope bool
}

type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
	Replayed  bool
}

func (r *Response) OK() bool {
	return httpapi.IsSuccess(r.Status)
}

func (r *Response) Decode(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Interceptor sends every resource request. It adds the bearer token and the
// tenant scope, and on 401/403 refreshes the session and replays once.
type Interceptor struct {
	baseURL        string
	session        ports.SessionAuthority
	scope          ports.ScopeProvider
	scopePrefixes  []string
	httpClient     *http.Client
	requestTimeout time.Duration
	logger         zerolog.Logger
	newID          func() string
}

type Option func(*Interceptor)

func WithHTTPClient(client *http.Client) Option {
	return func(i *Interceptor) {
		if client != nil {
			i.httpClient = client
		}
	}
}

// WithScope attaches the provider's scope to requests whose path starts with
// one of prefixes.
func WithScope(provider ports.ScopeProvider, prefixes ...string) Option {
	return func(i *Interceptor) {
		i.scope = provider
		i.scopePrefixes = nil
		for _, prefix := range prefixes {
			if trimmed := strings.TrimPrefix(strings.TrimSpace(prefix), "/"); trimmed != "" {
				i.scopePrefixes = append(i.scopePrefixes, trimmed)
			}
		}
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(i *Interceptor) {
		i.requestTimeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger.With().Str("component", "interceptor").Logger()
	}
}

func New(baseURL string, session ports.SessionAuthority, opts ...Option) (*Interceptor, error) {
	if session == nil {
		return nil, errors.New("interceptor requires a session")
	}
	if _, err := httpapi.BuildURL(baseURL, "/"); err != nil {
		return nil, err
	}

	i := &Interceptor{
		baseURL:    baseURL,
		session:    session,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Send dispatches req. Non-2xx answers come back as a Response, not an error;
// only transport failures are returned as errors.
func (i *Interceptor) Send(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimPrefix(req.Path, "/")

	endpoint, err := httpapi.BuildURL(i.baseURL, path)
	if err != nil {
		return nil, err
	}
	endpoint.RawQuery = i.query(ctx, path, req).Encode()

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	call := &call{
		method:    method,
		path:      path,
		url:       endpoint.String(),
		body:      body,
		header:    req.Header,
		requestID: i.newID(),
	}

	snapshot := i.session.Snapshot()
	token := ""
	if !hasPrefix(path, anonymousPaths) {
		token = snapshot.AccessToken
	}

	resp, err := i.dispatch(ctx, call, token)
	if err != nil {
		return nil, err
	}

	if !isAuthFailure(resp.Status) || hasPrefix(path, authPaths) {
		i.recordActivity(ctx, resp, token)
		return resp, nil
	}

	current := i.session.Snapshot()
	if !current.Authenticated || current.RefreshToken == "" {
		return resp, nil
	}

	fresh, err := i.session.RefreshIfStale(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return resp, nil
		}
		i.logger.Warn().Err(err).Str("path", path).Msg("refresh after auth failure failed, logging out")
		i.session.Logout(ctx)
		return resp, nil
	}

	i.logger.Debug().Str("path", path).Str("request_id", call.requestID).Msg("replaying request with refreshed token")
	replayed, err := i.dispatch(ctx, call, fresh)
	if err != nil {
		return nil, err
	}
	replayed.Replayed = true
	i.recordActivity(ctx, replayed, fresh)
	return replayed, nil
}

type call struct {
	method    string
	path      string
	url       string
	body      []byte
	header    http.Header
	requestID string
}

func (i *Interceptor) dispatch(ctx context.Context, c *call, token string) (*Response, error) {
	requestCtx, cancel := i.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, c.method, c.url, bytes.NewReader(c.body))
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", c.method, c.path, err)
	}
	for key, values := range c.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(HeaderRequestID, c.requestID)
	if isMutation(c.method) {
		httpReq.Header.Set(HeaderIdempotencyKey, c.requestID)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := i.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.method, c.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := httpapi.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", c.method, c.path, err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: payload, RequestID: c.requestID}, nil
}

// query merges the scope into a copy of the caller's query. Caller keys win.
func (i *Interceptor) query(ctx context.Context, path string, req Request) url.Values {
	query := url.Values{}
	for key, values := range req.Query {
		query[key] = append([]string(nil), values...)
	}

	if req.SkipScope || i.scope == nil || !hasPrefix(path, i.scopePrefixes) {
		return query
	}

	scope, ok := i.scope.CurrentScope(ctx)
	if !ok || scope.Empty() || scope.Param == "" {
		return query
	}
	if _, exists := query[scope.Param]; !exists {
		query.Set(scope.Param, scope.Value)
	}
	return query
}

func (i *Interceptor) recordActivity(ctx context.Context, resp *Response, token string) {
	if token != "" && resp.OK() {
		i.session.RecordActivity(ctx)
	}
}

func (i *Interceptor) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := i.requestTimeout
	if requestTimeout <= 0 {
		requestTimeout = httpapi.DefaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
