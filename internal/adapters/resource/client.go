package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/httpapi"
	"github.com/bnema/fleet-cli/internal/adapters/querycache"
	"github.com/bnema/fleet-cli/internal/adapters/transport"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/rs/zerolog"
)

// Sender is what the client routes requests through; in production it is the
// transport.Interceptor.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
}

type Config[T any] struct {
	// Name is the cache identity. Defaults to BasePath without slashes.
	Name       string
	BasePath   string
	SearchPath string
	StatsPath  string
	Transform  func(T) T
	CacheTTL   time.Duration
	// UpdateMethod defaults to PUT.
	UpdateMethod string
	// StrictEnvelope rejects bare-array list responses.
	StrictEnvelope   bool
	OptimisticUpdate bool
}

type normalizedConfig struct {
	name         string
	basePath     string
	searchPath   string
	statsPath    string
	updateMethod string
}

var _ ports.ResourceClient[domain.Device] = (*Client[domain.Device])(nil)

type Client[T any] struct {
	cfg        Config[T]
	sender     Sender
	cache      *querycache.Cache
	logger     zerolog.Logger
	operations map[OperationKind]operation
}

type Option func(*clientOptions)

type clientOptions struct {
	cache  *querycache.Cache
	logger zerolog.Logger
}

func WithCache(cache *querycache.Cache) Option {
	return func(o *clientOptions) {
		o.cache = cache
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

func New[T any](cfg Config[T], sender Sender, opts ...Option) (*Client[T], error) {
	if sender == nil {
		return nil, errors.New("resource client requires a sender")
	}
	base := strings.Trim(strings.TrimSpace(cfg.BasePath), "/")
	if base == "" {
		return nil, errors.New("resource base path is required")
	}

	options := clientOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&options)
	}

	norm := normalizedConfig{
		name:         cfg.Name,
		basePath:     base + "/",
		searchPath:   subPath(cfg.SearchPath),
		statsPath:    subPath(cfg.StatsPath),
		updateMethod: strings.ToUpper(cfg.UpdateMethod),
	}
	if norm.name == "" {
		norm.name = base
	}
	if norm.updateMethod == "" {
		norm.updateMethod = http.MethodPut
	}

	return &Client[T]{
		cfg:        cfg,
		sender:     sender,
		cache:      options.cache,
		logger:     options.logger.With().Str("resource", norm.name).Logger(),
		operations: buildOperations(norm),
	}, nil
}

func (c *Client[T]) BasePath() string {
	return c.operations[OpList].path("")
}

// Supports reports whether the resource exposes kind.
func (c *Client[T]) Supports(kind OperationKind) bool {
	_, ok := c.operations[kind]
	return ok
}

func (c *Client[T]) List(ctx context.Context, params domain.ListParams) (domain.Page[T], error) {
	query := url.Values{}
	for key, value := range params.Filters {
		if value != "" {
			query.Set(key, value)
		}
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}

	body, err := c.read(ctx, OpList, "", query)
	if err != nil {
		return domain.Page[T]{}, err
	}

	page, err := decodePage[T](body, c.cfg.StrictEnvelope)
	if err != nil {
		return domain.Page[T]{}, fmt.Errorf("%s list: %w", c.BasePath(), err)
	}
	page.Items = c.transformAll(page.Items)
	return page, nil
}

func (c *Client[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := requireID(id); err != nil {
		return zero, err
	}

	body, err := c.read(ctx, OpGet, id, nil)
	if err != nil {
		return zero, err
	}
	return c.decodeOne(body)
}

func (c *Client[T]) Create(ctx context.Context, payload any) (T, error) {
	body, err := c.write(ctx, OpCreate, "", payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decodeOne(body)
}

// Update sends partial. With OptimisticUpdate the cached entity shows the
// change while the request is in flight and reverts if it fails. An empty
// success body reports ok=false.
func (c *Client[T]) Update(ctx context.Context, id string, partial map[string]any) (T, bool, error) {
	var zero T
	if err := requireID(id); err != nil {
		return zero, false, err
	}

	var patch *querycache.Patch
	if c.cfg.OptimisticUpdate && c.cache != nil {
		var err error
		patch, err = c.cache.BeginPatch(c.cacheKey(OpGet, id, nil), partial)
		if err != nil {
			c.logger.Debug().Err(err).Str("id", id).Msg("optimistic patch skipped")
			patch = nil
		}
	}

	body, err := c.write(ctx, OpUpdate, id, partial)
	if err != nil {
		if patch != nil {
			patch.Rollback()
		}
		return zero, false, err
	}
	if patch != nil {
		patch.Commit()
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return zero, false, nil
	}
	updated, err := c.decodeOne(body)
	if err != nil {
		return zero, false, err
	}
	return updated, true, nil
}

func (c *Client[T]) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	_, err := c.write(ctx, OpDelete, id, nil)
	return err
}

func (c *Client[T]) Search(ctx context.Context, term string, limit int) (domain.Page[T], error) {
	query := url.Values{}
	query.Set("q", term)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.read(ctx, OpSearch, "", query)
	if err != nil {
		return domain.Page[T]{}, err
	}

	page, err := decodePage[T](body, false)
	if err != nil {
		return domain.Page[T]{}, fmt.Errorf("%s search: %w", c.BasePath(), err)
	}
	page.Items = c.transformAll(page.Items)
	return page, nil
}

func (c *Client[T]) Stats(ctx context.Context) (map[string]any, error) {
	body, err := c.read(ctx, OpStats, "", nil)
	if err != nil {
		return nil, err
	}
	stats, err := decodeItem[map[string]any](body)
	if err != nil {
		return nil, fmt.Errorf("%s stats: %w", c.BasePath(), err)
	}
	return stats, nil
}

func (c *Client[T]) read(ctx context.Context, kind OperationKind, id string, query url.Values) ([]byte, error) {
	op, ok := c.operations[kind]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", c.BasePath(), kind, domain.ErrOperationDisabled)
	}

	key := c.cacheKey(kind, id, query)
	if c.cache != nil && op.cached() {
		if body, hit := c.cache.Get(key); hit {
			return body, nil
		}
	}

	resp, err := c.send(ctx, op, id, query, nil)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && op.cached() {
		c.cache.Put(key, resp.Body, c.cfg.CacheTTL, op.provides(id)...)
	}
	return resp.Body, nil
}

func (c *Client[T]) write(ctx context.Context, kind OperationKind, id string, payload any) ([]byte, error) {
	op, ok := c.operations[kind]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", c.BasePath(), kind, domain.ErrOperationDisabled)
	}

	resp, err := c.send(ctx, op, id, nil, payload)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && op.invalidates != nil {
		dropped := c.cache.Invalidate(op.invalidates(id)...)
		c.logger.Debug().Str("op", kind.String()).Int("dropped", dropped).Msg("cache entries invalidated")
	}
	return resp.Body, nil
}

func (c *Client[T]) send(ctx context.Context, op operation, id string, query url.Values, payload any) (*transport.Response, error) {
	path := op.path(id)
	resp, err := c.sender.Send(ctx, transport.Request{Method: op.method, Path: path, Query: query, Body: payload})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &domain.RequestFailedError{
			Method:  op.method,
			Path:    path,
			Status:  resp.Status,
			Body:    resp.Body,
			Message: httpapi.ErrorMessage(resp.Body),
		}
	}
	return resp, nil
}

func (c *Client[T]) cacheKey(kind OperationKind, id string, query url.Values) string {
	op := c.operations[kind]
	key := op.method + " " + op.path(id)
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

func (c *Client[T]) decodeOne(body []byte) (T, error) {
	item, err := decodeItem[T](body)
	if err != nil {
		return item, err
	}
	return c.transform(item), nil
}

func (c *Client[T]) transform(item T) T {
	if c.cfg.Transform == nil {
		return item
	}
	return c.cfg.Transform(item)
}

func (c *Client[T]) transformAll(items []T) []T {
	if c.cfg.Transform == nil {
		return items
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = c.cfg.Transform(item)
	}
	return out
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return fmt.Errorf("invalid resource id %q", id)
	}
	return nil
}

func subPath(path string) string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}
