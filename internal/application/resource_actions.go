package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/rs/zerolog"
)

const DefaultPageSize = 20

// Collection mirrors what one feature area currently shows.
type Collection[T any] struct {
	Items      []T
	Pagination domain.Pagination
	Filters    domain.Filters
	Loading    bool
	Error      string
}

// LoadOverride applies to a single Load call and is not kept in the mirror.
type LoadOverride struct {
	Page     int
	PageSize int
	Filters  domain.Filters
}

// ListParamsMapper builds the list request from the mirror's filters and
// pagination plus the override of the current call, which may be nil.
type ListParamsMapper func(filters domain.Filters, pagination domain.Pagination, override *LoadOverride) domain.ListParams

// ResourceActions drives a ResourceClient and keeps a Collection in step with
// the results.
type ResourceActions[T any] struct {
	name             string
	client           ports.ResourceClient[T]
	identity         func(T) string
	selectFilters    func(Collection[T]) domain.Filters
	selectPagination func(Collection[T]) domain.Pagination
	mapListParams    ListParamsMapper
	logger           zerolog.Logger

	mu    sync.RWMutex
	state Collection[T]
}

type ActionsOption[T any] func(*ResourceActions[T])

// WithIdentity lets Update swap the changed item into the mirror in place.
func WithIdentity[T any](identity func(T) string) ActionsOption[T] {
	return func(a *ResourceActions[T]) {
		a.identity = identity
	}
}

// WithFilterSelector picks the filters Load starts from. The default is the
// mirror's own filters.
func WithFilterSelector[T any](selectFilters func(Collection[T]) domain.Filters) ActionsOption[T] {
	return func(a *ResourceActions[T]) {
		a.selectFilters = selectFilters
	}
}

// WithPaginationSelector picks the page Load starts from. The default is the
// mirror's own pagination.
func WithPaginationSelector[T any](selectPagination func(Collection[T]) domain.Pagination) ActionsOption[T] {
	return func(a *ResourceActions[T]) {
		a.selectPagination = selectPagination
	}
}

func WithListParamsMapper[T any](mapper ListParamsMapper) ActionsOption[T] {
	return func(a *ResourceActions[T]) {
		a.mapListParams = mapper
	}
}

func WithActionsLogger[T any](logger zerolog.Logger) ActionsOption[T] {
	return func(a *ResourceActions[T]) {
		a.logger = logger.With().Str("resource", a.name).Logger()
	}
}

func NewResourceActions[T any](name string, client ports.ResourceClient[T], opts ...ActionsOption[T]) *ResourceActions[T] {
	a := &ResourceActions[T]{
		name:             name,
		client:           client,
		selectFilters:    func(c Collection[T]) domain.Filters { return c.Filters },
		selectPagination: func(c Collection[T]) domain.Pagination { return c.Pagination },
		mapListParams:    MergeListParams,
		logger:           zerolog.Nop(),
		state: Collection[T]{
			Pagination: domain.Pagination{Page: 1, PageSize: DefaultPageSize},
			Filters:    domain.Filters{},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ResourceActions[T]) Snapshot() Collection[T] {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := a.state
	out.Items = append([]T(nil), a.state.Items...)
	out.Filters = a.state.Filters.Clone()
	return out
}

func (a *ResourceActions[T]) SetFilters(filters domain.Filters) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Filters = filters.Clone()
	a.state.Pagination.Page = 1
}

// MergeListParams overlays the override on the given filters and pagination.
// Override filters win over selected ones with the same key.
func MergeListParams(filters domain.Filters, pagination domain.Pagination, override *LoadOverride) domain.ListParams {
	params := domain.ListParams{
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		Filters:  filters.Clone(),
	}
	if override == nil {
		return params
	}
	if override.Page > 0 {
		params.Page = override.Page
	}
	if override.PageSize > 0 {
		params.PageSize = override.PageSize
	}
	for key, value := range override.Filters {
		params.Filters[key] = value
	}
	return params
}

// Load lists with the selected filters and pagination, overlaid by override
// for this call only, and stores the items and any pagination meta.
func (a *ResourceActions[T]) Load(ctx context.Context, override *LoadOverride) (domain.Page[T], error) {
	a.mu.Lock()
	snapshot := a.state
	snapshot.Filters = a.state.Filters.Clone()
	params := a.mapListParams(a.selectFilters(snapshot), a.selectPagination(snapshot), override)
	a.state.Loading = true
	a.state.Error = ""
	a.mu.Unlock()

	page, err := a.client.List(ctx, params)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = false
	if err != nil {
		actionErr := a.actionError("load", err)
		a.state.Error = actionErr.Message
		return domain.Page[T]{}, actionErr
	}

	a.state.Items = page.Items
	if page.Meta != nil {
		a.state.Pagination = a.state.Pagination.WithMeta(*page.Meta)
	} else {
		a.state.Pagination.Total = len(page.Items)
		a.state.Pagination.TotalPages = 1
	}
	return page, nil
}

func (a *ResourceActions[T]) Refresh(ctx context.Context) (domain.Page[T], error) {
	return a.Load(ctx, nil)
}

// Get fetches one item. The mirror is left alone.
func (a *ResourceActions[T]) Get(ctx context.Context, id string) (T, error) {
	return a.run("get", func() (T, error) { return a.client.Get(ctx, id) })
}

// Create adds an item and reloads so the list shows what the server stored.
func (a *ResourceActions[T]) Create(ctx context.Context, payload any) (T, error) {
	created, err := a.run("create", func() (T, error) { return a.client.Create(ctx, payload) })
	if err != nil {
		return created, err
	}
	if _, err := a.Load(ctx, nil); err != nil {
		return created, err
	}
	return created, nil
}

// Update changes one item without reloading the list. The mirror row is only
// replaced when the server sent the updated entity back; ok reports that.
func (a *ResourceActions[T]) Update(ctx context.Context, id string, partial map[string]any) (T, bool, error) {
	var ok bool
	updated, err := a.run("update", func() (T, error) {
		item, found, err := a.client.Update(ctx, id, partial)
		ok = found
		return item, err
	})
	if err != nil {
		return updated, false, err
	}

	if ok && a.identity != nil {
		a.mu.Lock()
		for i, item := range a.state.Items {
			if a.identity(item) == id {
				a.state.Items[i] = updated
				break
			}
		}
		a.mu.Unlock()
	}
	return updated, ok, nil
}

func (a *ResourceActions[T]) Delete(ctx context.Context, id string) error {
	_, err := a.run("delete", func() (T, error) {
		var zero T
		return zero, a.client.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	_, err = a.Load(ctx, nil)
	return err
}

// Search replaces the mirror's items with the matches.
func (a *ResourceActions[T]) Search(ctx context.Context, term string, limit int) ([]T, error) {
	a.setLoading()
	page, err := a.client.Search(ctx, term, limit)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = false
	if err != nil {
		actionErr := a.actionError("search", err)
		a.state.Error = actionErr.Message
		return nil, actionErr
	}

	a.state.Items = page.Items
	a.state.Pagination = domain.Pagination{Page: 1, PageSize: a.state.Pagination.PageSize, Total: len(page.Items), TotalPages: 1}
	return page.Items, nil
}

func (a *ResourceActions[T]) run(op string, fn func() (T, error)) (T, error) {
	a.setLoading()
	result, err := fn()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = false
	if err != nil {
		actionErr := a.actionError(op, err)
		a.state.Error = actionErr.Message
		return result, actionErr
	}
	return result, nil
}

func (a *ResourceActions[T]) setLoading() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Loading = true
	a.state.Error = ""
}

func (a *ResourceActions[T]) actionError(op string, err error) *domain.ActionError {
	message := userMessage(op, a.name, err)
	a.logger.Debug().Err(err).Str("op", op).Msg("resource action failed")
	return &domain.ActionError{Op: a.name + " " + op, Message: message, Err: err}
}

func userMessage(op string, name string, err error) string {
	var failed *domain.RequestFailedError
	switch {
	case errors.As(err, &failed) && failed.Message != "":
		return failed.Message
	case errors.As(err, &failed) && failed.Status == http.StatusNotFound:
		return fmt.Sprintf("The requested %s item was not found.", name)
	case errors.As(err, &failed) && (failed.Status == http.StatusUnauthorized || failed.Status == http.StatusForbidden):
		return "You are not allowed to do that. Try signing in again."
	case errors.As(err, &failed):
		return fmt.Sprintf("Could not %s %s (status %d).", op, name, failed.Status)
	case errors.Is(err, domain.ErrMalformedResponse):
		return fmt.Sprintf("Unexpected response while trying to %s %s.", op, name)
	case errors.Is(err, domain.ErrOperationDisabled):
		return fmt.Sprintf("%s does not support %s.", name, op)
	default:
		return fmt.Sprintf("Could not %s %s: %v", op, name, err)
	}
}
