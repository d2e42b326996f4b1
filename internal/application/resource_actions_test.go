package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/fleet-cli/internal/adapters/querycache"
	"github.com/bnema/fleet-cli/internal/adapters/resource"
	"github.com/bnema/fleet-cli/internal/adapters/transport"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// widgetBackend answers like the fleet API for one "widgets/" resource.
type widgetBackend struct {
	mu           sync.Mutex
	widgets      []widget
	listHits     int
	failNext     *transport.Response
	emptyUpdates bool
}

func (b *widgetBackend) Send(_ context.Context, req transport.Request) (*transport.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failNext != nil {
		resp := b.failNext
		b.failNext = nil
		return resp, nil
	}

	switch {
	case req.Method == http.MethodGet && req.Path == "widgets/":
		b.listHits++
		body, _ := json.Marshal(map[string]any{
			"data": b.widgets,
			"meta": domain.ListMeta{Total: len(b.widgets), TotalPages: 1, Page: 1, PageSize: 20},
		})
		return &transport.Response{Status: http.StatusOK, Body: body}, nil
	case req.Method == http.MethodPost && req.Path == "widgets/":
		var w widget
		raw, _ := json.Marshal(req.Body)
		_ = json.Unmarshal(raw, &w)
		w.ID = fmt.Sprint(len(b.widgets) + 1)
		b.widgets = append(b.widgets, w)
		body, _ := json.Marshal(w)
		return &transport.Response{Status: http.StatusCreated, Body: body}, nil
	case req.Method == http.MethodPut:
		id := strings.TrimSuffix(strings.TrimPrefix(req.Path, "widgets/"), "/")
		partial := req.Body.(map[string]any)
		for i := range b.widgets {
			if b.widgets[i].ID == id {
				b.widgets[i].Name = partial["name"].(string)
				if b.emptyUpdates {
					return &transport.Response{Status: http.StatusNoContent}, nil
				}
				body, _ := json.Marshal(b.widgets[i])
				return &transport.Response{Status: http.StatusOK, Body: body}, nil
			}
		}
		return &transport.Response{Status: http.StatusNotFound, Body: []byte(`{"detail":"Not found."}`)}, nil
	case req.Method == http.MethodDelete:
		id := strings.TrimSuffix(strings.TrimPrefix(req.Path, "widgets/"), "/")
		for i := range b.widgets {
			if b.widgets[i].ID == id {
				b.widgets = append(b.widgets[:i], b.widgets[i+1:]...)
				return &transport.Response{Status: http.StatusNoContent}, nil
			}
		}
		return &transport.Response{Status: http.StatusNotFound}, nil
	case req.Path == "widgets/search/":
		var hits []widget
		for _, w := range b.widgets {
			if strings.Contains(w.Name, req.Query.Get("q")) {
				hits = append(hits, w)
			}
		}
		body, _ := json.Marshal(hits)
		return &transport.Response{Status: http.StatusOK, Body: body}, nil
	}
	return &transport.Response{Status: http.StatusNotFound}, nil
}

func newWidgetActions(t *testing.T, backend *widgetBackend) *ResourceActions[widget] {
	t.Helper()

	client, err := resource.New(resource.Config[widget]{BasePath: "widgets/", SearchPath: "search/"}, backend, resource.WithCache(querycache.New()))
	require.NoError(t, err)

	return NewResourceActions[widget]("widgets", client, WithIdentity(func(w widget) string { return w.ID }))
}

func TestCreateThenListReflectsEntity(t *testing.T) {
	t.Parallel()

	backend := &widgetBackend{}
	actions := newWidgetActions(t, backend)
	ctx := context.Background()

	_, err := actions.Load(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, actions.Snapshot().Items)

	created, err := actions.Create(ctx, map[string]string{"name": "bin-a"})
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)

	state := actions.Snapshot()
	assert.Equal(t, []widget{{ID: "1", Name: "bin-a"}}, state.Items)
	assert.Equal(t, 1, state.Pagination.Total)
	assert.False(t, state.Loading)
	assert.Equal(t, 2, backend.listHits)
}

func TestLoadMergesFiltersAndOverride(t *testing.T) {
	t.Parallel()

	var seen []domain.ListParams
	client := &recordingClient{list: func(params domain.ListParams) (domain.Page[widget], error) {
		seen = append(seen, params)
		return domain.Page[widget]{Items: []widget{{ID: "1"}}}, nil
	}}
	actions := NewResourceActions[widget]("widgets", client)
	actions.SetFilters(domain.Filters{"status": "1"})

	_, err := actions.Load(context.Background(), &LoadOverride{Page: 3, Filters: domain.Filters{"customer_Name": "Acme"}})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, domain.ListParams{Page: 3, PageSize: DefaultPageSize, Filters: domain.Filters{"status": "1", "customer_Name": "Acme"}}, seen[0])

	state := actions.Snapshot()
	assert.Equal(t, domain.Filters{"status": "1"}, state.Filters)
	assert.Equal(t, 1, state.Pagination.Total)
}

func TestRefreshDropsPreviousOverride(t *testing.T) {
	t.Parallel()

	var seen []domain.ListParams
	client := &recordingClient{list: func(params domain.ListParams) (domain.Page[widget], error) {
		seen = append(seen, params)
		return domain.Page[widget]{Items: []widget{{ID: "1"}}}, nil
	}}
	actions := NewResourceActions[widget]("widgets", client)
	actions.SetFilters(domain.Filters{"status": "1"})

	_, err := actions.Load(context.Background(), &LoadOverride{Page: 4, PageSize: 5, Filters: domain.Filters{"q": "bin"}})
	require.NoError(t, err)
	_, err = actions.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, domain.ListParams{Page: 1, PageSize: DefaultPageSize, Filters: domain.Filters{"status": "1"}}, seen[1])
}

func TestLoadTakesPaginationFromMeta(t *testing.T) {
	t.Parallel()

	client := &recordingClient{list: func(params domain.ListParams) (domain.Page[widget], error) {
		return domain.Page[widget]{
			Items: []widget{{ID: "21"}},
			Meta:  &domain.ListMeta{Total: 41, TotalPages: 3, Page: params.Page, PageSize: params.PageSize},
		}, nil
	}}
	actions := NewResourceActions[widget]("widgets", client)

	_, err := actions.Load(context.Background(), &LoadOverride{Page: 2})
	require.NoError(t, err)

	assert.Equal(t, domain.Pagination{Page: 2, PageSize: DefaultPageSize, Total: 41, TotalPages: 3}, actions.Snapshot().Pagination)
}

func TestCustomListParamsMapping(t *testing.T) {
	t.Parallel()

	type view struct {
		Customer string
		Page     int
	}
	current := view{Customer: "Globex", Page: 2}

	var seen domain.ListParams
	client := &recordingClient{list: func(params domain.ListParams) (domain.Page[widget], error) {
		seen = params
		return domain.Page[widget]{}, nil
	}}
	actions := NewResourceActions[widget]("widgets", client,
		WithFilterSelector[widget](func(Collection[widget]) domain.Filters {
			return domain.Filters{"customer_Name": current.Customer}
		}),
		WithPaginationSelector[widget](func(Collection[widget]) domain.Pagination {
			return domain.Pagination{Page: current.Page, PageSize: 50}
		}),
		WithListParamsMapper[widget](func(filters domain.Filters, pagination domain.Pagination, override *LoadOverride) domain.ListParams {
			params := MergeListParams(filters, pagination, override)
			params.Filters["ordering"] = "-name"
			return params
		}),
	)

	_, err := actions.Load(context.Background(), &LoadOverride{Filters: domain.Filters{"status": "2"}})
	require.NoError(t, err)

	assert.Equal(t, domain.ListParams{
		Page:     2,
		PageSize: 50,
		Filters:  domain.Filters{"customer_Name": "Globex", "status": "2", "ordering": "-name"},
	}, seen)
}

func TestLoadFailureRecordsMessage(t *testing.T) {
	t.Parallel()

	backend := &widgetBackend{failNext: &transport.Response{Status: http.StatusInternalServerError, Body: []byte(`{"message":"database unavailable"}`)}}
	actions := newWidgetActions(t, backend)

	_, err := actions.Load(context.Background(), nil)

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "widgets load", actionErr.Op)
	assert.Equal(t, "database unavailable", actionErr.Message)

	var failed *domain.RequestFailedError
	assert.ErrorAs(t, err, &failed)

	state := actions.Snapshot()
	assert.Equal(t, "database unavailable", state.Error)
	assert.False(t, state.Loading)
}

func TestUpdateSwapsItemWithoutReload(t *testing.T) {
	t.Parallel()

	backend := &widgetBackend{widgets: []widget{{ID: "1", Name: "old"}, {ID: "2", Name: "other"}}}
	actions := newWidgetActions(t, backend)
	ctx := context.Background()

	_, err := actions.Load(ctx, nil)
	require.NoError(t, err)

	_, ok, err := actions.Update(ctx, "1", map[string]any{"name": "new"})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []widget{{ID: "1", Name: "new"}, {ID: "2", Name: "other"}}, actions.Snapshot().Items)
	assert.Equal(t, 1, backend.listHits)
}

func TestUpdateWithoutBodyKeepsMirrorRow(t *testing.T) {
	t.Parallel()

	backend := &widgetBackend{widgets: []widget{{ID: "1", Name: "old"}}, emptyUpdates: true}
	actions := newWidgetActions(t, backend)
	ctx := context.Background()

	_, err := actions.Load(ctx, nil)
	require.NoError(t, err)

	updated, ok, err := actions.Update(ctx, "1", map[string]any{"name": "new"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, widget{}, updated)

	state := actions.Snapshot()
	assert.Equal(t, []widget{{ID: "1", Name: "old"}}, state.Items)
	assert.Empty(t, state.Error)
	assert.Equal(t, 1, backend.listHits)
}

func TestUpdateMissingItemSurfacesServerMessage(t *testing.T) {
	t.Parallel()

	actions := newWidgetActions(t, &widgetBackend{})

	_, _, err := actions.Update(context.Background(), "42", map[string]any{"name": "x"})

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "Not found.", actionErr.Message)
	assert.Equal(t, "Not found.", actions.Snapshot().Error)
}

func TestDeleteReloads(t *testing.T) {
	t.Parallel()

	backend := &widgetBackend{widgets: []widget{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}}
	actions := newWidgetActions(t, backend)

	require.NoError(t, actions.Delete(context.Background(), "1"))

	assert.Equal(t, []widget{{ID: "2", Name: "b"}}, actions.Snapshot().Items)
	assert.Equal(t, 1, backend.listHits)
}

func TestSearchReplacesItems(t *testing.T) {
	t.Parallel()

	backend := &widgetBackend{widgets: []widget{{ID: "1", Name: "bin-a"}, {ID: "2", Name: "truck"}}}
	actions := newWidgetActions(t, backend)

	hits, err := actions.Search(context.Background(), "bin", 10)
	require.NoError(t, err)
	assert.Equal(t, []widget{{ID: "1", Name: "bin-a"}}, hits)
	assert.Equal(t, 1, actions.Snapshot().Pagination.Total)
}

func TestUserMessageFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: &domain.RequestFailedError{Status: http.StatusNotFound}, want: "The requested widgets item was not found."},
		{err: &domain.RequestFailedError{Status: http.StatusForbidden}, want: "You are not allowed to do that. Try signing in again."},
		{err: &domain.RequestFailedError{Status: http.StatusBadGateway}, want: "Could not load widgets (status 502)."},
		{err: fmt.Errorf("x: %w", domain.ErrMalformedResponse), want: "Unexpected response while trying to load widgets."},
		{err: domain.ErrOperationDisabled, want: "widgets does not support load."},
		{err: errors.New("dial tcp: refused"), want: "Could not load widgets: dial tcp: refused"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, userMessage("load", "widgets", tc.err))
	}
}

type recordingClient struct {
	list func(domain.ListParams) (domain.Page[widget], error)
}

func (c *recordingClient) List(_ context.Context, params domain.ListParams) (domain.Page[widget], error) {
	return c.list(params)
}

func (c *recordingClient) Get(context.Context, string) (widget, error) {
	return widget{}, domain.ErrOperationDisabled
}

func (c *recordingClient) Create(context.Context, any) (widget, error) {
	return widget{}, domain.ErrOperationDisabled
}

func (c *recordingClient) Update(context.Context, string, map[string]any) (widget, bool, error) {
	return widget{}, false, domain.ErrOperationDisabled
}

func (c *recordingClient) Delete(context.Context, string) error {
	return domain.ErrOperationDisabled
}

func (c *recordingClient) Search(context.Context, string, int) (domain.Page[widget], error) {
	return domain.Page[widget]{}, domain.ErrOperationDisabled
}
