package cmd

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFetchLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request listFetch
		want    string
	}{
		{name: "first page", request: listFetch{resource: "devices", page: 1, pageSize: 20}, want: "Fetching devices · 20 per page"},
		{name: "later page", request: listFetch{resource: "tickets", page: 3, pageSize: 50}, want: "Fetching tickets · page 3 · 50 per page"},
		{
			name:    "filters sorted",
			request: listFetch{resource: "devices", page: 1, filters: map[string]string{"status": "1", "customer_Name": "Acme"}},
			want:    "Fetching devices · customer_Name=Acme · status=1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.request.label())
		})
	}
}

func TestListSpinnerShowsElapsedOnSlowFetch(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newListSpinnerModel(listFetch{resource: "devices"}, nil, started)

	next, _ := m.Update(spinner.TickMsg{Time: started.Add(200 * time.Millisecond)})
	assert.NotContains(t, next.View(), "s)")

	next, _ = next.Update(spinner.TickMsg{Time: started.Add(2500 * time.Millisecond)})
	assert.Contains(t, next.View(), "Fetching devices")
	assert.Contains(t, next.View(), "(2.5s)")

	loadErr := errors.New("boom")
	next, cmd := next.Update(listLoadedMsg{err: loadErr})
	require.NotNil(t, cmd)
	assert.Empty(t, next.View())
	assert.Equal(t, loadErr, next.(listSpinnerModel).err)
}

func TestRunListSpinnerReturnsLoadError(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("list failed")
	err := runListSpinner(context.Background(), io.Discard, listFetch{resource: "devices"}, func(context.Context) error {
		return loadErr
	})

	assert.ErrorIs(t, err, loadErr)
}
