package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Slow fetches get their elapsed time appended to the label.
const slowFetchAfter = time.Second

// listFetch describes the list request the spinner is waiting on.
type listFetch struct {
	resource string
	page     int
	pageSize int
	filters  map[string]string
}

func (f listFetch) label() string {
	parts := []string{"Fetching " + f.resource}
	if f.page > 1 {
		parts = append(parts, fmt.Sprintf("page %d", f.page))
	}
	if f.pageSize > 0 {
		parts = append(parts, fmt.Sprintf("%d per page", f.pageSize))
	}

	keys := make([]string, 0, len(f.filters))
	for key := range f.filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+f.filters[key])
	}
	return strings.Join(parts, " · ")
}

type listLoadedMsg struct {
	err error
}

type listSpinnerModel struct {
	spinner spinner.Model
	hint    lipgloss.Style
	request listFetch
	load    tea.Cmd
	started time.Time
	elapsed time.Duration
	err     error
	done    bool
}

func newListSpinnerModel(request listFetch, load tea.Cmd, started time.Time) listSpinnerModel {
	return listSpinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("36"))),
		),
		hint:    lipgloss.NewStyle().Faint(true),
		request: request,
		load:    load,
		started: started,
	}
}

func (m listSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m listSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listLoadedMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if !msg.Time.IsZero() {
			m.elapsed = msg.Time.Sub(m.started)
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m listSpinnerModel) View() string {
	if m.done {
		return ""
	}

	view := m.spinner.View() + " " + m.request.label()
	if m.elapsed >= slowFetchAfter {
		view += " " + m.hint.Render(fmt.Sprintf("(%.1fs)", m.elapsed.Seconds()))
	}
	return view
}

// runListSpinner draws the spinner on output until load returns and hands
// back load's error.
func runListSpinner(ctx context.Context, output io.Writer, request listFetch, load func(context.Context) error) error {
	p := tea.NewProgram(
		newListSpinnerModel(request, func() tea.Msg { return listLoadedMsg{err: load(ctx)} }, time.Now()),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(listSpinnerModel); ok {
		return m.err
	}
	return fmt.Errorf("list spinner ended with %T", final)
}
