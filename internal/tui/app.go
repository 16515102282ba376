package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/engine"
	"github.com/dm/solrctl/internal/model"
)

type connState int

const (
	stateConnected    connState = iota
	stateDisconnected connState = iota
)

// App is the root Bubble Tea model of the core monitor. It only reads
// status; it never issues commands.
type App struct {
	client       client.SolrClient
	cores        []string
	pollInterval time.Duration

	// Poll state
	fetching bool // true while a fetchCmd goroutine is in-flight
	current  []*model.CoreStatus
	previous []*model.CoreStatus
	rates    []model.ProgressRates
	history  []*model.ProgressHistory

	// Connection state
	connState        connState
	consecutiveFails int
	lastError        error
	lastUpdated      time.Time

	// Layout
	width, height int

	// UI state
	showHelp bool
}

// NewApp creates a monitor of one or two cores on the server behind c.
func NewApp(c client.SolrClient, interval time.Duration, cores ...string) *App {
	if len(cores) > 2 {
		cores = cores[:2]
	}
	history := make([]*model.ProgressHistory, len(cores))
	for i := range history {
		history[i] = model.NewProgressHistory(0)
	}
	return &App{
		client:       c,
		cores:        cores,
		pollInterval: interval,
		rates:        make([]model.ProgressRates, len(cores)),
		history:      history,
		connState:    stateDisconnected,
		fetching:     true, // Init() always issues an immediate fetchCmd
	}
}

// Init implements tea.Model. Starts the first fetch immediately on launch.
func (app *App) Init() tea.Cmd {
	return fetchCmd(app.client, app.cores, nil, app.pollInterval)
}

// Update implements tea.Model.
func (app *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		app.width = msg.Width
		app.height = msg.Height

	case StatusMsg:
		app.fetching = false
		app.previous = app.current
		app.current = msg.Statuses
		app.rates = msg.Rates
		// The first poll has no delta, so its zero rates would flatten the
		// sparkline baseline.
		if app.previous != nil {
			for i, st := range msg.Statuses {
				if i >= len(app.history) || st == nil {
					continue
				}
				app.history[i].Push(model.ProgressPoint{
					Timestamp:     st.FetchedAt,
					RowsPerSec:    msg.Rates[i].RowsPerSec,
					DocsPerSec:    msg.Rates[i].DocsPerSec,
					DocumentCount: float64(st.DocumentCount),
				})
			}
		}
		app.consecutiveFails = 0
		app.lastError = nil
		app.connState = stateConnected
		app.lastUpdated = msg.FetchedAt
		return app, tickCmd(app.pollInterval)

	case FetchErrorMsg:
		app.fetching = false
		app.consecutiveFails++
		app.lastError = msg.Err
		app.connState = stateDisconnected
		backoff := backoffDuration(app.consecutiveFails)
		return app, tea.Tick(backoff, func(t time.Time) tea.Msg {
			return TickMsg(t)
		})

	case TickMsg:
		if app.fetching {
			return app, nil
		}
		app.fetching = true
		return app, fetchCmd(app.client, app.cores, app.current, app.pollInterval)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return app, tea.Quit
		case key.Matches(msg, keys.Refresh):
			if app.fetching {
				return app, nil
			}
			app.fetching = true
			return app, fetchCmd(app.client, app.cores, app.current, app.pollInterval)
		case key.Matches(msg, keys.Help):
			app.showHelp = !app.showHelp
		}
	}

	return app, nil
}

// View implements tea.Model. Renders the full TUI.
func (app *App) View() string {
	var parts []string

	if h := renderHeader(app); h != "" {
		parts = append(parts, h)
	}
	if p := renderPanels(app); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, renderFooter(app))

	return strings.Join(parts, "\n")
}

// tickCmd schedules the next poll after duration d.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchCmd reads a snapshot of every monitored core, computes progress
// rates against prev and returns a StatusMsg or FetchErrorMsg.
func fetchCmd(c client.SolrClient, cores []string, prev []*model.CoreStatus, interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		timeout := interval - 500*time.Millisecond
		if timeout < 500*time.Millisecond {
			timeout = 500 * time.Millisecond
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		statuses, err := fetchStatuses(ctx, c, cores)
		if err != nil {
			return FetchErrorMsg{Err: err}
		}

		rates := make([]model.ProgressRates, len(statuses))
		for i, st := range statuses {
			if i < len(prev) && prev[i] != nil {
				rates[i] = engine.CalcProgress(prev[i], st, st.FetchedAt.Sub(prev[i].FetchedAt))
			}
		}
		return StatusMsg{Statuses: statuses, Rates: rates, FetchedAt: time.Now()}
	}
}

func fetchStatuses(ctx context.Context, c client.SolrClient, cores []string) ([]*model.CoreStatus, error) {
	switch len(cores) {
	case 0:
		return nil, nil
	case 1:
		st, err := engine.FetchCoreStatus(ctx, c, cores[0])
		if err != nil {
			return nil, err
		}
		return []*model.CoreStatus{st}, nil
	}
	a, b, err := engine.FetchPair(ctx, engine.FetchCoreStatus,
		engine.Target{Client: c, Core: cores[0]}, engine.Target{Client: c, Core: cores[1]})
	if err != nil {
		return nil, err
	}
	return []*model.CoreStatus{a, b}, nil
}

// backoffDuration returns min(2^fails * time.Second, 60*time.Second).
// At fails=1: 2s, fails=2: 4s, fails=3: 8s, ..., fails>=6: 60s.
func backoffDuration(fails int) time.Duration {
	const maxBackoff = 60 * time.Second
	if fails <= 0 {
		return time.Second
	}
	if fails >= 6 {
		return maxBackoff
	}
	return time.Duration(1<<fails) * time.Second
}
