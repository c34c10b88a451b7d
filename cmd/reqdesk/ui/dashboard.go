package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"reqdesk/internal/domain"
	"reqdesk/internal/logging"
	"reqdesk/internal/state"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source is the part of the store the dashboard reads.
type Source interface {
	Snapshot() state.State
	Subscribe(fn state.Listener) func()
}

// RefreshFunc reloads what the signed-in account sees.
type RefreshFunc func(ctx context.Context, acct domain.Account) error

// Messages

type storeChangedMsg struct{}

type refreshDoneMsg struct{ err error }

type autoRefreshMsg struct{}

// statusFilters cycles with tab; the empty status shows everything.
var statusFilters = append([]domain.Status{""}, domain.Statuses...)

// Dashboard renders the requests visible to the signed-in account.
type Dashboard struct {
	source  Source
	refresh RefreshFunc
	styles  Styles
	changes chan struct{}
	done    chan struct{}
	closing sync.Once
	unsub   func()

	table   table.Model
	spinner spinner.Model
	snap    state.State

	filter   int
	loading  bool
	interval time.Duration
	err      string
	width    int
	height   int
	maxRows  int
}

// NewDashboard subscribes to src. Call Close when the program exits.
func NewDashboard(src Source, refresh RefreshFunc, styles Styles, maxRows int) *Dashboard {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Title", Width: 28},
		{Title: "Category", Width: 18},
		{Title: "Type", Width: 18},
		{Title: "Status", Width: 12},
		{Title: "Created", Width: 20},
	}
	if maxRows <= 0 {
		maxRows = 20
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(maxRows),
	)
	width := 0
	for _, c := range columns {
		width += c.Width + 2
	}
	t.SetWidth(width)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Theme.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Background(styles.Theme.Primary)
	t.SetStyles(ts)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	d := &Dashboard{
		source:  src,
		refresh: refresh,
		styles:  styles,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		table:   t,
		spinner: sp,
		maxRows: maxRows,
	}
	d.unsub = src.Subscribe(func(string, state.Event) {
		select {
		case <-d.done:
		case d.changes <- struct{}{}:
		default:
		}
	})
	d.snap = src.Snapshot()
	d.syncRows()
	return d
}

// SetRefreshInterval re-runs the refresh every d after the last one
// finished. Zero disables polling.
func (d *Dashboard) SetRefreshInterval(interval time.Duration) {
	d.interval = interval
}

// Close drops the store subscription and releases a pending wait for the
// next change. It is safe to call more than once.
func (d *Dashboard) Close() {
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	d.closing.Do(func() { close(d.done) })
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.waitForChange(), d.startRefresh())
}

func (d *Dashboard) waitForChange() tea.Cmd {
	ch, done := d.changes, d.done
	return func() tea.Msg {
		select {
		case <-ch:
			return storeChangedMsg{}
		case <-done:
			return nil
		}
	}
}

func (d *Dashboard) startRefresh() tea.Cmd {
	if d.refresh == nil {
		return nil
	}
	acct := d.account()
	if acct == nil {
		d.err = "not signed in"
		return nil
	}
	d.loading = true
	d.err = ""
	refresh, account := d.refresh, *acct
	return tea.Batch(d.spinner.Tick, func() tea.Msg {
		return refreshDoneMsg{err: refresh(context.Background(), account)}
	})
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		case "r":
			if d.loading {
				return d, nil
			}
			return d, d.startRefresh()
		case "tab":
			d.filter = (d.filter + 1) % len(statusFilters)
			d.syncRows()
			return d, nil
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		h := msg.Height - 8
		if h > d.maxRows {
			h = d.maxRows
		}
		if h > 2 {
			d.table.SetHeight(h)
		}
		d.table.SetWidth(msg.Width - 2)
		return d, nil

	case storeChangedMsg:
		d.snap = d.source.Snapshot()
		d.syncRows()
		return d, d.waitForChange()

	case refreshDoneMsg:
		d.loading = false
		if msg.err != nil {
			d.err = msg.err.Error()
			logging.Get(logging.CategoryUI).Warn("refresh failed: %v", msg.err)
		}
		if d.interval > 0 {
			return d, tea.Tick(d.interval, func(time.Time) tea.Msg { return autoRefreshMsg{} })
		}
		return d, nil

	case autoRefreshMsg:
		if d.loading {
			return d, nil
		}
		return d, d.startRefresh()

	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d *Dashboard) account() *domain.Account {
	if d.snap.Auth == nil {
		return nil
	}
	return d.snap.Auth.Account
}

// Requests returns the requests the signed-in role sees, filtered by the
// selected status.
func (d *Dashboard) Requests() []domain.RequestAnalytics {
	if d.snap.Analytics == nil {
		return nil
	}
	items := d.snap.Analytics.Items
	if acct := d.account(); acct != nil && acct.Role == domain.RoleUser {
		items = d.snap.Analytics.BusinessUserItems
	}
	want := statusFilters[d.filter]
	if want == "" {
		return items
	}
	var out []domain.RequestAnalytics
	for _, r := range items {
		if r.Status == want {
			out = append(out, r)
		}
	}
	return out
}

func (d *Dashboard) syncRows() {
	var cats []domain.Category
	var types []domain.RequestType
	if d.snap.Categories != nil {
		cats = d.snap.Categories.Items
	}
	if d.snap.RequestTypes != nil {
		types = d.snap.RequestTypes.Items
	}

	reqs := d.Requests()
	rows := make([]table.Row, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, table.Row{
			shortID(r.Key()),
			r.Title,
			domain.CategoryName(cats, r.CategoryID),
			domain.RequestTypeName(types, r.RequestTypeID),
			r.Status.Label(),
			r.CreatedAt,
		})
	}
	d.table.SetRows(rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// sliceStatus folds the per-operation statuses of one slice into one.
func sliceStatus(statuses map[string]state.Status) state.Status {
	out := state.StatusIdle
	for _, st := range statuses {
		switch st {
		case state.StatusLoading:
			return st
		case state.StatusFailed:
			out = st
		case state.StatusSucceeded:
			if out == state.StatusIdle {
				out = st
			}
		}
	}
	return out
}

func (d *Dashboard) statusLine() string {
	type entry struct {
		name     string
		statuses map[string]state.Status
	}
	var entries []entry
	if d.snap.Categories != nil {
		entries = append(entries, entry{"categories", d.snap.Categories.Statuses()})
	}
	if d.snap.RequestTypes != nil {
		entries = append(entries, entry{"types", d.snap.RequestTypes.Statuses()})
	}
	if d.snap.Users != nil {
		entries = append(entries, entry{"users", d.snap.Users.Statuses()})
	}
	if d.snap.Analytics != nil {
		entries = append(entries, entry{"requests", d.snap.Analytics.Statuses()})
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		st := sliceStatus(e.statuses)
		parts = append(parts, fmt.Sprintf("%s: %s", e.name, d.styles.StatusStyle(string(st)).Render(string(st))))
	}
	return strings.Join(parts, d.styles.Muted.Render(" | "))
}

func (d *Dashboard) sliceError() string {
	switch {
	case d.err != "":
		return d.err
	case d.snap.Analytics != nil && d.snap.Analytics.Error != "":
		return d.snap.Analytics.Error
	case d.snap.Categories != nil && d.snap.Categories.Error != "":
		return d.snap.Categories.Error
	case d.snap.RequestTypes != nil && d.snap.RequestTypes.Error != "":
		return d.snap.RequestTypes.Error
	}
	return ""
}

func (d *Dashboard) View() string {
	var sb strings.Builder

	title := "reqdesk"
	if acct := d.account(); acct != nil {
		landing, _ := acct.Role.Landing()
		title = fmt.Sprintf("reqdesk · %s · %s", acct.DisplayName(), acct.Role.SectionTitle(landing))
	}
	sb.WriteString(d.styles.Header.Render(title))
	sb.WriteString("\n\n")

	sb.WriteString(d.statusLine())
	if d.loading {
		sb.WriteString("  " + d.spinner.View() + " loading")
	}
	sb.WriteString("\n")

	filter := "All"
	if st := statusFilters[d.filter]; st != "" {
		filter = st.Label()
	}
	summary := fmt.Sprintf("Filter: %s  Showing: %d", filter, len(d.Requests()))
	if a := d.snap.Analytics; a != nil {
		if a.TotalCount > 0 {
			summary += fmt.Sprintf("  Total: %d", a.TotalCount)
		}
		if a.BusinessCount > 0 {
			summary += fmt.Sprintf("  Business: %d", a.BusinessCount)
		}
	}
	sb.WriteString(d.styles.Muted.Render(summary))
	sb.WriteString("\n\n")

	if len(d.table.Rows()) == 0 {
		sb.WriteString(d.styles.Muted.Render("No requests to show."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(d.table.View())
		sb.WriteString("\n")
	}

	if msg := d.sliceError(); msg != "" {
		sb.WriteString("\n" + d.styles.Error.Render("Error: "+msg) + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(d.styles.Footer.Render("r: refresh • tab: filter status • q: quit"))
	return sb.String()
}
