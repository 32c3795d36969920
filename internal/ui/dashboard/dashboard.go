// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard provides the plan dashboard page: every generated
// task/resource plan, grouped by the session that produced it, with a
// calendar-add action per plan.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/components"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
	"github.com/clarity-hq/clarity-tui/internal/util"
)

const fetchTimeout = 30 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// BackMsg asks the root model to return to the welcome page.
type BackMsg struct{}

// plansLoadedMsg delivers the dashboard listing.
type plansLoadedMsg struct {
	Groups []model.PlanGroup
	Err    error
}

// calendarResultMsg delivers the outcome of a calendar-add call.
type calendarResultMsg struct {
	PlanID string
	Err    error
}

// =============================================================================
// BACKEND SURFACE
// =============================================================================

// Backend is the slice of the API client the dashboard uses.
type Backend interface {
	FetchDashboard(ctx context.Context) ([]model.Plan, error)
	AddToCalendar(ctx context.Context, planID, startDate string) error
}

// =============================================================================
// KEY BINDINGS
// =============================================================================

// KeyMap holds the dashboard key bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Calendar key.Binding
	Refresh  key.Binding
	Back     key.Binding
}

// DefaultKeyMap returns the default dashboard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "down")),
		Toggle:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
		Calendar: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "add to calendar")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// =============================================================================
// DASHBOARD MODEL
// =============================================================================

// Model is the Bubble Tea model for the dashboard page.
type Model struct {
	theme  *styles.Theme
	width  int
	height int

	backend   Backend
	reauthURL string

	header  components.Header
	spinner spinner.Model
	keyMap  KeyMap

	groups   []model.PlanGroup
	loading  bool
	loadErr  error
	selected int
	expanded map[string]bool

	// Calendar-add date entry
	dateEntry  bool
	dateInput  textinput.Model
	datePlanID string

	statusMsg string
}

// New creates the dashboard page. reauthURL is shown when the backend signals
// an expired Google calendar grant.
func New(theme *styles.Theme, backend Backend, reauthURL string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	dateInput := textinput.New()
	dateInput.Placeholder = "YYYY-MM-DD (empty = today)"
	dateInput.CharLimit = 10

	return Model{
		theme:     theme,
		backend:   backend,
		reauthURL: reauthURL,
		header:    components.NewHeader(theme, "Dashboard"),
		spinner:   sp,
		keyMap:    DefaultKeyMap(),
		expanded:  map[string]bool{},
	}
}

// SetUser sets the signed-in display name shown in the header.
func (m *Model) SetUser(name string) {
	m.header.SetUser(name)
}

// Init starts the plan fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCmd())
}

// SetSize lays the page out for the given terminal dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.header.SetWidth(width)
}

// fetchCmd loads the plan listing off the UI thread.
func (m *Model) fetchCmd() tea.Cmd {
	m.loading = true
	m.loadErr = nil
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		plans, err := backend.FetchDashboard(ctx)
		if err != nil {
			return plansLoadedMsg{Err: err}
		}
		return plansLoadedMsg{Groups: model.GroupPlansBySession(plans)}
	}
}

// Update handles dashboard messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.dateEntry {
			return m.updateDateEntry(msg)
		}
		return m.updateList(msg)

	case plansLoadedMsg:
		m.loading = false
		m.groups = msg.Groups
		m.loadErr = msg.Err
		if m.selected >= m.planCount() {
			m.selected = 0
		}
		return m, nil

	case calendarResultMsg:
		switch {
		case msg.Err == nil:
			m.statusMsg = "All tasks added to Google Calendar!"
			return m, m.fetchCmd()
		case needsReauth(msg.Err):
			m.statusMsg = "Calendar access expired. Re-authorize at " + m.reauthURL
		default:
			m.statusMsg = "Failed to add tasks to calendar: " + msg.Err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateList handles keys in the plan list.
func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keyMap.Refresh):
		return m, m.fetchCmd()

	case key.Matches(msg, m.keyMap.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.selected < m.planCount()-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Toggle):
		if plan, ok := m.selectedPlan(); ok {
			m.expanded[plan.PlanID] = !m.expanded[plan.PlanID]
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Calendar):
		if plan, ok := m.selectedPlan(); ok {
			m.dateEntry = true
			m.datePlanID = plan.PlanID
			m.dateInput.Reset()
			m.dateInput.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}
	return m, nil
}

// updateDateEntry handles keys while the start-date prompt is open.
func (m Model) updateDateEntry(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.dateEntry = false
		return m, nil

	case key.Matches(msg, m.keyMap.Toggle):
		raw := strings.TrimSpace(m.dateInput.Value())
		startDate := ""
		if raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
			if err != nil {
				m.statusMsg = "Enter the date as YYYY-MM-DD."
				return m, nil
			}
			startDate = parsed.UTC().Format(time.RFC3339)
		}
		m.dateEntry = false
		planID := m.datePlanID
		backend := m.backend
		m.statusMsg = "Adding tasks to calendar..."
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			return calendarResultMsg{PlanID: planID, Err: backend.AddToCalendar(ctx, planID, startDate)}
		}
	}

	var cmd tea.Cmd
	m.dateInput, cmd = m.dateInput.Update(msg)
	return m, cmd
}

// needsReauth reports whether the failure was an expired Google grant.
func needsReauth(err error) bool {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.NeedsReauth()
	}
	return false
}

// planCount returns the number of plans across all groups.
func (m Model) planCount() int {
	n := 0
	for _, g := range m.groups {
		n += len(g.Plans)
	}
	return n
}

// selectedPlan resolves the flat selection index to a plan.
func (m Model) selectedPlan() (model.Plan, bool) {
	i := m.selected
	for _, g := range m.groups {
		if i < len(g.Plans) {
			return g.Plans[i], true
		}
		i -= len(g.Plans)
	}
	return model.Plan{}, false
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the dashboard page.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.ThinkingText.Render(" Loading your plans..."))
	case m.loadErr != nil:
		banner := components.NewErrorBanner(m.theme, m.loadErr)
		banner.SetWidth(m.width - 4)
		b.WriteString(banner.View())
	case m.planCount() == 0:
		b.WriteString(m.theme.ListMeta.Render("No plans yet. Ask your assistant to break a goal into tasks."))
	default:
		b.WriteString(m.listView())
	}

	if m.dateEntry {
		b.WriteString("\n\n")
		b.WriteString(m.theme.FieldLabel.Render("Start date: "))
		b.WriteString(m.dateInput.View())
	}

	b.WriteString("\n")
	b.WriteString(m.statusBarView())
	return b.String()
}

// listView renders the grouped plan list with the selected plan highlighted
// and expanded plans showing their tasks and resources.
func (m Model) listView() string {
	width := m.width - 6
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	flat := 0
	for gi, g := range m.groups {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.ListTitle.Render("Session " + util.TruncateWidth(g.SessionID, 12)))
		b.WriteString("\n")

		for _, plan := range g.Plans {
			line := util.TruncateWidth(plan.Title, width-24) +
				"  " + m.theme.ListMeta.Render(plan.CreatedAt.Format("Jan 2, 2006"))
			if flat == m.selected {
				b.WriteString(m.theme.ListItemSelected.Render(line))
			} else {
				b.WriteString(m.theme.ListItem.Render(line))
			}
			b.WriteString("\n")

			if m.expanded[plan.PlanID] {
				if tasks := components.RenderTasks(m.theme, plan.Tasks, width); tasks != "" {
					b.WriteString(indent(tasks, "    "))
					b.WriteString("\n")
				}
				if resources := components.RenderResources(m.theme, plan.Resources, width); resources != "" {
					b.WriteString(indent(resources, "    "))
					b.WriteString("\n")
				}
			}
			flat++
		}
	}
	return b.String()
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// statusBarView renders shortcut hints plus any transient status message.
func (m Model) statusBarView() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"enter", "expand"},
		{"c", "calendar"},
		{"r", "refresh"},
		{"esc", "back"},
	}

	parts := make([]string, 0, len(hints)+1)
	for _, h := range hints {
		parts = append(parts, m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}
	if m.statusMsg != "" {
		parts = append(parts, m.theme.ShortcutDesc.Render(m.statusMsg))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
