package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"sirc/internal/driver"
)

// stageInfo is how a running stage is shown and how far into the unit it is.
type stageInfo struct {
	label  string
	weight float64
}

var stages = map[driver.Stage]stageInfo{
	driver.StageRead:     {"reading", 0.05},
	driver.StageDecode:   {"decoding", 0.15},
	driver.StageValidate: {"validating", 0.3},
	driver.StageLower:    {"lowering", 0.5},
	driver.StageCache:    {"caching", 0.9},
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

type unitItem struct {
	path    string
	stage   driver.Stage
	status  driver.Status
	elapsed time.Duration
}

func (u unitItem) final() bool {
	switch u.status {
	case driver.StatusDone, driver.StatusError, driver.StatusCached:
		return true
	}
	return false
}

// label is the status column: the stage while working, the status otherwise.
func (u unitItem) label() string {
	if u.status == driver.StatusWorking {
		return stages[u.stage].label
	}
	return string(u.status)
}

func (u unitItem) style() lipgloss.Style {
	switch u.status {
	case driver.StatusDone, driver.StatusCached:
		return okStyle
	case driver.StatusError:
		return errStyle
	case driver.StatusWorking:
		return workingStyle
	default:
		return idleStyle
	}
}

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	items   []unitItem
	index   map[string]int
	width   int
	done    bool
}

type eventMsg driver.Event
type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model with one line per unit. It
// quits when events is closed.
func NewProgressModel(title string, units []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(workingStyle))
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(76))
	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		items:   make([]unitItem, len(units)),
		index:   make(map[string]int, len(units)),
		width:   80,
	}
	for i, u := range units {
		m.items[i] = unitItem{path: u, status: driver.StatusQueued}
		m.index[u] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(driver.Event(msg)), m.next())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		bm, cmd := m.bar.Update(msg)
		m.bar = bm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// apply records ev for its unit; events for unknown files are ignored.
func (m *progressModel) apply(ev driver.Event) tea.Cmd {
	i, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	it := &m.items[i]
	it.stage, it.status = ev.Stage, ev.Status
	if ev.Elapsed > 0 {
		it.elapsed = ev.Elapsed
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, it := range m.items {
		switch {
		case it.final():
			total++
		case it.status == driver.StatusWorking:
			total += stages[it.stage].weight
		}
	}
	return total / float64(len(m.items))
}

// counts returns finished and failed units.
func (m *progressModel) counts() (finished, failed int) {
	for _, it := range m.items {
		if it.final() {
			finished++
		}
		if it.status == driver.StatusError {
			failed++
		}
	}
	return finished, failed
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	finished, failed := m.counts()
	header := fmt.Sprintf("%s %d/%d", m.title, finished, len(m.items))
	if failed > 0 {
		header += fmt.Sprintf(", %d failed", failed)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	nameWidth := max(m.width-26, 20)
	for _, it := range m.items {
		line := fmt.Sprintf("  %s %s", it.style().Render(fmt.Sprintf("%11s", it.label())), truncate(it.path, nameWidth))
		if it.final() && it.elapsed > 0 {
			line += " " + dimStyle.Render(it.elapsed.Round(time.Microsecond).String())
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// truncate shortens value to width display columns with an ellipsis.
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	default:
		return runewidth.Truncate(value, width, "...")
	}
}
