// Package tui is the live `watch` dashboard: it samples a profiler on a
// fixed interval and draws CPU and memory history.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/format"
	"github.com/agbru/optix/internal/profiler"
)

// Snapshotter is the part of the profiler the dashboard samples.
type Snapshotter interface {
	SnapshotContext(ctx context.Context) (profiler.Snapshot, error)
}

// historyLen is the number of samples kept before the sparkline is
// resized to the terminal width.
const historyLen = 60

// TickMsg triggers the next sample.
type TickMsg time.Time

// SnapshotMsg carries one sample outcome.
type SnapshotMsg struct {
	Snapshot profiler.Snapshot
	Err      error
}

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	profiler Snapshotter
	interval time.Duration
	version  string
	keymap   KeyMap

	cpu     *RingBuffer
	mem     *RingBuffer
	last    profiler.Snapshot
	started time.Time

	paused    bool
	failures  int
	lastError error
	// fatal is set once telemetry is unavailable; sampling stops for good.
	fatal error

	width  int
	height int
}

// NewModel builds a dashboard sampling p every interval.
func NewModel(ctx context.Context, p Snapshotter, interval time.Duration, version string) Model {
	if interval <= 0 {
		interval = time.Second
	}
	return Model{
		ctx:      ctx,
		profiler: p,
		interval: interval,
		version:  version,
		keymap:   DefaultKeyMap(),
		cpu:      NewRingBuffer(historyLen),
		mem:      NewRingBuffer(historyLen),
		started:  time.Now(),
	}
}

// Err returns the error that stopped sampling, if any.
func (m Model) Err() error { return m.fatal }

// Init takes the first sample immediately.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.snapshotCmd(), m.tickCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keymap.Reset):
			m.cpu.Reset()
			m.mem.Reset()
			m.failures, m.lastError = 0, nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := max(m.width-14, 10)
		m.cpu.Resize(w)
		m.mem.Resize(w)
		return m, nil

	case TickMsg:
		if m.fatal != nil {
			return m, nil
		}
		if m.paused {
			return m, m.tickCmd()
		}
		return m, tea.Batch(m.snapshotCmd(), m.tickCmd())

	case SnapshotMsg:
		m.apply(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(msg SnapshotMsg) {
	if msg.Err != nil {
		if errors.Is(msg.Err, apperrors.ErrTelemetryUnavailable) || errors.Is(msg.Err, apperrors.ErrProfilerClosed) {
			m.fatal = msg.Err
			return
		}
		m.failures++
		m.lastError = msg.Err
		return
	}
	if m.paused || msg.Snapshot.Seq <= m.last.Seq && m.last.Seq != 0 {
		return
	}
	m.last = msg.Snapshot
	m.cpu.Push(float64(msg.Snapshot.CPUUsage))
	m.mem.Push(float64(msg.Snapshot.MemoryUsed))
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) snapshotCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.profiler.SnapshotContext(m.ctx)
		return SnapshotMsg{Snapshot: snap, Err: err}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	title := "optix watch"
	if m.version != "" && m.version != "dev" {
		title += " " + m.version
	}
	header := titleStyle.Render(title) + dimStyle.Render(fmt.Sprintf("  up %s  every %s",
		time.Since(m.started).Round(time.Second), m.interval))

	var body strings.Builder
	fmt.Fprintf(&body, "%s%s\n", labelStyle.Render("CPU"), valueStyle.Render(fmt.Sprintf("%5.1f %%", m.last.CPUUsage)))
	fmt.Fprintf(&body, "%s%s\n", labelStyle.Render(""), cpuStyle.Render(RenderSparkline(m.cpu.Slice(), 100)))
	fmt.Fprintf(&body, "%s%s\n", labelStyle.Render("Memory"), valueStyle.Render(format.FormatBytes(m.last.MemoryUsed)))
	fmt.Fprintf(&body, "%s%s\n", labelStyle.Render(""), memStyle.Render(RenderSparkline(m.mem.Slice(), m.mem.Max())))
	fmt.Fprintf(&body, "%s%s", labelStyle.Render("Samples"), dimStyle.Render(fmt.Sprintf("#%d  failures %d", m.last.Seq, m.failures)))

	panel := panelStyle
	if m.width > 2 {
		panel = panel.Width(m.width - 2)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, panel.Render(body.String()), m.footer())
}

func (m Model) footer() string {
	var status string
	switch {
	case m.fatal != nil:
		status = statusErrorStyle.Render("STOPPED: " + m.fatal.Error())
	case m.paused:
		status = statusPauseStyle.Render("PAUSED")
	case m.lastError != nil:
		status = statusErrorStyle.Render("last error: " + m.lastError.Error())
	default:
		status = statusLiveStyle.Render("LIVE")
	}
	keys := make([]string, 0, 3)
	for _, b := range m.keymap.ShortHelp() {
		keys = append(keys, footerKeyStyle.Render(b.Help().Key)+" "+dimStyle.Render(b.Help().Desc))
	}
	return status + "  " + strings.Join(keys, "  ")
}

// Options configures Run.
type Options struct {
	Interval time.Duration
	Version  string
	Input    io.Reader
	Output   io.Writer
	// SkipTTYCheck allows running without a terminal, for tests.
	SkipTTYCheck bool
}

// isTerminal is replaced in tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run shows the dashboard until the user quits or ctx is done. It returns
// the telemetry error that stopped sampling, if any.
func Run(ctx context.Context, p Snapshotter, opts Options) error {
	if !opts.SkipTTYCheck && !isTerminal(opts.Output) {
		return apperrors.NewConfigError("watch needs an interactive terminal; use `optix snapshot` or `optix serve` instead")
	}
	initStyles()

	model := NewModel(ctx, p, opts.Interval, opts.Version)
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if !opts.SkipTTYCheck {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(model, progOpts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}
