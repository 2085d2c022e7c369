package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/profiler"
)

type fakeProfiler struct {
	n   uint64
	err error
}

func (f *fakeProfiler) SnapshotContext(context.Context) (profiler.Snapshot, error) {
	if f.err != nil {
		return profiler.Snapshot{}, f.err
	}
	f.n++
	return profiler.Snapshot{CPUUsage: float32(f.n), MemoryUsed: f.n << 20, Seq: f.n}, nil
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func snapMsg(seq uint64) SnapshotMsg {
	return SnapshotMsg{Snapshot: profiler.Snapshot{CPUUsage: 50, MemoryUsed: seq << 20, Seq: seq}}
}

func TestModel_SnapshotsFillHistory(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "dev")
	for seq := uint64(1); seq <= 3; seq++ {
		m, _ = update(t, m, snapMsg(seq))
	}
	if m.cpu.Len() != 3 || m.mem.Last() != float64(3<<20) {
		t.Errorf("history cpu=%d mem last=%v", m.cpu.Len(), m.mem.Last())
	}

	// A stale sample arriving late is ignored.
	m, _ = update(t, m, snapMsg(2))
	if m.last.Seq != 3 || m.cpu.Len() != 3 {
		t.Errorf("stale sample applied: last seq %d, len %d", m.last.Seq, m.cpu.Len())
	}
}

func TestModel_PauseStopsSampling(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.paused {
		t.Fatal("p did not pause")
	}
	m, _ = update(t, m, snapMsg(1))
	if m.cpu.Len() != 0 {
		t.Error("sample recorded while paused")
	}
	if _, cmd := update(t, m, TickMsg(time.Now())); cmd == nil {
		t.Error("paused dashboard stopped ticking")
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view does not show PAUSED")
	}
}

func TestModel_TransientErrorKeepsSampling(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "")
	m, _ = update(t, m, SnapshotMsg{Err: apperrors.TelemetryError{Op: "cpu times", Cause: io.ErrUnexpectedEOF}})
	if m.failures != 1 || m.Err() != nil {
		t.Errorf("failures=%d err=%v", m.failures, m.Err())
	}
	if _, cmd := update(t, m, TickMsg(time.Now())); cmd == nil {
		t.Error("sampling stopped after a transient error")
	}
	if !strings.Contains(m.View(), "last error") {
		t.Error("view does not show the last error")
	}
}

func TestModel_PoisonStopsSampling(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "")
	poison := apperrors.TelemetryUnavailableError{Reason: "panic"}
	m, _ = update(t, m, SnapshotMsg{Err: poison})

	if !errors.Is(m.Err(), apperrors.ErrTelemetryUnavailable) {
		t.Fatalf("Err() = %v", m.Err())
	}
	if _, cmd := update(t, m, TickMsg(time.Now())); cmd != nil {
		t.Error("poisoned dashboard kept ticking")
	}
	if !strings.Contains(m.View(), "STOPPED") {
		t.Error("view does not show STOPPED")
	}
}

func TestModel_ResetAndResize(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, 0, "")
	if m.interval != time.Second {
		t.Errorf("interval = %v, want default 1s", m.interval)
	}
	m, _ = update(t, m, snapMsg(1))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 12})
	if m.cpu.Cap() != 26 {
		t.Errorf("cpu history cap = %d, want 26", m.cpu.Cap())
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.cpu.Len() != 0 || m.mem.Len() != 0 {
		t.Error("r did not clear history")
	}
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModel_SnapshotCmd(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "")
	msg, ok := m.snapshotCmd()().(SnapshotMsg)
	if !ok || msg.Err != nil || msg.Snapshot.Seq != 1 {
		t.Errorf("snapshotCmd() = %+v", msg)
	}
}

func TestModel_View(t *testing.T) {
	m := NewModel(context.Background(), &fakeProfiler{}, time.Second, "v1.2.0")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})
	m, _ = update(t, m, snapMsg(1))
	view := m.View()
	for _, want := range []string{"optix watch v1.2.0", "50.0 %", "1.0 MiB", "LIVE", "quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRun_RequiresTerminal(t *testing.T) {
	err := Run(context.Background(), &fakeProfiler{}, Options{Output: &bytes.Buffer{}})
	var cfgErr apperrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Run() = %v, want ConfigError", err)
	}
}

func TestRun_QuitsOnKey(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := Run(ctx, &fakeProfiler{}, Options{
		Interval:     10 * time.Millisecond,
		Input:        strings.NewReader("q"),
		Output:       &out,
		SkipTTYCheck: true,
	})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
}

func TestRun_ReturnsPoison(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := &fakeProfiler{err: apperrors.TelemetryUnavailableError{Reason: "panic"}}
	// Quit arrives after the first snapshot has been applied.
	in, w := io.Pipe()
	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte("q"))
	}()

	err := Run(ctx, p, Options{Interval: 10 * time.Millisecond, Input: in, Output: io.Discard, SkipTTYCheck: true})
	if !errors.Is(err, apperrors.ErrTelemetryUnavailable) {
		t.Errorf("Run() = %v, want ErrTelemetryUnavailable", err)
	}
}
