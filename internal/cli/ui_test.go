package cli

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/briandowns/spinner"
)

// MockSpinner for testing
type MockSpinner struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	suffixes []string
}

func (m *MockSpinner) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
}

func (m *MockSpinner) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *MockSpinner) UpdateSuffix(suffix string) {
	m.mu.Lock()
	m.suffixes = append(m.suffixes, suffix)
	m.mu.Unlock()
}

func TestRealSpinner(t *testing.T) {
	t.Parallel()
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(io.Discard))
	rs := &realSpinner{s}

	// Just verify these methods don't panic
	rs.Start()
	rs.UpdateSuffix(" test")
	rs.Stop()
}

func TestDisplayProgress(t *testing.T) {
	originalNewSpinner := newSpinner
	defer func() { newSpinner = originalNewSpinner }()

	mockS := &MockSpinner{}
	newSpinner = func(io.Writer) Spinner { return mockS }

	ctx, cancel := context.WithTimeout(context.Background(), 3*SpinnerRefreshRate)
	defer cancel()
	DisplayProgress(ctx, io.Discard, "Profiling", 10*time.Second)

	mockS.mu.Lock()
	defer mockS.mu.Unlock()
	if !mockS.started {
		t.Error("Spinner should have started")
	}
	if !mockS.stopped {
		t.Error("Spinner should have stopped")
	}
	if len(mockS.suffixes) < 2 || !strings.Contains(mockS.suffixes[0], "Profiling") {
		t.Fatalf("suffixes = %v, want the label then at least one update", mockS.suffixes)
	}
	if last := mockS.suffixes[len(mockS.suffixes)-1]; !strings.Contains(last, "left)") {
		t.Errorf("last suffix = %q, want a remaining-time estimate", last)
	}
}
