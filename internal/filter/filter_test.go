package filter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/config"
	"github.com/shotclip/shotclip/internal/domain"
)

const testSettle = 80 * time.Millisecond

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	return &config.Config{
		WatchDir: dir,
		Extensions: map[string]struct{}{
			"png": {}, "jpg": {}, "heic": {},
		},
		SettleDelay: testSettle,
	}
}

// harness runs a debouncer over a hand-fed event channel.
type harness struct {
	events chan domain.FileEvent
	d      *Debouncer
	done   chan error
	cancel context.CancelFunc
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	d, err := NewDebouncer(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		events: make(chan domain.FileEvent, 16),
		d:      d,
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go func() { h.done <- d.Run(ctx, h.events) }()
	t.Cleanup(func() { cancel(); <-h.done })
	return h
}

func (h *harness) send(path string) {
	h.events <- domain.FileEvent{Path: path, Kind: domain.EventCreated, ObservedAt: time.Now()}
}

// collect drains candidates until the timeout elapses.
func (h *harness) collect(timeout time.Duration) []domain.CandidateFile {
	var got []domain.CandidateFile
	deadline := time.After(timeout)
	for {
		select {
		case c, ok := <-h.d.Candidates():
			if !ok {
				return got
			}
			got = append(got, c)
		case <-deadline:
			return got
		}
	}
}

// TestDebouncer_EmitsSettledFile covers the happy path: one create, no
// further writes, one candidate after the settle window
func TestDebouncer_EmitsSettledFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot1.png")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	h := newHarness(t, testConfig(t, dir))
	h.send(path)

	got := h.collect(5 * testSettle)
	require.Len(t, got, 1)
	assert.Equal(t, path, got[0].Path)
	assert.Equal(t, "png", got[0].Extension)
}

// TestDebouncer_RejectsUnrecognizedExtension: draft.txt never becomes a
// candidate regardless of timing
func TestDebouncer_RejectsUnrecognizedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte("notes"), 0644))

	h := newHarness(t, testConfig(t, dir))
	h.send(path)

	assert.Empty(t, h.collect(4*testSettle))
}

// TestDebouncer_ExtensionCaseInsensitive verifies SHOT.PNG matches png
func TestDebouncer_ExtensionCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SHOT.PNG")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	h := newHarness(t, testConfig(t, dir))
	h.send(path)

	got := h.collect(5 * testSettle)
	require.Len(t, got, 1)
	assert.Equal(t, "png", got[0].Extension)
}

// TestDebouncer_DropsVanishedFile covers rapid create-then-delete
func TestDebouncer_DropsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.png")

	h := newHarness(t, testConfig(t, dir))
	h.send(path) // never created on disk

	assert.Empty(t, h.collect(4*testSettle))
}

// TestDebouncer_DedupsRepeatedEvents: duplicate OS events for one file must
// produce exactly one candidate
func TestDebouncer_DedupsRepeatedEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot2.heic")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	h := newHarness(t, testConfig(t, dir))
	for i := 0; i < 5; i++ {
		h.send(path)
	}

	got := h.collect(6 * testSettle)
	assert.Len(t, got, 1)

	// Even a late event after emission stays suppressed.
	h.send(path)
	assert.Empty(t, h.collect(3*testSettle))
}

// TestDebouncer_WaitsForWritesToStop: a file overwritten during the settle
// window is emitted once, only after it stabilizes, at its final size
func TestDebouncer_WaitsForWritesToStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot2.heic")
	require.NoError(t, os.WriteFile(path, []byte("partial"), 0644))

	h := newHarness(t, testConfig(t, dir))
	h.send(path)

	// Two overwrites inside the settle window keep restarting it.
	time.Sleep(testSettle / 2)
	require.NoError(t, os.WriteFile(path, []byte("partial-more"), 0644))
	time.Sleep(testSettle / 2)
	final := []byte("final-content-fully-written")
	require.NoError(t, os.WriteFile(path, final, 0644))

	got := h.collect(8 * testSettle)
	require.Len(t, got, 1, "exactly one candidate after writes stop")

	info, err := os.Stat(got[0].Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(final)), info.Size(), "candidate corresponds to the final state")
}

// TestDebouncer_ConcurrentPaths: two files created near-simultaneously each
// produce exactly one candidate, in any order
func TestDebouncer_ConcurrentPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0644))

	h := newHarness(t, testConfig(t, dir))
	h.send(a)
	h.send(b)

	got := h.collect(6 * testSettle)
	require.Len(t, got, 2)

	paths := map[string]bool{got[0].Path: true, got[1].Path: true}
	assert.True(t, paths[a])
	assert.True(t, paths[b])
}

// TestDebouncer_IgnoresWriteKind: bare write events never start a settle
func TestDebouncer_IgnoresWriteKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	h := newHarness(t, testConfig(t, dir))
	h.events <- domain.FileEvent{Path: path, Kind: domain.EventOther, ObservedAt: time.Now()}

	assert.Empty(t, h.collect(4*testSettle))
}

// TestDebouncer_ClosesCandidatesOnInputClose verifies clean drain semantics
func TestDebouncer_ClosesCandidatesOnInputClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last.png")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	d, err := NewDebouncer(testConfig(t, dir), zap.NewNop())
	require.NoError(t, err)

	events := make(chan domain.FileEvent, 1)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), events) }()

	events <- domain.FileEvent{Path: path, Kind: domain.EventCreated, ObservedAt: time.Now()}
	close(events)

	// The in-flight settle must finish and emit before the channel closes.
	var got []domain.CandidateFile
	for c := range d.Candidates() {
		got = append(got, c)
	}
	assert.Len(t, got, 1)
	assert.NoError(t, <-done)
}
