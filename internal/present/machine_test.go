package present

import (
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

type fakeHost struct {
	creates, releases, rebuilds, resizes int
	presents, legacyPresents             int

	failCreate, failPresent, failRebuild, failResize int
	legacy                                           bool
	lastW, lastH                                     int
}

func take(n *int) bool {
	if *n > 0 {
		*n--
		return true
	}
	return false
}

func (h *fakeHost) CreateSwapchain() error {
	h.creates++
	if take(&h.failCreate) {
		return errBoom
	}
	return nil
}

func (h *fakeHost) ReleaseSwapchain() { h.releases++ }

func (h *fakeHost) RebuildTargets(w, ht int) error {
	h.rebuilds++
	h.lastW, h.lastH = w, ht
	if take(&h.failRebuild) {
		return errBoom
	}
	return nil
}

func (h *fakeHost) ResizeSwapchain(int, int) error {
	h.resizes++
	if take(&h.failResize) {
		return errBoom
	}
	return nil
}

func (h *fakeHost) Present() error {
	h.presents++
	if take(&h.failPresent) {
		return errBoom
	}
	return nil
}

func (h *fakeHost) PresentLegacy() error {
	h.legacyPresents++
	if take(&h.failPresent) {
		return errBoom
	}
	return nil
}

func (h *fakeHost) LegacyOnly() bool { return h.legacy }

func steps(m *Machine, n int) []State {
	out := make([]State, n)
	for i := range out {
		out[i] = m.Step()
	}
	return out
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPresentFailureRecovers(t *testing.T) {
	h := &fakeHost{}
	m := New(h, nil)

	var entries []State
	m.OnTransition = func(_, to State, _ error) { entries = append(entries, to) }

	m.Step() // Setup -> Present
	m.Step() // Present
	h.failPresent = 1
	got := steps(m, 3) // fail -> Error, Error -> Setup, Setup -> Present

	want := []State{Error, Setup, Present}
	if !equalStates(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	setupEntries, errorEntries := 0, 0
	for _, s := range entries {
		switch s {
		case Setup:
			setupEntries++
		case Error:
			errorEntries++
		}
	}
	// The initial Setup is not an entry; count it by hand.
	setupEntries++
	if h.creates != setupEntries {
		t.Errorf("creates = %d, want one per Setup entry (%d)", h.creates, setupEntries)
	}
	if h.releases != errorEntries || h.releases != 1 {
		t.Errorf("releases = %d, Error entries = %d, want 1 each", h.releases, errorEntries)
	}
	if !errors.Is(m.Err(), errBoom) {
		t.Errorf("Err() = %v, want errBoom", m.Err())
	}
}

func TestSetupFailureRetriesNextFrame(t *testing.T) {
	h := &fakeHost{failCreate: 2}
	m := New(h, nil)

	got := steps(m, 5)
	want := []State{Error, Setup, Error, Setup, Present}
	if !equalStates(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	if h.creates != 3 || h.releases != 2 {
		t.Errorf("creates=%d releases=%d, want 3 and 2", h.creates, h.releases)
	}
	st := m.Stats()
	if st.SetupFails != 2 || st.Errors != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestResizeAfterPresent(t *testing.T) {
	h := &fakeHost{}
	m := New(h, nil)
	m.Step()

	m.RequestResize(100, 50)
	m.RequestResize(640, 480)
	if s := m.Step(); s != Resize {
		t.Fatalf("after present with pending resize: %s, want resize", s)
	}
	if h.presents != 1 {
		t.Errorf("presents = %d, want 1 before resizing", h.presents)
	}
	if s := m.Step(); s != Present {
		t.Fatalf("after resize: %s, want present", s)
	}
	if h.lastW != 640 || h.lastH != 480 {
		t.Errorf("rebuilt at %dx%d, want latest request 640x480", h.lastW, h.lastH)
	}
	if h.rebuilds != 1 || h.resizes != 1 {
		t.Errorf("rebuilds=%d resizes=%d, want 1 each", h.rebuilds, h.resizes)
	}
	if m.ResizePending() {
		t.Error("resize still pending")
	}
}

func TestResizeFailures(t *testing.T) {
	tests := []struct {
		name string
		host *fakeHost
	}{
		{"rebuild", &fakeHost{failRebuild: 1}},
		{"swapchain", &fakeHost{failResize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.host, nil)
			m.Step()
			m.RequestResize(10, 10)
			got := steps(m, 4)
			want := []State{Resize, Error, Setup, Present}
			if !equalStates(got, want) {
				t.Fatalf("states = %v, want %v", got, want)
			}
			if m.Stats().ResizeFails != 1 {
				t.Errorf("ResizeFails = %d, want 1", m.Stats().ResizeFails)
			}
		})
	}
}

func TestLegacyPresentPath(t *testing.T) {
	h := &fakeHost{legacy: true}
	m := New(h, nil)

	got := steps(m, 3)
	want := []State{PresentLegacy, PresentLegacy, PresentLegacy}
	if !equalStates(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	if h.legacyPresents != 2 || h.presents != 0 {
		t.Errorf("legacy=%d flip=%d, want 2 and 0", h.legacyPresents, h.presents)
	}

	m.RequestResize(20, 20)
	if s := m.Step(); s != Resize {
		t.Fatalf("legacy present with pending resize: %s", s)
	}
	if s := m.Step(); s != PresentLegacy {
		t.Errorf("after resize: %s, want present-legacy", s)
	}
}

func TestSetupClearsPendingResize(t *testing.T) {
	h := &fakeHost{}
	m := New(h, nil)
	m.RequestResize(30, 30)
	if s := m.Step(); s != Present {
		t.Fatalf("Step() = %s, want present", s)
	}
	if m.ResizePending() {
		t.Error("Setup left a resize pending")
	}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Setup, "setup"},
		{Present, "present"},
		{Error, "error"},
		{Resize, "resize"},
		{PresentLegacy, "present-legacy"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
