// ABOUTME: Tests for the session lifecycle state machine
// ABOUTME: Transition legality, callback ordering and status reporting

package venue

import (
	"testing"

	"github.com/soundstage-audio/soundstage-go/internal/builtin"
	"github.com/soundstage-audio/soundstage-go/pkg/device"
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// openTestVenue opens an offline venue that cannot terminate the test
// process when a watchdog window elapses between pumps.
func openTestVenue(t *testing.T, cfg Config, factory performer.Factory) (*Venue, *device.Render) {
	cfg.OnStall = func() {}
	dev := device.NewRender()
	v, err := New(cfg, factory, dev)
	if err != nil {
		t.Fatalf("expected venue to open, got %v", err)
	}
	return v, dev
}

func TestSessionLifecycle(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	if got := s.Status().State; got != StateEmpty {
		t.Fatalf("expected empty, got %s", got)
	}

	if err := s.Load("passthrough"); err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if got := s.Status().State; got != StateLoaded {
		t.Fatalf("expected loaded, got %s", got)
	}

	if err := s.Link(); err != nil {
		t.Fatalf("expected link to succeed, got %v", err)
	}
	if got := s.Status().State; got != StateLinked {
		t.Fatalf("expected linked, got %s", got)
	}

	if !s.Start() {
		t.Fatal("expected start to succeed from linked")
	}
	if !s.IsRunning() {
		t.Fatal("expected session to report running")
	}

	if !s.Stop() {
		t.Fatal("expected stop to succeed from running")
	}
	if got := s.Status().State; got != StateLinked {
		t.Fatalf("expected linked after stop, got %s", got)
	}

	s.Unload()
	if got := s.Status().State; got != StateEmpty {
		t.Fatalf("expected empty after unload, got %s", got)
	}
}

func TestStartRequiresLinked(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	if s.Start() {
		t.Error("expected start to fail from empty")
	}
	if err := s.Load("passthrough"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Start() {
		t.Error("expected start to fail from loaded")
	}
}

func TestStopOnlyFromRunning(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	if s.Stop() {
		t.Error("expected stop to fail from empty")
	}
	if err := s.Load("passthrough"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := s.Link(); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if s.Stop() {
		t.Error("expected stop to fail from linked")
	}
}

func TestLoadNilProgramFails(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	err := s.Load(nil)
	if err == nil {
		t.Fatal("expected load of nil program to fail")
	}
	if got := s.Status().State; got != StateEmpty {
		t.Errorf("expected empty after failed load, got %s", got)
	}
}

func TestLinkFromWrongState(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	if err := s.Link(); err == nil {
		t.Error("expected link to fail from empty")
	}

	if err := s.Load("passthrough"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := s.Link(); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if err := s.Link(); err == nil {
		t.Error("expected second link to fail from linked")
	}
}

func TestUnloadFromRunningPassesThroughLinked(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	if err := s.Load("passthrough"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := s.Link(); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if !s.Start() {
		t.Fatal("start failed")
	}

	var seen []State
	s.SetStateChangeCallback(func(st State) { seen = append(seen, st) })

	s.Unload()

	want := []State{StateLinked, StateEmpty}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
	if s.IsRunning() {
		t.Error("expected session stopped after unload")
	}
}

func TestCallbackFiresOnRealTransitionsOnly(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	var seen []State
	s.SetStateChangeCallback(func(st State) { seen = append(seen, st) })

	s.Stop()     // no-op from empty
	s.Unload()   // no-op from empty
	if s.Start() {
		t.Fatal("start should fail from empty")
	}
	if len(seen) != 0 {
		t.Fatalf("expected no callbacks for no-ops, got %v", seen)
	}

	if err := s.Load("passthrough"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(seen) != 1 || seen[0] != StateLoaded {
		t.Errorf("expected [loaded], got %v", seen)
	}
}

func TestLoadReplacesProgram(t *testing.T) {
	v, _ := openTestVenue(t, Config{WarmUpSamples: -1}, builtin.PassthroughFactory(2))
	defer v.Close()

	s := v.CreateSession()
	if err := s.Load("first"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := s.Link(); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	var seen []State
	s.SetStateChangeCallback(func(st State) { seen = append(seen, st) })

	if err := s.Load("second"); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	want := []State{StateEmpty, StateLoaded}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestStatusCarriesVenueFormat(t *testing.T) {
	v, _ := openTestVenue(t, Config{SampleRate: 48000, BlockSize: 256, WarmUpSamples: -1},
		builtin.PassthroughFactory(2))
	defer v.Close()

	st := v.CreateSession().Status()
	if st.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", st.SampleRate)
	}
	if st.BlockSize != 256 {
		t.Errorf("expected block size 256, got %d", st.BlockSize)
	}
}

// xrunPerf wraps a real program with a fixed program xrun count.
type xrunPerf struct {
	*builtin.Passthrough
	xruns int
}

func (p *xrunPerf) XRuns() int { return p.xruns }

// xrunDevice wraps the offline device with a controllable xrun report.
type xrunDevice struct {
	*device.Render
	xruns int
}

func (d *xrunDevice) XRuns() int { return d.xruns }

func TestStatusCombinesXRunCounts(t *testing.T) {
	factory := func() performer.Performer {
		return &xrunPerf{Passthrough: builtin.NewPassthrough(1), xruns: 3}
	}
	dev := &xrunDevice{Render: device.NewRender(), xruns: 2}
	v, err := New(Config{OutputChannels: 1, WarmUpSamples: -1, OnStall: func() {}}, factory, dev)
	if err != nil {
		t.Fatalf("expected venue to open, got %v", err)
	}
	defer v.Close()

	s := v.CreateSession()
	if got := s.Status().XRuns; got != 5 {
		t.Errorf("expected program and device xruns to sum to 5, got %d", got)
	}

	// A backend that cannot count xruns reports a negative value, which
	// must not poison the program's own count.
	dev.xruns = -1
	if got := s.Status().XRuns; got != 3 {
		t.Errorf("expected device count ignored when unknown, got %d", got)
	}
}

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateEmpty, "empty"},
		{StateLoaded, "loaded"},
		{StateLinked, "linked"},
		{StateRunning, "running"},
	}
	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("expected %q, got %q", c.want, got)
		}
	}
}
