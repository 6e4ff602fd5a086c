// ABOUTME: Bubbletea model for the session monitor TUI
// ABOUTME: Defines display state and update logic
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Command is a host action requested from the keyboard.
type Command int

const (
	CmdToggleRun Command = iota
	CmdToggleNote
	CmdReload
)

// Control carries keyboard commands out of the TUI to the host.
type Control struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControl creates the command channels the host selects on.
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// Model represents the TUI state
type Model struct {
	// Device
	sampleRate     int
	blockSize      int
	inputChannels  int
	outputChannels int

	// Session
	sessionID string
	state     string
	running   bool

	// Stats
	cpu           float64
	xruns         int
	callbacks     uint64
	frames        uint64
	droppedEvents uint64

	// Note
	noteOn bool

	// Debug
	showDebug  bool
	goroutines int

	ctrl *Control

	// Dimensions
	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	return Model{
		state: "empty",
		ctrl:  ctrl,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderLoad()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders the device format and session state
func (m Model) renderHeader() string {
	format := fmt.Sprintf("%d Hz  %d frames  in %d  out %d",
		m.sampleRate, m.blockSize, m.inputChannels, m.outputChannels)

	session := m.state
	if m.running {
		session += " ●"
	}
	if m.sessionID != "" {
		session = shortenID(m.sessionID) + "  " + session
	}

	return fmt.Sprintf(`┌─ Soundstage ─────────────────────────────────────────┐
│ Device:  %-44s│
│ Session: %-44s│
├──────────────────────────────────────────────────────┤
`, format, session)
}

// renderLoad renders the callback load and the note gate
func (m Model) renderLoad() string {
	percent := int(m.cpu * 100)
	if percent > 100 {
		percent = 100
	}
	bar := renderBar(percent, 100, 10)

	note := "off"
	if m.noteOn {
		note = "on"
	}

	return fmt.Sprintf("│ CPU:  [%s] %3d%%   XRuns: %-18d│\n"+
		"│ Note: %-47s│\n",
		bar, percent, m.xruns, note)
}

// renderStats renders the venue counters
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Blocks: %-10d Frames: %-12d Dropped: %-4d│
`, m.callbacks, m.frames, m.droppedEvents)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Run/Stop  n:Note  r:Reload  d:Debug  q:Quit    │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Goroutines: %-39d│
`, m.goroutines)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.requestQuit()
		return m, tea.Quit
	case " ":
		m.sendCommand(CmdToggleRun)
	case "n":
		m.sendCommand(CmdToggleNote)
	case "r":
		m.sendCommand(CmdReload)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendCommand forwards a command without ever blocking the UI loop.
func (m Model) sendCommand(c Command) {
	if m.ctrl == nil {
		return
	}
	select {
	case m.ctrl.Commands <- c:
	default:
	}
}

func (m Model) requestQuit() {
	if m.ctrl == nil {
		return
	}
	select {
	case m.ctrl.Quit <- struct{}{}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Running != nil {
		m.running = *msg.Running
	}
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.blockSize = msg.BlockSize
		m.inputChannels = msg.InputChannels
		m.outputChannels = msg.OutputChannels
	}
	if msg.HasStats {
		m.cpu = msg.CPU
		m.xruns = msg.XRuns
		m.callbacks = msg.Callbacks
		m.frames = msg.Frames
		m.droppedEvents = msg.DroppedEvents
		m.goroutines = msg.Goroutines
	}
	if msg.NoteOn != nil {
		m.noteOn = *msg.NoteOn
	}
}

// StatusMsg updates TUI state. The format group applies when SampleRate
// is set; the stats group applies when HasStats is set.
type StatusMsg struct {
	Running   *bool
	SessionID string
	State     string

	SampleRate     int
	BlockSize      int
	InputChannels  int
	OutputChannels int

	HasStats      bool
	CPU           float64
	XRuns         int
	Callbacks     uint64
	Frames        uint64
	DroppedEvents uint64
	Goroutines    int

	NoteOn *bool
}

// shortenID keeps the first uuid group, enough to match against logs.
func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
