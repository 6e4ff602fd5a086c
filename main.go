// ABOUTME: Entry point for the soundstage host
// ABOUTME: Parses CLI flags and runs a tone session on the default device
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/soundstage-audio/soundstage-go/internal/builtin"
	"github.com/soundstage-audio/soundstage-go/internal/ui"
	"github.com/soundstage-audio/soundstage-go/internal/version"
	"github.com/soundstage-audio/soundstage-go/pkg/device"
	"github.com/soundstage-audio/soundstage-go/pkg/venue"
)

var (
	sampleRate = flag.Int("rate", 0, "Sample rate in Hz (0 = device default)")
	blockSize  = flag.Int("block", 0, "Callback block size in frames (0 = device default)")
	inputs     = flag.Int("in", 0, "Input channels to open")
	outputs    = flag.Int("out", 2, "Output channels to open")
	freq       = flag.Float64("freq", 440, "Tone base frequency in Hz")
	logFile    = flag.String("log-file", "soundstage.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, log to stderr instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	logger, err := buildLogger(*logFile, useTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("product", version.Product),
		zap.String("version", version.Version))

	// Hardware MIDI needs the portmidi build tag; without it the venue
	// still takes injected notes from the keyboard.
	var backend device.MIDIBackend
	if pm, err := device.NewPortMIDI(); err != nil {
		logger.Info("hardware MIDI unavailable", zap.Error(err))
	} else {
		backend = pm
	}

	v, err := venue.New(venue.Config{
		SampleRate:     *sampleRate,
		BlockSize:      *blockSize,
		InputChannels:  *inputs,
		OutputChannels: *outputs,
		MIDI:           backend,
		Logger:         logger,
	}, builtin.ToneFactory(*outputs, *freq), device.NewMalgo())
	if err != nil {
		logger.Fatal("failed to open venue", zap.Error(err))
	}

	// TUI setup
	var tuiProg *tea.Program
	var ctrl *ui.Control

	if useTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(ctrl)
		if err != nil {
			logger.Fatal("failed to start TUI", zap.Error(err))
		}
		go func() { _, _ = tuiProg.Run() }()
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	info := v.Info()
	updateTUI(ui.StatusMsg{
		SampleRate:     info.SampleRate,
		BlockSize:      info.BlockSize,
		InputChannels:  info.InputChannels,
		OutputChannels: info.OutputChannels,
	})

	s := v.CreateSession()
	updateTUI(ui.StatusMsg{SessionID: s.ID()})
	s.SetStateChangeCallback(func(st venue.State) {
		running := st == venue.StateRunning
		updateTUI(ui.StatusMsg{State: st.String(), Running: &running})
	})

	if err := bringUp(v, s); err != nil {
		logger.Fatal("failed to start session", zap.Error(err))
	}

	if ctrl != nil {
		go handleCommands(v, s, ctrl, updateTUI, logger)
	}
	if tuiProg != nil {
		go statsLoop(v, s, updateTUI)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if ctrl != nil {
		select {
		case <-ctrl.Quit:
			logger.Info("quit requested from TUI")
		case <-sigChan:
			logger.Info("shutdown signal received")
		}
	} else {
		<-sigChan
		logger.Info("shutdown signal received")
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}
	if err := v.Close(); err != nil {
		logger.Warn("error closing venue", zap.Error(err))
	}
	logger.Info("host stopped")
}

// buildLogger writes to the log file, plus stderr when the terminal is
// not occupied by the TUI.
func buildLogger(path string, fileOnly bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if fileOnly {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	} else {
		cfg.OutputPaths = []string{"stderr", path}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}

// bringUp loads the tone program, wires it to the default endpoints and
// starts it. Also used to rebuild the session after a reload.
func bringUp(v *venue.Venue, s *venue.Session) error {
	if err := s.Load("tone"); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !v.ConnectSessionOutputEndpoint(s, "audioOut", "defaultOut") {
		return fmt.Errorf("cannot connect audioOut to defaultOut")
	}
	if !v.ConnectSessionInputEndpoint(s, "midiIn", "defaultMidiIn") {
		return fmt.Errorf("cannot connect midiIn to defaultMidiIn")
	}
	if err := s.Link(); err != nil {
		return fmt.Errorf("link: %w", err)
	}
	if !s.Start() {
		return fmt.Errorf("cannot start from state %s", s.Status().State)
	}
	return nil
}

// handleCommands processes keyboard commands from the TUI. The quit
// signal is received by main, which tears the whole process down.
func handleCommands(v *venue.Venue, s *venue.Session, ctrl *ui.Control, updateTUI func(ui.StatusMsg), logger *zap.Logger) {
	noteOn := false
	for cmd := range ctrl.Commands {
		switch cmd {
		case ui.CmdToggleRun:
			if s.IsRunning() {
				s.Stop()
			} else if !s.Start() {
				logger.Warn("cannot start session",
					zap.String("state", s.Status().State.String()))
			}
		case ui.CmdToggleNote:
			if noteOn {
				v.InjectMIDI([]byte{0x80, 69, 0})
			} else {
				v.InjectMIDI([]byte{0x90, 69, 100})
			}
			noteOn = !noteOn
			on := noteOn
			updateTUI(ui.StatusMsg{NoteOn: &on})
		case ui.CmdReload:
			if err := bringUp(v, s); err != nil {
				logger.Warn("reload failed", zap.Error(err))
			}
			noteOn = false
			off := false
			updateTUI(ui.StatusMsg{NoteOn: &off})
		}
	}
}

// statsLoop periodically pushes venue statistics into the TUI
func statsLoop(v *venue.Venue, s *venue.Session, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		st := s.Status()
		updateTUI(ui.StatusMsg{
			HasStats:      true,
			CPU:           st.CPU,
			XRuns:         st.XRuns,
			Callbacks:     v.CallbackCount(),
			Frames:        v.TotalFrames(),
			DroppedEvents: v.DroppedEvents(),
			Goroutines:    runtime.NumGoroutine(),
		})
	}
}
