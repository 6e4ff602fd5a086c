// ABOUTME: Offline renderer producing raw float32 samples from a program
// ABOUTME: Pumps the venue faster than realtime and writes one file
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soundstage-audio/soundstage-go/internal/builtin"
	"github.com/soundstage-audio/soundstage-go/internal/version"
	"github.com/soundstage-audio/soundstage-go/pkg/device"
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
	"github.com/soundstage-audio/soundstage-go/pkg/venue"
)

var rootCmd = &cobra.Command{
	Use:   "soundstage-render",
	Short: "Render a built-in program offline to raw float32 samples",
	Long: `soundstage-render runs a built-in program against an offline device
and writes interleaved little-endian float32 samples, block by block, as
fast as the machine allows. An empty output path discards the samples
and leaves only the summary, which is useful for timing runs.`,
	Version: version.Version,
	RunE:    runRender,
}

func init() {
	rootCmd.Flags().Int("rate", 44100, "Sample rate in Hz")
	rootCmd.Flags().Int("block-size", 512, "Frames per block")
	rootCmd.Flags().Int("channels", 2, "Output channels")
	rootCmd.Flags().Int("blocks", 100, "Number of blocks to render")
	rootCmd.Flags().String("program", "tone", "Program to render (tone or passthrough)")
	rootCmd.Flags().Float64("freq", 440, "Tone frequency in Hz")
	rootCmd.Flags().StringP("out", "o", "render.f32", "Output file (raw float32 LE; empty discards)")
	rootCmd.Flags().Bool("verbose", false, "Log venue activity to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	rate, _ := cmd.Flags().GetInt("rate")
	block, _ := cmd.Flags().GetInt("block-size")
	channels, _ := cmd.Flags().GetInt("channels")
	blocks, _ := cmd.Flags().GetInt("blocks")
	program, _ := cmd.Flags().GetString("program")
	freq, _ := cmd.Flags().GetFloat64("freq")
	outPath, _ := cmd.Flags().GetString("out")
	verbose, _ := cmd.Flags().GetBool("verbose")

	var factory performer.Factory
	switch program {
	case "tone":
		factory = builtin.ToneFactory(channels, freq)
	case "passthrough":
		factory = builtin.PassthroughFactory(channels)
	default:
		return fmt.Errorf("unknown program %q, want tone or passthrough", program)
	}

	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	dev := device.NewRender()
	v, err := venue.New(venue.Config{
		SampleRate:     rate,
		BlockSize:      block,
		OutputChannels: channels,
		WarmUpSamples:  -1,
		Logger:         logger,
	}, factory, dev)
	if err != nil {
		return fmt.Errorf("failed to open venue: %w", err)
	}
	defer v.Close()

	s := v.CreateSession()
	if err := s.Load(program); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !v.ConnectSessionOutputEndpoint(s, "audioOut", "defaultOut") {
		return fmt.Errorf("cannot connect audioOut to defaultOut")
	}
	if err := s.Link(); err != nil {
		return fmt.Errorf("link: %w", err)
	}
	if !s.Start() {
		return fmt.Errorf("cannot start session from state %s", s.Status().State)
	}

	var f *os.File
	if outPath != "" {
		f, err = os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
	}

	info := v.Info()
	buf := make([]byte, info.BlockSize*channels*4)
	var peak float64

	for i := 0; i < blocks; i++ {
		frames := dev.Pump()
		out := dev.Output()
		for fr := 0; fr < frames; fr++ {
			for c := 0; c < channels; c++ {
				sample := out[c][fr]
				if a := math.Abs(float64(sample)); a > peak {
					peak = a
				}
				binary.LittleEndian.PutUint32(buf[(fr*channels+c)*4:], math.Float32bits(sample))
			}
		}
		if f == nil {
			continue
		}
		if _, err := f.Write(buf[:frames*channels*4]); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	dest := outPath
	if dest == "" {
		dest = "discarded"
	}
	totalFrames := blocks * info.BlockSize
	seconds := float64(totalFrames) / float64(info.SampleRate)
	fmt.Printf("rendered %d blocks (%d frames, %.2f s) at %d Hz, %d channels, peak %.3f, load %.3f -> %s\n",
		blocks, totalFrames, seconds, info.SampleRate, channels, peak, v.Load(), dest)
	return nil
}
