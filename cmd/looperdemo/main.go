// Command looperdemo drives the loop engine offline: it synthesizes input
// in memory and feeds it through engine.ProcessBlock in a loop, the way a
// real host would feed it live audio, and prints a summary of the engine's
// state once the run is complete. It never touches a sound card or a VST3
// host; that binding is explicitly out of scope for this repo.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/urfave/cli"

	"github.com/loopworks/beatcapture/pkg/command"
	"github.com/loopworks/beatcapture/pkg/engine"
	"github.com/loopworks/beatcapture/pkg/metronome"
)

const blockSize = 256

func main() {
	app := cli.NewApp()
	app.Name = "looperdemo"
	app.Usage = "offline demo of the beatcapture loop engine"
	app.Flags = []cli.Flag{
		cli.Float64Flag{Name: "bpm", Value: 120, Usage: "engine tempo in beats per minute"},
		cli.IntFlag{Name: "sample-rate", Value: 48000, Usage: "audio sample rate in Hz"},
		cli.Float64Flag{Name: "duration", Value: 10, Usage: "demo duration in seconds"},
		cli.IntFlag{Name: "bars", Value: 2, Usage: "lookback capture window in bars"},
		cli.IntFlag{Name: "channels", Value: 1, Usage: "number of input channels"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("looperdemo failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	sampleRate := float64(c.Int("sample-rate"))
	bpm := c.Float64("bpm")
	duration := c.Float64("duration")
	channels := c.Int("channels")

	cfg := engine.Config{
		SampleRate:       sampleRate,
		InitialBPM:       bpm,
		BeatsPerBar:      4,
		NumInputChannels: channels,
		MaxLoops:         4,
		MaxLookbackBars:  c.Int("bars"),
		LookbackBars:     float64(c.Int("bars")),
		LiveThreshold:    0.01,
		ClickEnabled:     true,
		InputMonitoring:  false,
	}

	e := engine.New(cfg, nil)
	e.SetOnMessage(func(msg string) { slog.Info("engine", "message", msg) })
	e.SetOnBar(func(pos metronome.Position) {
		slog.Debug("bar boundary", "bar", pos.Bar)
	})

	slog.Info("starting demo",
		"bpm", bpm, "sample_rate", sampleRate, "duration_s", duration, "channels", channels)

	totalSamples := int(duration * sampleRate)

	captureIssued := false
	captureAtSample := int(sampleRate * 60 / bpm * 4 * float64(cfg.MaxLookbackBars))

	phase := 0.0
	freq := 220.0
	input := make([][]float32, channels)
	for i := range input {
		input[i] = make([]float32, blockSize)
	}
	output := make([]float32, blockSize)

	processed := 0
	for processed < totalSamples {
		n := blockSize
		if processed+n > totalSamples {
			n = totalSamples - processed
		}

		for ch := range input {
			for i := 0; i < n; i++ {
				input[ch][i] = float32(0.25 * math.Sin(phase))
				phase += 2 * math.Pi * freq / sampleRate
			}
		}

		e.ProcessBlock(input, output[:n], n)
		processed += n

		if !captureIssued && processed >= captureAtSample {
			e.Enqueue(command.Command{Kind: command.CaptureLoop, LoopIdx: 0, Quantize: metronome.Free})
			captureIssued = true
			slog.Info("issued capture command", "at_sample", processed)
		}
	}

	snap := e.Snapshot()
	fmt.Printf("final position: bar=%d beat=%d\n", snap.Position.Bar, snap.Position.Beat)
	for i, l := range snap.Loops {
		if l.State == 0 {
			continue
		}
		fmt.Printf("loop %d: state=%s length=%d bars=%.2f speed=%.2f\n",
			i, l.State, l.LoopLength, l.LengthInBars, l.Speed)
	}
	fmt.Printf("dropped commands: %d, capture aborts: %d, record aborts: %d\n",
		e.Stats().DroppedCommands(), e.Stats().CaptureAborts(), e.Stats().RecordAborts())

	return nil
}
