// Reference host for the Looper Controller: opens a duplex PortAudio
// stream, drives the Controller from its callback, and exposes the
// pedal's triggers and parameters over a line-oriented stdin reader.
// Stands in for the firmware's buttons, LEDs and display; it is an
// adapter, not a reimplementation of firmware behavior.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/loopstream/pedal/audio"
	"github.com/loopstream/pedal/config"
	"github.com/loopstream/pedal/engine"
	"github.com/loopstream/pedal/looper"
	"github.com/loopstream/pedal/metering"
	"github.com/loopstream/pedal/shell"
)

// tunerFFTSize/tunerHistoryFactor size the "tuner" command's spectrum
// analyzer; see metering.NewSpectrumAnalyzer.
const (
	tunerFFTSize       = 1024
	tunerHistoryFactor = 4
	tunerBars          = 32
	tunerGain          = 4.0
)

// inputClipThreshold is the input clip meter's threshold; the
// -clipthreshold flag sets the output meter's.
const inputClipThreshold = 0.88

type pedalOptions struct {
	SlotDir       *string
	SettingsFile  *string
	SampleRate    *int
	BlockSamples  *int
	ClipThreshold *float64
	Help          *bool
}

func main() {
	opts := &pedalOptions{}
	opts.SlotDir = flag.String("slots", "./slots", "directory for saved loop slots")
	opts.SettingsFile = flag.String("settings", "./settings.bin", "parameter settings file")
	opts.SampleRate = flag.Int("samplerate", 48000, "audio sample rate")
	opts.BlockSamples = flag.Int("block", 512, "realtime block size in samples")
	opts.ClipThreshold = flag.Float64("clipthreshold", 0.98, "output clip detection threshold")
	opts.Help = flag.Bool("help", false, "show help message")
	flag.Parse()

	if *opts.Help {
		fmt.Println("Stereo loop-pedal reference host")
		flag.PrintDefaults()
		return
	}

	if err := os.MkdirAll(*opts.SlotDir, 0o755); err != nil {
		log.Fatalf("pedal: create slot directory: %v", err)
	}

	leftStorage, err := engine.OpenFileStorage(*opts.SlotDir + "/live.L")
	if err != nil {
		log.Fatalf("pedal: open left storage: %v", err)
	}
	rightStorage, err := engine.OpenFileStorage(*opts.SlotDir + "/live.R")
	if err != nil {
		log.Fatalf("pedal: open right storage: %v", err)
	}

	left := engine.New(leftStorage, *opts.BlockSamples)
	right := engine.New(rightStorage, *opts.BlockSamples)
	controller := looper.New(left, right, *opts.SampleRate, *opts.SlotDir)
	if err := controller.Init(); err != nil {
		log.Fatalf("pedal: init controller: %v", err)
	}

	if settings, err := config.Load(*opts.SettingsFile); err != nil {
		log.Printf("pedal: load settings: %v (using defaults)", err)
	} else {
		settings.ApplyTo(controller)
	}

	inMeter := audio.NewClipMeter(inputClipThreshold)
	outMeter := audio.NewClipMeter(float32(*opts.ClipThreshold))
	tuner := metering.NewSpectrumAnalyzer(tunerFFTSize, tunerHistoryFactor)

	stream, err := audio.NewDuplexStream(*opts.SampleRate, *opts.BlockSamples, func(inL, inR, outL, outR []float32) {
		inMeter.Update(inL)
		inMeter.Update(inR)
		controller.Process(inL, inR, outL, outR)
		outGain := audio.DB2Gain(looper.ScaleOutGainDB(controller.Parameter(looper.OutGain)))
		audio.ApplyGain(outL, outGain)
		audio.ApplyGain(outR, outGain)
		outMeter.Update(outL)
		outMeter.Update(outR)
		tuner.Feed(outL)
	})
	if err != nil {
		log.Fatalf("pedal: open audio stream: %v", err)
	}
	if err := stream.Start(); err != nil {
		log.Fatalf("pedal: start audio stream: %v", err)
	}
	defer stream.Stop()

	pumpDone := make(chan struct{})
	go runPump(controller, pumpDone)
	defer close(pumpDone)

	fmt.Println("Loop pedal ready. Commands: record, play, overdub, save <slot>, load <slot>, export <slot> <path>, import <path> <slot>, setlength <value> <seconds|beats|bars>, tuner, status, quit")
	runCommandLoop(controller, tuner)

	if err := config.Save(*opts.SettingsFile, config.FromController(controller)); err != nil {
		log.Printf("pedal: save settings: %v", err)
	}
}

func runPump(c *looper.Controller, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
			c.Pump()
		}
	}
}

func runCommandLoop(c *looper.Controller, tuner *metering.SpectrumAnalyzer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "record":
			c.Record()
		case "play":
			c.PlayStop()
		case "overdub":
			c.Overdub()
		case "save":
			dispatchSlotCommand(c.Save, fields)
		case "load":
			dispatchSlotCommand(c.Load, fields)
		case "export":
			dispatchExport(c, fields)
		case "import":
			dispatchImport(c, fields)
		case "setlength":
			dispatchSetLength(c, fields)
		case "tuner":
			printTuner(tuner)
		case "status":
			printStatus(c)
		case "quit", "exit":
			return
		default:
			fmt.Printf("unrecognized command: %s\n", fields[0])
		}
		printLEDs(c)
	}
}

func dispatchSlotCommand(fn func(int) error, fields []string) {
	if len(fields) != 2 {
		fmt.Println("usage: save|load <slot>")
		return
	}
	slot, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Printf("invalid slot number: %s\n", fields[1])
		return
	}
	if err := fn(slot); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func dispatchExport(c *looper.Controller, fields []string) {
	if len(fields) != 3 {
		fmt.Println("usage: export <slot> <path>")
		return
	}
	slot, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Printf("invalid slot number: %s\n", fields[1])
		return
	}
	if err := c.ExportSlot(slot, fields[2]); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func dispatchImport(c *looper.Controller, fields []string) {
	if len(fields) != 3 {
		fmt.Println("usage: import <path> <slot>")
		return
	}
	slot, err := strconv.Atoi(fields[2])
	if err != nil {
		fmt.Printf("invalid slot number: %s\n", fields[2])
		return
	}
	if err := c.ImportSlot(fields[1], slot); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func printTuner(tuner *metering.SpectrumAnalyzer) {
	spectrum := tuner.Spectrum(tunerGain)
	fmt.Println(metering.BarGraph(spectrum, tunerBars))
}

func dispatchSetLength(c *looper.Controller, fields []string) {
	if len(fields) != 3 {
		fmt.Println("usage: setlength <value> <seconds|beats|bars>")
		return
	}
	raw, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		fmt.Printf("invalid raw value: %s\n", fields[1])
		return
	}
	var mode looper.LengthMode
	switch fields[2] {
	case "seconds":
		mode = looper.Seconds
	case "beats":
		mode = looper.Beats
	case "bars":
		mode = looper.Bars
	default:
		fmt.Printf("unrecognized length mode: %s\n", fields[2])
		return
	}
	c.SetParameter(looper.SetLength, uint16(raw))
	c.SetParameter(looper.SetLengthMode, uint16(mode)*511)
	if err := c.SetLengthFromParams(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func printLEDs(c *looper.Controller) {
	leds := shell.LEDsForMode(c.Mode())
	fmt.Printf("[rec=%v overdub=%v run=%v]\n", leds.Recording, leds.Overdub, leds.Running)
}

func printStatus(c *looper.Controller) {
	fmt.Printf("mode=%v loop_samples=%d overruns=%d in_gain=%s out_gain=%s bpm=%s\n",
		c.Mode(), c.LoopLengthAccum(), c.QueueOverruns(),
		shell.FormatParameter(c, looper.InGain),
		shell.FormatParameter(c, looper.OutGain),
		shell.FormatParameter(c, looper.Bpm))
}
