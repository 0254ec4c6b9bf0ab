// Command awgtool works with AWG5000 series settings files from the
// command line: synthesizing them from stock shapes, inspecting them,
// and pushing them onto an instrument.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/theckman/yacspin"
	"golang.org/x/time/rate"

	"github.com/jpsecher/labawg/awgfile"
	"github.com/jpsecher/labawg/tektronix"
	"github.com/jpsecher/labawg/wavegen"
)

// Version is the version number.  Typically injected via ldflags with git build
var Version = "1"

func usage() {
	str := `awgtool works with AWG5000 series settings files

Usage:
	awgtool <command> [flags]

Commands:
	synth    generate a settings file from a stock waveform shape
	dump     print the records in a settings file
	upload   send a settings file to an instrument and load it
	state    print the run state of an instrument
	run      start an instrument
	stop     stop an instrument
	watch    poll and print the run state of an instrument
	version`
	fmt.Println(str)
}

func spinner(suffix string) (*yacspin.Spinner, error) {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " " + suffix,
		SuffixAutoColon: true,
		StopCharacter:   "done",
	}
	return yacspin.New(cfg)
}

func synth(args []string) {
	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	shape := fs.String("shape", "sine", "waveform shape: sine, square, ramp, gauss, dc")
	points := fs.Int("points", 1000, "number of samples")
	cycles := fs.Float64("cycles", 1, "cycles across the waveform (sine, square)")
	amplitude := fs.Float64("amplitude", 1, "peak amplitude, in [-1, 1]")
	channel := fs.Int("channel", 1, "output channel the sequence assigns the waveform to")
	name := fs.String("name", "wfm001", "waveform list entry name")
	out := fs.String("o", "out.awg", "output file")
	fs.Parse(args)

	var (
		wf  []float64
		err error
	)
	switch strings.ToLower(*shape) {
	case "sine":
		wf, err = wavegen.Sine(*points, *cycles, *amplitude, 0)
	case "square":
		wf, err = wavegen.Square(*points, *cycles, *amplitude, 0.5)
	case "ramp":
		wf, err = wavegen.Ramp(*points, *amplitude)
	case "gauss":
		wf, err = wavegen.Gaussian(*points, float64(*points)/2, float64(*points)/10, *amplitude)
	case "dc":
		wf, err = wavegen.DC(*points, *amplitude)
	default:
		log.Fatal("shape ", *shape, " not understood")
	}
	if err != nil {
		log.Fatal(err)
	}

	packed, err := awgfile.Pack(wf, wavegen.MarkerOff(*points), wavegen.MarkerOff(*points))
	if err != nil {
		log.Fatal(err)
	}
	seq := []awgfile.SequenceElement{{
		Loops:     1,
		Waveforms: map[int]string{*channel: *name},
	}}
	contents, err := awgfile.EncodeFile(nil, nil,
		map[string][]uint16{*name: packed}, seq,
		awgfile.NewTimestamp(time.Now()))
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(*out, contents, 0644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %d samples of %s to %s\n", *points, *shape, *out)
}

func dump(args []string) {
	if len(args) != 1 {
		log.Fatal("usage: awgtool dump <file.awg>")
	}
	contents, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatal(err)
	}
	records, err := awgfile.ParseRecords(contents)
	if err != nil {
		log.Fatal(err)
	}
	for _, rec := range records {
		fmt.Printf("%-32s %6d bytes\n", rec.Name, len(rec.Data))
	}
}

func upload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	addr := fs.String("addr", "", "network address of the instrument, host:port")
	load := fs.Bool("load", true, "load the file into instrument memory after sending")
	fs.Parse(args)
	if *addr == "" || fs.NArg() != 1 {
		log.Fatal("usage: awgtool upload -addr host:port <file.awg>")
	}
	path := fs.Arg(0)
	contents, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	spin, err := spinner("uploading " + path)
	if err != nil {
		log.Fatal(err)
	}
	spin.Start()
	awg := tektronix.NewAWG5014(*addr)
	err = awg.SendFile(path, contents)
	if err != nil {
		spin.StopFail()
		log.Fatal(err)
	}
	if *load {
		spin.Message("loading")
		err = awg.LoadFile(path)
		if err != nil {
			spin.StopFail()
			log.Fatal(err)
		}
	}
	spin.Stop()
}

func withAWG(args []string, fcn func(*tektronix.AWG5014) error) {
	fs := flag.NewFlagSet("awg", flag.ExitOnError)
	addr := fs.String("addr", "", "network address of the instrument, host:port")
	fs.Parse(args)
	if *addr == "" {
		log.Fatal("-addr is required")
	}
	awg := tektronix.NewAWG5014(*addr)
	if err := fcn(awg); err != nil {
		log.Fatal(err)
	}
}

func stateName(state int) string {
	switch state {
	case tektronix.Stopped:
		return "stopped"
	case tektronix.WaitingForTrigger:
		return "waiting for trigger"
	case tektronix.Running:
		return "running"
	}
	return fmt.Sprintf("unknown (%d)", state)
}

func watch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	addr := fs.String("addr", "", "network address of the instrument, host:port")
	interval := fs.Duration("interval", time.Second, "time between polls")
	fs.Parse(args)
	if *addr == "" {
		log.Fatal("-addr is required")
	}
	awg := tektronix.NewAWG5014(*addr)
	limiter := rate.NewLimiter(rate.Every(*interval), 1)
	ctx := context.Background()
	for {
		if err := limiter.Wait(ctx); err != nil {
			log.Fatal(err)
		}
		state, err := awg.GetState()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s %s\n", time.Now().Format(time.RFC3339), stateName(state))
	}
}

func main() {
	args := os.Args
	if len(args) == 1 {
		usage()
		return
	}
	cmd := strings.ToLower(args[1])
	rest := args[2:]
	switch cmd {
	case "synth":
		synth(rest)
	case "dump":
		dump(rest)
	case "upload":
		upload(rest)
	case "state":
		withAWG(rest, func(a *tektronix.AWG5014) error {
			state, err := a.GetState()
			if err != nil {
				return err
			}
			fmt.Println(stateName(state))
			return nil
		})
	case "run":
		withAWG(rest, (*tektronix.AWG5014).Run)
	case "stop":
		withAWG(rest, (*tektronix.AWG5014).Stop)
	case "watch":
		watch(rest)
	case "version":
		fmt.Printf("awgtool version %v\n", Version)
	default:
		usage()
		log.Fatal("unknown command")
	}
}
