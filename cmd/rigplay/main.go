// Command rigplay renders an audio file through the rig processing
// chain and writes or plays the result.
//
// Usage:
//
//	rigplay [flags] -in input.wav
//
// The chain is input gain, bloom pre gain, amp model slot, bloom post
// gain, three-band EQ, cabinet convolver, reverb and master gain. The
// bloom controller follows the input envelope and spreads dynamics
// across the pre and post gains.
//
// Examples:
//
//	rigplay -in riff.wav -out processed.wav
//	rigplay -in riff.wav -amp amp_ir.wav -cab cab_ir.wav -play
//	rigplay -in riff.wav -set reverbWet=0.3 -set eq2Gain=6 -out wet.wav
//	rigplay -in riff.wav -cc 7=100 -cc 91=64 -out mixed.wav
//	rigplay -list-params
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-rig/dsp/chain"
	"github.com/cwbudde/algo-rig/dsp/core"
	"github.com/cwbudde/algo-rig/dsp/params"
	"github.com/cwbudde/algo-rig/dsp/stages"
	"github.com/cwbudde/algo-rig/internal/audiofile"
	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/ebitengine/oto/v3"
)

// defaultCCAssignments follows common General MIDI controller usage:
// volume, expression, release, attack and reverb depth.
var defaultCCAssignments = map[int]params.ID{
	7:  params.MasterGainDB,
	11: params.InputGainDB,
	72: params.EnvReleaseMs,
	73: params.EnvAttackMs,
	91: params.ReverbWet,
}

// repeatedFlag collects every occurrence of a repeatable flag.
type repeatedFlag []string

func (r *repeatedFlag) String() string { return strings.Join(*r, ", ") }

func (r *repeatedFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	var sets, ccs repeatedFlag
	inPath := flag.String("in", "", "input audio file (wav, mp3 or ogg)")
	outPath := flag.String("out", "", "write the rendered audio to this WAV file")
	play := flag.Bool("play", false, "play the rendered audio")
	rate := flag.Float64("rate", 48000, "engine sample rate in Hz")
	block := flag.Int("block", 512, "processing block size in samples")
	ampPath := flag.String("amp", "", "amp model impulse response for the swappable slot")
	cabPath := flag.String("cab", "", "cabinet impulse response for the convolver stage")
	listParams := flag.Bool("list-params", false, "list parameters and exit")
	flag.Var(&sets, "set", "set a parameter as name=value (repeatable)")
	flag.Var(&ccs, "cc", "apply a MIDI controller event as controller=value (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rigplay [flags] -in input.wav\n\n")
		fmt.Fprintf(os.Stderr, "Renders an audio file through the rig processing chain.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rigplay -in riff.wav -out processed.wav\n")
		fmt.Fprintf(os.Stderr, "  rigplay -in riff.wav -amp amp_ir.wav -cab cab_ir.wav -play\n")
		fmt.Fprintf(os.Stderr, "  rigplay -in riff.wav -set reverbWet=0.3 -out wet.wav\n")
		fmt.Fprintf(os.Stderr, "  rigplay -list-params\n")
	}
	flag.Parse()

	if *listParams {
		printParams()
		return
	}
	if *inPath == "" {
		fatalf("-in is required (see -h for usage)")
	}

	cfg := core.ApplyEngineOptions(
		core.WithSampleRate(*rate),
		core.WithBlockSize(*block),
	)

	store := params.NewStore()
	if err := applySets(store, sets); err != nil {
		fatalf("%v", err)
	}
	if err := applyCCs(store, ccs); err != nil {
		fatalf("%v", err)
	}

	r, err := buildRig(store, cfg)
	if err != nil {
		fatalf("%v", err)
	}
	if *ampPath != "" {
		if err := r.loadAmp(*ampPath, cfg); err != nil {
			fatalf("%v", err)
		}
	}
	if *cabPath != "" {
		if err := r.loadCab(*cabPath, cfg); err != nil {
			fatalf("%v", err)
		}
	}

	clip, err := audiofile.ReadFile(*inPath)
	if err != nil {
		fatalf("%v", err)
	}
	input, err := audiofile.Resample(clip.Samples, float64(clip.SampleRate), cfg.SampleRate)
	if err != nil {
		fatalf("%v", err)
	}

	rendered := renderChain(r, input, cfg.BlockSize, r.tailSamples(store, cfg))

	seconds := float64(len(rendered)) / cfg.SampleRate
	if peak := vecmath.MaxAbs(rendered); peak > 0 {
		fmt.Printf("rendered %d samples (%.2f s) at %g Hz, peak %.1f dBFS\n",
			len(rendered), seconds, cfg.SampleRate, core.LinearToDB(peak))
	} else {
		fmt.Printf("rendered %d samples (%.2f s) at %g Hz, silent\n",
			len(rendered), seconds, cfg.SampleRate)
	}

	if *outPath != "" {
		if err := audiofile.WriteWAV(*outPath, rendered, int(cfg.SampleRate)); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("wrote %s\n", *outPath)
	}
	if *play {
		if err := playSamples(rendered, int(cfg.SampleRate)); err != nil {
			fatalf("%v", err)
		}
	}
}

// rig bundles the pipeline with the stages the host addresses after
// assembly.
type rig struct {
	pipeline *chain.Pipeline
	input    *stages.Gain
	master   *stages.Gain
	ampSlot  *stages.Swappable
	cab      *stages.Convolver

	ampLatency int
}

func buildRig(store *params.Store, cfg core.EngineConfig) (*rig, error) {
	inputGain := stages.NewGain()
	preGain := stages.NewGain()
	ampSlot := stages.NewSwappable()
	postGain := stages.NewGain()
	eq := stages.NewEQ(store)
	cab := stages.NewConvolver()
	rev := stages.NewReverb(store)
	masterGain := stages.NewGain()

	p := chain.NewPipeline()
	p.AddStage(inputGain)
	p.AddStage(preGain)
	p.AddStage(ampSlot) // index 2, the bloom centre
	p.AddStage(postGain)
	p.AddStage(eq)
	p.AddStage(cab)
	p.AddStage(rev)
	p.AddStage(masterGain)

	bloom, err := stages.NewBloom(store, preGain, postGain, 2)
	if err != nil {
		return nil, err
	}
	p.AddController(bloom)

	if err := p.Prepare(cfg.SampleRate, cfg.BlockSize); err != nil {
		return nil, err
	}

	inputGain.SetGainDB(store.Get(params.InputGainDB))
	masterGain.SetGainDB(store.Get(params.MasterGainDB))

	return &rig{
		pipeline: p,
		input:    inputGain,
		master:   masterGain,
		ampSlot:  ampSlot,
		cab:      cab,
	}, nil
}

// loadAmp loads an impulse response as the amp model resource through
// the async loader, waiting for the result before rendering starts.
func (r *rig) loadAmp(path string, cfg core.EngineConfig) error {
	var res *stages.ConvolverResource
	loader, err := stages.NewAsyncLoader(r.ampSlot, func(p string) (stages.Resource, error) {
		ir, err := audiofile.PrepareIR(p, cfg.SampleRate, stages.MaxIRSamples)
		if err != nil {
			return nil, err
		}
		cr, err := stages.NewConvolverResource(ir, cfg.BlockSize)
		if err != nil {
			return nil, err
		}
		res = cr
		return cr, nil
	})
	if err != nil {
		return err
	}

	loader.Load(path)
	if err := loader.Wait(); err != nil {
		return err
	}
	r.ampLatency = res.Latency()
	return nil
}

func (r *rig) loadCab(path string, cfg core.EngineConfig) error {
	ir, err := audiofile.PrepareIR(path, cfg.SampleRate, stages.MaxIRSamples)
	if err != nil {
		return err
	}
	return r.cab.SetImpulseResponse(ir)
}

// tailSamples is the zero padding rendered after the input ends, so
// convolution latency flushes and the reverb rings out.
func (r *rig) tailSamples(store *params.Store, cfg core.EngineConfig) int {
	tail := r.ampLatency + r.cab.Latency()
	if store.Get(params.ReverbWet) > 0 {
		tail += int(cfg.SampleRate)
	}
	return tail
}

func renderChain(r *rig, input []float64, blockSize, tail int) []float64 {
	out := make([]float64, 0, len(input)+tail)
	buf := make([]float64, blockSize)

	for start := 0; start < len(input); start += blockSize {
		n := min(blockSize, len(input)-start)
		block := buf[:n]
		copy(block, input[start:start+n])
		r.pipeline.Process(block)
		out = append(out, block...)
	}
	for left := tail; left > 0; left -= blockSize {
		block := buf[:min(blockSize, left)]
		clear(block)
		r.pipeline.Process(block)
		out = append(out, block...)
	}
	return out
}

func applySets(store *params.Store, sets []string) error {
	for _, s := range sets {
		name, valueStr, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("malformed -set %q, want name=value", s)
		}
		id, known := params.ByName(strings.TrimSpace(name))
		if !known {
			return fmt.Errorf("unknown parameter %q (use -list-params)", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
		if err != nil {
			return fmt.Errorf("parse -set %q: %w", s, err)
		}
		store.Set(id, v)
	}
	return nil
}

func applyCCs(store *params.Store, events []string) error {
	if len(events) == 0 {
		return nil
	}

	m := params.NewMIDIMap()
	for cc, id := range defaultCCAssignments {
		if err := m.Assign(cc, id); err != nil {
			return err
		}
	}

	for _, e := range events {
		ccStr, valStr, ok := strings.Cut(e, "=")
		if !ok {
			return fmt.Errorf("malformed -cc %q, want controller=value", e)
		}
		cc, err := strconv.Atoi(strings.TrimSpace(ccStr))
		if err != nil {
			return fmt.Errorf("parse -cc %q: %w", e, err)
		}
		val, err := strconv.Atoi(strings.TrimSpace(valStr))
		if err != nil {
			return fmt.Errorf("parse -cc %q: %w", e, err)
		}
		if !m.HandleCC(store, cc, val) {
			fmt.Fprintf(os.Stderr, "warning: controller %d is not assigned\n", cc)
		}
	}
	return nil
}

func printParams() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Name\tDefault\tMin\tMax\n----\t-------\t---\t---\n"); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}
	for i := range params.Count {
		info := params.ID(i).Info()
		if _, err := fmt.Fprintf(tw, "%s\t%g\t%g\t%g\n", info.Name, info.Default, info.Min, info.Max); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to write output row: %v\n", err)
			return
		}
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
		return
	}

	ccs := make([]int, 0, len(defaultCCAssignments))
	for cc := range defaultCCAssignments {
		ccs = append(ccs, cc)
	}
	sort.Ints(ccs)
	fmt.Println("\nMIDI controllers (for -cc):")
	for _, cc := range ccs {
		fmt.Printf("  %3d  %s\n", cc, defaultCCAssignments[cc])
	}
}

// playSamples plays rendered mono audio through the default output
// device, blocking until playback finishes.
func playSamples(samples []float64, sampleRate int) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	pcm := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(pcm[4*i:], math.Float32bits(float32(s)))
	}

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Close()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
