package audiofile

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-rig/dsp/core"
	"github.com/cwbudde/algo-rig/dsp/dither"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavOutputBitDepth = 16
	wavFormatPCM      = 1
)

// WriteWAV writes mono samples as a 16-bit PCM WAV file. Samples are
// clamped to [-1, 1] and quantized with triangular dither.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("audiofile: sample rate must be positive: %d", sampleRate)
	}

	quant, err := dither.NewQuantizer(wavOutputBitDepth)
	if err != nil {
		return fmt.Errorf("audiofile: quantizer: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audiofile: create: %w", err)
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = quant.ProcessInteger(core.Clamp(s, -1, 1))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: wavOutputBitDepth,
	}

	enc := wav.NewEncoder(f, sampleRate, wavOutputBitDepth, 1, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("audiofile: write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("audiofile: finalize %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audiofile: close %s: %w", path, err)
	}
	return nil
}
