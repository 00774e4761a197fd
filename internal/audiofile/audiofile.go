// Package audiofile reads and writes the audio files a rig session
// touches: program material in WAV, MP3 or Ogg Vorbis form, rendered
// output as 16-bit WAV, and impulse responses prepared for the
// convolution stages.
//
// Decoded audio is downmixed to mono float64 in [-1, 1]; the rig
// engine is mono end to end.
package audiofile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Normalization references per source bit depth.
const (
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0
)

// Clip is decoded audio, downmixed to mono.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// ReadFile decodes path into a mono Clip. The format is chosen by file
// extension; .wav, .mp3, .ogg and .oga are supported.
func ReadFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiofile: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var clip *Clip
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		clip, err = readWAV(f)
	case ".mp3":
		clip, err = readMP3(f)
	case ".ogg", ".oga":
		clip, err = readOgg(f)
	default:
		return nil, fmt.Errorf("audiofile: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("audiofile: decode %s: %w", path, err)
	}
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("audiofile: %s contains no samples", path)
	}
	return clip, nil
}

func readWAV(f *os.File) (*Clip, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("channel count %d", channels)
	}
	scale := 1 / maxSampleValue(int(dec.BitDepth))
	return &Clip{
		Samples:    downmixInts(buf.Data, channels, scale),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// readMP3 relies on go-mp3 always emitting 16-bit little-endian
// stereo frames, whatever the source channel layout was.
func readMP3(f *os.File) (*Clip, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read PCM: %w", err)
	}
	frames := len(pcm) / 4
	mono := make([]float64, frames)
	for i := range mono {
		left := int16(binary.LittleEndian.Uint16(pcm[4*i:]))
		right := int16(binary.LittleEndian.Uint16(pcm[4*i+2:]))
		mono[i] = (float64(left) + float64(right)) / (2 * maxInt16)
	}
	return &Clip{Samples: mono, SampleRate: dec.SampleRate()}, nil
}

func readOgg(f *os.File) (*Clip, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	channels := dec.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("channel count %d", channels)
	}

	// Read returns whole frames, so n is always a channel multiple.
	var interleaved []float32
	buf := make([]float32, 4096)
	for {
		n, rerr := dec.Read(buf)
		interleaved = append(interleaved, buf[:n]...)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read PCM: %w", rerr)
		}
	}
	return &Clip{
		Samples:    downmixFloats(interleaved, channels),
		SampleRate: dec.SampleRate(),
	}, nil
}

// downmixInts converts interleaved integer samples to mono, averaging
// channels and scaling into [-1, 1].
func downmixInts(data []int, channels int, scale float64) []float64 {
	if channels == 1 {
		mono := make([]float64, len(data))
		for i, v := range data {
			mono[i] = float64(v) * scale
		}
		return mono
	}
	frames := len(data) / channels
	mono := make([]float64, frames)
	norm := scale / float64(channels)
	for i := range mono {
		sum := 0
		base := i * channels
		for ch := range channels {
			sum += data[base+ch]
		}
		mono[i] = float64(sum) * norm
	}
	return mono
}

func downmixFloats(data []float32, channels int) []float64 {
	if channels == 1 {
		mono := make([]float64, len(data))
		for i, v := range data {
			mono[i] = float64(v)
		}
		return mono
	}
	frames := len(data) / channels
	mono := make([]float64, frames)
	inv := 1 / float64(channels)
	for i := range mono {
		sum := 0.0
		base := i * channels
		for ch := range channels {
			sum += float64(data[base+ch])
		}
		mono[i] = sum * inv
	}
	return mono
}

// maxSampleValue returns the normalization reference for a source bit
// depth, defaulting to 16-bit for anything unexpected.
func maxSampleValue(bitDepth int) float64 {
	switch bitDepth {
	case 24:
		return maxInt24
	case 32:
		return maxInt32
	default:
		return maxInt16
	}
}
