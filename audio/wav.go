package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/youpy/go-wav"
)

// Info describes a WAV file's format chunk.
type Info struct {
	SampleRate    uint32
	NumChannels   uint16
	BitsPerSample uint16
	Duration      time.Duration
}

// Probe reads the format and data size of the WAV file at path. Files too
// short to hold their RIFF chunks are reported as errors.
func Probe(path string) (info Info, err error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	// go-riff panics on short reads
	defer func() {
		if r := recover(); r != nil {
			info = Info{}
			err = fmt.Errorf("failed to read wav %q: %v", path, r)
		}
	}()

	reader := wav.NewReader(file)

	format, err := reader.Format()
	if err != nil {
		return Info{}, fmt.Errorf("failed to read wav format of %q: %w", path, err)
	}
	if format.SampleRate == 0 || format.BlockAlign == 0 {
		return Info{}, fmt.Errorf("wav file %q has an empty format chunk", path)
	}

	duration, err := reader.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("failed to read wav duration of %q: %w", path, err)
	}

	return Info{
		SampleRate:    format.SampleRate,
		NumChannels:   format.NumChannels,
		BitsPerSample: format.BitsPerSample,
		Duration:      duration,
	}, nil
}

// WriteSilence writes a mono 16-bit PCM file of the given length to path.
func WriteSilence(path string, sampleRate uint32, length time.Duration) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	numSamples := uint32(length.Seconds() * float64(sampleRate))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer file.Close()

	writer := wav.NewWriter(file, numSamples, channels, sampleRate, bitsPerSample)
	if err := writer.WriteSamples(make([]wav.Sample, numSamples)); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return file.Close()
}
