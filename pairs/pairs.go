// Package pairs matches audio files with their RTTM ground truth.
package pairs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bosley/chatrttm/rttm"
)

// AudioExt is the extension of audio files considered for pairing.
const AudioExt = ".wav"

// ErrMissingDir is returned when an input directory does not exist.
var ErrMissingDir = errors.New("pairs: directory does not exist")

// Pair joins an audio file to its RTTM file.
type Pair struct {
	Audio string `json:"audio"`
	RTTM  string `json:"rttm"`
}

// WavRTTM walks audioDir for .wav files and pairs each with the .rttm file
// at the same relative path below rttmDir. Audio files without an RTTM
// file are left out. Pairs come back in lexical walk order.
func WavRTTM(audioDir, rttmDir string) ([]Pair, error) {
	for _, dir := range []string{audioDir, rttmDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %q", ErrMissingDir, dir)
		}
	}

	root, err := filepath.EvalSymlinks(audioDir)
	if err != nil {
		return nil, fmt.Errorf("pairs: resolve %q: %w", audioDir, err)
	}

	var out []Pair
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != AudioExt {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		audio := filepath.Join(audioDir, rel)
		candidate := rttm.PathFor(rttmDir, filepath.ToSlash(strings.TrimSuffix(rel, AudioExt)))
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			slog.Debug("No rttm for audio file", "audio", audio)
			return nil
		}
		out = append(out, Pair{Audio: audio, RTTM: candidate})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pairs: walk %q: %w", audioDir, err)
	}
	return out, nil
}
