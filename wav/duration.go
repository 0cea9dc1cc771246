package wav

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gowav "github.com/go-audio/wav"
)

// StftSuffix is the naming convention linking a spectrogram to its clip.
const StftSuffix = "_stft.png"

// ErrNoDuration is returned when a clip duration cannot be determined.
var ErrNoDuration = errors.New("audio duration unavailable")

// ReadDuration returns the length of a WAV file in seconds.
func ReadDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := gowav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid wav file", path)
	}

	if err := decoder.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("failed to locate pcm data in %s: %w", path, err)
	}

	// The RIFF size includes header chunks, so derive the length from the
	// data chunk alone.
	bytesPerFrame := int64(decoder.NumChans) * int64(decoder.BitDepth/8)
	if decoder.SampleRate == 0 || bytesPerFrame == 0 {
		return 0, fmt.Errorf("%s has an invalid format chunk", path)
	}
	frames := decoder.PCMLen() / bytesPerFrame

	return float64(frames) / float64(decoder.SampleRate), nil
}

// Durations resolves clip durations for spectrograms by mirroring the
// spectrogram tree into a separate audio tree:
// <InputRoot>/<rel>/<base>_stft.png -> <AudioRoot>/<rel>/<base>.wav.
// When AudioRoot is empty the WAV is looked up next to the spectrogram.
type Durations struct {
	InputRoot string
	AudioRoot string
	Fallback  float64 // used when the WAV is missing or unreadable; 0 disables
}

// AudioPath returns the WAV path paired with a spectrogram path.
func (d Durations) AudioPath(stftPath string) string {
	base := strings.TrimSuffix(filepath.Base(stftPath), StftSuffix) + ".wav"
	dir := filepath.Dir(stftPath)

	if d.AudioRoot != "" && d.InputRoot != "" {
		if rel, err := filepath.Rel(d.InputRoot, dir); err == nil && !strings.HasPrefix(rel, "..") {
			dir = filepath.Join(d.AudioRoot, rel)
		}
	}

	return filepath.Join(dir, base)
}

// Duration returns the clip length for stftPath.
func (d Durations) Duration(stftPath string) (float64, error) {
	seconds, err := ReadDuration(d.AudioPath(stftPath))
	if err == nil && seconds > 0 {
		return seconds, nil
	}
	if d.Fallback > 0 {
		return d.Fallback, nil
	}
	if err == nil {
		err = fmt.Errorf("empty clip")
	}
	return 0, fmt.Errorf("%w: %s: %v", ErrNoDuration, stftPath, err)
}
