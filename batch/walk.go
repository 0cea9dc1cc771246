package batch

import (
	"os"
	"path/filepath"
	"strings"

	"spatiotemporal/wav"
)

const outputSuffix = "_spatiotemporal.png"
const combinedSuffix = "_combined.png"

type job struct {
	Split     string
	Class     string
	InputPath string
	OutDir    string
}

// OutputPaths returns where the standalone and combined figures for an input
// spectrogram go: <outDir>/<base>_spatiotemporal.png and <base>_combined.png,
// where base is the file name without its extension.
func OutputPaths(outDir, inputPath string) (standalone, combined string) {
	name := filepath.Base(inputPath)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(outDir, base+outputSuffix), filepath.Join(outDir, base+combinedSuffix)
}

func discoverSubdirectories(rootDir string) ([]string, error) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, err
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			subdirs = append(subdirs, entry.Name())
		}
	}

	return subdirs, nil
}

func collectSpectrograms(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), wav.StftSuffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}
