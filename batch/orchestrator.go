package batch

// Batch orchestration
//
// The input tree is <InputRoot>/<split>/<class>/<name>_stft.png. Every
// spectrogram is pushed through encode -> simulate -> render independently
// and the figures land in the mirrored <OutputRoot>/<split>/<class>/ folder.
// A failing file is logged, recorded and skipped; it never stops the batch.
// Figures are written through a temp file and a rename once the whole
// in-memory pipeline succeeded, so a failure leaves no partial output.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"
	"golang.org/x/sync/errgroup"

	"spatiotemporal/models"
	"spatiotemporal/render"
	"spatiotemporal/spike"
	"spatiotemporal/utils"
	"spatiotemporal/wav"
)

// Error kinds recorded on failed files.
const (
	KindInvalidInput = "invalid_input"
	KindSimulation   = "simulation"
	KindEmptyRaster  = "empty_raster"
	KindDuration     = "duration"
	KindIO           = "io"
)

// DurationProvider returns the clip duration in seconds for a spectrogram path.
type DurationProvider interface {
	Duration(stftPath string) (float64, error)
}

// ResultSink receives every file result, typically a run manifest.
type ResultSink interface {
	SaveResult(ctx context.Context, result models.FileResult) error
}

// Report summarises a run.
type Report struct {
	Processed int
	Failed    int
	Results   []models.FileResult
}

// OK reports whether every file succeeded.
func (r Report) OK() bool { return r.Failed == 0 }

// Orchestrator walks a spectrogram tree and renders spike plots for it.
type Orchestrator struct {
	cfg       Config
	durations DurationProvider
	Sink      ResultSink
	RunID     int64
	Logger    *slog.Logger
}

// New creates an orchestrator. durations may be nil, in which case clip
// lengths come from WAV files resolved against cfg.AudioRoot.
func New(cfg Config, durations DurationProvider) *Orchestrator {
	if durations == nil {
		durations = wav.Durations{
			InputRoot: cfg.InputRoot,
			AudioRoot: cfg.AudioRoot,
			Fallback:  cfg.FallbackDuration,
		}
	}
	return &Orchestrator{
		cfg:       cfg,
		durations: durations,
		Logger:    utils.GetLogger(),
	}
}

// ErrorKind classifies a pipeline error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, wav.ErrNoDuration):
		return KindDuration
	case errors.Is(err, render.ErrEmptyRaster):
		return KindEmptyRaster
	case errors.Is(err, spike.ErrSimulation):
		return KindSimulation
	case errors.Is(err, spike.ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindIO
	}
}

func (o *Orchestrator) discover(ctx context.Context) []job {
	var jobs []job
	for _, split := range o.cfg.Splits {
		splitPath := filepath.Join(o.cfg.InputRoot, split)
		classes, err := discoverSubdirectories(splitPath)
		if err != nil {
			o.Logger.WarnContext(ctx, "skipping split", slog.String("split", split), slog.Any("error", err))
			continue
		}

		for _, class := range classes {
			files, err := collectSpectrograms(filepath.Join(splitPath, class))
			if err != nil {
				o.Logger.WarnContext(ctx, "skipping class", slog.String("split", split), slog.String("class", class), slog.Any("error", err))
				continue
			}
			outDir := filepath.Join(o.cfg.OutputRoot, split, class)
			for _, file := range files {
				jobs = append(jobs, job{Split: split, Class: class, InputPath: file, OutDir: outDir})
			}
		}
		o.Logger.InfoContext(ctx, "discovered split", slog.String("split", split), slog.Int("classes", len(classes)))
	}
	return jobs
}

// Run processes every spectrogram found under the configured splits.
// Cancelling ctx stops dispatching new files; files already in flight finish.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	if err := o.cfg.Validate(); err != nil {
		return Report{}, err
	}

	jobs := o.discover(ctx)
	o.Logger.InfoContext(ctx, "starting batch", slog.Int("files", len(jobs)), slog.String("output", o.cfg.OutputRoot))

	workers := o.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		report Report
	)
	g.SetLimit(workers)

	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		j := j
		g.Go(func() error {
			result := o.process(ctx, j)
			mu.Lock()
			report.Results = append(report.Results, result)
			if result.Status == models.StatusOK {
				report.Processed++
			} else {
				report.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Results, func(a, b int) bool {
		return report.Results[a].InputPath < report.Results[b].InputPath
	})

	o.Logger.InfoContext(ctx, "batch finished", slog.Int("processed", report.Processed), slog.Int("failed", report.Failed))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) process(ctx context.Context, j job) models.FileResult {
	start := time.Now()
	result := models.FileResult{
		RunID:     o.RunID,
		InputPath: j.InputPath,
		Split:     j.Split,
		Class:     j.Class,
		Timestamp: start.UTC(),
	}

	err := o.runJob(j, &result)
	result.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorKind = ErrorKind(err)
		result.Error = err.Error()
		o.Logger.ErrorContext(ctx, "failed to process spectrogram",
			slog.String("path", j.InputPath),
			slog.String("kind", result.ErrorKind),
			slog.Any("error", xerrors.New(err)))
	} else {
		result.Status = models.StatusOK
		o.Logger.DebugContext(ctx, "processed spectrogram",
			slog.String("path", j.InputPath),
			slog.Int("events", result.Events),
			slog.Int("plotted", result.Plotted))
	}

	if o.Sink != nil {
		if err := o.Sink.SaveResult(ctx, result); err != nil {
			o.Logger.ErrorContext(ctx, "failed to record result", slog.String("path", j.InputPath), slog.Any("error", xerrors.New(err)))
		}
	}

	return result
}

func (o *Orchestrator) runJob(j job, result *models.FileResult) error {
	duration, err := o.durations.Duration(j.InputPath)
	if err != nil {
		return err
	}
	result.Duration = duration

	out, err := Pipeline(j.InputPath, duration, o.cfg)
	if err != nil {
		return err
	}
	result.Width = out.Width
	result.Height = out.Height
	result.Events = out.Events
	result.RasterEvents = out.Raster
	result.Plotted = out.Plotted()

	if err := utils.CreateFolder(j.OutDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	standalonePath, combinedPath := OutputPaths(j.OutDir, j.InputPath)
	var (
		files   []pendingFile
		primary []byte
	)
	if out.Standalone != nil {
		files = append(files, pendingFile{path: standalonePath, data: out.Standalone.PNG})
		primary = out.Standalone.PNG
	}
	if out.Combined != nil {
		files = append(files, pendingFile{path: combinedPath, data: out.Combined.PNG})
		if primary == nil {
			primary = out.Combined.PNG
		}
	}

	if err := writeAll(files); err != nil {
		return err
	}
	if out.Standalone != nil {
		result.OutputPath = standalonePath
	}
	if out.Combined != nil {
		result.CombinedPath = combinedPath
	}

	sum := sha256.Sum256(primary)
	result.OutputSHA256 = hex.EncodeToString(sum[:])
	return nil
}

type pendingFile struct {
	path string
	data []byte
	tmp  string
}

// writeAll stages every file as a temp file next to its destination and only
// then renames them into place. Either all files of a job land or none do.
func writeAll(files []pendingFile) error {
	cleanup := func() {
		for _, f := range files {
			if f.tmp != "" {
				os.Remove(f.tmp)
			}
		}
	}

	for i := range files {
		tmp, err := stage(files[i].path, files[i].data)
		if err != nil {
			cleanup()
			return err
		}
		files[i].tmp = tmp
	}

	for i := range files {
		if err := os.Rename(files[i].tmp, files[i].path); err != nil {
			cleanup()
			for _, done := range files[:i] {
				os.Remove(done.path)
			}
			return fmt.Errorf("failed to move %s into place: %w", files[i].path, err)
		}
		files[i].tmp = ""
	}
	return nil
}

func stage(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return tmpName, nil
}
