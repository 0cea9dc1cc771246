package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mdobak/go-xerrors"

	"spatiotemporal/batch"
	"spatiotemporal/db"
	"spatiotemporal/models"
	"spatiotemporal/render"
	"spatiotemporal/utils"
	"spatiotemporal/wav"
)

// bindPipelineFlags registers the flags shared by run and encode on top of cfg.
func bindPipelineFlags(fs *flag.FlagSet, cfg *batch.Config) *string {
	fs.Float64Var(&cfg.Encoder.GlobalThreshold, "threshold", cfg.Encoder.GlobalThreshold, "Global intensity floor for spike eligibility")
	fs.IntVar(&cfg.Encoder.BlockSize, "block", cfg.Encoder.BlockSize, "Adaptive threshold neighbourhood (odd, >= 3)")
	fs.Float64Var(&cfg.Encoder.AdaptiveConstant, "c", cfg.Encoder.AdaptiveConstant, "Constant subtracted from the local mean")
	fs.IntVar(&cfg.Stride, "stride", cfg.Stride, "Render every Nth raster event")
	fs.IntVar(&cfg.DPI, "dpi", cfg.DPI, "Output resolution")
	fs.BoolVar(&cfg.FailOnEmpty, "fail-empty", cfg.FailOnEmpty, "Treat an empty raster as an error instead of a blank plot")
	fs.BoolVar(&cfg.Neuron.Strict, "strict", cfg.Neuron.Strict, "Fire only when V exceeds the threshold (halves the relay rate)")
	fs.Float64Var(&cfg.Neuron.Tau, "tau", cfg.Neuron.Tau, "Membrane leak time constant in seconds (0 disables leak)")
	fs.Float64Var(&cfg.Neuron.Refractory, "refractory", cfg.Neuron.Refractory, "Refractory period in seconds")
	return fs.String("style", string(cfg.Style), "standalone, combined or both")
}

func runBatch(args []string) int {
	logger := utils.GetLogger()

	cfg, err := batch.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid environment configuration", slog.Any("error", xerrors.New(err)))
		return 2
	}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&cfg.InputRoot, "in", cfg.InputRoot, "Root of the <split>/<class>/*_stft.png tree")
	fs.StringVar(&cfg.OutputRoot, "out", cfg.OutputRoot, "Root of the rendered output tree")
	fs.StringVar(&cfg.AudioRoot, "audio", cfg.AudioRoot, "Root of the matching <split>/<class>/*.wav tree")
	splits := fs.String("splits", "", "Comma separated splits (default test,train,val)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel files (0 = all CPUs, 1 = sequential)")
	fs.Float64Var(&cfg.FallbackDuration, "fallback-duration", cfg.FallbackDuration, "Clip length used when no WAV is found (0 fails the file)")
	style := bindPipelineFlags(fs, &cfg)
	fs.Parse(args)

	if *splits != "" {
		cfg.Splits = utils.SplitList(*splits)
	}
	if cfg.Style, err = render.ParseStyle(*style); err != nil {
		logger.Error("invalid style", slog.Any("error", err))
		return 2
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manifest, err := db.NewClient(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open run manifest", slog.Any("error", xerrors.New(err)))
		return 2
	}

	run := models.Run{
		ID:         time.Now().UnixNano(),
		InputRoot:  cfg.InputRoot,
		OutputRoot: cfg.OutputRoot,
		Config:     cfg.JSON(),
		StartedAt:  time.Now().UTC(),
	}

	orchestrator := batch.New(cfg, nil)
	orchestrator.RunID = run.ID
	orchestrator.Logger = logger
	if manifest != nil {
		defer manifest.Close()
		if err := manifest.StartRun(ctx, run); err != nil {
			logger.ErrorContext(ctx, "failed to record run start", slog.Any("error", xerrors.New(err)))
		} else {
			orchestrator.Sink = manifest
		}
	}

	report, err := orchestrator.Run(ctx)

	run.FinishedAt = time.Now().UTC()
	run.Processed = report.Processed
	run.Failed = report.Failed
	if orchestrator.Sink != nil {
		// The run context may already be cancelled; the summary still gets written.
		if ferr := manifest.FinishRun(context.Background(), run); ferr != nil {
			logger.Error("failed to record run end", slog.Any("error", xerrors.New(ferr)))
		}
	}

	fmt.Printf("run %d: %d processed, %d failed\n", run.ID, report.Processed, report.Failed)
	if err != nil {
		logger.Error("batch interrupted", slog.Any("error", err))
		return 1
	}
	if !report.OK() {
		return 1
	}
	return 0
}

func encodeOne(args []string) int {
	logger := utils.GetLogger()

	cfg := batch.DefaultConfig()
	cfg.Style = render.StyleBoth

	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	input := fs.String("in", "", "Spectrogram image (png, bmp or tiff)")
	outDir := fs.String("out", ".", "Directory for the rendered plots")
	duration := fs.Float64("duration", 0, "Clip length in seconds (default: read <base>.wav next to the image, else 1s)")
	style := bindPipelineFlags(fs, &cfg)
	fs.Parse(args)

	if *input == "" {
		fmt.Println("Usage: encode -in <clip_stft.png> [-out dir] [-duration seconds]")
		return 2
	}

	var err error
	if cfg.Style, err = render.ParseStyle(*style); err != nil {
		logger.Error("invalid style", slog.Any("error", err))
		return 2
	}

	seconds := *duration
	if seconds <= 0 {
		seconds, err = wav.Durations{Fallback: cfg.FallbackDuration}.Duration(*input)
		if err != nil {
			logger.Error("failed to resolve duration", slog.String("path", *input), slog.Any("error", xerrors.New(err)))
			return 1
		}
	}

	out, err := batch.Pipeline(*input, seconds, cfg)
	if err != nil {
		logger.Error("failed to encode spectrogram",
			slog.String("path", *input),
			slog.String("kind", batch.ErrorKind(err)),
			slog.Any("error", xerrors.New(err)))
		return 1
	}

	if err := utils.CreateFolder(*outDir); err != nil {
		logger.Error("failed to create output directory", slog.Any("error", xerrors.New(err)))
		return 1
	}

	standalonePath, combinedPath := batch.OutputPaths(*outDir, *input)
	if out.Standalone != nil {
		if err := os.WriteFile(standalonePath, out.Standalone.PNG, 0644); err != nil {
			logger.Error("failed to write plot", slog.Any("error", xerrors.New(err)))
			return 1
		}
		fmt.Println(filepath.Clean(standalonePath))
	}
	if out.Combined != nil {
		if err := os.WriteFile(combinedPath, out.Combined.PNG, 0644); err != nil {
			logger.Error("failed to write plot", slog.Any("error", xerrors.New(err)))
			return 1
		}
		fmt.Println(filepath.Clean(combinedPath))
	}

	fmt.Printf("%dx%d image, %.3fs: %d events, %d raster spikes, %d plotted\n",
		out.Width, out.Height, out.Duration, out.Events, out.Raster, out.Plotted())
	return 0
}
