package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lunareadings/narrator/internal/cli"
	"github.com/lunareadings/narrator/internal/model"
	"github.com/lunareadings/narrator/internal/preprocess"
	"github.com/lunareadings/narrator/internal/segment"
	"github.com/lunareadings/narrator/internal/synth"
	"github.com/lunareadings/narrator/internal/tts"
	"github.com/lunareadings/narrator/pkg/config"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Default()
	configFlag := &config.Flag{Config: &cfg}

	var (
		inputFile   string
		outputFile  string
		subjects    string
		readingType string
		dryRun      bool
	)

	flags := flag.NewFlagSet("narrator", flag.ExitOnError)
	flags.Var(configFlag, "config", "path to the configuration file")
	flags.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "URL pointing to the TTS server")
	flags.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key for the TTS server")
	flags.StringVar(&cfg.Model, "model", cfg.Model, "name of the TTS model to use")
	flags.StringVar(&cfg.Voice, "voice", cfg.Voice, "name of the preset voice to use")
	flags.StringVar(&cfg.VoiceSampleURL, "voice-sample-url", cfg.VoiceSampleURL, "URL of a reference audio sample for voice cloning")
	flags.Float64Var(&cfg.Speed, "speed", cfg.Speed, "speech speed factor")
	flags.IntVar(&cfg.MaxChunkLen, "max-chunk-len", cfg.MaxChunkLen, "per-segment character budget")
	flags.IntVar(&cfg.FadeMs, "fade-ms", cfg.FadeMs, "crossfade window at segment boundaries in milliseconds")
	flags.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "attempts per segment before the job fails")
	flags.IntVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-call timeout in seconds")
	flags.IntVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "base retry backoff in seconds")
	flags.IntVar(&cfg.RequestDelay, "request-delay", cfg.RequestDelay, "pause between sequential TTS calls in milliseconds")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "concurrent TTS calls (sequential when <= 1)")
	flags.StringVar(&cfg.Bitrate, "bitrate", cfg.Bitrate, "delivery audio bitrate")
	flags.StringVar(&cfg.IntroTemplate, "intro-template", cfg.IntroTemplate, "template for the spoken introduction line")
	flags.StringVar(&inputFile, "input", "", "narration text file (stdin when omitted)")
	flags.StringVar(&outputFile, "output", "reading.mp3", "output audio file")
	flags.StringVar(&subjects, "subjects", "", "comma-separated subject name(s) for the introduction")
	flags.StringVar(&readingType, "reading-type", "", "reading type spoken in the introduction")
	flags.BoolVar(&dryRun, "dry-run", false, "print the text segments instead of synthesizing them")

	cli.ParseFlagsWithEnvVars(flags, "NARRATOR_")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, cfg, inputFile, outputFile, subjects, readingType, dryRun)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Configuration, inputFile, outputFile, subjects, readingType string, dryRun bool) error {
	job := model.Job{
		TextFile: inputFile,
		Voice: model.VoiceSpec{
			Name:      cfg.Voice,
			SampleURL: cfg.VoiceSampleURL,
			Speed:     cfg.Speed,
		},
		Meta: model.Metadata{
			Subjects:    splitSubjects(subjects),
			ReadingType: readingType,
			GeneratedAt: time.Now(),
		},
	}

	if inputFile == "" {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read narration text from stdin: %w", err)
		}

		job.Text = string(text)
	}

	if dryRun {
		return printSegments(job, cfg)
	}

	synthesizer := &synth.Synthesizer{
		Engine: &tts.Client{
			URL:     cfg.ServerURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Client:  &http.Client{},
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		MaxChunkLen:   cfg.MaxChunkLen,
		FadeMs:        cfg.FadeMs,
		MaxAttempts:   cfg.MaxAttempts,
		RetryDelay:    time.Duration(cfg.RetryDelay) * time.Second,
		RequestDelay:  time.Duration(cfg.RequestDelay) * time.Millisecond,
		Concurrency:   cfg.Concurrency,
		IntroTemplate: cfg.IntroTemplate,
		Bitrate:       cfg.Bitrate,
	}

	result, err := synthesizer.Run(ctx, job)
	if err != nil {
		return err
	}

	err = os.WriteFile(outputFile, result.Audio, 0o644)
	if err != nil {
		return fmt.Errorf("write output audio: %w", err)
	}

	slog.Info(fmt.Sprintf("wrote %s: %d bytes, %d segments, %ds playback time", outputFile, result.Size, result.Chunks, result.Duration))

	return nil
}

func printSegments(job model.Job, cfg config.Configuration) error {
	text := job.Text

	if text == "" && job.TextFile != "" {
		b, err := os.ReadFile(job.TextFile)
		if err != nil {
			return fmt.Errorf("read narration text: %w", err)
		}

		text = string(b)
	}

	text = preprocess.Clean(text)
	text = preprocess.DedupeSentences(text)
	text = preprocess.Intro(job.Meta, cfg.IntroTemplate) + " " + text

	for i, seg := range segment.Split(text, synth.ChunkBudget(cfg.MaxChunkLen), segment.Options{}) {
		fmt.Printf("--- segment %d (%d chars)\n%s\n", i+1, len(seg), seg)
	}

	return nil
}

func splitSubjects(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}
