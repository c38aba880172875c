// Package synth drives a whole narration job: it fetches and prepares the
// text, segments it, synthesizes each segment through the remote TTS
// engine, stitches the per-segment audio into one track and encodes the
// delivery artifact. A job either yields one complete, correctly ordered
// artifact or fails as a whole; a truncated reading is never delivered.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lunareadings/narrator/internal/encode"
	"github.com/lunareadings/narrator/internal/model"
	"github.com/lunareadings/narrator/internal/preprocess"
	"github.com/lunareadings/narrator/internal/retry"
	"github.com/lunareadings/narrator/internal/segment"
	"github.com/lunareadings/narrator/internal/tts"
	"github.com/lunareadings/narrator/internal/wave"
)

// Engine is the remote TTS collaborator, one call per text segment.
type Engine interface {
	Synthesize(ctx context.Context, req tts.Request) ([]byte, error)
}

// EncodeFunc converts the stitched WAV into the delivery format.
type EncodeFunc func(ctx context.Context, wavData []byte) ([]byte, error)

const (
	// hardMaxChunkLen caps the per-segment character budget regardless of
	// configuration. Chunks past this budget make the engine truncate the
	// audio or hallucinate garbled speech.
	hardMaxChunkLen = 1200

	defaultChunkLen    = 800
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

type Synthesizer struct {
	Engine Engine

	// MaxChunkLen is the per-segment character budget. It is clamped to a
	// hard ceiling independent of any configured override.
	MaxChunkLen int
	// FadeMs blends segment boundaries over an equal-power crossfade
	// window of this many milliseconds; 0 concatenates directly.
	FadeMs int

	MaxAttempts int
	RetryDelay  time.Duration
	// RequestDelay is the pause between sequential engine calls. The
	// engine enforces a low per-minute rate limit; pacing the calls trades
	// wall-clock time for not getting throttled.
	RequestDelay time.Duration
	// Concurrency > 1 dispatches that many engine calls at once. Results
	// are still stitched in segment order. Sequential dispatch is the
	// default and recommended mode.
	Concurrency int

	IntroTemplate string

	// Encode and ContentType select the delivery format. They default to
	// MP3 encoding via ffmpeg.
	Encode      EncodeFunc
	ContentType string
	Bitrate     string
}

// Run synthesizes one job from narration text to delivery artifact.
func (s *Synthesizer) Run(ctx context.Context, job model.Job) (model.Result, error) {
	runID := job.ID
	if runID == "" {
		runID = uuid.NewString()
	}

	text, err := s.fetchText(job)
	if err != nil {
		return model.Result{}, fmt.Errorf("job %s: %w", runID, err)
	}

	text = preprocess.Clean(text)
	text = preprocess.DedupeSentences(text)
	text = preprocess.Intro(job.Meta, s.IntroTemplate) + " " + text

	segments := segment.Split(text, s.chunkBudget(), segment.Options{})

	slog.Info(fmt.Sprintf("job %s: synthesizing %d segments from %d characters of narration", runID, len(segments), len(text)))

	buffers, err := s.synthesize(ctx, segments, job.Voice)
	if err != nil {
		return model.Result{}, fmt.Errorf("job %s: %w", runID, err)
	}

	stitched, err := wave.Concatenate(buffers, s.FadeMs)
	if err != nil {
		return model.Result{}, fmt.Errorf("job %s: stitch segments: %w", runID, err)
	}

	duration, err := encode.Duration(stitched)
	if err != nil {
		return model.Result{}, fmt.Errorf("job %s: %w", runID, err)
	}

	encodeFn := s.Encode
	contentType := s.ContentType
	if encodeFn == nil {
		encodeFn = func(ctx context.Context, wavData []byte) ([]byte, error) {
			return encode.MP3(ctx, wavData, s.Bitrate)
		}
		contentType = encode.ContentType
	}

	audio, err := encodeFn(ctx, stitched)
	if err != nil {
		return model.Result{}, fmt.Errorf("job %s: encode delivery audio: %w", runID, err)
	}

	slog.Info(fmt.Sprintf("job %s: produced %d bytes of %s audio, %ds playback time", runID, len(audio), contentType, duration))

	return model.Result{
		RunID:       runID,
		Audio:       audio,
		ContentType: contentType,
		Chunks:      len(segments),
		Duration:    duration,
		Size:        len(audio),
	}, nil
}

func (s *Synthesizer) fetchText(job model.Job) (string, error) {
	if job.Text != "" {
		return job.Text, nil
	}

	if job.TextFile != "" {
		b, err := os.ReadFile(job.TextFile)
		if err != nil {
			return "", fmt.Errorf("read narration text: %w", err)
		}

		if len(b) > 0 {
			return string(b), nil
		}
	}

	return "", errors.New("job has no narration text")
}

func (s *Synthesizer) chunkBudget() int {
	return ChunkBudget(s.MaxChunkLen)
}

// ChunkBudget clamps a configured per-segment character budget to the hard
// ceiling, falling back to the default for non-positive values. Tools that
// preview segmentation must use this so they split exactly like a real run.
func ChunkBudget(budget int) int {
	if budget <= 0 {
		budget = defaultChunkLen
	}
	if budget > hardMaxChunkLen {
		budget = hardMaxChunkLen
	}

	return budget
}

// synthesize produces one audio buffer per segment, in segment order.
func (s *Synthesizer) synthesize(ctx context.Context, segments []string, voice model.VoiceSpec) ([][]byte, error) {
	policy := retry.Policy{
		MaxAttempts: s.MaxAttempts,
		Classify:    retryable,
		DelayFor:    retry.ExponentialDelay(s.retryDelay()),
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultMaxAttempts
	}

	buffers := make([][]byte, len(segments))

	synthesizeOne := func(ctx context.Context, i int) error {
		err := retry.Do(ctx, policy, func(ctx context.Context) error {
			data, err := s.Engine.Synthesize(ctx, tts.Request{Text: segments[i], Voice: voice})
			if err != nil {
				return err
			}

			buffers[i] = data

			return nil
		})
		if err != nil {
			return fmt.Errorf("synthesize segment %d of %d: %w", i+1, len(segments), err)
		}

		return nil
	}

	if s.Concurrency > 1 {
		// Bounded concurrent dispatch; buffers is indexed by segment, so
		// completion order cannot reorder the stitch input.
		grp, grpCtx := errgroup.WithContext(ctx)
		grp.SetLimit(s.Concurrency)

		for i := range segments {
			grp.Go(func() error {
				return synthesizeOne(grpCtx, i)
			})
		}

		return buffers, grp.Wait()
	}

	for i := range segments {
		if i > 0 && s.RequestDelay > 0 {
			if err := sleep(ctx, s.RequestDelay); err != nil {
				return nil, err
			}
		}

		if err := synthesizeOne(ctx, i); err != nil {
			return nil, err
		}
	}

	return buffers, nil
}

func (s *Synthesizer) retryDelay() time.Duration {
	if s.RetryDelay > 0 {
		return s.RetryDelay
	}

	return defaultRetryDelay
}

// retryable classifies engine failures: authentication and malformed
// requests cannot succeed on retry, while rate limits, timeouts and
// transport hiccups are worth another attempt.
func retryable(err error) bool {
	var ttsErr *tts.Error
	if errors.As(err, &ttsErr) {
		return ttsErr.Retryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
