// Package encode turns the stitched WAV track into the compressed,
// loudness-normalized delivery artifact and computes its playback duration.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	gowav "github.com/go-audio/wav"
	"github.com/lunareadings/narrator/internal/wave"
)

// ContentType of the delivery artifact produced by MP3.
const ContentType = "audio/mpeg"

// loudnormFilter targets streaming loudness (-16 LUFS) so readings play at
// a consistent volume regardless of the TTS engine's output level.
const loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

// MP3 encodes wavData to MP3 with loudness normalization by piping it
// through ffmpeg. bitrate defaults to 128k.
func MP3(ctx context.Context, wavData []byte, bitrate string) ([]byte, error) {
	if bitrate == "" {
		bitrate = "128k"
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", "wav", "-i", "pipe:0",
		"-af", loudnormFilter,
		"-codec:a", "libmp3lame", "-b:a", bitrate,
		"-f", "mp3", "pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(wavData)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("encode mp3: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.Bytes(), nil
}

// Duration computes the playback duration of a WAV buffer in seconds,
// rounded up, from its canonical format and data chunk length.
func Duration(wavData []byte) (int, error) {
	f, err := wave.ReadFormat(wavData)
	if err != nil {
		return 0, fmt.Errorf("compute duration: %w", err)
	}

	_, dataSize, err := wave.FindDataChunk(wavData)
	if err != nil {
		return 0, fmt.Errorf("compute duration: %w", err)
	}

	bytesPerSecond := int(f.SampleRate) * f.BytesPerFrame()
	if bytesPerSecond == 0 {
		return 0, fmt.Errorf("compute duration: zero byte rate in format %+v", f)
	}

	seconds := (dataSize + bytesPerSecond - 1) / bytesPerSecond

	// Cross-check against the wav decoder; a disagreement beyond rounding
	// means the container is inconsistent.
	decoder := gowav.NewDecoder(bytes.NewReader(wavData))
	if decoded, err := decoder.Duration(); err == nil {
		if diff := time.Duration(seconds)*time.Second - decoded; diff < -time.Second || diff > time.Second {
			slog.Warn(fmt.Sprintf("encode: computed duration %ds disagrees with decoded duration %s", seconds, decoded))
		}
	}

	return seconds, nil
}
