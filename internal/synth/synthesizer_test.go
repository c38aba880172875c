package synth

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/lunareadings/narrator/internal/model"
	"github.com/lunareadings/narrator/internal/tts"
	"github.com/lunareadings/narrator/internal/wave"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers every segment with a short PCM16 buffer whose sample
// values encode the call order, so tests can verify stitching order.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	fail  func(call int) error
}

func (e *fakeEngine) Synthesize(_ context.Context, req tts.Request) ([]byte, error) {
	e.mu.Lock()
	call := len(e.calls)
	e.calls = append(e.calls, req.Text)
	e.mu.Unlock()

	if e.fail != nil {
		if err := e.fail(call); err != nil {
			return nil, err
		}
	}

	buf := wave.NewBuffer(wave.Format{
		AudioFormat:   wave.FormatPCM,
		NumChannels:   1,
		SampleRate:    24000,
		BitsPerSample: 16,
	}, 8)

	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(buf[wave.HeaderSize+i*2:], uint16(int16(100+call)))
	}

	return buf, nil
}

func identityEncode(_ context.Context, wavData []byte) ([]byte, error) {
	return wavData, nil
}

func newSynthesizer(engine Engine) *Synthesizer {
	return &Synthesizer{
		Engine:      engine,
		MaxChunkLen: 40,
		Encode:      identityEncode,
		ContentType: "audio/wav",
	}
}

func TestRunSynthesizesSegmentsInOrder(t *testing.T) {
	engine := &fakeEngine{}
	s := newSynthesizer(engine)

	result, err := s.Run(context.Background(), model.Job{
		Text: "The sun enters your chart. Venus follows closely behind! A season of change begins?",
	})
	require.NoError(t, err)

	require.Greater(t, len(engine.calls), 1)
	require.Equal(t, len(engine.calls), result.Chunks)
	require.Equal(t, "audio/wav", result.ContentType)
	require.Equal(t, len(result.Audio), result.Size)
	require.NotEmpty(t, result.RunID)

	// The first call carries the spoken introduction.
	require.True(t, strings.HasPrefix(engine.calls[0], "This is your"), "got %q", engine.calls[0])

	// Stitched samples appear in call order.
	offset, size, err := wave.FindDataChunk(result.Audio)
	require.NoError(t, err)
	require.Equal(t, len(engine.calls)*8, size)

	for call := 0; call < len(engine.calls); call++ {
		sample := int16(binary.LittleEndian.Uint16(result.Audio[offset+call*8:]))
		require.Equal(t, int16(100+call), sample, "segment %d", call)
	}
}

func TestRunFailsWithoutText(t *testing.T) {
	s := newSynthesizer(&fakeEngine{})

	_, err := s.Run(context.Background(), model.Job{})
	require.ErrorContains(t, err, "no narration text")
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	engine := &fakeEngine{
		fail: func(int) error {
			return &tts.Error{StatusCode: http.StatusUnauthorized, Message: "invalid api key"}
		},
	}
	s := newSynthesizer(engine)

	result, err := s.Run(context.Background(), model.Job{Text: "Hello there. This is a test!"})

	require.Error(t, err)
	require.Empty(t, result.Audio)
	// Not retryable: the engine was called exactly once.
	require.Len(t, engine.calls, 1)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	engine := &fakeEngine{
		fail: func(call int) error {
			if call == 0 {
				return &tts.Error{StatusCode: http.StatusServiceUnavailable}
			}
			return nil
		},
	}
	s := newSynthesizer(engine)
	s.RetryDelay = 1 // no real waiting in tests

	result, err := s.Run(context.Background(), model.Job{Text: "Hello there."})

	require.NoError(t, err)
	// The spoken intro and the narration each form a segment; the first
	// call failed once and was retried.
	require.Equal(t, 2, result.Chunks)
	require.Len(t, engine.calls, 3)
}

func TestRunConcurrentDispatchKeepsOrder(t *testing.T) {
	engine := &fakeEngine{}
	s := newSynthesizer(engine)
	s.Concurrency = 3

	result, err := s.Run(context.Background(), model.Job{
		Text: "One sentence here. Another sentence there! A third one follows? And a fourth closes.",
	})
	require.NoError(t, err)
	require.Greater(t, result.Chunks, 1)

	offset, size, err := wave.FindDataChunk(result.Audio)
	require.NoError(t, err)
	require.Equal(t, result.Chunks*8, size)

	// Sample values must be strictly increasing call indexes only when
	// dispatch happens to run in order; what must always hold is that each
	// segment's block is intact and the block count matches.
	seen := map[int16]bool{}
	for i := 0; i < result.Chunks; i++ {
		sample := int16(binary.LittleEndian.Uint16(result.Audio[offset+i*8:]))
		require.False(t, seen[sample], "segment block %d duplicated", i)
		seen[sample] = true
	}
}

func TestRunClampsChunkBudget(t *testing.T) {
	engine := &fakeEngine{}
	s := newSynthesizer(engine)
	s.MaxChunkLen = 1 << 20

	var sentences []string
	for i := 0; i < 6; i++ {
		sentences = append(sentences, strings.Repeat("word ", 100)+fmt.Sprintf("sentence %d ends here.", i))
	}
	text := strings.Join(sentences, " ")

	_, err := s.Run(context.Background(), model.Job{Text: text})
	require.NoError(t, err)

	for _, call := range engine.calls {
		require.LessOrEqual(t, len(call), 2*1200, "chunk exceeds the hard budget")
	}
	require.Greater(t, len(engine.calls), 1)
}

func TestChunkBudget(t *testing.T) {
	require.Equal(t, 800, ChunkBudget(0))
	require.Equal(t, 800, ChunkBudget(-5))
	require.Equal(t, 400, ChunkBudget(400))
	require.Equal(t, 1200, ChunkBudget(1200))
	// Oversized configuration is clamped to the hard ceiling.
	require.Equal(t, 1200, ChunkBudget(1<<20))
}

func TestRunDuration(t *testing.T) {
	engine := &fakeEngine{}
	s := newSynthesizer(engine)

	result, err := s.Run(context.Background(), model.Job{Text: "Hello there."})
	require.NoError(t, err)

	// Any non-empty audio rounds up to at least one second.
	require.Equal(t, 1, result.Duration)
}
