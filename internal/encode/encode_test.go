package encode

import (
	"testing"

	"github.com/lunareadings/narrator/internal/wave"
	"github.com/stretchr/testify/require"
)

func pcm16Format(sampleRate uint32, channels uint16) wave.Format {
	return wave.Format{
		AudioFormat:   wave.FormatPCM,
		NumChannels:   channels,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	}
}

func TestDuration(t *testing.T) {
	for _, tc := range []struct {
		name     string
		format   wave.Format
		dataSize int
		expected int
	}{
		{
			name:     "exactly one second mono",
			format:   pcm16Format(24000, 1),
			dataSize: 24000 * 2,
			expected: 1,
		},
		{
			name:     "partial second rounds up",
			format:   pcm16Format(24000, 1),
			dataSize: 24000*2 + 2,
			expected: 2,
		},
		{
			name:     "stereo halves the duration",
			format:   pcm16Format(24000, 2),
			dataSize: 24000 * 2 * 2,
			expected: 1,
		},
		{
			name:     "empty data",
			format:   pcm16Format(24000, 1),
			dataSize: 0,
			expected: 0,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := wave.NewBuffer(tc.format, tc.dataSize)

			seconds, err := Duration(buf)
			require.NoError(t, err)
			require.Equal(t, tc.expected, seconds)
		})
	}
}

func TestDurationMalformed(t *testing.T) {
	_, err := Duration([]byte("not wav"))
	require.ErrorIs(t, err, wave.ErrMalformed)
}
