package wave

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToPCM16Identity(t *testing.T) {
	buf := encodePCM16(t, []int{0, 1000, -1000, 32767, -32768}, 24000, 1)

	out, err := ToPCM16(buf)
	require.NoError(t, err)
	require.Equal(t, buf, out)
}

func TestToPCM16Idempotent(t *testing.T) {
	buf := encodeFloat32([]float32{0, 0.25, -0.25, 0.99}, 24000, 1)

	once, err := ToPCM16(buf)
	require.NoError(t, err)

	twice, err := ToPCM16(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestToPCM16FloatConversion(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 1.5, -2}
	buf := encodeFloat32(samples, 24000, 1)

	out, err := ToPCM16(buf)
	require.NoError(t, err)

	f, err := ReadFormat(out)
	require.NoError(t, err)
	require.Equal(t, uint16(FormatPCM), f.AudioFormat)
	require.Equal(t, uint16(16), f.BitsPerSample)
	require.Equal(t, uint32(24000), f.SampleRate)

	offset, size, err := FindDataChunk(out)
	require.NoError(t, err)
	require.Equal(t, len(samples)*2, size)

	for i, sample := range samples {
		clamped := math.Max(-1, math.Min(1, float64(sample)))
		expected := int16(math.Round(clamped * 32767))
		actual := int16(binary.LittleEndian.Uint16(out[offset+i*2 : offset+i*2+2]))
		require.InDelta(t, expected, actual, 1, "sample %d", i)
	}

	// Declared sizes must match the bytes actually written.
	require.Equal(t, uint32(len(out)-8), binary.LittleEndian.Uint32(out[4:8]))
	require.Equal(t, len(out), offset+size)
}

func TestToPCM16UnsupportedFormatPassesThrough(t *testing.T) {
	buf := NewBuffer(Format{
		AudioFormat:   FormatPCM,
		NumChannels:   1,
		SampleRate:    8000,
		BitsPerSample: 8,
	}, 16)

	out, err := ToPCM16(buf)
	require.NoError(t, err)
	require.Equal(t, buf, out)
}

func TestToPCM16Malformed(t *testing.T) {
	_, err := ToPCM16([]byte("garbage"))
	require.ErrorIs(t, err, ErrMalformed)
}
