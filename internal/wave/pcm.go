package wave

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
)

// ToPCM16 converts a buffer holding 32-bit IEEE float samples to 16-bit
// integer PCM. Buffers that already hold 16-bit PCM are returned unchanged,
// making the conversion idempotent. Any other sample format is passed
// through with a warning since the TTS engine has never been observed to
// produce one.
func ToPCM16(buf []byte) ([]byte, error) {
	f, err := ReadFormat(buf)
	if err != nil {
		return nil, err
	}

	if f.AudioFormat == FormatPCM && f.BitsPerSample == 16 {
		return buf, nil
	}

	if f.AudioFormat != FormatIEEEFloat || f.BitsPerSample != 32 {
		slog.Warn(fmt.Sprintf("wave: unsupported sample format %d at %d bits per sample, passing buffer through unconverted", f.AudioFormat, f.BitsPerSample))
		return buf, nil
	}

	dataOffset, dataSize, err := FindDataChunk(buf)
	if err != nil {
		return nil, err
	}

	numSamples := dataSize / 4
	out := NewBuffer(Format{
		AudioFormat:   FormatPCM,
		NumChannels:   f.NumChannels,
		SampleRate:    f.SampleRate,
		BitsPerSample: 16,
	}, numSamples*2)

	for i := 0; i < numSamples; i++ {
		bits := binary.LittleEndian.Uint32(buf[dataOffset+i*4 : dataOffset+i*4+4])
		sample := float64(math.Float32frombits(bits))

		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}

		binary.LittleEndian.PutUint16(out[HeaderSize+i*2:HeaderSize+i*2+2], uint16(int16(math.Round(sample*32767))))
	}

	return out, nil
}
