// Package wave reads and writes RIFF/WAVE containers at the byte level.
// The per-segment buffers returned by the TTS engine are inspected,
// normalized to 16-bit integer PCM and concatenated here before the result
// is handed to the delivery encoder. Declared chunk sizes are kept bit-exact
// since standard decoders reject containers whose sizes do not match the
// bytes actually present.
package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Audio format codes from the fmt chunk.
const (
	FormatPCM       = 1 // linear integer PCM
	FormatIEEEFloat = 3 // 32-bit IEEE float samples
)

// HeaderSize is the size of the canonical 44-byte header this package
// writes: a RIFF preamble followed by a 16-byte fmt chunk and the data
// chunk header.
const HeaderSize = 44

var ErrMalformed = errors.New("malformed wav container")

// Format describes the sample encoding announced by a buffer's fmt chunk.
type Format struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// BytesPerFrame returns the size of one interleaved sample frame.
func (f Format) BytesPerFrame() int {
	return int(f.BitsPerSample) / 8 * int(f.NumChannels)
}

// findChunk scans the chunk sequence past the RIFF preamble for the chunk
// with the given ID and returns the offset and size of its payload.
// Chunk order varies by encoder, so a linear scan is required.
func findChunk(buf []byte, id string) (offset, size int, err error) {
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return 0, 0, fmt.Errorf("%w: missing RIFF/WAVE preamble", ErrMalformed)
	}

	pos := 12

	for pos+8 <= len(buf) {
		chunkID := string(buf[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))

		if chunkID == id {
			if pos+8+chunkSize > len(buf) {
				return 0, 0, fmt.Errorf("%w: %q chunk of %d bytes exceeds buffer", ErrMalformed, id, chunkSize)
			}

			return pos + 8, chunkSize, nil
		}

		pos += 8 + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are padded to even byte boundaries
		}
	}

	return 0, 0, fmt.Errorf("%w: no %q chunk found", ErrMalformed, id)
}

// FindDataChunk locates the raw interleaved sample bytes within buf.
func FindDataChunk(buf []byte) (offset, size int, err error) {
	return findChunk(buf, "data")
}

// ReadFormat parses the fmt chunk of buf.
func ReadFormat(buf []byte) (Format, error) {
	offset, size, err := findChunk(buf, "fmt ")
	if err != nil {
		return Format{}, err
	}

	if size < 16 {
		return Format{}, fmt.Errorf("%w: fmt chunk of %d bytes is too short", ErrMalformed, size)
	}

	return Format{
		AudioFormat:   binary.LittleEndian.Uint16(buf[offset : offset+2]),
		NumChannels:   binary.LittleEndian.Uint16(buf[offset+2 : offset+4]),
		SampleRate:    binary.LittleEndian.Uint32(buf[offset+4 : offset+8]),
		BitsPerSample: binary.LittleEndian.Uint16(buf[offset+14 : offset+16]),
	}, nil
}

// NewBuffer allocates a WAV buffer for dataSize bytes of sample data and
// writes a fresh header for the given format. The declared RIFF and data
// chunk sizes exactly match the allocated layout; the sample region
// buf[HeaderSize:] is zeroed.
func NewBuffer(f Format, dataSize int) []byte {
	buf := make([]byte, HeaderSize+dataSize)

	byteRate := f.SampleRate * uint32(f.NumChannels) * uint32(f.BitsPerSample) / 8
	blockAlign := uint16(f.BytesPerFrame())

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], f.AudioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], f.NumChannels)
	binary.LittleEndian.PutUint32(buf[24:28], f.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], f.BitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return buf
}
