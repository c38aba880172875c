package wave

import (
	"fmt"
	"log/slog"
	"math"
)

// Concatenate joins the ordered per-segment buffers into one continuous WAV
// buffer. Every input is normalized to 16-bit PCM first. The format of the
// first buffer becomes the canonical output format; later buffers announcing
// a different format are logged but not resampled.
//
// With fadeMs > 0 each segment boundary is blended over an equal-power
// crossfade window: the cos/sin quarter-wave gains preserve constant
// perceived energy across the splice, where a linear fade would dip in
// volume at every boundary. fadeMs = 0 collapses to pure concatenation.
func Concatenate(buffers [][]byte, fadeMs int) ([]byte, error) {
	if len(buffers) == 0 {
		return nil, fmt.Errorf("concatenate: no buffers provided")
	}

	normalized := make([][]byte, len(buffers))

	for i, buf := range buffers {
		b, err := ToPCM16(buf)
		if err != nil {
			return nil, fmt.Errorf("concatenate: normalize segment %d: %w", i, err)
		}

		normalized[i] = b
	}

	canonical, err := ReadFormat(normalized[0])
	if err != nil {
		return nil, fmt.Errorf("concatenate: read canonical format: %w", err)
	}

	if canonical.BytesPerFrame() == 0 {
		return nil, fmt.Errorf("concatenate: %w: format %+v has a zero-byte sample frame", ErrMalformed, canonical)
	}

	type region struct {
		offset int
		size   int
	}

	regions := make([]region, len(normalized))

	for i, buf := range normalized {
		if i > 0 {
			f, err := ReadFormat(buf)
			if err != nil {
				return nil, fmt.Errorf("concatenate: read format of segment %d: %w", i, err)
			}

			if f != canonical {
				slog.Warn(fmt.Sprintf("wave: segment %d format %+v does not match canonical format %+v, output may play incorrectly for this segment", i, f, canonical))
			}
		}

		offset, size, err := FindDataChunk(buf)
		if err != nil {
			return nil, fmt.Errorf("concatenate: locate sample data of segment %d: %w", i, err)
		}

		regions[i] = region{offset: offset, size: size}
	}

	bytesPerFrame := canonical.BytesPerFrame()
	fadeBytes := int(canonical.SampleRate) * fadeMs / 1000 * bytesPerFrame

	// Precompute the overlap removed at each boundary so the output buffer
	// can be allocated at its exact final size.
	overlaps := make([]int, len(regions))
	total := regions[0].size

	for i := 1; i < len(regions); i++ {
		overlap := fadeBytes
		if regions[i].size < overlap {
			overlap = regions[i].size
		}
		if regions[i-1].size < overlap {
			overlap = regions[i-1].size
		}

		overlap -= overlap % bytesPerFrame

		if overlap < bytesPerFrame || canonical.BitsPerSample != 16 {
			overlap = 0
		}

		overlaps[i] = overlap
		total += regions[i].size - overlap
	}

	out := NewBuffer(canonical, total)
	w := HeaderSize

	copy(out[w:], normalized[0][regions[0].offset:regions[0].offset+regions[0].size])
	w += regions[0].size

	for i := 1; i < len(regions); i++ {
		data := normalized[i][regions[i].offset : regions[i].offset+regions[i].size]
		overlap := overlaps[i]

		if overlap > 0 {
			blend(out[w-overlap:w], data[:overlap])
		}

		copy(out[w:], data[overlap:])
		w += len(data) - overlap
	}

	return out, nil
}

// blend mixes the head of the next segment into the tail of the already
// written output in place, using equal-power gains over the overlap window.
func blend(tail, head []byte) {
	n := len(tail) / 2

	for j := 0; j < n; j++ {
		t := float64(j) / float64(n)
		gainPrev := math.Cos(t * math.Pi / 2)
		gainCurr := math.Sin(t * math.Pi / 2)

		prev := int16(uint16(tail[j*2]) | uint16(tail[j*2+1])<<8)
		curr := int16(uint16(head[j*2]) | uint16(head[j*2+1])<<8)

		mixed := math.Round(float64(prev)*gainPrev + float64(curr)*gainCurr)
		if mixed > math.MaxInt16 {
			mixed = math.MaxInt16
		} else if mixed < math.MinInt16 {
			mixed = math.MinInt16
		}

		v := uint16(int16(mixed))
		tail[j*2] = byte(v)
		tail[j*2+1] = byte(v >> 8)
	}
}
