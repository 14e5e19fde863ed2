package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 in-process and resamples to 48 kHz. Speech clips
// are short, so the whole clip is decoded into memory.
type MP3Decoder struct{}

func (MP3Decoder) Decode(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3 decoder: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pcm := Resample(raw, dec.SampleRate(), SampleRate)
	return io.NopCloser(bytes.NewReader(pcm)), nil
}

// Resample converts interleaved stereo s16le PCM from srcRate to dstRate
// with linear interpolation.
func Resample(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return pcm
	}

	const frameLen = Channels * 2
	srcFrames := len(pcm) / frameLen
	if srcFrames == 0 {
		return nil
	}

	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	out := make([]byte, dstFrames*frameLen)
	step := float64(srcRate) / float64(dstRate)

	sample := func(frame, ch int) float64 {
		off := frame*frameLen + ch*2
		return float64(int16(binary.LittleEndian.Uint16(pcm[off:])))
	}

	for i := 0; i < dstFrames; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, srcFrames-1)

		for ch := 0; ch < Channels; ch++ {
			v := sample(idx, ch)*(1-frac) + sample(next, ch)*frac
			binary.LittleEndian.PutUint16(out[i*frameLen+ch*2:], uint16(int16(v)))
		}
	}
	return out
}
