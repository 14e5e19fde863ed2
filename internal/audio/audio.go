// Package audio converts encoded speech into the PCM layout Discord voice
// expects: 48 kHz, stereo, signed 16-bit little-endian.
package audio

import (
	"context"
	"io"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
	// FrameBytes is one 20ms PCM frame.
	FrameBytes = FrameSize * Channels * 2
)

// Decoder turns an encoded audio stream into 48 kHz stereo s16le PCM.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (io.ReadCloser, error)
}

// NewDecoder returns the decoder named by kind ("mp3" or "ffmpeg").
func NewDecoder(kind, ffmpegPath string) Decoder {
	if kind == "ffmpeg" {
		return &FFmpegDecoder{Path: ffmpegPath}
	}
	return MP3Decoder{}
}
