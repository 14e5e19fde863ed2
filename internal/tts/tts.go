// Package tts wraps the speech synthesis providers. A provider turns text
// into an encoded audio stream (MP3); decoding happens elsewhere.
package tts

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	ErrEmptyText    = errors.New("nothing to synthesize")
	ErrUnknownVoice = errors.New("unknown voice")
)

type Request struct {
	Text  string
	Voice string
	// Rate is a speed multiplier, 1.0 is normal speed.
	Rate float64
}

type Voice struct {
	ID    string
	Label string
}

// Synthesizer renders text to an encoded audio stream. The caller closes it.
type Synthesizer interface {
	Name() string
	Voices() []Voice
	Synthesize(ctx context.Context, req Request) (io.ReadCloser, error)
}

// FindVoice resolves id against voices, case-insensitively, with a language
// prefix fallback ("en-gb" matches "en" when no exact entry exists).
func FindVoice(voices []Voice, id string) (Voice, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Voice{}, false
	}
	for _, v := range voices {
		if strings.ToLower(v.ID) == id {
			return v, true
		}
	}
	if prefix, _, ok := strings.Cut(id, "-"); ok {
		return FindVoice(voices, prefix)
	}
	return Voice{}, false
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
