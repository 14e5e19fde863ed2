package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hegedustibor/htgo-tts/voices"
	"github.com/keshon/voice-relay/pkg/retrylimit"
	"github.com/rs/zerolog"
)

const (
	googleEndpoint  = "https://translate.google.com/translate_tts"
	googleChunkSize = 200
)

var googleVoices = []Voice{
	{ID: voices.Korean, Label: "한국어"},
	{ID: voices.English, Label: "English (US)"},
	{ID: voices.EnglishUK, Label: "English (UK)"},
	{ID: voices.Japanese, Label: "日本語"},
	{ID: voices.Spanish, Label: "Español"},
	{ID: voices.French, Label: "Français"},
	{ID: voices.German, Label: "Deutsch"},
	{ID: voices.Portuguese, Label: "Português"},
}

// Google speaks through the public Google Translate TTS endpoint. Long text
// is split into chunks the endpoint accepts and the MP3 parts are joined.
type Google struct {
	endpoint string
	client   *http.Client
	limiter  *retrylimit.AdaptiveLimiter
	retry    retrylimit.RetryConfig
}

type GoogleOption func(*Google)

func WithGoogleEndpoint(u string) GoogleOption {
	return func(g *Google) { g.endpoint = u }
}

func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.client = c }
}

func WithGoogleRetry(cfg retrylimit.RetryConfig) GoogleOption {
	return func(g *Google) { g.retry = cfg }
}

func NewGoogle(log zerolog.Logger, opts ...GoogleOption) *Google {
	retry := retrylimit.DefaultRetryConfig()
	retry.Logger = log.With().Str("provider", "google").Logger()

	g := &Google{
		endpoint: googleEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:    retry,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string    { return "google" }
func (g *Google) Voices() []Voice { return append([]Voice(nil), googleVoices...) }

func (g *Google) Synthesize(ctx context.Context, req Request) (io.ReadCloser, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	voice, ok := FindVoice(googleVoices, req.Voice)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, req.Voice)
	}

	speed := 1.0
	if req.Rate > 0 {
		speed = clamp(req.Rate, 0.25, 1.0)
	}

	var buf bytes.Buffer
	for _, chunk := range splitChunks(text, googleChunkSize) {
		var part []byte
		err := retrylimit.WithRetryConfig(ctx, func() error {
			var err error
			part, err = g.fetch(ctx, chunk, voice.ID, speed)
			return err
		}, g.limiter, g.retry)
		if err != nil {
			return nil, fmt.Errorf("google tts: %w", err)
		}
		buf.Write(part)
	}

	return io.NopCloser(&buf), nil
}

func (g *Google) fetch(ctx context.Context, text, lang string, speed float64) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", lang)
	params.Set("total", "1")
	params.Set("idx", "0")
	params.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))
	params.Set("ttsspeed", strconv.FormatFloat(speed, 'f', 2, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, retrylimit.Fatal(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retrylimit.StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return io.ReadAll(resp.Body)
}

// splitChunks cuts text into pieces of at most size runes, preferring to
// break on whitespace.
func splitChunks(text string, size int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
