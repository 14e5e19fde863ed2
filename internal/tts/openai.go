package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/keshon/voice-relay/pkg/retrylimit"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var openAIVoices = []Voice{
	{ID: string(openai.VoiceAlloy), Label: "Alloy"},
	{ID: string(openai.VoiceEcho), Label: "Echo"},
	{ID: string(openai.VoiceFable), Label: "Fable"},
	{ID: string(openai.VoiceOnyx), Label: "Onyx"},
	{ID: string(openai.VoiceNova), Label: "Nova"},
	{ID: string(openai.VoiceShimmer), Label: "Shimmer"},
}

// OpenAI speaks through the OpenAI audio/speech API.
type OpenAI struct {
	client *openai.Client
	model  string
	retry  retrylimit.RetryConfig
}

// NewOpenAI builds the provider. baseURL may be empty for the public API.
func NewOpenAI(apiKey, model, baseURL string, log zerolog.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}

	retry := retrylimit.DefaultRetryConfig()
	retry.Logger = log.With().Str("provider", "openai").Logger()

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		retry:  retry,
	}
}

func (o *OpenAI) Name() string    { return "openai" }
func (o *OpenAI) Voices() []Voice { return append([]Voice(nil), openAIVoices...) }

func (o *OpenAI) Synthesize(ctx context.Context, req Request) (io.ReadCloser, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	voice, ok := FindVoice(openAIVoices, req.Voice)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, req.Voice)
	}

	speechReq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice.ID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	if req.Rate > 0 {
		speechReq.Speed = clamp(req.Rate, 0.25, 4.0)
	}

	var stream io.ReadCloser
	err := retrylimit.WithRetryConfig(ctx, func() error {
		resp, err := o.client.CreateSpeech(ctx, speechReq)
		if err != nil {
			return classifyOpenAIError(err)
		}
		stream = resp
		return nil
	}, nil, o.retry)
	if err != nil {
		return nil, fmt.Errorf("openai tts: %w", err)
	}
	return stream, nil
}

// classifyOpenAIError maps client errors onto retrylimit.StatusError so the
// retry loop can tell throttling from bad input.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &retrylimit.StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &retrylimit.StatusError{Code: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}
