// Package voice converts inbound voice messages to text through an
// OpenAI-compatible Whisper endpoint.
package voice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"supportagent/config"
)

// Transcriber converts audio bytes to text. The mime hint helps the backend
// pick a decoder; implementations may ignore it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error)
}

// TranscriptionError reports unsupported or corrupt audio input. The user
// gets told transcription failed; the turn never reaches the LLM.
type TranscriptionError struct {
	Cause error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("could not transcribe audio: %v", e.Cause)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}

// WhisperTranscriber talks to an OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	client openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber from the voice configuration.
func NewWhisperTranscriber(cfg config.VoiceConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("voice transcription requires an API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &WhisperTranscriber{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Transcribe sends the audio to the Whisper endpoint and returns the text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error) {
	if len(audio) == 0 {
		return "", &TranscriptionError{Cause: fmt.Errorf("empty audio payload")}
	}

	filename := filenameForMime(mimeHint)

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(t.model),
		File:  openai.File(bytes.NewReader(audio), filename, mimeHint),
	})
	if err != nil {
		return "", &TranscriptionError{Cause: err}
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[voice] transcribed %d bytes (%s) to %d chars",
			len(audio), mimeHint, len(resp.Text))
	}

	return resp.Text, nil
}

// filenameForMime picks a filename extension the endpoint will accept.
// WhatsApp voice notes arrive as ogg/opus.
func filenameForMime(mimeHint string) string {
	switch mimeHint {
	case "audio/ogg", "audio/opus", "audio/ogg; codecs=opus":
		return "voice.ogg"
	case "audio/mpeg", "audio/mp3":
		return "voice.mp3"
	case "audio/mp4", "audio/m4a":
		return "voice.m4a"
	case "audio/wav", "audio/x-wav":
		return "voice.wav"
	case "audio/webm":
		return "voice.webm"
	default:
		return "voice.ogg"
	}
}
