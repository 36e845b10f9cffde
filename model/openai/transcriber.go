package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
)

// TranscriberOptions configure the Whisper transcriber.
type TranscriberOptions struct {
	Model    string
	Language string
}

// Transcriber turns recorded speech into text using the Audio Transcriptions API.
type Transcriber struct {
	client *openai.Client
	opts   TranscriberOptions
}

// NewTranscriber creates a Transcriber sharing the given client.
func NewTranscriber(client *openai.Client, optFns ...func(o *TranscriberOptions)) *Transcriber {
	opts := TranscriberOptions{Model: openai.AudioModelWhisper1}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Transcriber{client: client, opts: opts}
}

// Client returns the underlying SDK client of m, for sharing with a Transcriber.
func (m *Model) Client() *openai.Client { return m.client }

// Transcribe uploads audio and returns the recognised text. filename is used
// by the API to detect the container format (e.g. "input.wav").
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, contentType(filename)),
		Model: t.opts.Model,
	}

	if t.opts.Language != "" {
		params.Language = openai.String(t.opts.Language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}

	return "application/octet-stream"
}
