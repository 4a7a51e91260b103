// Package stt defines the speech-to-text provider contract for the
// voice-note ingestion pipeline.
package stt

import "context"

// Provider transcribes a complete recorded utterance. Streaming recognition
// is deliberately out of scope — exam answers arrive as finished voice notes.
type Provider interface {
	// Transcribe reads the WAV file at path and returns the recognised text.
	// language is a BCP-47 hint (e.g. "en"). An empty transcript with a nil
	// error means the backend recognised silence.
	Transcribe(ctx context.Context, path string, language string) (string, error)
}
