// Package voice turns platform voice notes into text: download the OGG/Opus
// file, transcode it to WAV, and run speech recognition. All intermediate
// files are temporary and removed on every path.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/speakingzone/examiner/internal/observe"
	"github.com/speakingzone/examiner/pkg/audio"
	"github.com/speakingzone/examiner/pkg/provider/stt"
)

// whisperSampleRate is the input rate the transcription backend prefers.
const whisperSampleRate = 16000

// Fetcher downloads a platform file to a local path.
type Fetcher interface {
	Download(ctx context.Context, fileID, destPath string) error
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithLanguage sets the recognition language hint. Default: "en".
func WithLanguage(lang string) Option {
	return func(p *Pipeline) { p.language = lang }
}

// WithTranscoder replaces the OGG→WAV conversion, for tests that feed
// synthetic audio.
func WithTranscoder(fn func(ogg []byte) ([]byte, error)) Option {
	return func(p *Pipeline) { p.transcode = fn }
}

// Pipeline converts one voice note at a time; it is stateless and safe for
// concurrent use.
type Pipeline struct {
	fetcher   Fetcher
	stt       stt.Provider
	metrics   *observe.Metrics
	language  string
	transcode func(ogg []byte) ([]byte, error)
}

// New creates a voice pipeline.
func New(f Fetcher, sp stt.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  f,
		stt:      sp,
		metrics:  observe.DefaultMetrics(),
		language: "en",
		transcode: func(ogg []byte) ([]byte, error) {
			return audio.OggOpusToWAV(ogg, whisperSampleRate)
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process downloads, transcodes, and transcribes one voice note. The
// returned transcript is trimmed; empty with nil error means the recording
// contained no recognisable speech.
func (p *Pipeline) Process(ctx context.Context, fileID string) (string, error) {
	oggPath, err := tempFile("voice-*.ogg")
	if err != nil {
		return "", err
	}
	defer removeQuiet(oggPath)

	if err := p.fetcher.Download(ctx, fileID, oggPath); err != nil {
		return "", fmt.Errorf("voice: download %s: %w", fileID, err)
	}

	ogg, err := os.ReadFile(oggPath)
	if err != nil {
		return "", fmt.Errorf("voice: read download: %w", err)
	}

	wav, err := p.transcode(ogg)
	if err != nil {
		return "", fmt.Errorf("voice: transcode: %w", err)
	}

	wavPath, err := tempFile("voice-*.wav")
	if err != nil {
		return "", err
	}
	defer removeQuiet(wavPath)

	if err := os.WriteFile(wavPath, wav, 0o600); err != nil {
		return "", fmt.Errorf("voice: write wav: %w", err)
	}

	start := time.Now()
	text, err := p.stt.Transcribe(ctx, wavPath, p.language)
	p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, "whisper", "stt")
		return "", fmt.Errorf("voice: transcribe: %w", err)
	}
	p.metrics.RecordProviderRequest(ctx, "whisper", "stt", "ok")

	return strings.TrimSpace(text), nil
}

// tempFile creates and closes an empty temp file, returning its path.
func tempFile(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("voice: create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		removeQuiet(path)
		return "", fmt.Errorf("voice: close temp file: %w", err)
	}
	return path, nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("temp file cleanup failed", "path", path, "error", err)
	}
}
