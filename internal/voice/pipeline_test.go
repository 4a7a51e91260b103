package voice

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

type stubFetcher struct {
	payload []byte
	err     error
	gotPath string
}

func (f *stubFetcher) Download(_ context.Context, _ string, destPath string) error {
	if f.err != nil {
		return f.err
	}
	f.gotPath = destPath
	return os.WriteFile(destPath, f.payload, 0o600)
}

type stubSTT struct {
	text    string
	err     error
	gotPath string
	gotLang string
	gotData []byte
}

func (s *stubSTT) Transcribe(_ context.Context, path string, language string) (string, error) {
	s.gotPath = path
	s.gotLang = language
	s.gotData, _ = os.ReadFile(path)
	return s.text, s.err
}

func passthroughTranscoder(ogg []byte) ([]byte, error) {
	return append([]byte("WAV:"), ogg...), nil
}

func TestProcess(t *testing.T) {
	f := &stubFetcher{payload: []byte("oggdata")}
	s := &stubSTT{text: "  hello there  "}
	p := New(f, s, WithTranscoder(passthroughTranscoder))

	got, err := p.Process(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("Process returned %v", err)
	}
	if got != "hello there" {
		t.Errorf("transcript = %q, want trimmed %q", got, "hello there")
	}
	if s.gotLang != "en" {
		t.Errorf("language = %q, want en", s.gotLang)
	}
	if string(s.gotData) != "WAV:oggdata" {
		t.Errorf("stt received %q, want transcoded payload", s.gotData)
	}

	// Both temp files must be gone.
	for _, path := range []string{f.gotPath, s.gotPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("temp file %s not cleaned up", path)
		}
	}
}

func TestProcessDownloadError(t *testing.T) {
	f := &stubFetcher{err: errors.New("network down")}
	s := &stubSTT{}
	p := New(f, s, WithTranscoder(passthroughTranscoder))

	_, err := p.Process(context.Background(), "file-1")
	if err == nil || !strings.Contains(err.Error(), "download") {
		t.Fatalf("err = %v, want download error", err)
	}
	if s.gotPath != "" {
		t.Error("stt called despite download failure")
	}
}

func TestProcessTranscodeError(t *testing.T) {
	f := &stubFetcher{payload: []byte("not really ogg")}
	s := &stubSTT{}
	p := New(f, s, WithTranscoder(func([]byte) ([]byte, error) {
		return nil, errors.New("bad container")
	}))

	_, err := p.Process(context.Background(), "file-1")
	if err == nil || !strings.Contains(err.Error(), "transcode") {
		t.Fatalf("err = %v, want transcode error", err)
	}
	if _, statErr := os.Stat(f.gotPath); !os.IsNotExist(statErr) {
		t.Errorf("ogg temp file %s not cleaned up", f.gotPath)
	}
}

func TestProcessTranscribeError(t *testing.T) {
	f := &stubFetcher{payload: []byte("ogg")}
	s := &stubSTT{err: errors.New("429")}
	p := New(f, s, WithTranscoder(passthroughTranscoder))

	_, err := p.Process(context.Background(), "file-1")
	if err == nil || !strings.Contains(err.Error(), "transcribe") {
		t.Fatalf("err = %v, want transcribe error", err)
	}
	if _, statErr := os.Stat(s.gotPath); !os.IsNotExist(statErr) {
		t.Errorf("wav temp file %s not cleaned up", s.gotPath)
	}
}

func TestProcessRejectsGarbageWithDefaultTranscoder(t *testing.T) {
	f := &stubFetcher{payload: []byte("definitely not an ogg stream")}
	s := &stubSTT{}
	p := New(f, s)

	_, err := p.Process(context.Background(), "file-1")
	if err == nil {
		t.Fatal("expected error for non-OGG payload")
	}
}
