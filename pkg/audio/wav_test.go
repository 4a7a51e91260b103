package audio

import (
	"bytes"
	"testing"
)

func TestEncodeWAVRoundTrip(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0x34, 0x12}
	wav := EncodeWAV(pcm, 16000, 1)

	info, err := ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if info.SampleRate != 16000 {
		t.Fatalf("SampleRate = %d, want 16000", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Fatalf("Channels = %d, want 1", info.Channels)
	}
	if !bytes.Equal(wav[info.DataOffset:], pcm) {
		t.Fatalf("payload mismatch: got %v, want %v", wav[info.DataOffset:], pcm)
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"short":      []byte("RIFF"),
		"no riff":    bytes.Repeat([]byte{0}, 64),
		"no wave id": append([]byte("RIFFxxxxJUNK"), bytes.Repeat([]byte{0}, 52)...),
	}
	for name, data := range cases {
		if _, err := ParseWAV(data); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestStereoToMonoAverages(t *testing.T) {
	// One stereo frame: L=100, R=300 → mono 200.
	pcm := int16sToBytes([]int16{100, 300})
	mono := StereoToMono(pcm)
	if len(mono) != 2 {
		t.Fatalf("len = %d, want 2", len(mono))
	}
	got := int16(mono[0]) | int16(mono[1])<<8
	if got != 200 {
		t.Fatalf("sample = %d, want 200", got)
	}
}

func TestResampleMono16Halves(t *testing.T) {
	src := make([]byte, 480*2) // 10 ms at 48 kHz
	out := ResampleMono16(src, 48000, 16000)
	if len(out) != 160*2 {
		t.Fatalf("len = %d, want %d", len(out), 160*2)
	}
}

func TestResampleMono16SameRateNoop(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	out := ResampleMono16(src, 16000, 16000)
	if !bytes.Equal(out, src) {
		t.Fatal("same-rate resample must return input unchanged")
	}
}

func TestTrimSamples(t *testing.T) {
	pcm := int16sToBytes([]int16{1, 2, 3, 4})
	got := trimSamples(pcm, 2)
	want := int16sToBytes([]int16{3, 4})
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if out := trimSamples(pcm, 100); out != nil {
		t.Fatalf("over-trim should return nil, got %v", out)
	}
}
