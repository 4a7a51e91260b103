package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildOggPage assembles a single OGG page containing the given packets.
// Packets longer than 255 bytes get the multi-lacing treatment.
func buildOggPage(packets ...[]byte) []byte {
	var lacing []byte
	var body []byte
	for _, pkt := range packets {
		rest := pkt
		for len(rest) >= 255 {
			lacing = append(lacing, 255)
			rest = rest[255:]
		}
		lacing = append(lacing, byte(len(rest)))
		body = append(body, pkt...)
	}

	page := make([]byte, 0, 27+len(lacing)+len(body))
	page = append(page, []byte("OggS")...)
	page = append(page, make([]byte, 22)...) // version, flags, granule, serial, seq, crc
	page = append(page, byte(len(lacing)))
	page = append(page, lacing...)
	page = append(page, body...)
	return page
}

func TestExtractOggPackets(t *testing.T) {
	p1 := []byte("OpusHead........")
	p2 := []byte("OpusTags")
	p3 := bytes.Repeat([]byte{0xAB}, 300) // forces a 255 + 45 lacing split

	data := append(buildOggPage(p1, p2), buildOggPage(p3)...)

	packets, err := extractOggPackets(data)
	if err != nil {
		t.Fatalf("extractOggPackets: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("got %d packets, want 3", len(packets))
	}
	if !bytes.Equal(packets[0], p1) || !bytes.Equal(packets[1], p2) || !bytes.Equal(packets[2], p3) {
		t.Fatal("packet payloads do not match input")
	}
}

func TestExtractOggPacketsRejectsNonOgg(t *testing.T) {
	if _, err := extractOggPackets([]byte("definitely not an ogg stream")); err != ErrNotOgg {
		t.Fatalf("err = %v, want ErrNotOgg", err)
	}
}

func TestExtractOggPacketsTruncatedBody(t *testing.T) {
	page := buildOggPage([]byte("hello"))
	if _, err := extractOggPackets(page[:len(page)-2]); err == nil {
		t.Fatal("expected error for truncated page body")
	}
}

func TestParseOpusHead(t *testing.T) {
	pkt := make([]byte, 19)
	copy(pkt, "OpusHead")
	pkt[8] = 1 // version
	pkt[9] = 2 // channels
	binary.LittleEndian.PutUint16(pkt[10:12], 312)

	head, err := parseOpusHead(pkt)
	if err != nil {
		t.Fatalf("parseOpusHead: %v", err)
	}
	if head.channels != 2 {
		t.Fatalf("channels = %d, want 2", head.channels)
	}
	if head.preSkip != 312 {
		t.Fatalf("preSkip = %d, want 312", head.preSkip)
	}
}

func TestParseOpusHeadRejectsBadMagic(t *testing.T) {
	if _, err := parseOpusHead([]byte("NotOpusHead........")); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseOpusHeadRejectsChannelCount(t *testing.T) {
	pkt := make([]byte, 19)
	copy(pkt, "OpusHead")
	pkt[9] = 6
	if _, err := parseOpusHead(pkt); err == nil {
		t.Fatal("expected error for unsupported channel count")
	}
}

func TestOggOpusToWAVRejectsGarbage(t *testing.T) {
	if _, err := OggOpusToWAV([]byte("not audio at all"), 16000); err == nil {
		t.Fatal("expected error for non-OGG input")
	}
}
