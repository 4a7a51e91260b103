package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"layeh.com/gopus"
)

// Opus always runs at 48 kHz internally; voice notes arrive as OGG/Opus.
const (
	opusSampleRate = 48000

	// maxFrameSize is the largest possible Opus frame: 120 ms at 48 kHz.
	maxFrameSize = 5760
)

// ErrNotOgg is returned when the input does not start with an OGG capture pattern.
var ErrNotOgg = errors.New("audio: data is not an OGG stream")

// opusHead holds the fields of the OpusHead identification packet we care about.
type opusHead struct {
	channels int
	preSkip  int // samples (at 48 kHz) to discard from the start of the decoded stream
}

// OggOpusToWAV demuxes an OGG/Opus container, decodes the Opus packets, and
// returns a mono 16-bit WAV at targetRate. The OpusHead pre-skip priming
// samples are discarded and stereo streams are down-mixed before resampling.
func OggOpusToWAV(ogg []byte, targetRate int) ([]byte, error) {
	packets, err := extractOggPackets(ogg)
	if err != nil {
		return nil, err
	}
	if len(packets) < 2 {
		return nil, errors.New("audio: OGG stream missing Opus header packets")
	}

	head, err := parseOpusHead(packets[0])
	if err != nil {
		return nil, err
	}

	dec, err := gopus.NewDecoder(opusSampleRate, head.channels)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus decoder: %w", err)
	}

	// Packets 0 and 1 are OpusHead and OpusTags; audio starts at packet 2.
	var pcm []byte
	for _, pkt := range packets[2:] {
		if len(pkt) == 0 {
			continue
		}
		samples, err := dec.Decode(pkt, maxFrameSize, false)
		if err != nil {
			// A single corrupt packet should not discard the whole note.
			continue
		}
		pcm = append(pcm, int16sToBytes(samples)...)
	}
	if len(pcm) == 0 {
		return nil, errors.New("audio: no decodable Opus packets in stream")
	}

	if head.channels == 2 {
		pcm = StereoToMono(pcm)
	}
	pcm = trimSamples(pcm, head.preSkip)
	pcm = ResampleMono16(pcm, opusSampleRate, targetRate)

	return EncodeWAV(pcm, targetRate, 1), nil
}

// parseOpusHead validates and decodes the OpusHead identification packet.
func parseOpusHead(pkt []byte) (opusHead, error) {
	if len(pkt) < 19 || string(pkt[0:8]) != "OpusHead" {
		return opusHead{}, errors.New("audio: first OGG packet is not OpusHead")
	}
	head := opusHead{
		channels: int(pkt[9]),
		preSkip:  int(binary.LittleEndian.Uint16(pkt[10:12])),
	}
	if head.channels < 1 || head.channels > 2 {
		return opusHead{}, fmt.Errorf("audio: unsupported opus channel count %d", head.channels)
	}
	return head, nil
}

// extractOggPackets walks the OGG pages in data and reassembles the logical
// packets from their lacing segments. Packets may span page boundaries
// (continuation flag); CRC checksums are not verified since the container is
// re-downloaded on failure anyway.
func extractOggPackets(data []byte) ([][]byte, error) {
	var (
		packets [][]byte
		partial []byte
	)

	offset := 0
	for offset+27 <= len(data) {
		if string(data[offset:offset+4]) != "OggS" {
			if offset == 0 {
				return nil, ErrNotOgg
			}
			break
		}

		segCount := int(data[offset+26])
		headerEnd := offset + 27 + segCount
		if headerEnd > len(data) {
			return nil, errors.New("audio: truncated OGG page header")
		}
		lacing := data[offset+27 : headerEnd]

		body := headerEnd
		for _, l := range lacing {
			segLen := int(l)
			if body+segLen > len(data) {
				return nil, errors.New("audio: truncated OGG page body")
			}
			partial = append(partial, data[body:body+segLen]...)
			body += segLen

			// A lacing value below 255 terminates the current packet.
			if segLen < 255 {
				packets = append(packets, partial)
				partial = nil
			}
		}
		offset = body
	}

	if offset == 0 {
		return nil, ErrNotOgg
	}
	return packets, nil
}
