package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// Narration clip format requested from the speech service
const (
	NarrationSampleRate    = 22050
	NarrationChannels      = 1
	NarrationBitsPerSample = 16
)

// WAVInfo describes the PCM stream of a RIFF/WAVE file
type WAVInfo struct {
	Format        uint16 // 1 = integer PCM
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataSize      int64 // bytes of sample data
}

// Duration returns the playback length of the sample data
func (w WAVInfo) Duration() time.Duration {
	frame := int64(w.Channels * w.BitsPerSample / 8)
	if frame == 0 || w.SampleRate == 0 {
		return 0
	}
	frames := w.DataSize / frame
	return time.Duration(frames) * time.Second / time.Duration(w.SampleRate)
}

// Matches reports whether the stream is integer PCM with the given layout
func (w WAVInfo) Matches(sampleRate, channels, bitsPerSample int) bool {
	return w.Format == 1 && w.SampleRate == sampleRate && w.Channels == channels && w.BitsPerSample == bitsPerSample
}

// Clip is a narration clip on disk, inspected
type Clip struct {
	WAVInfo
	Size   int64      // file size in bytes
	RMS    float64    // 0 for silence; only computed for 16-bit PCM
	Speech SpeechSpan // only computed for 16-bit PCM
}

// InspectClip reads a WAV file and returns its format and loudness
func InspectClip(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}

	info, payload, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	clip := &Clip{WAVInfo: *info, Size: int64(len(data))}
	if info.Format == 1 && info.BitsPerSample == 16 {
		samples, err := DecodePCM16(payload)
		if err != nil {
			return nil, err
		}
		clip.RMS = CalculateRMS(samples)
		clip.Speech = DetectSpeech(samples, info.SampleRate, info.Channels, DefaultVADConfig())
	}
	return clip, nil
}

// ParseWAVHeader parses the RIFF header and returns the stream description
func ParseWAVHeader(data []byte) (*WAVInfo, error) {
	info, _, err := parseWAV(data)
	return info, err
}

func parseWAV(data []byte) (*WAVInfo, []byte, error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("wav: file too short")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("wav: not a WAV file")
	}

	fmtOff, fmtSize, err := findChunk(data, "fmt ")
	if err != nil {
		return nil, nil, err
	}
	if fmtSize < 16 {
		return nil, nil, fmt.Errorf("wav: fmt chunk too short")
	}

	info := &WAVInfo{
		Format:        binary.LittleEndian.Uint16(data[fmtOff : fmtOff+2]),
		Channels:      int(binary.LittleEndian.Uint16(data[fmtOff+2 : fmtOff+4])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[fmtOff+4 : fmtOff+8])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[fmtOff+14 : fmtOff+16])),
	}

	dataOff, dataSize, err := findChunk(data, "data")
	if err != nil {
		return nil, nil, err
	}
	info.DataSize = int64(dataSize)
	return info, data[dataOff : dataOff+dataSize], nil
}

// findChunk returns the payload offset and size of the first chunk with the
// given ID. A size running past the end of the file is clamped, which covers
// streamed WAVs whose header was written before the length was known.
func findChunk(data []byte, id string) (int, int, error) {
	off := 12
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		payload := off + 8
		if size < 0 || payload+size > len(data) {
			size = len(data) - payload
		}
		if chunkID == id {
			return payload, size, nil
		}
		// chunks are word aligned
		off = payload + size + size%2
	}
	return 0, 0, fmt.Errorf("wav: %q chunk not found", id)
}

// DecodePCM16 converts little-endian 16-bit PCM bytes to samples
func DecodePCM16(pcmData []byte) ([]int16, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}

	samples := make([]int16, len(pcmData)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
	}
	return samples, nil
}

// EncodeWAV wraps 16-bit PCM samples in a canonical 44-byte RIFF header
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}
