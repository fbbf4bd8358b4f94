package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned when data does not carry a RIFF/WAVE header
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// PCM is decoded 16-bit little-endian interleaved audio
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func ConvertPCMToWAV(pcmData []byte, channels int, sampleRate int) ([]byte, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid format: %d channels at %d Hz", channels, sampleRate)
	}

	var buffer bytes.Buffer
	buffer.Grow(44 + len(pcmData))

	// Write WAV header
	binary.Write(&buffer, binary.LittleEndian, []byte("RIFF"))
	binary.Write(&buffer, binary.LittleEndian, uint32(len(pcmData)+36))
	binary.Write(&buffer, binary.LittleEndian, []byte("WAVE"))

	// "fmt " chunk
	binary.Write(&buffer, binary.LittleEndian, []byte("fmt "))
	binary.Write(&buffer, binary.LittleEndian, uint32(16))
	binary.Write(&buffer, binary.LittleEndian, uint16(1))
	binary.Write(&buffer, binary.LittleEndian, uint16(channels))
	binary.Write(&buffer, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buffer, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buffer, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buffer, binary.LittleEndian, uint16(16))

	// "data" chunk
	binary.Write(&buffer, binary.LittleEndian, []byte("data"))
	binary.Write(&buffer, binary.LittleEndian, uint32(len(pcmData)))
	buffer.Write(pcmData)

	return buffer.Bytes(), nil
}

// Encode wraps interleaved samples in a WAV container
func Encode(samples []int16, channels int, sampleRate int) ([]byte, error) {
	return ConvertPCMToWAV(SamplesToBytes(samples), channels, sampleRate)
}

// Decode parses a PCM16 WAV stream. Unknown chunks are skipped.
func Decode(data []byte) (*PCM, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		pcm       PCM
		haveFmt   bool
		bitsPer   uint16
		audioType uint16
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, fmt.Errorf("truncated fmt chunk")
			}
			audioType = binary.LittleEndian.Uint16(data[body : body+2])
			pcm.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPer = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			if audioType != 1 && audioType != 0xFFFE {
				return nil, fmt.Errorf("unsupported WAV encoding %d", audioType)
			}
			if bitsPer != 16 {
				return nil, fmt.Errorf("unsupported bit depth %d", bitsPer)
			}
			end := body + size
			// streaming writers leave the size at 0xFFFFFFFF or 0
			if size == 0 || end > len(data) || end < body {
				end = len(data)
			}
			pcm.Samples = BytesToSamples(data[body:end])
			return &pcm, nil
		}

		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	return nil, fmt.Errorf("no data chunk found")
}

// SamplesToBytes serializes samples as little-endian PCM16
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// BytesToSamples reads little-endian PCM16. A trailing odd byte is dropped.
func BytesToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}
