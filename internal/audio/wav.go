package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Output format of EncodeWAV. The header always declares this rate,
// whatever rate the input was captured at; samples are not resampled.
const (
	WAVSampleRate    = 44100
	WAVChannels      = 1
	WAVBitsPerSample = 16
	WAVHeaderSize    = 44
)

// WAVHeader is the canonical 44-byte RIFF/WAVE header for PCM data
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

func newWAVHeader(numSamples int) WAVHeader {
	dataSize := uint32(numSamples * WAVBitsPerSample / 8)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   WAVChannels,
		SampleRate:    WAVSampleRate,
		ByteRate:      WAVSampleRate * WAVChannels * WAVBitsPerSample / 8,
		BlockAlign:    WAVChannels * WAVBitsPerSample / 8,
		BitsPerSample: WAVBitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// EncodeWAV encodes the first channel of buf as mono 16-bit PCM WAV.
// The result is exactly 44 + 2*N bytes for N samples.
func EncodeWAV(buf *Buffer) ([]byte, error) {
	return EncodeWAVWith(buf, DownmixFirstChannel)
}

// EncodeWAVWith is EncodeWAV with an explicit downmix mode.
func EncodeWAVWith(buf *Buffer, mode DownmixMode) ([]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("cannot encode nil audio buffer")
	}
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", buf.SampleRate)
	}

	mono, err := Downmix(buf, mode)
	if err != nil {
		return nil, err
	}
	return EncodeSamples(mono)
}

// EncodeSamples writes float samples in [-1, 1] as a mono WAV file.
// Out-of-range values are clamped; scaling truncates toward zero.
func EncodeSamples(samples []float32) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+len(samples)*2))
	if err := binary.Write(out, binary.LittleEndian, newWAVHeader(len(samples))); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = FloatToPCM16(s)
	}
	if err := binary.Write(out, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return out.Bytes(), nil
}

// FloatToPCM16 clamps s to [-1, 1] and scales it by 0x7FFF.
func FloatToPCM16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 0x7FFF)
}

// DecodeWAV reads back 16-bit PCM samples and the declared sample rate
// from a canonical 44-byte-header WAV file.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, 0, err
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data[:WAVHeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if header.AudioFormat != 1 || header.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", header.AudioFormat, header.BitsPerSample)
	}

	payload := data[WAVHeaderSize:]
	if int(header.Subchunk2Size) < len(payload) {
		payload = payload[:header.Subchunk2Size]
	}
	samples := make([]int16, len(payload)/2)
	if err := binary.Read(bytes.NewReader(payload[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read audio data: %w", err)
	}

	return samples, int(header.SampleRate), nil
}

// ValidateWAV checks the RIFF, WAVE, fmt and data markers.
func ValidateWAV(data []byte) error {
	if len(data) < WAVHeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", WAVHeaderSize, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}
	return nil
}

// WAVDuration returns the playback length declared by a WAV file's header.
func WAVDuration(data []byte) (time.Duration, error) {
	if err := ValidateWAV(data); err != nil {
		return 0, err
	}
	byteRate := binary.LittleEndian.Uint32(data[28:32])
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if byteRate == 0 {
		return 0, fmt.Errorf("invalid WAV file: zero byte rate")
	}
	return time.Duration(float64(dataSize) / float64(byteRate) * float64(time.Second)), nil
}
