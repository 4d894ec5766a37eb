package audio

import (
	"context"
	"fmt"
	"math"
)

// Buffer is decoded audio: one float32 slice per channel, values nominally in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// Len returns the number of samples in the first channel.
func (b *Buffer) Len() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length at the buffer's sample rate.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// DownmixMode selects how a multi-channel buffer becomes mono.
type DownmixMode int

const (
	// DownmixFirstChannel keeps channel 0 and discards the rest.
	DownmixFirstChannel DownmixMode = iota
	// DownmixAverage averages all channels sample by sample.
	DownmixAverage
)

// Downmix reduces buf to a single channel.
func Downmix(buf *Buffer, mode DownmixMode) ([]float32, error) {
	if buf == nil || len(buf.Channels) == 0 {
		return nil, fmt.Errorf("audio buffer has no channels")
	}
	if mode == DownmixFirstChannel || len(buf.Channels) == 1 {
		return buf.Channels[0], nil
	}

	n := len(buf.Channels[0])
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		count := 0
		for _, ch := range buf.Channels {
			if i < len(ch) {
				sum += ch[i]
				count++
			}
		}
		out[i] = sum / float32(count)
	}
	return out, nil
}

// PCM16Decoder decodes raw interleaved signed 16-bit little-endian PCM,
// the format produced by ffmpeg's s16le muxer and the capture WebSocket.
type PCM16Decoder struct {
	SampleRate int
	Channels   int
}

// Decode turns raw PCM bytes into a Buffer. A trailing partial frame is dropped.
func (d PCM16Decoder) Decode(_ context.Context, data []byte) (*Buffer, error) {
	channels := d.Channels
	if channels <= 0 {
		channels = 1
	}
	if d.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", d.SampleRate)
	}

	frameSize := 2 * channels
	frames := len(data) / frameSize
	if frames == 0 {
		return nil, fmt.Errorf("PCM data too short: %d bytes", len(data))
	}

	buf := &Buffer{SampleRate: d.SampleRate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*2
			sample := int16(data[off]) | int16(data[off+1])<<8
			buf.Channels[c][i] = PCM16ToFloat(sample)
		}
	}
	return buf, nil
}

// PCM16ToFloat maps a 16-bit sample onto [-1, 1).
func PCM16ToFloat(s int16) float32 {
	return float32(s) / 32768
}

// BytesToSamples converts little-endian 16-bit PCM bytes to samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts samples to little-endian 16-bit PCM bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// CalculateRMS calculates the Root Mean Square (RMS) of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Level returns the RMS of a raw PCM chunk in [0, 1], for input meters.
func Level(chunk []byte) float64 {
	return CalculateRMS(BytesToSamples(chunk)) / 32768
}
