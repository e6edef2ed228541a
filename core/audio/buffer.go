package audio

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Buffer holds decoded PCM samples in the range [-1, 1], one slice per channel.
type Buffer struct {
	SampleRate      int
	Channels        [][]float32
	DurationSeconds float64

	// SourceHash identifies the encoded bytes the buffer was decoded from.
	SourceHash string

	monoOnce sync.Once
	mono     []float32
}

// NumChannels 返回声道数
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Len 返回每个声道的采样数
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Mono returns the channel average. The result is computed once and shared,
// callers must not modify it. Safe for concurrent use.
func (b *Buffer) Mono() []float32 {
	b.monoOnce.Do(b.mixMono)
	return b.mono
}

func (b *Buffer) mixMono() {
	switch len(b.Channels) {
	case 0:
		b.mono = []float32{}
	case 1:
		b.mono = b.Channels[0]
	default:
		n := b.Len()
		out := make([]float32, n)
		inv := 1 / float32(len(b.Channels))
		for _, ch := range b.Channels {
			for i := 0; i < n && i < len(ch); i++ {
				out[i] += ch[i] * inv
			}
		}
		b.mono = out
	}
}

// NewBuffer builds a buffer and derives its duration from the sample count.
func NewBuffer(sampleRate int, channels [][]float32) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Channels: channels}
	if sampleRate > 0 {
		b.DurationSeconds = float64(b.Len()) / float64(sampleRate)
	}
	return b
}

// HashBytes returns the hex BLAKE2b-256 digest used as a content key.
func HashBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
