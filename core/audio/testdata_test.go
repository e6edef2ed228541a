package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// encodeWAV builds a 16-bit PCM WAV file in memory.
func encodeWAV(sampleRate, channels int, frames [][]float64) []byte {
	n := len(frames[0])
	dataSize := uint32(n * channels * 2)

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, 36+dataSize)
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(channels*2)) // block align
	binary.Write(&b, binary.LittleEndian, uint16(16))         // bits per sample
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, dataSize)
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			binary.Write(&b, binary.LittleEndian, int16(frames[c][i]*30000))
		}
	}
	return b.Bytes()
}

func sine(sampleRate int, seconds, freq float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}
