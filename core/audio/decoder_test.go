package audio

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		hint string
		want Format
	}{
		{"wav magic", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "", FormatWAV},
		{"flac magic", []byte("fLaC\x00"), "", FormatFLAC},
		{"ogg magic", []byte("OggS\x00"), "", FormatOGG},
		{"id3", []byte("ID3\x04"), "", FormatMP3},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90}, "", FormatMP3},
		{"extension", []byte("????"), "https://cdn/x/song.MP3?sig=1", FormatMP3},
		{"unknown", []byte("????"), "song.m4a", FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sniff(tc.data, tc.hint); got != tc.want {
				t.Fatalf("Sniff = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBeepDecoderDecodesStereoWAV(t *testing.T) {
	const rate = 8000
	left := sine(rate, 0.5, 440)
	right := make([]float64, len(left))
	data := encodeWAV(rate, 2, [][]float64{left, right})

	buf, err := NewBeepDecoder().Decode(context.Background(), data, "tone.wav")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.SampleRate != rate {
		t.Fatalf("SampleRate = %d", buf.SampleRate)
	}
	if buf.NumChannels() != 2 {
		t.Fatalf("channels = %d", buf.NumChannels())
	}
	if math.Abs(buf.DurationSeconds-0.5) > 0.01 {
		t.Fatalf("DurationSeconds = %v", buf.DurationSeconds)
	}
	peak := float32(0)
	for _, s := range buf.Channels[0] {
		if s > peak {
			peak = s
		}
	}
	if peak < 0.8 {
		t.Fatalf("left channel peak = %v, expected a loud tone", peak)
	}
	for _, s := range buf.Channels[1] {
		if s != 0 {
			t.Fatalf("right channel should be silent")
		}
	}
}

func TestBeepDecoderRejectsUnknown(t *testing.T) {
	_, err := NewBeepDecoder().Decode(context.Background(), []byte("not audio"), "x.bin")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestBeepDecoderHonoursCancellation(t *testing.T) {
	data := encodeWAV(8000, 1, [][]float64{sine(8000, 1, 220)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBeepDecoder().Decode(ctx, data, "a.wav"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestMonoAveragesChannels(t *testing.T) {
	buf := NewBuffer(4, [][]float32{{1, 0, -1, 0.5}, {0, 0, 1, 0.5}})
	mono := buf.Mono()
	want := []float32{0.5, 0, 0, 0.5}
	for i := range want {
		if mono[i] != want[i] {
			t.Fatalf("mono[%d] = %v, want %v", i, mono[i], want[i])
		}
	}
	if buf.DurationSeconds != 1 {
		t.Fatalf("DurationSeconds = %v", buf.DurationSeconds)
	}
}

type stubDecoder struct {
	buf *Buffer
	err error
	n   int
}

func (s *stubDecoder) Decode(context.Context, []byte, string) (*Buffer, error) {
	s.n++
	return s.buf, s.err
}

func TestChainDecoderFallsThroughUnsupported(t *testing.T) {
	first := &stubDecoder{err: ErrUnsupportedFormat}
	second := &stubDecoder{buf: NewBuffer(1, [][]float32{{0}})}
	buf, err := ChainDecoder{first, second}.Decode(context.Background(), nil, "")
	if err != nil || buf == nil {
		t.Fatalf("chain decode: %v", err)
	}
	if first.n != 1 || second.n != 1 {
		t.Fatalf("calls = %d/%d", first.n, second.n)
	}
}

func TestChainDecoderStopsOnRealError(t *testing.T) {
	first := &stubDecoder{err: errors.New("corrupt frame")}
	second := &stubDecoder{buf: NewBuffer(1, [][]float32{{0}})}
	if _, err := (ChainDecoder{first, second}).Decode(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error")
	}
	if second.n != 0 {
		t.Fatal("second decoder should not run after a real failure")
	}
}
