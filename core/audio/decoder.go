package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Format 音频容器格式
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
)

// ErrUnsupportedFormat is returned when no decoder recognises the data.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Sniff guesses the container from magic bytes, falling back to the hint's
// file extension.
func Sniff(data []byte, hint string) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return FormatFLAC
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return FormatOGG
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}

	ext := strings.ToLower(path.Ext(strings.SplitN(hint, "?", 2)[0]))
	switch ext {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".flac":
		return FormatFLAC
	case ".ogg", ".oga":
		return FormatOGG
	}
	return FormatUnknown
}

// BeepDecoder decodes wav/mp3/flac/ogg in-process.
type BeepDecoder struct {
	chunk int
}

func NewBeepDecoder() *BeepDecoder {
	return &BeepDecoder{chunk: 8192}
}

// Decode 解码音频数据，解码过程中会检查 ctx 以便切歌时及时放弃
func (d *BeepDecoder) Decode(ctx context.Context, data []byte, hint string) (*Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)

	switch Sniff(data, hint) {
	case FormatWAV:
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case FormatMP3:
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case FormatFLAC:
		streamer, format, err = flac.Decode(bytes.NewReader(data))
	case FormatOGG:
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", hint, err)
	}
	defer streamer.Close()

	numChannels := format.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}
	if numChannels > 2 {
		numChannels = 2 // beep streams are at most stereo
	}

	expected := streamer.Len()
	if expected < 0 {
		expected = 0
	}
	channels := make([][]float32, numChannels)
	for c := range channels {
		channels[c] = make([]float32, 0, expected)
	}

	chunk := make([][2]float64, d.chunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, ok := streamer.Stream(chunk)
		for i := 0; i < n; i++ {
			channels[0] = append(channels[0], float32(chunk[i][0]))
			if numChannels == 2 {
				channels[1] = append(channels[1], float32(chunk[i][1]))
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", hint, err)
	}
	if len(channels[0]) == 0 {
		return nil, fmt.Errorf("decode %s: no samples", hint)
	}

	return NewBuffer(int(format.SampleRate), channels), nil
}

// ChainDecoder tries decoders in order, moving on only when a decoder reports
// ErrUnsupportedFormat.
type ChainDecoder []Decoder

func (c ChainDecoder) Decode(ctx context.Context, data []byte, hint string) (*Buffer, error) {
	for _, d := range c {
		if d == nil {
			continue
		}
		buf, err := d.Decode(ctx, data, hint)
		if errors.Is(err, ErrUnsupportedFormat) {
			continue
		}
		return buf, err
	}
	return nil, ErrUnsupportedFormat
}
