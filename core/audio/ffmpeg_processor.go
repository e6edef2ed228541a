package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"BeatStudio/logger"
)

// FFmpegDecoder decodes anything ffmpeg understands (aac, m4a, opus...) by
// piping the bytes through an ffmpeg subprocess and reading mono f32le PCM.
type FFmpegDecoder struct {
	ffmpegPath string
	sampleRate int
}

// NewFFmpegDecoder creates a fallback decoder. It returns nil when the binary
// cannot be found so that it can be dropped from a ChainDecoder.
func NewFFmpegDecoder(ffmpegPath string, sampleRate int) *FFmpegDecoder {
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		logger.Warn("ffmpeg not found, fallback decoding disabled", logger.String("path", ffmpegPath))
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = 22050
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, sampleRate: sampleRate}
}

func (p *FFmpegDecoder) ffprobePath() string {
	return strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// ProbeCodec 获取音频流的编码格式
func (p *FFmpegDecoder) ProbeCodec(ctx context.Context, data []byte) (string, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "json",
		"pipe:0",
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath(), args...)
	var out, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffprobe execution failed: %w\nFFprobe Error: %s", err, stderr.String())
	}

	var probeData struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return "", fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if len(probeData.Streams) == 0 {
		return "", ErrUnsupportedFormat
	}
	return probeData.Streams[0].CodecName, nil
}

// Decode 使用 ffmpeg 解码为单声道 float32 PCM
func (p *FFmpegDecoder) Decode(ctx context.Context, data []byte, hint string) (*Buffer, error) {
	codec, err := p.ProbeCodec(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrUnsupportedFormat
	}

	args := []string{
		"-v", "error",
		"-i", "pipe:0",
		"-vn",
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(p.sampleRate),
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logger.Debug("ffmpeg fallback decode",
		logger.String("hint", hint),
		logger.String("codec", codec))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg decode failed for %s (%s): %w\nFFmpeg Error: %s", hint, codec, err, stderr.String())
	}

	samples, err := parseF32LE(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("ffmpeg output for %s: %w", hint, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no samples for %s", hint)
	}
	return NewBuffer(p.sampleRate, [][]float32{samples}), nil
}

func parseF32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("truncated f32le stream (%d bytes)", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
