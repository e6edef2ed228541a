package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BeatStudio/core/editorerr"
	"BeatStudio/logger"
)

// LoadToken identifies one load attempt. A result is only applied while its
// token is still the session's current one.
type LoadToken struct {
	SongID     string
	Generation uint64
}

func (t LoadToken) String() string {
	return fmt.Sprintf("%s#%d", t.SongID, t.Generation)
}

// Pipeline fetches and decodes audio for a song.
type Pipeline struct {
	fetcher Fetcher
	decoder Decoder
}

// NewPipeline 创建音频解码流水线
func NewPipeline(fetcher Fetcher, decoder Decoder) *Pipeline {
	return &Pipeline{fetcher: fetcher, decoder: decoder}
}

// NewDefaultDecoder returns the in-process decoder, followed by ffmpeg when
// the binary is available.
func NewDefaultDecoder(ffmpegPath string) Decoder {
	chain := ChainDecoder{NewBeepDecoder()}
	if ff := NewFFmpegDecoder(ffmpegPath, 22050); ff != nil {
		chain = append(chain, ff)
	}
	return chain
}

// Load fetches url and decodes it. Errors are tagged network or decode and
// carry a user-facing message. A cancelled ctx yields an editorerr.Canceled
// error which callers drop silently.
func (p *Pipeline) Load(ctx context.Context, token LoadToken, url string) (*Buffer, error) {
	start := time.Now()
	logger.Info("开始加载音频",
		logger.String("songId", token.SongID),
		logger.Uint64("generation", token.Generation),
		logger.String("url", url))

	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, editorerr.Canceled(ctx.Err())
		}
		logger.Warn("音频下载失败",
			logger.String("songId", token.SongID),
			logger.ErrorField(err))
		return nil, editorerr.Wrap(err, editorerr.KindNetwork,
			"Could not download the song audio. Select the song again to retry.")
	}
	fetched := time.Since(start)

	buf, err := p.decoder.Decode(ctx, data, url)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, editorerr.Canceled(err)
		}
		logger.Warn("音频解码失败",
			logger.String("songId", token.SongID),
			logger.Int("bytes", len(data)),
			logger.ErrorField(err))
		return nil, editorerr.Wrap(err, editorerr.KindDecode,
			"The audio file could not be decoded. It may be corrupt or in an unsupported format.")
	}
	buf.SourceHash = HashBytes(data)

	logger.Info("音频加载完成",
		logger.String("songId", token.SongID),
		logger.Uint64("generation", token.Generation),
		logger.Int("sampleRate", buf.SampleRate),
		logger.Int("channels", buf.NumChannels()),
		logger.Float64("durationSec", buf.DurationSeconds),
		logger.Duration("fetch", fetched),
		logger.Duration("total", time.Since(start)))
	return buf, nil
}
