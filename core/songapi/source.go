package songapi

import (
	"context"

	"BeatStudio/core/editorerr"
	"BeatStudio/model"
)

// SongSource resolves a song id.
type SongSource interface {
	GetSong(ctx context.Context, id string) (*model.Song, error)
}

// HTTPSource adapts Client to SongSource.
type HTTPSource struct {
	Client   *Client
	Defaults Defaults
}

func (h *HTTPSource) GetSong(ctx context.Context, id string) (*model.Song, error) {
	detail, err := h.Client.GetSongDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToSong(detail, h.Defaults), nil
}

// Chain tries each source in order. Not-found moves on to the next source;
// other errors are remembered and reported if nothing matches.
type Chain []SongSource

func (c Chain) GetSong(ctx context.Context, id string) (*model.Song, error) {
	var lastErr error
	for _, src := range c {
		if src == nil {
			continue
		}
		s, err := src.GetSong(ctx, id)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, editorerr.Canceled(ctx.Err())
		}
		if !editorerr.Is(err, editorerr.KindNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, editorerr.New(editorerr.KindNotFound, "song "+id+" not found in any source", "That song does not exist.")
}
