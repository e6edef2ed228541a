// Package songapi resolves song ids into editor songs from the song backend,
// the MySQL songs table or a static TOML catalog.
package songapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"BeatStudio/core/editorerr"
	"BeatStudio/logger"
	"BeatStudio/model"
)

// Client 歌曲详情接口客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建新的API客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient replaces the underlying client, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// GetSongDetail fetches GET {base}/songs/{id}.
func (c *Client) GetSongDetail(ctx context.Context, id string) (*model.SongDetail, error) {
	endpoint := fmt.Sprintf("%s/songs/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("获取歌曲详情失败", logger.String("songId", id), logger.ErrorField(err))
		return nil, editorerr.Wrap(err, editorerr.KindNetwork, "The song service could not be reached.")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, editorerr.New(editorerr.KindNotFound, "song "+id+" not found", "That song does not exist.")
	case resp.StatusCode != http.StatusOK:
		return nil, editorerr.New(editorerr.KindNetwork,
			fmt.Sprintf("song API returned status %d", resp.StatusCode),
			"The song service returned an error.")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, editorerr.Wrap(err, editorerr.KindNetwork, "The song service response was cut off.")
	}

	var detail model.SongDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, editorerr.Wrap(fmt.Errorf("解析歌曲详情失败: %w", err), editorerr.KindNetwork,
			"The song service sent an unreadable response.")
	}
	return &detail, nil
}
