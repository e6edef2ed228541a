package songapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"BeatStudio/core/editorerr"
	"BeatStudio/logger"
	"BeatStudio/model"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// catalogFile is the on-disk TOML layout.
type catalogFile struct {
	Songs []catalogSong `toml:"songs"`
}

type catalogSong struct {
	ID       string           `toml:"id"`
	Title    string           `toml:"title"`
	BPM      float64          `toml:"bpm"`
	Duration float64          `toml:"duration"`
	AudioURL string           `toml:"audio_url"`
	AudioKey string           `toml:"audio_key"`
	Beatmaps []catalogBeatmap `toml:"beatmaps"`
}

type catalogBeatmap struct {
	Difficulty string `toml:"difficulty_name"`
	AssetKey   string `toml:"beatmap_asset_key"`
	AssetURL   string `toml:"beatmap_asset_url"`
	ID         int64  `toml:"beatmap_id"`
}

// Catalog is a static song list read from a TOML file and reloaded when the
// file changes.
type Catalog struct {
	path string
	def  Defaults

	mu    sync.RWMutex
	songs map[string]model.Song
}

// NewCatalog does not read the file; call Load.
func NewCatalog(path string, def Defaults) *Catalog {
	return &Catalog{path: path, def: def, songs: map[string]model.Song{}}
}

func (c *Catalog) Path() string { return c.path }

// Load reads the file. A missing file yields an empty catalog. On a parse
// error the previous contents are kept.
func (c *Catalog) Load() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.mu.Lock()
		c.songs = map[string]model.Song{}
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取歌曲目录失败: %w", err)
	}

	var f catalogFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("解析歌曲目录失败 %s: %w", c.path, err)
	}

	songs := make(map[string]model.Song, len(f.Songs))
	for i, cs := range f.Songs {
		if cs.ID == "" {
			return fmt.Errorf("歌曲目录第%d项缺少id", i)
		}
		s := model.Song{
			ID:          cs.ID,
			Title:       cs.Title,
			BPM:         cs.BPM,
			Duration:    cs.Duration,
			AudioURL:    cs.AudioURL,
			AudioKey:    cs.AudioKey,
			BPMDeclared: cs.BPM > 0,
		}
		if !s.BPMDeclared {
			s.BPM = c.def.NominalBPM
		}
		if s.Duration <= 0 {
			s.Duration = c.def.FallbackDurationSec
		}
		for _, b := range cs.Beatmaps {
			s.Beatmaps = append(s.Beatmaps, model.AvailableBeatmap{
				DifficultyName:  b.Difficulty,
				BeatmapAssetKey: b.AssetKey,
				BeatmapAssetURL: b.AssetURL,
				BeatmapID:       b.ID,
			})
		}
		songs[s.ID] = s
	}

	c.mu.Lock()
	c.songs = songs
	c.mu.Unlock()
	logger.Info("歌曲目录已加载", logger.String("path", c.path), logger.Int("songs", len(songs)))
	return nil
}

// Watch reloads the catalog whenever its file is written or replaced, until
// ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("监听目录失败 %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(c.path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if err := c.Load(); err != nil {
					logger.Warn("重新加载歌曲目录失败", logger.ErrorField(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("歌曲目录监听错误", logger.ErrorField(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// GetSong implements SongSource.
func (c *Catalog) GetSong(_ context.Context, id string) (*model.Song, error) {
	c.mu.RLock()
	s, ok := c.songs[id]
	c.mu.RUnlock()
	if !ok {
		return nil, editorerr.New(editorerr.KindNotFound, "song "+id+" not in catalog", "That song does not exist.")
	}
	return &s, nil
}

// List returns all songs ordered by id.
func (c *Catalog) List() []model.Song {
	c.mu.RLock()
	out := make([]model.Song, 0, len(c.songs))
	for _, s := range c.songs {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
