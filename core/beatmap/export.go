// Package beatmap converts between the editor's note list and the JSON file
// format consumed by the gameplay engine.
package beatmap

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"BeatStudio/core/editorerr"
	"BeatStudio/logger"
	"BeatStudio/model"

	"golang.org/x/text/unicode/norm"
)

// DefaultDifficulty is written when no difficulty is selected.
const DefaultDifficulty = "default"

// ExportOptions 导出所需的歌曲与难度信息
type ExportOptions struct {
	SongID     string
	SongTitle  string
	Difficulty string // empty means DefaultDifficulty
	BeatmapID  int64  // 0 for a new beatmap
}

// Build maps notes to the wire schema.
func Build(notes []model.Note, opts ExportOptions) model.BeatmapFile {
	difficulty := opts.Difficulty
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}

	items := make([]model.BeatmapItem, 0, len(notes))
	for _, n := range notes {
		item := model.BeatmapItem{
			ButtonType:      model.ButtonTap,
			ButtonDirection: n.Lane,
			ButtonTime:      n.Time / 1000,
		}
		if n.Type == model.NoteHold {
			item.ButtonType = model.ButtonHold
			item.ButtonDuration = int64(math.Round(n.Duration))
		}
		items = append(items, item)
	}

	return model.BeatmapFile{Beatmap: model.BeatmapPayload{
		ID:         opts.BeatmapID,
		SongID:     parseSongID(opts.SongID),
		Difficulty: difficulty,
		Items:      items,
	}}
}

// Export returns the indented JSON document and its download file name.
func Export(notes []model.Note, opts ExportOptions) ([]byte, string, error) {
	data, err := json.MarshalIndent(Build(notes, opts), "", "  ")
	if err != nil {
		return nil, "", editorerr.Wrap(err, editorerr.KindInvalid, "The beatmap could not be exported.")
	}
	return data, FileName(opts.SongTitle, opts.Difficulty), nil
}

// FileName returns "{title}_{difficulty}_beatmaps.json" with spaces in the
// title replaced by underscores.
func FileName(title, difficulty string) string {
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	title = norm.NFC.String(strings.TrimSpace(title))
	title = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', '"':
			return '_'
		}
		return r
	}, title)
	return title + "_" + difficulty + "_beatmaps.json"
}

func parseSongID(id string) int64 {
	if id == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		logger.Warn("歌曲ID不是整数，导出时使用0", logger.String("songId", id))
		return 0
	}
	return n
}
