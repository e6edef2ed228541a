package model

// Song identifies the audio being charted and its nominal tempo.
// Switching songs resets every piece of derived editor state.
type Song struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	BPM      float64            `json:"bpm"`      // nominal/fallback tempo
	Duration float64            `json:"duration"` // seconds
	AudioURL string             `json:"audioUrl"`
	AudioKey string             `json:"audioKey,omitempty"` // object storage key, if the audio lives in MinIO
	Beatmaps []AvailableBeatmap `json:"beatmaps,omitempty"`

	// BPMDeclared is false when BPM came from configuration rather than the song itself.
	BPMDeclared bool `json:"bpmDeclared"`
}

// DurationMs 返回毫秒时长
func (s *Song) DurationMs() float64 {
	return s.Duration * 1000
}

// AvailableBeatmap 服务端已有的难度信息，编辑器只读
type AvailableBeatmap struct {
	DifficultyName  string `json:"difficulty_name"`
	BeatmapAssetKey string `json:"beatmap_asset_key"`
	BeatmapAssetURL string `json:"beatmap_asset_url"`
	BeatmapID       int64  `json:"beatmap_id,omitempty"`
}

// SongDetail 歌曲详情接口返回的数据
type SongDetail struct {
	SongID        int64              `json:"song_id"`
	SongTitle     string             `json:"song_title"`
	AudioURL      string             `json:"audio_url"`
	AudioKey      string             `json:"audio_key,omitempty"`
	AudioDuration *float64           `json:"audio_duration,omitempty"`
	ReffStart     *float64           `json:"reff_start,omitempty"`
	ReffEnd       *float64           `json:"reff_end,omitempty"`
	BPM           *float64           `json:"bpm,omitempty"`
	Beatmaps      []AvailableBeatmap `json:"beatmaps"`
}

// FindBeatmap 按难度名查找已有谱面
func (s *Song) FindBeatmap(difficulty string) (AvailableBeatmap, bool) {
	for _, b := range s.Beatmaps {
		if b.DifficultyName == difficulty {
			return b, true
		}
	}
	return AvailableBeatmap{}, false
}
