package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Button types of the gameplay engine's wire schema.
const (
	ButtonTap  = 0
	ButtonHold = 1
)

// BeatmapFile 导出文件的根结构，字段名和单位由游戏引擎固定
type BeatmapFile struct {
	Beatmap BeatmapPayload `json:"beatmap"`
}

// BeatmapPayload 谱面内容
type BeatmapPayload struct {
	ID         int64         `json:"id"`
	SongID     int64         `json:"song_id"`
	Difficulty string        `json:"difficulty"`
	Items      []BeatmapItem `json:"items"`
}

// BeatmapItem 单个按键；button_time 单位为秒，button_duration 单位为毫秒
type BeatmapItem struct {
	ButtonType      int     `json:"button_type"`
	ButtonDirection int     `json:"button_direction"`
	ButtonDuration  int64   `json:"button_duration"`
	ButtonTime      float64 `json:"button_time"`
}

// BeatmapItems 用于 GORM JSON 字段
type BeatmapItems []BeatmapItem

// Scan 实现 sql.Scanner 接口
func (b *BeatmapItems) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for BeatmapItems: %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*b = nil
		return nil
	}
	return json.Unmarshal(bytes, b)
}

// Value 实现 driver.Valuer 接口
func (b BeatmapItems) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// BeatmapRecord 保存到数据库的谱面
type BeatmapRecord struct {
	ID         int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	SongID     int64        `json:"songId" gorm:"index:idx_song_difficulty,unique;not null"`
	Difficulty string       `json:"difficulty" gorm:"size:50;index:idx_song_difficulty,unique;not null"`
	Items      BeatmapItems `json:"items" gorm:"type:json"`
	NoteCount  int          `json:"noteCount"`
	BPM        float64      `json:"bpm"`
	OffsetMs   float64      `json:"offsetMs"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// TableName 指定表名
func (BeatmapRecord) TableName() string {
	return "beatmaps"
}
