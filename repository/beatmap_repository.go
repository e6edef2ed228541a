package repository

import (
	"context"
	"time"

	"BeatStudio/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BeatmapRepository 谱面持久化接口
type BeatmapRepository interface {
	// Save inserts or replaces the beatmap of rec's song and difficulty and
	// fills in rec.ID.
	Save(ctx context.Context, rec *model.BeatmapRecord) error
	Get(ctx context.Context, songID int64, difficulty string) (*model.BeatmapRecord, error)
	GetByID(ctx context.Context, id int64) (*model.BeatmapRecord, error)
	ListBySong(ctx context.Context, songID int64) ([]*model.BeatmapRecord, error)
	Delete(ctx context.Context, id int64) error
}

// gormBeatmapRepository GORM 实现
type gormBeatmapRepository struct {
	db *gorm.DB
}

// NewGormBeatmapRepository 创建 GORM 谱面仓库
func NewGormBeatmapRepository(db *gorm.DB) BeatmapRepository {
	return &gormBeatmapRepository{db: db}
}

// NewBeatmapRecord 由导出文件构建数据库记录
func NewBeatmapRecord(f model.BeatmapFile, bpm, offsetMs float64) *model.BeatmapRecord {
	items := model.BeatmapItems(f.Beatmap.Items)
	if items == nil {
		items = model.BeatmapItems{}
	}
	return &model.BeatmapRecord{
		ID:         f.Beatmap.ID,
		SongID:     f.Beatmap.SongID,
		Difficulty: f.Beatmap.Difficulty,
		Items:      items,
		NoteCount:  len(items),
		BPM:        bpm,
		OffsetMs:   offsetMs,
	}
}

// Save 保存谱面，同一歌曲同一难度只保留一份
func (r *gormBeatmapRepository) Save(ctx context.Context, rec *model.BeatmapRecord) error {
	now := time.Now()
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.ID = 0

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "song_id"}, {Name: "difficulty"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "note_count", "bpm", "offset_ms", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return err
	}

	// MySQL 在冲突更新时不返回自增 ID
	saved, err := r.Get(ctx, rec.SongID, rec.Difficulty)
	if err != nil {
		return err
	}
	if saved != nil {
		rec.ID = saved.ID
		rec.CreatedAt = saved.CreatedAt
	}
	return nil
}

// Get 按歌曲和难度获取谱面
func (r *gormBeatmapRepository) Get(ctx context.Context, songID int64, difficulty string) (*model.BeatmapRecord, error) {
	var rec model.BeatmapRecord
	err := r.db.WithContext(ctx).
		Where("song_id = ? AND difficulty = ?", songID, difficulty).
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// GetByID 根据ID获取谱面
func (r *gormBeatmapRepository) GetByID(ctx context.Context, id int64) (*model.BeatmapRecord, error) {
	var rec model.BeatmapRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListBySong 获取歌曲的所有谱面
func (r *gormBeatmapRepository) ListBySong(ctx context.Context, songID int64) ([]*model.BeatmapRecord, error) {
	var list []*model.BeatmapRecord
	err := r.db.WithContext(ctx).
		Where("song_id = ?", songID).
		Order("difficulty ASC").
		Find(&list).Error
	return list, err
}

// Delete 删除谱面
func (r *gormBeatmapRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.BeatmapRecord{}, id).Error
}
