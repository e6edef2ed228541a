package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"BeatStudio/core/editorerr"
	"BeatStudio/core/songapi"
	"BeatStudio/db"
	"BeatStudio/model"
)

// SongRepository 歌曲只读查询接口
type SongRepository interface {
	GetSongDetail(ctx context.Context, id int64) (*model.SongDetail, error)
	ListSongs(ctx context.Context, limit int) ([]*model.SongDetail, error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	DB *sql.DB
}

// NewMySQLSongRepository creates a new instance of mysqlSongRepository.
func NewMySQLSongRepository() SongRepository {
	return &mysqlSongRepository{DB: db.DB}
}

// NewSongRepositoryWithDB 使用指定连接创建仓库
func NewSongRepositoryWithDB(conn *sql.DB) SongRepository {
	return &mysqlSongRepository{DB: conn}
}

const songColumns = `id, title, audio_url, audio_key, audio_duration, reff_start, reff_end, bpm`

// GetSongDetail retrieves a song and its existing beatmaps. It returns nil
// when the song does not exist.
func (r *mysqlSongRepository) GetSongDetail(ctx context.Context, id int64) (*model.SongDetail, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)

	d, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}

	d.Beatmaps, err = r.beatmaps(ctx, id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListSongs 按 id 顺序列出歌曲，不含谱面信息
func (r *mysqlSongRepository) ListSongs(ctx context.Context, limit int) ([]*model.SongDetail, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.SongDetail, 0)
	for rows.Next() {
		d, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		songs = append(songs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating song rows: %w", err)
	}
	return songs, nil
}

func (r *mysqlSongRepository) beatmaps(ctx context.Context, songID int64) ([]model.AvailableBeatmap, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT difficulty_name, beatmap_asset_key, beatmap_asset_url, beatmap_id
		 FROM song_beatmaps WHERE song_id = ? ORDER BY difficulty_name`, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query beatmaps for song %d: %w", songID, err)
	}
	defer rows.Close()

	list := make([]model.AvailableBeatmap, 0)
	for rows.Next() {
		var b model.AvailableBeatmap
		if err := rows.Scan(&b.DifficultyName, &b.BeatmapAssetKey, &b.BeatmapAssetURL, &b.BeatmapID); err != nil {
			return nil, fmt.Errorf("failed to scan beatmap row: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*model.SongDetail, error) {
	var (
		d                            model.SongDetail
		dur, reffStart, reffEnd, bpm sql.NullFloat64
	)
	if err := row.Scan(&d.SongID, &d.SongTitle, &d.AudioURL, &d.AudioKey, &dur, &reffStart, &reffEnd, &bpm); err != nil {
		return nil, err
	}
	d.AudioDuration = nullFloat(dur)
	d.ReffStart = nullFloat(reffStart)
	d.ReffEnd = nullFloat(reffEnd)
	d.BPM = nullFloat(bpm)
	return &d, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// SongSource adapts a SongRepository to songapi.SongSource.
type SongSource struct {
	Repo     SongRepository
	Defaults songapi.Defaults
}

func (s *SongSource) GetSong(ctx context.Context, id string) (*model.Song, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errSongNotFound(id)
	}
	d, err := s.Repo.GetSongDetail(ctx, n)
	if err != nil {
		return nil, editorerr.Wrap(err, editorerr.KindNetwork, "The song library is unavailable right now.")
	}
	if d == nil {
		return nil, errSongNotFound(id)
	}
	return songapi.ToSong(d, s.Defaults), nil
}

func errSongNotFound(id string) error {
	return editorerr.New(editorerr.KindNotFound, "song "+id+" not in database", "That song does not exist.")
}
