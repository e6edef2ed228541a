package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"BeatStudio/core/editorerr"
	"BeatStudio/core/songapi"
	"BeatStudio/model"
)

type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return errors.New("column count mismatch")
	}
	for i, v := range r {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case *sql.NullFloat64:
			if v != nil {
				*d = sql.NullFloat64{Float64: v.(float64), Valid: true}
			}
		}
	}
	return nil
}

func TestScanSongNullables(t *testing.T) {
	d, err := scanSong(fakeRow{int64(7), "Title", "http://a/7.mp3", "", 182.5, nil, nil, 140.0})
	if err != nil {
		t.Fatal(err)
	}
	if d.SongID != 7 || d.AudioDuration == nil || *d.AudioDuration != 182.5 {
		t.Fatalf("detail = %+v", d)
	}
	if d.ReffStart != nil || d.ReffEnd != nil {
		t.Fatal("NULL columns should stay nil")
	}
	if d.BPM == nil || *d.BPM != 140 {
		t.Fatalf("bpm = %v", d.BPM)
	}
}

type memSongs map[int64]*model.SongDetail

func (m memSongs) GetSongDetail(_ context.Context, id int64) (*model.SongDetail, error) {
	return m[id], nil
}

func (m memSongs) ListSongs(context.Context, int) ([]*model.SongDetail, error) { return nil, nil }

func TestSongSource(t *testing.T) {
	dur := 95.0
	src := &SongSource{
		Repo:     memSongs{3: {SongID: 3, SongTitle: "Three", AudioDuration: &dur}},
		Defaults: songapi.Defaults{NominalBPM: 120, FallbackDurationSec: 300},
	}

	song, err := src.GetSong(context.Background(), "3")
	if err != nil {
		t.Fatal(err)
	}
	if song.Title != "Three" || song.Duration != 95 || song.BPM != 120 || song.BPMDeclared {
		t.Fatalf("song = %+v", song)
	}

	for _, id := range []string{"4", "abc"} {
		if _, err := src.GetSong(context.Background(), id); !editorerr.Is(err, editorerr.KindNotFound) {
			t.Errorf("GetSong(%q) err = %v", id, err)
		}
	}
}

func TestNewBeatmapRecord(t *testing.T) {
	f := model.BeatmapFile{Beatmap: model.BeatmapPayload{
		ID: 9, SongID: 3, Difficulty: "hard",
		Items: []model.BeatmapItem{{ButtonType: 1, ButtonDirection: 2, ButtonDuration: 500, ButtonTime: 2}},
	}}
	rec := NewBeatmapRecord(f, 128, 15)
	if rec.ID != 9 || rec.SongID != 3 || rec.Difficulty != "hard" || rec.NoteCount != 1 || rec.BPM != 128 {
		t.Fatalf("record = %+v", rec)
	}

	empty := NewBeatmapRecord(model.BeatmapFile{}, 120, 0)
	v, err := empty.Items.Value()
	if err != nil || v != "[]" {
		t.Fatalf("empty items value = %v, %v", v, err)
	}
}
