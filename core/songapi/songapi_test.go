package songapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BeatStudio/core/editorerr"
	"BeatStudio/model"
)

func f64(v float64) *float64 { return &v }

func TestDeriveDuration(t *testing.T) {
	cases := []struct {
		name   string
		detail model.SongDetail
		want   float64
		source string
	}{
		{"audio", model.SongDetail{AudioDuration: f64(183.5), ReffEnd: f64(90)}, 183.5, DurationFromAudio},
		{"zero audio uses reff", model.SongDetail{AudioDuration: f64(0), ReffStart: f64(30), ReffEnd: f64(95)}, 95, DurationFromReff},
		{"reff without start", model.SongDetail{ReffEnd: f64(60)}, 60, DurationFromReff},
		{"reff before start", model.SongDetail{ReffStart: f64(100), ReffEnd: f64(20)}, 300, DurationFromFallback},
		{"nothing", model.SongDetail{}, 300, DurationFromFallback},
	}
	for _, tc := range cases {
		got, src := DeriveDuration(&tc.detail, 300)
		if got != tc.want || src != tc.source {
			t.Errorf("%s: got %v (%s), want %v (%s)", tc.name, got, src, tc.want, tc.source)
		}
	}
}

func TestToSongNominalBPM(t *testing.T) {
	def := Defaults{NominalBPM: 120, FallbackDurationSec: 300}

	s := ToSong(&model.SongDetail{SongID: 9, SongTitle: "x", BPM: f64(174)}, def)
	if s.ID != "9" || s.BPM != 174 || !s.BPMDeclared {
		t.Fatalf("declared bpm: %+v", s)
	}
	s = ToSong(&model.SongDetail{SongID: 9}, Defaults{NominalBPM: 95, FallbackDurationSec: 300})
	if s.BPM != 95 || s.BPMDeclared {
		t.Fatalf("nominal bpm: %+v", s)
	}
	if s.Duration != 300 {
		t.Fatalf("duration = %v", s.Duration)
	}
}

func TestClientGetSongDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/songs/12":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"song_id":12,"song_title":"Rain","audio_url":"https://cdn/rain.mp3",
				"audio_duration":200,"beatmaps":[{"difficulty_name":"easy","beatmap_asset_key":"k","beatmap_asset_url":"u","beatmap_id":4}]}`))
		case "/api/songs/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", time.Second)
	d, err := c.GetSongDetail(context.Background(), "12")
	if err != nil {
		t.Fatal(err)
	}
	if d.SongTitle != "Rain" || len(d.Beatmaps) != 1 || d.Beatmaps[0].BeatmapID != 4 {
		t.Fatalf("detail = %+v", d)
	}

	if _, err := c.GetSongDetail(context.Background(), "13"); !editorerr.Is(err, editorerr.KindNotFound) {
		t.Fatalf("404 err = %v", err)
	}
	if _, err := c.GetSongDetail(context.Background(), "500"); !editorerr.Is(err, editorerr.KindNetwork) {
		t.Fatalf("500 err = %v", err)
	}
}

const catalogTOML = `
[[songs]]
id = "demo"
title = "Demo Song"
bpm = 140
duration = 95.5
audio_url = "https://example.com/demo.ogg"

  [[songs.beatmaps]]
  difficulty_name = "normal"
  beatmap_asset_url = "https://example.com/demo_normal.json"
  beatmap_id = 11

[[songs]]
id = "bare"
title = "No Tempo"
audio_key = "audio/bare.wav"
`

func TestCatalogLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	if err := os.WriteFile(path, []byte(catalogTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCatalog(path, Defaults{NominalBPM: 120, FallbackDurationSec: 300})
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}

	demo, err := c.GetSong(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if demo.BPM != 140 || !demo.BPMDeclared || demo.Duration != 95.5 {
		t.Fatalf("demo = %+v", demo)
	}
	if b, ok := demo.FindBeatmap("normal"); !ok || b.BeatmapID != 11 {
		t.Fatalf("beatmap = %+v", b)
	}

	bare, _ := c.GetSong(context.Background(), "bare")
	if bare.BPM != 120 || bare.BPMDeclared || bare.Duration != 300 || bare.AudioKey != "audio/bare.wav" {
		t.Fatalf("bare = %+v", bare)
	}
	if got := c.List(); len(got) != 2 || got[0].ID != "bare" {
		t.Fatalf("List = %+v", got)
	}
	if _, err := c.GetSong(context.Background(), "nope"); !editorerr.Is(err, editorerr.KindNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestCatalogKeepsOldContentsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	os.WriteFile(path, []byte(catalogTOML), 0o644)
	c := NewCatalog(path, Defaults{NominalBPM: 120})
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte("[[songs]\nid="), 0o644)
	if err := c.Load(); err == nil {
		t.Fatal("expected parse error")
	}
	if len(c.List()) != 2 {
		t.Fatal("catalog lost its contents after a bad reload")
	}
}

func TestCatalogMissingFile(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "none.toml"), Defaults{})
	if err := c.Load(); err != nil || len(c.List()) != 0 {
		t.Fatalf("missing file: %v", err)
	}
}

func TestCatalogWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	os.WriteFile(path, []byte(`[[songs]]
id = "one"
`), 0o644)
	c := NewCatalog(path, Defaults{NominalBPM: 120})
	c.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Watch(ctx); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte(catalogTOML), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.List()) == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("catalog not reloaded, songs = %d", len(c.List()))
}

type stubSource struct {
	song *model.Song
	err  error
	n    int
}

func (s *stubSource) GetSong(context.Context, string) (*model.Song, error) {
	s.n++
	return s.song, s.err
}

func TestChain(t *testing.T) {
	notFound := editorerr.New(editorerr.KindNotFound, "nf", "nf")
	a := &stubSource{err: notFound}
	b := &stubSource{err: editorerr.New(editorerr.KindNetwork, "down", "down")}
	c := &stubSource{song: &model.Song{ID: "7"}}

	s, err := Chain{a, b, c}.GetSong(context.Background(), "7")
	if err != nil || s.ID != "7" {
		t.Fatalf("chain = %+v, %v", s, err)
	}
	if a.n != 1 || b.n != 1 || c.n != 1 {
		t.Fatal("every source should be tried in order")
	}

	_, err = Chain{a, b}.GetSong(context.Background(), "7")
	if !editorerr.Is(err, editorerr.KindNetwork) {
		t.Fatalf("err = %v, want the network failure", err)
	}
	_, err = Chain{a}.GetSong(context.Background(), "7")
	if !editorerr.Is(err, editorerr.KindNotFound) {
		t.Fatalf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Chain{&stubSource{err: ctx.Err()}}.GetSong(ctx, "7")
	if !errors.Is(err, editorerr.ErrCanceled) {
		t.Fatalf("err = %v", err)
	}
}
