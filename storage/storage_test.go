package storage

import (
	"context"
	"testing"
	"time"
)

func TestInferKind(t *testing.T) {
	tests := map[string]string{
		"audio/1.MP3":          "audio",
		"audio/2.wav":          "audio",
		"beatmaps/1/hard.json": "beatmap",
		"catalog.toml":         "catalog",
		"noext":                "other",
	}
	for key, want := range tests {
		if got := InferKind(key); got != want {
			t.Errorf("InferKind(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUsageAndSummary(t *testing.T) {
	now := time.Now()
	objs := []ObjectInfo{
		{Key: "a.mp3", Size: 100, Kind: "audio", LastModified: now.Add(-time.Hour)},
		{Key: "b.wav", Size: 50, Kind: "audio", LastModified: now},
		{Key: "c.json", Size: 7, Kind: "beatmap"},
	}
	u := Usage(objs)
	if u["audio"] != 150 || u["beatmap"] != 7 {
		t.Fatalf("usage = %v", u)
	}
	stats := &BucketStats{}
	summarize(objs, stats)
	if stats.TotalObjects != 3 || stats.TotalSize != 157 || !stats.LastModified.Equal(now) {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestStoreWithoutClient(t *testing.T) {
	s := &Store{}
	if _, err := s.GetObjectBytes(context.Background(), "k"); err == nil {
		t.Fatal("expected error without client")
	}
	if BeatmapKey(3, "hard") != "beatmaps/3/hard.json" {
		t.Fatal("BeatmapKey mismatch")
	}
}
