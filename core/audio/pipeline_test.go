package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"BeatStudio/core/editorerr"
)

type fetchFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetchFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

func TestPipelineLoadOverHTTP(t *testing.T) {
	wavData := encodeWAV(8000, 1, [][]float64{sine(8000, 0.25, 330)})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/songs/1.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write(wavData)
	}))
	defer srv.Close()

	p := NewPipeline(&RoutingFetcher{HTTP: NewHTTPFetcher(srv.Client())}, NewBeepDecoder())
	buf, err := p.Load(context.Background(), LoadToken{SongID: "1", Generation: 1}, srv.URL+"/songs/1.wav")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if buf.SourceHash != HashBytes(wavData) {
		t.Fatalf("SourceHash not set from fetched bytes")
	}

	_, err = p.Load(context.Background(), LoadToken{SongID: "2"}, srv.URL+"/missing.wav")
	if !editorerr.Is(err, editorerr.KindNetwork) {
		t.Fatalf("missing audio err kind = %q", editorerr.KindOf(err))
	}
	if strings.Contains(editorerr.Message(err), "404") {
		t.Fatalf("user message leaks status code: %q", editorerr.Message(err))
	}
}

func TestPipelineDecodeFailureIsTagged(t *testing.T) {
	p := NewPipeline(fetchFunc(func(context.Context, string) ([]byte, error) {
		return []byte("RIFF\x00\x00\x00\x00WAVEjunk"), nil
	}), NewBeepDecoder())
	_, err := p.Load(context.Background(), LoadToken{SongID: "x"}, "http://h/x.wav")
	if !editorerr.Is(err, editorerr.KindDecode) {
		t.Fatalf("kind = %q, want decode (err=%v)", editorerr.KindOf(err), err)
	}
}

func TestPipelineCancelledFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPipeline(fetchFunc(func(ctx context.Context, _ string) ([]byte, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}), NewBeepDecoder())
	_, err := p.Load(ctx, LoadToken{SongID: "x"}, "http://h/x.wav")
	if !errors.Is(err, editorerr.ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

type memObjects map[string][]byte

func (m memObjects) GetObjectBytes(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func TestRoutingFetcherObjectScheme(t *testing.T) {
	r := &RoutingFetcher{Object: NewObjectFetcher(memObjects{"audio/a.wav": []byte("abc")})}
	data, err := r.Fetch(context.Background(), "minio://audio/a.wav")
	if err != nil || string(data) != "abc" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}
	if _, err := r.Fetch(context.Background(), "ftp://x"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}
