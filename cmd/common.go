package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"BeatStudio/core/audio"
	"BeatStudio/storage"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// loadAudio decodes a local path, an http(s) URL or a minio:// key.
func loadAudio(ctx context.Context, src string) (*audio.Buffer, error) {
	dec := audio.NewDefaultDecoder(cfg.FFmpegPath)

	if !strings.Contains(src, "://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("读取音频文件失败: %w", err)
		}
		buf, err := dec.Decode(ctx, data, src)
		if err != nil {
			return nil, fmt.Errorf("解码失败 %s: %w", src, err)
		}
		if buf.SourceHash == "" {
			buf.SourceHash = audio.HashBytes(data)
		}
		return buf, nil
	}

	fetcher := &audio.RoutingFetcher{HTTP: audio.NewHTTPFetcher(nil)}
	if strings.HasPrefix(src, audio.ObjectScheme) {
		if err := storage.InitMinio(cfg); err != nil {
			return nil, fmt.Errorf("无法连接到MinIO: %w", err)
		}
		fetcher.Object = audio.NewObjectFetcher(storage.NewStore())
	}
	return audio.NewPipeline(fetcher, dec).Load(ctx, audio.LoadToken{SongID: src}, src)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
