package cmd

import (
	"fmt"
	"strings"

	"BeatStudio/core/songapi"

	"github.com/spf13/cobra"
)

var catalogPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "查看歌曲目录",
	Long:  `读取 TOML 歌曲目录并列出歌曲、速度和已有难度，解析失败时返回错误。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CatalogPath
		if catalogPath != "" {
			path = catalogPath
		}
		cat := songapi.NewCatalog(path, songapi.Defaults{
			NominalBPM:          cfg.NominalBPM,
			FallbackDurationSec: cfg.FallbackDurationSec,
		})
		if err := cat.Load(); err != nil {
			return fmt.Errorf("歌曲目录解析失败 %s: %w", path, err)
		}

		songs := cat.List()
		rows := make([][]string, 0, len(songs))
		for _, s := range songs {
			bpm := fmt.Sprintf("%.1f", s.BPM)
			if !s.BPMDeclared {
				bpm += " *"
			}
			source := s.AudioURL
			if source == "" && s.AudioKey != "" {
				source = "minio://" + s.AudioKey
			}
			diffs := make([]string, 0, len(s.Beatmaps))
			for _, b := range s.Beatmaps {
				diffs = append(diffs, b.DifficultyName)
			}
			rows = append(rows, []string{s.ID, s.Title, bpm, fmt.Sprintf("%.1fs", s.Duration), strings.Join(diffs, ", "), source})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Title", "BPM", "Duration", "Difficulties", "Audio"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		))
		fmt.Printf("%s: %d 首歌曲 (* 表示使用默认 BPM)\n", path, len(songs))
		return nil
	},
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogPath, "file", "f", "", "目录文件，默认取 CATALOG_PATH")
	rootCmd.AddCommand(catalogCmd)
}
