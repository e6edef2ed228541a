package cmd

import (
	"fmt"
	"time"

	"BeatStudio/cache"
	"BeatStudio/core/tempo"
	"BeatStudio/logger"

	"github.com/spf13/cobra"
)

var (
	detectMinBPM   float64
	detectMaxBPM   float64
	detectUseCache bool
)

var detectCmd = &cobra.Command{
	Use:   "detect <file|url>...",
	Short: "检测音频的 BPM 和首拍偏移",
	Long:  `解码音频并估计速度。本地路径、http(s) 地址和 minio:// 对象均可，--cache 时结果写入 Redis。`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectMinBPM == 0 {
			detectMinBPM = cfg.MinDetectBPM
		}
		if detectMaxBPM == 0 {
			detectMaxBPM = cfg.MaxDetectBPM
		}

		var est tempo.Estimator = tempo.NewDetector(detectMinBPM, detectMaxBPM)
		if detectUseCache {
			if err := cache.ConnectRedis(cfg); err != nil {
				logger.Warn("Redis 不可用，跳过缓存", logger.ErrorField(err))
			} else {
				defer cache.CloseRedis()
				est = tempo.NewCachedDetector(est, cache.NewTempoCache(cfg.TempoCacheTTL))
			}
		}

		ctx := cmd.Context()
		var rows [][]string
		failed := 0
		for _, src := range args {
			start := time.Now()
			buf, err := loadAudio(ctx, src)
			if err != nil {
				failed++
				rows = append(rows, []string{src, "-", "-", "-", err.Error()})
				continue
			}
			r, err := est.Detect(ctx, buf)
			elapsed := time.Since(start).Round(time.Millisecond)
			if err != nil {
				failed++
				rows = append(rows, []string{src, fmt.Sprintf("%.1fs", buf.DurationSeconds), "-", "-", err.Error()})
				continue
			}
			rows = append(rows, []string{
				src,
				fmt.Sprintf("%.1fs", buf.DurationSeconds),
				fmt.Sprintf("%.2f", r.BPM),
				fmt.Sprintf("%.0fms", r.OffsetMs),
				elapsed.String(),
			})
		}

		fmt.Println(renderTable(
			[]string{"Source", "Duration", "BPM", "Offset", "Elapsed"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
		))
		if failed > 0 {
			return fmt.Errorf("%d 个文件检测失败", failed)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().Float64Var(&detectMinBPM, "min", 0, "最小 BPM，默认取 MIN_DETECT_BPM")
	detectCmd.Flags().Float64Var(&detectMaxBPM, "max", 0, "最大 BPM，默认取 MAX_DETECT_BPM")
	detectCmd.Flags().BoolVar(&detectUseCache, "cache", false, "读写 Redis 节拍缓存")
	rootCmd.AddCommand(detectCmd)
}
