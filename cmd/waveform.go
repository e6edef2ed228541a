package cmd

import (
	"fmt"

	"BeatStudio/core/tempo"
	"BeatStudio/core/timeline"
	"BeatStudio/core/waveform"

	"github.com/spf13/cobra"
)

var (
	waveWidth  int
	waveHeight int
	waveBeats  bool
)

var waveformCmd = &cobra.Command{
	Use:   "waveform <file|url>",
	Short: "在终端绘制音频波形",
	Long:  `将整首歌压缩到指定宽度绘制波形，--beats 时用检测到的节拍作为标记。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		buf, err := loadAudio(ctx, args[0])
		if err != nil {
			return err
		}
		durMs := buf.DurationSeconds * 1000
		if durMs <= 0 || waveWidth <= 0 {
			return fmt.Errorf("音频为空或宽度无效")
		}

		vp := timeline.NewViewport(float64(waveWidth) / durMs)
		vp.SetDuration(durMs)
		snap := vp.Snapshot()

		r := waveform.NewRenderer()
		r.SetBuffer(buf)
		frame := r.Render(snap, 0, 0, waveWidth)

		var markers []float64
		if waveBeats {
			res, err := tempo.NewDetector(cfg.MinDetectBPM, cfg.MaxDetectBPM).Detect(ctx, buf)
			if err != nil {
				return fmt.Errorf("节拍检测失败: %w", err)
			}
			beatMs := 60000 / res.BPM
			for t := res.OffsetMs; t < durMs; t += beatMs {
				markers = append(markers, snap.TimeToX(t))
			}
			fmt.Printf("%.2f BPM, offset %.0fms\n", res.BPM, res.OffsetMs)
		}

		fmt.Println(waveform.RenderTerminal(frame, waveHeight, markers))
		return nil
	},
}

func init() {
	waveformCmd.Flags().IntVarP(&waveWidth, "width", "w", 100, "绘制宽度（字符）")
	waveformCmd.Flags().IntVar(&waveHeight, "height", 11, "绘制高度（行）")
	waveformCmd.Flags().BoolVar(&waveBeats, "beats", false, "标记检测到的节拍")
	rootCmd.AddCommand(waveformCmd)
}
