package cmd

import (
	"fmt"
	"sort"

	"BeatStudio/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理存放音频、谱面和歌曲目录的 MinIO 存储桶，支持列出文件、按类型统计和删除目录。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		if err := storage.InitMinio(cfg); err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		store := storage.NewStore()
		ctx := cmd.Context()

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定目录前缀")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return fmt.Errorf("删除目录失败: %w", err)
			}
			fmt.Printf("已删除 %d 个对象 (前缀: %s)\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.ListObjects(ctx, minioPrefix, minioRecursive || minioStats)
		if err != nil {
			return err
		}

		if minioStats {
			usage := storage.Usage(objects)
			kinds := make([]string, 0, len(usage))
			for k := range usage {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			rows := make([][]string, 0, len(kinds)+1)
			for _, k := range kinds {
				rows = append(rows, []string{k, storage.FormatSize(usage[k])})
			}
			rows = append(rows, []string{"total", storage.FormatSize(stats.TotalSize)})
			fmt.Println(renderTable([]string{"Kind", "Size"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Printf("对象数: %d, 最近修改: %s\n", stats.TotalObjects, stats.LastModified.Format("2006-01-02 15:04:05"))
			return nil
		}

		rows := make([][]string, 0, len(objects))
		for _, o := range objects {
			rows = append(rows, []string{o.Key, o.Kind, storage.FormatSize(o.Size), o.LastModified.Format("2006-01-02 15:04:05")})
		}
		fmt.Println(renderTable(
			[]string{"Key", "Kind", "Size", "Modified"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
		fmt.Printf("共 %d 个对象, %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "按类型统计存储用量")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "递归列出子目录")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	minioCmd.Example = `  # 列出所有谱面
  beatstudio minio -r -p "beatmaps/"

  # 按类型统计
  beatstudio minio -s

  # 删除某首歌的谱面
  beatstudio minio -d -p "beatmaps/42/"`
}
