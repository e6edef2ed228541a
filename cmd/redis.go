package cmd

import (
	"fmt"

	"BeatStudio/cache"
	"BeatStudio/logger"

	"github.com/spf13/cobra"
)

var (
	redisFlushTempo bool
	redisSessions   bool
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试和缓存维护",
	Long:  `测试Redis连接并进行基本读写，可清空节拍检测缓存或查看在线会话数。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer func() {
			if err := cache.CloseRedis(); err != nil {
				logger.Warn("关闭Redis连接时发生错误", logger.ErrorField(err))
			}
		}()

		if err := cache.TestRedis(ctx); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		if redisSessions {
			n, err := cache.NewSessionCache().ActiveCount(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("在线会话: %d\n", n)
		}

		if redisFlushTempo {
			n, err := cache.NewTempoCache(cfg.TempoCacheTTL).Flush(ctx)
			if err != nil {
				return fmt.Errorf("清空节拍缓存失败: %w", err)
			}
			fmt.Printf("已清空 %d 条节拍缓存\n", n)
		}
		return nil
	},
}

func init() {
	redisCmd.Flags().BoolVar(&redisFlushTempo, "flush-tempo", false, "清空节拍检测缓存")
	redisCmd.Flags().BoolVar(&redisSessions, "sessions", false, "显示在线会话数")
	rootCmd.AddCommand(redisCmd)
}
