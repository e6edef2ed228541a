package cmd

import (
	"BeatStudio/server"

	"github.com/spf13/cobra"
)

var serverPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动谱面编辑服务",
	Long:  `启动 BeatStudio 的 HTTP 和 WebSocket 服务，提供编辑会话、歌曲查询和谱面保存接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverPort != "" {
			cfg.ServerPort = serverPort
		}
		return server.Start(cfg)
	},
}

func init() {
	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "", "监听端口，覆盖 SERVER_PORT")
	rootCmd.AddCommand(serverCmd)
}
