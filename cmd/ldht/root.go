package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-ldht"
	"github.com/dep2p/go-ldht/pkg/lib/log"
)

var logger = log.Logger("ldht/cmd")

// rootOptions 全局参数
type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ldht",
		Short:         "XOR 距离分布式哈希表",
		Long:          "ldht 运行进程内的 DHT 模拟：创建一组节点、加入网络、存储并查找值。",
		Version:       ldht.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetOutputWithLevel(os.Stderr, level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "配置文件路径（JSON）")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "日志级别 (debug/info/warn/error)")

	cmd.AddCommand(newSimCommand(opts), newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), ldht.VersionInfo())
		},
	}
}
