package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iabetor/gazette/internal/app"
	"github.com/iabetor/gazette/internal/config"
	"github.com/iabetor/gazette/internal/logger"
	"github.com/iabetor/gazette/internal/publish"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig string
	flagFeeds  string
	flagOutput string
)

var rootCmd = &cobra.Command{
	Use:           "gazette",
	Short:         "把 RSS/Atom 订阅源汇总为每日摘要并发布到 GitHub 仓库",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPublish,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "只抓取并渲染摘要，写到文件或标准输出，不发布",
	RunE:  runRender,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gazette %s (commit: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "配置文件路径（默认 $XDG_CONFIG_HOME/gazette/config.yaml）")
	rootCmd.PersistentFlags().StringVar(&flagFeeds, "feeds", "", "订阅源列表文件，覆盖配置和 FEEDS_FILE")
	renderCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "输出文件，为空则写到标准输出")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gazette: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 读取配置并初始化日志。
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagFeeds != "" {
		cfg.FeedsFile = flagFeeds
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// 缺少凭据时在任何网络请求之前退出
	if err := cfg.Validate(); err != nil {
		logger.Errorf("[main] 配置无效: %v", err)
		return err
	}

	store, err := publish.NewGitHubStore(publish.GitHubOptions{
		Token:  cfg.GitHub.Token,
		Owner:  cfg.Owner(),
		Repo:   cfg.RepoName(),
		Branch: cfg.GitHub.Branch,
		APIURL: cfg.GitHub.APIURL,
	})
	if err != nil {
		return err
	}

	a, err := app.New(cfg, store)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context(), time.Now())
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	html, _, err := a.Build(cmd.Context(), time.Now())
	if err != nil {
		return err
	}

	if flagOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.WriteFile(flagOutput, []byte(html), 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", flagOutput, err)
	}
	logger.Infof("[main] 摘要已写入 %s", flagOutput)
	return nil
}
