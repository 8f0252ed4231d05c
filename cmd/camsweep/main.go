package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"camsweep/camerapool"
	"camsweep/internal/shared/config"
	"camsweep/internal/shared/logger"
	"camsweep/internal/shared/types"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	mode := flag.String("mode", "discover", "Run mode: discover or expand")
	pages := flag.Int("pages", 0, "Override number of listing pages to harvest")
	workers := flag.Int("workers", 0, "Override worker pool size")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "camsweep.ini")

	// 1. 加载行为配置
	cfg := new(types.Config)
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}
	if *pages > 0 {
		cfg.HarvesterConf.Pages = *pages
	}
	if *workers > 0 {
		cfg.PoolConf.Workers = *workers
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 3. 创建流水线
	mgr, err := camerapool.NewManager(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize pipeline.")
	}

	// 中断信号触发优雅停止：不再提交新任务，在途任务收尾后
	// 把已接受的记录落盘。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "discover":
		_, err = mgr.RunDiscovery(ctx)
	case "expand":
		_, err = mgr.RunExpansion(ctx)
	default:
		logger.Fatal().Str("mode", *mode).Msg("Unknown run mode, expected 'discover' or 'expand'.")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("mode", *mode).Msg("Run failed.")
	}
}
